package handlers

import "expvar"

// Counters published under "identity" at /api/debug/vars.
var metrics = expvar.NewMap("identity")

func count(name string) { metrics.Add(name, 1) }
