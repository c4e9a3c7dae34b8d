package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIPrefix is the group every module is mounted under.
const APIPrefix = "/api"

type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	Logger      *logrus.Logger
	middlewares []gin.HandlerFunc
	modules     []Module
}

func NewRegistry(engine *gin.Engine, logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{Engine: engine, API: engine.Group(APIPrefix), Logger: logger}
}

// Use adds middleware applied to the API group only.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts every module and logs the routes each one added.
func (r *Registry) RegisterAll() {
	if len(r.middlewares) > 0 {
		r.API.Use(r.middlewares...)
	}
	for _, m := range r.modules {
		before := len(r.Engine.Routes())
		m.Register(r.API)
		r.Logger.WithFields(logrus.Fields{
			"module": m.Name(),
			"routes": len(r.Engine.Routes()) - before,
		}).Debug("module registered")
	}
}
