package router

import (
	"github.com/oksasatya/go-identity-service/internal/container"
	handlers "github.com/oksasatya/go-identity-service/internal/interface/http"
	"github.com/oksasatya/go-identity-service/internal/router/modules"
)

// InitModules builds the handlers from the container and registers every module.
// This function should be called once during application startup.
func InitModules(r *Registry, c *container.Container) {
	authHandler := handlers.NewAuthHandler(c.Credentials, c.Social, c.JWT, c.Logger)
	emailHandler := handlers.NewEmailHandler(c.Verification, c.Logger)

	r.Add(modules.NewHealthModule())
	r.Add(modules.NewAuthModule(authHandler, c.JWT, c.Gate, c.Logger))
	r.Add(modules.NewEmailModule(emailHandler))
	if c.Config.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
