package modules

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	handlers "github.com/oksasatya/go-identity-service/internal/interface/http"
	"github.com/oksasatya/go-identity-service/internal/interface/middleware"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
)

// AuthModule wires signup, login and profile routes.
// Public: POST /signup, POST /login/fb
// Gated on the body email: POST /login
// Bearer token + gated on the token email: GET /me
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
	Gate    middleware.Gate
	Logger  *logrus.Logger
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager, gate middleware.Gate, logger *logrus.Logger) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt, Gate: gate, Logger: logger}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	onGateError := handlers.GateError(m.Logger)

	rg.POST("/signup", m.Handler.Signup)
	rg.POST("/login/fb", m.Handler.LoginFacebook)
	rg.POST("/login", middleware.RequireConfirmedEmail(m.Gate, middleware.EmailFromJSONBody, onGateError), m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(middleware.JWTAuth(m.JWT))
	auth.Use(middleware.RequireConfirmedEmail(m.Gate, middleware.EmailFromClaims, onGateError))
	{
		auth.GET("/me", m.Handler.Me)
	}
}
