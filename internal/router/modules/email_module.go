package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-identity-service/internal/interface/http"
)

// EmailModule wires the verification code routes. Both are public: the caller
// proves ownership of the address by reading the code from the mailbox.
type EmailModule struct {
	Handler *handlers.EmailHandler
}

func NewEmailModule(h *handlers.EmailHandler) *EmailModule {
	return &EmailModule{Handler: h}
}

func (m *EmailModule) Name() string { return "email" }

func (m *EmailModule) Register(rg *gin.RouterGroup) {
	rg.POST("/email-confirmation", m.Handler.RequestCode)
	rg.POST("/confirm-email", m.Handler.ConfirmEmail)
}
