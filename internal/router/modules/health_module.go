package modules

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-identity-service/pkg/response"
)

type HealthModule struct {
	started time.Time
}

func NewHealthModule() *HealthModule { return &HealthModule{started: time.Now()} }

func (m *HealthModule) Name() string { return "health" }

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"uptime": time.Since(m.started).Round(time.Second).String()}, "ok", nil)
	})
}
