package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/response"
)

const (
	CtxUserIDKey = "userID"
	CtxEmailKey  = "email"
)

// JWTAuth reads the bearer token from the Authorization header, validates it,
// and injects the user id and email into the context.
func JWTAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token", response.ErrorBody{Code: "UNA"})
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid access token", response.ErrorBody{Code: "UNA", Details: err.Error()})
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxEmailKey, claims.Email)
		c.Next()
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
