package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/oksasatya/go-identity-service/pkg/response"
	"github.com/oksasatya/go-identity-service/pkg/validation"
)

// Gate is implemented by *application.AccessGate.
type Gate interface {
	Check(ctx context.Context, email string) error
}

// EmailSource extracts the identity the gate should check.
type EmailSource func(c *gin.Context) (string, error)

// EmailFromClaims uses the email put in the context by JWTAuth.
func EmailFromClaims(c *gin.Context) (string, error) {
	return c.GetString(CtxEmailKey), nil
}

// EmailFromJSONBody reads "email" from the JSON body. The body is cached so the
// handler can bind it again with ShouldBindBodyWith.
func EmailFromJSONBody(c *gin.Context) (string, error) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		return "", err
	}
	return body.Email, nil
}

// RequireConfirmedEmail aborts the request unless the identity belongs to a
// confirmed account. onError renders gate failures.
func RequireConfirmedEmail(gate Gate, from EmailSource, onError func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, err := from(c)
		if err != nil {
			response.Abort(c, http.StatusUnprocessableEntity, "invalid payload", response.ErrorBody{Code: "IRB", Details: validation.ToDetails(err)})
			return
		}
		if err := gate.Check(c.Request.Context(), email); err != nil {
			onError(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
