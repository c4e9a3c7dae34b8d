package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/internal/application"
	"github.com/oksasatya/go-identity-service/internal/interface/middleware"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/response"
)

// Short error codes returned in error.code. Clients of the legacy API already
// switch on the first group.
const (
	CodeDuplicateKey             = "DKE"
	CodeSocialEmailExists        = "SNSEAE"
	CodeEmailNotValid            = "ENV"
	CodePhoneNotValid            = "PNV"
	CodeEmailIsEmpty             = "EIE"
	CodeUnrecognizedHash         = "IUH"
	CodeFacebookTokenNotValid    = "FBTNV"
	CodeFacebookTokenExpired     = "FBTE"
	CodeEmailAlreadyVerified     = "TEV"
	CodeVerificationIncorrect    = "EVCI"
	CodeUserNotFound             = "UNF"
	CodeInvalidCredentials       = "ICR"
	CodeEmailNotConfirmed        = "ENC"
	CodeLinkingNeedsConfirmation = "LRC"
	CodeSocialAlreadyLinked      = "SAL"
	CodeServiceUnavailable       = "SVU"
	CodeInvalidRequestBody       = "IRB"
	CodeInternal                 = "ISE"
	CodeUnauthorized             = "UNA"
)

type errorMapping struct {
	status  int
	code    string
	message string
}

func mapError(err error) errorMapping {
	switch application.KindOf(err) {
	case application.KindValidation:
		var e *application.Error
		field := ""
		if errors.As(err, &e) {
			field = e.Field
		}
		switch field {
		case "email":
			return errorMapping{http.StatusUnprocessableEntity, CodeEmailNotValid, "such email not valid"}
		case "phone":
			return errorMapping{http.StatusUnprocessableEntity, CodePhoneNotValid, "such phone not valid"}
		default:
			return errorMapping{http.StatusUnprocessableEntity, CodeInvalidRequestBody, "invalid payload"}
		}
	case application.KindConflict:
		var e *application.Error
		if errors.As(err, &e) && e.Op == "social.resolve" {
			return errorMapping{http.StatusUnprocessableEntity, CodeSocialEmailExists, "such email already exists"}
		}
		return errorMapping{http.StatusUnprocessableEntity, CodeDuplicateKey, "such email already exists"}
	case application.KindInvalidCredentials:
		return errorMapping{http.StatusBadRequest, CodeInvalidCredentials, "login data is incorrect"}
	case application.KindUnrecognizedHash:
		return errorMapping{http.StatusInternalServerError, CodeUnrecognizedHash, "login data is incorrect"}
	case application.KindEmailNotConfirmed:
		return errorMapping{http.StatusUnauthorized, CodeEmailNotConfirmed, "email is not confirmed"}
	case application.KindUserNotFound:
		return errorMapping{http.StatusBadRequest, CodeUserNotFound, "user not found"}
	case application.KindSocialTokenInvalid:
		return errorMapping{http.StatusBadRequest, CodeFacebookTokenNotValid, "facebook token is not valid"}
	case application.KindSocialTokenExpired:
		return errorMapping{http.StatusBadRequest, CodeFacebookTokenExpired, "facebook token is expired"}
	case application.KindEmailMissing:
		return errorMapping{http.StatusBadRequest, CodeEmailIsEmpty, "email is empty"}
	case application.KindCodeMismatch:
		return errorMapping{http.StatusBadRequest, CodeVerificationIncorrect, "validation code is incorrect"}
	case application.KindLinkingRequiresConfirmation:
		return errorMapping{http.StatusConflict, CodeLinkingNeedsConfirmation, "confirm your email before linking a social account"}
	case application.KindSocialAlreadyLinked:
		return errorMapping{http.StatusConflict, CodeSocialAlreadyLinked, "this account is linked to another facebook profile"}
	case application.KindUnavailable:
		return errorMapping{http.StatusServiceUnavailable, CodeServiceUnavailable, "service temporarily unavailable"}
	case application.KindFatal:
		return errorMapping{http.StatusInternalServerError, CodeInternal, "internal server error"}
	default:
		return errorMapping{http.StatusInternalServerError, CodeInternal, "internal server error"}
	}
}

// writeError renders err and logs server-side failures.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	m := mapError(err)
	body := response.ErrorBody{Code: m.code}
	var apiErr *application.SocialAPIError
	if errors.As(err, &apiErr) {
		body.Details = apiErr
	}
	if m.status >= http.StatusInternalServerError && logger != nil {
		helpers.LogError(logger, "request failed", err, logrus.Fields{
			"request_id": c.GetString("request_id"),
			"ip":         middleware.ClientIP(c),
			"path":       c.FullPath(),
			"code":       m.code,
		})
	}
	response.Error(c, m.status, m.message, body)
}

func writeBindError(c *gin.Context, details map[string]string) {
	response.Error(c, http.StatusUnprocessableEntity, "invalid payload", response.ErrorBody{Code: CodeInvalidRequestBody, Details: details})
}
