package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/internal/application"
	"github.com/oksasatya/go-identity-service/pkg/response"
	"github.com/oksasatya/go-identity-service/pkg/validation"
)

type EmailHandler struct {
	Verification *application.VerificationService
	Logger       *logrus.Logger
}

func NewEmailHandler(verification *application.VerificationService, logger *logrus.Logger) *EmailHandler {
	return &EmailHandler{Verification: verification, Logger: logger}
}

type issueCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

type confirmEmailRequest struct {
	Email string     `json:"email" binding:"required"`
	Code  flexString `json:"code" binding:"required"`
}

// RequestCode POST /api/email-confirmation
func (h *EmailHandler) RequestCode(c *gin.Context) {
	var req issueCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, validation.ToDetails(err))
		return
	}
	res, err := h.Verification.IssueCode(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	switch res.Outcome {
	case application.IssueOutcomeIssued:
		count("codes_issued")
		response.Success(c, http.StatusOK, gin.H{"email": res.Email}, "verification code is created", nil)
	case application.IssueOutcomeAlreadyVerified:
		response.Success(c, http.StatusOK, gin.H{"email": res.Email, "code": CodeEmailAlreadyVerified}, "this email is already verified", nil)
	default:
		writeError(c, h.Logger, errors.New("unknown issue outcome"))
	}
}

// ConfirmEmail POST /api/confirm-email
func (h *EmailHandler) ConfirmEmail(c *gin.Context) {
	var req confirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, validation.ToDetails(err))
		return
	}
	u, err := h.Verification.RedeemCode(c.Request.Context(), req.Email, strings.TrimSpace(string(req.Code)))
	if err != nil {
		if errors.Is(err, application.ErrCodeMismatch) {
			count("codes_rejected")
		}
		writeError(c, h.Logger, err)
		return
	}
	count("codes_redeemed")
	response.Success(c, http.StatusOK, gin.H{"email": u.Email}, "email is confirmed", nil)
}
