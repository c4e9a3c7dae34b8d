package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/internal/application"
	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	"github.com/oksasatya/go-identity-service/internal/interface/middleware"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/response"
	"github.com/oksasatya/go-identity-service/pkg/validation"
)

type AuthHandler struct {
	Credentials *application.CredentialService
	Social      *application.SocialService
	JWT         *helpers.JWTManager
	Logger      *logrus.Logger
}

func NewAuthHandler(credentials *application.CredentialService, social *application.SocialService, jwt *helpers.JWTManager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Credentials: credentials, Social: social, JWT: jwt, Logger: logger}
}

// flexString accepts a JSON string or number. Older clients send postCode and
// the verification code as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("must be a string or a number")
	}
	*f = flexString(n.String())
	return nil
}

type signupRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Address   string     `json:"address"`
	Phone     string     `json:"phone"`
	PostCode  flexString `json:"postCode"`
	Locale    string     `json:"locale"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Locale   string `json:"locale"`
}

type facebookLoginRequest struct {
	Token  string `json:"token" binding:"required"`
	Email  string `json:"email"`
	Locale string `json:"locale"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type profileResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Address        string `json:"address,omitempty"`
	Phone          string `json:"phone,omitempty"`
	PostCode       string `json:"postCode,omitempty"`
	Locale         string `json:"locale,omitempty"`
	EmailConfirmed bool   `json:"emailConfirmed"`
	FacebookLinked bool   `json:"facebookLinked"`
}

// Signup POST /api/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, validation.ToDetails(err))
		return
	}
	u, err := h.Credentials.Register(c.Request.Context(), application.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
		PostCode:  strings.TrimSpace(string(req.PostCode)),
		Locale:    req.Locale,
	})
	if err != nil {
		count("signup_failed")
		writeError(c, h.Logger, err)
		return
	}
	count("signup_created")
	response.Success(c, http.StatusCreated, gin.H{"status": "ok", "id": u.ID, "email": u.Email}, "user created", nil)
}

// Login POST /api/login. Runs behind RequireConfirmedEmail(EmailFromJSONBody).
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		writeBindError(c, validation.ToDetails(err))
		return
	}
	u, err := h.Credentials.Authenticate(c.Request.Context(), req.Email, req.Password, req.Locale)
	if err != nil {
		count("login_failed")
		writeError(c, h.Logger, err)
		return
	}
	count("login_ok")
	h.issueToken(c, u, "login successful")
}

// LoginFacebook POST /api/login/fb
func (h *AuthHandler) LoginFacebook(c *gin.Context) {
	var req facebookLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, validation.ToDetails(err))
		return
	}
	res, err := h.Social.ResolveOrCreate(c.Request.Context(), req.Token, req.Email, req.Locale)
	if err != nil {
		count("social_failed")
		writeError(c, h.Logger, err)
		return
	}
	switch res.Outcome {
	case application.OutcomeCreated:
		count("social_created")
		h.issueToken(c, res.User, "new user is created")
	case application.OutcomeLoggedIn:
		count("social_logged_in")
		h.issueToken(c, res.User, "login via fb")
	default:
		writeError(c, h.Logger, errors.New("unknown social login outcome"))
	}
}

// Me GET /api/me. Runs behind JWTAuth and RequireConfirmedEmail(EmailFromClaims).
func (h *AuthHandler) Me(c *gin.Context) {
	email := c.GetString(middleware.CtxEmailKey)
	u, err := h.Credentials.Lookup(c.Request.Context(), email)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if u.ID != c.GetString(middleware.CtxUserIDKey) {
		response.Error(c, http.StatusUnauthorized, "token does not match the account", response.ErrorBody{Code: CodeUnauthorized})
		return
	}
	response.Success(c, http.StatusOK, profileResponse{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Address:        u.Address,
		Phone:          u.Phone,
		PostCode:       u.PostCode,
		Locale:         u.Locale,
		EmailConfirmed: u.EmailConfirmed,
		FacebookLinked: u.SocialID != "",
	}, "profile", nil)
}

func (h *AuthHandler) issueToken(c *gin.Context, u *entity.User, message string) {
	token, exp, err := h.JWT.Generate(u.ID, u.Email)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, tokenResponse{Token: token, ExpiresAt: exp}, message, nil)
}

// GateError renders AccessGate failures for RequireConfirmedEmail.
func GateError(logger *logrus.Logger) func(*gin.Context, error) {
	return func(c *gin.Context, err error) {
		count("gate_rejected")
		writeError(c, logger, err)
	}
}
