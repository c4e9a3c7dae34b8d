package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/config"
	"github.com/oksasatya/go-identity-service/internal/application"
	"github.com/oksasatya/go-identity-service/internal/container"
	"github.com/oksasatya/go-identity-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/mailer"
	"github.com/oksasatya/go-identity-service/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

// graphStub answers like the Graph API for the tokens used below.
type graphStub struct{}

func (graphStub) Exchange(_ context.Context, token string) (application.SocialIdentity, error) {
	switch token {
	case "OK_TOKEN":
		return application.SocialIdentity{ID: "TEST_FB_ID", Email: "jd@gmail.com", Name: "John Doe"}, nil
	case "NO_EMAIL_TOKEN":
		return application.SocialIdentity{ID: "OTHER_FB_ID", Name: "No Mail"}, nil
	case "EXPIRED_TOKEN":
		return application.SocialIdentity{}, &application.SocialAPIError{Code: 190, Subcode: 463, Type: "OAuthException", Message: "Session has expired"}
	default:
		return application.SocialIdentity{}, &application.SocialAPIError{Code: 190, Type: "OAuthException", Message: "Invalid OAuth access token."}
	}
}

type outbox struct{ sent []mailer.Message }

func (o *outbox) Send(_ context.Context, m mailer.Message) error {
	o.sent = append(o.sent, m)
	return nil
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	users  *memory.UserRepository
	outbox *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		AppName:             "identity-test",
		StoreTimeout:        time.Second,
		SocialTimeout:       time.Second,
		MailTimeout:         time.Second,
		DebugMetricsEnabled: true,
	}
	users := memory.NewUserRepository()
	box := &outbox{}
	c := &container.Container{
		Config:   cfg,
		Logger:   logger,
		Users:    users,
		Hasher:   helpers.NewPasswordHasher(helpers.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8}, 2),
		JWT:      helpers.NewJWTManager("test-secret", "identity-test", time.Hour),
		Verifier: graphStub{},
		Notifier: box,
	}
	c.Wire()

	engine := gin.New()
	reg := NewRegistry(engine, c.Logger)
	InitModules(reg, c)
	reg.RegisterAll()
	return &testServer{t: t, engine: engine, users: users, outbox: box}
}

func (s *testServer) do(method, path, body, token string) (int, envelope) {
	s.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func (s *testServer) expect(method, path, body, token string, status int, code string) envelope {
	s.t.Helper()
	got, env := s.do(method, path, body, token)
	if got != status {
		s.t.Fatalf("%s %s: status %d, want %d (body %+v)", method, path, got, status, env)
	}
	if env.Error.Code != code {
		s.t.Fatalf("%s %s: error code %q, want %q", method, path, env.Error.Code, code)
	}
	return env
}

func tokenFrom(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("no token in %s", env.Data)
	}
	return data.Token
}

const testUser = `{"email":"test@gmail.com","password":"pwd","firstName":"Test","lastName":"User","phone":"123123123123","postCode":79000,"locale":"en"}`

func TestPasswordSignupConfirmLoginFlow(t *testing.T) {
	s := newTestServer(t)

	s.expect(http.MethodPost, "/api/signup", testUser, "", http.StatusCreated, "")
	s.expect(http.MethodPost, "/api/signup", testUser, "", http.StatusUnprocessableEntity, "DKE")
	s.expect(http.MethodPost, "/api/signup", `{"email":"nope","password":"p"}`, "", http.StatusUnprocessableEntity, "ENV")
	s.expect(http.MethodPost, "/api/signup", `{"email":"x@gmail.com","password":"p","phone":"12"}`, "", http.StatusUnprocessableEntity, "PNV")

	// unconfirmed and unknown accounts are stopped by the gate
	s.expect(http.MethodPost, "/api/login", `{"email":"test@gmail.com","password":"pwd"}`, "", http.StatusUnauthorized, "ENC")
	s.expect(http.MethodPost, "/api/login", `{"email":"ghost@gmail.com","password":"pwd"}`, "", http.StatusBadRequest, "ICR")

	env := s.expect(http.MethodPost, "/api/email-confirmation", `{"email":"test@gmail.com"}`, "", http.StatusOK, "")
	if env.Message != "verification code is created" {
		t.Fatalf("message = %q", env.Message)
	}
	if len(s.outbox.sent) != 1 || s.outbox.sent[0].To != "test@gmail.com" {
		t.Fatalf("verification mail not sent: %+v", s.outbox.sent)
	}
	u, err := s.users.FindByEmail(context.Background(), "test@gmail.com")
	if err != nil {
		t.Fatal(err)
	}

	s.expect(http.MethodPost, "/api/confirm-email", `{"email":"test@gmail.com","code":999}`, "", http.StatusBadRequest, "EVCI")
	s.expect(http.MethodPost, "/api/confirm-email", `{"email":"ghost@gmail.com","code":1234}`, "", http.StatusBadRequest, "UNF")
	s.expect(http.MethodPost, "/api/confirm-email", `{"email":"test@gmail.com","code":`+u.VerificationCode+`}`, "", http.StatusOK, "")

	env = s.expect(http.MethodPost, "/api/email-confirmation", `{"email":"test@gmail.com"}`, "", http.StatusOK, "")
	if env.Message != "this email is already verified" {
		t.Fatalf("message = %q", env.Message)
	}

	s.expect(http.MethodPost, "/api/login", `{"email":"test@gmail.com","password":"wrong"}`, "", http.StatusBadRequest, "ICR")
	env = s.expect(http.MethodPost, "/api/login", `{"email":"TEST@gmail.com","password":"pwd","locale":"uk"}`, "", http.StatusOK, "")
	token := tokenFrom(t, env)

	env = s.expect(http.MethodGet, "/api/me", "", token, http.StatusOK, "")
	var me struct {
		ID             string `json:"id"`
		Email          string `json:"email"`
		PostCode       string `json:"postCode"`
		Locale         string `json:"locale"`
		EmailConfirmed bool   `json:"emailConfirmed"`
	}
	if err := json.Unmarshal(env.Data, &me); err != nil {
		t.Fatal(err)
	}
	if me.ID != u.ID || me.Email != "test@gmail.com" || me.PostCode != "79000" || me.Locale != "uk" || !me.EmailConfirmed {
		t.Fatalf("unexpected profile %+v", me)
	}

	s.expect(http.MethodGet, "/api/me", "", "", http.StatusUnauthorized, "UNA")
}

func TestFacebookLoginFlow(t *testing.T) {
	s := newTestServer(t)

	env := s.expect(http.MethodPost, "/api/login/fb", `{"token":"OK_TOKEN","locale":"en"}`, "", http.StatusOK, "")
	if env.Message != "new user is created" {
		t.Fatalf("message = %q", env.Message)
	}
	first := tokenFrom(t, env)

	env = s.expect(http.MethodPost, "/api/login/fb", `{"token":"OK_TOKEN"}`, "", http.StatusOK, "")
	if env.Message != "login via fb" {
		t.Fatalf("message = %q", env.Message)
	}
	if s.users.Len() != 1 {
		t.Fatalf("users = %d, want 1", s.users.Len())
	}

	// social accounts still need a confirmed email for gated routes
	s.expect(http.MethodGet, "/api/me", "", first, http.StatusUnauthorized, "ENC")

	env = s.expect(http.MethodPost, "/api/login/fb", `{"token":"EXPIRED_TOKEN"}`, "", http.StatusBadRequest, "FBTE")
	var details application.SocialAPIError
	if err := json.Unmarshal(env.Error.Details, &details); err != nil || details.Subcode != 463 {
		t.Fatalf("provider error not forwarded: %s", env.Error.Details)
	}
	s.expect(http.MethodPost, "/api/login/fb", `{"token":"NOT_OK_TOKEN"}`, "", http.StatusBadRequest, "FBTNV")
	s.expect(http.MethodPost, "/api/login/fb", `{"token":"NO_EMAIL_TOKEN"}`, "", http.StatusBadRequest, "EIE")
	s.expect(http.MethodPost, "/api/login/fb", `{}`, "", http.StatusUnprocessableEntity, "IRB")
}

func TestFacebookLoginAgainstPasswordAccount(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.MethodPost, "/api/signup", `{"email":"jd@gmail.com","password":"pwd"}`, "", http.StatusCreated, "")

	// unconfirmed: linking is refused
	s.expect(http.MethodPost, "/api/login/fb", `{"token":"OK_TOKEN"}`, "", http.StatusConflict, "LRC")

	u, _ := s.users.FindByEmail(context.Background(), "jd@gmail.com")
	if err := s.users.ConfirmEmail(context.Background(), u.ID); err != nil {
		t.Fatal(err)
	}
	env := s.expect(http.MethodPost, "/api/login/fb", `{"token":"OK_TOKEN"}`, "", http.StatusOK, "")
	if env.Message != "login via fb" || s.users.Len() != 1 {
		t.Fatalf("expected link to existing account, got %q with %d users", env.Message, s.users.Len())
	}
	linked, _ := s.users.FindByEmail(context.Background(), "jd@gmail.com")
	if linked.SocialID != "TEST_FB_ID" {
		t.Fatalf("social id = %q", linked.SocialID)
	}

	// another profile without an email cannot take over the linked account
	env = s.expect(http.MethodPost, "/api/login/fb", `{"token":"NO_EMAIL_TOKEN","email":"jd@gmail.com"}`, "", http.StatusConflict, "SAL")
	if len(env.Data) != 0 && string(env.Data) != "null" {
		t.Fatalf("no token may be issued, got %s", env.Data)
	}
	linked, _ = s.users.FindByEmail(context.Background(), "jd@gmail.com")
	if linked.SocialID != "TEST_FB_ID" {
		t.Fatalf("social id replaced: %q", linked.SocialID)
	}
}

func TestHealthAndDebugVars(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.MethodGet, "/api/health", "", "", http.StatusOK, "")

	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"identity"`)) {
		t.Fatalf("debug vars: %d %s", w.Code, w.Body.String())
	}
}

func TestRoutesMountedUnderAPI(t *testing.T) {
	s := newTestServer(t)
	want := map[string]bool{
		"POST /api/signup":             false,
		"POST /api/login":              false,
		"POST /api/login/fb":           false,
		"POST /api/email-confirmation": false,
		"POST /api/confirm-email":      false,
		"GET /api/me":                  false,
		"GET /api/health":              false,
	}
	for _, r := range s.engine.Routes() {
		key := r.Method + " " + r.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, seen := range want {
		if !seen {
			t.Errorf("route %s not registered", route)
		}
	}
}
