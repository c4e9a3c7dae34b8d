package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/oksasatya/go-identity-service/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeGate struct {
	checkFn func(ctx context.Context, email string) error
	seen    []string
}

func (g *fakeGate) Check(ctx context.Context, email string) error {
	g.seen = append(g.seen, email)
	return g.checkFn(ctx, email)
}

func TestJWTAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", "test", time.Minute)
	token, _, err := jwt.Generate("user-1", "u@example.com")
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	r.GET("/me", JWTAuth(jwt), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey)+"|"+c.GetString(CtxEmailKey))
	})

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer " + token, http.StatusOK, "user-1|u@example.com"},
		{"lowercase scheme", "bearer " + token, http.StatusOK, "user-1|u@example.com"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"no scheme", token, http.StatusUnauthorized, ""},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			if tc.body != "" && w.Body.String() != tc.body {
				t.Fatalf("body = %q, want %q", w.Body.String(), tc.body)
			}
		})
	}
}

func TestRequireConfirmedEmailFromBody(t *testing.T) {
	denied := errors.New("denied")
	gate := &fakeGate{checkFn: func(_ context.Context, email string) error {
		if email == "ok@example.com" {
			return nil
		}
		return denied
	}}
	var handled error
	onError := func(c *gin.Context, err error) {
		handled = err
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	}

	r := gin.New()
	r.POST("/login", RequireConfirmedEmail(gate, EmailFromJSONBody, onError), func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, body.Password)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ok@example.com","password":"p"}`)))
	if w.Code != http.StatusOK || w.Body.String() != "p" {
		t.Fatalf("allowed request: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"no@example.com","password":"p"}`)))
	if w.Code != http.StatusUnauthorized || !errors.Is(handled, denied) {
		t.Fatalf("denied request: %d %v", w.Code, handled)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{not json`)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed body: %d", w.Code)
	}
	if len(gate.seen) != 2 {
		t.Fatalf("gate called %d times, want 2", len(gate.seen))
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.String() == "" || w.Header().Get(HeaderRequestID) != w.Body.String() {
		t.Fatalf("request id not set/echoed: %q %q", w.Body.String(), w.Header().Get(HeaderRequestID))
	}

	const incoming = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != incoming {
		t.Fatalf("incoming id not reused: %q", w.Body.String())
	}
}

func TestRealIP(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, ClientIP(c)) })

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "198.51.100.2", "X-Forwarded-For": "203.0.113.7"}, "198.51.100.2"},
		{"garbage header skipped", map[string]string{"X-Real-IP": "nope", "X-Forwarded-For": "203.0.113.9"}, "203.0.113.9"},
		{"fallback", nil, "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Body.String() != tc.want {
				t.Fatalf("real ip = %q, want %q", w.Body.String(), tc.want)
			}
		})
	}
}
