// Package facebook verifies Facebook access tokens against the Graph API.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/oksasatya/go-identity-service/internal/application"
)

const (
	DefaultGraphURL = "https://graph.facebook.com"
	DefaultVersion  = "v19.0"
)

// Verifier calls GET /{version}/me with the user's access token as a bearer token.
type Verifier struct {
	GraphURL string
	Version  string
	// HTTPClient supplies the base transport wrapped by the oauth2 client.
	HTTPClient *http.Client
	Timeout    time.Duration // per call, 0 means the caller's deadline only
}

func NewVerifier(graphURL, version string, timeout time.Duration) *Verifier {
	if graphURL == "" {
		graphURL = DefaultGraphURL
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Verifier{GraphURL: strings.TrimRight(graphURL, "/"), Version: version, Timeout: timeout}
}

type meResponse struct {
	ID    string                      `json:"id"`
	Name  string                      `json:"name"`
	Email string                      `json:"email"`
	Error *application.SocialAPIError `json:"error"`
}

// Exchange returns the identity behind token. Graph API error objects come back
// as *application.SocialAPIError.
func (v *Verifier) Exchange(ctx context.Context, token string) (application.SocialIdentity, error) {
	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	base := v.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))

	q := url.Values{"fields": {"id,name,email"}}
	endpoint := fmt.Sprintf("%s/%s/me?%s", v.GraphURL, v.Version, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return application.SocialIdentity{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return application.SocialIdentity{}, fmt.Errorf("graph api request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return application.SocialIdentity{}, fmt.Errorf("graph api read: %w", err)
	}
	var me meResponse
	if err := json.Unmarshal(body, &me); err != nil {
		return application.SocialIdentity{}, fmt.Errorf("graph api decode (status %d): %w", resp.StatusCode, err)
	}
	if me.Error != nil {
		return application.SocialIdentity{}, me.Error
	}
	if resp.StatusCode != http.StatusOK {
		return application.SocialIdentity{}, fmt.Errorf("graph api: unexpected status %d", resp.StatusCode)
	}
	return application.SocialIdentity{ID: me.ID, Email: me.Email, Name: me.Name}, nil
}

var _ application.SocialVerifier = (*Verifier)(nil)
