package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/mailer"
)

// Hasher is implemented by *helpers.PasswordHasher.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, encoded string) (helpers.PasswordCheck, error)
}

// SocialIdentity is what a social provider vouches for. Email and Name may be empty.
type SocialIdentity struct {
	ID    string
	Email string
	Name  string
}

// SocialVerifier exchanges a provider access token for the identity behind it.
// A provider rejection is reported as *SocialAPIError; anything else is a
// transport failure.
type SocialVerifier interface {
	Exchange(ctx context.Context, token string) (SocialIdentity, error)
}

// SocialAPIError is an error object returned by the social provider.
type SocialAPIError struct {
	Code    int    `json:"code"`
	Subcode int    `json:"error_subcode,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func (e *SocialAPIError) Error() string {
	return fmt.Sprintf("social provider error %d/%d: %s", e.Code, e.Subcode, e.Message)
}

// SubcodeSessionExpired is the Graph API subcode for an expired access token.
const SubcodeSessionExpired = 463

// Notifier delivers a rendered email.
type Notifier interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// ConfirmedCache remembers confirmed addresses. It is optional everywhere it is used.
type ConfirmedCache interface {
	IsConfirmed(ctx context.Context, email string) (bool, error)
	MarkConfirmed(ctx context.Context, email string) error
}

// withTimeout bounds a single adapter call. d <= 0 means no extra bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
