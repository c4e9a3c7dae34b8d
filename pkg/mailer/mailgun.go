package mailer

import (
	"context"
	"errors"
	"net/http"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Mailgun sends messages through the Mailgun HTTP API.
type Mailgun struct {
	Domain  string
	APIKey  string
	Sender  string
	APIBase string // optional, e.g. mg.APIBaseEU
	Timeout time.Duration
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{Domain: domain, APIKey: apiKey, Sender: sender, Timeout: 10 * time.Second}
}

// Send delivers m. HTML is optional; Text is used as the plain part.
func (m *Mailgun) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("mailgun: empty recipient")
	}
	client := mg.NewMailgun(m.Domain, m.APIKey)
	if m.APIBase != "" {
		client.SetAPIBase(m.APIBase)
	}
	out := client.NewMessage(m.Sender, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		out.SetHtml(msg.HTML)
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, _, err := client.Send(c, out); err != nil {
		return classifyMailgun(err)
	}
	return nil
}

// classifyMailgun marks client-side rejections (bad recipient, invalid
// payload) as permanent. Auth, timeout and throttling responses stay
// retryable since they clear without touching the job.
func classifyMailgun(err error) error {
	var ue *mg.UnexpectedResponseError
	if !errors.As(err, &ue) || ue.Actual < 400 || ue.Actual >= 500 {
		return err
	}
	switch ue.Actual {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusRequestTimeout, http.StatusTooManyRequests:
		return err
	}
	return &PermanentError{Err: err}
}
