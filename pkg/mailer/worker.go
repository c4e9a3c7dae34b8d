package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/go-identity-service/pkg/mailer/templates"
)

// Sender is any transport that can deliver a rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Disposition tells the consumer what to do with a queue delivery.
type Disposition int

const (
	Ack     Disposition = iota // delivered
	Requeue                    // transient send failure
	Drop                       // undecodable job or permanent rejection
)

var errEmptyJob = errors.New("email job has no recipient or content")

// PermanentError wraps a send failure that redelivery cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent send failure: " + e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Render turns a job into a message, rendering Template when one is set.
func (j EmailJob) Render() (Message, error) {
	msg := Message{To: j.To, Subject: j.Subject, Text: j.Text, HTML: j.HTML}
	if j.Template != "" {
		s, t, h, err := templates.Render(j.Template, j.Data)
		if err != nil {
			return Message{}, fmt.Errorf("render %s: %w", j.Template, err)
		}
		msg.Subject, msg.Text, msg.HTML = s, t, h
	}
	if msg.To == "" || (msg.Text == "" && msg.HTML == "") {
		return Message{}, errEmptyJob
	}
	return msg, nil
}

// HandleDelivery decodes, renders and sends one queued job.
func HandleDelivery(ctx context.Context, body []byte, sender Sender, timeout time.Duration) (Disposition, error) {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return Drop, fmt.Errorf("decode job: %w", err)
	}
	msg, err := job.Render()
	if err != nil {
		return Drop, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := sender.Send(ctx, msg); err != nil {
		var perm *PermanentError
		if errors.As(err, &perm) {
			return Drop, fmt.Errorf("send to %s: %w", msg.To, err)
		}
		return Requeue, fmt.Errorf("send to %s: %w", msg.To, err)
	}
	return Ack, nil
}
