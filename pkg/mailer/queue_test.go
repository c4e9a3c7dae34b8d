package mailer

import (
	"context"
	"errors"
	"testing"
)

type publisherFunc func(ctx context.Context, body any) error

func (f publisherFunc) PublishJSON(ctx context.Context, body any) error { return f(ctx, body) }

func TestQueueNotifierPublishesRenderedJob(t *testing.T) {
	var got EmailJob
	q := NewQueueNotifier(publisherFunc(func(_ context.Context, body any) error {
		job, ok := body.(EmailJob)
		if !ok {
			t.Fatalf("unexpected body type %T", body)
		}
		got = job
		return nil
	}))
	msg := Message{To: "a@b.com", Subject: "Email verification", Text: "1234", HTML: "<p>1234</p>"}
	if err := q.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != msg.To || got.Subject != msg.Subject || got.HTML != msg.HTML || got.Template != "" {
		t.Fatalf("unexpected job: %+v", got)
	}
}

func TestQueueNotifierPropagatesPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	q := NewQueueNotifier(publisherFunc(func(context.Context, any) error { return boom }))
	if err := q.Send(context.Background(), Message{To: "a@b.com"}); !errors.Is(err, boom) {
		t.Fatalf("expected publish error, got %v", err)
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	if err := (LogNotifier{}).Send(context.Background(), Message{To: "a@b.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
