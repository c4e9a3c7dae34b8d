package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Publisher is the subset of helpers.RabbitPublisher the queue notifier needs.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueNotifier hands rendered messages to the email worker over RabbitMQ.
type QueueNotifier struct {
	Pub Publisher
}

func NewQueueNotifier(pub Publisher) *QueueNotifier {
	return &QueueNotifier{Pub: pub}
}

func (q *QueueNotifier) Send(ctx context.Context, msg Message) error {
	return q.Pub.PublishJSON(ctx, JobFromMessage(msg))
}

// LogNotifier only logs outgoing mail. Used when MAIL_SEND_ENABLED=false.
type LogNotifier struct {
	Logger *logrus.Logger
}

func (l LogNotifier) Send(_ context.Context, msg Message) error {
	if l.Logger != nil {
		l.Logger.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("mail sending disabled; message dropped")
	}
	return nil
}
