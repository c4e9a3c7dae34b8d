package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/config"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/mailer"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env, cfg.LogLevel)
	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
		logger.Fatal("Mailgun not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch between workers
	if err := ch.Qos(16, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareEmailQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	mg.APIBase = cfg.MailgunAPIBase
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			entry := logger.WithFields(logrus.Fields{"delivery_tag": msg.DeliveryTag, "message_id": msg.MessageId})
			if msg.Type != "" && msg.Type != helpers.EmailJobType {
				entry.WithField("type", msg.Type).Error("unexpected message type dropped")
				_ = msg.Nack(false, false)
				continue
			}
			disp, err := mailer.HandleDelivery(ctx, msg.Body, mg, cfg.MailTimeout)
			switch disp {
			case mailer.Ack:
				entry.Debug("email sent")
				_ = msg.Ack(false)
			case mailer.Requeue:
				entry.WithError(err).Warn("send failed, requeueing")
				_ = msg.Nack(false, true)
			case mailer.Drop:
				entry.WithError(err).Error("undeliverable job dropped")
				_ = msg.Nack(false, false)
			}
		}
	}()

	logger.WithFields(logrus.Fields{"queue": cfg.RabbitMQEmailQueue}).Info("email worker listening")
	<-stop
	logger.Info("shutting down...")
	cancel()
	_ = ch.Close() // ends the delivery channel
	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
	}
}
