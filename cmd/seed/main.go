package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-identity-service/config"
	"github.com/oksasatya/go-identity-service/internal/application"
	"github.com/oksasatya/go-identity-service/internal/container"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Seeds a confirmed demo account through the configured store.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.MailSendEnabled = false // never mail from the seeder
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := container.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to build application")
	}
	defer c.Close()

	email := getenv("SEED_EMAIL", "demo@example.com")
	password := getenv("SEED_PASSWORD", "password123")

	u, err := c.Credentials.Register(ctx, application.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Demo",
		LastName:  "User",
		Locale:    "en",
	})
	switch {
	case err == nil:
		fmt.Printf("seeded user: id=%s email=%s password=%s\n", u.ID, u.Email, password)
	case errors.Is(err, application.ErrConflict):
		if u, err = c.Users.FindByEmail(ctx, email); err != nil {
			logger.WithError(err).Fatal("failed to load existing user")
		}
		fmt.Printf("user already exists: id=%s email=%s\n", u.ID, u.Email)
	default:
		logger.WithError(err).Fatal("failed to seed user")
	}

	if !u.EmailConfirmed {
		if err := c.Users.ConfirmEmail(ctx, u.ID); err != nil {
			logger.WithError(err).Fatal("failed to confirm email")
		}
		if c.Cache != nil {
			_ = c.Cache.MarkConfirmed(ctx, u.Email)
		}
	}
	fmt.Println("email confirmed")
}
