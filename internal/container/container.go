// Package container builds the process-wide components once at startup and
// hands them to the router, the seed command and tests.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oksasatya/go-identity-service/config"
	"github.com/oksasatya/go-identity-service/internal/application"
	repo "github.com/oksasatya/go-identity-service/internal/domain/repository"
	"github.com/oksasatya/go-identity-service/internal/infrastructure/facebook"
	"github.com/oksasatya/go-identity-service/internal/infrastructure/memory"
	mongoinfra "github.com/oksasatya/go-identity-service/internal/infrastructure/mongo"
	pginfra "github.com/oksasatya/go-identity-service/internal/infrastructure/postgres"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/mailer"
	"github.com/oksasatya/go-identity-service/pkg/mailer/templates"
)

// Container holds the shared infrastructure and the services built on it.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool    *pgxpool.Pool
	Mongo     *mongo.Client
	Redis     *redis.Client
	RabbitPub *helpers.RabbitPublisher

	Users    repo.UserRepository
	Hasher   *helpers.PasswordHasher
	JWT      *helpers.JWTManager
	Verifier application.SocialVerifier
	Notifier application.Notifier
	Cache    application.ConfirmedCache

	Credentials  *application.CredentialService
	Social       *application.SocialService
	Verification *application.VerificationService
	Gate         *application.AccessGate

	closers []func()
}

// Build connects the configured store, cache and notifier and wires the services.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	users, err := c.openStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Users = users

	if cfg.RedisAddr != "" {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := c.Redis.Ping(pctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unavailable; confirmed-email cache disabled")
			_ = c.Redis.Close()
			c.Redis = nil
		} else {
			c.closers = append(c.closers, func() { _ = c.Redis.Close() })
			c.Cache = helpers.NewConfirmedEmailCache(c.Redis, cfg.ConfirmedCacheTTL)
		}
		cancel()
	}

	notifier, err := c.openNotifier()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Notifier = notifier

	c.Hasher = helpers.NewPasswordHasher(helpers.Argon2Params{
		Time:    uint32(cfg.Argon2Time),
		Memory:  uint32(cfg.Argon2MemoryKiB),
		Threads: uint8(cfg.Argon2Threads),
		KeyLen:  helpers.DefaultArgon2Params.KeyLen,
		SaltLen: helpers.DefaultArgon2Params.SaltLen,
	}, cfg.HashConcurrency)
	c.JWT = helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL)
	c.Verifier = facebook.NewVerifier(cfg.FacebookGraphURL, cfg.FacebookVersion, cfg.SocialTimeout)

	c.Wire()
	return c, nil
}

// Wire (re)builds the services from the current adapters. Tests call it after
// swapping Users, Verifier or Notifier.
func (c *Container) Wire() {
	cfg := c.Config
	c.Credentials = application.NewCredentialService(c.Users, c.Hasher, c.Logger, cfg.StoreTimeout, cfg.HashTimeout)
	c.Social = application.NewSocialService(c.Users, c.Verifier, c.Logger, cfg.StoreTimeout, cfg.SocialTimeout)
	c.Verification = application.NewVerificationService(c.Users, c.Notifier, c.Cache, c.Brand(), c.Logger, cfg.StoreTimeout, cfg.MailTimeout)
	c.Gate = application.NewAccessGate(c.Users, c.Cache, c.Logger, cfg.StoreTimeout)
}

// Brand is the company block rendered into emails.
func (c *Container) Brand() templates.Brand {
	return templates.Brand{
		AppName:        c.Config.AppName,
		CompanyName:    c.Config.CompanyName,
		CompanyAddress: c.Config.CompanyAddress,
		LogoURL:        c.Config.LogoURL,
		SupportURL:     c.Config.SupportURL,
	}
}

func (c *Container) openStore(ctx context.Context) (repo.UserRepository, error) {
	cfg := c.Config
	switch cfg.StoreDriver {
	case "postgres":
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
			PingTimeout: cfg.StoreTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		c.PGPool = pool
		c.closers = append(c.closers, pool.Close)
		return pginfra.NewUserRepository(pool), nil
	case "mongo":
		client, err := mongoinfra.Connect(ctx, cfg.MongoURI, cfg.StoreTimeout)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		c.Mongo = client
		c.closers = append(c.closers, func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		})
		users := mongoinfra.NewUserRepository(client.Database(cfg.MongoDB))
		ictx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		if err := users.EnsureIndexes(ictx); err != nil {
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return users, nil
	case "memory":
		c.Logger.Warn("using in-memory user store; data is lost on restart")
		return memory.NewUserRepository(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func (c *Container) openNotifier() (application.Notifier, error) {
	cfg := c.Config
	switch kind := cfg.NotifierKind(); kind {
	case "mailgun":
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		mg.APIBase = cfg.MailgunAPIBase
		mg.Timeout = cfg.MailTimeout
		return mg, nil
	case "queue":
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		c.RabbitPub = pub
		c.closers = append(c.closers, pub.Close)
		return mailer.NewQueueNotifier(pub), nil
	case "log":
		return mailer.LogNotifier{Logger: c.Logger}, nil
	default:
		return nil, fmt.Errorf("unknown NOTIFIER %q", kind)
	}
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
