package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-identity-service/internal/domain/repository"
)

// AccessGate rejects requests for unknown or unconfirmed accounts. It never
// writes to the store; a confirmed hit only refreshes the cache.
type AccessGate struct {
	Users        repo.UserRepository
	Cache        ConfirmedCache // optional
	Logger       *logrus.Logger
	StoreTimeout time.Duration
}

func NewAccessGate(users repo.UserRepository, cache ConfirmedCache, logger *logrus.Logger, storeTimeout time.Duration) *AccessGate {
	return &AccessGate{Users: users, Cache: cache, Logger: logger, StoreTimeout: storeTimeout}
}

// Check returns nil when email belongs to a confirmed account,
// KindInvalidCredentials when there is no such account and
// KindEmailNotConfirmed otherwise.
func (g *AccessGate) Check(ctx context.Context, email string) error {
	const op = "gate.check"

	if g.Cache != nil {
		ok, err := g.Cache.IsConfirmed(ctx, email)
		if err != nil && g.Logger != nil {
			g.Logger.WithError(err).Debug("confirmed cache lookup failed")
		}
		if err == nil && ok {
			return nil
		}
	}

	sctx, cancel := withTimeout(ctx, g.StoreTimeout)
	defer cancel()
	u, err := g.Users.FindByEmail(sctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return newError(KindInvalidCredentials, op, nil)
		}
		return storeError(op, err)
	}
	if !u.EmailConfirmed {
		return newError(KindEmailNotConfirmed, op, nil)
	}
	if g.Cache != nil {
		_ = g.Cache.MarkConfirmed(ctx, u.Email)
	}
	return nil
}
