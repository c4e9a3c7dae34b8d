package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	repo "github.com/oksasatya/go-identity-service/internal/domain/repository"
)

// SocialOutcome tells a returning or linked login apart from a fresh account.
type SocialOutcome int

const (
	OutcomeLoggedIn SocialOutcome = iota + 1
	OutcomeCreated
)

func (o SocialOutcome) String() string {
	switch o {
	case OutcomeLoggedIn:
		return "logged_in"
	case OutcomeCreated:
		return "created"
	default:
		return "unknown"
	}
}

type SocialResult struct {
	User    *entity.User
	Outcome SocialOutcome
}

// SocialService resolves a social login to a local account.
type SocialService struct {
	Users         repo.UserRepository
	Verifier      SocialVerifier
	Logger        *logrus.Logger
	StoreTimeout  time.Duration
	SocialTimeout time.Duration
	Now           func() time.Time
}

func NewSocialService(users repo.UserRepository, verifier SocialVerifier, logger *logrus.Logger, storeTimeout, socialTimeout time.Duration) *SocialService {
	return &SocialService{
		Users:         users,
		Verifier:      verifier,
		Logger:        logger,
		StoreTimeout:  storeTimeout,
		SocialTimeout: socialTimeout,
		Now:           time.Now,
	}
}

// ResolveOrCreate exchanges token with the provider and then:
//   - logs in the user already linked to the provider id,
//   - links the provider id to an existing confirmed, unlinked account,
//   - or creates a new password-less account.
//
// An account already linked to another provider id yields
// KindSocialAlreadyLinked; the link is set once and never replaced. An
// existing unconfirmed account that is not linked yields
// KindLinkingRequiresConfirmation. Neither case writes.
func (s *SocialService) ResolveOrCreate(ctx context.Context, token, fallbackEmail, locale string) (SocialResult, error) {
	const op = "social.resolve"

	ident, err := s.exchange(ctx, token)
	if err != nil {
		return SocialResult{}, err
	}

	email := strings.TrimSpace(ident.Email)
	if email == "" {
		email = strings.TrimSpace(fallbackEmail)
	}
	if email == "" {
		return SocialResult{}, newError(KindEmailMissing, op, nil)
	}

	logger := s.log().WithFields(logrus.Fields{"email": entity.NormalizeEmail(email), "social_id": ident.ID})

	u, err := s.find(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrNotFound):
		u = nil
	default:
		return SocialResult{}, storeError(op, err)
	}

	if u != nil {
		switch {
		case u.SocialID != "" && u.SocialID == ident.ID:
			if locale != "" && locale != u.Locale {
				if err := s.update(ctx, u.ID, entity.UserUpdate{Locale: &locale}); err != nil {
					return SocialResult{}, storeError(op, err)
				}
				u.Locale = locale
			}
			logger.Debug("social login")
			return SocialResult{User: u, Outcome: OutcomeLoggedIn}, nil
		case u.SocialID != "":
			logger.WithField("user_id", u.ID).Warn("social login for an account linked to another subject")
			return SocialResult{}, newError(KindSocialAlreadyLinked, op, nil)
		case u.EmailConfirmed:
			upd := entity.UserUpdate{SocialID: &ident.ID}
			if locale != "" && locale != u.Locale {
				upd.Locale = &locale
			}
			if err := s.update(ctx, u.ID, upd); err != nil {
				return SocialResult{}, storeError(op, err)
			}
			u.SocialID = ident.ID
			if upd.Locale != nil {
				u.Locale = locale
			}
			logger.WithField("user_id", u.ID).Info("social identity linked to existing account")
			return SocialResult{User: u, Outcome: OutcomeLoggedIn}, nil
		default:
			return SocialResult{}, newError(KindLinkingRequiresConfirmation, op, nil)
		}
	}

	first, last := splitName(ident.Name)
	now := s.Now().UTC()
	nu := &entity.User{
		Email:     entity.NormalizeEmail(email),
		FirstName: first,
		LastName:  last,
		Locale:    locale,
		SocialID:  ident.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Users.Insert(sctx, nu); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return SocialResult{}, newError(KindConflict, op, err)
		}
		return SocialResult{}, storeError(op, err)
	}
	logger.WithField("user_id", nu.ID).Info("user created from social login")
	return SocialResult{User: nu, Outcome: OutcomeCreated}, nil
}

func (s *SocialService) exchange(ctx context.Context, token string) (SocialIdentity, error) {
	const op = "social.exchange"
	if strings.TrimSpace(token) == "" {
		return SocialIdentity{}, newError(KindSocialTokenInvalid, op, errors.New("empty token"))
	}

	vctx, cancel := withTimeout(ctx, s.SocialTimeout)
	defer cancel()
	ident, err := s.Verifier.Exchange(vctx, token)
	if err != nil {
		var apiErr *SocialAPIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Subcode == SubcodeSessionExpired:
			return SocialIdentity{}, newError(KindSocialTokenExpired, op, err)
		case errors.As(err, &apiErr):
			return SocialIdentity{}, newError(KindSocialTokenInvalid, op, err)
		default:
			return SocialIdentity{}, storeError(op, err)
		}
	}
	if ident.ID == "" {
		return SocialIdentity{}, newError(KindSocialTokenInvalid, op, errors.New("provider returned no subject id"))
	}
	return ident, nil
}

// splitName splits a display name at the first whitespace run.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	i := strings.IndexFunc(name, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
	if i < 0 {
		return name, ""
	}
	return name[:i], strings.TrimSpace(name[i:])
}

func (s *SocialService) find(ctx context.Context, email string) (*entity.User, error) {
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return s.Users.FindByEmail(sctx, email)
}

func (s *SocialService) update(ctx context.Context, id string, upd entity.UserUpdate) error {
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return s.Users.UpdateByID(sctx, id, upd)
}

func (s *SocialService) log() *logrus.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}
