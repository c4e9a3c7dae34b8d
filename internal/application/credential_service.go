package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	repo "github.com/oksasatya/go-identity-service/internal/domain/repository"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/validation"
)

// RegisterInput is the signup payload. Only Email and Password are required.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Address   string
	Phone     string
	PostCode  string
	Locale    string
}

// CredentialService handles password signup and login.
type CredentialService struct {
	Users        repo.UserRepository
	Hasher       Hasher
	Logger       *logrus.Logger
	StoreTimeout time.Duration
	HashTimeout  time.Duration
	Now          func() time.Time
}

func NewCredentialService(users repo.UserRepository, hasher Hasher, logger *logrus.Logger, storeTimeout, hashTimeout time.Duration) *CredentialService {
	return &CredentialService{
		Users:        users,
		Hasher:       hasher,
		Logger:       logger,
		StoreTimeout: storeTimeout,
		HashTimeout:  hashTimeout,
		Now:          time.Now,
	}
}

// Register validates the input, hashes the password and inserts an unconfirmed user.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	const op = "credential.register"

	email := strings.TrimSpace(in.Email)
	if !validation.ValidEmail(email) {
		return nil, validationError(op, "email", "such email not valid")
	}
	phone := strings.TrimSpace(in.Phone)
	if phone != "" && !validation.ValidPhone(phone) {
		return nil, validationError(op, "phone", "such phone not valid")
	}
	if in.Password == "" {
		return nil, validationError(op, "password", "password is required")
	}

	hashed, err := s.hash(ctx, in.Password)
	if err != nil {
		return nil, storeError(op, err)
	}

	now := s.Now().UTC()
	u := &entity.User{
		Email:          entity.NormalizeEmail(email),
		HashedPassword: hashed,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Address:        in.Address,
		Phone:          phone,
		PostCode:       in.PostCode,
		Locale:         in.Locale,
		EmailConfirmed: false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Users.Insert(sctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, newError(KindConflict, op, err)
		}
		return nil, storeError(op, err)
	}
	s.log().WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Info("user registered")
	return u, nil
}

// Authenticate checks email and password. Unknown users, wrong passwords and
// accounts without a password all yield KindInvalidCredentials. Email
// confirmation is not checked here; AccessGate does that.
func (s *CredentialService) Authenticate(ctx context.Context, email, password, locale string) (*entity.User, error) {
	const op = "credential.authenticate"

	u, err := s.find(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindInvalidCredentials, op, nil)
		}
		return nil, storeError(op, err)
	}
	if !u.HasPassword() {
		return nil, newError(KindInvalidCredentials, op, nil)
	}

	hctx, cancel := withTimeout(ctx, s.HashTimeout)
	res, err := s.Hasher.Verify(hctx, password, u.HashedPassword)
	cancel()
	if err != nil {
		return nil, storeError(op, err)
	}
	switch res {
	case helpers.PasswordMatch:
	case helpers.PasswordMatchNeedsRehash:
		s.rehash(ctx, u, password)
	case helpers.PasswordUnrecognizedHash:
		s.log().WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email}).Error("stored password hash is not recognized")
		return nil, newError(KindUnrecognizedHash, op, nil)
	default:
		return nil, newError(KindInvalidCredentials, op, nil)
	}

	if locale != "" && locale != u.Locale {
		if err := s.update(ctx, u.ID, entity.UserUpdate{Locale: &locale}); err != nil {
			return nil, storeError(op, err)
		}
		u.Locale = locale
	}
	return u, nil
}

// rehash upgrades a stored hash after a successful login. Failures are logged
// and do not affect the login.
func (s *CredentialService) rehash(ctx context.Context, u *entity.User, password string) {
	logger := s.log().WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email})
	logger.Info("password needs rehashing")
	hashed, err := s.hash(ctx, password)
	if err != nil {
		logger.WithError(err).Warn("password rehash failed")
		return
	}
	if err := s.update(ctx, u.ID, entity.UserUpdate{HashedPassword: &hashed}); err != nil {
		logger.WithError(err).Warn("persist rehashed password failed")
		return
	}
	u.HashedPassword = hashed
}

// Lookup loads the account behind a verified session. A missing account is
// KindInvalidCredentials so a stale token reveals nothing.
func (s *CredentialService) Lookup(ctx context.Context, email string) (*entity.User, error) {
	const op = "credential.lookup"
	u, err := s.find(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, newError(KindInvalidCredentials, op, nil)
		}
		return nil, storeError(op, err)
	}
	return u, nil
}

func (s *CredentialService) hash(ctx context.Context, plain string) (string, error) {
	hctx, cancel := withTimeout(ctx, s.HashTimeout)
	defer cancel()
	return s.Hasher.Hash(hctx, plain)
}

func (s *CredentialService) find(ctx context.Context, email string) (*entity.User, error) {
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return s.Users.FindByEmail(sctx, email)
}

func (s *CredentialService) update(ctx context.Context, id string, upd entity.UserUpdate) error {
	sctx, cancel := withTimeout(ctx, s.StoreTimeout)
	defer cancel()
	return s.Users.UpdateByID(sctx, id, upd)
}

func (s *CredentialService) log() *logrus.Logger {
	if s.Logger == nil {
		return discardLogger
	}
	return s.Logger
}
