// Package memory holds a process-local UserRepository used by tests and by
// STORE_DRIVER=memory for local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	"github.com/oksasatya/go-identity-service/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := entity.NormalizeEmail(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[email]; taken {
		return repository.ErrDuplicateEmail
	}
	u.ID = uuid.NewString()
	u.Email = email
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, upd entity.UserUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if upd.HashedPassword != nil {
		u.HashedPassword = *upd.HashedPassword
	}
	if upd.Locale != nil {
		u.Locale = *upd.Locale
	}
	if upd.VerificationCode != nil {
		u.VerificationCode = *upd.VerificationCode
	}
	if upd.SocialID != nil {
		u.SocialID = *upd.SocialID
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.EmailConfirmed = true
	u.VerificationCode = ""
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

var _ repository.UserRepository = (*UserRepository)(nil)
