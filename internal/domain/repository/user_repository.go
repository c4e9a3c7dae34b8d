package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Insert when the normalized email is already taken.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
)

// UserRepository defines the persistence operations the identity services rely on.
// Implementations normalize emails and enforce email uniqueness at insert time.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Insert(ctx context.Context, u *entity.User) error
	UpdateByID(ctx context.Context, id string, upd entity.UserUpdate) error
	// ConfirmEmail sets email_confirmed and clears the verification code in one write.
	ConfirmEmail(ctx context.Context, id string) error
}
