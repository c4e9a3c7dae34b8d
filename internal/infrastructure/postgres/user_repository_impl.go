package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	"github.com/oksasatya/go-identity-service/internal/domain/repository"
)

// uniqueViolation is the SQLSTATE Postgres reports for a unique index conflict.
const uniqueViolation = "23505"

const selectUser = `
	SELECT id, email, password_hash, first_name, last_name, address, phone, post_code, locale,
	       email_confirmed, COALESCE(verification_code, ''), COALESCE(social_id, ''), created_at, updated_at
	FROM users
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	u.Email = entity.NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, address, phone, post_code, locale,
		                   email_confirmed, verification_code, social_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''), $12, $12)
		RETURNING id, updated_at
	`, u.Email, u.HashedPassword, u.FirstName, u.LastName, u.Address, u.Phone, u.PostCode, u.Locale,
		u.EmailConfirmed, u.VerificationCode, u.SocialID, u.CreatedAt)

	if err := row.Scan(&u.ID, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	u := &entity.User{}
	row := r.pool.QueryRow(ctx, selectUser+`WHERE lower(email) = $1`, entity.NormalizeEmail(email))

	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.FirstName, &u.LastName, &u.Address,
		&u.Phone, &u.PostCode, &u.Locale, &u.EmailConfirmed, &u.VerificationCode, &u.SocialID,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) UpdateByID(ctx context.Context, id string, upd entity.UserUpdate) error {
	if upd.IsEmpty() {
		return nil
	}
	// COALESCE keeps the current value for fields the caller left nil.
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash     = COALESCE($1, password_hash),
		    locale            = COALESCE($2, locale),
		    verification_code = COALESCE($3, verification_code),
		    social_id         = COALESCE($4, social_id),
		    updated_at        = $5
		WHERE id = $6
	`, upd.HashedPassword, upd.Locale, upd.VerificationCode, upd.SocialID, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email_confirmed = TRUE, verification_code = NULL, updated_at = $1
		WHERE id = $2
	`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
