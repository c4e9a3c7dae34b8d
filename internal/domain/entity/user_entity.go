package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the identity domain.
// HashedPassword is empty for accounts created through social login, and
// VerificationCode is empty unless an email confirmation is outstanding.
type User struct {
	ID               string
	Email            string
	HashedPassword   string
	FirstName        string
	LastName         string
	Address          string
	Phone            string
	PostCode         string
	Locale           string
	EmailConfirmed   bool
	VerificationCode string
	SocialID         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.HashedPassword != ""
}

// UserUpdate is a partial update applied by id. Nil fields are left untouched.
type UserUpdate struct {
	HashedPassword   *string
	Locale           *string
	VerificationCode *string
	SocialID         *string
}

// IsEmpty reports whether the update carries no field at all.
func (u UserUpdate) IsEmpty() bool {
	return u.HashedPassword == nil && u.Locale == nil && u.VerificationCode == nil && u.SocialID == nil
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
