package helpers

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordCheck is the outcome of verifying a plaintext against a stored hash.
type PasswordCheck int

const (
	PasswordMismatch PasswordCheck = iota
	PasswordMatch
	// PasswordMatchNeedsRehash means the password is correct but the stored hash
	// uses an older scheme or weaker parameters than the hasher's current ones.
	PasswordMatchNeedsRehash
	// PasswordUnrecognizedHash means the stored value cannot be decoded by any known scheme.
	PasswordUnrecognizedHash
)

func (c PasswordCheck) String() string {
	switch c {
	case PasswordMatch:
		return "match"
	case PasswordMatchNeedsRehash:
		return "match_needs_rehash"
	case PasswordUnrecognizedHash:
		return "unrecognized_hash"
	default:
		return "mismatch"
	}
}

// Argon2Params are the argon2id cost parameters used for new hashes.
type Argon2Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params follows the RFC 9106 second recommended option.
var DefaultArgon2Params = Argon2Params{Time: 3, Memory: 64 * 1024, Threads: 2, KeyLen: 32, SaltLen: 16}

var errMalformedHash = errors.New("malformed argon2id hash")

// PasswordHasher hashes with argon2id and verifies argon2id and legacy bcrypt hashes.
// Hashing is CPU bound, so concurrent work is capped by a semaphore whose
// acquisition honours the caller's context.
type PasswordHasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

// NewPasswordHasher builds a hasher. maxConcurrent <= 0 defaults to GOMAXPROCS.
func NewPasswordHasher(params Argon2Params, maxConcurrent int) *PasswordHasher {
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &PasswordHasher{params: params, sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

// Hash returns the PHC-style encoding of an argon2id hash of plain.
func (h *PasswordHasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	return encodeArgon2(h.params, salt, key), nil
}

// Verify checks plain against encoded. The returned error is only non-nil when
// ctx ends before a hashing slot frees up.
func (h *PasswordHasher) Verify(ctx context.Context, plain, encoded string) (PasswordCheck, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return PasswordMismatch, err
	}
	defer h.sem.Release(1)

	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return h.verifyArgon2(plain, encoded), nil
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return verifyBcrypt(plain, encoded), nil
	default:
		return PasswordUnrecognizedHash, nil
	}
}

func (h *PasswordHasher) verifyArgon2(plain, encoded string) PasswordCheck {
	p, version, salt, key, err := decodeArgon2(encoded)
	if err != nil {
		return PasswordUnrecognizedHash
	}
	other := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(key, other) != 1 {
		return PasswordMismatch
	}
	if version != argon2.Version || p.Time < h.params.Time || p.Memory < h.params.Memory ||
		p.Threads != h.params.Threads || uint32(len(key)) < h.params.KeyLen || uint32(len(salt)) < h.params.SaltLen {
		return PasswordMatchNeedsRehash
	}
	return PasswordMatch
}

// bcrypt hashes predate the argon2id scheme; a correct password always triggers an upgrade.
func verifyBcrypt(plain, encoded string) PasswordCheck {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain))
	switch {
	case err == nil:
		return PasswordMatchNeedsRehash
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return PasswordMismatch
	default:
		return PasswordUnrecognizedHash
	}
}

func encodeArgon2(p Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

func decodeArgon2(encoded string) (p Argon2Params, version int, salt, key []byte, err error) {
	parts := strings.Split(encoded, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	if len(parts) != 6 {
		return p, 0, nil, nil, errMalformedHash
	}
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, 0, nil, nil, errMalformedHash
	}
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, 0, nil, nil, errMalformedHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return p, 0, nil, nil, errMalformedHash
	}
	if salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(salt) == 0 {
		return p, 0, nil, nil, errMalformedHash
	}
	if key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(key) == 0 {
		return p, 0, nil, nil, errMalformedHash
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, version, salt, key, nil
}
