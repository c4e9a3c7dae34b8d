package application

import (
	"context"
	"sync"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	"github.com/oksasatya/go-identity-service/internal/domain/repository"
	"github.com/oksasatya/go-identity-service/internal/infrastructure/memory"
	"github.com/oksasatya/go-identity-service/pkg/helpers"
	"github.com/oksasatya/go-identity-service/pkg/mailer"
)

var testArgon2 = helpers.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8}

func newTestHasher() *helpers.PasswordHasher {
	return helpers.NewPasswordHasher(testArgon2, 4)
}

// spyRepo wraps the memory store, counts writes and lets a test override single calls.
type spyRepo struct {
	*memory.UserRepository

	mu      sync.Mutex
	writes  int
	updates []entity.UserUpdate

	findFn   func(ctx context.Context, email string) (*entity.User, error)
	insertFn func(ctx context.Context, u *entity.User) error
	updateFn func(ctx context.Context, id string, upd entity.UserUpdate) error
}

func newSpyRepo() *spyRepo {
	return &spyRepo{UserRepository: memory.NewUserRepository()}
}

func (r *spyRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	if r.findFn != nil {
		return r.findFn(ctx, email)
	}
	return r.UserRepository.FindByEmail(ctx, email)
}

func (r *spyRepo) Insert(ctx context.Context, u *entity.User) error {
	r.count(nil)
	if r.insertFn != nil {
		return r.insertFn(ctx, u)
	}
	return r.UserRepository.Insert(ctx, u)
}

func (r *spyRepo) UpdateByID(ctx context.Context, id string, upd entity.UserUpdate) error {
	r.count(&upd)
	if r.updateFn != nil {
		return r.updateFn(ctx, id, upd)
	}
	return r.UserRepository.UpdateByID(ctx, id, upd)
}

func (r *spyRepo) ConfirmEmail(ctx context.Context, id string) error {
	r.count(nil)
	return r.UserRepository.ConfirmEmail(ctx, id)
}

func (r *spyRepo) count(upd *entity.UserUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if upd != nil {
		r.updates = append(r.updates, *upd)
	}
}

func (r *spyRepo) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// seed inserts u directly into the backing store without counting a write.
func (r *spyRepo) seed(u *entity.User) *entity.User {
	if err := r.UserRepository.Insert(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

var _ repository.UserRepository = (*spyRepo)(nil)

type fakeVerifier struct {
	exchangeFn func(ctx context.Context, token string) (SocialIdentity, error)
}

func (f *fakeVerifier) Exchange(ctx context.Context, token string) (SocialIdentity, error) {
	return f.exchangeFn(ctx, token)
}

func identityVerifier(id SocialIdentity) *fakeVerifier {
	return &fakeVerifier{exchangeFn: func(context.Context, string) (SocialIdentity, error) { return id, nil }}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeCache struct {
	mu        sync.Mutex
	confirmed map[string]bool
	err       error
}

func newFakeCache() *fakeCache { return &fakeCache{confirmed: map[string]bool{}} }

func (c *fakeCache) IsConfirmed(_ context.Context, email string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	return c.confirmed[entity.NormalizeEmail(email)], nil
}

func (c *fakeCache) MarkConfirmed(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.confirmed[entity.NormalizeEmail(email)] = true
	return nil
}
