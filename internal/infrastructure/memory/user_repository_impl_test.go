package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/oksasatya/go-identity-service/internal/domain/entity"
	"github.com/oksasatya/go-identity-service/internal/domain/repository"
)

func TestInsertNormalizesEmailAndAssignsID(t *testing.T) {
	r := NewUserRepository()
	u := &entity.User{Email: "  Someone@Example.COM "}
	if err := r.Insert(context.Background(), u); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected id to be assigned")
	}
	if u.Email != "someone@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	got, err := r.FindByEmail(context.Background(), "SOMEONE@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("got id %q, want %q", got.ID, u.ID)
	}
}

func TestFindByEmailMissing(t *testing.T) {
	r := NewUserRepository()
	if _, err := r.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentInsertSameEmail(t *testing.T) {
	r := NewUserRepository()
	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Insert(context.Background(), &entity.User{Email: "race@example.com"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, repository.ErrDuplicateEmail):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if created != 1 || conflicts != workers-1 {
		t.Fatalf("created=%d conflicts=%d", created, conflicts)
	}
}

func TestConfirmEmailClearsCode(t *testing.T) {
	r := NewUserRepository()
	ctx := context.Background()
	u := &entity.User{Email: "a@b.com"}
	if err := r.Insert(ctx, u); err != nil {
		t.Fatalf("insert: %v", err)
	}
	code := "4321"
	if err := r.UpdateByID(ctx, u.ID, entity.UserUpdate{VerificationCode: &code}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := r.ConfirmEmail(ctx, u.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, _ := r.FindByEmail(ctx, "a@b.com")
	if !got.EmailConfirmed || got.VerificationCode != "" {
		t.Fatalf("unexpected state: confirmed=%v code=%q", got.EmailConfirmed, got.VerificationCode)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	r := NewUserRepository()
	locale := "en"
	if err := r.UpdateByID(context.Background(), "missing", entity.UserUpdate{Locale: &locale}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
