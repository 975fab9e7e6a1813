package memory

import (
	"context"
	"testing"

	"race-quiz-service/internal/domain"
)

func TestUserStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore()

	if n, _ := store.Count(ctx); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}

	_ = store.Create(ctx, domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleAdmin})
	_ = store.Create(ctx, domain.User{ID: "u2", Email: "b@example.com", Role: domain.RoleParticipant})

	if n, _ := store.Count(ctx); n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}

	user, ok, err := store.GetByEmail(ctx, "b@example.com")
	if err != nil || !ok || user.ID != "u2" {
		t.Fatalf("get by email: ok=%v err=%v user=%+v", ok, err, user)
	}
	if _, ok, _ := store.GetByEmail(ctx, "nobody@example.com"); ok {
		t.Fatal("unknown email must report absent")
	}

	if err := store.SetRole(ctx, "u2", domain.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	promoted, _ := store.Get(ctx, "u2")
	if promoted.Role != domain.RoleAdmin {
		t.Fatalf("expected admin, got %s", promoted.Role)
	}

	users, _ := store.List(ctx)
	if len(users) != 2 || users[0].ID != "u1" {
		t.Fatalf("expected stable listing order, got %+v", users)
	}
}
