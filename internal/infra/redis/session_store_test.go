package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "tok-1", "u1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("session:tok-1") {
		t.Fatal("expected redis key to be set")
	}

	userID, ok, err := store.Get(ctx, "tok-1")
	if err != nil || !ok || userID != "u1" {
		t.Fatalf("get: ok=%v err=%v userID=%q", ok, err, userID)
	}

	if err := store.Delete(ctx, "tok-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "tok-1"); ok {
		t.Fatal("expected token removed")
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	_ = store.Put(ctx, "tok-1", "u1")
	mr.FastForward(2 * time.Minute)

	if _, ok, _ := store.Get(ctx, "tok-1"); ok {
		t.Fatal("expected expired token to be absent")
	}
}
