package test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/ffauth/session"
)

func TestRedisKeyLayout(t *testing.T) {
	mr, store := newRedis(t)
	engine := newEngine(t, store)

	res := register(t, engine, "alice@example.com")
	id := res.User.ID

	if !mr.Exists(keyPrefix + ":u:{" + id + "}") {
		t.Fatal("user hash missing")
	}
	got, err := mr.Get(keyPrefix + ":e:alice@example.com")
	if err != nil || got != id {
		t.Fatalf("email index = %q (%v), want %q", got, err, id)
	}
	members, err := mr.ZMembers(keyPrefix + ":s:{" + id + "}")
	if err != nil || len(members) != 1 {
		t.Fatalf("expected one session member, got %v (%v)", members, err)
	}

	engine.Logout(context.Background(), res.RefreshToken)
	if mr.Exists(keyPrefix+":s:{"+id+"}") {
		remaining, _ := mr.ZMembers(keyPrefix + ":s:{" + id + "}")
		if len(remaining) != 0 {
			t.Fatalf("expected no sessions after logout, got %v", remaining)
		}
	}
}

func TestRedisUserIsolation(t *testing.T) {
	_, store := newRedis(t)
	ctx := context.Background()

	a := &session.User{ID: "user-a", Email: "a@example.com", Name: "A"}
	b := &session.User{ID: "user-b", Email: "b@example.com", Name: "B"}
	for _, u := range []*session.User{a, b} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser(%s): %v", u.ID, err)
		}
	}

	shared := session.Session{TokenID: "shared-sid", CreatedAt: time.Now()}
	if err := store.Append(ctx, a.ID, shared); err != nil {
		t.Fatalf("Append a: %v", err)
	}
	if err := store.Append(ctx, b.ID, shared); err != nil {
		t.Fatalf("Append b: %v", err)
	}

	if _, err := store.Remove(ctx, a.ID, shared.TokenID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if ok, err := store.Contains(ctx, a.ID, shared.TokenID); err != nil || ok {
		t.Fatalf("user a still holds session: ok=%v err=%v", ok, err)
	}
	if ok, err := store.Contains(ctx, b.ID, shared.TokenID); err != nil || !ok {
		t.Fatalf("user b lost its session: ok=%v err=%v", ok, err)
	}
}
