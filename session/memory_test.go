package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/ffauth/session"
	"github.com/MrEthical07/ffauth/session/sessiontest"
)

func TestMemoryStoreSuite(t *testing.T) {
	sessiontest.Run(t, func(t *testing.T) session.Store {
		return session.NewMemoryStore()
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	u := sessiontest.NewUser("copy@example.com")
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := store.Append(ctx, u.ID, session.Session{TokenID: "s1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	got.Sessions[0].TokenID = "mutated"
	got.PasswordHash = "mutated"

	again, err := store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if again.Sessions[0].TokenID != "s1" || again.PasswordHash == "mutated" {
		t.Fatalf("expected stored user unaffected by caller mutation, got %+v", again)
	}
}

func TestNewTokenIDFormat(t *testing.T) {
	a, err := session.NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID: %v", err)
	}
	b, err := session.NewTokenID()
	if err != nil {
		t.Fatalf("NewTokenID: %v", err)
	}
	if len(a) != 22 || a == b {
		t.Fatalf("expected distinct 22-char ids, got %q and %q", a, b)
	}
}
