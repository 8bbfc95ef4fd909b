// Package sessiontest holds the behavioural suite every session.Store
// implementation must pass. Backends call Run from their own tests.
package sessiontest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/ffauth/session"
	"github.com/google/uuid"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) session.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndLookup", func(t *testing.T) { testCreateAndLookup(t, newStore(t)) })
	t.Run("EmailTaken", func(t *testing.T) { testEmailTaken(t, newStore(t)) })
	t.Run("AppendOrderAndDuplicates", func(t *testing.T) { testAppend(t, newStore(t)) })
	t.Run("AppendUnknownUser", func(t *testing.T) { testAppendUnknownUser(t, newStore(t)) })
	t.Run("RemoveIdempotent", func(t *testing.T) { testRemoveIdempotent(t, newStore(t)) })
	t.Run("RemoveIsolatedPerUser", func(t *testing.T) { testIsolation(t, newStore(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, newStore(t)) })
	t.Run("ReplaceConcurrentSingleWinner", func(t *testing.T) { testReplaceRace(t, newStore(t)) })
	t.Run("Prune", func(t *testing.T) { testPrune(t, newStore(t)) })
	t.Run("UpdatePasswordHash", func(t *testing.T) { testUpdatePasswordHash(t, newStore(t)) })
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// NewUser returns a user with a random id and the given email.
func NewUser(email string) *session.User {
	return &session.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehol",
		CreatedAt:    base,
	}
}

func mustCreate(t *testing.T, store session.Store, email string) *session.User {
	t.Helper()
	u := NewUser(email)
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", email, err)
	}
	return u
}

func mustAppend(t *testing.T, store session.Store, userID, tokenID string, at time.Time) {
	t.Helper()
	if err := store.Append(context.Background(), userID, session.Session{TokenID: tokenID, CreatedAt: at}); err != nil {
		t.Fatalf("Append(%s): %v", tokenID, err)
	}
}

func tokenIDs(t *testing.T, store session.Store, userID string) []string {
	t.Helper()
	u, err := store.GetUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	ids := make([]string, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		ids = append(ids, s.TokenID)
	}
	return ids
}

func testCreateAndLookup(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "alice@example.com")

	byID, err := store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if byID.Email != u.Email || byID.Name != u.Name || byID.PasswordHash != u.PasswordHash {
		t.Fatalf("unexpected user: %+v", byID)
	}
	if !byID.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("expected createdAt %v, got %v", u.CreatedAt, byID.CreatedAt)
	}
	if len(byID.Sessions) != 0 {
		t.Fatalf("expected no sessions, got %d", len(byID.Sessions))
	}

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected id %s, got %s", u.ID, byEmail.ID)
	}

	if _, err := store.GetUserByID(ctx, uuid.NewString()); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func testEmailTaken(t *testing.T, store session.Store) {
	mustCreate(t, store, "dup@example.com")
	err := store.CreateUser(context.Background(), NewUser("dup@example.com"))
	if !errors.Is(err, session.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func testAppend(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "append@example.com")

	mustAppend(t, store, u.ID, "s1", base)
	mustAppend(t, store, u.ID, "s2", base.Add(time.Second))
	mustAppend(t, store, u.ID, "s3", base.Add(2*time.Second))

	err := store.Append(ctx, u.ID, session.Session{TokenID: "s2", CreatedAt: base.Add(3 * time.Second)})
	if !errors.Is(err, session.ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}

	ids := tokenIDs(t, store, u.ID)
	want := []string{"s1", "s2", "s3"}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	for _, id := range want {
		ok, err := store.Contains(ctx, u.ID, id)
		if err != nil || !ok {
			t.Fatalf("Contains(%s) = %v, %v", id, ok, err)
		}
	}
	if ok, err := store.Contains(ctx, u.ID, "missing"); err != nil || ok {
		t.Fatalf("Contains(missing) = %v, %v", ok, err)
	}
}

func testAppendUnknownUser(t *testing.T, store session.Store) {
	err := store.Append(context.Background(), uuid.NewString(), session.Session{TokenID: "s1", CreatedAt: base})
	if !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func testRemoveIdempotent(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "remove@example.com")
	mustAppend(t, store, u.ID, "s1", base)
	mustAppend(t, store, u.ID, "s2", base.Add(time.Second))

	for i, want := range []bool{true, false} {
		removed, err := store.Remove(ctx, u.ID, "s1")
		if err != nil {
			t.Fatalf("Remove #%d: %v", i+1, err)
		}
		if removed != want {
			t.Fatalf("Remove #%d reported removed=%v, want %v", i+1, removed, want)
		}
	}
	if removed, err := store.Remove(ctx, u.ID, "never-existed"); err != nil || removed {
		t.Fatalf("Remove(absent) = %v, %v", removed, err)
	}
	if removed, err := store.Remove(ctx, uuid.NewString(), "s1"); err != nil || removed {
		t.Fatalf("Remove(unknown user) = %v, %v", removed, err)
	}

	ids := tokenIDs(t, store, u.ID)
	if len(ids) != 1 || ids[0] != "s2" {
		t.Fatalf("expected [s2], got %v", ids)
	}
}

func testIsolation(t *testing.T, store session.Store) {
	ctx := context.Background()
	a := mustCreate(t, store, "a@example.com")
	b := mustCreate(t, store, "b@example.com")
	mustAppend(t, store, a.ID, "shared", base)
	mustAppend(t, store, b.ID, "shared", base)

	if _, err := store.Remove(ctx, a.ID, "shared"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if ok, _ := store.Contains(ctx, a.ID, "shared"); ok {
		t.Fatal("expected session removed from user A")
	}
	if ok, err := store.Contains(ctx, b.ID, "shared"); err != nil || !ok {
		t.Fatalf("expected user B session intact, got %v, %v", ok, err)
	}
}

func testReplace(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "replace@example.com")
	mustAppend(t, store, u.ID, "old", base)
	mustAppend(t, store, u.ID, "other", base.Add(time.Second))

	next := session.Session{TokenID: "new", CreatedAt: base.Add(time.Hour)}
	if err := store.Replace(ctx, u.ID, "old", next); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if ok, _ := store.Contains(ctx, u.ID, "old"); ok {
		t.Fatal("expected old session gone")
	}
	if ok, _ := store.Contains(ctx, u.ID, "new"); !ok {
		t.Fatal("expected new session present")
	}
	if ids := tokenIDs(t, store, u.ID); len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %v", ids)
	}

	err := store.Replace(ctx, u.ID, "old", session.Session{TokenID: "newer", CreatedAt: base.Add(2 * time.Hour)})
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on replaced id, got %v", err)
	}
	err = store.Replace(ctx, uuid.NewString(), "old", next)
	if !errors.Is(err, session.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for unknown user, got %v", err)
	}
	err = store.Replace(ctx, u.ID, "new", session.Session{TokenID: "other", CreatedAt: base.Add(3 * time.Hour)})
	if !errors.Is(err, session.ErrDuplicateSession) {
		t.Fatalf("expected ErrDuplicateSession, got %v", err)
	}
	if ok, _ := store.Contains(ctx, u.ID, "new"); !ok {
		t.Fatal("expected failed replace to leave the old session in place")
	}
}

func testReplaceRace(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "race@example.com")
	mustAppend(t, store, u.ID, "contended", base)

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
		start   = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, err := session.NewSession(base.Add(time.Hour))
			if err != nil {
				t.Errorf("NewSession: %v", err)
				return
			}
			<-start
			err = store.Replace(ctx, u.ID, "contended", next)
			switch {
			case err == nil:
				mu.Lock()
				winners++
				mu.Unlock()
			case errors.Is(err, session.ErrSessionNotFound):
			default:
				t.Errorf("unexpected Replace error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if ids := tokenIDs(t, store, u.ID); len(ids) != 1 || ids[0] == "contended" {
		t.Fatalf("expected exactly one fresh session, got %v", ids)
	}
}

func testPrune(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "prune@example.com")
	mustAppend(t, store, u.ID, "ancient", base.Add(-48*time.Hour))
	mustAppend(t, store, u.ID, "old", base.Add(-25*time.Hour))
	mustAppend(t, store, u.ID, "fresh", base.Add(-time.Hour))

	n, err := store.Prune(ctx, u.ID, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pruned, got %d", n)
	}
	if ids := tokenIDs(t, store, u.ID); len(ids) != 1 || ids[0] != "fresh" {
		t.Fatalf("expected [fresh], got %v", ids)
	}

	n, err = store.Prune(ctx, uuid.NewString(), base)
	if err != nil || n != 0 {
		t.Fatalf("Prune(unknown user) = %d, %v", n, err)
	}
}

func testUpdatePasswordHash(t *testing.T, store session.Store) {
	ctx := context.Background()
	u := mustCreate(t, store, "rehash@example.com")

	if err := store.UpdatePasswordHash(ctx, u.ID, "$2a$12$upgraded"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, err := store.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.PasswordHash != "$2a$12$upgraded" {
		t.Fatalf("expected upgraded hash, got %q", got.PasswordHash)
	}

	err = store.UpdatePasswordHash(ctx, uuid.NewString(), "x")
	if !errors.Is(err, session.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
