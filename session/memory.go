package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu      sync.Mutex
	users   map[string]*User
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[u.Email]; ok {
		return ErrEmailTaken
	}
	m.users[u.ID] = u.Clone()
	m.byEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.users[id].Clone(), nil
}

func (m *MemoryStore) Append(_ context.Context, userID string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if u.HasSession(s.TokenID) {
		return ErrDuplicateSession
	}
	u.Sessions = append(u.Sessions, s)
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, userID, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || !u.HasSession(tokenID) {
		return false, nil
	}
	u.Sessions = removeSession(u.Sessions, tokenID)
	return true, nil
}

func (m *MemoryStore) Replace(_ context.Context, userID, oldTokenID string, next Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok || !u.HasSession(oldTokenID) {
		return ErrSessionNotFound
	}
	if u.HasSession(next.TokenID) {
		return ErrDuplicateSession
	}
	u.Sessions = append(removeSession(u.Sessions, oldTokenID), next)
	return nil
}

func (m *MemoryStore) Contains(_ context.Context, userID, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	return u.HasSession(tokenID), nil
}

func (m *MemoryStore) Prune(_ context.Context, userID string, createdBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return 0, nil
	}
	kept := u.Sessions[:0]
	for _, s := range u.Sessions {
		if s.CreatedAt.Before(createdBefore) {
			continue
		}
		kept = append(kept, s)
	}
	removed := len(u.Sessions) - len(kept)
	u.Sessions = kept
	return removed, nil
}

func (m *MemoryStore) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func removeSession(list []Session, tokenID string) []Session {
	out := list[:0]
	for _, s := range list {
		if s.TokenID != tokenID {
			out = append(out, s)
		}
	}
	return out
}
