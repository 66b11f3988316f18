package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/penline/penline/internal/domain/session"
	"github.com/penline/penline/internal/domain/user"
)

// memoryUsers is an in-memory user.Repository
type memoryUsers struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[uuid.UUID]*user.User{}}
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return user.ErrUsernameExists
		}
		if existing.Email == u.Email {
			return user.ErrEmailExists
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memoryUsers) find(match func(*user.User) bool) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.ID == id })
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.Email == user.NormalizeEmail(email) })
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.Username == user.NormalizeUsername(username) })
}

func (m *memoryUsers) List(_ context.Context) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*user.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memoryUsers) update(id uuid.UUID, fn func(*user.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *memoryUsers) UpdateStatus(_ context.Context, id uuid.UUID, status user.Status) error {
	return m.update(id, func(u *user.User) { u.Status = status })
}

func (m *memoryUsers) UpdateRole(_ context.Context, id uuid.UUID, role user.Role) error {
	return m.update(id, func(u *user.User) { u.Role = role })
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id uuid.UUID, encodedHash string) error {
	return m.update(id, func(u *user.User) { u.Password = encodedHash })
}

// memorySessions is an in-memory session.Repository keyed by user id
type memorySessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]session.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{rows: map[uuid.UUID]session.Session{}}
}

func (m *memorySessions) Upsert(_ context.Context, userID uuid.UUID, fingerprint string, createdAt, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[userID] = session.Session{
		ID:          uuid.New(),
		UserID:      userID,
		Fingerprint: fingerprint,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (m *memorySessions) FindByUserID(_ context.Context, userID uuid.UUID) (*session.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessions) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, userID)
	return nil
}

func (m *memorySessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.rows {
		if s.Expired(now) {
			delete(m.rows, id)
			n++
		}
	}
	return n, nil
}
