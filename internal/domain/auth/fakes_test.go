package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/penline/penline/internal/domain/session"
	"github.com/penline/penline/internal/domain/user"
)

const testSecret = "0123456789abcdef0123456789abcdef"

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
	email = user.NormalizeEmail(email)
	return m.find(func(u *user.User) bool { return u.Email == email })
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (*user.User, error) {
	username = user.NormalizeUsername(username)
	return m.find(func(u *user.User) bool { return u.Username == username })
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
	mu       sync.Mutex
	sessions map[uuid.UUID]session.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[uuid.UUID]session.Session{}}
}

func (m *memorySessions) Upsert(_ context.Context, userID uuid.UUID, fingerprint string, createdAt, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = session.Session{
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
	s, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessions) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

func (m *memorySessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *memorySessions) expire(userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[userID]
	s.ExpiresAt = time.Now().Add(-time.Minute)
	m.sessions[userID] = s
}

// testEnv wires the auth subsystem over in-memory stores
type testEnv struct {
	users    *memoryUsers
	sessions *memorySessions
	keys     *KeyStore
	codec    *TokenCodec
	userSvc  user.Service
	auth     *Service
	gate     *Gate
}

func newTestKeyStore(t *testing.T) *KeyStore {
	t.Helper()
	ks := NewKeyStore("test")
	require.NoError(t, ks.AddSecret("test", []byte(testSecret)))
	return ks
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:    newMemoryUsers(),
		sessions: newMemorySessions(),
		keys:     newTestKeyStore(t),
	}
	env.codec = NewTokenCodec(env.keys, time.Hour)
	env.userSvc = user.NewService(env.users)
	env.auth = NewService(env.userSvc, env.sessions, env.codec)
	env.gate = NewGate(env.userSvc, env.sessions, env.codec)
	return env
}

func (e *testEnv) register(t *testing.T, username, password string) *user.User {
	t.Helper()
	u, err := e.userSvc.Register(context.Background(), user.RegisterRequest{
		Name:     "Test " + username,
		Username: username,
		Email:    username + "@example.com",
		Password: password,
		Age:      30,
	})
	require.NoError(t, err)
	return u
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	res, err := e.auth.Login(context.Background(), username, password)
	require.NoError(t, err)
	return res.Token
}
