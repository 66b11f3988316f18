package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepository is an in-memory Repository for service tests
type memoryRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{users: map[uuid.UUID]*User{}}
}

func (m *memoryRepository) Create(_ context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailExists
		}
		if u.Username == user.Username {
			return ErrUsernameExists
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepository) find(match func(*User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryRepository) FindByEmail(_ context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	return m.find(func(u *User) bool { return u.Email == email })
}

func (m *memoryRepository) FindByUsername(_ context.Context, username string) (*User, error) {
	username = NormalizeUsername(username)
	return m.find(func(u *User) bool { return u.Username == username })
}

func (m *memoryRepository) List(_ context.Context) ([]*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *memoryRepository) update(id uuid.UUID, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	fn(u)
	return nil
}

func (m *memoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	return m.update(id, func(u *User) { u.Status = status })
}

func (m *memoryRepository) UpdateRole(_ context.Context, id uuid.UUID, role Role) error {
	return m.update(id, func(u *User) { u.Role = role })
}

func (m *memoryRepository) UpdatePassword(_ context.Context, id uuid.UUID, encodedHash string) error {
	return m.update(id, func(u *User) { u.Password = encodedHash })
}
