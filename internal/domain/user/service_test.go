package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func validRegisterRequest() RegisterRequest {
	return RegisterRequest{
		Name:     "Test User",
		Username: "testuser",
		Email:    "test@example.com",
		Password: "securepassword123",
		Age:      20,
		Bio:      "hello",
	}
}

func TestRegisterRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *RegisterRequest)
		wantErr error
	}{
		{"valid", func(r *RegisterRequest) {}, nil},
		{"missing name", func(r *RegisterRequest) { r.Name = "   " }, ErrNameRequired},
		{"short username", func(r *RegisterRequest) { r.Username = "abc" }, ErrUsernameTooShort},
		{"username padded to length", func(r *RegisterRequest) { r.Username = "  ab  " }, ErrUsernameTooShort},
		{"invalid email", func(r *RegisterRequest) { r.Email = "not-an-email" }, ErrInvalidEmail},
		{"email without domain dot", func(r *RegisterRequest) { r.Email = "a@localhost" }, ErrInvalidEmail},
		{"email with display name", func(r *RegisterRequest) { r.Email = "Bob <bob@example.com>" }, ErrInvalidEmail},
		{"missing password", func(r *RegisterRequest) { r.Password = "" }, ErrPasswordRequired},
		{"too young", func(r *RegisterRequest) { r.Age = 14 }, ErrTooYoung},
		{"exactly min age", func(r *RegisterRequest) { r.Age = MinAge }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegisterRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("successful registration", func(t *testing.T) {
		svc := NewService(newMemoryRepository())
		req := validRegisterRequest()
		req.Username = "  TestUser "
		req.Email = "Test@Example.com"

		u, err := svc.Register(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, u)

		assert.Equal(t, "testuser", u.Username)
		assert.Equal(t, "test@example.com", u.Email)
		assert.Equal(t, RoleUser, u.Role)
		assert.Equal(t, StatusActive, u.Status)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.NotEqual(t, req.Password, u.Password, "password should be hashed")
		assert.True(t, svc.VerifyPassword(u, req.Password))
		assert.False(t, svc.VerifyPassword(u, "wrongpassword"))
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc := NewService(newMemoryRepository())
		_, err := svc.Register(ctx, validRegisterRequest())
		require.NoError(t, err)

		req := validRegisterRequest()
		req.Username = "otheruser"
		req.Email = "TEST@example.com"
		u, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.Nil(t, u)
	})

	t.Run("duplicate username", func(t *testing.T) {
		svc := NewService(newMemoryRepository())
		_, err := svc.Register(ctx, validRegisterRequest())
		require.NoError(t, err)

		req := validRegisterRequest()
		req.Username = "TESTUSER"
		req.Email = "other@example.com"
		u, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, ErrUsernameExists)
		assert.Nil(t, u)
	})

	t.Run("validation failure creates nothing", func(t *testing.T) {
		repo := newMemoryRepository()
		svc := NewService(repo)
		req := validRegisterRequest()
		req.Age = 3

		_, err := svc.Register(ctx, req)
		assert.ErrorIs(t, err, ErrTooYoung)
		users, _ := repo.List(ctx)
		assert.Empty(t, users)
	})
}

func seedUsers(t *testing.T, svc Service, names ...string) []*User {
	t.Helper()
	users := make([]*User, 0, len(names))
	for _, name := range names {
		req := validRegisterRequest()
		req.Username = name
		req.Email = name + "@example.com"
		u, err := svc.Register(context.Background(), req)
		require.NoError(t, err)
		users = append(users, u)
	}
	return users
}

func TestService_ListExcept(t *testing.T) {
	svc := NewService(newMemoryRepository())
	users := seedUsers(t, svc, "alice", "bobby", "carol")

	list, err := svc.ListExcept(context.Background(), users[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, u := range list {
		assert.NotEqual(t, users[0].ID, u.ID)
	}
}

func TestService_SetStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepository())
	users := seedUsers(t, svc, "admin", "target")
	admin, target := users[0], users[1]

	t.Run("ban another user", func(t *testing.T) {
		u, err := svc.SetStatus(ctx, admin.ID, target.ID, StatusBanned)
		require.NoError(t, err)
		assert.Equal(t, StatusBanned, u.Status)
		assert.True(t, u.IsBanned())
	})

	t.Run("cannot change own status", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, admin.ID, admin.ID, StatusBanned)
		assert.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, admin.ID, target.ID, Status("frozen"))
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.SetStatus(ctx, admin.ID, uuid.New(), StatusActive)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestService_SetRole(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryRepository())
	users := seedUsers(t, svc, "admin", "target")
	admin, target := users[0], users[1]

	u, err := svc.SetRole(ctx, admin.ID, target.ID, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, u.Role)

	_, err = svc.SetRole(ctx, admin.ID, admin.ID, RoleUser)
	assert.ErrorIs(t, err, ErrSelfModification)

	_, err = svc.SetRole(ctx, admin.ID, target.ID, Role("ROOT"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestService_UpgradePassword(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepository()
	svc := NewService(repo)

	legacy, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &User{Username: "legacy", Email: "legacy@example.com", Name: "Legacy", Password: string(legacy)}
	require.NoError(t, repo.Create(ctx, u))

	require.True(t, svc.VerifyPassword(u, "oldpassword"))
	require.NoError(t, svc.UpgradePassword(ctx, u, "oldpassword"))

	stored, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, NeedsRehash(stored.Password))
	assert.True(t, VerifyPassword("oldpassword", stored.Password))

	// Already current: nothing to do
	before := stored.Password
	require.NoError(t, svc.UpgradePassword(ctx, stored, "oldpassword"))
	assert.Equal(t, before, stored.Password)
}
