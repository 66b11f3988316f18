package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

const (
	// MinUsernameLength is the shortest accepted username after normalization
	MinUsernameLength = 4
	// MinAge is the youngest accepted registrant
	MinAge = 15
)

var (
	// ErrUserNotFound is returned when no user matches the lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when trying to register with an email that already exists
	ErrEmailExists = errors.New("email already exists")
	// ErrUsernameExists is returned when trying to register with a username that already exists
	ErrUsernameExists = errors.New("username already exists")
	// ErrNameRequired is returned when trying to register without a display name
	ErrNameRequired = errors.New("name is required")
	// ErrUsernameTooShort is returned when the username is shorter than MinUsernameLength
	ErrUsernameTooShort = fmt.Errorf("username must be at least %d characters", MinUsernameLength)
	// ErrInvalidEmail is returned when the email address cannot be parsed
	ErrInvalidEmail = errors.New("email is invalid")
	// ErrPasswordRequired is returned when trying to register with an empty password
	ErrPasswordRequired = errors.New("password is required")
	// ErrTooYoung is returned when the registrant is younger than MinAge
	ErrTooYoung = fmt.Errorf("you must be at least %d years old", MinAge)
	// ErrSelfModification is returned when an admin tries to change their own status or role
	ErrSelfModification = errors.New("you cannot change your own account")
)

// RegisterRequest represents the input for user registration
type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Bio      string `json:"bio"`
}

// Validate checks the registration rules and returns the first violation
func (r *RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrNameRequired
	}
	if len(NormalizeUsername(r.Username)) < MinUsernameLength {
		return ErrUsernameTooShort
	}
	if !validEmail(r.Email) {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrPasswordRequired
	}
	if r.Age < MinAge {
		return ErrTooYoung
	}
	return nil
}

// Service interface for user operations
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListExcept(ctx context.Context, exclude uuid.UUID) ([]*User, error)
	SetStatus(ctx context.Context, actorID, targetID uuid.UUID, status Status) (*User, error)
	SetRole(ctx context.Context, actorID, targetID uuid.UUID, role Role) (*User, error)
	UpgradePassword(ctx context.Context, u *User, password string) error
	VerifyPassword(u *User, password string) bool
}

// service struct for user operations
type service struct {
	repo Repository
}

// NewService creates a new user service
func NewService(repo Repository) Service {
	return &service{repo}
}

// Register validates the request and creates an active USER account
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	username := NormalizeUsername(req.Username)
	email := NormalizeEmail(req.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Username: username,
		Email:    email,
		Name:     strings.TrimSpace(req.Name),
		Password: hashedPassword,
		Role:     RoleUser,
		Status:   StatusActive,
		Bio:      strings.TrimSpace(req.Bio),
		Age:      req.Age,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// GetByID returns the user with the given id
func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByUsername returns the user with the given username, normalizing it first
func (s *service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// ListExcept returns all users other than exclude
func (s *service) ListExcept(ctx context.Context, exclude uuid.UUID) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*User, 0, len(users))
	for _, u := range users {
		if u.ID != exclude {
			result = append(result, u)
		}
	}
	return result, nil
}

// SetStatus changes another user's status and returns the updated row
func (s *service) SetStatus(ctx context.Context, actorID, targetID uuid.UUID, status Status) (*User, error) {
	if actorID == targetID {
		return nil, ErrSelfModification
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.repo.UpdateStatus(ctx, targetID, status); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, targetID)
}

// SetRole changes another user's role and returns the updated row
func (s *service) SetRole(ctx context.Context, actorID, targetID uuid.UUID, role Role) (*User, error) {
	if actorID == targetID {
		return nil, ErrSelfModification
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.repo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, targetID)
}

// UpgradePassword re-hashes a verified password with the current algorithm when the stored hash is legacy
func (s *service) UpgradePassword(ctx context.Context, u *User, password string) error {
	if !NeedsRehash(u.Password) {
		return nil
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return fmt.Errorf("failed to upgrade password hash: %w", err)
	}
	u.Password = hashed
	return nil
}

// VerifyPassword verifies if the provided password matches the user's hashed password
func (s *service) VerifyPassword(u *User, password string) bool {
	return VerifyPassword(password, u.Password)
}

func validEmail(raw string) bool {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Bob <bob@example.com>"
	return addr.Address == raw && strings.Contains(raw[strings.LastIndex(raw, "@"):], ".")
}
