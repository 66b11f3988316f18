package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/penline/penline/internal/database"
)

var (
	// ErrInvalidRole is returned when a role name is not USER or ADMIN
	ErrInvalidRole = errors.New("role must be USER or ADMIN")
	// ErrInvalidStatus is returned when a status name is not active or banned
	ErrInvalidStatus = errors.New("status must be active or banned")
)

// Role is the closed set of account roles
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole parses a role name, ignoring case and surrounding whitespace
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// Status is the closed set of account states
type Status string

const (
	StatusActive Status = "active"
	StatusBanned Status = "banned"
)

// ParseStatus parses a status name, ignoring case and surrounding whitespace
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusBanned
}

func (s Status) String() string {
	return string(s)
}

// User is an account row
type User struct {
	database.BaseModel
	Username string `gorm:"column:username;unique;not null"`
	Email    string `gorm:"column:email;unique;not null"`
	Name     string `gorm:"column:name;not null"`
	Password string `gorm:"column:password;not null"`
	Role     Role   `gorm:"column:role;not null;default:USER"`
	Status   Status `gorm:"column:status;not null;default:active"`
	Bio      string `gorm:"column:bio;not null;default:''"`
	Age      int    `gorm:"column:age;not null;default:0"`
}

func (User) TableName() string {
	return "users"
}

// IsBanned reports whether the account is banned
func (u *User) IsBanned() bool {
	return u.Status == StatusBanned
}

// UserResponse is the public representation of a user; it never carries the password hash
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Bio       string    `json:"bio"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToResponse converts a User to a safe response
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Status:    u.Status,
		Bio:       u.Bio,
		Age:       u.Age,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// NormalizeUsername trims and lower-cases a username. Stored usernames are always normalized.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
