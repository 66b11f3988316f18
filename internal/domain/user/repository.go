package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// Repository interface for user operations
type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error
	UpdatePassword(ctx context.Context, id uuid.UUID, encodedHash string) error
}

// repository struct for user operations
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Create creates a new user. Unique violations are reported as ErrUsernameExists or ErrEmailExists.
func (r *repository) Create(ctx context.Context, user *User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// FindByID finds a user by ID
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail finds a user by normalized email
func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email = ?", NormalizeEmail(email))
}

// FindByUsername finds a user by normalized username
func (r *repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "username = ?", NormalizeUsername(username))
}

// List returns every user, newest first
func (r *repository) List(ctx context.Context) ([]*User, error) {
	var users []*User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateStatus sets the status column of one user
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return r.updateColumn(ctx, id, "status", status)
}

// UpdateRole sets the role column of one user
func (r *repository) UpdateRole(ctx context.Context, id uuid.UUID, role Role) error {
	return r.updateColumn(ctx, id, "role", role)
}

// UpdatePassword replaces the stored password hash of one user
func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, encodedHash string) error {
	return r.updateColumn(ctx, id, "password", encodedHash)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) updateColumn(ctx context.Context, id uuid.UUID, column string, value any) error {
	result := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "users_email_key":
		return ErrEmailExists
	case "users_username_key":
		return ErrUsernameExists
	default:
		return err
	}
}
