package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository interface for session operations
type Repository interface {
	// Upsert inserts or overwrites the user's session in one statement
	Upsert(ctx context.Context, userID uuid.UUID, fingerprint string, createdAt, expiresAt time.Time) error
	// FindByUserID returns (nil, nil) when the user has no session
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Session, error)
	// DeleteByUserID is idempotent
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	// DeleteExpired removes every session whose expiry is not after now
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// repository struct for session operations
type repository struct {
	db *gorm.DB
}

// NewRepository creates a new session repository
func NewRepository(db *gorm.DB) Repository {
	return &repository{db}
}

// Upsert relies on the unique user_id constraint so concurrent logins linearize and the last write wins
func (r *repository) Upsert(ctx context.Context, userID uuid.UUID, fingerprint string, createdAt, expiresAt time.Time) error {
	sess := &Session{
		ID:          uuid.New(),
		UserID:      userID,
		Fingerprint: fingerprint,
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"id", "fingerprint", "created_at", "expires_at"}),
	}).Create(sess).Error
}

// FindByUserID finds the session of a user
func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*Session, error) {
	var sess Session
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sess, nil
}

// DeleteByUserID deletes the session of a user, if any
func (r *repository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&Session{}).Error
}

// DeleteExpired deletes all sessions that expired at or before now
func (r *repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&Session{})
	return result.RowsAffected, result.Error
}
