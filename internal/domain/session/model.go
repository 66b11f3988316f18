package session

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session is the single server-side validity record of a user's most recently issued token.
// At most one row exists per user; its fingerprint names the only token the gate accepts.
type Session struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:sessions_user_id_key"`
	Fingerprint string    `gorm:"column:fingerprint;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
}

func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate assigns a fresh opaque id
func (s *Session) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Expired reports whether the session's validity window has closed at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
