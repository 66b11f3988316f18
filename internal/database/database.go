package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/penline/penline/internal/config"
)

// DB is the global database handle set by ConnectDB
var DB *gorm.DB

// BaseModel carries the primary key and bookkeeping timestamps shared by all tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

// BeforeCreate assigns a random UUID when the caller did not set one
func (m *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Open opens a gorm connection for the given database config and verifies it with a ping
func Open(cfg *config.DatabaseConfig, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConnectDB connects to PostgreSQL and stores the handle in DB
func ConnectDB(cfg *config.Config) error {
	level := logger.Warn
	if cfg.Logging.Level == "debug" {
		level = logger.Info
	}

	db, err := Open(&cfg.Database, level)
	if err != nil {
		return err
	}

	DB = db
	slog.Debug("Database handle initialized", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
	return nil
}

// Close closes the global database handle if it is open
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
