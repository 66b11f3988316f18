package utils

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/penline/penline/internal/config"
	"github.com/penline/penline/internal/database"
	"github.com/penline/penline/internal/migrations"
)

// FindProjectRoot finds the project root directory by looking for go.mod file
func FindProjectRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd, nil
		}
		dir = parent
	}
}

// LoadTestConfig loads configuration for testing.
// Config path can be overridden with TEST_CONFIG_PATH env variable and defaults to config.yaml in
// the project root. The test is skipped when no config file exists.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	projectRoot, err := FindProjectRoot()
	if err != nil {
		t.Fatalf("Failed to find project root: %v", err)
	}

	configPath := os.Getenv("TEST_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(projectRoot, configPath)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Skipf("Skipping database test: no config at %s", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config from %s: %v", configPath, err)
	}

	return cfg
}

// SetupTestDB opens a PostgreSQL connection for testing and applies the embedded migrations.
// The test is skipped when the database is unreachable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}

	cfg := LoadTestConfig(t)

	db, err := database.Open(&cfg.Database, logger.Silent)
	if err != nil {
		t.Skipf("Skipping database test: %v", err)
	}

	if err := migrations.RunMigrations(cfg); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
