package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// IsProduction reports whether e is the production environment
func (e EnvironmentType) IsProduction() bool {
	return e == EnvironmentProduction
}

// Environment holds the environment variables
type Environment struct {
	Environment EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath  string          `env:"CONFIG_PATH"`
	JWTSecret   string          `env:"JWT_SECRET"`
}

// LoadEnv loads the environment variables, reading a .env file first when one exists.
// Variables already present in the process environment win over the file.
func LoadEnv() *Environment {
	_ = godotenv.Load()

	envType := EnvironmentType(strings.ToLower(strings.TrimSpace(getEnv("ENVIRONMENT", string(EnvironmentDevelopment)))))
	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment: envType,
		ConfigPath:  getEnv("CONFIG_PATH", "config.yaml"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
	}
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// LoadAll reads the environment and then the config file. A non-empty path overrides CONFIG_PATH.
func LoadAll(path string) (*Config, *Environment, error) {
	env := LoadEnv()
	if path != "" {
		env.ConfigPath = path
	}

	cfg, err := Load(env.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, env, nil
}
