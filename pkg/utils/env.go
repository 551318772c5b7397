package utils

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// GetEnv gets the raw string value of an environment variable
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetIntEnv gets an environment variable as int64, returns 0 when unset or invalid
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv gets an environment variable as bool, returns false when unset or invalid
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}

// GetFloatEnv gets an environment variable as float64, returns 0 when unset or invalid
func GetFloatEnv(key string) float64 {
	return cast.ToFloat64(os.Getenv(key))
}

// LoadEnv loads environment files for the given environment name.
// It tries .env.<env> first, then falls back to .env. Variables that
// are already set in the process environment are never overridden.
func LoadEnv(env string) error {
	if env != "" {
		if err := godotenv.Load(".env." + env); err == nil {
			// Base file fills in anything the environment file left out
			_ = godotenv.Load()
			return nil
		}
	}
	return godotenv.Load()
}
