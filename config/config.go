package config

import (
	"os"
)

type Config struct {
	Port          string
	MongoURI      string
	DBName        string
	JWTSecret     string
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("MONGODB_DB", "libreserve"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		AdminName:     getEnv("ADMIN_NAME", "Administrator"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
