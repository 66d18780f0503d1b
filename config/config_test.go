package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "MONGODB_URI", "MONGODB_DB", "JWT_SECRET", "ADMIN_PASSWORD"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "libreserve", cfg.DBName)
	assert.Empty(t, cfg.AdminPassword)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MONGODB_DB", "library_test")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_EMAIL", "root@library.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "library_test", cfg.DBName)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "root@library.test", cfg.AdminEmail)
}
