package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/felicity")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "sql", cfg.DiscussionStore)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Second, cfg.OutboxInterval)
	assert.Equal(t, 5, cfg.OutboxMaxAttempts)
	assert.True(t, cfg.Debug())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/felicity")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresMongoURIForMongoStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DISCUSSION_STORE", "mongo")
	t.Setenv("MONGO_URI", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestOrigins(t *testing.T) {
	cfg := Config{
		ClientURL:      "https://felicity.example",
		AllowedOrigins: []string{" https://a.example ", ""},
	}

	assert.Equal(t, []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"https://felicity.example",
		"https://a.example",
	}, cfg.Origins())
}
