package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.GuestSessionTTL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 4, cfg.RetrievalK)
	assert.Equal(t, PartialReplyDiscard, cfg.PartialReplyPolicy)
	assert.Equal(t, "Gemini", cfg.DefaultModel)
	assert.False(t, cfg.ObjectStorageEnabled())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("GUEST_SESSION_TTL", "2h")
	t.Setenv("PARTIAL_REPLY_POLICY", "incomplete")
	t.Setenv("USE_IN_MEMORY", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Hour, cfg.GuestSessionTTL)
	assert.Equal(t, PartialReplyIncomplete, cfg.PartialReplyPolicy)
	assert.True(t, cfg.UseInMemory)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfig_BadPolicy(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PARTIAL_REPLY_POLICY", "keep")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PARTIAL_REPLY_POLICY")
}
