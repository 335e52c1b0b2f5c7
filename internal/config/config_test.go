package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 256, cfg.WS.SendBuffer)
	assert.Equal(t, 54*time.Second, cfg.WS.PingPeriod())
	assert.Equal(t, JournalNone, cfg.Journal.Backend)
	assert.Equal(t, 100, cfg.ChatHistoryLimit)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("WS_PONG_WAIT", "20s")
	t.Setenv("JOURNAL_BACKEND", "Redis")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.WS.PongWait)
	assert.Equal(t, JournalRedis, cfg.Journal.Backend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestParse_ProdRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg, err := Parse()
	require.NoError(t, err)
	assert.True(t, cfg.IsProdLike())
}

func TestParse_RejectsUnknownJournal(t *testing.T) {
	t.Setenv("JOURNAL_BACKEND", "kafka")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParse_RejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("WS_WRITE_WAIT", "0s")

	_, err := Parse()
	assert.Error(t, err)
}
