package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_MODE",
		"CHAT_REPLY_DELAY_MIN_MS", "CHAT_REPLY_DELAY_JITTER_MS", "VOICE_LISTEN_TIMEOUT",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"SPEECH_APP_ID", "SPEECH_ACCESS_TOKEN", "SPEECH_API_KEY", "SPEECH_TIMEOUT",
		"SPEECH_CONCURRENT_MODE", "SPEECH_ASR_LANGUAGE", "SPEECH_BASE_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Second, cfg.Chat.ReplyDelayMin)
	assert.Equal(t, time.Second, cfg.Chat.ReplyDelayJitter)
	assert.Equal(t, 10*time.Second, cfg.Chat.ListenTimeout)
	assert.Equal(t, []string{"*"}, cfg.Chat.AllowedOrigins)
	assert.Equal(t, "development", cfg.Log.Mode)
	assert.False(t, cfg.Speech.Enabled)
	assert.Equal(t, "en-US", cfg.Speech.ASRLanguage)
	assert.Equal(t, 30, cfg.Speech.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CHAT_REPLY_DELAY_MIN_MS", "5")
	t.Setenv("CHAT_REPLY_DELAY_JITTER_MS", "0")
	t.Setenv("VOICE_LISTEN_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_BURST", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://smartbite.example, https://admin.smartbite.example")
	t.Setenv("SPEECH_APP_ID", "app")
	t.Setenv("SPEECH_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Millisecond, cfg.Chat.ReplyDelayMin)
	assert.Zero(t, cfg.Chat.ReplyDelayJitter)
	assert.Equal(t, 3*time.Second, cfg.Chat.ListenTimeout)
	assert.InDelta(t, 0.5, cfg.Chat.RateLimitRPS, 1e-9)
	assert.Equal(t, 2, cfg.Chat.RateLimitBurst)
	assert.Equal(t, []string{"https://smartbite.example", "https://admin.smartbite.example"}, cfg.Chat.AllowedOrigins)

	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "key", cfg.Speech.AccessToken)
	model := cfg.Speech.Model()
	assert.Equal(t, "app", model.AppID)
	assert.Equal(t, "key", model.AccessToken)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":                    "80 80",
		"CHAT_REPLY_DELAY_MIN_MS": "-1",
		"VOICE_LISTEN_TIMEOUT":    "soon",
		"RATE_LIMIT_BURST":        "0",
		"RATE_LIMIT_RPS":          "fast",
		"SPEECH_CONCURRENT_MODE":  "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
