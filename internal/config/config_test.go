package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, resolved, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.Equal(t, Default().Addr, cfg.Addr)
	require.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	require.Equal(t, 10, cfg.RateLimitMaxMessages)
	require.Equal(t, 32, cfg.MaxRoomNameLength)
	require.NoError(t, Validate(cfg))

	_, err = os.Stat(path)
	require.NoError(t, err)

	again, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, cfg.HeartbeatInterval, again.HeartbeatInterval)
	require.Equal(t, cfg.CensorChar, again.CensorChar)
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "addr: \":9000\"\nheartbeat_interval: 5s\nmax_message_length: 200\ncensored_words: [darn, heck]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("CHATRELAY_MAX_MESSAGE_LENGTH", "300")
	t.Setenv("CHATRELAY_RATE_LIMIT_WINDOW", "2s")

	cfg, _, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, 5*time.Second, cfg.HeartbeatInterval)
	require.Equal(t, 300, cfg.MaxMessageLength)
	require.Equal(t, 2*time.Second, cfg.RateLimitWindow)
	require.Equal(t, []string{"darn", "heck"}, cfg.CensoredWords)

	settings := cfg.Chat()
	require.Equal(t, 300, settings.MaxMessageLength)
	require.Equal(t, 5*time.Second, settings.HeartbeatInterval)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.AuthEnabled = true
	require.Error(t, Validate(cfg), "auth without a secret")

	cfg.JWTSecret = "s3cret"
	require.NoError(t, Validate(cfg))

	cfg.LogFormat = "xml"
	require.Error(t, Validate(cfg))

	cfg = Default()
	cfg.RateLimitMaxMessages = 0
	require.Error(t, Validate(cfg))
}

func TestUpdateFromKeepsUnsetFields(t *testing.T) {
	cfg := Default()
	cfg.UpdateFrom(Config{Addr: ":7000", LogLevel: "debug"})
	require.Equal(t, ":7000", cfg.Addr)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Default().ShutdownTimeout, cfg.ShutdownTimeout)
	require.Equal(t, '*', cfg.MaskRune())
}
