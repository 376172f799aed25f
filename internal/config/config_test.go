package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
game:
  white_name: Alice
  clock_initial: 5m
  clock_increment: 3s
auth:
  secret: s3cret
archive:
  driver: postgres
  dsn: postgres://localhost/deskchess
development:
  log_level: warn
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "Alice", cfg.Game.WhiteName)
	assert.Equal(t, "Player 2", cfg.Game.BlackName)
	assert.True(t, cfg.Game.ShowValidMoves)
	assert.Equal(t, 5*time.Minute, cfg.Game.ClockInitial)
	assert.Equal(t, 3*time.Second, cfg.Game.ClockIncrement)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "postgres", cfg.Archive.Driver)
	assert.Equal(t, zerolog.WarnLevel, cfg.Development.Level())
}

func TestLoadDefaultsWithEnvironment(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("DESKCHESS_SERVER_PORT", "7070")
	t.Setenv("DESKCHESS_GAME_BLACK_NAME", "Bob")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "Player 1", cfg.Game.WhiteName)
	assert.Equal(t, "Bob", cfg.Game.BlackName)
	assert.Equal(t, time.Duration(0), cfg.Game.ClockInitial)
	assert.Equal(t, "memory", cfg.Archive.Driver)
	assert.Equal(t, zerolog.InfoLevel, cfg.Development.Level())
}

func TestLoadRejectsBadArchive(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown driver", "archive:\n  driver: mongo\n"},
		{"postgres without dsn", "archive:\n  driver: postgres\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, DevelopmentConfig{Debug: true, LogLevel: "error"}.Level())
	assert.Equal(t, zerolog.ErrorLevel, DevelopmentConfig{LogLevel: "error"}.Level())
	assert.Equal(t, zerolog.InfoLevel, DevelopmentConfig{LogLevel: "loud"}.Level())
	assert.Equal(t, zerolog.InfoLevel, DevelopmentConfig{}.Level())
}
