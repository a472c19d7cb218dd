package config

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		unsetEnv(t, "REST_PORT", "MAZE_ROWS", "MAZE_COLS", "MAZE_MAX_DIMENSION", "MAX_SESSIONS",
			"STEP_INTERVAL_MS", "SESSION_TTL_SECONDS", "HOST_IP", "GIN_MODE", "JWT_SECRET", "JWT_ISSUER")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.HostIP)
		assert.Equal(t, 8080, cfg.RESTPort)
		assert.Equal(t, "release", cfg.GinMode)
		assert.Equal(t, 40, cfg.MazeRows)
		assert.Equal(t, 40, cfg.MazeCols)
		assert.Equal(t, 100, cfg.MaxMazeDimension)
		assert.Equal(t, 256, cfg.MaxSessions)
		assert.Equal(t, 5*time.Millisecond, cfg.StepInterval)
		assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
		assert.Empty(t, cfg.JWTSecret)
		assert.Equal(t, "mazegen", cfg.JWTIssuer)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("MAZE_ROWS", "12")
		t.Setenv("MAZE_COLS", "30")
		t.Setenv("MAZE_MAX_DIMENSION", "50")
		t.Setenv("STEP_INTERVAL_MS", "25")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("JWT_ISSUER", "tests")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 12, cfg.MazeRows)
		assert.Equal(t, 30, cfg.MazeCols)
		assert.Equal(t, 50, cfg.MaxMazeDimension)
		assert.Equal(t, 25*time.Millisecond, cfg.StepInterval)
		assert.Equal(t, "s3cret", cfg.JWTSecret)
		assert.Equal(t, "tests", cfg.JWTIssuer)
	})

	t.Run("non-integer value", func(t *testing.T) {
		t.Setenv("MAZE_ROWS", "forty")

		_, err := Load()
		assert.ErrorContains(t, err, "MAZE_ROWS")
	})

	t.Run("default dimensions above the maximum", func(t *testing.T) {
		t.Setenv("MAZE_ROWS", "40")
		t.Setenv("MAZE_COLS", "40")
		t.Setenv("MAZE_MAX_DIMENSION", "20")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive step interval", func(t *testing.T) {
		t.Setenv("STEP_INTERVAL_MS", "0")

		_, err := Load()
		assert.Error(t, err)
	})
}

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		key := key
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { _ = os.Setenv(key, value) })
		}
		_ = os.Unsetenv(key)
	}
}

func TestNewLogger(t *testing.T) {
	var out bytes.Buffer
	logger := NewLogger("APP", ColorGreen, &out)
	logger.Printf("%s[INFO]%s ready", LogInfoColor, LogColorReset)

	line := out.String()
	assert.True(t, strings.HasPrefix(line, ColorGreen+"[APP]"+ColorReset+" "), line)
	assert.Contains(t, line, "[INFO]"+LogColorReset+" ready")
}
