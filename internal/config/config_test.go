package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the three secrets every valid config needs.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret-0123456789")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-0123456789")
	t.Setenv("SESSION_SECRET", "session-secret-0123456789")
}

// =========================================================================
// LOAD TESTS
// =========================================================================

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, ChatMemory, cfg.ChatBackend)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ReadsDotEnvFile(t *testing.T) {
	setRequired(t)
	// t.Setenv registers a restore for PORT; godotenv.Load then fills it in.
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9100\nAPP_ENV=production\n"), 0o600))
	t.Setenv("APP_ENV", "")
	os.Unsetenv("APP_ENV")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_RealEnvironmentWinsOverDotEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8123")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=9100\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Port)
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "not-a-number")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func validConfig() Config {
	return Config{
		JWTSecret:        "access-secret-0123456789",
		JWTRefreshSecret: "refresh-secret-0123456789",
		SessionSecret:    "session-secret-0123456789",
		StoreDriver:      DriverSQLite,
		DBPath:           ":memory:",
		ChatBackend:      ChatMemory,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"short access secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"short refresh secret", func(c *Config) { c.JWTRefreshSecret = "short" }, true},
		{"same secrets", func(c *Config) { c.JWTRefreshSecret = c.JWTSecret }, true},
		{"short session secret", func(c *Config) { c.SessionSecret = "" }, true},
		{"unknown driver", func(c *Config) { c.StoreDriver = "mongo" }, true},
		{"postgres without url", func(c *Config) { c.StoreDriver = DriverPostgres }, true},
		{"postgres with url", func(c *Config) {
			c.StoreDriver = DriverPostgres
			c.DatabaseURL = "postgres://localhost/chat"
		}, false},
		{"unknown chat backend", func(c *Config) { c.ChatBackend = "kafka" }, true},
		{"redis chat backend", func(c *Config) { c.ChatBackend = ChatRedis }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"garbage": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		cfg := Config{LogLevel: in}
		assert.Equal(t, want, cfg.SlogLevel(), "LOG_LEVEL=%q", in)
	}
}
