package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "Asia/Kolkata", cfg.Ledger.Timezone)
	assert.Equal(t, "INR", cfg.Payments.Currency)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Events.QueueURL)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "trackex.yaml")
	content := `
server:
  address: ":9090"
  read_timeout: 5s
database:
  dsn: /tmp/trackex-test.db
log:
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("TRACKEX_DATABASE_DSN", "/tmp/from-env.db")
	t.Setenv("TRACKEX_EVENTS_QUEUE_URL", "https://sqs.example/queue")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/from-env.db", cfg.Database.DSN)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "https://sqs.example/queue", cfg.Events.QueueURL)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TRACKEX_LEDGER_TIMEZONE=UTC\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TRACKEX_LEDGER_TIMEZONE") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Ledger.Timezone)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRACKEX_DATABASE_DRIVER", "mysql")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "debug", Format: "text"}}
	assert.NotNil(t, cfg.NewLogger())
}
