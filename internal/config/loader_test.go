package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  env: development
  port: 8081
jwt:
  secret: from-file
ws:
  ping_interval_seconds: 20
  pong_wait_seconds: 45
kafka:
  brokers: ["k1:9092", "k2:9092"]
mongodb:
  connect_max_seconds: 40
redis:
  connect_max_seconds: 5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("file values and derived durations", func(t *testing.T) {
		req := require.New(t)

		// Given
		path := writeConfig(t, sampleYAML)

		// When
		cfg, err := Load(path)

		// Then
		req.NoError(err)
		req.Equal(8081, cfg.App.Port)
		req.True(cfg.IsDevelopment())
		req.Equal([]string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		req.Equal(20*time.Second, cfg.PingInterval)
		req.Equal(45*time.Second, cfg.PongWait)
		req.Equal(time.Hour, cfg.JWTTTL)
		req.Equal(int64(50*1024*1024), cfg.Uploads.MaxBytes)
		req.Equal("mongo", cfg.Storage.Driver)
		req.Equal(40*time.Second, cfg.MongoConnectMax)
		req.Equal(5*time.Second, cfg.RedisConnectMax)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		req := require.New(t)

		// Given
		path := writeConfig(t, sampleYAML)
		t.Setenv("APP_PORT", "9090")
		t.Setenv("JWT_SECRET", "from-env")

		// When
		cfg, err := Load(path)

		// Then
		req.NoError(err)
		req.Equal(9090, cfg.App.Port)
		req.Equal("from-env", cfg.JWT.Secret)
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		req := require.New(t)

		// Given
		t.Setenv("JWT_SECRET", "s3cret")

		// When
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

		// Then
		req.NoError(err)
		req.Equal(5000, cfg.App.Port)
		req.Equal(5*time.Second, cfg.MongoTimeout)
	})

	t.Run("secret is required", func(t *testing.T) {
		req := require.New(t)

		// Given
		path := writeConfig(t, "app:\n  port: 8080\n")

		// When
		_, err := Load(path)

		// Then
		req.ErrorContains(err, "jwt.secret")
	})

	t.Run("unknown driver is rejected", func(t *testing.T) {
		req := require.New(t)

		// Given
		path := writeConfig(t, "jwt:\n  secret: x\nevents:\n  driver: rabbit\n")

		// When
		_, err := Load(path)

		// Then
		req.ErrorContains(err, "events.driver")
	})
}
