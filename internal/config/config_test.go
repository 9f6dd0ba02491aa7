package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 15*time.Second, cfg.SweepInterval())
	require.Equal(t, 180*time.Second, cfg.TaskTimeout())
	require.Equal(t, 90, cfg.Coordinator.InactiveAfterSeconds)
	require.Equal(t, 300, cfg.Coordinator.ForgetAfterSeconds)
	require.Equal(t, 2, cfg.Coordinator.DepthLimit)
	require.True(t, cfg.Coordinator.RestrictDomain)
	require.Equal(t, 3, cfg.Worker.MaxRetries)
	require.Equal(t, 10, cfg.Worker.FetchTimeoutSeconds)
	require.Equal(t, 5, cfg.Worker.RobotsTimeoutSeconds)
	require.Equal(t, 60, cfg.Worker.HeartbeatIntervalSeconds)
	require.Equal(t, "memory", cfg.Queue.Provider)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "memory", cfg.Storage.Provider)
	require.Equal(t, "memory", cfg.Index.Provider)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/crawlfleet.yaml")
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero sweep interval", func(c *Config) { c.Coordinator.SweepIntervalSeconds = 0 }},
		{"zero task timeout", func(c *Config) { c.Coordinator.TaskTimeoutSeconds = 0 }},
		{"negative depth limit", func(c *Config) { c.Coordinator.DepthLimit = -1 }},
		{"zero fetch timeout", func(c *Config) { c.Worker.FetchTimeoutSeconds = 0 }},
		{"negative retries", func(c *Config) { c.Worker.MaxRetries = -1 }},
		{"unknown queue provider", func(c *Config) { c.Queue.Provider = "sqs" }},
		{"pubsub without project", func(c *Config) { c.Queue.Provider = "pubsub" }},
		{"gcs without bucket", func(c *Config) { c.Storage.Provider = "gcs" }},
		{"postgres without dsn", func(c *Config) { c.Index.Provider = "postgres" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
