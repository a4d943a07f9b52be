package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalYAML = `
camunda:
  broker_address: localhost:26500
backend:
  base_url: http://backend.local
database:
  postgres:
    host: localhost
    database: distribution
    user: app
  redis:
    address: localhost:6379
workers:
  validate-allocation:
    enabled: true
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://backend.local", cfg.Backend.BaseURL)
	assert.Equal(t, 15000, cfg.Backend.Timeout)
	assert.Equal(t, 600, cfg.Directory.CacheTTL)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, map[string]int{"zone": 2, "dgm": 3, "campus": 4}, cfg.Distribution.IssuedToTypeIDs)
	assert.Equal(t, "info", cfg.Logging.Level)

	w := cfg.Workers["validate-allocation"]
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
	assert.Equal(t, 3, w.MaxRetries)
}

func TestLoadFromFile_KeepsExplicitIssuedToTypeIDs(t *testing.T) {
	body := minimalYAML + `
distribution:
  revalidate_before_submit: true
  issued_to_type_ids:
    zone: 7
`
	cfg, err := LoadFromFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.True(t, cfg.Distribution.RevalidateBeforeSubmit)
	assert.Equal(t, 7, cfg.Distribution.IssuedToTypeIDs["zone"])
	assert.Equal(t, 3, cfg.Distribution.IssuedToTypeIDs["dgm"])
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_BACKEND_TOKEN", "secret-token")
	withToken := `
camunda:
  broker_address: localhost:26500
backend:
  base_url: http://backend.local
  auth_token: ${TEST_BACKEND_TOKEN}
database:
  postgres:
    host: localhost
    database: distribution
    user: app
  redis:
    address: localhost:6379
`
	cfg, err := LoadFromFile(writeConfig(t, withToken))
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Backend.AuthToken)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Camunda: CamundaConfig{BrokerAddress: "localhost:26500"},
			Backend: BackendConfig{BaseURL: "http://backend"},
			Database: DatabaseConfig{
				Postgres: PostgresConfig{Host: "h", Database: "d", User: "u"},
				Redis:    RedisConfig{Address: "r:6379"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing broker", mutate: func(c *Config) { c.Camunda.BrokerAddress = "" }, wantErr: "camunda.broker_address"},
		{name: "missing backend", mutate: func(c *Config) { c.Backend.BaseURL = "" }, wantErr: "backend.base_url"},
		{name: "missing postgres host", mutate: func(c *Config) { c.Database.Postgres.Host = "" }, wantErr: "database.postgres.host"},
		{name: "missing redis", mutate: func(c *Config) { c.Database.Redis.Address = "" }, wantErr: "database.redis.address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{}
	w := GetWorkerConfig(cfg, "submit-distribution")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "submit-distribution"))
}
