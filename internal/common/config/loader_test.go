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
database:
  postgres:
    host: localhost
    database: mortgage
    user: funnel
  redis:
    address: localhost:6379
`

func TestLoadFromFile_Defaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 5, cfg.Landing.MaxSubmissionsPerIP)
	assert.Equal(t, "redis", cfg.Landing.RateLimitBackend)
	assert.Equal(t, "mortgage-admin", cfg.Admin.Username)
	assert.Equal(t, "admin123", cfg.Admin.Password)
	assert.Equal(t, 24*60, cfg.Admin.TokenTTL)
	assert.Equal(t, "mortgage-lead-intake", cfg.Camunda.ProcessID)
	assert.Equal(t, "pretend-success", cfg.Wizard.FailurePolicy)
	assert.Equal(t, 30, cfg.Wizard.SessionTTL)
	assert.Equal(t, "mortgage-applications", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "http://localhost:5000", cfg.Server.PublicURL)
	assert.Equal(t, "http://localhost:3002", cfg.Server.AdminURL)
	assert.Equal(t, "1.0.0", cfg.App.Version)
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("ENABLE_EMAIL_NOTIFICATIONS", "false")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML+`
landing:
  notifications:
    enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Admin.JWTSecret)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.False(t, cfg.Landing.Notifications.Enabled)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("FUNNEL_DB_HOST", "db.internal")

	cfg, err := LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: ${FUNNEL_DB_HOST}
    database: mortgage
    user: funnel
landing:
  rate_limit_backend: memory
`))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing postgres host",
			yaml:    "database:\n  postgres:\n    database: m\n    user: u\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "redis limiter without redis",
			yaml:    "database:\n  postgres:\n    host: h\n    database: m\n    user: u\n",
			wantErr: "database.redis.address is required for the redis rate limiter",
		},
		{
			name:    "camunda without broker",
			yaml:    minimalYAML + "camunda:\n  enabled: true\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "unknown failure policy",
			yaml:    minimalYAML + "wizard:\n  failure_policy: retry-forever\n",
			wantErr: "wizard.failure_policy",
		},
		{
			name:    "unknown store backend",
			yaml:    minimalYAML + "wizard:\n  store_backend: cookie\n",
			wantErr: "wizard.store_backend",
		},
		{
			name:    "malformed trusted proxy",
			yaml:    minimalYAML + "server:\n  trusted_proxies:\n    - 10.0.0.0/33\n",
			wantErr: "server.trusted_proxies",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPostgresURL(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, Database: "mortgage", User: "u", Password: "p@ss", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5433/mortgage?sslmode=disable", p.GetURL())
	assert.Contains(t, p.GetDSN(), "dbname=mortgage")
}

func TestWorkerConfigFallback(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"notify-lead": {Enabled: false, MaxJobsActive: 2}}}

	assert.False(t, IsWorkerEnabled(cfg, "notify-lead"))
	assert.True(t, IsWorkerEnabled(cfg, "sync-lead-crm"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "notify-lead").MaxJobsActive)
	assert.Equal(t, 5, GetWorkerConfig(cfg, "sync-lead-crm").MaxJobsActive)
}
