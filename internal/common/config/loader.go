// internal/common/config/loader.go
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml over it,
// expands ${VAR} placeholders and applies defaults. The result is validated for
// running the API server.
func Load() (*Config, error) {
	v, err := readLayered()
	if err != nil {
		return nil, err
	}
	return finish(v, validateConfig)
}

// LoadClient loads the same files but only validates what the wizard client needs.
func LoadClient() (*Config, error) {
	v, err := readLayered()
	if err != nil {
		return nil, err
	}
	return finish(v, validateWizardConfig)
}

func readLayered() (*viper.Viper, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return v, nil
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v, validateConfig)
}

func finish(v *viper.Viper, validate func(*Config) error) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Admin.JWTSecret, "JWT_SECRET")
	setIfEmpty(&cfg.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Integrations.Zoho.APIKey, "ZOHO_CRM_API_KEY")
	setIfEmpty(&cfg.Integrations.Zoho.AuthToken, "ZOHO_CRM_OAUTH_TOKEN")
	setIfEmpty(&cfg.Landing.Notifications.ToEmail, "LANDING_NOTIFICATION_EMAIL")
	setIfEmpty(&cfg.Landing.Notifications.FromEmail, "EMAIL_FROM")

	if os.Getenv("ENABLE_EMAIL_NOTIFICATIONS") == "false" {
		cfg.Landing.Notifications.Enabled = false
	}
}

func setIfEmpty(dst *string, envKey string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(envKey); val != "" {
		*dst = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "mortgage-funnel"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":5000"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}
	if cfg.Server.PublicURL == "" {
		cfg.Server.PublicURL = "http://localhost:5000"
	}
	if cfg.Server.FrontendURL == "" {
		cfg.Server.FrontendURL = "http://localhost:3000"
	}
	if cfg.Server.AdminURL == "" {
		cfg.Server.AdminURL = "http://localhost:3002"
	}

	if cfg.Camunda.ProcessID == "" {
		cfg.Camunda.ProcessID = "mortgage-lead-intake"
	}
	if cfg.Camunda.BPMNDir == "" {
		cfg.Camunda.BPMNDir = "bpmn"
	}
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "mortgage-applications"
	}

	if cfg.Landing.MaxSubmissionsPerIP == 0 {
		cfg.Landing.MaxSubmissionsPerIP = 5
	}
	if cfg.Landing.RateLimitBackend == "" {
		cfg.Landing.RateLimitBackend = "redis"
	}
	if cfg.Landing.Notifications.FromEmail == "" {
		cfg.Landing.Notifications.FromEmail = "noreply@neonmortgage.com"
	}
	if cfg.Landing.Notifications.ToEmail == "" {
		cfg.Landing.Notifications.ToEmail = "info@neonmortgage.com"
	}

	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "mortgage-admin"
	}
	if cfg.Admin.PasswordHash == "" && cfg.Admin.Password == "" {
		cfg.Admin.Password = "admin123"
	}
	if cfg.Admin.JWTSecret == "" {
		cfg.Admin.JWTSecret = "mortgage-admin-secret"
	}
	if cfg.Admin.Email == "" {
		cfg.Admin.Email = "admin@neonmortgage.com"
	}
	if cfg.Admin.TokenTTL == 0 {
		cfg.Admin.TokenTTL = 24 * 60
	}

	if cfg.Wizard.APIBaseURL == "" {
		cfg.Wizard.APIBaseURL = "http://localhost:5000"
	}
	if cfg.Wizard.SessionTTL == 0 {
		cfg.Wizard.SessionTTL = 30
	}
	if cfg.Wizard.FailurePolicy == "" {
		cfg.Wizard.FailurePolicy = "pretend-success"
	}
	if cfg.Wizard.StoreBackend == "" {
		cfg.Wizard.StoreBackend = "file"
	}
	if cfg.Wizard.StorePath == "" {
		cfg.Wizard.StorePath = ".get-mortgage.json"
	}
	if cfg.Wizard.RequestTimeout == 0 {
		cfg.Wizard.RequestTimeout = 15000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

func validateConfig(cfg *Config) error {
	for _, p := range cfg.Server.TrustedProxies {
		if !validProxyEntry(p) {
			return fmt.Errorf("server.trusted_proxies: %q is not an address or CIDR", p)
		}
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Database.Elasticsearch.Enabled && cfg.Database.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required when enabled")
	}
	if cfg.Landing.RateLimitBackend == "redis" && !cfg.Database.Redis.Configured() {
		return fmt.Errorf("database.redis.address is required for the redis rate limiter")
	}
	if cfg.Landing.RateLimitBackend != "redis" && cfg.Landing.RateLimitBackend != "memory" {
		return fmt.Errorf("landing.rate_limit_backend must be redis or memory")
	}

	return validateWizardConfig(cfg)
}

func validateWizardConfig(cfg *Config) error {
	switch cfg.Wizard.FailurePolicy {
	case "pretend-success", "surface-error":
	default:
		return fmt.Errorf("wizard.failure_policy must be pretend-success or surface-error")
	}
	switch cfg.Wizard.StoreBackend {
	case "file":
	case "redis":
		if !cfg.Database.Redis.Configured() {
			return fmt.Errorf("database.redis.address is required for the redis session store")
		}
	default:
		return fmt.Errorf("wizard.store_backend must be file or redis")
	}
	return nil
}

func validProxyEntry(s string) bool {
	if _, _, err := net.ParseCIDR(s); err == nil {
		return true
	}
	return net.ParseIP(s) != nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig returns the worker's settings or the stock defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled treats unlisted workers as enabled.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
