// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml on
// top, then applies environment overrides. A missing base file is not an error:
// a Lambda deployment is configured from the environment alone.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
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

// Find project root by looking for go.mod
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

// setDefaults registers every key so AutomaticEnv can override it
// (viper only consults the environment for keys it already knows).
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "session-handlers")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("aws.region", "ap-southeast-1")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("kv.backend", KVBackendDynamoDB)
	v.SetDefault("kv.users_table", "DynamoDB-CLEAN")
	v.SetDefault("kv.email_index", "EmailIndex")
	v.SetDefault("kv.processed_files_table", "ProcessedFiles-CLEAN")
	v.SetDefault("kv.redis.address", "")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.redis.key_prefix", "sessions")
	v.SetDefault("kv.redis.pool_size", 10)

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.secret_arn", "")
	v.SetDefault("database.postgres.sslmode", "require")

	v.SetDefault("camunda.enabled", false)
	v.SetDefault("camunda.broker_address", "")

	v.SetDefault("server.address", ":8080")

	v.SetDefault("notifications.ses.enabled", false)
	v.SetDefault("notifications.ses.from_email", "")
	v.SetDefault("notifications.sns.enabled", false)
	v.SetDefault("notifications.sns.topic_arn", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig honours the variable names the deployed functions already use.
func overrideEmptyConfig(cfg *Config) {
	if val := os.Getenv("USERS_TABLE"); val != "" {
		cfg.KV.UsersTable = val
	}
	if cfg.Database.Postgres.SecretARN == "" {
		if val := os.Getenv("DB_SECRET_ARN"); val != "" {
			cfg.Database.Postgres.SecretARN = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values that depend on other fields
func applyDefaults(cfg *Config) {
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 1
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 300000
	}

	if cfg.Dashboard.ProcessedFilesLimit == 0 {
		cfg.Dashboard.ProcessedFilesLimit = 10
	}
	if cfg.Dashboard.HybridProcessedFilesLimit == 0 {
		cfg.Dashboard.HybridProcessedFilesLimit = 5
	}

	if cfg.Handlers == nil {
		cfg.Handlers = map[string]HandlerConfig{}
	}
	for key, h := range cfg.Handlers {
		if h.Timeout == 0 {
			h.Timeout = 30000
		}
		if h.MaxJobsActive == 0 {
			h.MaxJobsActive = 1
		}
		cfg.Handlers[key] = h
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	switch cfg.KV.Backend {
	case KVBackendDynamoDB:
		if cfg.KV.UsersTable == "" {
			return fmt.Errorf("kv.users_table is required")
		}
		if cfg.KV.EmailIndex == "" {
			return fmt.Errorf("kv.email_index is required")
		}
		if cfg.AWS.Region == "" {
			return fmt.Errorf("aws.region is required for the dynamodb backend")
		}
	case KVBackendRedis:
		if cfg.KV.Redis.Address == "" {
			return fmt.Errorf("kv.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("kv.backend must be %q or %q, got %q", KVBackendDynamoDB, KVBackendRedis, cfg.KV.Backend)
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.SecretARN == "" && cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user or database.postgres.secret_arn is required")
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Notifications.SES.Enabled && cfg.Notifications.SES.FromEmail == "" {
		return fmt.Errorf("notifications.ses.from_email is required when ses is enabled")
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetHandlerConfig retrieves handler-specific configuration with fallback to defaults
func GetHandlerConfig(cfg *Config, name string) HandlerConfig {
	if h, exists := cfg.Handlers[name]; exists {
		return h
	}
	return HandlerConfig{
		Enabled:       true,
		Timeout:       30000,
		MaxJobsActive: 1,
	}
}

// IsHandlerEnabled checks if a specific handler is enabled. Handlers absent
// from the config are enabled.
func IsHandlerEnabled(cfg *Config, name string) bool {
	if h, exists := cfg.Handlers[name]; exists {
		return h.Enabled
	}
	return true
}
