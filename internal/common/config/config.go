// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                `mapstructure:"app"`
	AWS           AWSConfig                `mapstructure:"aws"`
	KV            KVConfig                 `mapstructure:"kv"`
	Database      DatabaseConfig           `mapstructure:"database"`
	Camunda       CamundaConfig            `mapstructure:"camunda"`
	Server        ServerConfig             `mapstructure:"server"`
	Handlers      map[string]HandlerConfig `mapstructure:"handlers"`
	Dashboard     DashboardConfig          `mapstructure:"dashboard"`
	Notifications NotificationConfig       `mapstructure:"notifications"`
	Logging       LoggingConfig            `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// AWSConfig is shared by every AWS SDK client. Endpoint points all clients at a
// local stack when set.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// KV backends.
const (
	KVBackendDynamoDB = "dynamodb"
	KVBackendRedis    = "redis"
)

type KVConfig struct {
	Backend             string      `mapstructure:"backend"`
	UsersTable          string      `mapstructure:"users_table"`
	EmailIndex          string      `mapstructure:"email_index"`
	ProcessedFilesTable string      `mapstructure:"processed_files_table"`
	Redis               RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	PoolSize  int    `mapstructure:"pool_size"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SecretARN      string `mapstructure:"secret_arn"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string. Credentials are URL-escaped
// because managed secrets routinely contain reserved characters.
func (p PostgresConfig) GetDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	return u.String()
}

// WithCredentials returns a copy carrying the given username and password.
func (p PostgresConfig) WithCredentials(user, password string) PostgresConfig {
	p.User = user
	p.Password = password
	return p
}

type CamundaConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BrokerAddress string `mapstructure:"broker_address"`
	MaxJobsActive int    `mapstructure:"max_jobs_active"`
	Timeout       int    `mapstructure:"timeout"` // milliseconds
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// HandlerConfig holds the core settings applicable to every handler.
type HandlerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
}

// DashboardConfig caps how many processed-file records each store contributes.
type DashboardConfig struct {
	ProcessedFilesLimit       int `mapstructure:"processed_files_limit"`
	HybridProcessedFilesLimit int `mapstructure:"hybrid_processed_files_limit"`
}

// NotificationConfig holds the optional best-effort notifications.
type NotificationConfig struct {
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
