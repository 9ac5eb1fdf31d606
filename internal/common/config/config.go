// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Broker        BrokerConfig        `mapstructure:"broker"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Conversion    ConversionConfig    `mapstructure:"conversion"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BrokerConfig holds settings for the Redis-backed command queue.
type BrokerConfig struct {
	Queue       string `mapstructure:"queue"`
	PollTimeout int    `mapstructure:"poll_timeout"` // seconds, BLPOP block time
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	DocumentIndex string   `mapstructure:"document_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ConversionConfig holds settings for the BIM conversion trigger (Zeebe).
type ConversionConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	GatewayAddress string `mapstructure:"gateway_address"`
	ProcessID      string `mapstructure:"process_id"`
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// TranscriptionConfig holds settings for the external speech provider.
type TranscriptionConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Language string `mapstructure:"language"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

// AuditConfig holds settings for the security/audit event sinks.
type AuditConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		Region   string `mapstructure:"region"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// PipelineConfig holds settings for the per-command processing pipeline.
type PipelineConfig struct {
	RetryBudget    int `mapstructure:"retry_budget"`
	IdempotencyTTL int `mapstructure:"idempotency_ttl"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
