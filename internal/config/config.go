package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Postgres      PostgresConfig      `yaml:"postgres"`
	Logging       LoggingConfig       `yaml:"logging"`
	Engine        EngineConfig        `yaml:"engine"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Email         EmailConfig         `yaml:"email"`
	SMS           SMSConfig           `yaml:"sms"`
	Webhook       WebhookConfig       `yaml:"webhook"`
	Kafka         KafkaConfig         `yaml:"kafka"`
}

type ServerConfig struct {
	Port         int `yaml:"port"`
	ReadTimeout  int `yaml:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout"`
}

type PostgresConfig struct {
	AutoMigrate bool   `yaml:"auto_migrate"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslmode"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// EngineConfig sizes the evaluation worker pool.
type EngineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// NotificationsConfig controls dispatch retry behavior.
type NotificationsConfig struct {
	Workers        int `yaml:"workers"`
	QueueSize      int `yaml:"queue_size"`
	MaxAttempts    int `yaml:"max_attempts"`
	BackoffSeconds int `yaml:"backoff_seconds"`
}

func (n NotificationsConfig) Backoff() time.Duration {
	if n.BackoffSeconds <= 0 {
		return time.Second
	}
	return time.Duration(n.BackoffSeconds) * time.Second
}

type EmailConfig struct {
	Enabled  bool     `yaml:"enabled"`
	SMTPHost string   `yaml:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

type SMSConfig struct {
	Enabled    bool     `yaml:"enabled"`
	GatewayURL string   `yaml:"gateway_url"`
	APIKey     string   `yaml:"api_key"`
	From       string   `yaml:"from"`
	To         []string `yaml:"to"`
}

type WebhookConfig struct {
	Enabled        bool   `yaml:"enabled"`
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (w WebhookConfig) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// KafkaConfig enables the optional readings consumer. The consumer only runs
// when brokers are set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// overrideFromEnv overrides config values with environment variables
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Server.Port)
	}
	if readTimeout := os.Getenv("SERVER_READ_TIMEOUT"); readTimeout != "" {
		fmt.Sscanf(readTimeout, "%d", &cfg.Server.ReadTimeout)
	}
	if writeTimeout := os.Getenv("SERVER_WRITE_TIMEOUT"); writeTimeout != "" {
		fmt.Sscanf(writeTimeout, "%d", &cfg.Server.WriteTimeout)
	}

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		cfg.Postgres.Host = host
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Postgres.Port)
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		cfg.Postgres.User = user
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		cfg.Postgres.Password = pass
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		cfg.Postgres.Database = db
	}
	if sslmode := os.Getenv("POSTGRES_SSLMODE"); sslmode != "" {
		cfg.Postgres.SSLMode = sslmode
	}
	if autoMigrate := os.Getenv("POSTGRES_AUTO_MIGRATE"); autoMigrate != "" {
		cfg.Postgres.AutoMigrate = strings.ToLower(autoMigrate) == "true"
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if workers := os.Getenv("ENGINE_WORKERS"); workers != "" {
		fmt.Sscanf(workers, "%d", &cfg.Engine.Workers)
	}
	if queueSize := os.Getenv("ENGINE_QUEUE_SIZE"); queueSize != "" {
		fmt.Sscanf(queueSize, "%d", &cfg.Engine.QueueSize)
	}

	if attempts := os.Getenv("NOTIFY_MAX_ATTEMPTS"); attempts != "" {
		fmt.Sscanf(attempts, "%d", &cfg.Notifications.MaxAttempts)
	}
	if backoff := os.Getenv("NOTIFY_BACKOFF_SECONDS"); backoff != "" {
		fmt.Sscanf(backoff, "%d", &cfg.Notifications.BackoffSeconds)
	}

	if enabled := os.Getenv("EMAIL_ENABLED"); enabled != "" {
		cfg.Email.Enabled = strings.ToLower(enabled) == "true"
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		cfg.Email.SMTPHost = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &cfg.Email.SMTPPort)
	}
	if from := os.Getenv("SMTP_FROM"); from != "" {
		cfg.Email.From = from
	}
	if username := os.Getenv("SMTP_USERNAME"); username != "" {
		cfg.Email.Username = username
	}
	if password := os.Getenv("SMTP_PASSWORD"); password != "" {
		cfg.Email.Password = password
	}
	if to := os.Getenv("SMTP_TO"); to != "" {
		cfg.Email.To = strings.Split(to, ",")
	}

	if gateway := os.Getenv("SMS_GATEWAY_URL"); gateway != "" {
		cfg.SMS.GatewayURL = gateway
	}
	if key := os.Getenv("SMS_API_KEY"); key != "" {
		cfg.SMS.APIKey = key
	}

	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		cfg.Webhook.URL = url
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topic := os.Getenv("KAFKA_TOPIC"); topic != "" {
		cfg.Kafka.Topic = topic
	}
	if group := os.Getenv("KAFKA_GROUP_ID"); group != "" {
		cfg.Kafka.GroupID = group
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment variables take priority over file values
	overrideFromEnv(&cfg)

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = 8
	}
	if cfg.Engine.QueueSize == 0 {
		cfg.Engine.QueueSize = 256
	}
	if cfg.Notifications.Workers == 0 {
		cfg.Notifications.Workers = 4
	}
	if cfg.Notifications.QueueSize == 0 {
		cfg.Notifications.QueueSize = 256
	}
	if cfg.Notifications.MaxAttempts == 0 {
		cfg.Notifications.MaxAttempts = 3
	}
	if cfg.Notifications.BackoffSeconds == 0 {
		cfg.Notifications.BackoffSeconds = 2
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "sensor-readings"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "alert-engine"
	}
}

// ConnectionString returns the PostgreSQL connection string
func (p PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// GetDSN returns the data source name for PostgreSQL
func (p PostgresConfig) GetDSN() string {
	return p.ConnectionString()
}

// MaxConnections returns max connections (default 25)
func (p PostgresConfig) MaxConnections() int {
	return 25
}

// MaxIdleConnections returns max idle connections (default 5)
func (p PostgresConfig) MaxIdleConnections() int {
	return 5
}

// ConnectionLifetime returns connection lifetime (default 5 minutes)
func (p PostgresConfig) ConnectionLifetime() time.Duration {
	return 5 * time.Minute
}

// MigrationSourceURL returns the migration source URL
func (p PostgresConfig) MigrationSourceURL() string {
	return "file://internal/storage/migrations"
}

// MigrationDatabaseURL returns the database URL for migrations
func (p PostgresConfig) MigrationDatabaseURL() string {
	password := strings.ReplaceAll(p.Password, "@", "%40")
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, password, p.Host, p.Port, p.Database, p.SSLMode)
}
