package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingSetting is returned when a required setting is absent.
var ErrMissingSetting = errors.New("missing required setting")

// Config holds the configuration settings for the harvester.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port for the monitoring server in serve mode.
// - Interval: The pause between runs in serve mode.
// - Provider: Places search API settings.
// - Search: What is searched and how.
// - Loader: How results are written.
// - Database: Configuration settings for the PostgreSQL database.
// - Kafka, Snapshot, Metrics: Optional outputs, disabled when left empty.
type Config struct {
	Env      string         `mapstructure:"env"`      // Env is the current environment: local, development, production.
	Port     int            `mapstructure:"port"`     // Port is the monitoring server port.
	Interval time.Duration  `mapstructure:"interval"` // Interval between runs in serve mode.
	Provider ProviderConfig `mapstructure:"provider"`
	Search   SearchConfig   `mapstructure:"search"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Database PostgresConfig `mapstructure:"postgres"` // Database holds the postgres database configuration
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ProviderConfig selects and configures the places search client.
type ProviderConfig struct {
	Type      string `mapstructure:"type"`       // rest (default) or google
	APIKey    string `mapstructure:"api_key"`    // Places API key
	BaseURL   string `mapstructure:"base_url"`   // Endpoint override for the rest provider
	RateLimit int    `mapstructure:"rate_limit"` // Requests per second
}

// SearchConfig describes the searches of a run.
type SearchConfig struct {
	Targets   []models.Target `mapstructure:"targets"`
	Keywords  []string        `mapstructure:"keywords"`
	Radius    uint            `mapstructure:"radius"`     // Radius in meters
	Language  string          `mapstructure:"language"`   // Preferred result language
	PageDelay time.Duration   `mapstructure:"page_delay"` // Wait before using a continuation token
	Timeout   time.Duration   `mapstructure:"timeout"`    // Timeout of a single request
}

// LoaderConfig controls writes to the destination table.
type LoaderConfig struct {
	BatchSize int    `mapstructure:"batch_size"`
	Table     string `mapstructure:"table"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`     // Host is the database server address.
	Port     string `mapstructure:"port"`     // Port is the database server port.
	User     string `mapstructure:"user"`     // User is the database user.
	Password string `mapstructure:"password"` // Password is the database user's password.
	Name     string `mapstructure:"db_name"`  // Name is the name of the database.
}

// KafkaConfig enables discovery events when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SnapshotConfig enables run snapshots when Endpoint is not empty.
type SnapshotConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MetricsConfig enables pushing metrics of one-shot runs when Pushgateway is not empty.
type MetricsConfig struct {
	Pushgateway string `mapstructure:"pushgateway"`
}

// DefaultTargets are searched when no targets are configured.
func DefaultTargets() []models.Target {
	return []models.Target{
		{City: "Fukuoka", Latitude: 33.5902, Longitude: 130.4017},
		{City: "Hiroshima", Latitude: 34.3853, Longitude: 132.4553},
	}
}

var envBindings = map[string]string{
	"env":                 "FORAGER_ENV",
	"port":                "FORAGER_HEALTH_PORT",
	"interval":            "FORAGER_INTERVAL",
	"provider.type":       "FORAGER_PROVIDER",
	"provider.api_key":    "FORAGER_PLACES_KEY",
	"provider.base_url":   "FORAGER_PLACES_URL",
	"provider.rate_limit": "FORAGER_RATE_LIMIT",
	"search.keywords":     "FORAGER_KEYWORDS",
	"search.radius":       "FORAGER_RADIUS",
	"search.language":     "FORAGER_LANGUAGE",
	"search.page_delay":   "FORAGER_PAGE_DELAY",
	"search.timeout":      "FORAGER_REQUEST_TIMEOUT",
	"loader.batch_size":   "FORAGER_BATCH_SIZE",
	"loader.table":        "FORAGER_TABLE",
	"postgres.host":       "DB_HOST",
	"postgres.port":       "DB_PORT",
	"postgres.user":       "DB_USERNAME",
	"postgres.password":   "DB_PASSWORD",
	"postgres.db_name":    "DB_NAME",
	"kafka.brokers":       "KAFKA_BROKERS",
	"kafka.topic":         "KAFKA_TOPIC",
	"snapshot.endpoint":   "MINIO_ENDPOINT",
	"snapshot.access_key": "MINIO_ACCESS_KEY",
	"snapshot.secret_key": "MINIO_SECRET_KEY",
	"snapshot.bucket":     "MINIO_BUCKET",
	"snapshot.use_ssl":    "MINIO_USE_SSL",
	"metrics.pushgateway": "FORAGER_PUSHGATEWAY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "production")
	v.SetDefault("port", 8080)
	v.SetDefault("interval", "24h")
	v.SetDefault("provider.type", "rest")
	v.SetDefault("provider.rate_limit", 10)
	v.SetDefault("search.keywords", []string{"vegan", "gluten free"})
	v.SetDefault("search.radius", 25000)
	v.SetDefault("search.language", "en")
	v.SetDefault("search.page_delay", "2s")
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("loader.batch_size", 50)
	v.SetDefault("loader.table", "places")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.db_name", "postgres")
	v.SetDefault("kafka.topic", "places.discovered")
	v.SetDefault("snapshot.bucket", "forager-runs")
}

// Load reads the configuration from the environment, an optional .env file and,
// when path is not empty, a YAML config file. Environment variables win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if len(cfg.Search.Targets) == 0 {
		cfg.Search.Targets = DefaultTargets()
	}
	cfg.Search.Keywords = splitList(cfg.Search.Keywords)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// splitList trims entries and expands comma separated values coming from the environment.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) validate() error {
	required := []struct {
		value string
		env   string
	}{
		{c.Provider.APIKey, "FORAGER_PLACES_KEY"},
		{c.Database.Host, "DB_HOST"},
		{c.Database.Password, "DB_PASSWORD"},
	}
	var errs []error
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%w: %s", ErrMissingSetting, r.env))
		}
	}

	if len(c.Search.Keywords) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one keyword", ErrMissingSetting))
	}
	if c.Loader.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.Loader.BatchSize))
	}
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}

	return errors.Join(errs...)
}
