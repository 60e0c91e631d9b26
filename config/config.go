// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/database"
	"github.com/spf13/viper"
)

// DefaultEnvFile is read when present; env vars override it
const DefaultEnvFile = ".env"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// LogLevel is trace, debug, info, warn or error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or console.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// DBDriver is sqlite or postgres.
	DBDriver string `mapstructure:"DB_DRIVER"`
	// DBDSN is the driver specific data source name.
	DBDSN string `mapstructure:"DB_DSN"`

	// JWTSecret signs and verifies session tokens. Required.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTTTL is the token lifetime (e.g. "1h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// JWTIssuer is the optional iss claim.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// BcryptCost is the bcrypt cost factor (4-31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// DataDir holds movies.csv, links.csv, ratings.csv and tags.csv for seeding.
	DataDir string `mapstructure:"DATA_DIR"`

	// KafkaBrokers is a comma-separated broker list. Empty disables image analysis.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// KafkaRequestTopic receives image analysis requests.
	KafkaRequestTopic string `mapstructure:"KAFKA_REQUEST_TOPIC"`
	// KafkaResultTopic is polled for image analysis results.
	KafkaResultTopic string `mapstructure:"KAFKA_RESULT_TOPIC"`

	// MetricsEnabled exposes GET /metrics.
	MetricsEnabled bool `mapstructure:"METRICS_ENABLED"`
}

// Load reads envFile (if present), then builds and validates Config from the
// environment via Viper. A missing file is ignored. Env vars override the file.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "config: failed to decode")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SetDefaults registers every key so AutomaticEnv can resolve it
func SetDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", database.DriverSQLite)
	v.SetDefault("DB_DSN", "file:movielens.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("DATA_DIR", "./data/resources")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_REQUEST_TOPIC", "image_analysis_requests")
	v.SetDefault("KAFKA_RESULT_TOPIC", "image_analysis_results")
	v.SetDefault("METRICS_ENABLED", true)
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set", errors.CategoryBadInput)
	}

	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 bytes", errors.CategoryBadInput)
	}

	switch strings.ToLower(c.DBDriver) {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		return errors.New("config: DB_DRIVER must be sqlite or postgres", errors.CategoryBadInput)
	}

	if d, err := time.ParseDuration(c.JWTTTL); err != nil || d <= 0 {
		return errors.New("config: JWT_TTL must be a positive duration", errors.CategoryBadInput)
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31", errors.CategoryBadInput)
	}

	return nil
}

// TokenTTL parses JWTTTL. Returns 1h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Database returns the store settings
func (c *Config) Database() database.Config {
	return database.Config{
		Driver: c.DBDriver,
		DSN:    c.DBDSN,
	}
}

// Redacted is safe to print
func (c Config) Redacted() Config {
	if c.JWTSecret != "" {
		c.JWTSecret = "********"
	}
	return c
}
