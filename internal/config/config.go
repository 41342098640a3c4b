package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hulubedeje/hms/internal/platform/docstore"
)

type Config struct {
	Port             string        `mapstructure:"PORT"`
	Env              string        `mapstructure:"ENV"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DatabaseName     string        `mapstructure:"DATABASE_NAME"`
	DBMaxConns       int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns       int32         `mapstructure:"DB_MIN_CONNS"`
	DBConnectTimeout time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`
	CORSOrigins      []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit        string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	KafkaBrokers     string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic       string        `mapstructure:"KAFKA_TOPIC"`
	PublishTimeout   time.Duration `mapstructure:"EVENT_PUBLISH_TIMEOUT"`
}

// Load reads .env (if present) and the environment. A missing DATABASE_URL
// is not an error: the server starts and reports the store as unavailable.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("KAFKA_TOPIC", "hms.records")
	v.SetDefault("EVENT_PUBLISH_TIMEOUT", "5s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DATABASE_NAME", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_CONNECT_TIMEOUT", "CORS_ORIGINS", "BODY_LIMIT", "REQUEST_TIMEOUT", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"EVENT_PUBLISH_TIMEOUT",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// StoreConfigured reports whether both the connection string and database
// name are present.
func (c *Config) StoreConfigured() bool {
	return c.DatabaseURL != "" && c.DatabaseName != ""
}

// EventsEnabled reports whether record events should go to Kafka.
func (c *Config) EventsEnabled() bool {
	return strings.TrimSpace(c.KafkaBrokers) != ""
}

// Store returns the gateway configuration.
func (c *Config) Store() docstore.Config {
	return docstore.Config{
		URL:            c.DatabaseURL,
		Database:       c.DatabaseName,
		MaxConns:       c.DBMaxConns,
		MinConns:       c.DBMinConns,
		ConnectTimeout: c.DBConnectTimeout,
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DBMaxConns < 0 || c.DBMinConns < 0 {
		return fmt.Errorf("DB_MAX_CONNS and DB_MIN_CONNS must not be negative")
	}
	if c.DBMaxConns > 0 && c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.DBConnectTimeout < 0 || c.RequestTimeout < 0 || c.PublishTimeout < 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT, REQUEST_TIMEOUT and EVENT_PUBLISH_TIMEOUT must not be negative")
	}
	if c.DatabaseURL != "" {
		switch docstore.Scheme(c.DatabaseURL) {
		case "mongodb", "mongodb+srv", "postgres", "postgresql", "memory":
		default:
			return fmt.Errorf("DATABASE_URL scheme %q is not supported", docstore.Scheme(c.DatabaseURL))
		}
	}
	return nil
}
