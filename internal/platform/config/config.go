// Package config loads service configuration: built-in defaults, then an
// optional TOML file named by PEDCARE_CONFIG, then environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"pedcare/pkg/platform/audit/sink"
	platformstrings "pedcare/pkg/platform/strings"
)

// ConfigPathEnv names the variable holding the TOML config path.
const ConfigPathEnv = "PEDCARE_CONFIG"

type Config struct {
	Server   Server         `toml:"server"`
	Audit    AuditConfig    `toml:"audit"`
	Postgres PostgresConfig `toml:"postgres"`
	SQLite   SQLiteConfig   `toml:"sqlite"`
	Redis    RedisConfig    `toml:"redis"`
	Kafka    KafkaConfig    `toml:"kafka"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `toml:"addr"`
	JWTSigningKey   string        `toml:"jwt_signing_key"`
	JWTIssuer       string        `toml:"jwt_issuer"`
	LogLevel        string        `toml:"log_level"`
	LogFormat       string        `toml:"log_format"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type AuditConfig struct {
	// IndexedWindows switches the volumetric rules from log rescans to the
	// per-user sliding index.
	IndexedWindows bool   `toml:"indexed_windows"`
	Location       string `toml:"location"`

	BufferSize       int           `toml:"buffer_size"`
	BatchSize        int           `toml:"batch_size"`
	FlushInterval    time.Duration `toml:"flush_interval"`
	WriteTimeout     time.Duration `toml:"write_timeout"`
	FailureThreshold int           `toml:"failure_threshold"`
	SuccessThreshold int           `toml:"success_threshold"`
	Cooldown         time.Duration `toml:"cooldown"`
}

type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

type SQLiteConfig struct {
	Path string `toml:"path"`
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `toml:"url"`
	PoolSize     int           `toml:"pool_size"`
	MinIdleConns int           `toml:"min_idle_conns"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

func Default() *Config {
	d := sink.DefaultConfig()
	return &Config{
		Server: Server{
			Addr: ":8080",
			// Use a default for development - should be overridden in production
			JWTSigningKey:   "radychildrenhospital",
			JWTIssuer:       "pedcare",
			LogLevel:        "info",
			LogFormat:       "json",
			ShutdownTimeout: 10 * time.Second,
		},
		Audit: AuditConfig{
			Location:         "Local",
			BufferSize:       d.BufferSize,
			BatchSize:        d.BatchSize,
			FlushInterval:    d.FlushInterval,
			WriteTimeout:     d.WriteTimeout,
			FailureThreshold: d.FailureThreshold,
			SuccessThreshold: d.SuccessThreshold,
			Cooldown:         d.Cooldown,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "pedcare.audit.events",
		},
	}
}

// Load reads the file at path over the defaults. A missing file is not an
// error; an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// FromEnv loads the file named by PEDCARE_CONFIG and applies environment
// overrides, so main stays lean.
func FromEnv() (*Config, error) {
	cfg, err := Load(os.Getenv(ConfigPathEnv))
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PEDCARE_ADDR", &c.Server.Addr)
	str("JWT_SIGNING_KEY", &c.Server.JWTSigningKey)
	str("JWT_ISSUER", &c.Server.JWTIssuer)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("LOG_FORMAT", &c.Server.LogFormat)
	str("AUDIT_LOCATION", &c.Audit.Location)
	str("DATABASE_URL", &c.Postgres.DSN)
	str("SQLITE_PATH", &c.SQLite.Path)
	str("REDIS_URL", &c.Redis.URL)
	str("KAFKA_TOPIC", &c.Kafka.Topic)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = platformstrings.SplitList(v)
	}
	if v, ok := lookup("AUDIT_INDEXED_WINDOWS"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AUDIT_INDEXED_WINDOWS: %w", err)
		}
		c.Audit.IndexedWindows = b
	}
	if v, ok := lookup("AUDIT_BUFFER_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AUDIT_BUFFER_SIZE: %w", err)
		}
		c.Audit.BufferSize = n
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.JWTSigningKey == "" {
		return errors.New("server.jwt_signing_key is required")
	}
	if _, err := c.Audit.LoadLocation(); err != nil {
		return err
	}
	if c.Audit.BufferSize <= 0 || c.Audit.BatchSize <= 0 {
		return errors.New("audit.buffer_size and audit.batch_size must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when brokers are set")
	}
	return nil
}

// LoadLocation resolves the timezone used for business hours and day buckets.
func (a AuditConfig) LoadLocation() (*time.Location, error) {
	if a.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Location)
	if err != nil {
		return nil, fmt.Errorf("audit.location: %w", err)
	}
	return loc, nil
}

// Dispatcher converts the audit section into sink dispatcher settings.
func (a AuditConfig) Dispatcher() sink.Config {
	return sink.Config{
		BufferSize:       a.BufferSize,
		BatchSize:        a.BatchSize,
		FlushInterval:    a.FlushInterval,
		WriteTimeout:     a.WriteTimeout,
		FailureThreshold: a.FailureThreshold,
		SuccessThreshold: a.SuccessThreshold,
		Cooldown:         a.Cooldown,
	}
}
