package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends accepted by Config.Storage.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is the full server configuration.
type Config struct {
	Server   Server         `toml:"server"`
	Storage  string         `toml:"storage"` // "memory", "sqlite" or "postgres"
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Kafka    KafkaConfig    `toml:"kafka"`
	Outbox   OutboxConfig   `toml:"outbox"`
	Log      LogConfig      `toml:"log"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string        `toml:"addr"`
	JWTSigningKey string        `toml:"jwt_signing_key"`
	JWTIssuer     string        `toml:"jwt_issuer"`
	ShutdownGrace time.Duration `toml:"shutdown_grace"`
}

// DatabaseConfig selects the SQL backend. URL is used for postgres, SQLitePath for sqlite.
type DatabaseConfig struct {
	URL          string `toml:"url"`
	SQLitePath   string `toml:"sqlite_path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig configures the optional certificate cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `toml:"url"`
	TTL          time.Duration `toml:"ttl"`
	PoolSize     int           `toml:"pool_size"`
	MinIdleConns int           `toml:"min_idle_conns"`
	DialTimeout  time.Duration `toml:"dial_timeout"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

// KafkaConfig configures the notification stream. No brokers means events are logged.
type KafkaConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

// OutboxConfig tunes the outbox worker.
type OutboxConfig struct {
	BatchSize int           `toml:"batch_size"`
	Interval  time.Duration `toml:"interval"`
	Retention time.Duration `toml:"retention"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Server: Server{
			Addr:          ":8080",
			JWTSigningKey: "dev-secret-key-change-in-production",
			JWTIssuer:     "warranty",
			ShutdownGrace: 10 * time.Second,
		},
		Storage: StorageMemory,
		Database: DatabaseConfig{
			SQLitePath:   "warranty.db",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Redis: RedisConfig{
			TTL:          time.Hour,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "warranty.events",
		},
		Outbox: OutboxConfig{
			BatchSize: 100,
			Interval:  time.Second,
			Retention: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional TOML file named by
// WARRANTY_CONFIG, and environment overrides, in that order.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := getenv("WARRANTY_CONFIG"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		if err := Decode(f, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode overlays the TOML document in r onto cfg. Durations are written as strings ("5s").
func Decode(r io.Reader, cfg *Config) error {
	var file fileConfig
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return file.apply(cfg)
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString(&cfg.Server.Addr, getenv("WARRANTY_ADDR"))
	setString(&cfg.Server.JWTSigningKey, getenv("JWT_SIGNING_KEY"))
	setString(&cfg.Server.JWTIssuer, getenv("JWT_ISSUER"))
	setString(&cfg.Storage, strings.ToLower(getenv("WARRANTY_STORAGE")))
	setString(&cfg.Database.URL, getenv("DATABASE_URL"))
	setString(&cfg.Database.SQLitePath, getenv("SQLITE_PATH"))
	setString(&cfg.Redis.URL, getenv("REDIS_URL"))
	setString(&cfg.Kafka.Topic, getenv("KAFKA_TOPIC"))
	setString(&cfg.Log.Level, getenv("LOG_LEVEL"))
	setString(&cfg.Log.Format, getenv("LOG_FORMAT"))
	if brokers := getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = splitList(brokers)
	}
	if v := getenv("REDIS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_TTL: %w", err)
		}
		cfg.Redis.TTL = d
	}
	if v := getenv("OUTBOX_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %w", err)
		}
		cfg.Outbox.BatchSize = n
	}
	if v := getenv("OUTBOX_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid OUTBOX_INTERVAL: %w", err)
		}
		cfg.Outbox.Interval = d
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("postgres storage requires DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage))
	}
	if c.Storage == StorageMemory && c.Redis.URL != "" {
		errs = append(errs, errors.New("redis cache requires sqlite or postgres storage"))
	}
	if c.Storage == StorageSQLite && c.Database.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite storage requires SQLITE_PATH"))
	}
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("jwt signing key is required"))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = append(errs, errors.New("outbox batch size must be positive"))
	}
	if c.Outbox.Interval <= 0 {
		errs = append(errs, errors.New("outbox interval must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
