package config

import (
	"fmt"
	"time"
)

// fileConfig mirrors Config with optional fields so a partial TOML file only
// overrides what it names.
type fileConfig struct {
	Server *struct {
		Addr          *string `toml:"addr"`
		JWTSigningKey *string `toml:"jwt_signing_key"`
		JWTIssuer     *string `toml:"jwt_issuer"`
		ShutdownGrace *string `toml:"shutdown_grace"`
	} `toml:"server"`
	Storage  *string `toml:"storage"`
	Database *struct {
		URL          *string `toml:"url"`
		SQLitePath   *string `toml:"sqlite_path"`
		MaxOpenConns *int    `toml:"max_open_conns"`
		MaxIdleConns *int    `toml:"max_idle_conns"`
	} `toml:"database"`
	Redis *struct {
		URL      *string `toml:"url"`
		TTL      *string `toml:"ttl"`
		PoolSize *int    `toml:"pool_size"`
	} `toml:"redis"`
	Kafka *struct {
		Brokers []string `toml:"brokers"`
		Topic   *string  `toml:"topic"`
	} `toml:"kafka"`
	Outbox *struct {
		BatchSize *int    `toml:"batch_size"`
		Interval  *string `toml:"interval"`
		Retention *string `toml:"retention"`
	} `toml:"outbox"`
	Log *struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
}

func (f fileConfig) apply(cfg *Config) error {
	if s := f.Server; s != nil {
		copyString(&cfg.Server.Addr, s.Addr)
		copyString(&cfg.Server.JWTSigningKey, s.JWTSigningKey)
		copyString(&cfg.Server.JWTIssuer, s.JWTIssuer)
		if err := copyDuration(&cfg.Server.ShutdownGrace, s.ShutdownGrace, "server.shutdown_grace"); err != nil {
			return err
		}
	}
	copyString(&cfg.Storage, f.Storage)
	if d := f.Database; d != nil {
		copyString(&cfg.Database.URL, d.URL)
		copyString(&cfg.Database.SQLitePath, d.SQLitePath)
		copyInt(&cfg.Database.MaxOpenConns, d.MaxOpenConns)
		copyInt(&cfg.Database.MaxIdleConns, d.MaxIdleConns)
	}
	if r := f.Redis; r != nil {
		copyString(&cfg.Redis.URL, r.URL)
		copyInt(&cfg.Redis.PoolSize, r.PoolSize)
		if err := copyDuration(&cfg.Redis.TTL, r.TTL, "redis.ttl"); err != nil {
			return err
		}
	}
	if k := f.Kafka; k != nil {
		if k.Brokers != nil {
			cfg.Kafka.Brokers = k.Brokers
		}
		copyString(&cfg.Kafka.Topic, k.Topic)
	}
	if o := f.Outbox; o != nil {
		copyInt(&cfg.Outbox.BatchSize, o.BatchSize)
		if err := copyDuration(&cfg.Outbox.Interval, o.Interval, "outbox.interval"); err != nil {
			return err
		}
		if err := copyDuration(&cfg.Outbox.Retention, o.Retention, "outbox.retention"); err != nil {
			return err
		}
	}
	if l := f.Log; l != nil {
		copyString(&cfg.Log.Level, l.Level)
		copyString(&cfg.Log.Format, l.Format)
	}
	return nil
}

func copyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func copyInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func copyDuration(dst *time.Duration, src *string, field string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	*dst = d
	return nil
}
