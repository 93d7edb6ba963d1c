package app

import (
	"errors"
	"fmt"
	"time"
)

const (
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
	StoreMemory = "memory"

	DefaultStoreTimeout = 2 * time.Second
)

type AppConfig struct {
	Secret                string        `json:"-"`
	Host                  string        `json:"host"`
	Port                  int           `json:"port"`
	LogLevel              string        `json:"log_level"`
	Store                 string        `json:"store"`
	BoltPath              string        `json:"bolt_path"`
	RedisHost             string        `json:"redis_host"`
	RedisPort             int           `json:"redis_port"`
	RedisPassword         string        `json:"-"`
	StoreTimeout          time.Duration `json:"store_timeout"`
	RecordTTL             time.Duration `json:"record_ttl"`
	SyncInterval          time.Duration `json:"sync_interval"`
	ChatInterval          time.Duration `json:"chat_interval"`
	PresenceWindow        time.Duration `json:"presence_window"`
	PresenceSweepInterval time.Duration `json:"presence_sweep_interval"`
	ChatHistoryLimit      int           `json:"chat_history_limit"`
	PushTransport         bool          `json:"push_transport"`
	SeedDemo              bool          `json:"seed_demo"`
	TokenTTL              time.Duration `json:"token_ttl"`
}

func (cfg *AppConfig) Validate() error {
	var errs []error

	if cfg.Secret == "" {
		errs = append(errs, errors.New("secret is required"))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", cfg.Port))
	}
	if err := cfg.StoreConfig().Validate(); err != nil {
		errs = append(errs, err)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"sync interval", cfg.SyncInterval},
		{"chat interval", cfg.ChatInterval},
		{"presence window", cfg.PresenceWindow},
		{"presence sweep interval", cfg.PresenceSweepInterval},
		{"token ttl", cfg.TokenTTL},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be greater than 0", d.name))
		}
	}

	if cfg.ChatHistoryLimit < 1 {
		errs = append(errs, errors.New("chat history limit must be greater than 0"))
	}
	if cfg.RecordTTL < 0 {
		errs = append(errs, errors.New("record ttl must not be negative"))
	}

	return errors.Join(errs...)
}

func (cfg *AppConfig) StoreConfig() *StoreConfig {
	return &StoreConfig{
		Kind:          cfg.Store,
		BoltPath:      cfg.BoltPath,
		RedisHost:     cfg.RedisHost,
		RedisPort:     cfg.RedisPort,
		RedisPassword: cfg.RedisPassword,
		OpTimeout:     cfg.StoreTimeout,
		RecordTTL:     cfg.RecordTTL,
	}
}
