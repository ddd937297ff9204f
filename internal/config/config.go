package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Realtime RealtimeConfig `yaml:"realtime"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	UseTLS   bool   `yaml:"use_tls"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	TokenTTL  int    `yaml:"token_ttl_hours"`
}

type RealtimeConfig struct {
	Addr                string `yaml:"addr"`
	HandshakeTimeoutSec int    `yaml:"handshake_timeout_sec"`
	ReapIntervalSec     int    `yaml:"reap_interval_sec"`
	IdleThresholdSec    int    `yaml:"idle_threshold_sec"`
	OutboundQueueSize   int    `yaml:"outbound_queue_size"`
}

func (r RealtimeConfig) HandshakeTimeout() time.Duration {
	return time.Duration(r.HandshakeTimeoutSec) * time.Second
}

func (r RealtimeConfig) ReapInterval() time.Duration {
	return time.Duration(r.ReapIntervalSec) * time.Second
}

func (r RealtimeConfig) IdleThreshold() time.Duration {
	return time.Duration(r.IdleThresholdSec) * time.Second
}

func defaults() Config {
	return Config{
		Database: DatabaseConfig{Port: 5432, SSLMode: "disable", MaxConns: 10},
		RabbitMQ: RabbitMQConfig{Port: 5672, VHost: "/"},
		HTTP:     HTTPConfig{Port: 3000},
		Auth:     AuthConfig{TokenTTL: 24},
		Realtime: RealtimeConfig{
			Addr:                ":3001",
			HandshakeTimeoutSec: 30,
			ReapIntervalSec:     120,
			IdleThresholdSec:    300,
			OutboundQueueSize:   32,
		},
	}
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Realtime.OutboundQueueSize <= 0 {
		return fmt.Errorf("realtime.outbound_queue_size must be positive")
	}
	return nil
}
