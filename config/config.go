package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Redis     RedisConfig     `yaml:"redis"`
}

type ServerConfig struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver      string `yaml:"driver"` // memory or postgres
	DatabaseURL string `yaml:"database_url"`
}

// UploadsConfig selects where uploaded model and reward files land
type UploadsConfig struct {
	Backend  string `yaml:"backend"` // local or s3
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	S3Prefix string `yaml:"s3_prefix"`
}

type SimulatorConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// RedisConfig enables cross-instance event fan-out when Addr is set
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	UploadsLocal = "local"
	UploadsS3    = "s3"
)

// Default returns the configuration used when no file or environment overrides are given
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", CORSOrigin: "*"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Store: StoreConfig{
			Driver:      StoreMemory,
			DatabaseURL: "postgres://localhost/robot_training_hub?sslmode=disable",
		},
		Uploads: UploadsConfig{
			Backend:  UploadsLocal,
			Dir:      "uploads",
			MaxBytes: 50 << 20,
			S3Region: "us-east-1",
			S3Prefix: "uploads/",
		},
		Simulator: SimulatorConfig{TickInterval: 2 * time.Second},
		Monitor:   MonitorConfig{Interval: 30 * time.Second},
		Redis:     RedisConfig{Channel: "robot-training-hub:events"},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env file and the environment
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.DatabaseURL = getEnv("DATABASE_URL", c.Store.DatabaseURL)
	c.Uploads.Backend = getEnv("UPLOAD_BACKEND", c.Uploads.Backend)
	c.Uploads.Dir = getEnv("UPLOAD_DIR", c.Uploads.Dir)
	c.Uploads.S3Bucket = getEnv("S3_BUCKET", c.Uploads.S3Bucket)
	c.Uploads.S3Region = getEnv("AWS_REGION", c.Uploads.S3Region)
	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)

	if v := os.Getenv("SIMULATOR_TICK_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SIMULATOR_TICK_INTERVAL: %w", err)
		}
		c.Simulator.TickInterval = d
	}
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("UPLOAD_MAX_BYTES: %w", err)
		}
		c.Uploads.MaxBytes = n
	}
	return nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Uploads.Backend {
	case UploadsLocal:
		if c.Uploads.Dir == "" {
			return errors.New("uploads.dir is required for the local backend")
		}
	case UploadsS3:
		if c.Uploads.S3Bucket == "" {
			return errors.New("uploads.s3_bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown uploads backend %q", c.Uploads.Backend)
	}

	if c.Uploads.MaxBytes <= 0 {
		return errors.New("uploads.max_bytes must be positive")
	}
	if c.Simulator.TickInterval <= 0 {
		return errors.New("simulator.tick_interval must be positive")
	}
	if c.Monitor.Interval <= 0 {
		return errors.New("monitor.interval must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
