package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the anomaly detection server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// WorkerConfig describes how the detection worker process is launched.
// The worker is invoked as: Command Script <videoPath> <framesDir>.
type WorkerConfig struct {
	Command string
	Script  string
	Timeout time.Duration
}

type StorageConfig struct {
	UploadDir      string
	FramesDir      string
	MaxUploadBytes int64
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("ANOMALY_PORT", 8080),
			Env:             envString("ANOMALY_ENV", "development"),
			RateLimitPerMin: envInt("ANOMALY_RATE_LIMIT_PER_MIN", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Worker: WorkerConfig{
			Command: envString("ANOMALY_WORKER_COMMAND", "python3"),
			Script:  os.Getenv("ANOMALY_WORKER_SCRIPT"),
			Timeout: envDurationSecs("ANOMALY_WORKER_TIMEOUT_SECS", 120*time.Second),
		},
		Storage: StorageConfig{
			UploadDir:      envString("ANOMALY_UPLOAD_DIR", "uploads"),
			FramesDir:      envString("ANOMALY_FRAMES_DIR", "frames"),
			MaxUploadBytes: int64(envInt("ANOMALY_MAX_UPLOAD_MB", 100)) << 20,
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Worker.Script == "" {
		return fmt.Errorf("ANOMALY_WORKER_SCRIPT is required")
	}
	if c.Worker.Timeout <= 0 {
		return fmt.Errorf("ANOMALY_WORKER_TIMEOUT_SECS must be positive")
	}

	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("ANOMALY_MAX_UPLOAD_MB must be positive")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
