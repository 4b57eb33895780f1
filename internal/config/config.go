// Package config loads server configuration from the environment, with
// optional .env support for local development and an optional YAML file
// pointed at by CONFIG_FILE. Environment variables win over the file,
// the file wins over built-in defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Store     StoreConfig
	Retention RetentionConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	MaxPayloadBytes int64
	ShutdownTimeout time.Duration
}

type EngineConfig struct {
	MaxChanges               int
	ProcessingTimeout        time.Duration
	DefaultDuplicateStrategy string
	StrictSchema             bool
	IdempotencyTTL           time.Duration
}

type StoreConfig struct {
	// Path is the SQLite database file; empty means in-memory.
	Path string
}

type RetentionConfig struct {
	MaxAge        time.Duration
	MaxCount      int
	PollGrace     time.Duration
	SweepInterval time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// fileConfig mirrors Config for the YAML override file. Pointer fields
// distinguish "absent" from zero values; durations stay strings so the
// file uses the same "30s" notation as the environment.
type fileConfig struct {
	Server struct {
		Host            *string `yaml:"host"`
		Port            *string `yaml:"port"`
		MaxPayloadBytes *int    `yaml:"maxPayloadBytes"`
		ShutdownTimeout *string `yaml:"shutdownTimeout"`
	} `yaml:"server"`
	Engine struct {
		MaxChanges        *int    `yaml:"maxChanges"`
		ProcessingTimeout *string `yaml:"processingTimeout"`
		DuplicateStrategy *string `yaml:"duplicateStrategy"`
		StrictSchema      *bool   `yaml:"strictSchema"`
		IdempotencyTTL    *string `yaml:"idempotencyTTL"`
	} `yaml:"engine"`
	Store struct {
		Path *string `yaml:"path"`
	} `yaml:"store"`
	Retention struct {
		MaxAge        *string `yaml:"maxAge"`
		MaxCount      *int    `yaml:"maxCount"`
		PollGrace     *string `yaml:"pollGrace"`
		SweepInterval *string `yaml:"sweepInterval"`
	} `yaml:"retention"`
	Logging struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads configuration. A .env file in the working directory is
// merged into the environment first when present; a YAML file named by
// CONFIG_FILE supplies defaults that individual environment variables
// can still override.
func Load() (*Config, error) {
	godotenv.Load()

	fc, err := loadFileConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := resolveDuration("SERVER_SHUTDOWN_TIMEOUT",
		fc.Server.ShutdownTimeout, "server.shutdownTimeout", 10*time.Second)
	if err != nil {
		return nil, err
	}
	processingTimeout, err := resolveDuration("ENGINE_PROCESSING_TIMEOUT",
		fc.Engine.ProcessingTimeout, "engine.processingTimeout", 30*time.Second)
	if err != nil {
		return nil, err
	}
	idempotencyTTL, err := resolveDuration("ENGINE_IDEMPOTENCY_TTL",
		fc.Engine.IdempotencyTTL, "engine.idempotencyTTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	retentionAge, err := resolveDuration("RETENTION_MAX_AGE",
		fc.Retention.MaxAge, "retention.maxAge", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	pollGrace, err := resolveDuration("RETENTION_POLL_GRACE",
		fc.Retention.PollGrace, "retention.pollGrace", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	sweepInterval, err := resolveDuration("RETENTION_SWEEP_INTERVAL",
		fc.Retention.SweepInterval, "retention.sweepInterval", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	strategy := getEnv("ENGINE_DUPLICATE_STRATEGY", pickString(fc.Engine.DuplicateStrategy, "error"))
	switch strategy {
	case "error", "reuse", "rename":
	default:
		return nil, fmt.Errorf("invalid ENGINE_DUPLICATE_STRATEGY %q", strategy)
	}

	return &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", pickString(fc.Server.Host, "127.0.0.1")),
			Port:            getEnv("PORT", pickString(fc.Server.Port, "8184")),
			MaxPayloadBytes: int64(getEnvAsInt("SERVER_MAX_PAYLOAD_BYTES", pickInt(fc.Server.MaxPayloadBytes, 4<<20))),
			ShutdownTimeout: shutdownTimeout,
		},
		Engine: EngineConfig{
			MaxChanges:               getEnvAsInt("ENGINE_MAX_CHANGES", pickInt(fc.Engine.MaxChanges, 500)),
			ProcessingTimeout:        processingTimeout,
			DefaultDuplicateStrategy: strategy,
			StrictSchema:             getEnvAsBool("ENGINE_STRICT_SCHEMA", pickBool(fc.Engine.StrictSchema, true)),
			IdempotencyTTL:           idempotencyTTL,
		},
		Store: StoreConfig{
			Path: getEnv("STORE_PATH", pickString(fc.Store.Path, "archplan.db")),
		},
		Retention: RetentionConfig{
			MaxAge:        retentionAge,
			MaxCount:      getEnvAsInt("RETENTION_MAX_COUNT", pickInt(fc.Retention.MaxCount, 1000)),
			PollGrace:     pollGrace,
			SweepInterval: sweepInterval,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", pickString(fc.Logging.Level, "info")),
			Format: getEnv("LOG_FORMAT", pickString(fc.Logging.Format, "text")),
		},
	}, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

func pickString(file *string, def string) string {
	if file != nil {
		return *file
	}
	return def
}

func pickInt(file *int, def int) int {
	if file != nil {
		return *file
	}
	return def
}

func pickBool(file *bool, def bool) bool {
	if file != nil {
		return *file
	}
	return def
}

// resolveDuration applies the env > file > default precedence for one
// duration knob, naming whichever source held the bad value.
func resolveDuration(envKey string, file *string, fileKey string, def time.Duration) (time.Duration, error) {
	if file != nil {
		d, err := time.ParseDuration(*file)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", fileKey, err)
		}
		def = d
	}
	return getEnvAsDuration(envKey, def)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
