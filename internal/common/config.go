package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extract    ExtractConfig
	Cache      CacheConfig
	Mapping    MappingConfig
	Pipeline   PipelineConfig
	Clustering ClusteringConfig
}

// DatabaseConfig holds database-related configuration. DSN accepts either a
// postgres:// URL or a sqlite file path.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr string
}

// ExtractConfig holds collaborator endpoints for layout partitioning,
// field inference and suggestion generation.
type ExtractConfig struct {
	PartitionURL      string
	InferenceURL      string
	SuggestURL        string
	APIKey            string
	PartitionStrategy string
	FieldTimeout      time.Duration
	SuggestTimeout    time.Duration
}

// CacheConfig holds fingerprint-cache configuration
type CacheConfig struct {
	TTL time.Duration
}

// MappingConfig holds adaptive-mapper configuration
type MappingConfig struct {
	PatternDir     string
	FuzzyThreshold float64
}

// PipelineConfig holds orchestrator behavior flags
type PipelineConfig struct {
	ExtractAttempts int
	RetryDelay      time.Duration
}

// ClusteringConfig holds spatial-clustering tunables
type ClusteringConfig struct {
	MinEpsilon float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "formpipe.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Extract: ExtractConfig{
			PartitionURL:      getEnv("PARTITION_URL", ""),
			InferenceURL:      getEnv("INFERENCE_URL", ""),
			SuggestURL:        getEnv("SUGGEST_URL", ""),
			APIKey:            getEnv("EXTRACT_API_KEY", ""),
			PartitionStrategy: getEnv("PARTITION_STRATEGY", "hi_res"),
			FieldTimeout:      getEnvAsDuration("FIELD_EXTRACT_TIMEOUT", 30*time.Second),
			SuggestTimeout:    getEnvAsDuration("SUGGEST_TIMEOUT", 20*time.Second),
		},
		Cache: CacheConfig{
			TTL: getEnvAsDuration("CACHE_TTL", 24*time.Hour),
		},
		Mapping: MappingConfig{
			PatternDir:     getEnv("PATTERN_DIR", "./configs/patterns"),
			FuzzyThreshold: getEnvAsFloat64("MAPPING_FUZZY_THRESHOLD", 0.72),
		},
		Pipeline: PipelineConfig{
			ExtractAttempts: getEnvAsInt("EXTRACT_ATTEMPTS", 3),
			RetryDelay:      getEnvAsDuration("EXTRACT_RETRY_DELAY", 500*time.Millisecond),
		},
		Clustering: ClusteringConfig{
			MinEpsilon: getEnvAsFloat64("CLUSTER_MIN_EPSILON", 50),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration. Failures here are fatal at
// startup and never recoverable per request.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrConfiguration)
	}
	if c.Extract.PartitionURL == "" {
		return NewAppError("CONFIG_ERROR", "PARTITION_URL is required", ErrConfiguration)
	}
	if c.Extract.InferenceURL == "" {
		return NewAppError("CONFIG_ERROR", "INFERENCE_URL is required", ErrConfiguration)
	}
	if c.Extract.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "EXTRACT_API_KEY is required", ErrConfiguration)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrConfiguration)
	}
	return nil
}
