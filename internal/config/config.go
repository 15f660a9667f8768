package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration.
type Config struct {
	// Stockfish settings
	Stockfish StockfishConfig

	// Engine pool sizing
	EnginePoolSize int

	// Worker supervisor settings
	WorkerCount          int
	WorkerMinRestartWait time.Duration

	// Analysis defaults
	DefaultDepth    int
	ShallowDepth    int
	MaxDepth        int
	MinDepth        int
	AnalysisTimeout time.Duration

	// Phase-1 criticality threshold, in pawns
	CriticalSwingPawns float64

	// Evaluation cache
	CacheCapacity int

	// Job queue
	RedisURL          string
	StallMaxAge       time.Duration
	StallReapInterval time.Duration
	ResultTTL         time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// StockfishConfig holds engine-process-specific settings.
type StockfishConfig struct {
	BinaryPath string
	Threads    int
	Hash       int // MB
	MultiPV    int
}

// Load loads configuration from the environment, optionally seeded by a
// ".env" file in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Stockfish: StockfishConfig{
			BinaryPath: getEnv("STOCKFISH_PATH", "/usr/local/bin/stockfish"),
			Threads:    getEnvInt("STOCKFISH_THREADS", 4),
			Hash:       getEnvInt("STOCKFISH_HASH", 2048),
			MultiPV:    getEnvInt("STOCKFISH_MULTI_PV", 1),
		},

		EnginePoolSize: getEnvInt("ENGINE_POOL_SIZE", 6),

		WorkerCount:          getEnvInt("WORKER_COUNT", 2),
		WorkerMinRestartWait: time.Duration(getEnvInt("WORKER_MIN_RESTART_WAIT_SECONDS", 5)) * time.Second,

		DefaultDepth:    getEnvInt("DEFAULT_DEPTH", 20),
		ShallowDepth:    getEnvInt("SHALLOW_DEPTH", 10),
		MaxDepth:        getEnvInt("MAX_DEPTH", 30),
		MinDepth:        getEnvInt("MIN_DEPTH", 1),
		AnalysisTimeout: time.Duration(getEnvInt("ANALYSIS_TIMEOUT_SECONDS", 60)) * time.Second,

		CriticalSwingPawns: getEnvFloat("CRITICAL_SWING_PAWNS", 0.7),

		CacheCapacity: getEnvInt("EVAL_CACHE_CAPACITY", 10000),

		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		StallMaxAge:       time.Duration(getEnvInt("STALL_MAX_AGE_SECONDS", 1800)) * time.Second,
		StallReapInterval: time.Duration(getEnvInt("STALL_REAP_INTERVAL_SECONDS", 300)) * time.Second,
		ResultTTL:         time.Duration(getEnvInt("RESULT_TTL_SECONDS", 86400)) * time.Second,

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
