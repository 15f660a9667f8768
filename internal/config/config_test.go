package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"STOCKFISH_PATH", "STOCKFISH_THREADS", "ENGINE_POOL_SIZE", "WORKER_COUNT",
		"CRITICAL_SWING_PAWNS", "REDIS_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Stockfish.BinaryPath != "/usr/local/bin/stockfish" {
		t.Errorf("Stockfish.BinaryPath = %q, want default", cfg.Stockfish.BinaryPath)
	}
	if cfg.EnginePoolSize != 6 {
		t.Errorf("EnginePoolSize = %d, want 6", cfg.EnginePoolSize)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("WorkerCount = %d, want 2", cfg.WorkerCount)
	}
	if cfg.CriticalSwingPawns != 0.7 {
		t.Errorf("CriticalSwingPawns = %v, want 0.7", cfg.CriticalSwingPawns)
	}
	if cfg.AnalysisTimeout != 60*time.Second {
		t.Errorf("AnalysisTimeout = %v, want 60s", cfg.AnalysisTimeout)
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("STOCKFISH_THREADS", "8")
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("CRITICAL_SWING_PAWNS", "1.25")
	t.Setenv("REDIS_URL", "redis://example:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Stockfish.Threads != 8 {
		t.Errorf("Stockfish.Threads = %d, want 8", cfg.Stockfish.Threads)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount = %d, want 4", cfg.WorkerCount)
	}
	if cfg.CriticalSwingPawns != 1.25 {
		t.Errorf("CriticalSwingPawns = %v, want 1.25", cfg.CriticalSwingPawns)
	}
	if cfg.RedisURL != "redis://example:6380" {
		t.Errorf("RedisURL = %q, want override", cfg.RedisURL)
	}
}

func TestGetEnvIntIgnoresUnparseableValue(t *testing.T) {
	t.Setenv("SOME_INT_KEY", "not-a-number")
	if got := getEnvInt("SOME_INT_KEY", 42); got != 42 {
		t.Errorf("getEnvInt() = %d, want the default 42 for an unparseable value", got)
	}
}

func TestGetEnvFloatIgnoresUnparseableValue(t *testing.T) {
	t.Setenv("SOME_FLOAT_KEY", "nope")
	if got := getEnvFloat("SOME_FLOAT_KEY", 3.5); got != 3.5 {
		t.Errorf("getEnvFloat() = %v, want the default 3.5 for an unparseable value", got)
	}
}

func TestGetEnvFallsBackWhenUnset(t *testing.T) {
	t.Setenv("UNSET_KEY", "")
	if got := getEnv("UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("getEnv() = %q, want fallback", got)
	}
}
