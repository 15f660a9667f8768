package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rajutkarsh07/chess-analysis-service/internal/analyzer"
	"github.com/rajutkarsh07/chess-analysis-service/internal/cache"
	"github.com/rajutkarsh07/chess-analysis-service/internal/config"
	"github.com/rajutkarsh07/chess-analysis-service/internal/engine"
	"github.com/rajutkarsh07/chess-analysis-service/internal/pool"
)

func main() {
	pgnPath := flag.String("pgn", "", "path to a PGN file (defaults to stdin)")
	gameID := flag.String("game-id", "cli-game", "identifier to tag the analysis with")
	depth := flag.Int("depth", 0, "full-phase search depth (0 = config default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	pgn, err := readPGN(*pgnPath)
	if err != nil {
		logger.Fatal("failed to read PGN", zap.Error(err))
	}

	engineConfig := engine.Config{
		BinaryPath: cfg.Stockfish.BinaryPath,
		Threads:    cfg.Stockfish.Threads,
		Hash:       cfg.Stockfish.Hash,
		MultiPV:    cfg.Stockfish.MultiPV,
	}

	enginePool, err := pool.NewPool(cfg.EnginePoolSize, engineConfig, logger)
	if err != nil {
		logger.Fatal("failed to create engine pool", zap.Error(err))
	}
	defer enginePool.Close()

	evalCache := cache.New(cfg.CacheCapacity)

	analyzerCfg := analyzer.DefaultConfig()
	analyzerCfg.ShallowDepth = cfg.ShallowDepth
	analyzerCfg.FullDepth = cfg.DefaultDepth
	analyzerCfg.CriticalSwingPawns = cfg.CriticalSwingPawns
	analyzerCfg.AnalysisTimeout = cfg.AnalysisTimeout

	a := analyzer.New(enginePool, evalCache, logger, analyzerCfg)

	fullDepth := *depth
	if fullDepth <= 0 {
		fullDepth = cfg.DefaultDepth
	}

	result, err := a.AnalyzeGame(context.Background(), *gameID, pgn, fullDepth)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.Fatal("failed to encode result", zap.Error(err))
	}
}

func readPGN(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read PGN: %w", err)
	}
	return string(data), nil
}

func setupLogger(level string, format string) *zap.Logger {
	var logLevel zapcore.Level
	switch level {
	case "debug":
		logLevel = zapcore.DebugLevel
	case "info":
		logLevel = zapcore.InfoLevel
	case "warn":
		logLevel = zapcore.WarnLevel
	case "error":
		logLevel = zapcore.ErrorLevel
	default:
		logLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
