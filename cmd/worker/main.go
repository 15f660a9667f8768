package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rajutkarsh07/chess-analysis-service/internal/analyzer"
	"github.com/rajutkarsh07/chess-analysis-service/internal/cache"
	"github.com/rajutkarsh07/chess-analysis-service/internal/config"
	"github.com/rajutkarsh07/chess-analysis-service/internal/engine"
	"github.com/rajutkarsh07/chess-analysis-service/internal/pool"
	"github.com/rajutkarsh07/chess-analysis-service/internal/queue"
	"github.com/rajutkarsh07/chess-analysis-service/internal/store"
	"github.com/rajutkarsh07/chess-analysis-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	logger.Info("starting chess analysis worker",
		zap.Int("workers", cfg.WorkerCount),
		zap.String("redis", cfg.RedisURL))

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

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal("invalid redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.AnalysisTimeout)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to reach redis", zap.Error(err))
	}
	cancel()

	jobQueue := queue.NewRedis(redisClient, "chessanalysis")
	gameStore := store.NewMemoryStore()

	supervisor := worker.NewSupervisor(jobQueue, a, gameStore, logger, worker.Config{
		Count:             cfg.WorkerCount,
		MinRestartWait:    cfg.WorkerMinRestartWait,
		FullDepth:         cfg.DefaultDepth,
		ResultTTL:         cfg.ResultTTL,
		StallMaxAge:       cfg.StallMaxAge,
		StallReapInterval: cfg.StallReapInterval,
	})

	runCtx, runCancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		supervisor.Run(runCtx)
		close(runDone)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", zap.String("signal", sig.String()))

	runCancel()
	<-runDone
	logger.Info("worker pool stopped")
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
