// Package worker implements the Worker Supervisor of §4.7/§5: a fixed pool
// of goroutines draining the Job Queue, each running a claimed game through
// the two-phase Game Analyzer and publishing progressive results, plus a
// background stall reaper. The shape is lifted from the original source's
// analysis_worker.py asyncio.create_task supervisor — one task per worker,
// restarted on unexpected error rather than left dead — translated into
// goroutines restarted by a supervising loop instead of asyncio tasks.
package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rajutkarsh07/chess-analysis-service/internal/analyzer"
	"github.com/rajutkarsh07/chess-analysis-service/internal/queue"
)

// GameSource resolves a game's PGN text given its ID. The worker package
// stays storage-agnostic; cmd/worker wires this to whatever holds PGNs.
type GameSource interface {
	PGN(ctx context.Context, gameID string) (string, error)
}

// Config controls worker pool sizing and timing, mirroring the
// WORKER_COUNT/WORKER_MIN_RESTART_WAIT_SECONDS/STALL_* settings in
// internal/config.
type Config struct {
	Count             int
	MinRestartWait    time.Duration
	FullDepth         int
	ResultTTL         time.Duration
	StallMaxAge       time.Duration
	StallReapInterval time.Duration
	IdleWait          time.Duration
}

// Supervisor owns the worker pool and the stall reaper.
type Supervisor struct {
	queue    queue.Queue
	analyzer *analyzer.Analyzer
	games    GameSource
	logger   *zap.Logger
	cfg      Config
}

// NewSupervisor builds a Supervisor ready to Run.
func NewSupervisor(q queue.Queue, a *analyzer.Analyzer, games GameSource, logger *zap.Logger, cfg Config) *Supervisor {
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = 2 * time.Second
	}
	return &Supervisor{queue: q, analyzer: a, games: games, logger: logger, cfg: cfg}
}

// Run starts Count worker goroutines and the stall reaper, and blocks until
// ctx is cancelled. It returns once every worker goroutine has exited.
func (s *Supervisor) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < s.cfg.Count; i++ {
		go s.superviseWorker(ctx, i, done)
	}
	go s.reapStalledLoop(ctx)

	for i := 0; i < s.cfg.Count; i++ {
		<-done
	}
}

// superviseWorker runs worker id's loop, restarting it after
// MinRestartWait whenever it exits with an error, until ctx is cancelled.
func (s *Supervisor) superviseWorker(ctx context.Context, id int, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	w := &worker{id: id, queue: s.queue, analyzer: s.analyzer, games: s.games, logger: s.logger, cfg: s.cfg}
	for {
		err := w.run(ctx)
		if ctx.Err() != nil {
			s.logger.Info("worker stopped", zap.Int("worker", id))
			return
		}
		if err == nil {
			// run only returns nil when ctx is done; unreachable in
			// practice, but guards against an infinite tight restart loop.
			return
		}
		s.logger.Error("worker crashed, restarting", zap.Int("worker", id), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.MinRestartWait):
		}
	}
}

func (s *Supervisor) reapStalledLoop(ctx context.Context) {
	interval := s.cfg.StallReapInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reclaimed, err := s.queue.ReapStalled(ctx, s.cfg.StallMaxAge)
			if err != nil {
				s.logger.Error("stall reap failed", zap.Error(err))
				continue
			}
			if reclaimed > 0 {
				s.logger.Warn("reclaimed stalled jobs", zap.Int("count", reclaimed))
			}
		}
	}
}

// worker is one goroutine's private state; it holds no lock and is never
// shared, so it carries no mutex of its own.
type worker struct {
	id       int
	queue    queue.Queue
	analyzer *analyzer.Analyzer
	games    GameSource
	logger   *zap.Logger
	cfg      Config
}

// run drains the queue until ctx is cancelled. A single claimed-job
// failure never stops the loop — the fault is scoped to that game per §7's
// "infrastructure/logic errors are local to the game" discipline — but a
// queue-access failure (peek/claim themselves erroring) is infrastructure
// and bubbles up so the supervisor can restart this worker after a pause.
func (w *worker) run(ctx context.Context) error {
	w.logger.Info("worker started", zap.Int("worker", w.id))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		job, err := w.queue.PeekNext(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.cfg.IdleWait):
			}
			continue
		}

		claimed, err := w.queue.Claim(ctx, job.GameID)
		if err != nil {
			return err
		}
		if !claimed {
			continue // another worker won the race
		}

		w.processGame(ctx, job.GameID)
	}
}

func (w *worker) processGame(ctx context.Context, gameID string) {
	logger := w.logger.With(zap.Int("worker", w.id), zap.String("gameID", gameID))

	pgn, err := w.games.PGN(ctx, gameID)
	if err != nil {
		logger.Error("failed to load PGN", zap.Error(err))
		w.finishWithError(ctx, gameID, err)
		return
	}

	onPhase1 := func(p analyzer.Phase1Progress) {
		payload, err := json.Marshal(p)
		if err != nil {
			logger.Warn("failed to encode phase-1 progress", zap.Error(err))
			return
		}
		// §4.8: the initial Phase-1 result is stored as soon as it exists,
		// so a caller polling status mid-analysis sees a partial view
		// rather than nothing until the game completes.
		if err := w.queue.StoreResult(ctx, gameID, payload, queue.PhaseInitial, w.cfg.ResultTTL); err != nil {
			logger.Warn("failed to record phase-1 progress", zap.Error(err))
		}
	}

	start := time.Now()
	result, err := w.analyzer.AnalyzeGameWithProgress(ctx, gameID, pgn, w.cfg.FullDepth, onPhase1)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		w.finishWithError(ctx, gameID, err)
		return
	}

	if err := w.queue.StoreResult(ctx, gameID, nil, queue.PhaseIntermediate, w.cfg.ResultTTL); err != nil {
		logger.Warn("failed to record progress", zap.Error(err))
	}
	logger.Info("analysis complete", zap.Duration("elapsed", time.Since(start)), zap.Int("moves", result.MoveCount))

	payload, err := json.Marshal(result)
	if err != nil {
		logger.Error("failed to encode result", zap.Error(err))
		w.finishWithError(ctx, gameID, err)
		return
	}

	if err := w.queue.StoreResult(ctx, gameID, payload, queue.PhaseComplete, w.cfg.ResultTTL); err != nil {
		logger.Error("failed to store result", zap.Error(err))
	}
	if err := w.queue.Release(ctx, gameID, queue.StatusCompleted); err != nil {
		logger.Error("failed to release job", zap.Error(err))
	}
}

func (w *worker) finishWithError(ctx context.Context, gameID string, cause error) {
	if err := w.queue.Release(ctx, gameID, queue.StatusError); err != nil {
		w.logger.Error("failed to release failed job", zap.String("gameID", gameID), zap.Error(err))
	}
	_ = cause // surfaced via the preceding log line at the call site
}
