// Package pool multiplexes UCI engine adapters behind per-adapter locks.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rajutkarsh07/chess-analysis-service/internal/engine"
	"go.uber.org/zap"
)

// slot holds one lazily-spawned adapter behind a context-aware mutual
// exclusion primitive (a capacity-1 channel rather than sync.Mutex, so a
// blocked caller can still observe context cancellation).
type slot struct {
	mu  chan struct{}
	mtx sync.Mutex // guards eng during lazy creation
	eng *engine.Engine
}

func newSlot() *slot {
	s := &slot{mu: make(chan struct{}, 1)}
	s.mu <- struct{}{}
	return s
}

func (s *slot) lock(ctx context.Context) error {
	select {
	case <-s.mu:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tryLock acquires the slot only if it is immediately free.
func (s *slot) tryLock() bool {
	select {
	case <-s.mu:
		return true
	default:
		return false
	}
}

func (s *slot) unlock() {
	s.mu <- struct{}{}
}

// Pool holds up to N_max UCI engine adapters, lazily spawned, each behind
// its own lock. There is no global engine lock: two different slots may
// evaluate concurrently, while two callers hinted to the same slot
// serialize in FIFO order.
type Pool struct {
	slots     []*slot
	config    engine.Config
	logger    *zap.Logger
	size      int
	created   int32
	inUse     int32
	closed    int32
	startTime time.Time
}

// NewPool creates a pool with up to `size` adapters, none spawned yet.
func NewPool(size int, config engine.Config, logger *zap.Logger) (*Pool, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be positive")
	}

	threadsPerAdapter := config.Threads / size
	if threadsPerAdapter < 1 {
		threadsPerAdapter = 1
	}
	adapterConfig := config
	adapterConfig.Threads = threadsPerAdapter

	p := &Pool{
		slots:     make([]*slot, size),
		config:    adapterConfig,
		logger:    logger,
		size:      size,
		startTime: time.Now(),
	}
	for i := range p.slots {
		p.slots[i] = newSlot()
	}

	logger.Info("engine pool created", zap.Int("size", size), zap.Int("threads_per_adapter", threadsPerAdapter))
	return p, nil
}

// Acquire returns the adapter at `hint % size` when it's free, spawning it
// on first use. The hint only selects which adapter to *prefer* (§4.2): if
// that one is busy but another slot is free, Acquire returns the free one
// instead of blocking. Only when every adapter is busy does it block,
// waiting on the hinted slot in fair FIFO order.
func (p *Pool) Acquire(ctx context.Context, hint int) (*engine.Engine, func(), error) {
	if atomic.LoadInt32(&p.closed) != 0 {
		return nil, nil, errors.New("pool is closed")
	}

	idx := hint % p.size
	if idx < 0 {
		idx += p.size
	}

	if s := p.slots[idx]; s.tryLock() {
		return p.acquireFrom(s)
	}
	for i := 1; i < p.size; i++ {
		if s := p.slots[(idx+i)%p.size]; s.tryLock() {
			return p.acquireFrom(s)
		}
	}

	s := p.slots[idx]
	if err := s.lock(ctx); err != nil {
		return nil, nil, err
	}
	return p.acquireFrom(s)
}

func (p *Pool) acquireFrom(s *slot) (*engine.Engine, func(), error) {
	eng, err := p.ensureSpawned(s)
	if err != nil {
		s.unlock()
		return nil, nil, err
	}

	atomic.AddInt32(&p.inUse, 1)
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		p.release(s, eng)
	}
	return eng, release, nil
}

func (p *Pool) ensureSpawned(s *slot) (*engine.Engine, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.eng != nil && s.eng.State() != engine.StateBroken {
		return s.eng, nil
	}
	if s.eng != nil {
		s.eng.Close()
	}

	eng, err := engine.NewEngine(p.config, p.logger)
	if err != nil {
		return nil, fmt.Errorf("spawn adapter: %w", err)
	}
	s.eng = eng
	atomic.AddInt32(&p.created, 1)
	return eng, nil
}

// release resets and returns an adapter to idle, replacing it if the reset
// reveals it is broken.
func (p *Pool) release(s *slot, eng *engine.Engine) {
	defer func() {
		atomic.AddInt32(&p.inUse, -1)
		s.unlock()
	}()

	if atomic.LoadInt32(&p.closed) != 0 {
		return
	}

	if err := eng.Reset(); err != nil || !eng.IsReady() {
		p.logger.Warn("adapter unhealthy after use, will respawn on next access", zap.Error(err))
		eng.Close()
		s.mtx.Lock()
		s.eng = nil
		s.mtx.Unlock()
	}
}

// Evaluate is a convenience wrapper around Acquire for one-shot evaluation.
func (p *Pool) Evaluate(ctx context.Context, fen string, depth int, hint int) (*engine.AnalysisResult, error) {
	eng, release, err := p.Acquire(ctx, hint)
	if err != nil {
		return nil, err
	}
	defer release()
	return eng.AnalyzePosition(fen, depth, p.config.MultiPV)
}

// Stats summarizes pool occupancy.
type Stats struct {
	Size          int
	Created       int
	InUse         int
	EngineVersion string
	Uptime        time.Duration
}

// GetStats returns a snapshot of pool statistics.
func (p *Pool) GetStats() Stats {
	version := "unknown"
	for _, s := range p.slots {
		s.mtx.Lock()
		if s.eng != nil {
			version = s.eng.Version()
			s.mtx.Unlock()
			break
		}
		s.mtx.Unlock()
	}

	return Stats{
		Size:          p.size,
		Created:       int(atomic.LoadInt32(&p.created)),
		InUse:         int(atomic.LoadInt32(&p.inUse)),
		EngineVersion: version,
		Uptime:        time.Since(p.startTime),
	}
}

// Size returns N_max.
func (p *Pool) Size() int {
	return p.size
}

// Close shuts down every spawned adapter.
func (p *Pool) Close() error {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return nil
	}

	var firstErr error
	for _, s := range p.slots {
		s.mtx.Lock()
		if s.eng != nil {
			if err := s.eng.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			s.eng = nil
		}
		s.mtx.Unlock()
	}

	p.logger.Info("engine pool closed")
	return firstErr
}

// HealthCheck spawns (if needed) and pings every adapter in the pool.
func (p *Pool) HealthCheck(ctx context.Context) error {
	for i := 0; i < p.size; i++ {
		eng, release, err := p.Acquire(ctx, i)
		if err != nil {
			return err
		}
		ready := eng.IsReady()
		release()
		if !ready {
			return fmt.Errorf("adapter %d not ready", i)
		}
	}
	return nil
}
