// Package store models the record store of §6: a minimal persistence
// surface the core depends on as an interface only, never a concrete
// driver. No SQL/Postgres/Supabase client surfaced anywhere in the
// retrieved example pack, so the in-memory implementation here is the only
// concrete GameStore; a real deployment supplies its own against the same
// interface.
package store

import (
	"context"
	"fmt"
	"sync"
)

// Game is the persisted record a game analysis job operates on, per the
// "games" row shape of §6: id, pgn, enhanced_analyzed flag, processing flag.
type Game struct {
	ID               string
	PGN              string
	EnhancedAnalyzed bool
	Processing       bool
}

// ErrNotFound is returned when a game ID has no record.
var ErrNotFound = fmt.Errorf("store: game not found")

// GameStore is the record-store surface:
// conditional insert-if-absent, read, and an atomic compare-and-set on the
// processing flag (so two claimers can never both proceed).
type GameStore interface {
	InsertIfAbsent(ctx context.Context, g Game) error
	Get(ctx context.Context, id string) (*Game, error)
	CompareAndSetProcessing(ctx context.Context, id string, expected, new bool) (bool, error)
	MarkEnhancedAnalyzed(ctx context.Context, id string) error
}

// MemoryStore is an in-process GameStore backed by a mutex-guarded map.
type MemoryStore struct {
	mu    sync.Mutex
	games map[string]*Game
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*Game)}
}

func (s *MemoryStore) InsertIfAbsent(_ context.Context, g Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[g.ID]; exists {
		return nil
	}
	cp := g
	s.games[g.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) CompareAndSetProcessing(_ context.Context, id string, expected, new bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return false, ErrNotFound
	}
	if g.Processing != expected {
		return false, nil
	}
	g.Processing = new
	return true, nil
}

func (s *MemoryStore) MarkEnhancedAnalyzed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[id]
	if !ok {
		return ErrNotFound
	}
	g.EnhancedAnalyzed = true
	return nil
}

// PGN adapts MemoryStore to worker.GameSource.
func (s *MemoryStore) PGN(ctx context.Context, id string) (string, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return g.PGN, nil
}
