// Package queue implements the Job Queue of §4.8: a priority-ordered queue
// of analysis jobs, a disjoint "processing" set that makes claims atomic,
// per-game status records, and per-game result records that each carry
// their own time-to-live. Status records have no time-to-live and do not
// expire.
//
// Queue is the interface both the in-memory implementation (used by the
// tests) and the Redis-backed implementation satisfy — the same
// boundary the teacher already draws between its pool/analyzer interfaces
// and their engine-backed concrete types.
package queue

import (
	"context"
	"errors"
	"time"
)

// Status is an AnalysisJob's lifecycle state, per §3.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Phase is the analysis phase a job has reached, per §3/§4.8.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseInitial      Phase = "initial"
	PhaseIntermediate Phase = "intermediate"
	PhaseComplete     Phase = "complete"
)

// progressForPhase maps a phase to the progress percentage §4.8 specifies.
func progressForPhase(p Phase) int {
	switch p {
	case PhaseInitial:
		return 25
	case PhaseIntermediate:
		return 60
	case PhaseComplete:
		return 100
	default:
		return 0
	}
}

// Job is one AnalysisJob record, per §3.
type Job struct {
	GameID      string
	Requester   string
	Priority    int
	EnqueuedAt  time.Time
	Status      Status
	Phase       Phase
	Progress    int
	StartedAt   *time.Time
	EndedAt     *time.Time
	Error       string
	ResultTTL   time.Duration
}

// Result is a stored analysis payload for one phase of one game.
type Result struct {
	GameID   string
	Payload  []byte
	Phase    Phase
	StoredAt time.Time
	TTL      time.Duration
}

// ErrNotClaimed describes a claim lost to another caller. Claim itself
// reports a lost race as (false, nil) and does not return this error.
var ErrNotClaimed = errors.New("queue: game already claimed")

// Queue is the Job Queue contract of §4.8. Implementations must make Claim
// atomic: it succeeds only if the caller performed the processing-set
// insertion, per §5's "claim ordering" discipline.
type Queue interface {
	// Enqueue adds a game to the queue. Idempotent: re-enqueuing a game
	// already in the queued state is a no-op.
	Enqueue(ctx context.Context, gameID, requester string, priority int) error

	// PeekNext returns the highest-priority job whose game is not already
	// in the processing set, without removing it. Returns (nil, nil) if
	// the queue is empty or every queued game is being processed.
	PeekNext(ctx context.Context) (*Job, error)

	// Claim atomically moves gameID from queue-visible to processing.
	// Returns true only if this caller won the race.
	Claim(ctx context.Context, gameID string) (bool, error)

	// Release removes gameID from the processing set and records the
	// given terminal status.
	Release(ctx context.Context, gameID string, outcome Status) error

	// StoreResult persists a phase's payload with the configured TTL and
	// advances the job's progress/phase.
	StoreResult(ctx context.Context, gameID string, payload []byte, phase Phase, ttl time.Duration) error

	// GetResult retrieves the most recently stored result for a game.
	GetResult(ctx context.Context, gameID string) (*Result, error)

	// GetStatus retrieves a job's current status record.
	GetStatus(ctx context.Context, gameID string) (*Job, error)

	// ReapStalled force-releases every processing entry whose start time
	// predates now-maxAge, marking it errored, and returns how many were
	// reclaimed.
	ReapStalled(ctx context.Context, maxAge time.Duration) (int, error)

	// Len reports the number of jobs currently queue-visible (not in
	// processing).
	Len(ctx context.Context) (int, error)
}
