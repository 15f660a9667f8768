package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue implementation satisfying the same
// contract as the Redis-backed queue, used by tests that
// don't want a live Redis. A sync.Mutex stands in for Redis's own
// single-threaded command serialization.
type MemoryQueue struct {
	mu sync.Mutex

	pending    priorityHeap
	inQueue    map[string]*heapItem // gameID -> heap entry, for idempotent enqueue
	processing map[string]struct{}
	jobs       map[string]*Job
	results    map[string]*Result

	now func() time.Time
}

// NewMemory builds an empty MemoryQueue.
func NewMemory() *MemoryQueue {
	return &MemoryQueue{
		inQueue:    make(map[string]*heapItem),
		processing: make(map[string]struct{}),
		jobs:       make(map[string]*Job),
		results:    make(map[string]*Result),
		now:        time.Now,
	}
}

type heapItem struct {
	gameID     string
	priority   int
	enqueuedAt time.Time
	index      int
}

type priorityHeap []*heapItem

func (h priorityHeap) Len() int { return len(h) }
func (h priorityHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority // higher priority first
	}
	return h[i].enqueuedAt.Before(h[j].enqueuedAt) // ties: earlier enqueue first
}
func (h priorityHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *priorityHeap) Push(x any) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

func (q *MemoryQueue) Enqueue(_ context.Context, gameID, requester string, priority int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.jobs[gameID]; ok && existing.Status == StatusQueued {
		return nil // idempotent: already queued
	}

	now := q.now()
	job := &Job{
		GameID:     gameID,
		Requester:  requester,
		Priority:   priority,
		EnqueuedAt: now,
		Status:     StatusQueued,
		Phase:      PhaseWaiting,
	}
	q.jobs[gameID] = job

	item := &heapItem{gameID: gameID, priority: priority, enqueuedAt: now}
	q.inQueue[gameID] = item
	heap.Push(&q.pending, item)
	return nil
}

func (q *MemoryQueue) PeekNext(_ context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.peekHighestAvailable(), nil
}

// peekHighestAvailable scans the heap's backing slice for the best
// available (not-processing) entry without mutating heap order — PeekNext
// must not remove anything.
func (q *MemoryQueue) peekHighestAvailable() *Job {
	var best *heapItem
	for _, item := range q.pending {
		if _, busy := q.processing[item.gameID]; busy {
			continue
		}
		if best == nil || item.priority > best.priority ||
			(item.priority == best.priority && item.enqueuedAt.Before(best.enqueuedAt)) {
			best = item
		}
	}
	if best == nil {
		return nil
	}
	return cloneJob(q.jobs[best.gameID])
}

func (q *MemoryQueue) Claim(_ context.Context, gameID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, busy := q.processing[gameID]; busy {
		return false, nil
	}
	job, ok := q.jobs[gameID]
	if !ok {
		return false, nil
	}
	item, queued := q.inQueue[gameID]
	if !queued {
		return false, nil // not queue-visible: never enqueued, or already released
	}

	q.processing[gameID] = struct{}{}
	heap.Remove(&q.pending, item.index)
	delete(q.inQueue, gameID)

	now := q.now()
	job.Status = StatusProcessing
	job.Phase = PhaseInitial
	job.StartedAt = &now
	return true, nil
}

func (q *MemoryQueue) Release(_ context.Context, gameID string, outcome Status) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, gameID)
	if job, ok := q.jobs[gameID]; ok {
		job.Status = outcome
		now := q.now()
		job.EndedAt = &now
	}
	return nil
}

func (q *MemoryQueue) StoreResult(_ context.Context, gameID string, payload []byte, phase Phase, ttl time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.results[gameID] = &Result{GameID: gameID, Payload: payload, Phase: phase, StoredAt: q.now(), TTL: ttl}

	job, ok := q.jobs[gameID]
	if !ok {
		return nil
	}
	job.Phase = phase
	job.Progress = progressForPhase(phase)
	job.ResultTTL = ttl
	if phase == PhaseComplete {
		job.Status = StatusCompleted
		now := q.now()
		job.EndedAt = &now
	}
	return nil
}

func (q *MemoryQueue) GetResult(_ context.Context, gameID string) (*Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.results[gameID]
	if !ok {
		return nil, nil
	}
	if r.TTL > 0 && r.StoredAt.Add(r.TTL).Before(q.now()) {
		return nil, nil // expired
	}
	cp := *r
	return &cp, nil
}

func (q *MemoryQueue) GetStatus(_ context.Context, gameID string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[gameID]
	if !ok {
		return nil, nil
	}
	return cloneJob(job), nil
}

func (q *MemoryQueue) ReapStalled(_ context.Context, maxAge time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-maxAge)
	reclaimed := 0
	for gameID := range q.processing {
		job, ok := q.jobs[gameID]
		if !ok || job.StartedAt == nil {
			continue
		}
		if job.StartedAt.Before(cutoff) {
			delete(q.processing, gameID)
			job.Status = StatusError
			job.Error = "processing timed out"
			now := q.now()
			job.EndedAt = &now
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), nil
}

func cloneJob(j *Job) *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}
