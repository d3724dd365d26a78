// Package jobs keeps finished reconciliation runs addressable by ID for a
// bounded time, so callers can fetch a result after the run that produced it.
//
// The store owns its state behind a mutex and evicts expired entries from an
// explicit ticker-driven sweeper. Nothing global, nothing shared between
// stores.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledger-reconciliation-service/internal/reconciler"
	"ledger-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// Job is one stored reconciliation run
type Job struct {
	ID         string             `json:"id"`
	Output     *reconciler.Output `json:"output"`
	InsertedAt time.Time          `json:"inserted_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// Expired reports whether the job is past its TTL at the given instant
func (j *Job) Expired(now time.Time) bool {
	return now.After(j.ExpiresAt)
}

// Store is a TTL-bounded, thread-safe registry of reconciliation runs
type Store struct {
	mu     sync.Mutex
	jobs   map[string]*Job
	ttl    time.Duration
	clock  func() time.Time
	logger logger.Logger
}

// DefaultTTL is how long a stored run stays retrievable
const DefaultTTL = 30 * time.Minute

// NewStore creates a store with the given TTL; non-positive falls back to
// DefaultTTL
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{
		jobs:   make(map[string]*Job),
		ttl:    ttl,
		clock:  time.Now,
		logger: logger.GetGlobalLogger().WithComponent("jobs"),
	}
}

// Put stores a run output and returns its generated ID
func (s *Store) Put(output *reconciler.Output) string {
	now := s.clock()
	job := &Job{
		ID:         uuid.NewString(),
		Output:     output,
		InsertedAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	s.logger.WithFields(logger.Fields{
		"job_id":     job.ID,
		"expires_at": job.ExpiresAt.Format(time.RFC3339),
	}).Debug("Stored reconciliation run")

	return job.ID
}

// Get returns the job with the given ID. Expired jobs are reported as absent
// even before the sweeper removes them.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Expired(s.clock()) {
		return nil, false
	}
	return job, true
}

// Delete removes a job regardless of expiry
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.jobs, id)
	s.mu.Unlock()
}

// Len returns the number of stored jobs, expired ones included until swept
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// IDs returns the stored job IDs sorted lexicographically
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sweep removes all expired jobs and returns how many were evicted
func (s *Store) Sweep() int {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, job := range s.jobs {
		if job.Expired(now) {
			delete(s.jobs, id)
			evicted++
		}
	}

	if evicted > 0 {
		s.logger.WithField("evicted", evicted).Debug("Swept expired runs")
	}
	return evicted
}

// RunSweeper sweeps on the given interval until the context is cancelled.
// Blocking; run it in its own goroutine.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
