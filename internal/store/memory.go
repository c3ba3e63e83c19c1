package store

import (
	"errors"
	"sync"
	"time"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/pipeline"
)

var (
	// ErrNotFound is returned when no pipeline run has completed yet.
	ErrNotFound = errors.New("no enrichment run available")
)

// Run is one completed pipeline run with its output and accounting.
type Run struct {
	StartedAt time.Time              `json:"startedAt"`
	Duration  time.Duration          `json:"duration"`
	Stats     pipeline.Stats         `json:"stats"`
	Records   []enrich.EnrichedOrder `json:"-"`
}

// MemoryStore is a concurrency-safe in-memory history of pipeline runs.
type MemoryStore struct {
	mu   sync.RWMutex
	runs []Run

	// retention configuration
	maxHistory int           // max number of retained runs
	maxAge     time.Duration // max age of retained runs
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{maxHistory: maxHistory, maxAge: maxAge}
}

// SaveRun appends a run and enforces retention.
func (s *MemoryStore) SaveRun(run Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, run)

	if s.maxHistory > 0 && len(s.runs) > s.maxHistory {
		over := len(s.runs) - s.maxHistory
		s.runs = s.runs[over:]
	}

	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.runs); i++ {
			if !s.runs[i].StartedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 && i < len(s.runs) {
			s.runs = s.runs[i:]
		}
	}
}

// Latest returns the most recent run.
func (s *MemoryStore) Latest() (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return Run{}, ErrNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// History returns all retained runs, oldest first.
func (s *MemoryStore) History() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}
