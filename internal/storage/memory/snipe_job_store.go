package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/storage"
)

// SnipeJobStore is an in-memory implementation of storage.SnipeJobStore.
type SnipeJobStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SnipeJob // keyed by job ID
}

// NewSnipeJobStore creates a new in-memory snipe job store.
func NewSnipeJobStore() *SnipeJobStore {
	return &SnipeJobStore{
		data: make(map[string]*domain.SnipeJob),
	}
}

// Insert adds a new job. Returns ErrDuplicateKey if job ID exists.
func (s *SnipeJobStore) Insert(_ context.Context, job *domain.SnipeJob) error {
	if job == nil || job.ID == "" || job.UserID == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[job.ID]; exists {
		return storage.ErrDuplicateKey
	}

	jobCopy := *job
	s.data[job.ID] = &jobCopy
	return nil
}

// GetByID retrieves a job by ID. Returns ErrNotFound if not exists.
func (s *SnipeJobStore) GetByID(_ context.Context, jobID string) (*domain.SnipeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.data[jobID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	jobCopy := *job
	return &jobCopy, nil
}

// GetByUser retrieves all jobs for a user, newest first.
func (s *SnipeJobStore) GetByUser(_ context.Context, userID int64) ([]*domain.SnipeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SnipeJob
	for _, job := range s.data {
		if job.UserID == userID {
			jobCopy := *job
			result = append(result, &jobCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// GetActiveByTarget retrieves active jobs matching the mint, including
// wildcard jobs.
func (s *SnipeJobStore) GetActiveByTarget(_ context.Context, mint string) ([]*domain.SnipeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SnipeJob
	for _, job := range s.data {
		if job.Status != domain.SnipeJobActive {
			continue
		}
		if job.TargetMint == mint || job.TargetMint == domain.SnipeTargetAny {
			jobCopy := *job
			result = append(result, &jobCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// UpdateStatusIf atomically transitions a job between statuses.
func (s *SnipeJobStore) UpdateStatusIf(_ context.Context, jobID string, from, to domain.SnipeJobStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.data[jobID]
	if !exists {
		return false, storage.ErrNotFound
	}

	if job.Status != from {
		return false, nil
	}

	job.Status = to
	job.UpdatedAt = time.Now()
	return true, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (s *SnipeJobStore) IncrementAttempts(_ context.Context, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.data[jobID]
	if !exists {
		return 0, storage.ErrNotFound
	}

	job.Attempts++
	job.UpdatedAt = time.Now()
	return job.Attempts, nil
}

// SetTxSignature records the executed swap's transaction signature.
func (s *SnipeJobStore) SetTxSignature(_ context.Context, jobID, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.data[jobID]
	if !exists {
		return storage.ErrNotFound
	}

	job.TxSignature = signature
	job.UpdatedAt = time.Now()
	return nil
}

// Verify interface compliance at compile time.
var _ storage.SnipeJobStore = (*SnipeJobStore)(nil)
