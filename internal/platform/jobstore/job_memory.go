package jobstore

import (
	"context"
	"sync"
	"time"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

type memoryEntry struct {
	job       entity.Job
	expiresAt time.Time
}

// JobMemory implements usecase.JobStore in process memory.
// It is used when Redis is not configured; statuses are lost on restart.
type JobMemory struct {
	mu   sync.Mutex
	jobs map[string]memoryEntry
	ttl  time.Duration
	now  func() time.Time
}

var _ usecase.JobStore = (*JobMemory)(nil)

// NewJobMemory creates a new JobMemory instance.
func NewJobMemory(ttl time.Duration) *JobMemory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JobMemory{jobs: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// Save stores a copy of the job and drops expired entries.
func (m *JobMemory) Save(_ context.Context, job *entity.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.jobs {
		if now.After(e.expiresAt) {
			delete(m.jobs, id)
		}
	}
	m.jobs[job.ID] = memoryEntry{job: *job, expiresAt: now.Add(m.ttl)}
	return nil
}

// Find returns a copy of the stored job.
func (m *JobMemory) Find(_ context.Context, id string) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.jobs[id]
	if !ok || m.now().After(e.expiresAt) {
		return nil, usecase.ErrJobNotFound
	}
	job := e.job
	return &job, nil
}
