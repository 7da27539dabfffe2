// Package jobstore keeps the status of asynchronous ingest jobs.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

// DefaultTTL is how long a job's status stays readable after its last update.
const DefaultTTL = 24 * time.Hour

// JobRedis implements usecase.JobStore using Redis.
type JobRedis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ usecase.JobStore = (*JobRedis)(nil)

// NewJobRedis creates a new JobRedis instance.
func NewJobRedis(client *redis.Client, prefix string, ttl time.Duration) *JobRedis {
	if prefix == "" {
		prefix = "jobs"
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &JobRedis{client: client, prefix: prefix, ttl: ttl}
}

// jobKey returns the Redis key for a job.
func (r *JobRedis) jobKey(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

// Save writes the job and refreshes its TTL.
func (r *JobRedis) Save(ctx context.Context, job *entity.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return r.client.Set(ctx, r.jobKey(job.ID), data, r.ttl).Err()
}

// Find retrieves a job by its ID.
func (r *JobRedis) Find(ctx context.Context, id string) (*entity.Job, error) {
	data, err := r.client.Get(ctx, r.jobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, usecase.ErrJobNotFound
		}
		return nil, err
	}

	var job entity.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}
