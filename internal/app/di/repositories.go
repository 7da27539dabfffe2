package di

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"parking_backend/internal/feature/platedetection/adapters"
	"parking_backend/internal/feature/platedetection/usecase"
	"parking_backend/internal/platform/cache"
	"parking_backend/internal/platform/env"
	"parking_backend/internal/platform/jobstore"
)

// NewJobStore creates a JobStore implementation.
// If Redis is available, it returns a Redis-backed implementation.
// Otherwise, it falls back to process memory, so job status is lost on restart.
func NewJobStore(rdb *redis.Client) usecase.JobStore {
	ttl := env.Duration("JOB_TTL", jobstore.DefaultTTL)
	if rdb != nil {
		return jobstore.NewJobRedis(rdb, "jobs", ttl)
	}
	slog.Warn("Redis unavailable; job status is kept in memory")
	return jobstore.NewJobMemory(ttl)
}

// NewRecordRepository creates the detection record repository.
// If Redis is available, listings are cached and invalidated on insert.
func NewRecordRepository(rdb *redis.Client, db *gorm.DB) usecase.RecordRepository {
	repo := adapters.NewRecordRepository(db)
	if rdb == nil {
		return repo
	}
	return cache.NewCachingRecordRepository(rdb, env.Duration("RECORDS_CACHE_TTL", 30*time.Second), repo, "records")
}
