// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parking_backend/internal/feature/platedetection/domain/entity"
	"parking_backend/internal/feature/platedetection/usecase"
)

// allCameras is the key segment used for listings that are not filtered by camera.
// Camera segments always start with "cam=", so no camera ID can produce it.
const allCameras = "all"

// CachingRecordRepository decorates a RecordRepository with Redis caching of
// recent-record listings. Inserts invalidate the listings they affect.
type CachingRecordRepository struct {
	inner     usecase.RecordRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.RecordRepository = (*CachingRecordRepository)(nil)

// NewCachingRecordRepository decorates a RecordRepository with Redis caching.
// If ttl is 0, it defaults to 30 seconds. If namespace is empty, it uses "records".
func NewCachingRecordRepository(rdb *redis.Client, ttl time.Duration, inner usecase.RecordRepository, namespace string) *CachingRecordRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if namespace == "" {
		namespace = "records"
	}
	return &CachingRecordRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Insert stores a record and invalidates the camera's listings and the all-camera listings.
func (c *CachingRecordRepository) Insert(ctx context.Context, rec *entity.PlateRecord) error {
	if err := c.inner.Insert(ctx, rec); err != nil {
		return err
	}
	if c.rdb == nil {
		return nil
	}
	// Best effort: a stale listing expires with the TTL anyway
	_ = c.deleteByPattern(ctx, c.cacheKeyPrefix(rec.CameraID)+"*")
	_ = c.deleteByPattern(ctx, c.cacheKeyPrefix("")+"*")
	return nil
}

// ListRecent returns recent records, checking cache first then falling back to the database.
func (c *CachingRecordRepository) ListRecent(ctx context.Context, cameraID string, limit int) ([]entity.PlateRecord, error) {
	if c.rdb == nil {
		return c.inner.ListRecent(ctx, cameraID, limit)
	}

	key := c.cacheKey(cameraID, limit)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.PlateRecord
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.ListRecent(ctx, cameraID, limit)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

func (c *CachingRecordRepository) cacheKey(cameraID string, limit int) string {
	return fmt.Sprintf("%s%d", c.cacheKeyPrefix(cameraID), limit)
}

func (c *CachingRecordRepository) cacheKeyPrefix(cameraID string) string {
	return fmt.Sprintf("%s:%s:", c.namespace, cameraSegment(cameraID))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingRecordRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// cameraSegment maps a camera ID to a key segment one-to-one.
// Hex encoding also keeps glob metacharacters out of the SCAN patterns.
func cameraSegment(cameraID string) string {
	if cameraID == "" {
		return allCameras
	}
	return "cam=" + hex.EncodeToString([]byte(cameraID))
}
