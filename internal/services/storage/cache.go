package storage

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix = "wm_cache:"
	jobPrefix   = "wm_job:"
)

func (s *StorageService) GetFromCache(ctx context.Context, cacheKey string) ([]byte, error) {
	data, err := s.redisClient.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}
	return data, nil
}

func (s *StorageService) SetCache(ctx context.Context, cacheKey string, data []byte) error {
	return s.redisClient.Set(ctx, cacheKey, data, s.cacheDuration).Err()
}

// GenerateCacheKey derives a stable key from the source image and every
// option that influences the rendered output.
func (s *StorageService) GenerateCacheKey(source string, opts models.WatermarkOptions) string {
	hash := sha256.New()

	hash.Write([]byte(source))
	hash.Write([]byte{0})

	// struct field order is fixed, so the encoding is deterministic
	encoded, _ := json.Marshal(opts)
	hash.Write(encoded)

	return fmt.Sprintf("%s%x", cachePrefix, hash.Sum(nil))
}

// SetJobResult stores the latest state of an async job.
func (s *StorageService) SetJobResult(ctx context.Context, job *models.ProcessingJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return s.redisClient.Set(ctx, jobPrefix+job.ID, data, s.cacheDuration).Err()
}

// GetJobResult returns nil, nil when the job is unknown or expired.
func (s *StorageService) GetJobResult(ctx context.Context, jobID string) (*models.ProcessingJob, error) {
	data, err := s.GetFromCache(ctx, jobPrefix+jobID)
	if err != nil || data == nil {
		return nil, err
	}

	var job models.ProcessingJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

func (s *StorageService) CleanupCache(ctx context.Context) error {
	keys, err := s.redisClient.Keys(ctx, cachePrefix+"*").Result()
	if err != nil {
		return err
	}

	for _, key := range keys {
		ttl := s.redisClient.TTL(ctx, key).Val()
		if ttl <= 0 {
			s.redisClient.Del(ctx, key)
		}
	}

	return nil
}

func (s *StorageService) GetCacheStats(ctx context.Context) (map[string]interface{}, error) {
	info, err := s.redisClient.Info(ctx, "memory").Result()
	if err != nil {
		return nil, err
	}

	dbSize, err := s.redisClient.DBSize(ctx).Result()
	if err != nil {
		return nil, err
	}

	stats := map[string]interface{}{
		"db_keys": dbSize,
		"info":    info,
	}

	return stats, nil
}
