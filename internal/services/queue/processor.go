package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/pkg/utils"
	"go.uber.org/zap"
)

func (q *QueueService) processJob(ctx context.Context, job *models.ProcessingJob) (*models.ProcessedImage, error) {
	opts, err := q.policy.Apply(jobOptions(job.Options))
	if err != nil {
		return nil, err
	}

	cacheKey := q.store.GenerateCacheKey(job.ImageURL, opts)

	// Check cache first
	cachedData, err := q.store.GetFromCache(ctx, cacheKey)
	if err == nil && cachedData != nil {
		var cachedResult models.ProcessedImage
		if err := json.Unmarshal(cachedData, &cachedResult); err == nil {
			cachedResult.ID = job.ID
			return &cachedResult, nil
		}
		q.logger.Warn("Failed to unmarshal cached data", zap.String("job_id", job.ID))
	}

	imageData, contentType, err := utils.DownloadImage(ctx, job.ImageURL, q.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}

	source, err := utils.WriteTempImage(q.embedder.TempDir(), imageData, utils.ExtensionFor(contentType))
	if err != nil {
		return nil, fmt.Errorf("failed to stage image: %w", err)
	}
	defer os.Remove(source)

	result, err := q.embedder.Embed(ctx, source, opts)
	if err != nil {
		return nil, err
	}

	format := strings.TrimPrefix(filepath.Ext(result.OutputPath), ".")
	filename := utils.GenerateFilename(job.ID, format)
	processedURL, err := q.store.SaveFile(ctx, result.Data, filename, result.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to save processed image: %w", err)
	}

	processed := &models.ProcessedImage{
		ID:          job.ID,
		OriginalURL: job.ImageURL,
		ProcessedAt: time.Now(),
		Size:        outputSize(result.Params.Geometry),
		Format:      format,
		URL:         processedURL,
		FileSize:    int64(len(result.Data)),
	}

	resultBytes, _ := json.Marshal(processed)
	if err := q.store.SetCache(ctx, cacheKey, resultBytes); err != nil {
		q.logger.Warn("Failed to cache result", zap.Error(err))
	}

	return processed, nil
}

// jobOptions drops the options that address the worker's local filesystem.
// Remote jobs always render into a unique temporary file.
func jobOptions(opts models.WatermarkOptions) models.WatermarkOptions {
	opts.Filename = ""
	opts.DstPath = ""
	opts.OverrideImage = false
	return opts
}

func outputSize(g models.Geometry) models.ImageMetadata {
	return models.ImageMetadata{
		Width:  int(math.Round(g.AdjustedWidth)),
		Height: int(math.Round(g.AdjustedHeight)),
	}
}
