package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phambaophuc/image-watermark/internal/config"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/watermark"
	"go.uber.org/zap"
)

const (
	imageParamKey  = "image"
	imagesParamKey = "images"
	maxBatchSize   = 20
)

type WatermarkService interface {
	Embed(ctx context.Context, source string, opts models.WatermarkOptions) (*models.WatermarkResult, error)
	Params(ctx context.Context, source string, opts models.WatermarkOptions) (*models.ResolvedParameters, error)
	TempDir() string
}

type StorageService interface {
	SaveFile(ctx context.Context, data []byte, filename, contentType string) (string, error)
	UploadMultiple(ctx context.Context, files []models.UploadFile) ([]models.UploadResult, error)
	GetJobResult(ctx context.Context, jobID string) (*models.ProcessingJob, error)
	GetCacheStats(ctx context.Context) (map[string]interface{}, error)
	HealthCheck(ctx context.Context) map[string]string
}

type JobQueue interface {
	Submit(ctx context.Context, req *models.WatermarkJobRequest) (*models.ProcessingJob, error)
	GetQueueStats() (map[string]interface{}, error)
	HealthCheck() string
}

type WatermarkHandler struct {
	service WatermarkService
	storage StorageService
	queue   JobQueue
	logger  *zap.Logger
	config  *config.Config
}

// NewWatermarkHandler wires the HTTP surface. queue may be nil, in which case
// the job endpoints answer 503.
func NewWatermarkHandler(
	service WatermarkService,
	storage StorageService,
	queue JobQueue,
	logger *zap.Logger,
	config *config.Config,
) *WatermarkHandler {
	return &WatermarkHandler{
		service: service,
		storage: storage,
		queue:   queue,
		logger:  logger,
		config:  config,
	}
}

// === MAIN API ENDPOINTS ===

// Embed answers with the watermarked image bytes.
func (h *WatermarkHandler) Embed(c *gin.Context) {
	source, name, err := h.stageUpload(c, imageParamKey)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(source)

	opts, err := h.parseOptions(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	result, err := h.service.Embed(c.Request.Context(), source, opts)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", downloadName(name, result.OutputPath)))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// Params answers with the resolved render parameters without rendering.
func (h *WatermarkHandler) Params(c *gin.Context) {
	source, _, err := h.stageUpload(c, imageParamKey)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(source)

	opts, err := h.parseOptions(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	params, err := h.service.Params(c.Request.Context(), source, opts)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    params,
	})
}

// Upload watermarks the image and stores the result in object storage.
func (h *WatermarkHandler) Upload(c *gin.Context) {
	source, name, err := h.stageUpload(c, imageParamKey)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(source)

	opts, err := h.parseOptions(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	result, err := h.service.Embed(c.Request.Context(), source, opts)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	filename := downloadName(name, result.OutputPath)
	url, err := h.storage.SaveFile(c.Request.Context(), result.Data, filename, result.ContentType)
	if err != nil {
		h.logger.Error("Failed to upload to storage", zap.Error(err))
		h.respondError(c, http.StatusBadGateway, "Failed to upload watermarked image")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data: models.ProcessedImage{
			ID:          uuid.New().String(),
			OriginalURL: name,
			ProcessedAt: time.Now(),
			Size:        outputSize(result.Params.Geometry),
			Format:      formatOf(result.OutputPath),
			URL:         url,
			FileSize:    int64(len(result.Data)),
		},
	})
}

// Batch applies the same options to several images and uploads every result.
func (h *WatermarkHandler) Batch(c *gin.Context) {
	files, err := h.parseMultipartFiles(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := h.parseOptions(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	uploads := make([]models.UploadFile, 0, len(files))

	for _, fh := range files {
		source, err := h.stageFile(fh)
		if err != nil {
			h.respondError(c, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, err))
			return
		}

		result, err := h.service.Embed(c.Request.Context(), source, opts)
		os.Remove(source)
		if err != nil {
			h.respondServiceError(c, fmt.Errorf("%s: %w", fh.Filename, err))
			return
		}

		uploads = append(uploads, models.UploadFile{
			Filename:    downloadName(fh.Filename, result.OutputPath),
			ContentType: result.ContentType,
			Data:        result.Data,
		})
	}

	results, err := h.storage.UploadMultiple(c.Request.Context(), uploads)
	if err != nil {
		h.logger.Warn("Batch upload incomplete", zap.Error(err))
		c.JSON(http.StatusMultiStatus, models.APIResponse{
			Success: false,
			Data:    gin.H{"results": results},
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    gin.H{"results": results},
	})
}

// CreateJob queues a remote image for asynchronous watermarking.
func (h *WatermarkHandler) CreateJob(c *gin.Context) {
	if h.queue == nil {
		h.respondError(c, http.StatusServiceUnavailable, "Job queue not available")
		return
	}

	var req models.WatermarkJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, fmt.Sprintf("Invalid job request: %v", err))
		return
	}
	if _, err := h.clientPolicy().Apply(req.Options); err != nil {
		h.respondServiceError(c, err)
		return
	}

	job, err := h.queue.Submit(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to submit job", zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "Failed to queue job")
		return
	}

	c.JSON(http.StatusAccepted, models.APIResponse{
		Success: true,
		Data: gin.H{
			"job_id": job.ID,
			"status": job.Status,
		},
	})
}

func (h *WatermarkHandler) GetJob(c *gin.Context) {
	job, err := h.storage.GetJobResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to load job", zap.String("job_id", c.Param("id")), zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to load job")
		return
	}
	if job == nil {
		h.respondError(c, http.StatusNotFound, "Job not found")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    job,
	})
}

// HealthCheck
func (h *WatermarkHandler) HealthCheck(c *gin.Context) {
	services := h.storage.HealthCheck(c.Request.Context())
	if h.queue == nil {
		services["rabbitmq"] = "not configured"
	} else {
		services["rabbitmq"] = h.queue.HealthCheck()
	}
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

func (h *WatermarkHandler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"timestamp": time.Now(),
	}

	cacheStats, err := h.storage.GetCacheStats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get cache stats", zap.Error(err))
	} else {
		stats["cache"] = cacheStats
	}

	if h.queue != nil {
		queueStats, err := h.queue.GetQueueStats()
		if err != nil {
			h.logger.Error("Failed to get queue stats", zap.Error(err))
		} else {
			stats["queue"] = queueStats
		}
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    stats,
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, watermark.ErrInvalidSource), errors.Is(err, watermark.ErrInvalidOptions):
		return http.StatusBadRequest
	case errors.Is(err, watermark.ErrMetadataUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, watermark.ErrRenderFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func formatOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}
	return ext[1:]
}
