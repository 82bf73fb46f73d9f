package handlers

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/processor"
	"github.com/phambaophuc/image-watermark/internal/services/watermark"
	"github.com/phambaophuc/image-watermark/pkg/utils"
	"go.uber.org/zap"
)

// === REQUEST PARSING ===

// parseOptions reads the watermark options from form fields. Absent fields
// stay empty and are defaulted by the resolver.
func (h *WatermarkHandler) parseOptions(c *gin.Context) (models.WatermarkOptions, error) {
	raw := make(map[string]interface{}, len(models.OptionKeys))
	for _, key := range models.OptionKeys {
		if value, ok := c.GetPostForm(key); ok {
			raw[key] = value
		}
	}

	opts, err := h.clientPolicy().Apply(models.OptionsFromMap(raw))
	if err != nil {
		return opts, err
	}

	if opts.Filename != "" {
		opts.Filename = uuid.New().String() + "_" + filepath.Base(opts.Filename)
	}

	return opts, nil
}

func (h *WatermarkHandler) clientPolicy() watermark.ClientPolicy {
	if h.config == nil {
		return watermark.ClientPolicy{}
	}
	return watermark.ClientPolicy{
		DefaultFont: h.config.Watermark.DefaultFont,
		FontDir:     h.config.Watermark.FontDir,
	}
}

func (h *WatermarkHandler) parseMultipartFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	if err := c.Request.ParseMultipartForm(h.maxFileSize() * 10); err != nil {
		return nil, fmt.Errorf("failed to parse form data: %v", err)
	}

	files := c.Request.MultipartForm.File[imagesParamKey]
	if len(files) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	if len(files) > maxBatchSize {
		return nil, fmt.Errorf("too many images: at most %d per request", maxBatchSize)
	}

	return files, nil
}

// === FILE OPERATIONS ===

// stageUpload validates the uploaded image and copies it into the service's
// temporary directory. The caller removes the returned path.
func (h *WatermarkHandler) stageUpload(c *gin.Context, paramKey string) (string, string, error) {
	file, header, err := c.Request.FormFile(paramKey)
	if err != nil {
		return "", "", fmt.Errorf("no image file provided")
	}
	file.Close()

	path, err := h.stageFile(header)
	if err != nil {
		return "", "", err
	}
	return path, header.Filename, nil
}

func (h *WatermarkHandler) stageFile(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %v", err)
	}
	defer file.Close()

	format, err := processor.ValidateImage(file, h.maxFileSize())
	if err != nil {
		return "", fmt.Errorf("invalid image: %v", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.logger.Error("Failed to reset file pointer", zap.Error(err))
		return "", fmt.Errorf("internal file error")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %v", err)
	}

	return utils.WriteTempImage(h.service.TempDir(), data, utils.ExtensionFor("image/"+format))
}

func (h *WatermarkHandler) maxFileSize() int64 {
	if h.config == nil || h.config.Storage.MaxFileSize <= 0 {
		return 20 * 1024 * 1024
	}
	return h.config.Storage.MaxFileSize
}

// === RESPONSE HANDLING ===

func (h *WatermarkHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *WatermarkHandler) respondServiceError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Watermarking failed", zap.Error(err))
	} else {
		h.logger.Warn("Watermark request rejected", zap.Error(err))
	}
	h.respondError(c, status, err.Error())
}

// === UTILITY METHODS ===

func (h *WatermarkHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}

// downloadName keeps the client's base name with the rendered extension.
func downloadName(original, outputPath string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "watermarked"
	}
	return base + filepath.Ext(outputPath)
}

func outputSize(g models.Geometry) models.ImageMetadata {
	return models.ImageMetadata{
		Width:  int(math.Round(g.AdjustedWidth)),
		Height: int(math.Round(g.AdjustedHeight)),
	}
}
