package watermark

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/image-watermark/internal/models"
	"go.uber.org/zap"
)

const DefaultRenderTimeout = 60 * time.Second

type ServiceOptions struct {
	RenderTimeout time.Duration
	// KeepOutput leaves temporary outputs on disk after they have been read.
	KeepOutput bool
}

// Service runs the inspect, resolve, render and collect flow for a single
// source image. Calls are independent of each other.
type Service struct {
	resolver      *Resolver
	inspector     Inspector
	renderer      Renderer
	logger        *zap.Logger
	renderTimeout time.Duration
	keepOutput    bool
}

func NewService(
	resolver *Resolver,
	inspector Inspector,
	renderer Renderer,
	logger *zap.Logger,
	opts ServiceOptions,
) *Service {
	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = DefaultRenderTimeout
	}
	return &Service{
		resolver:      resolver,
		inspector:     inspector,
		renderer:      renderer,
		logger:        logger,
		renderTimeout: opts.RenderTimeout,
		keepOutput:    opts.KeepOutput,
	}
}

func (s *Service) TempDir() string {
	return s.resolver.TempDir()
}

// Params inspects the source and resolves the render parameters without
// rendering anything.
func (s *Service) Params(ctx context.Context, source string, opts models.WatermarkOptions) (*models.ResolvedParameters, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}

	meta, err := s.inspector.Identify(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
	}

	return s.resolver.Resolve(meta, source, opts)
}

// Embed stamps the watermark onto source and returns the rendered bytes.
// Temporary outputs are removed once read.
func (s *Service) Embed(ctx context.Context, source string, opts models.WatermarkOptions) (*models.WatermarkResult, error) {
	if opts.Filename == "" && !opts.OverrideImage && opts.DstPath == "" {
		opts.Filename = uniqueFilename()
	}

	params, err := s.Params(ctx, source, opts)
	if err != nil {
		return nil, err
	}

	renderCtx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	defer cancel()

	start := time.Now()
	if err := s.renderer.Render(renderCtx, params); err != nil {
		s.logger.Error("Error in applying watermark",
			zap.String("source", source),
			zap.Error(err))
		if s.isTemporary(params, opts) {
			s.discard(params.OutputPath)
		}
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	s.logger.Info("Successfully applied watermark",
		zap.String("source", source),
		zap.String("output_path", params.OutputPath),
		zap.Duration("duration", time.Since(start)))

	data, err := os.ReadFile(params.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrOutputIO, params.OutputPath, err)
	}

	if s.isTemporary(params, opts) {
		if err := os.Remove(params.OutputPath); err != nil {
			return nil, fmt.Errorf("%w: remove %s: %w", ErrOutputIO, params.OutputPath, err)
		}
		s.logger.Debug("Temporary output removed", zap.String("output_path", params.OutputPath))
	}

	return &models.WatermarkResult{
		Data:        data,
		OutputPath:  params.OutputPath,
		ContentType: contentType(params.OutputPath, data),
		Params:      params,
	}, nil
}

// isTemporary reports whether the output is ours to delete. Only the source
// itself and an explicit destination belong to the caller; an override that
// had to add an extension wrote a new file beside the source.
func (s *Service) isTemporary(params *models.ResolvedParameters, opts models.WatermarkOptions) bool {
	if s.keepOutput || params.OutputPath == params.Source {
		return false
	}
	return opts.OverrideImage || opts.DstPath == ""
}

// discard removes a partial output left by a failed render.
func (s *Service) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove partial output",
			zap.String("output_path", path),
			zap.Error(err))
	}
}

func checkSource(source string) error {
	if source == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidSource)
	}

	info, err := os.Lstat(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: image does not exist at %s", ErrInvalidSource, source)
	}
	return nil
}

func uniqueFilename() string {
	return fmt.Sprintf("watermark_%s.jpg", uuid.New().String())
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
