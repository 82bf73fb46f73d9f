package processor

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/phambaophuc/image-watermark/internal/services/watermark"
)

const (
	DefaultQuality   = 92
	WatermarkPadding = 10
)

// NativeRenderer stamps watermarks in-process, for hosts without
// ImageMagick. It consumes the resolved geometry rather than the argument
// list.
type NativeRenderer struct {
	quality   int
	maxPixels int64
}

func NewNativeRenderer() *NativeRenderer {
	return &NativeRenderer{quality: DefaultQuality, maxPixels: watermark.DefaultMaxPixels}
}

// WithMaxPixels bounds every raster the renderer allocates: the decoded
// source, the resized canvas and the text label. Non-positive values keep
// the default.
func (p *NativeRenderer) WithMaxPixels(n int64) *NativeRenderer {
	if n > 0 {
		p.maxPixels = n
	}
	return p
}

func (p *NativeRenderer) Render(ctx context.Context, params *models.ResolvedParameters) error {
	g := params.Geometry

	fill, err := ParseColor(g.Color)
	if err != nil {
		return err
	}

	if err := p.checkArea("source", float64(g.Width), float64(g.Height)); err != nil {
		return err
	}

	src, err := imaging.Open(params.Source, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, err := p.resizeImage(src, g.ResizeFactor)
	if err != nil {
		return err
	}

	label, err := p.renderText(g.Text, g.Font, g.PointSize, fill)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	stamped := p.addWatermark(img, label, g.Angle, g.Gravity)

	if err := p.saveImage(stamped, params.OutputPath); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}

func (p *NativeRenderer) checkArea(what string, width, height float64) error {
	if width*height > float64(p.maxPixels) {
		return fmt.Errorf("%w: %s %.0fx%.0f exceeds %d pixels",
			watermark.ErrInvalidOptions, what, width, height, p.maxPixels)
	}
	return nil
}
