package processor

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// resizeImage scales img by factor, refusing targets above the pixel limit.
func (p *NativeRenderer) resizeImage(img image.Image, factor float64) (image.Image, error) {
	bounds := img.Bounds()
	if err := p.checkArea("source", float64(bounds.Dx()), float64(bounds.Dy())); err != nil {
		return nil, err
	}
	if factor <= 0 || factor == 1 {
		return img, nil
	}

	width := math.Max(1, math.Round(float64(bounds.Dx())*factor))
	height := math.Max(1, math.Round(float64(bounds.Dy())*factor))
	if err := p.checkArea("resized canvas", width, height); err != nil {
		return nil, err
	}

	return imaging.Resize(img, int(width), int(height), imaging.Lanczos), nil
}
