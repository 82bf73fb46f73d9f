package processor

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// basicfont.Face7x13 line height, used to scale it to the requested point size.
const basicFaceHeight = 13

func (p *NativeRenderer) addWatermark(img image.Image, label image.Image, angle float64, gravity string) *image.NRGBA {
	// annotate angles turn clockwise, imaging.Rotate turns counter-clockwise
	if angle != 0 {
		label = imaging.Rotate(label, -angle, color.Transparent)
	}

	bounds := img.Bounds()
	pos := anchor(bounds.Dx(), bounds.Dy(), label.Bounds().Dx(), label.Bounds().Dy(), gravity)

	return imaging.Overlay(img, label, pos, 1.0)
}

// anchor returns the top-left corner of a w×h block placed on a W×H canvas
// according to gravity.
func anchor(canvasW, canvasH, w, h int, gravity string) image.Point {
	left := WatermarkPadding
	right := canvasW - w - WatermarkPadding
	top := WatermarkPadding
	bottom := canvasH - h - WatermarkPadding
	midX := (canvasW - w) / 2
	midY := (canvasH - h) / 2

	switch strings.ToLower(gravity) {
	case "north":
		return image.Pt(midX, top)
	case "south":
		return image.Pt(midX, bottom)
	case "east":
		return image.Pt(right, midY)
	case "west":
		return image.Pt(left, midY)
	case "northeast":
		return image.Pt(right, top)
	case "northwest":
		return image.Pt(left, top)
	case "southeast":
		return image.Pt(right, bottom)
	case "southwest":
		return image.Pt(left, bottom)
	default:
		return image.Pt(midX, midY)
	}
}

// renderText rasterises text on a transparent background at roughly
// pointSize pixels per em.
func (p *NativeRenderer) renderText(text, fontPath string, pointSize float64, fill color.Color) (image.Image, error) {
	if pointSize < 1 {
		pointSize = 1
	}

	face, scaled, err := loadFace(fontPath, pointSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("watermark text %q has no visible extent", text)
	}
	if err := p.checkArea("text label", float64(width), float64(height)); err != nil {
		return nil, err
	}

	label := image.NewRGBA(image.Rect(0, 0, width, height))
	d := &font.Drawer{
		Dst:  label,
		Src:  image.NewUniform(fill),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(text)

	if !scaled {
		return label, nil
	}

	scale := pointSize / basicFaceHeight
	w := math.Max(1, math.Round(float64(width)*scale))
	h := math.Max(1, math.Round(float64(height)*scale))
	if err := p.checkArea("text label", w, h); err != nil {
		return nil, err
	}
	return imaging.Resize(label, int(w), int(h), imaging.Linear), nil
}

// loadFace opens fontPath as a TrueType/OpenType face. Names that are not
// readable font files (e.g. ImageMagick font names) fall back to the
// built-in bitmap face, in which case scaled is true.
func loadFace(fontPath string, pointSize float64) (face font.Face, scaled bool, err error) {
	ext := strings.ToLower(filepath.Ext(fontPath))
	if ext != ".ttf" && ext != ".otf" {
		return basicfont.Face7x13, true, nil
	}

	data, err := os.ReadFile(fontPath)
	if err != nil {
		return basicfont.Face7x13, true, nil
	}

	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse font %s: %w", fontPath, err)
	}

	face, err = opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    pointSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, false, fmt.Errorf("load font face %s: %w", fontPath, err)
	}
	return face, false, nil
}
