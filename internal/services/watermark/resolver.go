package watermark

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/phambaophuc/image-watermark/internal/models"
)

const (
	DefaultText     = "Sample watermark"
	DefaultFilename = "watermark.jpg"
	DefaultPosition = "Center"
	DefaultColor    = "#ff0000"
	DefaultResize   = "100%"
	DefaultTempDir  = "/tmp"

	// DefaultMaxPixels caps the source and resized canvas area.
	DefaultMaxPixels int64 = 50_000_000

	// fallbackFormat is used only when neither the output path nor the
	// source carries a usable extension.
	fallbackFormat = "jpg"
)

// Renderer argument flags, in ImageMagick convert syntax.
const (
	FlagSize      = "-size"
	FlagResize    = "-resize"
	FlagFont      = "-font"
	FlagFill      = "-fill"
	FlagPointSize = "-pointsize"
	FlagGravity   = "-gravity"
	FlagAnnotate  = "-annotate"
)

// Resolver turns image metadata and raw options into renderer parameters.
// It keeps no state between calls and is safe for concurrent use.
type Resolver struct {
	tempDir   string
	maxPixels int64
}

func NewResolver(tempDir string) *Resolver {
	if tempDir == "" {
		tempDir = DefaultTempDir
	}
	return &Resolver{tempDir: tempDir, maxPixels: DefaultMaxPixels}
}

// WithMaxPixels sets the largest canvas area, before or after resizing,
// that Resolve accepts. Non-positive values keep the default.
func (r *Resolver) WithMaxPixels(n int64) *Resolver {
	if n > 0 {
		r.maxPixels = n
	}
	return r
}

func (r *Resolver) TempDir() string {
	return r.tempDir
}

// Resolve applies option defaults, computes the watermark geometry and builds
// the ordered renderer arguments. It only manipulates path strings and never
// touches the filesystem.
func (r *Resolver) Resolve(meta models.ImageMetadata, source string, opts models.WatermarkOptions) (*models.ResolvedParameters, error) {
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("%w: image dimensions must be positive, got %dx%d",
			ErrInvalidOptions, meta.Width, meta.Height)
	}

	text := opts.Text
	if text == "" {
		text = DefaultText
	}
	fillColor := opts.Color
	if fillColor == "" {
		fillColor = DefaultColor
	}
	position := DefaultPosition
	if IsValidPosition(opts.Position) {
		position = opts.Position
	}
	align := models.AlignDiagonal1
	if IsValidAlignment(opts.Align) {
		align = strings.ToLower(opts.Align)
	}
	resize, factor := parseResize(opts.Resize)

	outputPath := r.outputPath(source, opts)

	textLength := utf8.RuneCountInString(text)
	if textLength == 0 {
		return nil, fmt.Errorf("%w: watermark text is empty", ErrInvalidOptions)
	}

	width := float64(meta.Width) * factor
	height := float64(meta.Height) * factor
	if err := r.checkArea(meta, width, height); err != nil {
		return nil, err
	}
	angle, pointSize := geometry(align, meta, width, height, float64(textLength))

	args := []string{
		source,
		FlagSize, fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		FlagResize, resize,
	}
	if opts.Font != "" {
		args = append(args, FlagFont, opts.Font)
	}
	args = append(args,
		FlagFill, fillColor,
		FlagPointSize, formatNumber(pointSize),
		FlagGravity, position,
		FlagAnnotate, formatNumber(angle),
		text,
		outputPath,
	)

	return &models.ResolvedParameters{
		Source:     source,
		Args:       args,
		OutputPath: outputPath,
		Geometry: models.Geometry{
			Width:          meta.Width,
			Height:         meta.Height,
			AdjustedWidth:  width,
			AdjustedHeight: height,
			Resize:         resize,
			ResizeFactor:   factor,
			Align:          align,
			Gravity:        position,
			Angle:          angle,
			PointSize:      pointSize,
			Color:          fillColor,
			Font:           opts.Font,
			Text:           text,
		},
	}, nil
}

func (r *Resolver) checkArea(meta models.ImageMetadata, width, height float64) error {
	limit := float64(r.maxPixels)
	if float64(meta.Width)*float64(meta.Height) > limit {
		return fmt.Errorf("%w: image %dx%d exceeds %d pixels",
			ErrInvalidOptions, meta.Width, meta.Height, r.maxPixels)
	}
	if width*height > limit {
		return fmt.Errorf("%w: resized canvas %sx%s exceeds %d pixels",
			ErrInvalidOptions, formatNumber(math.Round(width)), formatNumber(math.Round(height)), r.maxPixels)
	}
	return nil
}

// geometry returns the annotate angle in degrees and the point size that
// makes the text span the adjusted width, height or diagonal.
func geometry(align string, meta models.ImageMetadata, width, height, textLength float64) (float64, float64) {
	diagonal := math.Sqrt(width*width+height*height) / textLength
	slope := math.Atan(float64(meta.Height)/float64(meta.Width)) * (180 / math.Pi)

	switch align {
	case models.AlignLeftToRight:
		return 0, width / textLength
	case models.AlignRightToLeft:
		return 180, width / textLength
	case models.AlignTopToBottom:
		return 90, height / textLength
	case models.AlignBottomToTop:
		return 270, height / textLength
	case models.AlignDiagonal2:
		return slope, diagonal
	default:
		return -slope, diagonal
	}
}

// parseResize returns the resize argument and its multiplier. Values without
// a '%' marker or with an unusable numeric part fall back to 100%.
func parseResize(resize string) (string, float64) {
	idx := strings.Index(resize, "%")
	if idx < 0 {
		return DefaultResize, 1
	}
	percent, err := strconv.ParseFloat(strings.TrimSpace(resize[:idx]), 64)
	if err != nil || percent <= 0 || math.IsInf(percent, 0) || math.IsNaN(percent) {
		return DefaultResize, 1
	}
	return resize, percent / 100
}

func (r *Resolver) outputPath(source string, opts models.WatermarkOptions) string {
	filename := opts.Filename
	if filename == "" {
		filename = DefaultFilename
	}
	outputPath := filepath.Join(r.tempDir, safeBase(filename))

	if opts.DstPath != "" {
		outputPath = opts.DstPath
	}
	if opts.OverrideImage {
		outputPath = source
	}

	sourceExt := extension(source)

	if opts.ChangeFormat {
		format := strings.TrimPrefix(opts.OutputFormat, ".")
		if len(format) < 2 {
			format = sourceExt
		}
		outputPath = replaceExtension(outputPath, format)
	}

	if len(extension(outputPath)) < 2 {
		format := sourceExt
		if len(format) < 2 {
			format = fallbackFormat
		}
		outputPath = replaceExtension(outputPath, format)
	}

	return outputPath
}

// safeBase strips directories from name. Names that reduce to the current
// directory, its parent or the root fall back to DefaultFilename.
func safeBase(name string) string {
	base := filepath.Base(name)
	switch base {
	case ".", "..", string(filepath.Separator):
		return DefaultFilename
	}
	return base
}

func extension(p string) string {
	return strings.TrimPrefix(filepath.Ext(p), ".")
}

func replaceExtension(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + "." + ext
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
