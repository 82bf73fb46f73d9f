package watermark

import (
	"math"
	"strconv"
	"testing"

	"github.com/phambaophuc/image-watermark/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const photo = "/images/photo.png"

// 15 characters.
const copyright = "Copyright 2024."

var landscape = models.ImageMetadata{Width: 1000, Height: 500}

func resolve(t *testing.T, meta models.ImageMetadata, source string, opts models.WatermarkOptions) *models.ResolvedParameters {
	t.Helper()
	params, err := NewResolver("").Resolve(meta, source, opts)
	require.NoError(t, err)
	return params
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func TestResolveLeftToRight(t *testing.T) {
	params := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Align: "ltr"})

	assert.Equal(t, 0.0, params.Geometry.Angle)
	assert.InDelta(t, 66.67, params.Geometry.PointSize, 0.01)
	assert.Equal(t, 1000.0/15, params.Geometry.PointSize)
	assert.Equal(t, []string{
		photo,
		"-size", "1000x500",
		"-resize", "100%",
		"-fill", "#ff0000",
		"-pointsize", num(1000.0 / 15),
		"-gravity", "Center",
		"-annotate", "0",
		copyright,
		"/tmp/watermark.jpg",
	}, params.Args)
	assert.Equal(t, "/tmp/watermark.jpg", params.OutputPath)
}

func TestResolveTopToBottom(t *testing.T) {
	params := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Align: "ttb"})

	assert.Equal(t, 90.0, params.Geometry.Angle)
	assert.InDelta(t, 33.33, params.Geometry.PointSize, 0.01)
}

func TestResolveAlignmentTable(t *testing.T) {
	slope := math.Atan(500.0/1000.0) * 180 / math.Pi
	diagonal := math.Sqrt(1000*1000+500*500) / 15

	tests := []struct {
		align     string
		angle     float64
		pointSize float64
	}{
		{"ltr", 0, 1000.0 / 15},
		{"RTL", 180, 1000.0 / 15},
		{"ttb", 90, 500.0 / 15},
		{"Btt", 270, 500.0 / 15},
		{"dia1", -slope, diagonal},
		{"DIA2", slope, diagonal},
		{"sideways", -slope, diagonal},
	}

	for _, tt := range tests {
		t.Run(tt.align, func(t *testing.T) {
			params := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Align: tt.align})
			assert.InDelta(t, tt.angle, params.Geometry.Angle, 1e-9)
			assert.InDelta(t, tt.pointSize, params.Geometry.PointSize, 1e-9)
			assert.Equal(t, num(params.Geometry.Angle), params.Args[len(params.Args)-3])
		})
	}
}

func TestResolveDiagonalSymmetry(t *testing.T) {
	meta := models.ImageMetadata{Width: 1920, Height: 1080}
	dia1 := resolve(t, meta, photo, models.WatermarkOptions{Text: copyright, Align: "dia1"})
	dia2 := resolve(t, meta, photo, models.WatermarkOptions{Text: copyright, Align: "dia2"})

	assert.Less(t, dia1.Geometry.Angle, 0.0)
	assert.Equal(t, -dia1.Geometry.Angle, dia2.Geometry.Angle)
	assert.Equal(t, dia1.Geometry.PointSize, dia2.Geometry.PointSize)
}

func TestResolveUnknownAlignMatchesDia1(t *testing.T) {
	explicit := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Align: "dia1"})

	for _, align := range []string{"", "bogus"} {
		got := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Align: align})
		assert.Equal(t, explicit, got, align)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	opts := models.WatermarkOptions{
		Text:     copyright,
		Align:    "dia2",
		Position: "SouthEast",
		Resize:   "75%",
		Font:     "DejaVu-Sans",
	}

	first := resolve(t, landscape, photo, opts)
	second := resolve(t, landscape, photo, opts)
	assert.Equal(t, first, second)
}

func TestResolveDefaults(t *testing.T) {
	params := resolve(t, landscape, photo, models.WatermarkOptions{})
	g := params.Geometry

	assert.Equal(t, DefaultText, g.Text)
	assert.Equal(t, DefaultColor, g.Color)
	assert.Equal(t, DefaultPosition, g.Gravity)
	assert.Equal(t, DefaultResize, g.Resize)
	assert.Equal(t, models.AlignDiagonal1, g.Align)
	assert.Equal(t, "/tmp/watermark.jpg", params.OutputPath)
	assert.NotContains(t, params.Args, FlagFont)
	assert.InDelta(t, math.Sqrt(1000*1000+500*500)/float64(len(DefaultText)), g.PointSize, 1e-9)
}

func TestResolveResize(t *testing.T) {
	tests := []struct {
		name   string
		resize string
		want   string
		width  float64
		height float64
	}{
		{"half", "50%", "50%", 500, 250},
		{"fractional", "12.5%", "12.5%", 125, 62.5},
		{"double", "200%", "200%", 2000, 1000},
		{"no percent sign", "abc", "100%", 1000, 500},
		{"pixels", "800x600", "100%", 1000, 500},
		{"unparsable percent", "abc%", "100%", 1000, 500},
		{"zero", "0%", "100%", 1000, 500},
		{"empty", "", "100%", 1000, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Align: "ltr", Resize: tt.resize})
			assert.Equal(t, tt.want, params.Geometry.Resize)
			assert.Equal(t, tt.want, params.Args[4])
			assert.InDelta(t, tt.width, params.Geometry.AdjustedWidth, 1e-9)
			assert.InDelta(t, tt.height, params.Geometry.AdjustedHeight, 1e-9)
			assert.InDelta(t, tt.width/15, params.Geometry.PointSize, 1e-9)
			// canvas size always reports the raw dimensions
			assert.Equal(t, "1000x500", params.Args[2])
		})
	}
}

func TestResolveDiagonalAngleIgnoresResize(t *testing.T) {
	full := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright})
	half := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Resize: "50%"})

	assert.Equal(t, full.Geometry.Angle, half.Geometry.Angle)
	assert.InDelta(t, full.Geometry.PointSize/2, half.Geometry.PointSize, 1e-9)
}

func TestResolveOptionalFont(t *testing.T) {
	params := resolve(t, landscape, photo, models.WatermarkOptions{Text: copyright, Font: "/fonts/Roboto.ttf", Color: "rgba(0,0,0,0.4)"})

	assert.Equal(t, []string{"-font", "/fonts/Roboto.ttf", "-fill", "rgba(0,0,0,0.4)"}, params.Args[5:9])
	assert.Len(t, params.Args, 17)
}

func TestResolvePosition(t *testing.T) {
	tests := map[string]string{
		"SouthEast": "SouthEast",
		"north":     "north",
		"middle":    DefaultPosition,
		"":          DefaultPosition,
	}

	for in, want := range tests {
		params := resolve(t, landscape, photo, models.WatermarkOptions{Position: in})
		assert.Equal(t, want, params.Geometry.Gravity, in)
		assert.Equal(t, want, params.Args[10], in)
	}
}

func TestResolveOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		source string
		opts   models.WatermarkOptions
		want   string
	}{
		{
			name:   "default temp file",
			source: photo,
			want:   "/tmp/watermark.jpg",
		},
		{
			name:   "custom filename",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "stamped.webp"},
			want:   "/tmp/stamped.webp",
		},
		{
			name:   "filename cannot leave temp dir",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "../../etc/stamped.jpg"},
			want:   "/tmp/stamped.jpg",
		},
		{
			name:   "parent directory filename",
			source: photo,
			opts:   models.WatermarkOptions{Filename: ".."},
			want:   "/tmp/watermark.jpg",
		},
		{
			name:   "current directory filename",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "."},
			want:   "/tmp/watermark.jpg",
		},
		{
			name:   "root filename",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "/"},
			want:   "/tmp/watermark.jpg",
		},
		{
			name:   "filename ending in parent directory",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "stamps/.."},
			want:   "/tmp/watermark.jpg",
		},
		{
			name:   "override image",
			source: photo,
			opts:   models.WatermarkOptions{OverrideImage: true},
			want:   photo,
		},
		{
			name:   "change format",
			source: photo,
			opts:   models.WatermarkOptions{ChangeFormat: true, OutputFormat: "png"},
			want:   "/tmp/watermark.png",
		},
		{
			name:   "change format with leading dot",
			source: photo,
			opts:   models.WatermarkOptions{ChangeFormat: true, OutputFormat: ".gif"},
			want:   "/tmp/watermark.gif",
		},
		{
			name:   "empty output format falls back to source",
			source: photo,
			opts:   models.WatermarkOptions{ChangeFormat: true, OutputFormat: ""},
			want:   "/tmp/watermark.png",
		},
		{
			name:   "short output format falls back to source",
			source: "/images/scan.tiff",
			opts:   models.WatermarkOptions{ChangeFormat: true, OutputFormat: "j"},
			want:   "/tmp/watermark.tiff",
		},
		{
			name:   "output format ignored without change format",
			source: photo,
			opts:   models.WatermarkOptions{OutputFormat: "gif"},
			want:   "/tmp/watermark.jpg",
		},
		{
			name:   "override and change format",
			source: photo,
			opts:   models.WatermarkOptions{OverrideImage: true, ChangeFormat: true, OutputFormat: "jpg"},
			want:   "/images/photo.jpg",
		},
		{
			name:   "missing extension repaired from source",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "stamped"},
			want:   "/tmp/stamped.png",
		},
		{
			name:   "one letter extension repaired from source",
			source: photo,
			opts:   models.WatermarkOptions{Filename: "stamped.x"},
			want:   "/tmp/stamped.png",
		},
		{
			name:   "no extension anywhere",
			source: "/images/raw",
			opts:   models.WatermarkOptions{Filename: "stamped"},
			want:   "/tmp/stamped.jpg",
		},
		{
			name:   "override source without extension",
			source: "/images/raw",
			opts:   models.WatermarkOptions{OverrideImage: true},
			want:   "/images/raw.jpg",
		},
		{
			name:   "destination path",
			source: photo,
			opts:   models.WatermarkOptions{DstPath: "/srv/out/final.webp"},
			want:   "/srv/out/final.webp",
		},
		{
			name:   "override wins over destination path",
			source: photo,
			opts:   models.WatermarkOptions{DstPath: "/srv/out/final.webp", OverrideImage: true},
			want:   photo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := resolve(t, landscape, tt.source, tt.opts)
			assert.Equal(t, tt.want, params.OutputPath)
			assert.Equal(t, tt.want, params.Args[len(params.Args)-1])
			assert.Equal(t, tt.source, params.Args[0])
		})
	}
}

func TestResolveCustomTempDir(t *testing.T) {
	params, err := NewResolver("/var/cache/wm").Resolve(landscape, photo, models.WatermarkOptions{Filename: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/wm/a.png", params.OutputPath)
}

func TestResolveCustomTempDirKeepsDotNamesInside(t *testing.T) {
	for _, name := range []string{"..", ".", "/"} {
		params, err := NewResolver("/tmp/wm").Resolve(landscape, photo, models.WatermarkOptions{Filename: name})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/wm/watermark.jpg", params.OutputPath, name)
	}
}

func TestResolveRejectsOversizedCanvas(t *testing.T) {
	small := models.ImageMetadata{Width: 100, Height: 100}

	_, err := NewResolver("").Resolve(small, photo, models.WatermarkOptions{Text: "a", Resize: "100000000%"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
	assert.ErrorContains(t, err, "resized canvas")

	_, err = NewResolver("").Resolve(models.ImageMetadata{Width: 100000, Height: 100000}, photo, models.WatermarkOptions{Resize: "1%"})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	limited := NewResolver("").WithMaxPixels(1000 * 500)
	_, err = limited.Resolve(landscape, photo, models.WatermarkOptions{})
	require.NoError(t, err)
	_, err = limited.Resolve(landscape, photo, models.WatermarkOptions{Resize: "101%"})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	params, err := NewResolver("").WithMaxPixels(0).Resolve(landscape, photo, models.WatermarkOptions{Resize: "200%"})
	require.NoError(t, err)
	assert.Equal(t, "200%", params.Geometry.Resize)
}

func TestResolveTextLengthCountsRunes(t *testing.T) {
	params := resolve(t, landscape, photo, models.WatermarkOptions{Text: "©ÆØÅ", Align: "ltr"})
	assert.Equal(t, 250.0, params.Geometry.PointSize)
}

func TestResolveRejectsInvalidDimensions(t *testing.T) {
	for _, meta := range []models.ImageMetadata{{Width: 0, Height: 500}, {Width: 1000, Height: 0}, {Width: -1, Height: -1}} {
		_, err := NewResolver("").Resolve(meta, photo, models.WatermarkOptions{})
		assert.ErrorIs(t, err, ErrInvalidOptions)
	}
}
