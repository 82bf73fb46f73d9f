package processor

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/phambaophuc/image-watermark/internal/models"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NativeInspector reads image dimensions from the file header without
// decoding pixel data.
type NativeInspector struct{}

func NewNativeInspector() *NativeInspector {
	return &NativeInspector{}
}

func (NativeInspector) Identify(ctx context.Context, path string) (models.ImageMetadata, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.ImageMetadata{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return models.ImageMetadata{}, fmt.Errorf("invalid image format: %w", err)
	}
	return models.ImageMetadata{Width: cfg.Width, Height: cfg.Height}, nil
}

// ValidateImage checks that file is within maxSize and carries a decodable
// image header. It returns the detected format and rewinds the file.
func ValidateImage(file io.ReadSeeker, maxSize int64) (string, error) {
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if size > maxSize {
		return "", fmt.Errorf("file size %d exceeds maximum allowed size %d", size, maxSize)
	}

	_, format, err := image.DecodeConfig(file)
	if err != nil {
		return "", fmt.Errorf("invalid image format: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return format, nil
}
