package processor

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

func (p *NativeRenderer) saveImage(img *image.NRGBA, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	format, err := imaging.FormatFromFilename(path)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		// x/image ships no webp encoder; keep the requested name and fall back to PNG
		if strings.EqualFold(filepath.Ext(path), ".webp") {
			return p.encodeFile(img, path, imaging.PNG)
		}
		return err
	}
	if err != nil {
		return err
	}

	return p.encodeFile(img, path, format)
}

func (p *NativeRenderer) encodeFile(img *image.NRGBA, path string, format imaging.Format) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	return imaging.Encode(file, img, format, imaging.JPEGQuality(p.quality))
}
