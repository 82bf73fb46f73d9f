package watermark

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/phambaophuc/image-watermark/internal/models"
)

// ClientPolicy restricts options that arrive from remote callers. The
// convert command reads "@name" arguments as files, and font names are
// filesystem paths, so neither may be chosen freely.
type ClientPolicy struct {
	DefaultFont string
	// FontDir is the only directory clients may pick fonts from, by bare
	// file name. Empty allows nothing but DefaultFont.
	FontDir string
}

// Apply returns opts with server-side paths removed and the font resolved,
// or ErrInvalidOptions when a value is not allowed.
func (p ClientPolicy) Apply(opts models.WatermarkOptions) (models.WatermarkOptions, error) {
	opts.DstPath = ""

	if strings.HasPrefix(opts.Text, "@") {
		return opts, fmt.Errorf("%w: text must not start with '@'", ErrInvalidOptions)
	}

	font, err := p.font(opts.Font)
	if err != nil {
		return opts, err
	}
	opts.Font = font

	return opts, nil
}

func (p ClientPolicy) font(name string) (string, error) {
	if name == "" || name == p.DefaultFont {
		return p.DefaultFont, nil
	}
	if p.FontDir == "" {
		return "", fmt.Errorf("%w: font %q is not allowed", ErrInvalidOptions, name)
	}

	base := filepath.Base(name)
	if base != name || base == "." || base == ".." || strings.HasPrefix(base, "@") {
		return "", fmt.Errorf("%w: font must be a file name in the font directory", ErrInvalidOptions)
	}
	return filepath.Join(p.FontDir, base), nil
}
