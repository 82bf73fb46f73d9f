package watermark

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/phambaophuc/image-watermark/internal/models"
)

// Inspector reads the dimensions of an image on disk.
type Inspector interface {
	Identify(ctx context.Context, path string) (models.ImageMetadata, error)
}

// Renderer produces the watermarked file described by params.
type Renderer interface {
	Render(ctx context.Context, params *models.ResolvedParameters) error
}

// MagickRenderer drives the ImageMagick command line tools. Commands may
// contain a subcommand, e.g. "magick identify".
type MagickRenderer struct {
	ConvertCmd  string
	IdentifyCmd string
}

func NewMagickRenderer(convertCmd, identifyCmd string) *MagickRenderer {
	if convertCmd == "" {
		convertCmd = "convert"
	}
	if identifyCmd == "" {
		identifyCmd = "identify"
	}
	return &MagickRenderer{ConvertCmd: convertCmd, IdentifyCmd: identifyCmd}
}

func (m *MagickRenderer) Identify(ctx context.Context, path string) (models.ImageMetadata, error) {
	// [0] restricts multi-frame formats to the first frame.
	cmd, err := command(ctx, m.IdentifyCmd, "-format", "%w %h", path+"[0]")
	if err != nil {
		return models.ImageMetadata{}, err
	}

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return models.ImageMetadata{}, fmt.Errorf("identify: %w\noutput: %s", err, string(exitErr.Stderr))
		}
		return models.ImageMetadata{}, fmt.Errorf("identify: %w", err)
	}

	return ParseIdentifyOutput(string(output))
}

func (m *MagickRenderer) Render(ctx context.Context, params *models.ResolvedParameters) error {
	cmd, err := command(ctx, m.ConvertCmd, params.Args...)
	if err != nil {
		return err
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("convert: %w\noutput: %s", err, string(output))
	}
	return nil
}

// ParseIdentifyOutput parses "<width> <height>" as printed by
// identify -format "%w %h".
func ParseIdentifyOutput(output string) (models.ImageMetadata, error) {
	fields := strings.Fields(output)
	if len(fields) < 2 {
		return models.ImageMetadata{}, fmt.Errorf("unexpected identify output %q", output)
	}

	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return models.ImageMetadata{}, fmt.Errorf("parse width %q: %w", fields[0], err)
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return models.ImageMetadata{}, fmt.Errorf("parse height %q: %w", fields[1], err)
	}

	return models.ImageMetadata{Width: width, Height: height}, nil
}

func command(ctx context.Context, name string, args ...string) (*exec.Cmd, error) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return exec.CommandContext(ctx, parts[0], append(parts[1:], args...)...), nil
}
