package models

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// Alignment modes. The diagonal modes follow the image's aspect ratio,
// the others are fixed cardinal rotations.
const (
	AlignDiagonal1   = "dia1"
	AlignDiagonal2   = "dia2"
	AlignTopToBottom = "ttb"
	AlignBottomToTop = "btt"
	AlignLeftToRight = "ltr"
	AlignRightToLeft = "rtl"
)

// Gravity keywords understood by the renderer.
const (
	GravityNorth     = "north"
	GravityEast      = "east"
	GravityWest      = "west"
	GravitySouth     = "south"
	GravityNorthEast = "northeast"
	GravitySouthEast = "southeast"
	GravityNorthWest = "northwest"
	GravitySouthWest = "southwest"
	GravityCenter    = "center"
)

// Option keys as accepted in JSON payloads and multipart forms.
const (
	OptText          = "text"
	OptFilename      = "filename"
	OptAlign         = "align"
	OptPosition      = "position"
	OptColor         = "color"
	OptFont          = "font"
	OptResize        = "resize"
	OptOverrideImage = "override-image"
	OptChangeFormat  = "change-format"
	OptOutputFormat  = "output-format"
	OptDstPath       = "dstPath"
)

// OptionKeys lists every recognised option key.
var OptionKeys = []string{
	OptText, OptFilename, OptAlign, OptPosition, OptColor, OptFont, OptResize,
	OptOverrideImage, OptChangeFormat, OptOutputFormat, OptDstPath,
}

type ImageMetadata struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WatermarkOptions is the caller supplied styling and output configuration.
// Zero values are defaulted during resolution.
type WatermarkOptions struct {
	Text          string `json:"text,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Align         string `json:"align,omitempty"`
	Position      string `json:"position,omitempty"`
	Color         string `json:"color,omitempty"`
	Font          string `json:"font,omitempty"`
	Resize        string `json:"resize,omitempty"`
	OverrideImage bool   `json:"override-image,omitempty"`
	ChangeFormat  bool   `json:"change-format,omitempty"`
	OutputFormat  string `json:"output-format,omitempty"`
	DstPath       string `json:"dstPath,omitempty"`
}

// OptionsFromMap builds options from loosely typed input. Boolean flags may
// arrive as bools, numbers or strings ("true", "1", "t"); anything that does
// not convert cleanly is treated as false.
func OptionsFromMap(raw map[string]interface{}) WatermarkOptions {
	return WatermarkOptions{
		Text:          cast.ToString(raw[OptText]),
		Filename:      cast.ToString(raw[OptFilename]),
		Align:         cast.ToString(raw[OptAlign]),
		Position:      cast.ToString(raw[OptPosition]),
		Color:         cast.ToString(raw[OptColor]),
		Font:          cast.ToString(raw[OptFont]),
		Resize:        cast.ToString(raw[OptResize]),
		OverrideImage: cast.ToBool(raw[OptOverrideImage]),
		ChangeFormat:  cast.ToBool(raw[OptChangeFormat]),
		OutputFormat:  cast.ToString(raw[OptOutputFormat]),
		DstPath:       cast.ToString(raw[OptDstPath]),
	}
}

func (o *WatermarkOptions) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = OptionsFromMap(raw)
	return nil
}

// Geometry holds the resolved scalar values behind the renderer arguments.
type Geometry struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	AdjustedWidth  float64 `json:"adjusted_width"`
	AdjustedHeight float64 `json:"adjusted_height"`
	Resize         string  `json:"resize"`
	ResizeFactor   float64 `json:"resize_factor"`
	Align          string  `json:"align"`
	Gravity        string  `json:"gravity"`
	Angle          float64 `json:"angle"`
	PointSize      float64 `json:"pointsize"`
	Color          string  `json:"color"`
	Font           string  `json:"font,omitempty"`
	Text           string  `json:"text"`
}

// ResolvedParameters is the full instruction set for one render.
type ResolvedParameters struct {
	Source     string   `json:"source"`
	Args       []string `json:"args"`
	OutputPath string   `json:"output_path"`
	Geometry   Geometry `json:"geometry"`
}

type WatermarkResult struct {
	Data        []byte              `json:"-"`
	OutputPath  string              `json:"output_path"`
	ContentType string              `json:"content_type"`
	Params      *ResolvedParameters `json:"params"`
}
