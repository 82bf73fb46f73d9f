package watermark

import (
	"strings"

	"github.com/phambaophuc/image-watermark/internal/models"
)

var validAlignments = map[string]struct{}{
	models.AlignDiagonal1:   {},
	models.AlignDiagonal2:   {},
	models.AlignTopToBottom: {},
	models.AlignBottomToTop: {},
	models.AlignLeftToRight: {},
	models.AlignRightToLeft: {},
}

var validPositions = map[string]struct{}{
	models.GravityNorth:     {},
	models.GravityEast:      {},
	models.GravityWest:      {},
	models.GravitySouth:     {},
	models.GravityNorthEast: {},
	models.GravitySouthEast: {},
	models.GravityNorthWest: {},
	models.GravitySouthWest: {},
	models.GravityCenter:    {},
}

// IsValidAlignment reports whether align names one of the six alignment
// modes, ignoring case.
func IsValidAlignment(align string) bool {
	if align == "" {
		return false
	}
	_, ok := validAlignments[strings.ToLower(align)]
	return ok
}

// IsValidPosition reports whether position names one of the nine gravity
// anchors, ignoring case.
func IsValidPosition(position string) bool {
	if position == "" {
		return false
	}
	_, ok := validPositions[strings.ToLower(position)]
	return ok
}
