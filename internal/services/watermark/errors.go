package watermark

import "errors"

var (
	ErrInvalidSource       = errors.New("invalid image source")
	ErrInvalidOptions      = errors.New("invalid watermark options")
	ErrMetadataUnavailable = errors.New("unable to read image metadata")
	ErrRenderFailure       = errors.New("error in applying watermark")
	ErrOutputIO            = errors.New("watermarked output unavailable")
)
