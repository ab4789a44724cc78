package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	"bench-video-go/internal/models"
)

// ErrMalformedFrame is returned for frames whose buffer does not match their size
var ErrMalformedFrame = errors.New("malformed frame")

// Encoder compresses one raw frame into a JPEG buffer.
// Implementations must be deterministic and must report failures as errors.
type Encoder interface {
	Encode(frame *models.RawFrame, quality int) ([]byte, error)
}

// CheckFrame validates a BGR24 frame before encoding
func CheckFrame(frame *models.RawFrame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ErrMalformedFrame)
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrMalformedFrame, frame.Width, frame.Height)
	}
	if want := frame.Width * frame.Height * 3; len(frame.Data) != want {
		return fmt.Errorf("%w: have %d bytes, want %d", ErrMalformedFrame, len(frame.Data), want)
	}
	return nil
}

// Software encodes with the pure Go image/jpeg encoder
type Software struct{}

// NewSoftware creates a software JPEG encoder
func NewSoftware() *Software {
	return &Software{}
}

func (Software) Encode(frame *models.RawFrame, quality int) ([]byte, error) {
	if err := CheckFrame(frame); err != nil {
		return nil, err
	}
	if quality < 0 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality %d outside 0-100", quality)
	}
	// image/jpeg rejects 0; treat it as the lowest quality.
	if quality == 0 {
		quality = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	src := frame.Data
	dst := img.Pix
	for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
		dst[j] = src[i+2]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i]
		dst[j+3] = 0xff
	}

	var buf bytes.Buffer
	buf.Grow(len(src) / 8)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
