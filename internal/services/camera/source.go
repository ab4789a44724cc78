package camera

import (
	"context"
	"errors"

	"bench-video-go/internal/models"
)

var (
	// ErrSourceReleased is returned by Read once the source has been released
	ErrSourceReleased = errors.New("frame source released")

	// ErrEmptyFrame is returned when the device delivered no pixels
	ErrEmptyFrame = errors.New("empty frame")

	// ErrDeviceNotFound is returned when no candidate camera could be opened
	ErrDeviceNotFound = errors.New("camera not found")
)

// FrameSource wraps one open camera device.
//
// Read blocks for at most one native frame interval. Release is idempotent and
// must make every later Read fail with ErrSourceReleased instead of blocking.
type FrameSource interface {
	Read(ctx context.Context) (*models.RawFrame, error)
	Release() error
	Index() int
}

// Opener opens the camera at a device index and applies the configured
// resolution and capture rate. The returned source is owned by the caller.
type Opener interface {
	Open(ctx context.Context, index int, cfg models.StreamConfig) (FrameSource, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context, index int, cfg models.StreamConfig) (FrameSource, error)

func (f OpenerFunc) Open(ctx context.Context, index int, cfg models.StreamConfig) (FrameSource, error) {
	return f(ctx, index, cfg)
}
