package opencv

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/camera"
)

// Device is a camera.FrameSource backed by an OpenCV VideoCapture
type Device struct {
	index  int
	width  int
	height int
	settle time.Duration
	logger zerolog.Logger

	mu       sync.Mutex
	vc       *gocv.VideoCapture
	img      gocv.Mat
	released bool
}

// Opener opens local camera devices by index
type Opener struct {
	logger zerolog.Logger
}

// NewOpener creates an opener for local V4L2/AVFoundation cameras
func NewOpener(logger zerolog.Logger) *Opener {
	return &Opener{logger: logger}
}

// Open opens the camera at index and applies the stream configuration
func (o *Opener) Open(ctx context.Context, index int, cfg models.StreamConfig) (camera.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
	}

	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera %d cannot be opened", index)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.CaptureFPS))
	vc.Set(gocv.VideoCaptureBufferSize, 1) // Minimize buffer to get fresh frames

	logger := o.logger.With().Int("camera_index", index).Logger()
	logger.Debug().
		Float64("actual_fps", vc.Get(gocv.VideoCaptureFPS)).
		Float64("actual_width", vc.Get(gocv.VideoCaptureFrameWidth)).
		Float64("actual_height", vc.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened")

	return &Device{
		index:  index,
		width:  cfg.Width,
		height: cfg.Height,
		settle: cfg.ReleaseSettle,
		logger: logger,
		vc:     vc,
		img:    gocv.NewMat(),
	}, nil
}

func (d *Device) Index() int {
	return d.index
}

// Read grabs the next frame, resized to the configured output size when the
// driver ignored the requested resolution.
func (d *Device) Read(ctx context.Context) (*models.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.released {
		return nil, camera.ErrSourceReleased
	}

	if ok := d.vc.Read(&d.img); !ok {
		return nil, fmt.Errorf("failed to read frame from camera %d", d.index)
	}
	if d.img.Empty() {
		return nil, camera.ErrEmptyFrame
	}

	var data []byte
	if d.img.Cols() != d.width || d.img.Rows() != d.height {
		resized := gocv.NewMat()
		gocv.Resize(d.img, &resized, image.Pt(d.width, d.height), 0, 0, gocv.InterpolationLinear)
		data = resized.ToBytes()
		resized.Close()
	} else {
		data = d.img.ToBytes()
	}

	return &models.RawFrame{
		Data:      data,
		Width:     d.width,
		Height:    d.height,
		Timestamp: time.Now(),
	}, nil
}

// Release closes the capture. The device node is given a settle delay before
// Release returns so that an immediate reopen does not find it busy.
func (d *Device) Release() error {
	d.mu.Lock()
	if d.released {
		d.mu.Unlock()
		return nil
	}
	d.released = true

	var err error
	if d.vc != nil {
		err = d.vc.Close()
		d.vc = nil
	}
	d.img.Close()
	d.mu.Unlock()

	runtime.GC()
	if d.settle > 0 {
		time.Sleep(d.settle)
	}

	if err != nil {
		return fmt.Errorf("error closing camera %d: %w", d.index, err)
	}
	d.logger.Info().Msg("Video capture released")
	return nil
}
