package models

import (
	"errors"
	"fmt"
	"time"
)

// StreamState represents the lifecycle state of the video stream
type StreamState int32

const (
	StateIdle StreamState = iota
	StateStarting
	StateStreaming
	StateStopping
)

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateStreaming:
		return "streaming"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText lets the state appear as its name in JSON payloads
func (s StreamState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StreamState) UnmarshalText(text []byte) error {
	for _, candidate := range []StreamState{StateIdle, StateStarting, StateStreaming, StateStopping} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown stream state %q", text)
}

// RawFrame represents a decoded frame from the camera
type RawFrame struct {
	Data      []byte // BGR24, Width*Height*3 bytes
	Width     int
	Height    int
	Timestamp time.Time
}

// FrameBuffer is one JPEG encoded frame shared by all stream clients.
// Only the most recent one is kept.
type FrameBuffer struct {
	Sequence  uint64
	JPEG      []byte
	Timestamp time.Time
}

// ErrInvalidStreamConfig is wrapped by every StreamConfig validation failure
var ErrInvalidStreamConfig = errors.New("invalid stream configuration")

// StreamConfig holds the video options applied when a stream is started
type StreamConfig struct {
	Width                int
	Height               int
	CaptureFPS           int // native capture rate requested from the camera
	TargetFPS            int // rate frames are emitted to clients
	JPEGQuality          int
	MaxConsecutiveErrors int
	CameraIndices        []int

	ProbeTimeout  time.Duration
	ProbeAttempts int
	ProbeSettle   time.Duration
	ReleaseSettle time.Duration
	WriteTimeout  time.Duration
}

// DefaultStreamConfig returns the stock bench camera settings
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Width:                854,
		Height:               480,
		CaptureFPS:           25,
		TargetFPS:            15,
		JPEGQuality:          75,
		MaxConsecutiveErrors: 5,
		CameraIndices:        []int{0, 1, 2, 3, 4},
		ProbeTimeout:         3 * time.Second,
		ProbeAttempts:        2,
		ProbeSettle:          100 * time.Millisecond,
		ReleaseSettle:        100 * time.Millisecond,
		WriteTimeout:         2 * time.Second,
	}
}

// Validate rejects out of range values instead of clamping them
func (c StreamConfig) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: frame size %dx%d must be positive", ErrInvalidStreamConfig, c.Width, c.Height)
	case c.CaptureFPS <= 0:
		return fmt.Errorf("%w: capture rate %d must be positive", ErrInvalidStreamConfig, c.CaptureFPS)
	case c.TargetFPS <= 0:
		return fmt.Errorf("%w: target rate %d must be positive", ErrInvalidStreamConfig, c.TargetFPS)
	case c.JPEGQuality < 0 || c.JPEGQuality > 100:
		return fmt.Errorf("%w: jpeg quality %d outside 0-100", ErrInvalidStreamConfig, c.JPEGQuality)
	case c.MaxConsecutiveErrors <= 0:
		return fmt.Errorf("%w: error threshold %d must be positive", ErrInvalidStreamConfig, c.MaxConsecutiveErrors)
	case len(c.CameraIndices) == 0:
		return fmt.Errorf("%w: no camera candidates configured", ErrInvalidStreamConfig)
	case c.ProbeTimeout <= 0:
		return fmt.Errorf("%w: probe timeout %s must be positive", ErrInvalidStreamConfig, c.ProbeTimeout)
	case c.ProbeAttempts <= 0:
		return fmt.Errorf("%w: probe attempts %d must be positive", ErrInvalidStreamConfig, c.ProbeAttempts)
	}
	for _, idx := range c.CameraIndices {
		if idx < 0 {
			return fmt.Errorf("%w: camera index %d is negative", ErrInvalidStreamConfig, idx)
		}
	}
	return nil
}

// FrameInterval is the minimum spacing between frames sent to clients
func (c StreamConfig) FrameInterval() time.Duration {
	if c.TargetFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TargetFPS)
}

// CaptureInterval is the camera's native frame spacing
func (c StreamConfig) CaptureInterval() time.Duration {
	if c.CaptureFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.CaptureFPS)
}

// StreamStatus is the snapshot returned by GET /video/status
type StreamStatus struct {
	Active            bool        `json:"active"`
	CameraReady       bool        `json:"camera_ready"`
	ConsecutiveErrors int         `json:"consecutive_errors"`
	State             StreamState `json:"state"`
	Clients           int         `json:"clients"`
	DeviceIndex       *int        `json:"device_index,omitempty"`
	FramesEncoded     int64       `json:"frames_encoded"`
}

// StreamStats are cumulative counters for the current process
type StreamStats struct {
	Sessions      int64     `json:"sessions"`
	FramesRead    int64     `json:"frames_read"`
	FramesEncoded int64     `json:"frames_encoded"`
	FramesDropped int64     `json:"frames_dropped"`
	ReadErrors    int64     `json:"read_errors"`
	EncodeErrors  int64     `json:"encode_errors"`
	FatalStops    int64     `json:"fatal_stops"`
	LastFrameTime time.Time `json:"last_frame_time"`
}

// StreamEvent describes one state transition of the stream
type StreamEvent struct {
	State       StreamState `json:"state"`
	Previous    StreamState `json:"previous"`
	Reason      string      `json:"reason"`
	DeviceIndex int         `json:"device_index"`
	Error       string      `json:"error,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// Event reasons
const (
	ReasonStartRequested = "start_requested"
	ReasonStarted        = "started"
	ReasonStartFailed    = "start_failed"
	ReasonStopRequested  = "stop_requested"
	ReasonStopped        = "stopped"
	ReasonFatalCapture   = "fatal_capture_error"
	ReasonShutdown       = "shutdown"
)
