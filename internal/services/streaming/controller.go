package streaming

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/camera"
	"bench-video-go/internal/services/encoder"
)

var (
	// ErrNotStreaming is returned by NextFrame once the stream is no longer live
	ErrNotStreaming = errors.New("stream not active")

	// ErrFrameTimeout is returned by NextFrame when no new frame arrived within one frame interval
	ErrFrameTimeout = errors.New("no frame within frame interval")

	// ErrInvalidConfig is returned by Start for out of range stream settings
	ErrInvalidConfig = models.ErrInvalidStreamConfig
)

// StartResult reports what Start did
type StartResult int

const (
	StartStarted StartResult = iota
	StartAlreadyRunning
)

// StopResult reports what Stop did
type StopResult int

const (
	StopStopped StopResult = iota
	StopAlreadyStopped
)

// Prober locates a working camera
type Prober interface {
	Probe(ctx context.Context, cfg models.StreamConfig) (camera.FrameSource, error)
}

// StateObserver is told about every state transition. Calls are made outside
// the controller's locks and must not block for long.
type StateObserver interface {
	StreamStateChanged(event models.StreamEvent)
}

// session is one Streaming lifetime: one open camera, one capture loop
type session struct {
	source camera.FrameSource
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller owns the camera and the stream lifecycle.
//
// Start, Stop and Teardown are linearized by opMu. state, errors, the latest
// frame and the frame-ready broadcast channel are guarded by mu, which is only
// ever held for short copies so Status never blocks behind a probe.
type Controller struct {
	cfg       models.StreamConfig
	prober    Prober
	encoder   encoder.Encoder
	observers []StateObserver
	logger    zerolog.Logger

	opMu sync.Mutex

	mu         sync.Mutex
	state      models.StreamState
	session    *session
	errors     int
	frame      *models.FrameBuffer
	frameReady chan struct{}
	sequence   uint64
	clients    int
	stats      models.StreamStats
}

// NewController creates an idle controller
func NewController(cfg models.StreamConfig, prober Prober, enc encoder.Encoder, logger zerolog.Logger, observers ...StateObserver) *Controller {
	return &Controller{
		cfg:        cfg,
		prober:     prober,
		encoder:    enc,
		observers:  observers,
		logger:     logger.With().Str("component", "stream_controller").Logger(),
		state:      models.StateIdle,
		frameReady: make(chan struct{}),
	}
}

// Start opens the camera and begins streaming.
//
// Concurrent calls collapse into one transition: the first caller probes, the
// rest wait on the operation lock and then report StartAlreadyRunning.
func (c *Controller) Start(ctx context.Context) (StartResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	for {
		c.mu.Lock()
		state, sess := c.state, c.session
		c.mu.Unlock()

		if state == models.StateStreaming {
			c.logger.Info().Msg("Video streaming already active")
			return StartAlreadyRunning, nil
		}
		if state != models.StateStopping {
			break
		}
		// A self-healing shutdown is still releasing the camera.
		c.waitSession(sess)
	}

	if err := c.cfg.Validate(); err != nil {
		return 0, err
	}

	c.setState(models.StateStarting, models.ReasonStartRequested, -1, nil)

	source, err := c.prober.Probe(ctx, c.cfg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Could not initialize camera")
		c.setState(models.StateIdle, models.ReasonStartFailed, -1, err)
		return 0, err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		source: source,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.session = sess
	c.errors = 0
	c.frame = nil
	c.stats.Sessions++
	c.mu.Unlock()

	c.setState(models.StateStreaming, models.ReasonStarted, source.Index(), nil)

	go c.captureLoop(loopCtx, sess)

	c.logger.Info().
		Int("camera_index", source.Index()).
		Int("target_fps", c.cfg.TargetFPS).
		Int("jpeg_quality", c.cfg.JPEGQuality).
		Msg("Video streaming started")

	return StartStarted, nil
}

// Stop ends the current session and releases the camera. It never waits for
// stream clients; their pumps notice the state change on their own.
func (c *Controller) Stop() StopResult {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	return c.stopLocked(models.ReasonStopRequested)
}

// Teardown forces the controller back to Idle. Used at process shutdown.
func (c *Controller) Teardown() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.stopLocked(models.ReasonShutdown) == StopStopped {
		c.logger.Info().Msg("Camera released on shutdown")
	}
}

func (c *Controller) stopLocked(reason string) StopResult {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	if sess != nil && c.transition(models.StateStreaming, models.StateStopping, reason, sess.source.Index(), nil) {
		sess.cancel()
		c.waitSession(sess)
		c.logger.Info().Str("reason", reason).Msg("Video stream stopped")
		return StopStopped
	}

	// Idle, or a self-healing shutdown is already in flight.
	c.waitSession(sess)
	return StopAlreadyStopped
}

func (c *Controller) waitSession(sess *session) {
	if sess == nil {
		return
	}
	<-sess.done
}

// Status returns a snapshot of the stream state. It never blocks on start or stop.
func (c *Controller) Status() models.StreamStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := models.StreamStatus{
		Active:            c.state == models.StateStreaming,
		CameraReady:       c.state == models.StateStreaming && c.session != nil,
		ConsecutiveErrors: c.errors,
		State:             c.state,
		Clients:           c.clients,
		FramesEncoded:     c.stats.FramesEncoded,
	}
	if c.session != nil && c.state == models.StateStreaming {
		idx := c.session.source.Index()
		status.DeviceIndex = &idx
	}
	return status
}

// Stats returns cumulative capture counters
func (c *Controller) Stats() models.StreamStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Config returns the stream configuration
func (c *Controller) Config() models.StreamConfig {
	return c.cfg
}

// AttachClient registers a stream client; the returned func detaches it
func (c *Controller) AttachClient() func() {
	c.mu.Lock()
	c.clients++
	total := c.clients
	c.mu.Unlock()

	c.logger.Info().Int("clients", total).Msg("MJPEG client connected")

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.clients--
			remaining := c.clients
			c.mu.Unlock()
			c.logger.Info().Int("clients", remaining).Msg("MJPEG client disconnected")
		})
	}
}

// NextFrame waits up to one frame interval for a frame newer than after.
func (c *Controller) NextFrame(ctx context.Context, after uint64) (*models.FrameBuffer, error) {
	timer := time.NewTimer(c.cfg.FrameInterval())
	defer timer.Stop()

	for {
		c.mu.Lock()
		state, frame, ready := c.state, c.frame, c.frameReady
		c.mu.Unlock()

		if state != models.StateStreaming {
			return nil, ErrNotStreaming
		}
		if frame != nil && frame.Sequence > after {
			return frame, nil
		}

		select {
		case <-ready:
		case <-timer.C:
			return nil, ErrFrameTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// setState records a transition, wakes every waiting pump and notifies observers
func (c *Controller) setState(state models.StreamState, reason string, deviceIndex int, cause error) {
	c.mu.Lock()
	previous := c.state
	c.applyStateLocked(state)
	c.mu.Unlock()

	c.notify(previous, state, reason, deviceIndex, cause)
}

// transition is setState guarded by the expected current state
func (c *Controller) transition(from, to models.StreamState, reason string, deviceIndex int, cause error) bool {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return false
	}
	c.applyStateLocked(to)
	c.mu.Unlock()

	c.notify(from, to, reason, deviceIndex, cause)
	return true
}

func (c *Controller) applyStateLocked(state models.StreamState) {
	c.state = state
	if state != models.StateStreaming {
		c.frame = nil
	}
	c.broadcastLocked()
}

func (c *Controller) notify(previous, state models.StreamState, reason string, deviceIndex int, cause error) {
	event := models.StreamEvent{
		State:       state,
		Previous:    previous,
		Reason:      reason,
		DeviceIndex: deviceIndex,
		Timestamp:   time.Now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	c.logger.Debug().
		Stringer("from", previous).
		Stringer("to", state).
		Str("reason", reason).
		Msg("Stream state changed")

	for _, o := range c.observers {
		o.StreamStateChanged(event)
	}
}

// broadcastLocked wakes every NextFrame waiter. Caller holds mu.
func (c *Controller) broadcastLocked() {
	close(c.frameReady)
	c.frameReady = make(chan struct{})
}

// publishFrame stores the newest encoded frame and wakes the pumps
func (c *Controller) publishFrame(jpeg []byte, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sequence++
	c.frame = &models.FrameBuffer{
		Sequence:  c.sequence,
		JPEG:      jpeg,
		Timestamp: ts,
	}
	c.errors = 0
	c.stats.FramesEncoded++
	c.stats.LastFrameTime = ts
	c.broadcastLocked()
}

// recordFailure bumps the consecutive error counter and reports whether the
// threshold has been reached
func (c *Controller) recordFailure(encodeFailure bool) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errors++
	if encodeFailure {
		c.stats.EncodeErrors++
	} else {
		c.stats.ReadErrors++
	}
	return c.errors, c.errors >= c.cfg.MaxConsecutiveErrors
}
