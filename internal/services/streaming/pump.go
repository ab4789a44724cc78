package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"bench-video-go/internal/models"
)

// Boundary separates the JPEG parts of the multipart stream
const Boundary = "frame"

// FrameSink is the subset of the controller a pump reads from
type FrameSink interface {
	Status() models.StreamStatus
	NextFrame(ctx context.Context, after uint64) (*models.FrameBuffer, error)
	AttachClient() func()
}

// Pump writes the live stream to one HTTP client
type Pump struct {
	sink         FrameSink
	writeTimeout time.Duration
	logger       zerolog.Logger
}

// NewPump creates a pump. A zero writeTimeout disables slow-client detection.
func NewPump(sink FrameSink, writeTimeout time.Duration, logger zerolog.Logger) *Pump {
	return &Pump{
		sink:         sink,
		writeTimeout: writeTimeout,
		logger:       logger.With().Str("component", "mjpeg_pump").Logger(),
	}
}

// SetHeaders writes the multipart response headers
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "multipart/x-mixed-replace; boundary="+Boundary)
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Set("Connection", "close")
}

// Serve streams frames until the stream stops, ctx ends or a write fails.
// It returns the number of frames written. A nil error means the stream ended.
func (p *Pump) Serve(ctx context.Context, w http.ResponseWriter) (int, error) {
	detach := p.sink.AttachClient()
	defer detach()

	SetHeaders(w.Header())
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		p.logger.Debug().Err(err).Msg("Response does not support flushing")
	}

	var (
		sent int
		last uint64
		err  error
	)
	started := time.Now()

	for {
		if !p.sink.Status().Active {
			break
		}

		frame, nextErr := p.sink.NextFrame(ctx, last)
		if nextErr != nil {
			if errors.Is(nextErr, ErrFrameTimeout) {
				continue
			}
			if !errors.Is(nextErr, ErrNotStreaming) {
				err = nextErr
			}
			break
		}

		if werr := p.writePart(rc, w, frame.JPEG); werr != nil {
			err = werr
			break
		}
		last = frame.Sequence
		sent++
	}

	event := p.logger.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		event = p.logger.Warn().Err(err)
	}
	event.Int("frames_sent", sent).
		Dur("duration", time.Since(started)).
		Msg("MJPEG client stream ended")

	return sent, err
}

func (p *Pump) writePart(rc *http.ResponseController, w io.Writer, jpeg []byte) error {
	if p.writeTimeout > 0 {
		// Not every ResponseWriter supports deadlines; the write still proceeds.
		_ = rc.SetWriteDeadline(time.Now().Add(p.writeTimeout))
	}

	header := fmt.Sprintf("--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(jpeg))
	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("write part header: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write jpeg: %w", err)
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return fmt.Errorf("write part trailer: %w", err)
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
