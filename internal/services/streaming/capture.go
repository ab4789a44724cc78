package streaming

import (
	"context"
	"fmt"
	"time"

	"bench-video-go/internal/models"
)

// failureBackoff is the pause after a failed read or encode
const failureBackoff = 50 * time.Millisecond

// captureLoop reads from the camera at its native rate and encodes at most one
// frame per target interval. Raw frames in between are discarded. The loop owns
// the session's camera and releases it exactly once on exit.
func (c *Controller) captureLoop(ctx context.Context, sess *session) {
	index := sess.source.Index()
	reason := models.ReasonStopped
	var cause error

	defer func() {
		if r := recover(); r != nil {
			cause = fmt.Errorf("capture loop panic: %v", r)
			c.logger.Error().
				Interface("panic", r).
				Int("camera_index", index).
				Msg("Capture loop panic recovered")
			if c.transition(models.StateStreaming, models.StateStopping, models.ReasonFatalCapture, index, cause) {
				reason = models.ReasonFatalCapture
			}
		}

		if err := sess.source.Release(); err != nil {
			c.logger.Warn().Err(err).Int("camera_index", index).Msg("Error releasing video capture")
		}

		// Session and Idle are published in one critical section: a Stopping
		// state always has a session to wait on.
		c.mu.Lock()
		previous := c.state
		if c.session == sess {
			c.session = nil
		}
		c.errors = 0
		c.applyStateLocked(models.StateIdle)
		c.mu.Unlock()

		c.notify(previous, models.StateIdle, reason, index, cause)
		close(sess.done)
		c.logger.Info().Int("camera_index", index).Str("reason", reason).Msg("Frame capture loop stopped")
	}()

	c.logger.Info().Int("camera_index", index).Msg("Frame capture loop started")

	interval := c.cfg.FrameInterval()
	readInterval := c.cfg.CaptureInterval()
	var nextEmit, nextRead time.Time

	for {
		if wait := time.Until(nextRead); wait > 0 && !sleepCtx(ctx, wait) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		nextRead = time.Now().Add(readInterval)

		raw, err := sess.source.Read(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			if stop, fatal := c.handleFailure(ctx, index, false, err); stop {
				if fatal {
					reason, cause = models.ReasonFatalCapture, err
				}
				return
			}
			continue
		}

		now := time.Now()
		if now.Before(nextEmit) {
			c.countRead(true)
			continue
		}
		c.countRead(false)

		jpeg, err := c.encoder.Encode(raw, c.cfg.JPEGQuality)
		if err != nil {
			if stop, fatal := c.handleFailure(ctx, index, true, err); stop {
				if fatal {
					reason, cause = models.ReasonFatalCapture, err
				}
				return
			}
			continue
		}

		nextEmit = nextEmitAfter(nextEmit, now, interval)
		ts := raw.Timestamp
		if ts.IsZero() {
			ts = now
		}
		c.publishFrame(jpeg, ts)
	}
}

// nextEmitAfter advances the emit schedule by one interval so the average
// rate tracks the target even when it is not a divisor of the native rate.
// A schedule that fell a full interval behind restarts from now.
func nextEmitAfter(scheduled, now time.Time, interval time.Duration) time.Time {
	if scheduled.IsZero() || now.Sub(scheduled) >= interval {
		return now.Add(interval)
	}
	return scheduled.Add(interval)
}

// handleFailure counts one failed cycle. stop reports that the loop must exit;
// fatal that it was this failure which hit the error threshold.
func (c *Controller) handleFailure(ctx context.Context, index int, encode bool, err error) (stop, fatal bool) {
	count, limit := c.recordFailure(encode)

	stage := "read"
	if encode {
		stage = "encode"
	}
	c.logger.Warn().
		Err(err).
		Str("stage", stage).
		Int("camera_index", index).
		Int("consecutive_errors", count).
		Msg("Failed to capture frame")

	if limit {
		c.logger.Error().
			Int("camera_index", index).
			Int("consecutive_errors", count).
			Msg("Too many consecutive frame errors, stopping stream")
		if c.transition(models.StateStreaming, models.StateStopping, models.ReasonFatalCapture, index, err) {
			c.mu.Lock()
			c.stats.FatalStops++
			c.mu.Unlock()
			return true, true
		}
		return true, false
	}

	return !sleepCtx(ctx, failureBackoff), false
}

func (c *Controller) countRead(dropped bool) {
	c.mu.Lock()
	c.stats.FramesRead++
	if dropped {
		c.stats.FramesDropped++
	}
	c.mu.Unlock()
}

// sleepCtx sleeps for d and reports false if ctx ended first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
