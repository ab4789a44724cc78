package camera

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"bench-video-go/internal/models"
)

// Prober finds a working camera among a set of candidate device indices.
// All candidates are probed concurrently and the first healthy one wins.
type Prober struct {
	opener Opener
	logger zerolog.Logger
}

type probeResult struct {
	index  int
	source FrameSource
	err    error
}

// NewProber creates a prober that opens devices through opener
func NewProber(opener Opener, logger zerolog.Logger) *Prober {
	return &Prober{
		opener: opener,
		logger: logger.With().Str("component", "camera_probe").Logger(),
	}
}

// Probe returns the first candidate that opens and delivers a frame.
//
// On success exactly one source is left open and owned by the caller; every
// other handle opened along the way is released. On failure none are open and
// the error wraps ErrDeviceNotFound together with each candidate's failure.
func (p *Prober) Probe(ctx context.Context, cfg models.StreamConfig) (FrameSource, error) {
	candidates := cfg.CameraIndices
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrDeviceNotFound)
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.ProbeTimeout)
	defer cancel()

	started := time.Now()
	p.logger.Info().
		Ints("candidates", candidates).
		Dur("timeout", cfg.ProbeTimeout).
		Msg("Probing cameras")

	// Buffered so that late probes never block after Probe has returned.
	results := make(chan probeResult, len(candidates))

	var g errgroup.Group
	for _, index := range candidates {
		index := index
		g.Go(func() error {
			src, err := p.probeOne(probeCtx, index, cfg)
			results <- probeResult{index: index, source: src, err: err}
			return nil
		})
	}

	var (
		winner  FrameSource
		errs    error
		pending = len(candidates)
	)

	deadline := time.NewTimer(cfg.ProbeTimeout)
	defer deadline.Stop()

collect:
	for pending > 0 {
		select {
		case res := <-results:
			pending--
			switch {
			case res.err != nil:
				errs = multierr.Append(errs, fmt.Errorf("camera %d: %w", res.index, res.err))
			case winner == nil:
				winner = res.source
				cancel()
				p.logger.Info().
					Int("index", res.index).
					Dur("elapsed", time.Since(started)).
					Msg("Camera probe succeeded")
			default:
				p.releaseLoser(res.source)
			}
		case <-deadline.C:
			if winner == nil {
				errs = multierr.Append(errs, context.DeadlineExceeded)
			}
			break collect
		case <-ctx.Done():
			break collect
		}
	}

	if pending > 0 {
		// Stragglers are stuck inside the driver; release whatever they open.
		go p.reap(&g, results, pending)
	} else {
		_ = g.Wait()
	}

	if winner != nil && ctx.Err() != nil {
		p.releaseLoser(winner)
		winner = nil
	}

	if winner == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.logger.Error().
			Err(errs).
			Dur("elapsed", time.Since(started)).
			Msg("Failed to initialize camera from all candidates")
		return nil, fmt.Errorf("%w: %w", ErrDeviceNotFound, errs)
	}

	return winner, nil
}

// probeOne opens one candidate and checks that it delivers at least one frame
func (p *Prober) probeOne(ctx context.Context, index int, cfg models.StreamConfig) (FrameSource, error) {
	src, err := p.opener.Open(ctx, index, cfg)
	if err != nil {
		return nil, err
	}

	policy := RetryPolicy{Attempts: cfg.ProbeAttempts, Delay: cfg.ProbeSettle}
	err = policy.Do(ctx, func(attempt int) error {
		_, err := src.Read(ctx)
		if err != nil {
			p.logger.Debug().
				Err(err).
				Int("index", index).
				Int("attempt", attempt).
				Msg("Probe read failed")
		}
		return err
	})
	if err != nil {
		p.releaseLoser(src)
		return nil, fmt.Errorf("opened but cannot read frame: %w", err)
	}

	// Lost the race while reading: give the handle back right away.
	if ctx.Err() != nil {
		p.releaseLoser(src)
		return nil, ctx.Err()
	}

	return src, nil
}

func (p *Prober) reap(g *errgroup.Group, results chan probeResult, pending int) {
	_ = g.Wait()
	for i := 0; i < pending; i++ {
		res := <-results
		if res.source != nil {
			p.releaseLoser(res.source)
		}
	}
	p.logger.Debug().Int("stragglers", pending).Msg("Late camera probes reaped")
}

func (p *Prober) releaseLoser(src FrameSource) {
	if src == nil {
		return
	}
	if err := src.Release(); err != nil {
		p.logger.Warn().Err(err).Int("index", src.Index()).Msg("Error releasing probed camera")
	}
}
