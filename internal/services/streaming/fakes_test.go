package streaming

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/camera"
)

type fakeSource struct {
	index        int
	delay        time.Duration
	releaseDelay time.Duration
	releases     atomic.Int32
	reads        atomic.Int64

	mu      sync.Mutex
	readErr error
}

func (s *fakeSource) setReadErr(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

func (s *fakeSource) Read(ctx context.Context) (*models.RawFrame, error) {
	if s.releases.Load() > 0 {
		return nil, camera.ErrSourceReleased
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	s.reads.Add(1)
	s.mu.Lock()
	err := s.readErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &models.RawFrame{
		Data:      make([]byte, 4*4*3),
		Width:     4,
		Height:    4,
		Timestamp: time.Now(),
	}, nil
}

func (s *fakeSource) Release() error {
	s.releases.Add(1)
	time.Sleep(s.releaseDelay)
	return nil
}

func (s *fakeSource) Index() int {
	return s.index
}

type fakeProber struct {
	mu      sync.Mutex
	sources []*fakeSource
	delay   time.Duration
	err     error
	newSrc  func() *fakeSource
	probes  atomic.Int32
}

func (p *fakeProber) Probe(ctx context.Context, cfg models.StreamConfig) (camera.FrameSource, error) {
	p.probes.Add(1)
	if p.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.delay):
		}
	}
	if p.err != nil {
		return nil, p.err
	}

	src := &fakeSource{index: 2, delay: 40 * time.Millisecond}
	if p.newSrc != nil {
		src = p.newSrc()
	}
	p.mu.Lock()
	p.sources = append(p.sources, src)
	p.mu.Unlock()
	return src, nil
}

func (p *fakeProber) opened() []*fakeSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*fakeSource, len(p.sources))
	copy(out, p.sources)
	return out
}

type fakeEncoder struct {
	fail  atomic.Bool
	calls atomic.Int64
	size  int
}

var errEncode = errors.New("encode failed")

func (e *fakeEncoder) Encode(frame *models.RawFrame, quality int) ([]byte, error) {
	n := e.calls.Add(1)
	if e.fail.Load() {
		return nil, errEncode
	}
	if e.size > 6 {
		out := make([]byte, e.size)
		copy(out, []byte{0xFF, 0xD8, byte(n), byte(quality)})
		out[e.size-2], out[e.size-1] = 0xFF, 0xD9
		return out, nil
	}
	return []byte{0xFF, 0xD8, byte(n), byte(quality), 0xFF, 0xD9}, nil
}

type recordingObserver struct {
	mu     sync.Mutex
	events []models.StreamEvent
}

func (o *recordingObserver) StreamStateChanged(event models.StreamEvent) {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() []models.StreamEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.StreamEvent, len(o.events))
	copy(out, o.events)
	return out
}

type observerFunc func(models.StreamEvent)

func (f observerFunc) StreamStateChanged(event models.StreamEvent) {
	f(event)
}
