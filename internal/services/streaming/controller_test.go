package streaming

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/camera"
)

func testConfig() models.StreamConfig {
	cfg := models.DefaultStreamConfig()
	cfg.ReleaseSettle = 0
	return cfg
}

func newTestController(t *testing.T, prober Prober, enc *fakeEncoder, observers ...StateObserver) *Controller {
	t.Helper()
	c := NewController(testConfig(), prober, enc, zerolog.Nop(), observers...)
	t.Cleanup(c.Teardown)
	return c
}

func TestStartThenStop(t *testing.T) {
	prober := &fakeProber{}
	c := newTestController(t, prober, &fakeEncoder{})

	res, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StartStarted, res)

	status := c.Status()
	assert.True(t, status.Active)
	assert.True(t, status.CameraReady)
	assert.Equal(t, models.StateStreaming, status.State)
	require.NotNil(t, status.DeviceIndex)
	assert.Equal(t, 2, *status.DeviceIndex)

	frame, err := c.NextFrame(context.Background(), 0)
	for err == ErrFrameTimeout {
		frame, err = c.NextFrame(context.Background(), 0)
	}
	require.NoError(t, err)
	assert.NotEmpty(t, frame.JPEG)
	assert.Equal(t, uint64(1), frame.Sequence)

	assert.Equal(t, StopStopped, c.Stop())

	status = c.Status()
	assert.False(t, status.Active)
	assert.False(t, status.CameraReady)
	assert.Equal(t, models.StateIdle, status.State)
	assert.Nil(t, status.DeviceIndex)

	sources := prober.opened()
	require.Len(t, sources, 1)
	assert.Equal(t, int32(1), sources[0].releases.Load())
}

func TestStartWhileStreamingIsNoop(t *testing.T) {
	prober := &fakeProber{}
	c := newTestController(t, prober, &fakeEncoder{})

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	res, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StartAlreadyRunning, res)
	assert.Equal(t, int32(1), prober.probes.Load())
}

func TestConcurrentStartsProduceOneTransition(t *testing.T) {
	prober := &fakeProber{delay: 100 * time.Millisecond}
	observer := &recordingObserver{}
	c := newTestController(t, prober, &fakeEncoder{}, observer)

	const callers = 10
	results := make([]StartResult, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Start(context.Background())
		}(i)
	}
	wg.Wait()

	started := 0
	for i := range results {
		require.NoError(t, errs[i])
		if results[i] == StartStarted {
			started++
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, int32(1), prober.probes.Load())

	streaming := 0
	for _, e := range observer.snapshot() {
		if e.State == models.StateStreaming {
			streaming++
		}
	}
	assert.Equal(t, 1, streaming)
}

func TestStopWhenIdle(t *testing.T) {
	c := newTestController(t, &fakeProber{}, &fakeEncoder{})

	assert.Equal(t, StopAlreadyStopped, c.Stop())
	assert.Equal(t, StopAlreadyStopped, c.Stop())
	assert.Equal(t, models.StateIdle, c.Status().State)
}

func TestStartFailsWhenNoCamera(t *testing.T) {
	prober := &fakeProber{err: camera.ErrDeviceNotFound}
	observer := &recordingObserver{}
	c := newTestController(t, prober, &fakeEncoder{}, observer)

	_, err := c.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, camera.ErrDeviceNotFound)
	assert.Equal(t, models.StateIdle, c.Status().State)

	events := observer.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, models.StateStarting, events[0].State)
	assert.Equal(t, models.StateIdle, events[1].State)
	assert.Equal(t, models.ReasonStartFailed, events[1].Reason)
	assert.NotEmpty(t, events[1].Error)
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	prober := &fakeProber{}
	cfg := testConfig()
	cfg.JPEGQuality = 101
	c := NewController(cfg, prober, &fakeEncoder{}, zerolog.Nop())

	_, err := c.Start(context.Background())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, int32(0), prober.probes.Load())
	assert.Equal(t, models.StateIdle, c.Status().State)
}

func TestConsecutiveEncodeFailuresStopStream(t *testing.T) {
	prober := &fakeProber{}
	enc := &fakeEncoder{}
	enc.fail.Store(true)
	observer := &recordingObserver{}
	c := newTestController(t, prober, enc, observer)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Status().State == models.StateIdle
	}, 3*time.Second, 10*time.Millisecond)

	sources := prober.opened()
	require.Len(t, sources, 1)
	assert.Equal(t, int32(1), sources[0].releases.Load())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.FatalStops)
	assert.Equal(t, int64(5), stats.EncodeErrors)
	assert.Equal(t, int64(0), stats.FramesEncoded)

	var fatal bool
	for _, e := range observer.snapshot() {
		if e.State == models.StateStopping && e.Reason == models.ReasonFatalCapture {
			fatal = true
			assert.Contains(t, e.Error, errEncode.Error())
		}
	}
	assert.True(t, fatal)

	// Stop after a self-healing shutdown is a no-op.
	assert.Equal(t, StopAlreadyStopped, c.Stop())
	assert.Equal(t, int32(1), sources[0].releases.Load())
}

func TestReadErrorsResetOnSuccess(t *testing.T) {
	src := &fakeSource{index: 0, delay: 20 * time.Millisecond, readErr: camera.ErrEmptyFrame}
	prober := &fakeProber{newSrc: func() *fakeSource { return src }}
	c := newTestController(t, prober, &fakeEncoder{})

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return c.Status().ConsecutiveErrors >= 2
	}, 2*time.Second, 5*time.Millisecond)

	// Recovering before the threshold keeps the stream alive.
	src.setReadErr(nil)

	require.Eventually(t, func() bool {
		return c.Stats().FramesEncoded > 0
	}, 2*time.Second, 10*time.Millisecond)

	status := c.Status()
	assert.True(t, status.Active)
	assert.Equal(t, 0, status.ConsecutiveErrors)
}

func TestEmitRateTracksTarget(t *testing.T) {
	c := newTestController(t, &fakeProber{}, &fakeEncoder{})

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	// 25 fps native, 15 fps target.
	time.Sleep(2 * time.Second)
	c.Stop()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.FramesEncoded, int64(32))
	assert.GreaterOrEqual(t, stats.FramesEncoded, int64(26))
	assert.Greater(t, stats.FramesDropped, int64(0))
	assert.Equal(t, stats.FramesRead, stats.FramesEncoded+stats.FramesDropped)
}

func TestNextEmitAfter(t *testing.T) {
	interval := time.Second / 15
	base := time.Unix(1700000000, 0)

	assert.Equal(t, base.Add(interval), nextEmitAfter(time.Time{}, base, interval))

	// On schedule: advance by exactly one interval, keeping the phase.
	scheduled := base.Add(interval)
	late := scheduled.Add(13 * time.Millisecond)
	assert.Equal(t, scheduled.Add(interval), nextEmitAfter(scheduled, late, interval))

	// A full interval behind: restart from now instead of bursting.
	stalled := scheduled.Add(3 * interval)
	assert.Equal(t, stalled.Add(interval), nextEmitAfter(scheduled, stalled, interval))
}

func TestStartDuringSelfHealingTeardown(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveErrors = 1

	prober := &fakeProber{newSrc: func() *fakeSource {
		return &fakeSource{index: 1, delay: 20 * time.Millisecond, releaseDelay: 150 * time.Millisecond}
	}}
	enc := &fakeEncoder{}
	enc.fail.Store(true)

	stopping := make(chan struct{}, 1)
	observer := observerFunc(func(e models.StreamEvent) {
		if e.State == models.StateStopping && e.Reason == models.ReasonFatalCapture {
			enc.fail.Store(false)
			select {
			case stopping <- struct{}{}:
			default:
			}
		}
	})

	c := NewController(cfg, prober, enc, zerolog.Nop(), observer)
	t.Cleanup(c.Teardown)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	select {
	case <-stopping:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop itself")
	}

	// The old camera is still being released.
	res, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StartStarted, res)

	sources := prober.opened()
	require.Len(t, sources, 2)
	assert.Equal(t, int32(1), sources[0].releases.Load())
	assert.Equal(t, int32(0), sources[1].releases.Load())

	status := c.Status()
	assert.Equal(t, models.StateStreaming, status.State)
	assert.True(t, status.CameraReady)

	stopped := make(chan StopResult, 1)
	go func() { stopped <- c.Stop() }()
	select {
	case res := <-stopped:
		assert.Equal(t, StopStopped, res)
	case <-time.After(2 * time.Second):
		t.Fatal("stop blocked after restart")
	}
	assert.Equal(t, int32(1), sources[1].releases.Load())
}

func TestRepeatedRestartAfterFatalStop(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveErrors = 1

	prober := &fakeProber{newSrc: func() *fakeSource {
		return &fakeSource{index: 0, delay: 5 * time.Millisecond}
	}}
	enc := &fakeEncoder{}

	stopping := make(chan struct{}, 1)
	observer := observerFunc(func(e models.StreamEvent) {
		if e.State == models.StateStopping && e.Reason == models.ReasonFatalCapture {
			enc.fail.Store(false)
			select {
			case stopping <- struct{}{}:
			default:
			}
		}
	})

	c := NewController(cfg, prober, enc, zerolog.Nop(), observer)
	t.Cleanup(c.Teardown)

	for i := 0; i < 20; i++ {
		enc.fail.Store(true)
		_, err := c.Start(context.Background())
		require.NoError(t, err)

		select {
		case <-stopping:
		case <-time.After(2 * time.Second):
			t.Fatalf("trial %d: stream did not stop itself", i)
		}

		res, err := c.Start(context.Background())
		require.NoError(t, err)
		require.Equal(t, StartStarted, res, "trial %d", i)
		require.Equal(t, models.StateStreaming, c.Status().State, "trial %d", i)
		require.Equal(t, StopStopped, c.Stop(), "trial %d", i)
	}

	for i, src := range prober.opened() {
		assert.Equal(t, int32(1), src.releases.Load(), "source %d", i)
	}
}

func TestNextFrameSequenceIsMonotonic(t *testing.T) {
	c := newTestController(t, &fakeProber{}, &fakeEncoder{})

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	var last uint64
	received := 0
	for received < 5 {
		frame, err := c.NextFrame(context.Background(), last)
		if err == ErrFrameTimeout {
			continue
		}
		require.NoError(t, err)
		assert.Greater(t, frame.Sequence, last)
		last = frame.Sequence
		received++
	}
}

func TestStopWakesFrameWaiters(t *testing.T) {
	cfg := testConfig()
	cfg.TargetFPS = 1
	c := NewController(cfg, &fakeProber{}, &fakeEncoder{}, zerolog.Nop())
	t.Cleanup(c.Teardown)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	frame, err := c.NextFrame(context.Background(), 0)
	for err == ErrFrameTimeout {
		frame, err = c.NextFrame(context.Background(), 0)
	}
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := c.NextFrame(context.Background(), frame.Sequence)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	begin := time.Now()
	c.Stop()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrNotStreaming)
		assert.Less(t, time.Since(begin), 500*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by stop")
	}
}

func TestNextFrameWhenIdle(t *testing.T) {
	c := newTestController(t, &fakeProber{}, &fakeEncoder{})

	_, err := c.NextFrame(context.Background(), 0)
	assert.ErrorIs(t, err, ErrNotStreaming)
}

func TestRestartOpensFreshCamera(t *testing.T) {
	prober := &fakeProber{}
	c := newTestController(t, prober, &fakeEncoder{})

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	c.Stop()

	res, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StartStarted, res)

	sources := prober.opened()
	require.Len(t, sources, 2)
	assert.Equal(t, int32(1), sources[0].releases.Load())
	assert.Equal(t, int32(0), sources[1].releases.Load())
	assert.Equal(t, int64(2), c.Stats().Sessions)
}

func TestTeardownReleasesCamera(t *testing.T) {
	prober := &fakeProber{}
	observer := &recordingObserver{}
	c := NewController(testConfig(), prober, &fakeEncoder{}, zerolog.Nop(), observer)

	_, err := c.Start(context.Background())
	require.NoError(t, err)

	c.Teardown()
	c.Teardown()

	sources := prober.opened()
	require.Len(t, sources, 1)
	assert.Equal(t, int32(1), sources[0].releases.Load())

	events := observer.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, models.StateIdle, events[len(events)-1].State)

	var shutdown bool
	for _, e := range events {
		if e.Reason == models.ReasonShutdown {
			shutdown = true
		}
	}
	assert.True(t, shutdown)
}

func TestAttachClientCounts(t *testing.T) {
	c := newTestController(t, &fakeProber{}, &fakeEncoder{})

	detachA := c.AttachClient()
	detachB := c.AttachClient()
	assert.Equal(t, 2, c.Status().Clients)

	detachA()
	detachA()
	assert.Equal(t, 1, c.Status().Clients)

	detachB()
	assert.Equal(t, 0, c.Status().Clients)
}
