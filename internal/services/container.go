package services

import (
	"context"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"bench-video-go/internal/config"
	"bench-video-go/internal/logging"
	"bench-video-go/internal/services/camera"
	"bench-video-go/internal/services/encoder"
	"bench-video-go/internal/services/health"
	"bench-video-go/internal/services/messaging"
	"bench-video-go/internal/services/opencv"
	"bench-video-go/internal/services/streaming"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config     *config.Config
	Controller *streaming.Controller
	Pump       *streaming.Pump
	Messaging  *messaging.Service
	Health     *health.Service

	controlSub *nats.Subscription
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{Config: cfg}

	var observers []streaming.StateObserver

	if cfg.GRPCHealthPort > 0 {
		sc.Health = health.NewService(logging.NewServiceLogger(cfg, "grpc_health"))
		if err := sc.Health.Listen(cfg.GRPCHealthPort); err != nil {
			return nil, err
		}
		observers = append(observers, sc.Health)
	}

	if cfg.NatsEnabled {
		// The stream works without a broker; events are simply not published.
		msg, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, stream events disabled")
		} else {
			sc.Messaging = msg
			observers = append(observers, messaging.NewEventPublisher(
				msg, cfg.NatsVideoSubject, cfg.WorkerID, logging.NewServiceLogger(cfg, "stream_events"),
			))
		}
	}

	streamLogger := logging.NewServiceLogger(cfg, "video")
	prober := camera.NewProber(opencv.NewOpener(streamLogger), streamLogger)
	sc.Controller = streaming.NewController(cfg.StreamConfig(), prober, newEncoder(cfg), streamLogger, observers...)
	sc.Pump = streaming.NewPump(sc.Controller, cfg.VideoWriteTimeout, streamLogger)

	if sc.Messaging != nil {
		control := messaging.NewControlHandler(sc.Controller, cfg.VideoProbeTimeout*2, logging.NewServiceLogger(cfg, "stream_control"))
		sub, err := sc.Messaging.Handle(cfg.NatsControlSubject, control.Handle)
		if err != nil {
			log.Warn().Err(err).Str("subject", cfg.NatsControlSubject).Msg("Failed to subscribe to stream control subject")
		} else {
			sc.controlSub = sub
		}
	}

	return sc, nil
}

func newEncoder(cfg *config.Config) encoder.Encoder {
	switch strings.ToLower(cfg.VideoEncoder) {
	case "software":
		log.Info().Msg("Using software JPEG encoder")
		return encoder.NewSoftware()
	case "opencv":
	default:
		log.Warn().Str("encoder", cfg.VideoEncoder).Msg("Unknown video encoder, using opencv")
	}
	return opencv.NewEncoder()
}

// Shutdown gracefully shuts down all services, releasing the camera first
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs error

	if sc.Controller != nil {
		sc.Controller.Teardown()
	}

	if sc.controlSub != nil {
		errs = multierr.Append(errs, sc.controlSub.Unsubscribe())
	}

	if sc.Messaging != nil {
		errs = multierr.Append(errs, sc.Messaging.Shutdown(ctx))
	}

	if sc.Health != nil {
		errs = multierr.Append(errs, sc.Health.Shutdown(ctx))
	}

	return errs
}
