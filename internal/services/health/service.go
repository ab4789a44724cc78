package health

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"bench-video-go/internal/models"
)

// VideoService is the health service name that tracks the stream
const VideoService = "video"

// Service serves grpc.health.v1.Health. The overall server is always SERVING;
// VideoService is SERVING only while the stream is live.
type Service struct {
	server *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

func NewService(logger zerolog.Logger) *Service {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(VideoService, healthpb.HealthCheckResponse_NOT_SERVING)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &Service{
		server: server,
		health: hs,
		logger: logger,
	}
}

// Listen binds port and serves in the background
func (s *Service) Listen(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC health on port %d: %w", port, err)
	}

	s.logger.Info().Int("port", port).Msg("gRPC health service listening")
	go s.Serve(lis)
	return nil
}

// Serve blocks serving on lis
func (s *Service) Serve(lis net.Listener) {
	if err := s.server.Serve(lis); err != nil {
		s.logger.Error().Err(err).Msg("gRPC health server stopped")
	}
}

// StreamStateChanged mirrors the stream state into the video service status
func (s *Service) StreamStateChanged(event models.StreamEvent) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if event.State == models.StateStreaming {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(VideoService, status)
}

// Shutdown marks every service NOT_SERVING and drains in-flight RPCs. Watch
// streams never end on their own, so when ctx expires first the remaining
// connections are closed and ctx.Err() is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(drained)
	}()

	select {
	case <-drained:
		s.logger.Info().Msg("gRPC health service stopped")
		return nil
	case <-ctx.Done():
		s.server.Stop()
		<-drained
		s.logger.Warn().Err(ctx.Err()).Msg("gRPC health service forced to stop")
		return ctx.Err()
	}
}
