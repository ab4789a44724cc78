package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"bench-video-go/internal/api/handlers"
	"bench-video-go/internal/config"
	"bench-video-go/internal/services"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	container *services.ServiceContainer

	healthHandler *handlers.HealthHandler
	videoHandler  *handlers.VideoHandler
	systemHandler *handlers.SystemHandler
}

func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create services: %w", err)
	}

	s := &Server{
		config:        cfg,
		router:        gin.New(),
		container:     container,
		healthHandler: handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, container.Controller),
		videoHandler:  handlers.NewVideoHandler(container.Controller, container.Pump),
		systemHandler: handlers.NewSystemHandler(cfg.WorkerID, container.Controller),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	// No WriteTimeout: /video_stream responses are unbounded.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting bench video API")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the stream first so open MJPEG responses end, then drains HTTP
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping bench video API")

	var errs error
	errs = multierr.Append(errs, s.container.Shutdown(ctx))
	errs = multierr.Append(errs, s.server.Shutdown(ctx))
	return errs
}
