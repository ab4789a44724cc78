package api

import (
	"bench-video-go/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	video := s.router.Group("/video")
	{
		video.POST("/start", s.videoHandler.StartVideo)
		video.POST("/stop", s.videoHandler.StopVideo)
		video.GET("/status", s.videoHandler.VideoStatus)
	}
	s.router.GET("/video_stream", s.videoHandler.VideoStream)

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
		system.GET("/debug", s.systemHandler.GetDebugInfo)
	}
}
