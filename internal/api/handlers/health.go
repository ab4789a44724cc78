package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bench-video-go/internal/models"
)

// StatusSource reports the stream state for health output
type StatusSource interface {
	Status() models.StreamStatus
}

type HealthHandler struct {
	WorkerID string
	Version  string
	stream   StatusSource
}

func NewHealthHandler(workerID, version string, stream StatusSource) *HealthHandler {
	return &HealthHandler{WorkerID: workerID, Version: version, stream: stream}
}

type HealthResponse struct {
	Status      string `json:"status" example:"healthy"`
	WorkerID    string `json:"worker_id" example:"bench-1"`
	StreamState string `json:"stream_state" example:"idle"`
}

type WorkerInfoResponse struct {
	WorkerID     string   `json:"worker_id" example:"bench-1"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the service is healthy and responsive
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		WorkerID:    h.WorkerID,
		StreamState: h.stream.Status().State.String(),
	})
}

// @Summary Service information
// @Description Get basic service information and capabilities
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} WorkerInfoResponse
// @Router / [get]
func (h *HealthHandler) WorkerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, WorkerInfoResponse{
		WorkerID: h.WorkerID,
		Status:   "running",
		Version:  h.Version,
		Capabilities: []string{
			"camera_probe",
			"mjpeg_streaming",
		},
	})
}
