package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bench-video-go/internal/logging"
	"bench-video-go/internal/models"
	"bench-video-go/internal/services/streaming"
)

// VideoController is the stream lifecycle the video endpoints drive
type VideoController interface {
	Start(ctx context.Context) (streaming.StartResult, error)
	Stop() streaming.StopResult
	Status() models.StreamStatus
	streaming.FrameSink
}

type VideoHandler struct {
	controller VideoController
	pump       *streaming.Pump
}

// VideoResponse is returned by the start and stop endpoints
type VideoResponse struct {
	Status  string `json:"status" example:"started"`
	Message string `json:"message" example:"Video stream started"`
}

func NewVideoHandler(controller VideoController, pump *streaming.Pump) *VideoHandler {
	return &VideoHandler{
		controller: controller,
		pump:       pump,
	}
}

// StartVideo godoc
// @Summary Start video streaming
// @Description Probe the candidate cameras and start the live MJPEG stream. Idempotent.
// @Tags video
// @Produce json
// @Success 200 {object} VideoResponse
// @Failure 400 {object} VideoResponse
// @Failure 500 {object} VideoResponse
// @Router /video/start [post]
func (h *VideoHandler) StartVideo(c *gin.Context) {
	res, err := h.controller.Start(c.Request.Context())
	if err != nil {
		if errors.Is(err, streaming.ErrInvalidConfig) {
			logging.Warn(c).Err(err).Msg("Rejected video start with invalid stream configuration")
			c.JSON(http.StatusBadRequest, VideoResponse{Status: "error", Message: err.Error()})
			return
		}
		logging.Error(c).Err(err).Msg("Failed to start video streaming")
		c.JSON(http.StatusInternalServerError, VideoResponse{
			Status:  "error",
			Message: "Could not initialize camera: " + err.Error(),
		})
		return
	}

	if res == streaming.StartAlreadyRunning {
		c.JSON(http.StatusOK, VideoResponse{Status: "started", Message: "Video stream already active"})
		return
	}

	logging.Info(c).Msg("Video streaming started")
	c.JSON(http.StatusOK, VideoResponse{Status: "started", Message: "Video stream started"})
}

// StopVideo godoc
// @Summary Stop video streaming
// @Description Stop the live stream and release the camera. Always succeeds.
// @Tags video
// @Produce json
// @Success 200 {object} VideoResponse
// @Router /video/stop [post]
func (h *VideoHandler) StopVideo(c *gin.Context) {
	if h.controller.Stop() == streaming.StopAlreadyStopped {
		c.JSON(http.StatusOK, VideoResponse{Status: "stopped", Message: "Video stream was not active"})
		return
	}

	logging.Info(c).Msg("Video streaming stopped")
	c.JSON(http.StatusOK, VideoResponse{Status: "stopped", Message: "Video stream stopped"})
}

// VideoStatus godoc
// @Summary Video stream status
// @Description Current stream state, camera readiness and consecutive error count
// @Tags video
// @Produce json
// @Success 200 {object} models.StreamStatus
// @Router /video/status [get]
func (h *VideoHandler) VideoStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Status())
}

// VideoStream godoc
// @Summary Live MJPEG stream
// @Description multipart/x-mixed-replace stream of JPEG frames at the target rate
// @Tags video
// @Produce multipart/x-mixed-replace
// @Success 200 {string} string "MJPEG stream"
// @Failure 503 {string} string "Streaming not active"
// @Router /video_stream [get]
func (h *VideoHandler) VideoStream(c *gin.Context) {
	if !h.controller.Status().Active {
		c.String(http.StatusServiceUnavailable, "Streaming not active")
		return
	}

	sent, err := h.pump.Serve(c.Request.Context(), c.Writer)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Debug(c).Err(err).Int("frames_sent", sent).Msg("MJPEG stream closed with error")
	}
}
