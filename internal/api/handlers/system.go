package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"bench-video-go/internal/models"
)

// StreamStatsSource exposes capture counters and configuration
type StreamStatsSource interface {
	Status() models.StreamStatus
	Stats() models.StreamStats
	Config() models.StreamConfig
}

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	WorkerID string
	started  time.Time
	stream   StreamStatsSource
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(workerID string, stream StreamStatsSource) *SystemHandler {
	return &SystemHandler{
		WorkerID: workerID,
		started:  time.Now(),
		stream:   stream,
	}
}

// @Summary Get system stats
// @Description Get process statistics and stream capture counters
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats": gin.H{
			"worker_id":      h.WorkerID,
			"uptime_seconds": int64(time.Since(h.started).Seconds()),
			"memory_mb":      m.Alloc / 1024 / 1024,
			"cpu_cores":      runtime.NumCPU(),
			"goroutines":     runtime.NumGoroutine(),
			"go_version":     runtime.Version(),
			"stream":         h.stream.Stats(),
		},
		"timestamp": time.Now().Unix(),
	})
}

// @Summary Get debug info
// @Description Get debug information for troubleshooting
// @Tags system
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /system/debug [get]
func (h *SystemHandler) GetDebugInfo(c *gin.Context) {
	cfg := h.stream.Config()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"debug": gin.H{
			"worker_id":  h.WorkerID,
			"endpoints":  []string{"/health", "/video/start", "/video/stop", "/video/status", "/video_stream", "/system"},
			"components": []string{"camera_probe", "stream_controller", "mjpeg_pump"},
			"status":     h.stream.Status(),
			"config": gin.H{
				"width":                  cfg.Width,
				"height":                 cfg.Height,
				"capture_fps":            cfg.CaptureFPS,
				"target_fps":             cfg.TargetFPS,
				"jpeg_quality":           cfg.JPEGQuality,
				"max_consecutive_errors": cfg.MaxConsecutiveErrors,
				"camera_indices":         cfg.CameraIndices,
			},
		},
		"timestamp": time.Now().Unix(),
	})
}
