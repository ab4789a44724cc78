package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"bench-video-go/internal/models"
	"bench-video-go/internal/services/streaming"
)

// StreamController is what remote control commands act on
type StreamController interface {
	Start(ctx context.Context) (streaming.StartResult, error)
	Stop() streaming.StopResult
	Status() models.StreamStatus
}

// ControlRequest is a remote command: "start", "stop" or "status"
type ControlRequest struct {
	Action string `json:"action"`
}

// ControlReply mirrors the HTTP API responses
type ControlReply struct {
	Status  string               `json:"status"`
	Message string               `json:"message,omitempty"`
	Stream  *models.StreamStatus `json:"stream,omitempty"`
}

// ControlHandler turns NATS requests into controller calls
type ControlHandler struct {
	ctrl    StreamController
	timeout time.Duration
	logger  zerolog.Logger
}

func NewControlHandler(ctrl StreamController, timeout time.Duration, logger zerolog.Logger) *ControlHandler {
	return &ControlHandler{ctrl: ctrl, timeout: timeout, logger: logger}
}

// Handle decodes one request and returns the encoded reply
func (h *ControlHandler) Handle(data []byte) []byte {
	reply := h.dispatch(data)
	out, err := json.Marshal(reply)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode control reply")
		return []byte(`{"status":"error","message":"internal error"}`)
	}
	return out
}

func (h *ControlHandler) dispatch(data []byte) ControlReply {
	var req ControlRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ControlReply{Status: "error", Message: "invalid control request"}
	}

	h.logger.Info().Str("action", req.Action).Msg("Remote stream control request")

	switch req.Action {
	case "start":
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()

		res, err := h.ctrl.Start(ctx)
		if err != nil {
			if errors.Is(err, streaming.ErrInvalidConfig) {
				return ControlReply{Status: "error", Message: err.Error()}
			}
			return ControlReply{Status: "error", Message: "Could not initialize camera: " + err.Error()}
		}
		if res == streaming.StartAlreadyRunning {
			return ControlReply{Status: "started", Message: "Video stream already active"}
		}
		return ControlReply{Status: "started", Message: "Video stream started"}

	case "stop":
		if h.ctrl.Stop() == streaming.StopAlreadyStopped {
			return ControlReply{Status: "stopped", Message: "Video stream was not active"}
		}
		return ControlReply{Status: "stopped", Message: "Video stream stopped"}

	case "status":
		status := h.ctrl.Status()
		return ControlReply{Status: "ok", Stream: &status}
	}

	return ControlReply{Status: "error", Message: "unknown action: " + req.Action}
}
