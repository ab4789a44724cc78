package logging

import (
	"fmt"
	"io"
	"strconv"

	"github.com/logdyhq/logdy-core/logdy"
	"github.com/rs/zerolog/log"

	"bench-video-go/internal/config"
)

// viewerSink forwards each zerolog line to the embedded log viewer
type viewerSink struct {
	viewer logdy.Logdy
}

func (s *viewerSink) Write(p []byte) (int, error) {
	s.viewer.LogString(string(p))
	return len(p), nil
}

// viewerPort checks that the log viewer can bind without taking a port the
// streamer itself serves on.
func viewerPort(cfg *config.Config) (string, error) {
	port := cfg.LogdyPort
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid LOGDY_PORT %d", port)
	}
	if port == cfg.Port {
		return "", fmt.Errorf("LOGDY_PORT %d collides with the HTTP port", port)
	}
	if cfg.GRPCHealthPort > 0 && port == cfg.GRPCHealthPort {
		return "", fmt.Errorf("LOGDY_PORT %d collides with the gRPC health port", port)
	}
	return strconv.Itoa(port), nil
}

// StartLogdy launches the log viewer UI and returns a writer to tee logs into
func StartLogdy(cfg *config.Config) (io.Writer, error) {
	port, err := viewerPort(cfg)
	if err != nil {
		return nil, err
	}

	viewer := logdy.InitializeLogdy(logdy.Config{
		ServerIp:   cfg.LogdyHost,
		ServerPort: port,
	}, nil)

	log.Info().
		Str("url", fmt.Sprintf("http://%s:%s", cfg.LogdyHost, port)).
		Msg("Log viewer available")
	return &viewerSink{viewer: viewer}, nil
}
