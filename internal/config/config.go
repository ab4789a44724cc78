package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"bench-video-go/internal/models"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// NATS (stream lifecycle events)
	// Default: nats://localhost:4222
	// Docker: Use nats://nats:4222 if running in Docker
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsVideoSubject   string
	NatsControlSubject string

	// gRPC health service (0 = disabled)
	GRPCHealthPort int

	// Camera
	VideoWidth         int
	VideoHeight        int
	VideoCaptureFPS    int
	VideoCameraIndices []int

	// Streaming
	VideoTargetFPS            int
	VideoJPEGQuality          int // JPEG quality (0-100)
	VideoMaxConsecutiveErrors int
	VideoEncoder              string // "opencv" or "software"

	// Probing
	VideoProbeTimeout  time.Duration
	VideoProbeAttempts int
	VideoProbeSettle   time.Duration

	// Delay after releasing a camera before it may be reopened
	VideoReleaseSettle time.Duration

	// Slow MJPEG clients are dropped when a write blocks longer than this
	VideoWriteTimeout time.Duration

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "bench-1"),
		Port:        getEnvInt("PORT", 5000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsVideoSubject:   getEnv("NATS_VIDEO_SUBJECT", "bench.video.events"),
		NatsControlSubject: getEnv("NATS_CONTROL_SUBJECT", "bench.video.control"),

		GRPCHealthPort: getEnvInt("GRPC_HEALTH_PORT", 0),

		// Camera
		VideoWidth:         getEnvInt("VIDEO_WIDTH", 854),
		VideoHeight:        getEnvInt("VIDEO_HEIGHT", 480),
		VideoCaptureFPS:    getEnvInt("VIDEO_CAPTURE_FPS", 25),
		VideoCameraIndices: getEnvIntList("VIDEO_CAMERA_INDICES", []int{0, 1, 2, 3, 4}),

		// Streaming
		VideoTargetFPS:            getEnvInt("VIDEO_TARGET_FPS", 15),
		VideoJPEGQuality:          getEnvInt("VIDEO_JPEG_QUALITY", 75),
		VideoMaxConsecutiveErrors: getEnvInt("VIDEO_MAX_CONSECUTIVE_ERRORS", 5),
		VideoEncoder:              getEnv("VIDEO_ENCODER", "opencv"),

		// Probing
		VideoProbeTimeout:  getEnvDuration("VIDEO_PROBE_TIMEOUT", 3*time.Second),
		VideoProbeAttempts: getEnvInt("VIDEO_PROBE_ATTEMPTS", 2),
		VideoProbeSettle:   getEnvDuration("VIDEO_PROBE_SETTLE", 100*time.Millisecond),

		VideoReleaseSettle: getEnvDuration("VIDEO_RELEASE_SETTLE", 100*time.Millisecond),
		VideoWriteTimeout:  getEnvDuration("VIDEO_WRITE_TIMEOUT", 2*time.Second),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 5000),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// StreamConfig projects the video options into the runtime stream configuration.
// Values are validated when a stream is started, not here.
func (c *Config) StreamConfig() models.StreamConfig {
	indices := make([]int, len(c.VideoCameraIndices))
	copy(indices, c.VideoCameraIndices)

	return models.StreamConfig{
		Width:                c.VideoWidth,
		Height:               c.VideoHeight,
		CaptureFPS:           c.VideoCaptureFPS,
		TargetFPS:            c.VideoTargetFPS,
		JPEGQuality:          c.VideoJPEGQuality,
		MaxConsecutiveErrors: c.VideoMaxConsecutiveErrors,
		CameraIndices:        indices,
		ProbeTimeout:         c.VideoProbeTimeout,
		ProbeAttempts:        c.VideoProbeAttempts,
		ProbeSettle:          c.VideoProbeSettle,
		ReleaseSettle:        c.VideoReleaseSettle,
		WriteTimeout:         c.VideoWriteTimeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntList parses a comma separated list such as "0,1,2".
// Any unparsable element makes the whole value fall back to the default.
func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer list, using default")
			return defaultValue
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
