package messaging

import (
	"github.com/rs/zerolog"

	"bench-video-go/internal/models"
)

// Publisher is the part of Service the event and control adapters use
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// StreamEventMessage is the JSON payload published for every stream transition
type StreamEventMessage struct {
	WorkerID string `json:"worker_id"`
	models.StreamEvent
}

// EventPublisher forwards stream state transitions to NATS
type EventPublisher struct {
	pub      Publisher
	subject  string
	workerID string
	logger   zerolog.Logger
}

func NewEventPublisher(pub Publisher, subject, workerID string, logger zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		pub:      pub,
		subject:  subject,
		workerID: workerID,
		logger:   logger,
	}
}

// StreamStateChanged publishes the event. Failures are logged and dropped;
// the stream never waits on the broker.
func (p *EventPublisher) StreamStateChanged(event models.StreamEvent) {
	msg := StreamEventMessage{
		WorkerID:    p.workerID,
		StreamEvent: event,
	}
	if err := p.pub.Publish(p.subject, msg); err != nil {
		p.logger.Warn().
			Err(err).
			Str("subject", p.subject).
			Stringer("state", event.State).
			Msg("Failed to publish stream event")
	}
}
