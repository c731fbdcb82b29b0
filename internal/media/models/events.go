package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const EventVideoStatusChanged = "VideoStatusChanged"

type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

type VideoStatusChanged struct {
	eventID    uuid.UUID
	videoID    string
	from       Status
	to         Status
	occurredAt time.Time
}

func NewVideoStatusChanged(videoID string, from, to Status) *VideoStatusChanged {
	return &VideoStatusChanged{
		eventID:    uuid.New(),
		videoID:    videoID,
		from:       from,
		to:         to,
		occurredAt: time.Now(),
	}
}

func (e *VideoStatusChanged) EventID() uuid.UUID    { return e.eventID }
func (e *VideoStatusChanged) EventType() string     { return EventVideoStatusChanged }
func (e *VideoStatusChanged) AggregateID() string   { return e.videoID }
func (e *VideoStatusChanged) OccurredAt() time.Time { return e.occurredAt }

func (e *VideoStatusChanged) From() Status { return e.from }
func (e *VideoStatusChanged) To() Status   { return e.to }

// VideoStatusChangedPayload is the JSON body of a VideoStatusChanged event as
// stored in the outbox and published to Kafka.
type VideoStatusChangedPayload struct {
	EventID    uuid.UUID `json:"event_id"`
	VideoID    string    `json:"video_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (e *VideoStatusChanged) MarshalJSON() ([]byte, error) {
	return json.Marshal(VideoStatusChangedPayload{
		EventID:    e.eventID,
		VideoID:    e.videoID,
		From:       e.from,
		To:         e.to,
		OccurredAt: e.occurredAt,
	})
}
