// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ plumbing that moves them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Seat event types.
const (
	SeatsReserved  = "seats.reserved"
	SeatsCancelled = "seats.cancelled"
)

// SeatEvent is published after a reservation or cancellation has been
// applied to a showtime.  It carries enough context for downstream
// consumers to audit or notify without querying the seat store.
type SeatEvent struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	ShowtimeID string    `json:"showtime_id"`
	RoomID     string    `json:"room_id"`
	Seats      []string  `json:"seats"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewSeatEvent stamps a fresh event id and UTC timestamp.
func NewSeatEvent(kind, showtimeID, roomID string, seats []string, userID string, at time.Time) SeatEvent {
	return SeatEvent{
		EventID:    uuid.NewString(),
		Type:       kind,
		ShowtimeID: showtimeID,
		RoomID:     roomID,
		Seats:      append([]string(nil), seats...),
		UserID:     userID,
		OccurredAt: at.UTC(),
	}
}
