package model

import (
	"strconv"
	"time"
)

const DefaultEventTopic = "roombook.bookings"

type EventType string

const (
	EventCreated       EventType = "booking.created"
	EventUpdated       EventType = "booking.updated"
	EventStatusChanged EventType = "booking.status_changed"
	EventDeleted       EventType = "booking.deleted"
)

// Event is published after a booking write commits. Consumers must tolerate
// missing events since publishing is best effort.
type Event struct {
	Type       EventType `json:"type"`
	BookingID  int64     `json:"booking_id"`
	Room       string    `json:"room,omitempty"`
	Status     Status    `json:"status,omitempty"`
	StartAt    time.Time `json:"start_at,omitzero"`
	EndAt      time.Time `json:"end_at,omitzero"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(eventType EventType, booking Booking, now time.Time) Event {
	return Event{
		Type:       eventType,
		BookingID:  booking.ID,
		Room:       booking.Room,
		Status:     booking.Status,
		StartAt:    booking.StartAt,
		EndAt:      booking.EndAt,
		OccurredAt: now,
	}
}

// Key partitions events by booking so one booking's events stay ordered.
func (e Event) Key() string {
	return strconv.FormatInt(e.BookingID, 10)
}
