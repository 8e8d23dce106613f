package model

import "roombook/shared/model"

const (
	TableName  = "rooms"
	EntityName = "room"

	FieldRoom     = "room"
	FieldType     = "type"
	FieldCapacity = "capacity"
)

// Room is a bookable space. A nil Capacity means the room has no attendee limit.
type Room struct {
	Room     string  `db:"room"`
	Type     *string `db:"type"`
	Capacity *int    `db:"capacity"`
	model.Metadata
}

func (r Room) Exists() bool {
	return r.Room != ""
}

// Admits reports whether attendees fit in the room.
func (r Room) Admits(attendees int) bool {
	return r.Capacity == nil || attendees <= *r.Capacity
}
