package model

import (
	"roombook/shared/model"
	"strings"
	"time"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID                = "id"
	FieldRoom              = "room"
	FieldTitle             = "title"
	FieldOrganizer         = "organizer"
	FieldStartAt           = "start_at"
	FieldEndAt             = "end_at"
	FieldColor             = "color"
	FieldAttendees         = "attendees"
	FieldPhone             = "phone"
	FieldNotes             = "notes"
	FieldChairType         = "chair_type"
	FieldChairQty          = "chair_qty"
	FieldTableType         = "table_type"
	FieldTableQty          = "table_qty"
	FieldStatus            = "status"
	FieldConfirmationToken = "confirmation_token"
	FieldReminderSent      = "reminder_sent"
	FieldReminderSentAt    = "reminder_sent_at"
)

const (
	DefaultColor   = "#3b82f6"
	ColorConfirmed = "#16a34a"
	ColorCancelled = "#6b7280"
	ColorFallback  = "#f59e0b"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Remindable reports whether bookings in this status still get reminders.
func (s Status) Remindable() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Booking struct {
	ID                int64      `db:"id"                 generated:"true"`
	Room              string     `db:"room"`
	Title             string     `db:"title"`
	Organizer         string     `db:"organizer"`
	StartAt           time.Time  `db:"start_at"`
	EndAt             time.Time  `db:"end_at"`
	Color             string     `db:"color"`
	Attendees         int        `db:"attendees"`
	Phone             string     `db:"phone"`
	Notes             string     `db:"notes"`
	ChairType         string     `db:"chair_type"`
	ChairQty          int        `db:"chair_qty"`
	TableType         string     `db:"table_type"`
	TableQty          int        `db:"table_qty"`
	Status            Status     `db:"status"`
	ConfirmationToken string     `db:"confirmation_token"`
	ReminderSent      bool       `db:"reminder_sent"`
	ReminderSentAt    *time.Time `db:"reminder_sent_at"`
	model.Metadata
}

func (b Booking) Exists() bool {
	return b.ID != 0
}

// ReminderDue reports whether the booking still needs a reminder for a scan
// over window. Dispatch re-checks this on the locked row because the booking
// may have changed since it was listed.
func (b Booking) ReminderDue(window ReminderWindow) bool {
	return !b.ReminderSent && b.Phone != "" && b.Status.Remindable() && window.Contains(b.StartAt)
}

// ChairShortfall reports whether the requested chairs cannot seat every attendee.
// No chairs requested is not a shortfall.
func (b Booking) ChairShortfall() bool {
	return b.ChairQty > 0 && b.Attendees > b.ChairQty
}

func (b Booking) CalendarColor() string {
	switch b.Status {
	case StatusConfirmed:
		return ColorConfirmed
	case StatusCancelled:
		return ColorCancelled
	}

	if b.Color != "" {
		return b.Color
	}

	return ColorFallback
}

// CalendarTitle renders "<room>: <title> (<organizer>)", dropping the
// organizer part when it is blank.
func (b Booking) CalendarTitle() string {
	title := b.Room + ": " + b.Title

	if organizer := strings.TrimSpace(b.Organizer); organizer != "" {
		title += " (" + organizer + ")"
	}

	return title
}
