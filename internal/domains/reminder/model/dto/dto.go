package dto

import (
	"roombook/internal/domains/booking/model"
	"roombook/shared/constant"
	"roombook/shared/timezone"
)

type WindowResponse struct {
	LookaheadHours int    `json:"lookahead_hours"`
	Start          string `json:"start"`
	End            string `json:"end"`
}

func (w *WindowResponse) FromModel(lookahead int, window model.ReminderWindow) {
	w.LookaheadHours = lookahead
	w.Start = timezone.Format(window.Start, constant.DateFormat)
	w.End = timezone.Format(window.End, constant.DateFormat)
}

// DueBooking is a booking waiting for its reminder. ManualLink opens the same
// reminder in WhatsApp for sending by hand.
type DueBooking struct {
	ID         int64        `json:"id"`
	Room       string       `json:"room"`
	Title      string       `json:"title"`
	Organizer  string       `json:"organizer"`
	StartAt    string       `json:"start_at"`
	Attendees  int          `json:"attendees"`
	Phone      string       `json:"phone"`
	Status     model.Status `json:"status"`
	ManualLink string       `json:"manual_link"`
}

func (d *DueBooking) FromModel(booking model.Booking) {
	d.ID = booking.ID
	d.Room = booking.Room
	d.Title = booking.Title
	d.Organizer = booking.Organizer
	d.StartAt = timezone.Format(booking.StartAt, constant.DateFormat)
	d.Attendees = booking.Attendees
	d.Phone = booking.Phone
	d.Status = booking.Status
	d.ManualLink = model.WhatsAppLink(booking.Phone, booking.ReminderMessage())
}

type PreviewResponse struct {
	Window WindowResponse `json:"window"`
	Due    []DueBooking   `json:"due"`
}

type SendFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// DispatchReport lists the bookings reminded in this run, the ones that failed
// and the ones skipped because another run claimed them or they stopped being
// due. Failed bookings stay due for the next run.
type DispatchReport struct {
	Window   WindowResponse `json:"window"`
	Sent     []int64        `json:"sent"`
	Skipped  []int64        `json:"skipped"`
	Failures []SendFailure  `json:"failures"`
}
