package dto

import (
	"fmt"
	"net/http"
	"roombook/internal/domains/booking/model"
	"roombook/shared"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	gModel "roombook/shared/model"
	"roombook/shared/timezone"
	"strings"
	"time"
)

// BookingRequest holds the fields shared by create and update. Times accept
// RFC3339 or a local "2006-01-02T15:04[:05]" in the application timezone.
type BookingRequest struct {
	Room      string `json:"room"       validate:"required,max=100"`
	Title     string `json:"title"      validate:"required,max=200"`
	Organizer string `json:"organizer"  validate:"omitempty,max=100"`
	StartAt   string `json:"start_at"   validate:"required"`
	EndAt     string `json:"end_at"     validate:"required"`
	Color     string `json:"color"      validate:"omitempty,hexcolor"`
	Attendees int    `json:"attendees"  validate:"gte=0"`
	Phone     string `json:"phone"      validate:"omitempty,phone"`
	Notes     string `json:"notes"      validate:"omitempty,max=2000"`
	ChairType string `json:"chair_type" validate:"omitempty,max=100"`
	ChairQty  int    `json:"chair_qty"  validate:"gte=0"`
	TableType string `json:"table_type" validate:"omitempty,max=100"`
	TableQty  int    `json:"table_qty"  validate:"gte=0"`
}

// Period parses StartAt and EndAt.
func (r *BookingRequest) Period() (start, end time.Time, err error) {
	start, err = timezone.ParseDateTime(r.StartAt)
	if err != nil {
		return start, end, err
	}

	end, err = timezone.ParseDateTime(r.EndAt)

	return start, end, err
}

func (r *BookingRequest) apply(booking *model.Booking, start, end time.Time) {
	booking.Room = strings.TrimSpace(r.Room)
	booking.Title = strings.TrimSpace(r.Title)
	booking.Organizer = strings.TrimSpace(r.Organizer)
	booking.StartAt = start
	booking.EndAt = end
	booking.Color = r.Color
	booking.Attendees = r.Attendees
	booking.Phone = strings.TrimSpace(r.Phone)
	booking.Notes = r.Notes
	booking.ChairType = r.ChairType
	booking.ChairQty = r.ChairQty
	booking.TableType = r.TableType
	booking.TableQty = r.TableQty

	if booking.Color == "" {
		booking.Color = model.DefaultColor
	}
}

type CreateBookingRequest struct {
	BookingRequest
}

// ToModel builds a pending booking. The token is supplied by the caller.
func (c *CreateBookingRequest) ToModel(start, end time.Time, token, user string) model.Booking {
	now := timezone.Now()

	booking := model.Booking{
		Status:            model.StatusPending,
		ConfirmationToken: token,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}
	c.apply(&booking, start, end)

	return booking
}

// UpdateBookingRequest replaces every editable field, status included.
type UpdateBookingRequest struct {
	BookingRequest
	Status model.Status `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}

// Apply returns current with the request applied. Identity, token and
// reminder state are kept.
func (u *UpdateBookingRequest) Apply(current model.Booking, start, end time.Time, user string) model.Booking {
	updated := current
	u.apply(&updated, start, end)
	updated.Status = u.Status
	updated.ModifiedAt = timezone.Now()
	updated.ModifiedBy = user

	return updated
}

// Fields lists the columns written by an update.
func Fields(booking model.Booking) map[string]any {
	return map[string]any{
		model.FieldRoom:           booking.Room,
		model.FieldTitle:          booking.Title,
		model.FieldOrganizer:      booking.Organizer,
		model.FieldStartAt:        booking.StartAt,
		model.FieldEndAt:          booking.EndAt,
		model.FieldColor:          booking.Color,
		model.FieldAttendees:      booking.Attendees,
		model.FieldPhone:          booking.Phone,
		model.FieldNotes:          booking.Notes,
		model.FieldChairType:      booking.ChairType,
		model.FieldChairQty:       booking.ChairQty,
		model.FieldTableType:      booking.TableType,
		model.FieldTableQty:       booking.TableQty,
		model.FieldStatus:         booking.Status,
		constant.FieldModifiedAt: booking.ModifiedAt,
		constant.FieldModifiedBy: booking.ModifiedBy,
	}
}

type UpdateStatusRequest struct {
	Status model.Status `json:"status" validate:"required,oneof=pending confirmed cancelled"`
}

// QueryBookingsRequest filters bookings that intersect [From 00:00:00, To 23:59:59].
type QueryBookingsRequest struct {
	Room string
	From *time.Time
	To   *time.Time
	gDto.QueryParams
}

// FromRequest reads room, from and to (YYYY-MM-DD). Pagination is read only
// when paginate is set; without a limit every match is returned.
func (q *QueryBookingsRequest) FromRequest(r *http.Request, paginate bool) error {
	query := r.URL.Query()

	q.Room = strings.TrimSpace(query.Get(constant.RequestParamRoom))

	var err error

	if q.From, err = parseDay(query.Get(constant.RequestParamFrom), constant.RequestParamFrom); err != nil {
		return err
	}

	if q.To, err = parseDay(query.Get(constant.RequestParamTo), constant.RequestParamTo); err != nil {
		return err
	}

	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return failure.BadRequestFromString("to must not be before from") //nolint:wrapcheck
	}

	if paginate {
		q.QueryParams.FromRequest(r, false)
	}

	return nil
}

func parseDay(value, param string) (*time.Time, error) {
	if value == "" {
		return nil, nil //nolint:nilnil
	}

	day, err := timezone.Parse(constant.DayFormat, value)
	if err != nil {
		return nil, failure.BadRequestFromString(fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", param)) //nolint:wrapcheck
	}

	return &day, nil
}

type BookingResponse struct {
	ID             int64        `json:"id"`
	Room           string       `json:"room"`
	Title          string       `json:"title"`
	Organizer      string       `json:"organizer"`
	StartAt        string       `json:"start_at"`
	EndAt          string       `json:"end_at"`
	Color          string       `json:"color"`
	Attendees      int          `json:"attendees"`
	Phone          string       `json:"phone"`
	Notes          string       `json:"notes"`
	ChairType      string       `json:"chair_type"`
	ChairQty       int          `json:"chair_qty"`
	TableType      string       `json:"table_type"`
	TableQty       int          `json:"table_qty"`
	Status         model.Status `json:"status"`
	ReminderSent   bool         `json:"reminder_sent"`
	ReminderSentAt *string      `json:"reminder_sent_at"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.Room = model.Room
	r.Title = model.Title
	r.Organizer = model.Organizer
	r.StartAt = timezone.Format(model.StartAt, constant.DateFormat)
	r.EndAt = timezone.Format(model.EndAt, constant.DateFormat)
	r.Color = model.Color
	r.Attendees = model.Attendees
	r.Phone = model.Phone
	r.Notes = model.Notes
	r.ChairType = model.ChairType
	r.ChairQty = model.ChairQty
	r.TableType = model.TableType
	r.TableQty = model.TableQty
	r.Status = model.Status
	r.ReminderSent = model.ReminderSent
	r.ReminderSentAt = nil

	if model.ReminderSentAt != nil {
		sentAt := timezone.Format(*model.ReminderSentAt, constant.DateFormat)
		r.ReminderSentAt = &sentAt
	}

	r.Metadata.FromModel(model.Metadata)
}

// WriteBookingResponse is returned to whoever creates or edits a booking. It
// is the only response that carries the confirmation token.
type WriteBookingResponse struct {
	Booking           BookingResponse `json:"booking"`
	ConfirmationToken string          `json:"confirmation_token"`
	Links             model.Links     `json:"links"`
	WhatsAppLink      *string         `json:"whatsapp_link"`
	Warnings          []string        `json:"warnings"`
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)
	r.Bookings = make([]BookingResponse, len(models))

	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

type StatusChangeResponse struct {
	ID      int64        `json:"id"`
	Status  model.Status `json:"status"`
	Outcome Outcome      `json:"outcome"`
}

// Outcome tells a link click apart from a repeated one.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyInState Outcome = "already_in_state"
)

type CalendarEvent struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
	End   string `json:"end"`
	Color string `json:"color"`
}

func (e *CalendarEvent) FromModel(model model.Booking) {
	e.ID = model.ID
	e.Title = model.CalendarTitle()
	e.Start = timezone.Format(model.StartAt, constant.LocalSecondFormat)
	e.End = timezone.Format(model.EndAt, constant.LocalSecondFormat)
	e.Color = model.CalendarColor()
}

type CalendarResponse struct {
	Events []CalendarEvent `json:"events"`
}

func (r *CalendarResponse) FromModels(models []model.Booking) {
	r.Events = make([]CalendarEvent, len(models))
	for i, mod := range models {
		r.Events[i].FromModel(mod)
	}
}

type WhatsAppLinkResponse struct {
	ID   int64  `json:"id"`
	Link string `json:"link"`
}
