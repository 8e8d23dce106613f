package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Booking=MockBookingService

import (
	"context"
	"fmt"
	"net/url"
	"roombook/config"
	"roombook/infras/kafka"
	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/booking/model"
	"roombook/internal/domains/booking/model/dto"
	"roombook/internal/domains/booking/repository"
	roomRepo "roombook/internal/domains/room/repository"
	"roombook/shared"
	"roombook/shared/cache"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	"roombook/shared/timezone"
	"roombook/shared/validator"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheBookings = "bookings"
	cacheList     = "list"
	cacheCalendar = "calendar"

	linkUser = "link"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.WriteBookingResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateBookingRequest) (dto.WriteBookingResponse, error)
	SetStatus(ctx context.Context, id int64, status model.Status) (dto.BookingResponse, error)
	Delete(ctx context.Context, id int64) error
	SetStatusByToken(ctx context.Context, token string, target model.Status) (dto.StatusChangeResponse, error)
	Get(ctx context.Context, id int64) (dto.BookingResponse, error)
	Query(ctx context.Context, req dto.QueryBookingsRequest) (dto.GetBookingsResponse, error)
	Calendar(ctx context.Context, req dto.QueryBookingsRequest) (dto.CalendarResponse, error)
	WhatsAppLink(ctx context.Context, id int64) (dto.WhatsAppLinkResponse, error)
	DueReminders(ctx context.Context, window model.ReminderWindow) ([]model.Booking, error)
	SendReminder(ctx context.Context, id int64, window model.ReminderWindow, deliver Deliver) error
}

// Deliver hands a claimed booking to the messaging channel.
type Deliver func(ctx context.Context, booking model.Booking) error

type serviceImpl struct {
	repo     repository.Booking
	roomRepo roomRepo.Room
	tx       postgres.Transactor
	cfg      *config.Config
	cache    cache.RedisCache
	events   kafka.Client
	otel     otel.Otel
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	tx postgres.Transactor,
	cfg *config.Config,
	cache cache.RedisCache,
	events kafka.Client,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		tx:       tx,
		cfg:      cfg,
		cache:    cache,
		events:   events,
		otel:     otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.WriteBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	start, end, err := parseRequest(req.BookingRequest)
	if err != nil {
		return res, err
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	booking := req.ToModel(start, end, uuid.NewString(), user)

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.checkSlot(ctx, tx, booking, 0); err != nil {
			return err
		}

		id, err := s.repo.InsertReturningTx(ctx, tx, booking)
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		booking.ID = id

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room", booking.Room).Msg("failed to create booking")

		return res, err
	}

	s.afterWrite(ctx, model.EventCreated, booking)

	return s.writeResponse(booking), nil
}

// Update replaces every editable field of the booking, status included. The
// booking itself never counts as an overlap.
func (s *serviceImpl) Update(ctx context.Context, id int64, req dto.UpdateBookingRequest) (res dto.WriteBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Update")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	start, end, err := parseRequest(req.BookingRequest)
	if err != nil {
		return res, err
	}

	if !req.Status.Valid() {
		return res, failure.BadRequestFromString(fmt.Sprintf("invalid status %q", req.Status)) //nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var updated model.Booking

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.lockBooking(ctx, tx, repository.ByID(id))
		if err != nil {
			return err
		}

		updated = req.Apply(current, start, end, user)

		if err := s.checkSlot(ctx, tx, updated, id); err != nil {
			return err
		}

		if _, err := s.repo.UpdateTx(ctx, tx, dto.Fields(updated), repository.ByID(id)); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to update booking")

		return res, err
	}

	s.afterWrite(ctx, model.EventUpdated, updated)

	return s.writeResponse(updated), nil
}

// SetStatus is the admin override: any status may be set from any status.
func (s *serviceImpl) SetStatus(ctx context.Context, id int64, status model.Status) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.SetStatus")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !status.Valid() {
		return res, failure.BadRequestFromString(fmt.Sprintf("invalid status %q", status)) //nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	booking, changed, err := s.changeStatus(ctx, repository.ByID(id), status, user)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to set booking status")

		return res, err
	}

	if changed {
		s.afterWrite(ctx, model.EventStatusChanged, booking)
	}

	res.FromModel(booking)

	return res, nil
}

// Delete removes the booking for good. Deleting a missing booking is NotFound
// every time.
func (s *serviceImpl) Delete(ctx context.Context, id int64) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Delete")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	affected, err := s.repo.Delete(ctx, repository.ByID(id))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to delete booking")

		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if affected == 0 {
		return failure.NotFound(fmt.Sprintf("booking %d not found", id)) //nolint:wrapcheck
	}

	s.afterWrite(ctx, model.EventDeleted, model.Booking{ID: id})

	return nil
}

// SetStatusByToken applies a confirm or cancel link. Repeating a link is a
// success that writes nothing.
func (s *serviceImpl) SetStatusByToken(ctx context.Context, token string, target model.Status) (res dto.StatusChangeResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.SetStatusByToken")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !target.Valid() {
		return res, failure.BadRequestFromString(fmt.Sprintf("invalid status %q", target)) //nolint:wrapcheck
	}

	if token == "" {
		return res, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	booking, changed, err := s.changeStatus(ctx, repository.ByToken(token), target, linkUser)
	if err != nil {
		log.Error().Err(err).Str("target", string(target)).Msg("failed to apply booking link")

		return res, err
	}

	res = dto.StatusChangeResponse{ID: booking.ID, Status: booking.Status, Outcome: dto.OutcomeAlreadyInState}

	if changed {
		res.Outcome = dto.OutcomeApplied

		s.afterWrite(ctx, model.EventStatusChanged, booking)
	}

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheBookings, strconv.FormatInt(id, 10))

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.get(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Warn().Err(err).Msg("failed to save booking to cache")
	}

	return res, nil
}

// Query lists bookings that intersect the requested days, ordered by start.
func (s *serviceImpl) Query(ctx context.Context, req dto.QueryBookingsRequest) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Query")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req = normalizeQuery(req)
	cacheKey := shared.BuildCacheKeyWithQuery(queryValues(req, true), cacheBookings, cacheList)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	filter := repository.Intersecting(req.Room, req.From, req.To)

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req.QueryParams, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	limit := req.Limit
	if limit == 0 {
		limit = total
	}

	res.FromModels(models, total, limit)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Warn().Err(err).Msg("failed to save bookings to cache")
	}

	return res, nil
}

// Calendar renders every booking in range as a calendar event. Pagination is ignored.
func (s *serviceImpl) Calendar(ctx context.Context, req dto.QueryBookingsRequest) (res dto.CalendarResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Calendar")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req = normalizeQuery(req)
	req.Page, req.Limit = 0, 0
	cacheKey := shared.BuildCacheKeyWithQuery(queryValues(req, false), cacheCalendar)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for calendar")

		return res, nil
	}

	models, err := s.repo.GetAll(ctx, req.QueryParams, repository.Intersecting(req.Room, req.From, req.To))
	if err != nil {
		log.Error().Err(err).Msg("failed to get calendar bookings")

		return res, fmt.Errorf("failed to get calendar bookings: %w", err)
	}

	res.FromModels(models)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Warn().Err(err).Msg("failed to save calendar to cache")
	}

	return res, nil
}

// WhatsAppLink builds a wa.me link prefilled with the booking summary and its
// confirm and cancel links.
func (s *serviceImpl) WhatsAppLink(ctx context.Context, id int64) (res dto.WhatsAppLinkResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.WhatsAppLink")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	booking, err := s.get(ctx, id)
	if err != nil {
		return res, err
	}

	if !validator.IsPhone(booking.Phone) {
		return res, failure.BadRequestFromString("booking has no valid phone number") //nolint:wrapcheck
	}

	message := booking.ConfirmationMessage(model.BuildLinks(s.cfg.App.BaseURL, booking.ConfirmationToken))

	return dto.WhatsAppLinkResponse{ID: booking.ID, Link: model.WhatsAppLink(booking.Phone, message)}, nil
}

// DueReminders lists bookings that start inside window and still need a reminder.
func (s *serviceImpl) DueReminders(ctx context.Context, window model.ReminderWindow) (res []model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.DueReminders")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	res, err = s.repo.SelectDueReminders(ctx, window)
	if err != nil {
		log.Error().Err(err).Time("windowStart", window.Start).Time("windowEnd", window.End).Msg("failed to select due reminders")

		return nil, fmt.Errorf("failed to select due reminders: %w", err)
	}

	return res, nil
}

// SendReminder claims booking id, runs deliver while holding the row lock and
// marks the reminder sent in the same transaction. A booking held by another
// dispatch, already reminded or no longer due in window is a Conflict and
// deliver is never called. A failed deliver leaves the booking unmarked.
func (s *serviceImpl) SendReminder(ctx context.Context, id int64, window model.ReminderWindow, deliver Deliver) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.SendReminder")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		booking, err := s.repo.ClaimReminderTx(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("failed to claim reminder: %w", err)
		}

		if !booking.Exists() || !booking.ReminderDue(window) {
			return failure.Conflict(fmt.Sprintf("reminder for booking %d is not claimable", id)) //nolint:wrapcheck
		}

		if err := deliver(ctx, booking); err != nil {
			return err
		}

		return s.repo.MarkReminderSentTx(ctx, tx, id, timezone.Now()) //nolint:wrapcheck
	})
	if err != nil {
		return err
	}

	shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(cacheBookings))

	return nil
}

// checkSlot locks the room and runs the write checks in order: room exists,
// capacity, overlap. excludeID is the booking being edited, or 0.
func (s *serviceImpl) checkSlot(ctx context.Context, tx *sqlx.Tx, booking model.Booking, excludeID int64) error {
	room, err := s.roomRepo.LockTx(ctx, tx, booking.Room)
	if err != nil {
		return fmt.Errorf("failed to lock room: %w", err)
	}

	if !room.Exists() {
		return failure.BadRequestFromString(fmt.Sprintf("room %q does not exist", booking.Room)) //nolint:wrapcheck
	}

	if !room.Admits(booking.Attendees) {
		return failure.CapacityExceeded(fmt.Sprintf("room %q holds at most %d attendees, requested %d", //nolint:wrapcheck
			room.Room, *room.Capacity, booking.Attendees))
	}

	overlap, err := s.repo.HasOverlapTx(ctx, tx, booking.Room, booking.StartAt, booking.EndAt, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}

	if overlap {
		return failure.Conflict(fmt.Sprintf("room %q is already booked between %s and %s", booking.Room, //nolint:wrapcheck
			timezone.Format(booking.StartAt, constant.HumanFormat), timezone.Format(booking.EndAt, constant.HumanFormat)))
	}

	return nil
}

func (s *serviceImpl) lockBooking(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) (model.Booking, error) {
	booking, err := s.repo.GetForUpdateTx(ctx, tx, filter)
	if err != nil {
		return booking, fmt.Errorf("failed to lock booking: %w", err)
	}

	if !booking.Exists() {
		return booking, failure.NotFound("booking not found") //nolint:wrapcheck
	}

	return booking, nil
}

// changeStatus sets status on the locked booking and reports whether anything
// was written.
func (s *serviceImpl) changeStatus(ctx context.Context, filter gDto.FilterGroup, status model.Status, user string) (model.Booking, bool, error) {
	var (
		booking model.Booking
		changed bool
	)

	err := s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.lockBooking(ctx, tx, filter)
		if err != nil {
			return err
		}

		booking = current

		if current.Status == status {
			return nil
		}

		now := timezone.Now()
		fields := map[string]any{
			model.FieldStatus:         status,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}

		if _, err := s.repo.UpdateTx(ctx, tx, fields, repository.ByID(current.ID)); err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}

		booking.Status = status
		booking.ModifiedAt = now
		booking.ModifiedBy = user
		changed = true

		return nil
	})

	return booking, changed, err
}

func (s *serviceImpl) get(ctx context.Context, id int64) (model.Booking, error) {
	booking, err := s.repo.Get(ctx, repository.ByID(id))
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if !booking.Exists() {
		return booking, failure.NotFound(fmt.Sprintf("booking %d not found", id)) //nolint:wrapcheck
	}

	return booking, nil
}

// afterWrite drops cached reads and publishes the event. Neither step can fail
// the write that already committed.
func (s *serviceImpl) afterWrite(ctx context.Context, eventType model.EventType, booking model.Booking) {
	shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(cacheBookings), shared.BuildCacheKey(cacheCalendar))

	topic := s.cfg.Kafka.Topic
	if topic == "" {
		topic = model.DefaultEventTopic
	}

	event := model.NewEvent(eventType, booking, timezone.Now())

	if err := s.events.SendMessages(ctx, topic, kafka.Message{Key: event.Key(), Value: event}); err != nil {
		log.Warn().Err(err).Str("event", string(eventType)).Int64("id", booking.ID).Msg("failed to publish booking event")
	}
}

func (s *serviceImpl) writeResponse(booking model.Booking) dto.WriteBookingResponse {
	links := model.BuildLinks(s.cfg.App.BaseURL, booking.ConfirmationToken)

	res := dto.WriteBookingResponse{
		ConfirmationToken: booking.ConfirmationToken,
		Links:             links,
		Warnings:          []string{},
	}
	res.Booking.FromModel(booking)

	if validator.IsPhone(booking.Phone) {
		link := model.WhatsAppLink(booking.Phone, booking.ConfirmationMessage(links))
		res.WhatsAppLink = &link
	}

	if booking.ChairShortfall() {
		warning := fmt.Sprintf("%d attendees but only %d chairs requested", booking.Attendees, booking.ChairQty)
		log.Warn().Int64("id", booking.ID).Msg(warning)

		res.Warnings = append(res.Warnings, warning)
	}

	return res
}

// parseRequest checks what the struct tags cannot: the period order and the
// phone format for callers that skip request validation.
func parseRequest(req dto.BookingRequest) (start, end time.Time, err error) {
	start, end, err = req.Period()
	if err != nil {
		return start, end, failure.BadRequestFromString(fmt.Sprintf("invalid date/time: %v", err)) //nolint:wrapcheck
	}

	if !end.After(start) {
		return start, end, failure.BadRequestFromString("end must be after start") //nolint:wrapcheck
	}

	if req.Phone != "" && !validator.IsPhone(req.Phone) {
		return start, end, failure.BadRequestFromString("phone must be + followed by 8 to 15 digits") //nolint:wrapcheck
	}

	if req.Attendees < 0 || req.ChairQty < 0 || req.TableQty < 0 {
		return start, end, failure.BadRequestFromString("quantities must not be negative") //nolint:wrapcheck
	}

	return start, end, nil
}

// normalizeQuery widens the range to whole days and forces start order.
func normalizeQuery(req dto.QueryBookingsRequest) dto.QueryBookingsRequest {
	if req.From != nil {
		from := timezone.StartOfDay(*req.From)
		req.From = &from
	}

	if req.To != nil {
		to := timezone.EndOfDay(*req.To)
		req.To = &to
	}

	req.SortBy = model.FieldStartAt
	req.SortDir = gDto.SortDirAsc

	return req
}

func queryValues(req dto.QueryBookingsRequest, paginated bool) url.Values {
	values := url.Values{}

	if req.Room != "" {
		values.Set(constant.RequestParamRoom, req.Room)
	}

	if req.From != nil {
		values.Set(constant.RequestParamFrom, timezone.Format(*req.From, constant.DayFormat))
	}

	if req.To != nil {
		values.Set(constant.RequestParamTo, timezone.Format(*req.To, constant.DayFormat))
	}

	if paginated {
		values.Set(constant.RequestParamPage, strconv.Itoa(req.Page))
		values.Set(constant.RequestParamLimit, strconv.Itoa(req.Limit))
	}

	return values
}
