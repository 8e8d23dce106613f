package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks

import (
	"context"
	"fmt"
	"roombook/infras/otel"
	"roombook/infras/whatsapp"
	"roombook/internal/domains/booking/model"
	bookingService "roombook/internal/domains/booking/service"
	"roombook/internal/domains/reminder/model/dto"
	"roombook/shared/constant"
	"roombook/shared/failure"
	"time"

	"github.com/rs/zerolog/log"
)

type Reminder interface {
	Preview(ctx context.Context, lookahead int, now time.Time) (dto.PreviewResponse, error)
	Dispatch(ctx context.Context, lookahead int, now time.Time) (dto.DispatchReport, error)
}

type serviceImpl struct {
	bookings  bookingService.Booking
	messenger whatsapp.Messenger
	otel      otel.Otel
}

func New(bookings bookingService.Booking, messenger whatsapp.Messenger, otel otel.Otel) Reminder {
	return &serviceImpl{
		bookings:  bookings,
		messenger: messenger,
		otel:      otel,
	}
}

func (s *serviceImpl) Preview(ctx context.Context, lookahead int, now time.Time) (res dto.PreviewResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reminder.Preview")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	window, due, err := s.due(ctx, lookahead, now)
	if err != nil {
		return res, err
	}

	res.Window.FromModel(lookahead, window)
	res.Due = make([]dto.DueBooking, len(due))

	for i, booking := range due {
		res.Due[i].FromModel(booking)
	}

	return res, nil
}

// Dispatch messages every due booking once. Each booking is claimed, sent and
// marked in one transaction, so concurrent runs never message the same booking
// twice. One failure never stops the rest of the batch.
func (s *serviceImpl) Dispatch(ctx context.Context, lookahead int, now time.Time) (res dto.DispatchReport, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reminder.Dispatch")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	window, due, err := s.due(ctx, lookahead, now)
	if err != nil {
		return res, err
	}

	res.Window.FromModel(lookahead, window)
	res.Sent = []int64{}
	res.Skipped = []int64{}
	res.Failures = []dto.SendFailure{}

	for _, booking := range due {
		delivered := false

		err := s.bookings.SendReminder(ctx, booking.ID, window, func(ctx context.Context, claimed model.Booking) error {
			if err := s.messenger.Send(ctx, claimed.Phone, claimed.ReminderMessage()); err != nil {
				return err //nolint:wrapcheck
			}

			delivered = true

			return nil
		})

		switch {
		case err == nil:
			res.Sent = append(res.Sent, booking.ID)
		case delivered:
			log.Error().Err(err).Int64("id", booking.ID).Msg("reminder sent but not marked")

			res.Failures = append(res.Failures, dto.SendFailure{ID: booking.ID, Error: fmt.Sprintf("sent but not marked: %v", err)})
		case failure.IsConflict(err):
			log.Debug().Err(err).Int64("id", booking.ID).Msg("reminder skipped")

			res.Skipped = append(res.Skipped, booking.ID)
		default:
			log.Warn().Err(err).Int64("id", booking.ID).Msg("failed to send reminder")

			res.Failures = append(res.Failures, dto.SendFailure{ID: booking.ID, Error: err.Error()})
		}
	}

	scope.SetAttribute("reminder.sent", len(res.Sent))
	scope.SetAttribute("reminder.skipped", len(res.Skipped))
	scope.SetAttribute("reminder.failed", len(res.Failures))

	log.Info().
		Int("due", len(due)).
		Int("sent", len(res.Sent)).
		Int("skipped", len(res.Skipped)).
		Int("failed", len(res.Failures)).
		Time("windowStart", window.Start).
		Time("windowEnd", window.End).
		Msg("reminder dispatch finished")

	return res, nil
}

func (s *serviceImpl) due(ctx context.Context, lookahead int, now time.Time) (model.ReminderWindow, []model.Booking, error) {
	if !model.ValidLookahead(lookahead) {
		return model.ReminderWindow{}, nil, failure.BadRequestFromString(fmt.Sprintf( //nolint:wrapcheck
			"lookahead must be between %d and %d hours", model.MinLookaheadHours, model.MaxLookaheadHours))
	}

	window := model.ComputeReminderWindow(lookahead, now)

	due, err := s.bookings.DueReminders(ctx, window)
	if err != nil {
		return window, nil, fmt.Errorf("failed to list due reminders: %w", err)
	}

	return window, due, nil
}
