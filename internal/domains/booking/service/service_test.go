package service_test

import (
	"context"
	"errors"
	"roombook/config"
	kafkaMocks "roombook/infras/kafka/mocks"
	otelMocks "roombook/infras/otel/mocks"
	txMocks "roombook/infras/postgres/mocks"
	bookingMocks "roombook/internal/domains/booking/mocks"
	"roombook/internal/domains/booking/model"
	"roombook/internal/domains/booking/model/dto"
	"roombook/internal/domains/booking/service"
	roomMocks "roombook/internal/domains/room/mocks"
	roomModel "roombook/internal/domains/room/model"
	cacheMocks "roombook/shared/cache/mocks"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	svc      service.Booking
	repo     *bookingMocks.MockBooking
	roomRepo *roomMocks.MockRoom
	cache    *cacheMocks.MockRedisCache
	events   *kafkaMocks.MockClient
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	f := fixture{
		repo:     bookingMocks.NewMockBooking(ctrl),
		roomRepo: roomMocks.NewMockRoom(ctrl),
		cache:    cacheMocks.NewMockRedisCache(ctrl),
		events:   kafkaMocks.NewMockClient(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.App.BaseURL = "https://rooms.example.com"

	f.svc = service.New(f.repo, f.roomRepo, txMocks.NewTransactor(), cfg, f.cache, f.events, otelMocks.NewOtel())

	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.events.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return f
}

func intPtr(i int) *int {
	return &i
}

func room(name string, capacity *int) roomModel.Room {
	return roomModel.Room{Room: name, Capacity: capacity}
}

func bookingRequest(attendees int) dto.BookingRequest {
	return dto.BookingRequest{
		Room:      "Glass Room 1",
		Title:     "Quarterly review",
		Organizer: "Ana",
		StartAt:   "2024-01-01T10:00",
		EndAt:     "2024-01-01T11:00",
		Attendees: attendees,
		Phone:     "+17875550100",
	}
}

func TestBookingService_Create(t *testing.T) {
	t.Run("stores a pending booking with a fresh token", func(t *testing.T) {
		f := newFixture(t)

		f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "Glass Room 1").Return(room("Glass Room 1", intPtr(30)), nil)
		f.repo.EXPECT().
			HasOverlapTx(gomock.Any(), gomock.Any(), "Glass Room 1",
				time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), int64(0)).
			Return(false, nil)
		f.repo.EXPECT().InsertReturningTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, booking model.Booking) (int64, error) {
				assert.Equal(t, model.StatusPending, booking.Status)
				assert.Equal(t, model.DefaultColor, booking.Color)
				assert.False(t, booking.ReminderSent)

				_, err := uuid.Parse(booking.ConfirmationToken)
				assert.NoError(t, err)

				return 42, nil
			})

		res, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{BookingRequest: bookingRequest(30)})

		require.NoError(t, err)
		assert.Equal(t, int64(42), res.Booking.ID)
		assert.Equal(t, model.StatusPending, res.Booking.Status)
		assert.Equal(t, "https://rooms.example.com/v1/links/confirm?token="+res.ConfirmationToken, res.Links.Confirm)
		assert.Equal(t, "https://rooms.example.com/v1/links/cancel?token="+res.ConfirmationToken, res.Links.Cancel)
		require.NotNil(t, res.WhatsAppLink)
		assert.True(t, strings.HasPrefix(*res.WhatsAppLink, "https://wa.me/17875550100?text="))
		assert.Empty(t, res.Warnings)
	})

	t.Run("tokens differ between bookings", func(t *testing.T) {
		f := newFixture(t)

		f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room("Glass Room 1", nil), nil).Times(2)
		f.repo.EXPECT().HasOverlapTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
		f.repo.EXPECT().InsertReturningTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)
		f.repo.EXPECT().InsertReturningTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(2), nil)

		first, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{BookingRequest: bookingRequest(5)})
		require.NoError(t, err)

		second, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{BookingRequest: bookingRequest(5)})
		require.NoError(t, err)

		assert.NotEqual(t, first.ConfirmationToken, second.ConfirmationToken)
		assert.Less(t, first.Booking.ID, second.Booking.ID)
	})

	t.Run("chair shortfall is a warning", func(t *testing.T) {
		f := newFixture(t)

		req := bookingRequest(12)
		req.ChairType = "Folding"
		req.ChairQty = 10

		f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room("Glass Room 1", intPtr(30)), nil)
		f.repo.EXPECT().HasOverlapTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
		f.repo.EXPECT().InsertReturningTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(3), nil)

		res, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{BookingRequest: req})

		require.NoError(t, err)
		assert.Equal(t, []string{"12 attendees but only 10 chairs requested"}, res.Warnings)
	})

	t.Run("unlimited room admits any attendee count", func(t *testing.T) {
		f := newFixture(t)

		f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room("Winners", nil), nil)
		f.repo.EXPECT().HasOverlapTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil)
		f.repo.EXPECT().InsertReturningTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(4), nil)

		_, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{BookingRequest: bookingRequest(5000)})

		assert.NoError(t, err)
	})
}

func TestBookingService_CreateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(req *dto.BookingRequest)
		setup   func(f fixture)
		errCode int
	}{
		{
			name:    "end before start",
			mutate:  func(req *dto.BookingRequest) { req.EndAt = "2024-01-01T09:00" },
			errCode: 400,
		},
		{
			name:    "zero length",
			mutate:  func(req *dto.BookingRequest) { req.EndAt = req.StartAt },
			errCode: 400,
		},
		{
			name:    "unparsable time",
			mutate:  func(req *dto.BookingRequest) { req.StartAt = "tomorrow" },
			errCode: 400,
		},
		{
			name:    "malformed phone",
			mutate:  func(req *dto.BookingRequest) { req.Phone = "787-555-0100" },
			errCode: 400,
		},
		{
			name: "unknown room",
			setup: func(f fixture) {
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(roomModel.Room{}, nil)
			},
			errCode: 400,
		},
		{
			name:   "over capacity",
			mutate: func(req *dto.BookingRequest) { req.Attendees = 31 },
			setup: func(f fixture) {
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room("Glass Room 1", intPtr(30)), nil)
			},
			errCode: 422,
		},
		{
			name: "overlap",
			setup: func(f fixture) {
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room("Glass Room 1", intPtr(30)), nil)
				f.repo.EXPECT().HasOverlapTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(true, nil)
			},
			errCode: 409,
		},
		{
			name: "lock failure",
			setup: func(f fixture) {
				f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(roomModel.Room{}, errors.New("deadlock detected"))
			},
			errCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			req := bookingRequest(10)
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.svc.Create(context.Background(), dto.CreateBookingRequest{BookingRequest: req})

			require.Error(t, err)
			assert.Equal(t, tt.errCode, failure.GetCode(err))
		})
	}
}

func TestBookingService_Update(t *testing.T) {
	current := model.Booking{
		ID:                7,
		Room:              "Glass Room 1",
		Title:             "Old title",
		StartAt:           time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndAt:             time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		Status:            model.StatusPending,
		ConfirmationToken: "tok-7",
		ReminderSent:      true,
	}

	t.Run("excludes itself from the overlap check", func(t *testing.T) {
		f := newFixture(t)

		req := dto.UpdateBookingRequest{BookingRequest: bookingRequest(20), Status: model.StatusConfirmed}
		req.EndAt = "2024-01-01T11:30"

		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(current, nil)
		f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "Glass Room 1").Return(room("Glass Room 1", intPtr(30)), nil)
		f.repo.EXPECT().HasOverlapTx(gomock.Any(), gomock.Any(), "Glass Room 1", gomock.Any(), gomock.Any(), int64(7)).Return(false, nil)
		f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) (int64, error) {
				assert.Equal(t, "Quarterly review", fields[model.FieldTitle])
				assert.Equal(t, model.StatusConfirmed, fields[model.FieldStatus])
				assert.NotContains(t, fields, model.FieldConfirmationToken)
				assert.NotContains(t, fields, model.FieldReminderSent)

				return 1, nil
			})

		res, err := f.svc.Update(context.Background(), 7, req)

		require.NoError(t, err)
		assert.Equal(t, int64(7), res.Booking.ID)
		assert.Equal(t, "tok-7", res.ConfirmationToken)
		assert.Equal(t, model.StatusConfirmed, res.Booking.Status)
		assert.True(t, res.Booking.ReminderSent)
	})

	t.Run("missing booking", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		_, err := f.svc.Update(context.Background(), 99, dto.UpdateBookingRequest{BookingRequest: bookingRequest(1), Status: model.StatusPending})

		assert.True(t, failure.IsNotFound(err))
	})

	t.Run("overlap with another booking", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(current, nil)
		f.roomRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(room("Glass Room 1", intPtr(30)), nil)
		f.repo.EXPECT().HasOverlapTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), int64(7)).Return(true, nil)

		_, err := f.svc.Update(context.Background(), 7, dto.UpdateBookingRequest{BookingRequest: bookingRequest(1), Status: model.StatusPending})

		assert.True(t, failure.IsConflict(err))
	})

	t.Run("invalid status", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Update(context.Background(), 7, dto.UpdateBookingRequest{BookingRequest: bookingRequest(1), Status: "archived"})

		assert.True(t, failure.IsBadRequest(err))
	})
}

func TestBookingService_SetStatusByToken(t *testing.T) {
	t.Run("confirming twice is idempotent", func(t *testing.T) {
		f := newFixture(t)

		pending := model.Booking{ID: 5, Status: model.StatusPending, ConfirmationToken: "tok"}
		confirmed := pending
		confirmed.Status = model.StatusConfirmed

		gomock.InOrder(
			f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(pending, nil),
			f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) (int64, error) {
					assert.Equal(t, model.StatusConfirmed, fields[model.FieldStatus])

					return 1, nil
				}),
			f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(confirmed, nil),
		)

		first, err := f.svc.SetStatusByToken(context.Background(), "tok", model.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, dto.OutcomeApplied, first.Outcome)
		assert.Equal(t, model.StatusConfirmed, first.Status)

		second, err := f.svc.SetStatusByToken(context.Background(), "tok", model.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, dto.OutcomeAlreadyInState, second.Outcome)
		assert.Equal(t, model.StatusConfirmed, second.Status)
	})

	t.Run("cancel after confirm", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: 5, Status: model.StatusConfirmed}, nil)
		f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)

		res, err := f.svc.SetStatusByToken(context.Background(), "tok", model.StatusCancelled)

		require.NoError(t, err)
		assert.Equal(t, dto.OutcomeApplied, res.Outcome)
		assert.Equal(t, model.StatusCancelled, res.Status)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		_, err := f.svc.SetStatusByToken(context.Background(), "nope", model.StatusConfirmed)

		assert.True(t, failure.IsNotFound(err))
	})

	t.Run("empty token", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.SetStatusByToken(context.Background(), "", model.StatusConfirmed)

		assert.True(t, failure.IsNotFound(err))
	})
}

func TestBookingService_SetStatus(t *testing.T) {
	f := newFixture(t)

	f.repo.EXPECT().GetForUpdateTx(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(model.Booking{ID: 5, Status: model.StatusCancelled}, nil)
	f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(1), nil)

	res, err := f.svc.SetStatus(context.Background(), 5, model.StatusPending)

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Status)

	_, err = f.svc.SetStatus(context.Background(), 5, "archived")
	assert.True(t, failure.IsBadRequest(err))
}

func TestBookingService_Delete(t *testing.T) {
	f := newFixture(t)

	gomock.InOrder(
		f.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(int64(1), nil),
		f.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(int64(0), nil),
	)

	require.NoError(t, f.svc.Delete(context.Background(), 5))

	err := f.svc.Delete(context.Background(), 5)
	assert.True(t, failure.IsNotFound(err))
}

func TestBookingService_Get(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)

		f.cache.EXPECT().Get(gomock.Any(), "roombook:bookings:9", gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{}, nil)

		_, err := f.svc.Get(context.Background(), 9)

		assert.True(t, failure.IsNotFound(err))
	})

	t.Run("found and cached", func(t *testing.T) {
		f := newFixture(t)

		f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{ID: 9, Room: "Winners", Status: model.StatusPending}, nil)
		f.cache.EXPECT().Save(gomock.Any(), "roombook:bookings:9", gomock.Any(), 3600).Return(nil)

		res, err := f.svc.Get(context.Background(), 9)

		require.NoError(t, err)
		assert.Equal(t, "Winners", res.Room)
	})
}

func TestBookingService_Query(t *testing.T) {
	f := newFixture(t)

	from := time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC)
	to := time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
	f.repo.EXPECT().Count(gomock.Any(), gomock.Any()).Return(3, nil)
	f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params gDto.QueryParams, filter gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
			assert.Equal(t, model.FieldStartAt, params.SortBy)
			assert.Equal(t, gDto.SortDirAsc, params.SortDir)

			_, args := filter.GetWhereClause()
			assert.Equal(t, "Winners", args["room"])
			assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), args["range_from"])
			assert.Equal(t, time.Date(2024, 1, 3, 23, 59, 59, 0, time.UTC), args["range_to"])

			return []model.Booking{{ID: 1}, {ID: 2}}, nil
		})
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.svc.Query(context.Background(), dto.QueryBookingsRequest{
		Room:        "Winners",
		From:        &from,
		To:          &to,
		QueryParams: gDto.QueryParams{Page: 1, Limit: 2},
	})

	require.NoError(t, err)
	assert.Len(t, res.Bookings, 2)
	assert.Equal(t, 3, res.TotalData)
	assert.Equal(t, 2, res.TotalPage)
}

func TestBookingService_Calendar(t *testing.T) {
	f := newFixture(t)

	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	f.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
	f.repo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
			assert.Zero(t, params.Limit)

			return []model.Booking{
				{ID: 1, Room: "Winners", Title: "Kickoff", Organizer: "Ana", StartAt: start, EndAt: start.Add(time.Hour), Status: model.StatusConfirmed},
				{ID: 2, Room: "Winners", Title: "Retro", StartAt: start.Add(2 * time.Hour), EndAt: start.Add(3 * time.Hour), Status: model.StatusPending},
			}, nil
		})
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.svc.Calendar(context.Background(), dto.QueryBookingsRequest{QueryParams: gDto.QueryParams{Page: 3, Limit: 1}})

	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, dto.CalendarEvent{
		ID:    1,
		Title: "Winners: Kickoff (Ana)",
		Start: "2024-01-01T09:00:00",
		End:   "2024-01-01T10:00:00",
		Color: model.ColorConfirmed,
	}, res.Events[0])
	assert.Equal(t, "Winners: Retro", res.Events[1].Title)
	assert.Equal(t, model.ColorFallback, res.Events[1].Color)
}

func TestBookingService_WhatsAppLink(t *testing.T) {
	t.Run("booking without phone", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Booking{ID: 3}, nil)

		_, err := f.svc.WhatsAppLink(context.Background(), 3)

		assert.True(t, failure.IsBadRequest(err))
	})

	t.Run("link carries confirm and cancel urls", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).
			Return(model.Booking{ID: 3, Room: "Winners", Phone: "+17875550100", ConfirmationToken: "tok"}, nil)

		res, err := f.svc.WhatsAppLink(context.Background(), 3)

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Link, "https://wa.me/17875550100?text="))
		assert.Contains(t, res.Link, "links%2Fconfirm%3Ftoken%3Dtok")
		assert.Contains(t, res.Link, "links%2Fcancel%3Ftoken%3Dtok")
	})
}

func TestBookingService_DueReminders(t *testing.T) {
	f := newFixture(t)

	window := model.ComputeReminderWindow(24, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	f.repo.EXPECT().SelectDueReminders(gomock.Any(), window).Return([]model.Booking{{ID: 1}}, nil)

	due, err := f.svc.DueReminders(context.Background(), window)

	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func dueBooking(window model.ReminderWindow) model.Booking {
	return model.Booking{
		ID:      1,
		Phone:   "+17875550100",
		Status:  model.StatusConfirmed,
		StartAt: window.Start.Add(time.Hour),
	}
}

func TestBookingService_SendReminder(t *testing.T) {
	window := model.ComputeReminderWindow(24, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	t.Run("delivers and marks the claimed booking", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().ClaimReminderTx(gomock.Any(), gomock.Any(), int64(1)).Return(dueBooking(window), nil)
		f.repo.EXPECT().MarkReminderSentTx(gomock.Any(), gomock.Any(), int64(1), gomock.Any()).Return(nil)

		var delivered []int64

		err := f.svc.SendReminder(context.Background(), 1, window, func(_ context.Context, booking model.Booking) error {
			delivered = append(delivered, booking.ID)

			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []int64{1}, delivered)
	})

	skipped := []struct {
		name    string
		claimed model.Booking
	}{
		{name: "held by another dispatch", claimed: model.Booking{}},
		{name: "cancelled since listed", claimed: func() model.Booking {
			b := dueBooking(window)
			b.Status = model.StatusCancelled

			return b
		}()},
		{name: "already reminded", claimed: func() model.Booking {
			b := dueBooking(window)
			b.ReminderSent = true

			return b
		}()},
		{name: "moved out of the window", claimed: func() model.Booking {
			b := dueBooking(window)
			b.StartAt = window.End.Add(time.Minute)

			return b
		}()},
	}

	for _, tt := range skipped {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.repo.EXPECT().ClaimReminderTx(gomock.Any(), gomock.Any(), int64(1)).Return(tt.claimed, nil)

			err := f.svc.SendReminder(context.Background(), 1, window, func(context.Context, model.Booking) error {
				t.Fatal("deliver must not run")

				return nil
			})

			assert.True(t, failure.IsConflict(err))
		})
	}

	t.Run("failed delivery leaves the booking unmarked", func(t *testing.T) {
		f := newFixture(t)

		f.repo.EXPECT().ClaimReminderTx(gomock.Any(), gomock.Any(), int64(1)).Return(dueBooking(window), nil)

		err := f.svc.SendReminder(context.Background(), 1, window, func(context.Context, model.Booking) error {
			return errors.New("whatsapp: status 500")
		})

		assert.EqualError(t, err, "whatsapp: status 500")
	})

	t.Run("concurrent runs deliver once", func(t *testing.T) {
		f := newFixture(t)

		var (
			mu      sync.Mutex
			locked  bool
			sent    bool
			claimed = make(chan struct{})
			refused = make(chan struct{})
		)

		// Emulates FOR UPDATE SKIP LOCKED: a held row reads as missing.
		f.repo.EXPECT().ClaimReminderTx(gomock.Any(), gomock.Any(), int64(1)).
			DoAndReturn(func(context.Context, *sqlx.Tx, int64) (model.Booking, error) {
				mu.Lock()
				defer mu.Unlock()

				if locked {
					close(refused)

					return model.Booking{}, nil
				}

				locked = true
				close(claimed)

				booking := dueBooking(window)
				booking.ReminderSent = sent

				return booking, nil
			}).
			Times(2)
		f.repo.EXPECT().MarkReminderSentTx(gomock.Any(), gomock.Any(), int64(1), gomock.Any()).
			DoAndReturn(func(context.Context, *sqlx.Tx, int64, time.Time) error {
				mu.Lock()
				defer mu.Unlock()

				sent = true
				locked = false

				return nil
			})

		var deliveries atomic.Int32

		deliver := func(context.Context, model.Booking) error {
			deliveries.Add(1)
			<-refused

			return nil
		}

		errs := make(chan error, 1)

		go func() {
			errs <- f.svc.SendReminder(context.Background(), 1, window, deliver)
		}()

		<-claimed

		second := f.svc.SendReminder(context.Background(), 1, window, deliver)

		require.NoError(t, <-errs)
		assert.True(t, failure.IsConflict(second))
		assert.Equal(t, int32(1), deliveries.Load())
	})
}
