package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/booking/model"
	"roombook/shared"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	gRepo "roombook/shared/repository"
	"time"

	"github.com/jmoiron/sqlx"
)

type Booking interface {
	InsertReturningTx(ctx context.Context, sqltx *sqlx.Tx, booking model.Booking) (int64, error)
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) (int64, error)
	Delete(ctx context.Context, filter gDto.FilterGroup) (int64, error)
	HasOverlapTx(ctx context.Context, sqltx *sqlx.Tx, room string, start, end time.Time, excludeID int64) (bool, error)
	SelectDueReminders(ctx context.Context, window model.ReminderWindow) ([]model.Booking, error)
	ClaimReminderTx(ctx context.Context, sqltx *sqlx.Tx, id int64) (model.Booking, error)
	MarkReminderSentTx(ctx context.Context, sqltx *sqlx.Tx, id int64, sentAt time.Time) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

// HasOverlapTx reports whether another booking in room intersects [start, end).
// Callers hold the room lock so the answer stays valid until sqltx commits.
func (repo *repositoryImpl) HasOverlapTx(ctx context.Context, sqltx *sqlx.Tx, room string, start, end time.Time, excludeID int64) (bool, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.HasOverlapTx")
	defer scope.End()

	exist, err := repo.ExistTx(ctx, sqltx, Overlapping(room, start, end, excludeID))
	if err != nil {
		scope.TraceError(err)

		return false, fmt.Errorf("failed to check booking overlap: %w", err)
	}

	return exist, nil
}

func (repo *repositoryImpl) SelectDueReminders(ctx context.Context, window model.ReminderWindow) ([]model.Booking, error) {
	params := gDto.QueryParams{SortBy: model.FieldStartAt, SortDir: gDto.SortDirAsc}

	return repo.GetAll(ctx, params, DueReminders(window)) //nolint:wrapcheck
}

// ClaimReminderTx locks booking id for the rest of sqltx. A row already locked
// by a concurrent dispatch is skipped and comes back as the zero booking.
func (repo *repositoryImpl) ClaimReminderTx(ctx context.Context, sqltx *sqlx.Tx, id int64) (model.Booking, error) {
	return repo.GetSkipLockedTx(ctx, sqltx, ByID(id)) //nolint:wrapcheck
}

// MarkReminderSentTx only touches bookings not marked yet, so reminder_sent_at
// keeps the first successful send. Marking an already marked booking is a conflict.
func (repo *repositoryImpl) MarkReminderSentTx(ctx context.Context, sqltx *sqlx.Tx, id int64, sentAt time.Time) error {
	fields := map[string]any{
		model.FieldReminderSent:   true,
		model.FieldReminderSentAt: sentAt,
	}

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Value: id, Operator: gDto.FilterOperatorEq},
			gDto.Filter{ArgName: "not_sent", Field: model.FieldReminderSent, Value: false, Operator: gDto.FilterOperatorEq},
		},
	}

	affected, err := repo.UpdateTx(ctx, sqltx, fields, filter)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	if affected == 0 {
		return failure.Conflict(fmt.Sprintf("reminder for booking %d was already sent", id)) //nolint:wrapcheck
	}

	return nil
}

func ByID(id int64) gDto.FilterGroup {
	return shared.FilterByID(id, model.FieldID, "")
}

func ByToken(token string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldConfirmationToken, Value: token, Operator: gDto.FilterOperatorEq},
		},
	}
}

// Overlapping matches bookings in room whose half-open interval intersects
// [start, end). A zero excludeID excludes nothing.
func Overlapping(room string, start, end time.Time, excludeID int64) gDto.FilterGroup {
	filters := []any{
		gDto.Filter{Field: model.FieldRoom, Value: room, Operator: gDto.FilterOperatorEq},
		gDto.Filter{ArgName: "overlap_end", Field: model.FieldStartAt, Value: end, Operator: gDto.FilterOperatorLess},
		gDto.Filter{ArgName: "overlap_start", Field: model.FieldEndAt, Value: start, Operator: gDto.FilterOperatorGreater},
	}

	if excludeID != 0 {
		filters = append(filters, gDto.Filter{
			ArgName:  "exclude_id",
			Field:    model.FieldID,
			Value:    excludeID,
			Operator: gDto.FilterOperatorNotEq,
		})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}
}

// Intersecting matches bookings that overlap [from, to]. Empty room and nil
// bounds are not filtered on.
func Intersecting(room string, from, to *time.Time) gDto.FilterGroup {
	filters := []any{}

	if room != "" {
		filters = append(filters, gDto.Filter{Field: model.FieldRoom, Value: room, Operator: gDto.FilterOperatorEq})
	}

	if from != nil {
		filters = append(filters, gDto.Filter{ArgName: "range_from", Field: model.FieldEndAt, Value: *from, Operator: gDto.FilterOperatorGreaterEq})
	}

	if to != nil {
		filters = append(filters, gDto.Filter{ArgName: "range_to", Field: model.FieldStartAt, Value: *to, Operator: gDto.FilterOperatorLessEq})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}
}

// DueReminders matches remindable bookings with a phone that start inside window
// and were never reminded.
func DueReminders(window model.ReminderWindow) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{ArgName: "no_phone", Field: model.FieldPhone, Value: "", Operator: gDto.FilterOperatorNotEq},
			gDto.Filter{
				Field:    model.FieldStatus,
				Value:    []string{string(model.StatusPending), string(model.StatusConfirmed)},
				Operator: gDto.FilterOperatorIn,
			},
			gDto.Filter{ArgName: "window_start", Field: model.FieldStartAt, Value: window.Start, Operator: gDto.FilterOperatorGreaterEq},
			gDto.Filter{ArgName: "window_end", Field: model.FieldStartAt, Value: window.End, Operator: gDto.FilterOperatorLessEq},
			gDto.Filter{Field: model.FieldReminderSent, Value: false, Operator: gDto.FilterOperatorEq},
		},
	}
}
