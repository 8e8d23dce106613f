package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/room/model"
	"roombook/shared"
	gDto "roombook/shared/dto"
	gRepo "roombook/shared/repository"

	"github.com/jmoiron/sqlx"
)

type Room interface {
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Room, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	GetForUpdateTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Room, error)
	InsertBulkIgnoreConflictTx(ctx context.Context, sqltx *sqlx.Tx, models []model.Room) ([]string, error)
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) (int64, error)
	LockTx(ctx context.Context, sqltx *sqlx.Tx, room string) (model.Room, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldRoom, db, otel),
	}
}

// LockTx loads the room row and holds its lock until sqltx ends. Every booking
// write for the room takes this lock first, so writes to one room are serialized.
func (repo *repositoryImpl) LockTx(ctx context.Context, sqltx *sqlx.Tx, room string) (model.Room, error) {
	return repo.GetForUpdateTx(ctx, sqltx, ByName(room))
}

func ByName(room string) gDto.FilterGroup {
	return shared.FilterByID(room, model.FieldRoom, model.TableName)
}
