package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Room=MockRoomService

import (
	"context"
	"fmt"
	"roombook/config"
	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/room/model"
	"roombook/internal/domains/room/model/dto"
	"roombook/internal/domains/room/repository"
	"roombook/shared"
	"roombook/shared/cache"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	gModel "roombook/shared/model"
	"roombook/shared/timezone"
	"slices"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheRooms = "rooms"
	seedUser   = "system"
)

type Room interface {
	List(ctx context.Context) (dto.GetRoomsResponse, error)
	Get(ctx context.Context, room string) (dto.RoomResponse, error)
	GetCapacity(ctx context.Context, room string) (dto.CapacityResponse, error)
	SetCapacity(ctx context.Context, room string, req dto.UpdateRoomRequest) (dto.RoomResponse, error)
	SeedDefaults(ctx context.Context, seed model.Seed) (dto.SeedReport, error)
}

type serviceImpl struct {
	repo  repository.Room
	tx    postgres.Transactor
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Room, tx postgres.Transactor, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Room {
	return &serviceImpl{
		repo:  repo,
		tx:    tx,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) List(ctx context.Context) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.List")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheRooms)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	params := gDto.QueryParams{SortBy: model.FieldRoom, SortDir: gDto.SortDirAsc}

	models, err := s.repo.GetAll(ctx, params, gDto.FilterGroup{})
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Warn().Err(err).Msg("failed to save rooms to cache")
	}

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, room string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheRooms, room)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for room")

		return res, nil
	}

	mod, err := s.repo.Get(ctx, repository.ByName(room))
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to get room")

		return res, fmt.Errorf("failed to get room: %w", err)
	}

	if !mod.Exists() {
		return res, failure.NotFound(fmt.Sprintf("room %q not found", room)) //nolint:wrapcheck
	}

	res.FromModel(mod)

	if err := s.cache.Save(ctx, cacheKey, res, s.cfg.Cache.TTL); err != nil {
		log.Warn().Err(err).Msg("failed to save room to cache")
	}

	return res, nil
}

func (s *serviceImpl) GetCapacity(ctx context.Context, room string) (dto.CapacityResponse, error) {
	res, err := s.Get(ctx, room)
	if err != nil {
		return dto.CapacityResponse{}, err
	}

	return dto.CapacityResponse{Room: res.Room, Capacity: res.Capacity}, nil
}

// SetCapacity replaces type and capacity of an existing room. Bookings already
// stored are not revalidated.
func (s *serviceImpl) SetCapacity(ctx context.Context, room string, req dto.UpdateRoomRequest) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.SetCapacity")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if req.Capacity != nil && *req.Capacity < 0 {
		return res, failure.BadRequestFromString("capacity must be greater than or equal to 0") //nolint:wrapcheck
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	var updated model.Room

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.repo.LockTx(ctx, tx, room)
		if err != nil {
			return fmt.Errorf("failed to lock room: %w", err)
		}

		if !current.Exists() {
			return failure.NotFound(fmt.Sprintf("room %q not found", room)) //nolint:wrapcheck
		}

		now := timezone.Now()
		fields := map[string]any{
			model.FieldType:           req.Type,
			model.FieldCapacity:       req.Capacity,
			constant.FieldModifiedAt: now,
			constant.FieldModifiedBy: user,
		}

		if _, err := s.repo.UpdateTx(ctx, tx, fields, repository.ByName(room)); err != nil {
			return fmt.Errorf("failed to update room: %w", err)
		}

		updated = current
		updated.Type = req.Type
		updated.Capacity = req.Capacity
		updated.ModifiedAt = now
		updated.ModifiedBy = user

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("room", room).Msg("failed to set room capacity")

		return res, err
	}

	shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(cacheRooms))

	res.FromModel(updated)

	return res, nil
}

// SeedDefaults inserts missing rooms and fills the capacity of existing rooms
// that have none. Existing capacities are never overwritten.
func (s *serviceImpl) SeedDefaults(ctx context.Context, seed model.Seed) (report dto.SeedReport, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".room.SeedDefaults")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	report = dto.SeedReport{Inserted: []string{}, Filled: []string{}}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		existing, err := s.repo.GetAllTx(ctx, tx, gDto.QueryParams{}, gDto.FilterGroup{})
		if err != nil {
			return fmt.Errorf("failed to get rooms: %w", err)
		}

		byName := make(map[string]model.Room, len(existing))
		for _, room := range existing {
			byName[room.Room] = room
		}

		now := timezone.Now()
		missing := []model.Room{}

		for _, name := range seed.Rooms {
			roomType, capacity := seed.Resolve(name)

			current, ok := byName[name]
			if !ok {
				if slices.ContainsFunc(missing, func(r model.Room) bool { return r.Room == name }) {
					continue
				}

				missing = append(missing, model.Room{
					Room:     name,
					Type:     roomType,
					Capacity: &capacity,
					Metadata: gModel.Metadata{
						CreatedAt:  now,
						ModifiedAt: now,
						CreatedBy:  seedUser,
						ModifiedBy: seedUser,
					},
				})

				continue
			}

			if current.Capacity != nil {
				continue
			}

			fields := map[string]any{
				model.FieldCapacity:       capacity,
				constant.FieldModifiedAt: now,
				constant.FieldModifiedBy: seedUser,
			}

			if _, err := s.repo.UpdateTx(ctx, tx, fields, repository.ByName(name)); err != nil {
				return fmt.Errorf("failed to fill room capacity: %w", err)
			}

			report.Filled = append(report.Filled, name)
		}

		if len(missing) == 0 {
			return nil
		}

		// Rooms another instance seeded concurrently are skipped, not reported.
		inserted, err := s.repo.InsertBulkIgnoreConflictTx(ctx, tx, missing)
		if err != nil {
			return fmt.Errorf("failed to insert rooms: %w", err)
		}

		report.Inserted = inserted

		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to seed rooms")

		return dto.SeedReport{}, err
	}

	if len(report.Inserted) > 0 || len(report.Filled) > 0 {
		shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(cacheRooms))
	}

	log.Info().Strs("inserted", report.Inserted).Strs("filled", report.Filled).Msg("rooms seeded")

	return report, nil
}
