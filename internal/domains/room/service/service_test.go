package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"roombook/config"
	otelMocks "roombook/infras/otel/mocks"
	txMocks "roombook/infras/postgres/mocks"
	roomMocks "roombook/internal/domains/room/mocks"
	"roombook/internal/domains/room/model"
	"roombook/internal/domains/room/model/dto"
	"roombook/internal/domains/room/service"
	cacheMocks "roombook/shared/cache/mocks"
	"roombook/shared/constant"
	"roombook/shared/failure"
)

func intPtr(i int) *int {
	return &i
}

func newService(t *testing.T) (service.Room, *roomMocks.MockRoom, *cacheMocks.MockRedisCache) {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockRepo := roomMocks.NewMockRoom(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	return service.New(mockRepo, txMocks.NewTransactor(), cfg, mockCache, otelMocks.NewOtel()), mockRepo, mockCache
}

func TestRoomService_List(t *testing.T) {
	t.Run("cache hit", func(t *testing.T) {
		svc, _, mockCache := newService(t)

		mockCache.EXPECT().Get(gomock.Any(), "roombook:rooms", gomock.Any()).Return(nil)

		_, err := svc.List(context.Background())
		assert.NoError(t, err)
	})

	t.Run("cache miss reads rooms ordered by name", func(t *testing.T) {
		svc, mockRepo, mockCache := newService(t)

		mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		mockRepo.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			Return([]model.Room{
				{Room: "Ballito Area", Capacity: intPtr(1000)},
				{Room: "Winners", Capacity: nil},
			}, nil)
		mockCache.EXPECT().Save(gomock.Any(), "roombook:rooms", gomock.Any(), 3600).Return(nil)

		res, err := svc.List(context.Background())

		require.NoError(t, err)
		require.Len(t, res.Rooms, 2)
		assert.Equal(t, "Ballito Area", res.Rooms[0].Room)
		assert.False(t, res.Rooms[0].Unlimited)
		assert.True(t, res.Rooms[1].Unlimited)
	})

	t.Run("repository error", func(t *testing.T) {
		svc, mockRepo, mockCache := newService(t)

		mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
		mockRepo.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("database error"))

		_, err := svc.List(context.Background())
		assert.Error(t, err)
	})
}

func TestRoomService_GetCapacity(t *testing.T) {
	tests := []struct {
		name      string
		room      model.Room
		repoErr   error
		wantCap   *int
		wantErr   bool
		wantNotFd bool
	}{
		{name: "limited room", room: model.Room{Room: "Glass Room 1", Capacity: intPtr(30)}, wantCap: intPtr(30)},
		{name: "unlimited room", room: model.Room{Room: "Winners"}, wantCap: nil},
		{name: "unknown room", room: model.Room{}, wantErr: true, wantNotFd: true},
		{name: "repository error", repoErr: errors.New("database error"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mockRepo, mockCache := newService(t)

			mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("cache miss"))
			mockRepo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(tt.room, tt.repoErr)
			mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

			res, err := svc.GetCapacity(context.Background(), "Glass Room 1")

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantNotFd, failure.IsNotFound(err))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantCap, res.Capacity)
		})
	}
}

func TestRoomService_SetCapacity(t *testing.T) {
	ctx := context.WithValue(context.Background(), constant.ContextKeyUserID, "admin")

	t.Run("sets capacity and invalidates cache", func(t *testing.T) {
		svc, mockRepo, mockCache := newService(t)

		mockRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "Glass Room 1").
			Return(model.Room{Room: "Glass Room 1", Capacity: intPtr(30)}, nil)
		mockRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ any, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, intPtr(40), fields[model.FieldCapacity])
				assert.Equal(t, "admin", fields[constant.FieldModifiedBy])

				return 1, nil
			})
		mockCache.EXPECT().Clear(gomock.Any(), "roombook:rooms*").Return(nil)

		res, err := svc.SetCapacity(ctx, "Glass Room 1", dto.UpdateRoomRequest{Capacity: intPtr(40)})

		require.NoError(t, err)
		assert.Equal(t, intPtr(40), res.Capacity)
		assert.False(t, res.Unlimited)
	})

	t.Run("null capacity means unlimited", func(t *testing.T) {
		svc, mockRepo, mockCache := newService(t)

		mockRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "Winners").
			Return(model.Room{Room: "Winners", Capacity: intPtr(500)}, nil)
		mockRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ any, fields map[string]any, _ any) (int64, error) {
				capacity, ok := fields[model.FieldCapacity].(*int)
				assert.True(t, ok)
				assert.Nil(t, capacity)

				return 1, nil
			})
		mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)

		res, err := svc.SetCapacity(ctx, "Winners", dto.UpdateRoomRequest{})

		require.NoError(t, err)
		assert.True(t, res.Unlimited)
	})

	t.Run("unknown room", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		mockRepo.EXPECT().LockTx(gomock.Any(), gomock.Any(), "Attic").Return(model.Room{}, nil)

		_, err := svc.SetCapacity(ctx, "Attic", dto.UpdateRoomRequest{Capacity: intPtr(10)})

		assert.True(t, failure.IsNotFound(err))
	})

	t.Run("negative capacity", func(t *testing.T) {
		svc, _, _ := newService(t)

		_, err := svc.SetCapacity(ctx, "Winners", dto.UpdateRoomRequest{Capacity: intPtr(-1)})

		assert.True(t, failure.IsBadRequest(err))
	})
}

func TestRoomService_SeedDefaults(t *testing.T) {
	t.Run("fresh database inserts every default room", func(t *testing.T) {
		svc, mockRepo, mockCache := newService(t)

		mockRepo.EXPECT().GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Room{}, nil)
		mockRepo.EXPECT().InsertBulkIgnoreConflictTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ any, rooms []model.Room) ([]string, error) {
				capacities := map[string]int{}
				types := map[string]string{}

				for _, room := range rooms {
					require.NotNil(t, room.Capacity)
					capacities[room.Room] = *room.Capacity

					if room.Type != nil {
						types[room.Room] = *room.Type
					}
				}

				assert.Equal(t, map[string]int{
					"Glass Room 1": 30,
					"Glass Room 2": 30,
					"Glass Room 3": 30,
					"Glass Room 4": 60,
					"Winners":      500,
					"Ballito Area": 1000,
				}, capacities)
				assert.Equal(t, "Glass room", types["Glass Room 4"])
				assert.Equal(t, "Conference hall", types["Winners"])
				assert.Equal(t, "Open area", types["Ballito Area"])

				names := make([]string, 0, len(rooms))
				for _, room := range rooms {
					names = append(names, room.Room)
				}

				return names, nil
			})
		mockCache.EXPECT().Clear(gomock.Any(), "roombook:rooms*").Return(nil)

		report, err := svc.SeedDefaults(context.Background(), model.DefaultSeed())

		require.NoError(t, err)
		assert.Len(t, report.Inserted, 6)
		assert.Empty(t, report.Filled)
	})

	t.Run("fills null capacity and never overwrites a set one", func(t *testing.T) {
		svc, mockRepo, mockCache := newService(t)

		seed := model.DefaultSeed().WithRooms([]string{"Glass Room 1", "Winners", "Rooftop"})

		mockRepo.EXPECT().GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Room{
			{Room: "Glass Room 1", Capacity: intPtr(18)},
			{Room: "Winners", Capacity: nil},
		}, nil)
		mockRepo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ any, fields map[string]any, _ any) (int64, error) {
				assert.Equal(t, 500, fields[model.FieldCapacity])

				return 1, nil
			})
		mockRepo.EXPECT().InsertBulkIgnoreConflictTx(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ any, rooms []model.Room) ([]string, error) {
				require.Len(t, rooms, 1)
				assert.Equal(t, "Rooftop", rooms[0].Room)
				assert.Equal(t, model.FallbackCapacity, *rooms[0].Capacity)
				assert.Nil(t, rooms[0].Type)

				return []string{"Rooftop"}, nil
			})
		mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)

		report, err := svc.SeedDefaults(context.Background(), seed)

		require.NoError(t, err)
		assert.Equal(t, []string{"Rooftop"}, report.Inserted)
		assert.Equal(t, []string{"Winners"}, report.Filled)
	})

	t.Run("rooms seeded by another instance are not reported", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		seed := model.DefaultSeed().WithRooms([]string{"Winners"})

		mockRepo.EXPECT().GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return([]model.Room{}, nil)
		mockRepo.EXPECT().InsertBulkIgnoreConflictTx(gomock.Any(), gomock.Any(), gomock.Any()).Return([]string{}, nil)

		report, err := svc.SeedDefaults(context.Background(), seed)

		require.NoError(t, err)
		assert.Empty(t, report.Inserted)
		assert.Empty(t, report.Filled)
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		svc, mockRepo, _ := newService(t)

		existing := []model.Room{}
		for _, name := range model.DefaultSeed().Rooms {
			existing = append(existing, model.Room{Room: name, Capacity: intPtr(1)})
		}

		mockRepo.EXPECT().GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(existing, nil)

		report, err := svc.SeedDefaults(context.Background(), model.DefaultSeed())

		require.NoError(t, err)
		assert.Empty(t, report.Inserted)
		assert.Empty(t, report.Filled)
	})

	t.Run("transaction cannot start", func(t *testing.T) {
		ctrl := gomock.NewController(t)

		svc := service.New(roomMocks.NewMockRoom(ctrl), txMocks.NewFailingTransactor(errors.New("connection refused")),
			&config.Config{}, cacheMocks.NewMockRedisCache(ctrl), otelMocks.NewOtel())

		_, err := svc.SeedDefaults(context.Background(), model.DefaultSeed())
		assert.Error(t, err)
	})
}
