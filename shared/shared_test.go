package shared_test

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"roombook/shared"
	cacheMocks "roombook/shared/cache/mocks"
	"roombook/shared/dto"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestCalculateTotalPage(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		limit    int
		expected int
	}{
		{name: "zero total returns 1", total: 0, limit: 10, expected: 1},
		{name: "zero limit returns 1", total: 100, limit: 0, expected: 1},
		{name: "negative limit returns 1", total: 100, limit: -5, expected: 1},
		{name: "exact division", total: 100, limit: 10, expected: 10},
		{name: "division with remainder", total: 101, limit: 10, expected: 11},
		{name: "limit greater than total", total: 5, limit: 10, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shared.CalculateTotalPage(tt.total, tt.limit)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestFilterByID(t *testing.T) {
	expected := dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    "id",
				Value:    int64(42),
				Operator: dto.FilterOperatorEq,
				Table:    "bookings",
			},
		},
	}

	result := shared.FilterByID(int64(42), "id", "bookings")

	if !reflect.DeepEqual(result, expected) {
		t.Errorf("expected %+v, got %+v", expected, result)
	}
}

func TestBuildCacheKey(t *testing.T) {
	assert.Equal(t, "roombook", shared.BuildCacheKey())
	assert.Equal(t, "roombook:bookings:42", shared.BuildCacheKey("bookings", "42"))
}

func TestBuildCacheKeyWithQuery(t *testing.T) {
	first := url.Values{}
	first.Set("to", "2024-01-31")
	first.Set("from", "2024-01-01")
	first.Set("room", "Winners")

	second := url.Values{}
	second.Set("room", "Winners")
	second.Set("from", "2024-01-01")
	second.Set("to", "2024-01-31")

	key := shared.BuildCacheKeyWithQuery(first, "calendar")

	assert.Equal(t, "roombook:calendar:from=2024-01-01&room=Winners&to=2024-01-31", key)
	assert.Equal(t, key, shared.BuildCacheKeyWithQuery(second, "calendar"))
	assert.Equal(t, "roombook:calendar", shared.BuildCacheKeyWithQuery(nil, "calendar"))
}

func TestInvalidateCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCache := cacheMocks.NewMockRedisCache(ctrl)

	gomock.InOrder(
		mockCache.EXPECT().Clear(gomock.Any(), "roombook:bookings*").Return(nil),
		mockCache.EXPECT().Clear(gomock.Any(), "roombook:calendar*").Return(errors.New("redis down")),
	)

	shared.InvalidateCaches(context.Background(), mockCache, "roombook:bookings", "roombook:calendar")
}
