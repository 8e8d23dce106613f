package shared

import (
	"context"
	"math"
	"net/url"
	"roombook/shared/cache"
	"roombook/shared/constant"
	"roombook/shared/dto"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	cacheKeyRoot      = "roombook"
	cacheKeySeparator = ":"
)

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

func FilterByID(id any, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// BuildCacheKey joins parts under the application namespace, e.g. roombook:bookings:42.
func BuildCacheKey(parts ...string) string {
	return strings.Join(append([]string{cacheKeyRoot}, parts...), cacheKeySeparator)
}

// BuildCacheKeyWithQuery appends the encoded query to the key. Encode sorts by
// parameter name so equivalent requests share a key.
func BuildCacheKeyWithQuery(query url.Values, parts ...string) string {
	key := BuildCacheKey(parts...)

	if len(query) == 0 {
		return key
	}

	return key + cacheKeySeparator + query.Encode()
}

// InvalidateCaches clears every key under each prefix. Failures are logged and
// never returned; stale entries expire with the cache TTL.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefixes ...string) {
	for _, prefix := range prefixes {
		if err := redisCache.Clear(ctx, prefix+constant.Asterix); err != nil {
			log.Warn().Err(err).Str("prefix", prefix).Msg("failed to invalidate cache")
		}
	}
}
