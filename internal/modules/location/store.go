// README: Courier position store backed by Redis GEO.
package location

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"kedai/internal/types"
)

const courierGeoKey = "location:couriers"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

func (s *Store) Upsert(ctx context.Context, courierID int64, p types.Point) error {
	return s.redis.GeoAdd(ctx, courierGeoKey, &redis.GeoLocation{
		Name:      strconv.FormatInt(courierID, 10),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (s *Store) Position(ctx context.Context, courierID int64) (types.Point, bool, error) {
	pos, err := s.redis.GeoPos(ctx, courierGeoKey, strconv.FormatInt(courierID, 10)).Result()
	if err != nil {
		return types.Point{}, false, err
	}
	if len(pos) == 0 || pos[0] == nil {
		return types.Point{}, false, nil
	}
	return types.Point{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, true, nil
}

func (s *Store) Remove(ctx context.Context, courierID int64) error {
	return s.redis.ZRem(ctx, courierGeoKey, strconv.FormatInt(courierID, 10)).Err()
}
