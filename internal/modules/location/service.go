// README: Location service puts a cache in front of an upstream geocoder.
package location

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wayfarer/internal/itinerary"
)

type Cache interface {
	Get(ctx context.Context, address string) (Entry, bool, error)
	Set(ctx context.Context, address string, e Entry, ttl time.Duration) error
}

// Service implements itinerary.Geocoder. Cache failures are logged and the
// upstream answer is used as is.
type Service struct {
	cache    Cache
	upstream itinerary.Geocoder
	logger   *zap.Logger
}

func NewService(cache Cache, upstream itinerary.Geocoder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cache: cache, upstream: upstream, logger: logger}
}

func (s *Service) Geocode(ctx context.Context, address string) (*itinerary.Coordinates, error) {
	if s.cache != nil {
		e, ok, err := s.cache.Get(ctx, address)
		if err != nil {
			s.logger.Warn("geocode cache read failed", zap.String("address", address), zap.Error(err))
		} else if ok {
			return e.Point, nil
		}
	}

	point, err := s.upstream.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		ttl := HitTTL
		if point == nil {
			ttl = MissTTL
		}
		if err := s.cache.Set(ctx, address, Entry{Point: point}, ttl); err != nil {
			s.logger.Warn("geocode cache write failed", zap.String("address", address), zap.Error(err))
		}
	}
	return point, nil
}
