// README: Geocode cache store backed by Redis.
package location

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const geocodeKeyPrefix = "geocode:"

type Store struct {
	redis *redis.Client
}

func NewStore(redis *redis.Client) *Store {
	return &Store{redis: redis}
}

// Get returns the cached entry for address and whether one was found.
func (s *Store) Get(ctx context.Context, address string) (Entry, bool, error) {
	val, err := s.redis.Get(ctx, geocodeKey(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	if err := json.Unmarshal(val, &e); err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *Store) Set(ctx context.Context, address string, e Entry, ttl time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, geocodeKey(address), b, ttl).Err()
}

func geocodeKey(address string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(address), " "))
	sum := sha1.Sum([]byte(norm))
	return geocodeKeyPrefix + hex.EncodeToString(sum[:])
}
