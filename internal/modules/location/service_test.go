package location

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/itinerary"
)

type memCache struct {
	entries map[string]Entry
	ttls    map[string]time.Duration
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]Entry{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, address string) (Entry, bool, error) {
	if c.getErr != nil {
		return Entry{}, false, c.getErr
	}
	e, ok := c.entries[address]
	return e, ok, nil
}

func (c *memCache) Set(_ context.Context, address string, e Entry, ttl time.Duration) error {
	c.entries[address] = e
	c.ttls[address] = ttl
	return nil
}

type countingGeocoder struct {
	calls int
	point *itinerary.Coordinates
	err   error
}

func (g *countingGeocoder) Geocode(context.Context, string) (*itinerary.Coordinates, error) {
	g.calls++
	return g.point, g.err
}

func TestServiceCachesHits(t *testing.T) {
	cache := newMemCache()
	up := &countingGeocoder{point: &itinerary.Coordinates{Lng: 139.79, Lat: 35.71}}
	svc := NewService(cache, up, nil)
	ctx := context.Background()

	p1, err := svc.Geocode(ctx, "Tokyo Senso-ji")
	require.NoError(t, err)
	p2, err := svc.Geocode(ctx, "Tokyo Senso-ji")
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls)
	assert.Equal(t, p1, p2)
	assert.Equal(t, HitTTL, cache.ttls["Tokyo Senso-ji"])
}

func TestServiceRemembersMisses(t *testing.T) {
	cache := newMemCache()
	up := &countingGeocoder{}
	svc := NewService(cache, up, nil)

	p, err := svc.Geocode(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, MissTTL, cache.ttls["Atlantis"])

	_, _ = svc.Geocode(context.Background(), "Atlantis")
	assert.Equal(t, 1, up.calls)
}

func TestServiceDoesNotCacheErrors(t *testing.T) {
	cache := newMemCache()
	up := &countingGeocoder{err: errors.New("over query limit")}
	svc := NewService(cache, up, nil)

	_, err := svc.Geocode(context.Background(), "Kyoto")
	require.Error(t, err)
	assert.Empty(t, cache.entries)
}

func TestServiceFallsThroughOnCacheError(t *testing.T) {
	cache := newMemCache()
	cache.getErr = errors.New("connection refused")
	up := &countingGeocoder{point: &itinerary.Coordinates{Lng: 1, Lat: 2}}

	p, err := NewService(cache, up, nil).Geocode(context.Background(), "Osaka")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Lat)
}

func TestGeocodeKeyNormalizesWhitespaceAndCase(t *testing.T) {
	assert.Equal(t, geocodeKey("Tokyo  Senso-ji"), geocodeKey(" tokyo senso-ji "))
	assert.NotEqual(t, geocodeKey("Tokyo"), geocodeKey("Kyoto"))
}

func TestStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("WAYFARER_TEST_REDIS")
	if addr == "" {
		t.Skip("WAYFARER_TEST_REDIS not set; skipping integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	store := NewStore(rdb)
	ctx := context.Background()
	address := "test " + time.Now().Format(time.RFC3339Nano)
	defer rdb.Del(ctx, geocodeKey(address))

	_, ok, err := store.Get(ctx, address)
	require.NoError(t, err)
	assert.False(t, ok)

	want := Entry{Point: &itinerary.Coordinates{Lng: 121.47, Lat: 31.23}}
	require.NoError(t, store.Set(ctx, address, want, time.Minute))

	got, ok, err := store.Get(ctx, address)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
