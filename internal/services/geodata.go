package services

import (
	"context"
	"fmt"
	"time"

	"tandem-backend/internal/geocode"
	"tandem-backend/internal/models"
	"tandem-backend/internal/timeutil"

	"github.com/mmcloughlin/geohash"
	"github.com/rs/zerolog/log"
)

// geohashPrecision is the geohash length stored for proximity queries.
const geohashPrecision = 10

// GeodataService resolves free-form addresses to coordinates, consulting a
// cache keyed by the normalized address string before calling the external
// geocoding provider.
type GeodataService struct {
	docs     DocumentStore
	geocoder geocode.Geocoder
	ttl      time.Duration
	now      timeutil.Clock
}

// NewGeodataService creates a geodata service. A zero ttl means cache entries
// never expire.
func NewGeodataService(docs DocumentStore, geocoder geocode.Geocoder, ttl time.Duration) *GeodataService {
	return &GeodataService{docs: docs, geocoder: geocoder, ttl: ttl, now: timeutil.Now}
}

// AddressKey normalizes an address into the cache key "street, zipCode city".
func AddressKey(a models.Address) string {
	return fmt.Sprintf("%s, %s %s", a.Street, a.ZipCode, a.City)
}

// Resolve returns the coordinates for an address. Cache hits return
// immediately; misses call the provider and persist the converted result
// under the normalized key. Concurrent misses may both call the provider and
// both write the cache; entries are idempotent per address, so last write
// wins without a lock.
func (s *GeodataService) Resolve(ctx context.Context, address models.Address) (*models.GeodataEntry, error) {
	key := AddressKey(address)
	cached, err := s.cached(ctx, key)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	log.Info().Str("address", key).Msg("Fetching geodata from provider")
	result, err := s.geocoder.Geocode(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("no geodata for %q: %w", key, err)
	}
	entry := &models.GeodataEntry{
		CachedAt: s.now(),
		Location: result.Location,
		Geohash:  geohash.EncodeWithPrecision(result.Location.Lat, result.Location.Lng, geohashPrecision),
		Viewport: result.Viewport,
	}
	if _, err := s.docs.Upsert(ctx, geodataCollection+"/"+key, entryFields(entry), false); err != nil {
		return nil, fmt.Errorf("failed to cache geodata for %q: %w", key, err)
	}
	return entry, nil
}

// GenerateUserGeodata resolves the user's address and upserts the result as
// the user's geodata sub-document, tagged with visibility and the city name.
func (s *GeodataService) GenerateUserGeodata(ctx context.Context, userID string, visible bool) error {
	doc, err := s.docs.Get(ctx, userCollection+"/"+userID)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	if doc == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return err
	}
	if user.Address == nil {
		return fmt.Errorf("user %s has no address", userID)
	}
	entry, err := s.Resolve(ctx, *user.Address)
	if err != nil {
		return err
	}
	fields := entryFields(entry)
	fields["isVisible"] = visible
	fields["name"] = user.Address.City
	if _, err := s.docs.Upsert(ctx, userGeodataPath(userID), fields, true); err != nil {
		return fmt.Errorf("failed to store geodata for user %s: %w", userID, err)
	}
	return nil
}

// cached returns the cache entry for key, treating a TTL-expired entry as a
// miss so it gets overwritten in place.
func (s *GeodataService) cached(ctx context.Context, key string) (*models.GeodataEntry, error) {
	doc, err := s.docs.Get(ctx, geodataCollection+"/"+key)
	if err != nil {
		return nil, fmt.Errorf("failed to read geodata cache: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	var entry models.GeodataEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, err
	}
	if s.ttl > 0 && s.now().Sub(entry.CachedAt) > s.ttl {
		return nil, nil
	}
	return &entry, nil
}

func entryFields(entry *models.GeodataEntry) map[string]any {
	return map[string]any{
		"cachedAt": entry.CachedAt,
		"location": entry.Location,
		"geohash":  entry.Geohash,
		"viewport": entry.Viewport,
	}
}

func userGeodataPath(userID string) string {
	return userCollection + "/" + userID + "/data/geodata"
}
