package services

import (
	"context"
	"sync"

	"immograph/geocode"
	"immograph/models"
	"immograph/utils"
)

// Geocoder is the external lookup the resolver enriches listings with.
type Geocoder interface {
	Search(ctx context.Context, query string) (*geocode.Result, error)
}

// Resolver maps cleaned location strings to coordinates and a stable
// place identifier. Results are cached for the lifetime of the run,
// keyed on the exact location string; a failed or empty lookup is
// cached negatively so the same unresolvable address is only queried
// once.
type Resolver struct {
	geocoder Geocoder
	logger   *utils.Logger

	mu      sync.Mutex
	cache   map[string]*geocode.Result // nil value = negative entry
	lookups int
	hits    int
}

// NewResolver creates a Resolver with an empty run-scoped cache.
func NewResolver(geocoder Geocoder, logger *utils.Logger) *Resolver {
	return &Resolver{
		geocoder: geocoder,
		logger:   logger,
		cache:    make(map[string]*geocode.Result),
	}
}

// Resolve fills the listing's enrichment fields. Fields already
// populated are never overwritten; when all three are present the
// lookup is skipped entirely. The returned result is Accepted unless a
// lookup was actually attempted and failed.
func (r *Resolver) Resolve(ctx context.Context, l *models.Listing) models.StageResult {
	if l.Enriched() {
		return models.Accepted()
	}
	if l.Location == "" {
		// Nothing to look up; the validator will reject on the
		// missing location.
		return models.Accepted()
	}

	res, ok := r.lookup(ctx, l.Location)
	if !ok {
		return models.Rejected(models.ReasonGeocodingFailed)
	}

	if l.PlaceID == "" {
		l.PlaceID = res.PlaceID
	}
	if l.Lat == nil {
		lat := res.Lat
		l.Lat = &lat
	}
	if l.Lon == nil {
		lon := res.Lon
		l.Lon = &lon
	}
	return models.Accepted()
}

// lookup consults the cache first, then the external geocoder. The
// second return value is false when the location is unresolvable.
func (r *Resolver) lookup(ctx context.Context, location string) (*geocode.Result, bool) {
	r.mu.Lock()
	cached, seen := r.cache[location]
	if seen {
		r.hits++
	}
	r.mu.Unlock()

	if seen {
		if cached == nil {
			r.logger.Debug("[resolver] negative cache hit for %q", location)
			return nil, false
		}
		r.logger.Debug("[resolver] cache hit for %q", location)
		return cached, true
	}

	res, err := r.geocoder.Search(ctx, location)

	r.mu.Lock()
	r.lookups++
	if err != nil || res == nil {
		r.cache[location] = nil
	} else {
		r.cache[location] = res
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("[resolver] lookup failed for %q: %v", location, err)
		return nil, false
	}
	if res == nil {
		r.logger.Warn("[resolver] no match for %q", location)
		return nil, false
	}
	return res, true
}

// Stats returns the number of external lookups issued and cache hits
// served during the run.
func (r *Resolver) Stats() (lookups, hits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups, r.hits
}
