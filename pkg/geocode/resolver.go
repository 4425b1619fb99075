package geocode

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var zipRe = regexp.MustCompile(`^\d{5}$`)

// Resolver resolves locations (5-digit ZIPs or free-text addresses) to
// coordinates. ZIPs hit the static table first; everything else goes through
// the wrapped Client. Results, including misses, are cached for the process
// lifetime keyed by the normalized location string.
type Resolver struct {
	client Client

	mu    sync.RWMutex
	cache map[string]*model.Coordinates // nil value = cached miss
}

// NewResolver creates a Resolver around the given client. The cache is owned
// by the Resolver; construct one per process and clear explicitly if needed.
func NewResolver(client Client) *Resolver {
	return &Resolver{
		client: client,
		cache:  make(map[string]*model.Coordinates),
	}
}

// Resolve resolves a single location. A location no provider can match
// returns (nil, nil); only transport-level failures return an error. Results
// outside the valid coordinate range are treated as unmatched.
func (r *Resolver) Resolve(ctx context.Context, location string) (*model.Coordinates, error) {
	key := normalizeLocation(location)
	if key == "" {
		return nil, nil
	}

	// Static ZIP table is authoritative and free; no caching needed.
	if zipRe.MatchString(key) {
		if c, ok := zipTable[key]; ok {
			return &c, nil
		}
	}

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	result, err := r.client.Geocode(ctx, location)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: resolve")
	}

	var coords *model.Coordinates
	if result.Matched {
		c := model.Coordinates{Latitude: result.Latitude, Longitude: result.Longitude}
		if vErr := c.Validate(); vErr != nil {
			zap.L().Warn("geocode: provider returned out-of-range coordinates",
				zap.String("location", key),
				zap.Float64("lat", c.Latitude),
				zap.Float64("lon", c.Longitude),
			)
		} else {
			coords = &c
		}
	}

	// Cache misses too, so repeated bad inputs don't re-hit the provider.
	// Last writer wins under concurrency; geocoding a string is deterministic.
	r.mu.Lock()
	r.cache[key] = coords
	r.mu.Unlock()

	return coords, nil
}

// ResolveBatch resolves many locations. Individual failures are recorded as
// nil entries and never abort the batch; pacing against the external provider
// comes from the client's token-bucket limiter.
func (r *Resolver) ResolveBatch(ctx context.Context, locations []string) []*model.Coordinates {
	out := make([]*model.Coordinates, len(locations))
	for i, loc := range locations {
		if ctx.Err() != nil {
			return out
		}
		coords, err := r.Resolve(ctx, loc)
		if err != nil {
			zap.L().Debug("geocode: batch entry failed", zap.String("location", loc), zap.Error(err))
			continue
		}
		out[i] = coords
	}
	return out
}

// ClearCache drops all cached results.
func (r *Resolver) ClearCache() {
	r.mu.Lock()
	r.cache = make(map[string]*model.Coordinates)
	r.mu.Unlock()
}

// CacheLen returns the number of cached entries.
func (r *Resolver) CacheLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// normalizeLocation lowercases and collapses whitespace for cache keying.
func normalizeLocation(location string) string {
	return strings.Join(strings.Fields(strings.ToLower(location)), " ")
}
