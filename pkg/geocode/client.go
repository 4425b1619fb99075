// Package geocode resolves locations to coordinates via Census Geocoder
// (primary) and Google (fallback), with a static ZIP table and an in-process
// cache layered on top by Resolver.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes free-text locations. Unmatched locations are not errors:
// implementations return a Result with Matched=false.
type Client interface {
	// Geocode geocodes a single one-line location string.
	Geocode(ctx context.Context, location string) (*Result, error)
}

// Result holds the geocoding output for a location.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "census" or "google"
	Quality   string // "rooftop", "range", "centroid", "approximate"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Census and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for geocoding calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
	retry      retryPolicy
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(2, 2), // conservative default for free tiers
		retry:      defaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode geocodes a single location, trying Census first, then Google if
// configured. Transient provider failures are retried with backoff.
func (g *geocoder) Geocode(ctx context.Context, location string) (*Result, error) {
	result, censusErr := g.retry.do(ctx, "census", func(ctx context.Context) (*Result, error) {
		return g.geocodeCensus(ctx, location)
	})
	if censusErr == nil && result.Matched {
		return result, nil
	}

	// If Census failed or didn't match, try Google if configured.
	if g.googleKey != "" {
		googleResult, googleErr := g.retry.do(ctx, "google", func(ctx context.Context) (*Result, error) {
			return g.geocodeGoogle(ctx, location)
		})
		if googleErr == nil && googleResult.Matched {
			return googleResult, nil
		}
	}

	// No match from any provider — this is not an error, just unmatched.
	return &Result{Matched: false}, nil
}
