// Package matcher runs buyer/property scoring batches and persists the
// resulting matches.
package matcher

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/scoring"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// CoordinateResolver fills in missing coordinates from a location string.
// Satisfied by geocode.Resolver.
type CoordinateResolver interface {
	Resolve(ctx context.Context, location string) (*model.Coordinates, error)
}

// Request scopes a batch run. Empty BuyerID/PropertyID means "all".
type Request struct {
	BuyerID    string
	PropertyID string

	// MinScore is the creation threshold; zero falls back to the configured
	// default. Existing matches are refreshed regardless of threshold.
	MinScore int

	// RefreshAll re-scores pairs that already have a match. Matches in a
	// terminal stage are never touched.
	RefreshAll bool
}

// Result summarizes a batch run.
type Result struct {
	BuyersProcessed     int           `json:"buyers_processed"`
	PropertiesProcessed int           `json:"properties_processed"`
	PairsEvaluated      int           `json:"pairs_evaluated"`
	Created             int           `json:"created"`
	Updated             int           `json:"updated"`
	DuplicatesSkipped   int           `json:"duplicates_skipped"`
	BelowThreshold      int           `json:"below_threshold"`
	PriorityCount       int           `json:"priority_count"`
	Failed              int           `json:"failed"`
	Elapsed             time.Duration `json:"elapsed"`
}

// Runner pairs every in-scope buyer with every in-scope property, scores each
// pair, and upserts the matches. Individual pair failures are logged and
// skipped so one bad record never aborts a batch.
type Runner struct {
	store    store.Store
	engine   *scoring.Engine
	resolver CoordinateResolver
	cfg      config.MatchConfig
}

// NewRunner creates a Runner. resolver may be nil to skip geocoding.
func NewRunner(st store.Store, engine *scoring.Engine, resolver CoordinateResolver, cfg config.MatchConfig) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = 60
	}
	return &Runner{store: st, engine: engine, resolver: resolver, cfg: cfg}
}

// Run executes one batch per the request scope.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	log := zap.L().With(zap.String("component", "matcher.runner"))
	start := time.Now()

	buyers, err := r.loadBuyers(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}
	properties, err := r.loadProperties(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}

	minScore := req.MinScore
	if minScore <= 0 {
		minScore = r.cfg.MinScore
	}

	log.Info("starting match batch",
		zap.Int("buyers", len(buyers)),
		zap.Int("properties", len(properties)),
		zap.Int("min_score", minScore),
		zap.Bool("refresh_all", req.RefreshAll),
	)

	r.ensureCoordinates(ctx, buyers, properties)

	var created, updated, duplicates, belowThreshold, priority, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i := range buyers {
		for j := range properties {
			buyer := buyers[i]
			property := properties[j]
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				existing, err := r.store.GetMatch(gctx, buyer.ContactID, property.Code)
				if err != nil {
					log.Error("lookup failed, skipping pair",
						zap.String("buyer", buyer.ContactID),
						zap.String("property", property.Code),
						zap.Error(err),
					)
					failed.Add(1)
					return nil
				}

				// A match a human has already moved down the pipeline is a
				// duplicate unless the run asks for a refresh; terminal
				// matches are never re-scored. Unsent matches always take the
				// fresh score.
				if existing != nil {
					if (!req.RefreshAll && existing.Advanced()) || existing.Stage.IsTerminal() {
						duplicates.Add(1)
						return nil
					}
				}

				score := r.engine.Score(buyer, property)

				// The threshold gates creation only; an existing match keeps
				// its fresh score even when it dips below.
				if existing == nil && score.Total < minScore {
					belowThreshold.Add(1)
					return nil
				}

				match := &model.PropertyMatch{
					BuyerID:    buyer.ContactID,
					PropertyID: property.Code,
					Score:      score,
				}
				wasCreated, err := r.store.UpsertMatch(gctx, match)
				if err != nil {
					log.Error("upsert failed, skipping pair",
						zap.String("buyer", buyer.ContactID),
						zap.String("property", property.Code),
						zap.Error(err),
					)
					failed.Add(1)
					return nil
				}

				if wasCreated {
					created.Add(1)
					if err := r.store.AppendActivity(gctx, model.MatchActivity{
						MatchID:   match.ID,
						Type:      model.ActivityScore,
						Body:      score.Reasoning,
						CreatedAt: time.Now().UTC(),
					}); err != nil {
						log.Warn("failed to record score activity",
							zap.String("match", match.ID),
							zap.Error(err),
						)
					}
				} else {
					updated.Add(1)
				}
				if score.IsPriority {
					priority.Add(1)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "matcher: batch aborted")
	}

	result := &Result{
		BuyersProcessed:     len(buyers),
		PropertiesProcessed: len(properties),
		PairsEvaluated:      len(buyers) * len(properties),
		Created:             int(created.Load()),
		Updated:             int(updated.Load()),
		DuplicatesSkipped:   int(duplicates.Load()),
		BelowThreshold:      int(belowThreshold.Load()),
		PriorityCount:       int(priority.Load()),
		Failed:              int(failed.Load()),
		Elapsed:             time.Since(start),
	}

	log.Info("match batch complete",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("duplicates_skipped", result.DuplicatesSkipped),
		zap.Int("below_threshold", result.BelowThreshold),
		zap.Int("priority", result.PriorityCount),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

func (r *Runner) loadBuyers(ctx context.Context, buyerID string) ([]model.BuyerCriteria, error) {
	if buyerID != "" {
		buyer, err := r.store.GetBuyer(ctx, buyerID)
		if err != nil {
			return nil, err
		}
		if buyer == nil {
			return nil, eris.Errorf("matcher: buyer not found: %s", buyerID)
		}
		return []model.BuyerCriteria{*buyer}, nil
	}
	buyers, err := r.store.ListBuyers(ctx)
	return buyers, eris.Wrap(err, "matcher: list buyers")
}

func (r *Runner) loadProperties(ctx context.Context, code string) ([]model.PropertyDetails, error) {
	if code != "" {
		property, err := r.store.GetProperty(ctx, code)
		if err != nil {
			return nil, err
		}
		if property == nil {
			return nil, eris.Errorf("matcher: property not found: %s", code)
		}
		return []model.PropertyDetails{*property}, nil
	}
	properties, err := r.store.ListProperties(ctx)
	return properties, eris.Wrap(err, "matcher: list properties")
}

// ensureCoordinates geocodes records that lack coordinates and persists the
// results. Failures leave the record without coordinates; scoring falls back
// to its neutral location band.
func (r *Runner) ensureCoordinates(ctx context.Context, buyers []model.BuyerCriteria, properties []model.PropertyDetails) {
	if r.resolver == nil {
		return
	}
	log := zap.L().With(zap.String("component", "matcher.runner"))

	for i := range buyers {
		if buyers[i].Coordinates != nil {
			continue
		}
		loc := buyers[i].SearchLocation()
		if loc == "" {
			continue
		}
		coords, err := r.resolver.Resolve(ctx, loc)
		if err != nil {
			log.Warn("buyer geocode failed", zap.String("buyer", buyers[i].ContactID), zap.Error(err))
			continue
		}
		if coords == nil {
			continue
		}
		buyers[i].Coordinates = coords
		if err := r.store.UpdateBuyerCoordinates(ctx, buyers[i].ContactID, *coords); err != nil {
			log.Warn("failed to persist buyer coordinates", zap.String("buyer", buyers[i].ContactID), zap.Error(err))
		}
	}

	for i := range properties {
		if properties[i].Coordinates != nil {
			continue
		}
		loc := properties[i].SearchLocation()
		if loc == "" {
			continue
		}
		coords, err := r.resolver.Resolve(ctx, loc)
		if err != nil {
			log.Warn("property geocode failed", zap.String("property", properties[i].Code), zap.Error(err))
			continue
		}
		if coords == nil {
			continue
		}
		properties[i].Coordinates = coords
		if err := r.store.UpdatePropertyCoordinates(ctx, properties[i].Code, *coords); err != nil {
			log.Warn("failed to persist property coordinates", zap.String("property", properties[i].Code), zap.Error(err))
		}
	}
}
