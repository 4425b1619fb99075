// Package scoring computes weighted buyer/property match scores.
package scoring

import (
	"fmt"
	"math"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/geo"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// Band fractions for generated highlights and concerns: a component above
// highBand of its weight produces a highlight, below lowBand a concern.
const (
	highBand = 0.8
	lowBand  = 0.4
)

// fallbackHighlight guarantees every score carries at least one highlight.
const fallbackHighlight = "Good overall property match"

// Engine scores buyers against properties. It is pure given resolved
// coordinates and safe for concurrent use.
type Engine struct {
	cfg config.ScoringConfig
}

// NewEngine creates an Engine with the given weights.
func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Score computes the weighted match score for a buyer/property pair.
// Deterministic: identical inputs produce identical scores.
func (e *Engine) Score(buyer model.BuyerCriteria, property model.PropertyDetails) model.MatchScore {
	var distance *float64
	if buyer.Coordinates != nil && property.Coordinates != nil {
		d := geo.Miles(*buyer.Coordinates, *property.Coordinates)
		distance = &d
	}

	score := model.MatchScore{
		LocationScore: e.scoreLocation(distance),
		BedsScore:     e.scoreBeds(buyer.DesiredBeds, property.Beds),
		BathsScore:    e.scoreBaths(buyer.DesiredBaths, property.Baths),
		BudgetScore:   e.scoreBudget(buyer.DownPayment, property.Price),
		DistanceMiles: distance,
		IsPriority:    e.isPriority(buyer, property, distance),
	}

	total := score.LocationScore + score.BedsScore + score.BathsScore + score.BudgetScore
	score.Total = int(math.Min(100, math.Max(0, math.Round(total))))

	score.Highlights, score.Concerns = e.annotate(score)
	score.Reasoning = fmt.Sprintf(
		"Scored %d/100: location %.1f/%.0f, beds %.1f/%.0f, baths %.1f/%.0f, budget %.1f/%.0f",
		score.Total,
		score.LocationScore, e.cfg.LocationWeight,
		score.BedsScore, e.cfg.BedsWeight,
		score.BathsScore, e.cfg.BathsWeight,
		score.BudgetScore, e.cfg.BudgetWeight,
	)

	return score
}

// scoreLocation decays linearly from full credit at 0 miles to zero at the
// decay radius. A pair with unknown distance gets a fixed neutral half-credit.
func (e *Engine) scoreLocation(distance *float64) float64 {
	if distance == nil {
		return e.cfg.LocationWeight / 2
	}
	d := sanitize(*distance)
	return e.cfg.LocationWeight * math.Max(0, 1-d/e.cfg.LocationDecayMiles)
}

// scoreBeds penalizes each bedroom of mismatch by the configured step. A
// buyer with no stated preference gets full credit.
func (e *Engine) scoreBeds(desired, actual float64) float64 {
	if desired <= 0 {
		return e.cfg.BedsWeight
	}
	diff := math.Abs(sanitize(actual) - sanitize(desired))
	return e.cfg.BedsWeight * math.Max(0, 1-diff*e.cfg.BedStepPenalty)
}

// scoreBaths mirrors scoreBeds with the bath step penalty.
func (e *Engine) scoreBaths(desired, actual float64) float64 {
	if desired <= 0 {
		return e.cfg.BathsWeight
	}
	diff := math.Abs(sanitize(actual) - sanitize(desired))
	return e.cfg.BathsWeight * math.Max(0, 1-diff*e.cfg.BathStepPenalty)
}

// scoreBudget gives full credit when the price is at or under the buyer's
// affordability ceiling, decaying to zero once the price exceeds the ceiling
// by the overrun tolerance. An unevaluable ceiling yields neutral half-credit.
func (e *Engine) scoreBudget(downPayment, price float64) float64 {
	price = sanitize(price)
	if !HasValidDownPayment(downPayment) {
		return e.cfg.BudgetWeight / 2
	}
	ceiling := MaxAffordablePrice(downPayment)
	if ceiling <= 0 {
		return e.cfg.BudgetWeight / 2
	}
	if price <= ceiling {
		return e.cfg.BudgetWeight
	}
	overrun := (price - ceiling) / (ceiling * e.cfg.BudgetOverrunTol)
	return e.cfg.BudgetWeight * math.Max(0, 1-overrun)
}

// isPriority applies the priority rule: within the radius when the distance
// is known, preferred-ZIP membership otherwise.
func (e *Engine) isPriority(buyer model.BuyerCriteria, property model.PropertyDetails, distance *float64) bool {
	if distance != nil {
		return *distance <= e.cfg.PriorityRadiusMiles
	}
	return property.Zip != "" && buyer.PrefersZip(property.Zip)
}

// annotate generates highlights for components above the high band and
// concerns for components below the low band.
func (e *Engine) annotate(s model.MatchScore) (highlights, concerns []string) {
	if s.LocationScore >= e.cfg.LocationWeight*highBand {
		if s.DistanceMiles != nil {
			highlights = append(highlights, fmt.Sprintf("Close to buyer's target area (%.1f mi)", *s.DistanceMiles))
		} else {
			highlights = append(highlights, "Strong location match")
		}
	} else if s.LocationScore < e.cfg.LocationWeight*lowBand {
		if s.DistanceMiles != nil {
			concerns = append(concerns, fmt.Sprintf("Far from buyer's target area (%.1f mi)", *s.DistanceMiles))
		} else {
			concerns = append(concerns, "Location does not match buyer's target area")
		}
	}

	if s.BedsScore >= e.cfg.BedsWeight*highBand {
		highlights = append(highlights, "Bedroom count matches buyer preference")
	} else if s.BedsScore < e.cfg.BedsWeight*lowBand {
		concerns = append(concerns, "Bedroom count differs from buyer preference")
	}

	if s.BathsScore >= e.cfg.BathsWeight*highBand {
		highlights = append(highlights, "Bathroom count matches buyer preference")
	} else if s.BathsScore < e.cfg.BathsWeight*lowBand {
		concerns = append(concerns, "Bathroom count differs from buyer preference")
	}

	if s.BudgetScore >= e.cfg.BudgetWeight*highBand {
		highlights = append(highlights, "Priced within buyer's budget")
	} else if s.BudgetScore < e.cfg.BudgetWeight*lowBand {
		concerns = append(concerns, "Price exceeds buyer's estimated budget")
	}

	if len(highlights) == 0 {
		highlights = append(highlights, fallbackHighlight)
	}
	return highlights, concerns
}

// sanitize maps NaN and infinities to zero so one malformed record cannot
// poison a batch run.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
