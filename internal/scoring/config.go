package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/config"
)

// DefaultConfig returns a config.ScoringConfig with the hand-tuned weights.
// Weights sum to 100.
func DefaultConfig() config.ScoringConfig {
	return config.ScoringConfig{
		LocationWeight: 40,
		BedsWeight:     25,
		BathsWeight:    15,
		BudgetWeight:   20,

		LocationDecayMiles: 50,
		BedStepPenalty:     0.25,
		BathStepPenalty:    0.20,
		BudgetOverrunTol:   0.5,

		PriorityRadiusMiles: 50,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.ScoringConfig) float64 {
	return c.LocationWeight + c.BedsWeight + c.BathsWeight + c.BudgetWeight
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	weights := map[string]float64{
		"location_weight": c.LocationWeight,
		"beds_weight":     c.BedsWeight,
		"baths_weight":    c.BathsWeight,
		"budget_weight":   c.BudgetWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if c.LocationDecayMiles <= 0 {
		errs = append(errs, "location_decay_miles must be > 0")
	}
	if c.BedStepPenalty < 0 || c.BedStepPenalty > 1 {
		errs = append(errs, "bed_step_penalty must be between 0 and 1")
	}
	if c.BathStepPenalty < 0 || c.BathStepPenalty > 1 {
		errs = append(errs, "bath_step_penalty must be between 0 and 1")
	}
	if c.BudgetOverrunTol <= 0 {
		errs = append(errs, "budget_overrun_tolerance must be > 0")
	}
	if c.PriorityRadiusMiles <= 0 {
		errs = append(errs, "priority_radius_miles must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
