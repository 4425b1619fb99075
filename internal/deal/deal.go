// Package deal projects persisted matches into a pipeline read model for
// reporting: per-deal staleness plus buyer and property rollups.
package deal

import (
	"sort"
	"time"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// StaleAfterDays is the age in days at which a deal with no recent activity
// is flagged stale.
const StaleAfterDays = 7

// Deal is a denormalized view of one match for reporting. It is never
// persisted.
type Deal struct {
	MatchID    string `json:"match_id"`
	BuyerID    string `json:"buyer_id"`
	BuyerName  string `json:"buyer_name,omitempty"`
	PropertyID string `json:"property_id"`
	Address    string `json:"address,omitempty"`

	Stage      model.DealStage `json:"stage"`
	StageOrder int             `json:"stage_order"`
	Score      int             `json:"score"`
	IsPriority bool            `json:"is_priority"`

	PropertyPrice float64 `json:"property_price"`

	// DaysSinceActivity is -1 when the match has no recorded activity.
	DaysSinceActivity int  `json:"days_since_activity"`
	IsStale           bool `json:"is_stale"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project builds the read model for one match. buyer and property may be nil
// when the underlying record has been removed; the projection then carries
// IDs only.
func Project(match model.PropertyMatch, buyer *model.BuyerCriteria, property *model.PropertyDetails, activities []model.MatchActivity, now time.Time) Deal {
	d := Deal{
		MatchID:           match.ID,
		BuyerID:           match.BuyerID,
		PropertyID:        match.PropertyID,
		Stage:             match.Stage,
		StageOrder:        match.Stage.Order(),
		Score:             match.Score.Total,
		IsPriority:        match.Score.IsPriority,
		DaysSinceActivity: -1,
		CreatedAt:         match.CreatedAt,
		UpdatedAt:         match.UpdatedAt,
	}
	if buyer != nil {
		d.BuyerName = buyer.Name
	}
	if property != nil {
		d.Address = property.Address
		d.PropertyPrice = property.Price
	}

	var last time.Time
	for _, a := range activities {
		if a.CreatedAt.After(last) {
			last = a.CreatedAt
		}
	}
	if !last.IsZero() {
		days := int(now.Sub(last).Hours() / 24)
		if days < 0 {
			days = 0
		}
		d.DaysSinceActivity = days
		// A deal with no activity history has an unknown age and is never
		// flagged stale.
		d.IsStale = days >= StaleAfterDays
	}
	return d
}

// BuyerSummary rolls up one buyer's deals.
type BuyerSummary struct {
	BuyerID       string            `json:"buyer_id"`
	BuyerName     string            `json:"buyer_name,omitempty"`
	DealCount     int               `json:"deal_count"`
	ActiveCount   int               `json:"active_count"`
	StaleCount    int               `json:"stale_count"`
	PipelineValue float64           `json:"pipeline_value"`
	TopScore      int               `json:"top_score"`
	Stages        []model.DealStage `json:"stages"`
}

// PropertySummary rolls up one property's deals.
type PropertySummary struct {
	PropertyID    string            `json:"property_id"`
	Address       string            `json:"address,omitempty"`
	DealCount     int               `json:"deal_count"`
	ActiveCount   int               `json:"active_count"`
	FurthestStage string            `json:"furthest_stage,omitempty"`
	PipelineValue float64           `json:"pipeline_value"`
	Stages        []model.DealStage `json:"stages"`
}

// distinctStages returns the distinct stages in each group, ordered by
// pipeline position.
func distinctStages(seen map[model.DealStage]bool) []model.DealStage {
	stages := make([]model.DealStage, 0, len(seen))
	for s := range seen {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Order() < stages[j].Order() })
	return stages
}

// GroupByBuyer rolls deals up per buyer, sorted by pipeline value descending.
func GroupByBuyer(deals []Deal) []BuyerSummary {
	byBuyer := make(map[string]*BuyerSummary)
	seen := make(map[string]map[model.DealStage]bool)
	for _, d := range deals {
		s, ok := byBuyer[d.BuyerID]
		if !ok {
			s = &BuyerSummary{BuyerID: d.BuyerID, BuyerName: d.BuyerName}
			byBuyer[d.BuyerID] = s
			seen[d.BuyerID] = make(map[model.DealStage]bool)
		}
		s.DealCount++
		if !d.Stage.IsExit() {
			s.ActiveCount++
		}
		if d.IsStale {
			s.StaleCount++
		}
		s.PipelineValue += d.PropertyPrice
		if d.Score > s.TopScore {
			s.TopScore = d.Score
		}
		seen[d.BuyerID][d.Stage] = true
	}

	summaries := make([]BuyerSummary, 0, len(byBuyer))
	for _, s := range byBuyer {
		s.Stages = distinctStages(seen[s.BuyerID])
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].PipelineValue != summaries[j].PipelineValue {
			return summaries[i].PipelineValue > summaries[j].PipelineValue
		}
		return summaries[i].BuyerID < summaries[j].BuyerID
	})
	return summaries
}

// GroupByProperty rolls deals up per property, sorted by deal count
// descending.
func GroupByProperty(deals []Deal) []PropertySummary {
	byProperty := make(map[string]*PropertySummary)
	furthest := make(map[string]int)
	seen := make(map[string]map[model.DealStage]bool)
	for _, d := range deals {
		s, ok := byProperty[d.PropertyID]
		if !ok {
			s = &PropertySummary{PropertyID: d.PropertyID, Address: d.Address}
			byProperty[d.PropertyID] = s
			seen[d.PropertyID] = make(map[model.DealStage]bool)
		}
		s.DealCount++
		if !d.Stage.IsExit() {
			s.ActiveCount++
		}
		s.PipelineValue += d.PropertyPrice
		seen[d.PropertyID][d.Stage] = true

		// Exit stages do not advance a property's furthest stage.
		if !d.Stage.IsExit() && d.Stage != model.StageUnset && d.StageOrder > furthest[d.PropertyID] {
			furthest[d.PropertyID] = d.StageOrder
			s.FurthestStage = string(d.Stage)
		}
	}

	summaries := make([]PropertySummary, 0, len(byProperty))
	for _, s := range byProperty {
		s.Stages = distinctStages(seen[s.PropertyID])
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].DealCount != summaries[j].DealCount {
			return summaries[i].DealCount > summaries[j].DealCount
		}
		return summaries[i].PropertyID < summaries[j].PropertyID
	})
	return summaries
}

// SortByUrgency orders deals for review: stale first, then priority, then by
// score descending.
func SortByUrgency(deals []Deal) {
	sort.Slice(deals, func(i, j int) bool {
		if deals[i].IsStale != deals[j].IsStale {
			return deals[i].IsStale
		}
		if deals[i].IsPriority != deals[j].IsPriority {
			return deals[i].IsPriority
		}
		if deals[i].Score != deals[j].Score {
			return deals[i].Score > deals[j].Score
		}
		return deals[i].MatchID < deals[j].MatchID
	})
}
