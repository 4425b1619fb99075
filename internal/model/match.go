package model

import "time"

// MatchScore is the computed fit between one buyer and one property. It is a
// value object: never persisted on its own, always flattened into a
// PropertyMatch.
type MatchScore struct {
	LocationScore float64 `json:"location_score"` // 0-40
	BedsScore     float64 `json:"beds_score"`     // 0-25
	BathsScore    float64 `json:"baths_score"`    // 0-15
	BudgetScore   float64 `json:"budget_score"`   // 0-20
	Total         int     `json:"total"`          // 0-100

	// DistanceMiles is nil when either party lacks coordinates.
	DistanceMiles *float64 `json:"distance_miles,omitempty"`

	IsPriority bool     `json:"is_priority"`
	Highlights []string `json:"highlights"`
	Concerns   []string `json:"concerns,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// ActivityType classifies a MatchActivity log entry.
type ActivityType string

const (
	ActivityStageChange ActivityType = "stage_change"
	ActivityNote        ActivityType = "note"
	ActivityShowing     ActivityType = "showing"
	ActivityOffer       ActivityType = "offer"
	ActivityScore       ActivityType = "score"
)

// MatchActivity is a timestamped log entry attached to a PropertyMatch.
// Activities are append-only and ordered by CreatedAt.
type MatchActivity struct {
	ID      string       `json:"id"`
	MatchID string       `json:"match_id"`
	Type    ActivityType `json:"type"`
	Body    string       `json:"body,omitempty"`

	// FromStage/ToStage are set only for stage_change entries.
	FromStage DealStage `json:"from_stage,omitempty"`
	ToStage   DealStage `json:"to_stage,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// PropertyMatch is the durable buyer/property pairing record.
type PropertyMatch struct {
	ID         string `json:"id"`
	BuyerID    string `json:"buyer_id"`
	PropertyID string `json:"property_id"`

	Score MatchScore `json:"score"`

	Stage  DealStage `json:"stage"`
	SyncID string    `json:"sync_id,omitempty"` // external association identifier

	Activities []MatchActivity `json:"activities,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Advanced reports whether a human has moved the match past the unsent state.
func (m PropertyMatch) Advanced() bool {
	return m.Stage != StageUnset
}

// LastActivityAt returns the timestamp of the most recent activity, or the
// zero time when the match has none.
func (m PropertyMatch) LastActivityAt() time.Time {
	var last time.Time
	for _, a := range m.Activities {
		if a.CreatedAt.After(last) {
			last = a.CreatedAt
		}
	}
	return last
}
