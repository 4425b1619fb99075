// Package pipeline governs the deal pipeline stage machine: ordered stages,
// monotonic transition validation, and stage-change sync intents.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// InvalidTransitionError rejects a stage change that violates pipeline
// monotonicity. It identifies which invariant failed so callers can surface
// a precise reason.
type InvalidTransitionError struct {
	From model.DealStage
	To   model.DealStage
}

func (e *InvalidTransitionError) Error() string {
	from := string(e.From)
	if e.From == model.StageUnset {
		from = "(not yet sent)"
	}
	return fmt.Sprintf("pipeline: cannot move from %s to %s", from, e.To)
}

// SyncIntent is the stage-change event handed to the external pipeline sync
// collaborator. The machine only emits the intent; performing the external
// association change is the caller's job.
type SyncIntent struct {
	MatchID       string
	BuyerID       string
	PropertyID    string
	FromStage     model.DealStage
	ToStage       model.DealStage
	AssociationID string // external identifier for ToStage, empty when unmapped
}

// Machine validates and records deal stage transitions.
type Machine struct {
	resolver StageSyncResolver
}

// NewMachine creates a Machine using the given sync resolver. A nil resolver
// falls back to the built-in default mapping.
func NewMachine(resolver StageSyncResolver) *Machine {
	if resolver == nil {
		resolver = DefaultStageMap()
	}
	return &Machine{resolver: resolver}
}

// IsValidTransition reports whether from -> to is allowed: the exit stage is
// always reachable, never escapable, and pipeline motion is forward-or-stay.
func IsValidTransition(from, to model.DealStage) bool {
	if !from.Known() || !to.Known() || to == model.StageUnset {
		return false
	}
	if to.IsExit() {
		return !from.IsExit()
	}
	if from.IsExit() {
		return false
	}
	return to.Order() >= from.Order()
}

// NextStage returns the stage immediately after current, or StageUnset when
// current is terminal or exit. The first stage after the unsent state is
// Sent to Buyer.
func NextStage(current model.DealStage) model.DealStage {
	if current.IsTerminal() {
		return model.StageUnset
	}
	for _, s := range model.PipelineStages() {
		if s.Order() == current.Order()+1 {
			return s
		}
	}
	return model.StageUnset
}

// Advance validates the transition, mutates the match stage, appends a
// stage_change activity, and returns the sync intent for the caller to hand
// to the external pipeline sync. An invalid transition returns an
// *InvalidTransitionError and leaves the match untouched.
func (m *Machine) Advance(match *model.PropertyMatch, to model.DealStage, now time.Time) (*SyncIntent, error) {
	if match == nil {
		return nil, eris.New("pipeline: nil match")
	}
	from := match.Stage
	if !IsValidTransition(from, to) {
		return nil, &InvalidTransitionError{From: from, To: to}
	}

	activity := model.MatchActivity{
		ID:        uuid.NewString(),
		MatchID:   match.ID,
		Type:      model.ActivityStageChange,
		FromStage: from,
		ToStage:   to,
		CreatedAt: now,
	}

	match.Stage = to
	match.UpdatedAt = now
	match.Activities = append(match.Activities, activity)

	intent := &SyncIntent{
		MatchID:    match.ID,
		BuyerID:    match.BuyerID,
		PropertyID: match.PropertyID,
		FromStage:  from,
		ToStage:    to,
	}
	if id, ok := m.resolver.AssociationID(to); ok {
		intent.AssociationID = id
	}
	return intent, nil
}
