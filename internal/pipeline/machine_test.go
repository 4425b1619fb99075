package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		name string
		from model.DealStage
		to   model.DealStage
		want bool
	}{
		{"unset to first stage", model.StageUnset, model.StageSentToBuyer, true},
		{"unset can jump ahead", model.StageUnset, model.StageOfferMade, true},
		{"forward one", model.StageSentToBuyer, model.StageShowingScheduled, true},
		{"stay in place", model.StageOfferMade, model.StageOfferMade, true},
		{"backward rejected", model.StageShowingScheduled, model.StageSentToBuyer, false},
		{"exit reachable from anywhere", model.StageSentToBuyer, model.StageNotInterested, true},
		{"exit reachable from closed", model.StageClosedWon, model.StageNotInterested, true},
		{"no escape from exit", model.StageNotInterested, model.StageOfferMade, false},
		{"exit to exit rejected", model.StageNotInterested, model.StageNotInterested, false},
		{"cannot clear stage", model.StageOfferMade, model.StageUnset, false},
		{"unknown stage rejected", model.StageSentToBuyer, model.DealStage("Bogus"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestIsValidTransition_ExitProperties(t *testing.T) {
	// The exit stage is reachable from every non-exit stage and escapable
	// from none.
	all := append(model.PipelineStages(), model.StageUnset)
	for _, s := range all {
		assert.True(t, IsValidTransition(s, model.StageNotInterested), "from %q", s)
		assert.False(t, IsValidTransition(model.StageNotInterested, s), "to %q", s)
	}
}

func TestNextStage(t *testing.T) {
	assert.Equal(t, model.StageSentToBuyer, NextStage(model.StageUnset))
	assert.Equal(t, model.StageBuyerInterested, NextStage(model.StageSentToBuyer))
	assert.Equal(t, model.StageClosedWon, NextStage(model.StageUnderContract))
	assert.Equal(t, model.StageUnset, NextStage(model.StageClosedWon))
	assert.Equal(t, model.StageUnset, NextStage(model.StageNotInterested))
}

func TestAdvance_AppendsStageChangeActivity(t *testing.T) {
	m := NewMachine(nil)
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	match := &model.PropertyMatch{ID: "m1", BuyerID: "b1", PropertyID: "p1"}

	intent, err := m.Advance(match, model.StageSentToBuyer, now)
	require.NoError(t, err)

	assert.Equal(t, model.StageSentToBuyer, match.Stage)
	require.Len(t, match.Activities, 1)
	act := match.Activities[0]
	assert.Equal(t, model.ActivityStageChange, act.Type)
	assert.Equal(t, model.StageUnset, act.FromStage)
	assert.Equal(t, model.StageSentToBuyer, act.ToStage)
	assert.Equal(t, "m1", act.MatchID)
	assert.NotEmpty(t, act.ID)
	assert.Equal(t, now, act.CreatedAt)

	assert.Equal(t, "b1", intent.BuyerID)
	assert.Equal(t, "p1", intent.PropertyID)
	assert.Equal(t, "assoc_sent_to_buyer", intent.AssociationID)
}

func TestAdvance_RejectsInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	match := &model.PropertyMatch{ID: "m1", Stage: model.StageNotInterested}

	_, err := m.Advance(match, model.StageOfferMade, time.Now())
	require.Error(t, err)

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, model.StageNotInterested, ite.From)
	assert.Equal(t, model.StageOfferMade, ite.To)
	assert.Contains(t, err.Error(), "cannot move from Not Interested to Offer Made")

	// Match is untouched on rejection.
	assert.Equal(t, model.StageNotInterested, match.Stage)
	assert.Empty(t, match.Activities)
}

func TestLoadStageMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Offer Made: \"sf_offer_123\"\n"), 0644))

	m, err := LoadStageMap(path)
	require.NoError(t, err)

	id, ok := m.AssociationID(model.StageOfferMade)
	require.True(t, ok)
	assert.Equal(t, "sf_offer_123", id)

	// Defaults survive for unmentioned stages.
	id, ok = m.AssociationID(model.StageClosedWon)
	require.True(t, ok)
	assert.Equal(t, "assoc_closed_won", id)
}

func TestLoadStageMap_UnknownStage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Totally Made Up: \"x\"\n"), 0644))

	_, err := LoadStageMap(path)
	assert.Error(t, err)
}
