package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDealStage_Order(t *testing.T) {
	assert.Equal(t, 0, StageUnset.Order())
	assert.Equal(t, 1, StageSentToBuyer.Order())
	assert.Equal(t, 6, StageClosedWon.Order())
	assert.Equal(t, 99, StageNotInterested.Order())

	// Unknown stages sort before everything.
	assert.Equal(t, 0, DealStage("Ghosted").Order())
}

func TestDealStage_Known(t *testing.T) {
	assert.True(t, StageUnset.Known())
	assert.True(t, StageOfferMade.Known())
	assert.True(t, StageNotInterested.Known())
	assert.False(t, DealStage("Ghosted").Known())
}

func TestDealStage_Terminal(t *testing.T) {
	assert.True(t, StageClosedWon.IsTerminal())
	assert.True(t, StageNotInterested.IsTerminal())
	assert.False(t, StageUnderContract.IsTerminal())
	assert.False(t, StageUnset.IsTerminal())

	assert.True(t, StageNotInterested.IsExit())
	assert.False(t, StageClosedWon.IsExit())
}

func TestPipelineStages_OrderedAndCopied(t *testing.T) {
	stages := PipelineStages()
	for i := 1; i < len(stages); i++ {
		assert.Greater(t, stages[i].Order(), stages[i-1].Order())
	}

	// Mutating the returned slice must not affect later calls.
	stages[0] = StageNotInterested
	assert.Equal(t, StageSentToBuyer, PipelineStages()[0])
}
