package model

// DealStage is one step of the ordered deal pipeline. A brand-new match has
// the zero value ("not yet sent"); StageNotInterested is the exit stage.
type DealStage string

const (
	StageUnset            DealStage = ""
	StageSentToBuyer      DealStage = "Sent to Buyer"
	StageBuyerInterested  DealStage = "Buyer Interested"
	StageShowingScheduled DealStage = "Showing Scheduled"
	StageOfferMade        DealStage = "Offer Made"
	StageUnderContract    DealStage = "Under Contract"
	StageClosedWon        DealStage = "Closed Deal / Won"
	StageNotInterested    DealStage = "Not Interested"
)

// exitOrder sorts the exit stage after every pipeline stage.
const exitOrder = 99

var stageOrder = map[DealStage]int{
	StageUnset:            0,
	StageSentToBuyer:      1,
	StageBuyerInterested:  2,
	StageShowingScheduled: 3,
	StageOfferMade:        4,
	StageUnderContract:    5,
	StageClosedWon:        6,
	StageNotInterested:    exitOrder,
}

// orderedStages lists pipeline stages in order, excluding unset and exit.
var orderedStages = []DealStage{
	StageSentToBuyer,
	StageBuyerInterested,
	StageShowingScheduled,
	StageOfferMade,
	StageUnderContract,
	StageClosedWon,
}

// Order returns the stage's position in the pipeline. Unknown stages sort
// before everything so a corrupt value can never block an advance.
func (s DealStage) Order() int {
	return stageOrder[s]
}

// Known reports whether s is a recognized stage value (including unset).
func (s DealStage) Known() bool {
	_, ok := stageOrder[s]
	return ok
}

// IsExit reports whether s is the Not Interested exit stage.
func (s DealStage) IsExit() bool {
	return s == StageNotInterested
}

// IsTerminal reports whether no forward transition exists out of s.
func (s DealStage) IsTerminal() bool {
	return s == StageClosedWon || s == StageNotInterested
}

// PipelineStages returns the ordered pipeline stages, lowest first, excluding
// the unset and exit stages.
func PipelineStages() []DealStage {
	out := make([]DealStage, len(orderedStages))
	copy(out, orderedStages)
	return out
}
