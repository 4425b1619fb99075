package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// StageSyncResolver maps a deal stage to the external system's association
// identifier. Injected so the machine itself carries no external dependency.
type StageSyncResolver interface {
	AssociationID(stage model.DealStage) (string, bool)
}

// StageMap is a flat stage -> association-id lookup table.
type StageMap map[model.DealStage]string

// AssociationID implements StageSyncResolver.
func (m StageMap) AssociationID(stage model.DealStage) (string, bool) {
	id, ok := m[stage]
	return id, ok
}

// DefaultStageMap returns the built-in stage -> association mapping.
func DefaultStageMap() StageMap {
	return StageMap{
		model.StageSentToBuyer:      "assoc_sent_to_buyer",
		model.StageBuyerInterested:  "assoc_buyer_interested",
		model.StageShowingScheduled: "assoc_showing_scheduled",
		model.StageOfferMade:        "assoc_offer_made",
		model.StageUnderContract:    "assoc_under_contract",
		model.StageClosedWon:        "assoc_closed_won",
		model.StageNotInterested:    "assoc_not_interested",
	}
}

// LoadStageMap reads a stage mapping from a YAML file of the form
//
//	Sent to Buyer: "0a1B2c..."
//	Offer Made: "0d3E4f..."
//
// Entries merge over the defaults; unknown stage names are rejected.
func LoadStageMap(path string) (StageMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read stage map")
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse stage map")
	}

	m := DefaultStageMap()
	for name, id := range raw {
		stage := model.DealStage(name)
		if !stage.Known() || stage == model.StageUnset {
			return nil, eris.Errorf("pipeline: unknown stage %q in stage map", name)
		}
		m[stage] = id
	}
	return m, nil
}
