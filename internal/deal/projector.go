package deal

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

// Projector builds Deal read models from the store.
type Projector struct {
	store store.Store
	now   func() time.Time
}

// NewProjector creates a Projector.
func NewProjector(st store.Store) *Projector {
	return &Projector{store: st, now: time.Now}
}

// Build projects every match the filter selects. Buyer and property lookups
// are batched once per run; a match whose counterpart record is gone still
// projects with IDs only.
func (p *Projector) Build(ctx context.Context, filter store.MatchFilter) ([]Deal, error) {
	matches, err := p.store.ListMatches(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "deal: list matches")
	}
	if len(matches) == 0 {
		return nil, nil
	}

	buyers, err := p.store.ListBuyers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "deal: list buyers")
	}
	buyerByID := make(map[string]*model.BuyerCriteria, len(buyers))
	for i := range buyers {
		buyerByID[buyers[i].ContactID] = &buyers[i]
	}

	properties, err := p.store.ListProperties(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "deal: list properties")
	}
	propertyByCode := make(map[string]*model.PropertyDetails, len(properties))
	for i := range properties {
		propertyByCode[properties[i].Code] = &properties[i]
	}

	now := p.now().UTC()
	deals := make([]Deal, 0, len(matches))
	for _, m := range matches {
		activities, err := p.store.ListActivities(ctx, m.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "deal: list activities for match %s", m.ID)
		}
		deals = append(deals, Project(m, buyerByID[m.BuyerID], propertyByCode[m.PropertyID], activities, now))
	}
	return deals, nil
}

// Stale returns the projected deals with no activity in StaleAfterDays or
// more, most urgent first.
func (p *Projector) Stale(ctx context.Context, filter store.MatchFilter) ([]Deal, error) {
	deals, err := p.Build(ctx, filter)
	if err != nil {
		return nil, err
	}
	stale := deals[:0:0]
	for _, d := range deals {
		if d.IsStale {
			stale = append(stale, d)
		}
	}
	SortByUrgency(stale)
	return stale, nil
}
