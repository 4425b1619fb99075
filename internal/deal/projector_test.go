package deal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

func newProjectorFixture(t *testing.T) (*Projector, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "deals.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewProjector(st), st
}

func TestProjector_Build(t *testing.T) {
	p, st := newProjectorFixture(t)
	ctx := context.Background()

	require.NoError(t, st.PutBuyer(ctx, model.BuyerCriteria{ContactID: "b1", Name: "Jordan Ames"}))
	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{Code: "p1", Address: "414 E Fillmore St", Price: 185000}))

	match := &model.PropertyMatch{BuyerID: "b1", PropertyID: "p1", Score: model.MatchScore{Total: 88}}
	_, err := st.UpsertMatch(ctx, match)
	require.NoError(t, err)
	require.NoError(t, st.UpdateMatchStage(ctx, match.ID, model.StageBuyerInterested, ""))
	require.NoError(t, st.AppendActivity(ctx, model.MatchActivity{
		MatchID:   match.ID,
		Type:      model.ActivityNote,
		CreatedAt: time.Now().UTC().Add(-10 * 24 * time.Hour),
	}))

	deals, err := p.Build(ctx, store.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, deals, 1)

	d := deals[0]
	assert.Equal(t, match.ID, d.MatchID)
	assert.Equal(t, "Jordan Ames", d.BuyerName)
	assert.Equal(t, "414 E Fillmore St", d.Address)
	assert.Equal(t, model.StageBuyerInterested, d.Stage)
	assert.Equal(t, 10, d.DaysSinceActivity)
	assert.True(t, d.IsStale)
}

func TestProjector_Build_FilterByProperty(t *testing.T) {
	p, st := newProjectorFixture(t)
	ctx := context.Background()

	require.NoError(t, st.PutBuyer(ctx, model.BuyerCriteria{ContactID: "b1"}))
	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{Code: "p1", Price: 100000}))
	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{Code: "p2", Price: 250000}))

	for _, code := range []string{"p1", "p2"} {
		m := &model.PropertyMatch{BuyerID: "b1", PropertyID: code, Score: model.MatchScore{Total: 70}}
		_, err := st.UpsertMatch(ctx, m)
		require.NoError(t, err)
	}

	deals, err := p.Build(ctx, store.MatchFilter{PropertyID: "p1"})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "p1", deals[0].PropertyID)
	assert.Equal(t, float64(100000), deals[0].PropertyPrice)
}

func TestProjector_Stale(t *testing.T) {
	p, st := newProjectorFixture(t)
	ctx := context.Background()

	require.NoError(t, st.PutBuyer(ctx, model.BuyerCriteria{ContactID: "b1"}))
	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{Code: "p1", Price: 100000}))
	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{Code: "p2", Price: 100000}))

	fresh := &model.PropertyMatch{BuyerID: "b1", PropertyID: "p1", Score: model.MatchScore{Total: 70}}
	old := &model.PropertyMatch{BuyerID: "b1", PropertyID: "p2", Score: model.MatchScore{Total: 80}}
	_, err := st.UpsertMatch(ctx, fresh)
	require.NoError(t, err)
	_, err = st.UpsertMatch(ctx, old)
	require.NoError(t, err)

	require.NoError(t, st.AppendActivity(ctx, model.MatchActivity{MatchID: fresh.ID, Type: model.ActivityNote}))
	require.NoError(t, st.AppendActivity(ctx, model.MatchActivity{
		MatchID:   old.ID,
		Type:      model.ActivityNote,
		CreatedAt: time.Now().UTC().Add(-20 * 24 * time.Hour),
	}))

	stale, err := p.Stale(ctx, store.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].MatchID)
}
