package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedPair(t *testing.T, st *SQLiteStore) (model.BuyerCriteria, model.PropertyDetails) {
	t.Helper()
	ctx := context.Background()

	buyer := model.BuyerCriteria{
		ContactID:   "003XX0000000001",
		Name:        "Jordan Ames",
		City:        "Phoenix",
		State:       "AZ",
		DownPayment: 50000,
	}
	require.NoError(t, st.PutBuyer(ctx, buyer))

	property := model.PropertyDetails{
		Code:   "INV-100",
		Zip:    "85004",
		Price:  185000,
		Beds:   3,
		Baths:  2,
		Source: model.SourceInventory,
	}
	require.NoError(t, st.PutProperty(ctx, property))

	return buyer, property
}

// --- Buyers ---

func TestSQLite_Buyer_PutAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	buyer := model.BuyerCriteria{
		ContactID:   "003XX0000000001",
		Name:        "Jordan Ames",
		DesiredBeds: 3,
		DownPayment: 50000,
		Coordinates: &model.Coordinates{Latitude: 33.4512, Longitude: -112.0766},
	}
	require.NoError(t, st.PutBuyer(ctx, buyer))

	got, err := st.GetBuyer(ctx, "003XX0000000001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Jordan Ames", got.Name)
	assert.Equal(t, float64(3), got.DesiredBeds)
	require.NotNil(t, got.Coordinates)
	assert.InDelta(t, 33.4512, got.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, -112.0766, got.Coordinates.Longitude, 1e-9)
}

func TestSQLite_Buyer_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetBuyer(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Buyer_UpdateCoordinates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedPair(t, st)

	err := st.UpdateBuyerCoordinates(ctx, "003XX0000000001", model.Coordinates{Latitude: 33.45, Longitude: -112.07})
	require.NoError(t, err)

	got, err := st.GetBuyer(ctx, "003XX0000000001")
	require.NoError(t, err)
	require.NotNil(t, got.Coordinates)
	assert.InDelta(t, 33.45, got.Coordinates.Latitude, 1e-9)

	err = st.UpdateBuyerCoordinates(ctx, "missing", model.Coordinates{Latitude: 1, Longitude: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buyer not found")
}

// --- Properties ---

func TestSQLite_Property_PutAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedPair(t, st)

	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{
		Code:   "ZLW-55",
		Zip:    "85255",
		Price:  450000,
		Source: model.SourceZillow,
		ZPID:   "5501234",
	}))

	properties, err := st.ListProperties(ctx)
	require.NoError(t, err)
	require.Len(t, properties, 2)
	assert.Equal(t, "INV-100", properties[0].Code)
	assert.Equal(t, "ZLW-55", properties[1].Code)
	assert.Equal(t, model.SourceZillow, properties[1].Source)
}

func TestSQLite_PutProperties_Bulk(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.PutProperties(ctx, []model.PropertyDetails{
		{Code: "INV-100", Price: 185000, Beds: 3},
		{Code: "INV-200", Price: 415000, Beds: 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Re-importing the same batch updates in place.
	n, err = st.PutProperties(ctx, []model.PropertyDetails{
		{Code: "INV-100", Price: 179000, Beds: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	properties, err := st.ListProperties(ctx)
	require.NoError(t, err)
	require.Len(t, properties, 2)
	assert.Equal(t, 179000.0, properties[0].Price)

	_, err = st.PutProperties(ctx, []model.PropertyDetails{{Price: 100}})
	require.Error(t, err, "missing code rejects the batch")
}

// --- Matches ---

func TestSQLite_UpsertMatch_CreateThenRefresh(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedPair(t, st)

	match := &model.PropertyMatch{
		BuyerID:    "003XX0000000001",
		PropertyID: "INV-100",
		Score:      model.MatchScore{Total: 85, IsPriority: true},
	}
	created, err := st.UpsertMatch(ctx, match)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotEmpty(t, match.ID)
	firstID := match.ID

	// Advance the stage, then re-upsert with a fresh score. The stage and
	// sync_id must survive the refresh.
	require.NoError(t, st.UpdateMatchStage(ctx, firstID, model.StageBuyerInterested, "assoc-7"))

	refresh := &model.PropertyMatch{
		BuyerID:    "003XX0000000001",
		PropertyID: "INV-100",
		Score:      model.MatchScore{Total: 78},
	}
	created, err = st.UpsertMatch(ctx, refresh)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, firstID, refresh.ID)
	assert.Equal(t, model.StageBuyerInterested, refresh.Stage)
	assert.Equal(t, "assoc-7", refresh.SyncID)

	got, err := st.GetMatchByID(ctx, firstID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 78, got.Score.Total)
	assert.Equal(t, model.StageBuyerInterested, got.Stage)
}

func TestSQLite_ListMatches_FilterAndOrder(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedPair(t, st)

	require.NoError(t, st.PutProperty(ctx, model.PropertyDetails{Code: "INV-200", Price: 220000, Source: model.SourceInventory}))

	low := &model.PropertyMatch{BuyerID: "003XX0000000001", PropertyID: "INV-100", Score: model.MatchScore{Total: 62}}
	high := &model.PropertyMatch{BuyerID: "003XX0000000001", PropertyID: "INV-200", Score: model.MatchScore{Total: 94, IsPriority: true}}
	_, err := st.UpsertMatch(ctx, low)
	require.NoError(t, err)
	_, err = st.UpsertMatch(ctx, high)
	require.NoError(t, err)

	matches, err := st.ListMatches(ctx, MatchFilter{BuyerID: "003XX0000000001"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, 94, matches[0].Score.Total) // highest total first

	strong, err := st.ListMatches(ctx, MatchFilter{MinTotal: 80})
	require.NoError(t, err)
	require.Len(t, strong, 1)
	assert.Equal(t, "INV-200", strong[0].PropertyID)
}

func TestSQLite_UpdateMatchStage_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.UpdateMatchStage(context.Background(), "missing", model.StageSentToBuyer, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match not found")
}

// --- Activities ---

func TestSQLite_Activities_AppendAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedPair(t, st)

	match := &model.PropertyMatch{BuyerID: "003XX0000000001", PropertyID: "INV-100", Score: model.MatchScore{Total: 70}}
	_, err := st.UpsertMatch(ctx, match)
	require.NoError(t, err)

	require.NoError(t, st.AppendActivity(ctx, model.MatchActivity{
		MatchID: match.ID,
		Type:    model.ActivityStageChange,
		Body:    "Stage changed to Sent to Buyer",
		ToStage: model.StageSentToBuyer,
	}))
	require.NoError(t, st.AppendActivity(ctx, model.MatchActivity{
		MatchID: match.ID,
		Type:    model.ActivityNote,
		Body:    "Buyer asked about HOA fees",
	}))

	activities, err := st.ListActivities(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, model.ActivityStageChange, activities[0].Type)
	assert.Equal(t, model.StageSentToBuyer, activities[0].ToStage)
	assert.Equal(t, model.ActivityNote, activities[1].Type)
	assert.NotEmpty(t, activities[0].ID)
	assert.False(t, activities[0].CreatedAt.IsZero())
}
