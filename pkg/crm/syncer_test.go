package crm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/pipeline"
)

// fakeClient records calls and returns canned responses.
type fakeClient struct {
	queryJSON string
	queryErr  error
	insertID  string
	insertErr error
	deleteErr error

	inserted []map[string]any
	deleted  []string
	updated  []map[string]any
}

func (f *fakeClient) Query(_ context.Context, _ string, out any) error {
	if f.queryErr != nil {
		return f.queryErr
	}
	return json.Unmarshal([]byte(f.queryJSON), out)
}

func (f *fakeClient) InsertOne(_ context.Context, _ string, record map[string]any) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, record)
	return f.insertID, nil
}

func (f *fakeClient) UpdateOne(_ context.Context, _ string, id string, fields map[string]any) error {
	fields["Id"] = id
	f.updated = append(f.updated, fields)
	return nil
}

func (f *fakeClient) DeleteOne(_ context.Context, _ string, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func TestSyncer_Apply_ReplacesAssociation(t *testing.T) {
	client := &fakeClient{insertID: "00v000000000001"}
	s := NewSyncer(client)

	intent := pipeline.SyncIntent{
		MatchID:       "m1",
		BuyerID:       "003XX0000000001",
		FromStage:     model.StageSentToBuyer,
		ToStage:       model.StageBuyerInterested,
		AssociationID: "701XX0000000002",
	}

	newID, err := s.Apply(context.Background(), intent, "00v000000000000")
	require.NoError(t, err)
	assert.Equal(t, "00v000000000001", newID)

	require.Len(t, client.deleted, 1)
	assert.Equal(t, "00v000000000000", client.deleted[0])

	require.Len(t, client.inserted, 1)
	assert.Equal(t, "701XX0000000002", client.inserted[0]["CampaignId"])
	assert.Equal(t, "003XX0000000001", client.inserted[0]["ContactId"])
	assert.Equal(t, string(model.StageBuyerInterested), client.inserted[0]["Status"])
}

func TestSyncer_Apply_FirstTransitionHasNothingToDelete(t *testing.T) {
	client := &fakeClient{insertID: "00v000000000009"}
	s := NewSyncer(client)

	intent := pipeline.SyncIntent{
		MatchID:       "m1",
		BuyerID:       "003XX0000000001",
		ToStage:       model.StageSentToBuyer,
		AssociationID: "701XX0000000001",
	}

	newID, err := s.Apply(context.Background(), intent, "")
	require.NoError(t, err)
	assert.Equal(t, "00v000000000009", newID)
	assert.Empty(t, client.deleted)
}

func TestSyncer_Apply_UnmappedStageSkipsCreate(t *testing.T) {
	client := &fakeClient{}
	s := NewSyncer(client)

	intent := pipeline.SyncIntent{
		MatchID: "m1",
		BuyerID: "003XX0000000001",
		ToStage: model.StageNotInterested,
	}

	newID, err := s.Apply(context.Background(), intent, "00v000000000000")
	require.NoError(t, err)
	assert.Empty(t, newID)
	assert.Len(t, client.deleted, 1)
	assert.Empty(t, client.inserted)
}

func TestSyncer_Apply_DeleteFailureIsBestEffort(t *testing.T) {
	client := &fakeClient{insertID: "00v000000000003", deleteErr: eris.New("gone already")}
	s := NewSyncer(client)

	intent := pipeline.SyncIntent{
		MatchID:       "m1",
		BuyerID:       "003XX0000000001",
		ToStage:       model.StageOfferMade,
		AssociationID: "701XX0000000004",
	}

	newID, err := s.Apply(context.Background(), intent, "00v000000000000")
	require.NoError(t, err)
	assert.Equal(t, "00v000000000003", newID)
}

func TestSyncer_Apply_InsertFailurePropagates(t *testing.T) {
	client := &fakeClient{insertErr: eris.New("FIELD_INTEGRITY_EXCEPTION")}
	s := NewSyncer(client)

	intent := pipeline.SyncIntent{
		MatchID:       "m1",
		BuyerID:       "003XX0000000001",
		ToStage:       model.StageOfferMade,
		AssociationID: "701XX0000000004",
	}

	_, err := s.Apply(context.Background(), intent, "")
	require.Error(t, err)
}

func TestFetchBuyers_MapsContactFields(t *testing.T) {
	client := &fakeClient{queryJSON: `{
		"Records": [
			{
				"Id": "003XX0000000001",
				"Name": "Jordan Ames",
				"Email": "jordan@example.com",
				"Desired_Beds__c": 3,
				"Desired_Baths__c": 2,
				"Down_Payment__c": 50000,
				"Monthly_Income__c": 6200,
				"Monthly_Liabilities__c": 800,
				"MailingCity": "Phoenix",
				"MailingState": "AZ",
				"Preferred_Zips__c": "85001;85004; 85255"
			},
			{
				"Id": "003XX0000000002",
				"Name": "Casey Orr",
				"Preferred_Location__c": "Tucson, AZ"
			}
		]
	}`}

	buyers, err := FetchBuyers(context.Background(), client)
	require.NoError(t, err)
	require.Len(t, buyers, 2)

	b := buyers[0]
	assert.Equal(t, "003XX0000000001", b.ContactID)
	assert.Equal(t, "Jordan Ames", b.Name)
	assert.Equal(t, float64(50000), b.DownPayment)
	assert.Equal(t, []string{"85001", "85004", "85255"}, b.PreferredZips)
	assert.Equal(t, "85001", b.SearchLocation())

	assert.Equal(t, "Tucson, AZ", buyers[1].SearchLocation())
	assert.Empty(t, buyers[1].PreferredZips)
}

func TestFetchBuyers_QueryErrorPropagates(t *testing.T) {
	client := &fakeClient{queryErr: eris.New("INVALID_SESSION_ID")}

	_, err := FetchBuyers(context.Background(), client)
	require.Error(t, err)
}
