package crm

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/pipeline"
)

// defaultAssociationObject is the SObject that represents one buyer's
// membership in one stage campaign.
const defaultAssociationObject = "CampaignMember"

// Syncer mirrors stage changes into the CRM: each pipeline stage maps to a
// campaign, and a match's current stage is represented by a single campaign
// membership for its buyer.
type Syncer struct {
	client Client
	object string
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithAssociationObject overrides the SObject used for stage associations.
func WithAssociationObject(name string) SyncerOption {
	return func(s *Syncer) {
		if name != "" {
			s.object = name
		}
	}
}

// NewSyncer creates a Syncer.
func NewSyncer(client Client, opts ...SyncerOption) *Syncer {
	s := &Syncer{client: client, object: defaultAssociationObject}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply performs the external side of a stage change: the old association is
// removed and a new one created for the target stage. Returns the new
// association id, empty when the target stage has no mapping.
//
// Removing a stale association is best effort; the CRM may have already
// dropped it.
func (s *Syncer) Apply(ctx context.Context, intent pipeline.SyncIntent, oldSyncID string) (string, error) {
	log := zap.L().With(
		zap.String("component", "crm.syncer"),
		zap.String("match", intent.MatchID),
	)

	if oldSyncID != "" {
		if err := s.client.DeleteOne(ctx, s.object, oldSyncID); err != nil {
			log.Warn("failed to remove previous stage association",
				zap.String("sync_id", oldSyncID),
				zap.Error(err),
			)
		}
	}

	if intent.AssociationID == "" {
		log.Debug("stage has no external mapping, skipping create",
			zap.String("stage", string(intent.ToStage)),
		)
		return "", nil
	}

	newID, err := s.client.InsertOne(ctx, s.object, map[string]any{
		"CampaignId": intent.AssociationID,
		"ContactId":  intent.BuyerID,
		"Status":     string(intent.ToStage),
	})
	if err != nil {
		return "", err
	}

	log.Info("stage association synced",
		zap.String("from", string(intent.FromStage)),
		zap.String("to", string(intent.ToStage)),
		zap.String("sync_id", newID),
	)
	return newID, nil
}
