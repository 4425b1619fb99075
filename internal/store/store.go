// Package store persists buyers, properties, matches, and activities behind
// a driver-selectable interface (Postgres or SQLite).
package store

import (
	"context"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// MatchFilter specifies criteria for listing matches.
type MatchFilter struct {
	BuyerID    string          `json:"buyer_id,omitempty"`
	PropertyID string          `json:"property_id,omitempty"`
	Stage      model.DealStage `json:"stage,omitempty"`
	MinTotal   int             `json:"min_total,omitempty"`
	Limit      int             `json:"limit,omitempty"`
	Offset     int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the matching engine.
type Store interface {
	// Buyers
	GetBuyer(ctx context.Context, contactID string) (*model.BuyerCriteria, error)
	ListBuyers(ctx context.Context) ([]model.BuyerCriteria, error)
	PutBuyer(ctx context.Context, buyer model.BuyerCriteria) error
	UpdateBuyerCoordinates(ctx context.Context, contactID string, coords model.Coordinates) error

	// Properties
	GetProperty(ctx context.Context, code string) (*model.PropertyDetails, error)
	ListProperties(ctx context.Context) ([]model.PropertyDetails, error)
	PutProperty(ctx context.Context, property model.PropertyDetails) error
	// PutProperties bulk-upserts a property batch and returns the number of
	// rows written.
	PutProperties(ctx context.Context, properties []model.PropertyDetails) (int64, error)
	UpdatePropertyCoordinates(ctx context.Context, code string, coords model.Coordinates) error

	// Matches
	GetMatch(ctx context.Context, buyerID, propertyID string) (*model.PropertyMatch, error)
	GetMatchByID(ctx context.Context, id string) (*model.PropertyMatch, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]model.PropertyMatch, error)
	// UpsertMatch creates the match or refreshes its score fields, preserving
	// the existing stage. Returns true when a new row was created.
	UpsertMatch(ctx context.Context, match *model.PropertyMatch) (bool, error)
	UpdateMatchStage(ctx context.Context, id string, stage model.DealStage, syncID string) error
	DeleteMatch(ctx context.Context, id string) error

	// Activities (append-only)
	AppendActivity(ctx context.Context, activity model.MatchActivity) error
	ListActivities(ctx context.Context, matchID string) ([]model.MatchActivity, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
