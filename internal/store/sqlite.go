package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS buyers (
	contact_id TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	coords     BLOB,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS properties (
	code       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	coords     BLOB,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS matches (
	id          TEXT PRIMARY KEY,
	buyer_id    TEXT NOT NULL REFERENCES buyers(contact_id),
	property_id TEXT NOT NULL REFERENCES properties(code),
	score       TEXT NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	is_priority INTEGER NOT NULL DEFAULT 0,
	stage       TEXT NOT NULL DEFAULT '',
	sync_id     TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (buyer_id, property_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_buyer_id ON matches(buyer_id);
CREATE INDEX IF NOT EXISTS idx_matches_property_id ON matches(property_id);
CREATE INDEX IF NOT EXISTS idx_matches_stage ON matches(stage);

CREATE TABLE IF NOT EXISTS match_activities (
	id         TEXT PRIMARY KEY,
	match_id   TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	from_stage TEXT NOT NULL DEFAULT '',
	to_stage   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_match_activities_match_id ON match_activities(match_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetBuyer(ctx context.Context, contactID string) (*model.BuyerCriteria, error) {
	var dataJSON string
	var coords []byte
	var id string

	err := s.db.QueryRowContext(ctx,
		`SELECT contact_id, data, coords FROM buyers WHERE contact_id = ?`,
		contactID,
	).Scan(&id, &dataJSON, &coords)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get buyer %s", contactID)
	}
	return unmarshalBuyer(id, []byte(dataJSON), coords)
}

func (s *SQLiteStore) ListBuyers(ctx context.Context) ([]model.BuyerCriteria, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id, data, coords FROM buyers ORDER BY contact_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list buyers")
	}
	defer rows.Close()

	var buyers []model.BuyerCriteria
	for rows.Next() {
		var dataJSON string
		var coords []byte
		var id string
		if err := rows.Scan(&id, &dataJSON, &coords); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan buyer")
		}
		buyer, err := unmarshalBuyer(id, []byte(dataJSON), coords)
		if err != nil {
			return nil, err
		}
		buyers = append(buyers, *buyer)
	}
	return buyers, eris.Wrap(rows.Err(), "sqlite: list buyers iterate")
}

func (s *SQLiteStore) PutBuyer(ctx context.Context, buyer model.BuyerCriteria) error {
	if buyer.ContactID == "" {
		return eris.New("sqlite: buyer contact_id is required")
	}

	dataJSON, err := json.Marshal(buyer)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal buyer")
	}
	coords, err := encodeCoordinates(buyer.Coordinates)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buyers (contact_id, data, coords, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (contact_id) DO UPDATE SET data = excluded.data, coords = excluded.coords, updated_at = excluded.updated_at`,
		buyer.ContactID, string(dataJSON), coords, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put buyer %s", buyer.ContactID)
}

func (s *SQLiteStore) UpdateBuyerCoordinates(ctx context.Context, contactID string, c model.Coordinates) error {
	buyer, err := s.GetBuyer(ctx, contactID)
	if err != nil {
		return err
	}
	if buyer == nil {
		return eris.Errorf("buyer not found: %s", contactID)
	}
	buyer.Coordinates = &c
	return s.PutBuyer(ctx, *buyer)
}

func (s *SQLiteStore) GetProperty(ctx context.Context, code string) (*model.PropertyDetails, error) {
	var dataJSON string
	var coords []byte
	var id string

	err := s.db.QueryRowContext(ctx,
		`SELECT code, data, coords FROM properties WHERE code = ?`,
		code,
	).Scan(&id, &dataJSON, &coords)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get property %s", code)
	}
	return unmarshalProperty(id, []byte(dataJSON), coords)
}

func (s *SQLiteStore) ListProperties(ctx context.Context) ([]model.PropertyDetails, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, data, coords FROM properties ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list properties")
	}
	defer rows.Close()

	var properties []model.PropertyDetails
	for rows.Next() {
		var dataJSON string
		var coords []byte
		var id string
		if err := rows.Scan(&id, &dataJSON, &coords); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan property")
		}
		property, err := unmarshalProperty(id, []byte(dataJSON), coords)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *property)
	}
	return properties, eris.Wrap(rows.Err(), "sqlite: list properties iterate")
}

func (s *SQLiteStore) PutProperty(ctx context.Context, property model.PropertyDetails) error {
	if property.Code == "" {
		return eris.New("sqlite: property code is required")
	}

	dataJSON, err := json.Marshal(property)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal property")
	}
	coords, err := encodeCoordinates(property.Coordinates)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (code, data, coords, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (code) DO UPDATE SET data = excluded.data, coords = excluded.coords, updated_at = excluded.updated_at`,
		property.Code, string(dataJSON), coords, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put property %s", property.Code)
}

// PutProperties upserts a property batch inside one transaction. SQLite has
// no COPY protocol, so this is a prepared-statement loop.
func (s *SQLiteStore) PutProperties(ctx context.Context, properties []model.PropertyDetails) (int64, error) {
	if len(properties) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin put properties")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO properties (code, data, coords, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (code) DO UPDATE SET data = excluded.data, coords = excluded.coords, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare put properties")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, p := range properties {
		if p.Code == "" {
			return 0, eris.New("sqlite: property code is required")
		}
		dataJSON, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal property %s", p.Code)
		}
		coords, err := encodeCoordinates(p.Coordinates)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, p.Code, string(dataJSON), coords, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: put property %s", p.Code)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit put properties")
	}
	return int64(len(properties)), nil
}

func (s *SQLiteStore) UpdatePropertyCoordinates(ctx context.Context, code string, c model.Coordinates) error {
	property, err := s.GetProperty(ctx, code)
	if err != nil {
		return err
	}
	if property == nil {
		return eris.Errorf("property not found: %s", code)
	}
	property.Coordinates = &c
	return s.PutProperty(ctx, *property)
}

func (s *SQLiteStore) GetMatch(ctx context.Context, buyerID, propertyID string) (*model.PropertyMatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at
		 FROM matches WHERE buyer_id = ? AND property_id = ?`,
		buyerID, propertyID,
	)
	m, err := scanMatchRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get match %s/%s", buyerID, propertyID)
	}
	return m, nil
}

func (s *SQLiteStore) GetMatchByID(ctx context.Context, id string) (*model.PropertyMatch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at
		 FROM matches WHERE id = ?`,
		id,
	)
	m, err := scanMatchRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get match %s", id)
	}
	return m, nil
}

func (s *SQLiteStore) ListMatches(ctx context.Context, filter MatchFilter) ([]model.PropertyMatch, error) {
	query := `SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at FROM matches WHERE 1=1`
	args := []any{}

	if filter.BuyerID != "" {
		query += ` AND buyer_id = ?`
		args = append(args, filter.BuyerID)
	}
	if filter.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}
	if filter.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, string(filter.Stage))
	}
	if filter.MinTotal > 0 {
		query += ` AND total >= ?`
		args = append(args, filter.MinTotal)
	}
	query += ` ORDER BY total DESC, updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list matches")
	}
	defer rows.Close()

	var matches []model.PropertyMatch
	for rows.Next() {
		m, err := scanMatchRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		matches = append(matches, *m)
	}
	return matches, eris.Wrap(rows.Err(), "sqlite: list matches iterate")
}

func (s *SQLiteStore) UpsertMatch(ctx context.Context, match *model.PropertyMatch) (bool, error) {
	if match.ID == "" {
		match.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	scoreJSON, err := json.Marshal(match.Score)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal score")
	}

	existing, err := s.GetMatch(ctx, match.BuyerID, match.PropertyID)
	if err != nil {
		return false, err
	}

	if existing == nil {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO matches (id, buyer_id, property_id, score, total, is_priority, stage, sync_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			match.ID, match.BuyerID, match.PropertyID, string(scoreJSON),
			match.Score.Total, boolToInt(match.Score.IsPriority),
			string(match.Stage), match.SyncID, now, now,
		)
		if err != nil {
			return false, eris.Wrapf(err, "sqlite: insert match %s/%s", match.BuyerID, match.PropertyID)
		}
		match.CreatedAt = now
		match.UpdatedAt = now
		return true, nil
	}

	// Refresh score fields only; the stage and its sync identifier stay
	// under the pipeline's control.
	_, err = s.db.ExecContext(ctx,
		`UPDATE matches SET score = ?, total = ?, is_priority = ?, updated_at = ? WHERE id = ?`,
		string(scoreJSON), match.Score.Total, boolToInt(match.Score.IsPriority), now, existing.ID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: update match %s", existing.ID)
	}
	match.ID = existing.ID
	match.Stage = existing.Stage
	match.SyncID = existing.SyncID
	match.CreatedAt = existing.CreatedAt
	match.UpdatedAt = now
	return false, nil
}

func (s *SQLiteStore) UpdateMatchStage(ctx context.Context, id string, stage model.DealStage, syncID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE matches SET stage = ?, sync_id = ?, updated_at = ? WHERE id = ?`,
		string(stage), syncID, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update match stage %s", id)
	}
	return checkRowsAffected(res, "match", id)
}

func (s *SQLiteStore) DeleteMatch(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id)
	return eris.Wrapf(err, "sqlite: delete match %s", id)
}

func (s *SQLiteStore) AppendActivity(ctx context.Context, activity model.MatchActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_activities (id, match_id, type, body, from_stage, to_stage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.MatchID, string(activity.Type), activity.Body,
		string(activity.FromStage), string(activity.ToStage), activity.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: append activity for match %s", activity.MatchID)
}

func (s *SQLiteStore) ListActivities(ctx context.Context, matchID string) ([]model.MatchActivity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, match_id, type, body, from_stage, to_stage, created_at
		 FROM match_activities WHERE match_id = ? ORDER BY created_at ASC`,
		matchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list activities for match %s", matchID)
	}
	defer rows.Close()

	var activities []model.MatchActivity
	for rows.Next() {
		var a model.MatchActivity
		var typ, from, to string
		if err := rows.Scan(&a.ID, &a.MatchID, &typ, &a.Body, &from, &to, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan activity")
		}
		a.Type = model.ActivityType(typ)
		a.FromStage = model.DealStage(from)
		a.ToStage = model.DealStage(to)
		activities = append(activities, a)
	}
	return activities, eris.Wrap(rows.Err(), "sqlite: list activities iterate")
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanMatchRow reads one match row from a database/sql scanner.
func scanMatchRow(row scannable) (*model.PropertyMatch, error) {
	var m model.PropertyMatch
	var scoreJSON, stage string

	if err := row.Scan(&m.ID, &m.BuyerID, &m.PropertyID, &scoreJSON, &stage, &m.SyncID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Stage = model.DealStage(stage)
	if err := json.Unmarshal([]byte(scoreJSON), &m.Score); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal score")
	}
	return &m, nil
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("sqlite: rows affected for %s", entity))
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
