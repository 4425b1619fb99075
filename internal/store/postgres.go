package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealflow-cli/internal/db"
	"github.com/sells-group/dealflow-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_buyer":          `SELECT contact_id, data, coords FROM buyers WHERE contact_id = $1`,
	"get_property":       `SELECT code, data, coords FROM properties WHERE code = $1`,
	"get_match":          `SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at FROM matches WHERE buyer_id = $1 AND property_id = $2`,
	"get_match_by_id":    `SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at FROM matches WHERE id = $1`,
	"update_match_stage": `UPDATE matches SET stage = $1, sync_id = $2, updated_at = $3 WHERE id = $4`,
	"insert_activity":    `INSERT INTO match_activities (id, match_id, type, body, from_stage, to_stage, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"list_activities":    `SELECT id, match_id, type, body, from_stage, to_stage, created_at FROM match_activities WHERE match_id = $1 ORDER BY created_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for use by subsystems
// that need direct query access (e.g., bulk imports).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS buyers (
	contact_id TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	coords     BYTEA,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS properties (
	code       TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	coords     BYTEA,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS matches (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	buyer_id    TEXT NOT NULL REFERENCES buyers(contact_id),
	property_id TEXT NOT NULL REFERENCES properties(code),
	score       JSONB NOT NULL,
	total       INTEGER NOT NULL DEFAULT 0,
	is_priority BOOLEAN NOT NULL DEFAULT false,
	stage       TEXT NOT NULL DEFAULT '',
	sync_id     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (buyer_id, property_id)
);

CREATE INDEX IF NOT EXISTS idx_matches_buyer_id ON matches(buyer_id);
CREATE INDEX IF NOT EXISTS idx_matches_property_id ON matches(property_id);
CREATE INDEX IF NOT EXISTS idx_matches_stage ON matches(stage);
CREATE INDEX IF NOT EXISTS idx_matches_total ON matches(total DESC);

CREATE TABLE IF NOT EXISTS match_activities (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	match_id   TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	from_stage TEXT NOT NULL DEFAULT '',
	to_stage   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_match_activities_match_id ON match_activities(match_id);
CREATE INDEX IF NOT EXISTS idx_match_activities_created_at ON match_activities(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetBuyer(ctx context.Context, contactID string) (*model.BuyerCriteria, error) {
	var dataJSON, coords []byte
	var id string

	err := s.pool.QueryRow(ctx,
		`SELECT contact_id, data, coords FROM buyers WHERE contact_id = $1`,
		contactID,
	).Scan(&id, &dataJSON, &coords)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get buyer %s", contactID)
	}

	buyer, err := unmarshalBuyer(id, dataJSON, coords)
	if err != nil {
		return nil, err
	}
	return buyer, nil
}

func (s *PostgresStore) ListBuyers(ctx context.Context) ([]model.BuyerCriteria, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT contact_id, data, coords FROM buyers ORDER BY contact_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list buyers")
	}
	defer rows.Close()

	var buyers []model.BuyerCriteria
	for rows.Next() {
		var dataJSON, coords []byte
		var id string
		if err := rows.Scan(&id, &dataJSON, &coords); err != nil {
			return nil, eris.Wrap(err, "postgres: scan buyer")
		}
		buyer, err := unmarshalBuyer(id, dataJSON, coords)
		if err != nil {
			return nil, err
		}
		buyers = append(buyers, *buyer)
	}
	return buyers, eris.Wrap(rows.Err(), "postgres: list buyers iterate")
}

func (s *PostgresStore) PutBuyer(ctx context.Context, buyer model.BuyerCriteria) error {
	if buyer.ContactID == "" {
		return eris.New("postgres: buyer contact_id is required")
	}

	dataJSON, err := json.Marshal(buyer)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal buyer")
	}
	coords, err := encodeCoordinates(buyer.Coordinates)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO buyers (contact_id, data, coords, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (contact_id) DO UPDATE SET data = $2, coords = $3, updated_at = $4`,
		buyer.ContactID, dataJSON, coords, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put buyer %s", buyer.ContactID)
}

func (s *PostgresStore) UpdateBuyerCoordinates(ctx context.Context, contactID string, c model.Coordinates) error {
	coords, err := encodeCoordinates(&c)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE buyers SET coords = $1, data = jsonb_set(data, '{coordinates}', $2::jsonb), updated_at = $3 WHERE contact_id = $4`,
		coords, mustJSON(c), time.Now().UTC(), contactID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update buyer coords %s", contactID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("buyer not found: %s", contactID)
	}
	return nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, code string) (*model.PropertyDetails, error) {
	var dataJSON, coords []byte
	var id string

	err := s.pool.QueryRow(ctx,
		`SELECT code, data, coords FROM properties WHERE code = $1`,
		code,
	).Scan(&id, &dataJSON, &coords)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get property %s", code)
	}

	property, err := unmarshalProperty(id, dataJSON, coords)
	if err != nil {
		return nil, err
	}
	return property, nil
}

func (s *PostgresStore) ListProperties(ctx context.Context) ([]model.PropertyDetails, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, data, coords FROM properties ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list properties")
	}
	defer rows.Close()

	var properties []model.PropertyDetails
	for rows.Next() {
		var dataJSON, coords []byte
		var id string
		if err := rows.Scan(&id, &dataJSON, &coords); err != nil {
			return nil, eris.Wrap(err, "postgres: scan property")
		}
		property, err := unmarshalProperty(id, dataJSON, coords)
		if err != nil {
			return nil, err
		}
		properties = append(properties, *property)
	}
	return properties, eris.Wrap(rows.Err(), "postgres: list properties iterate")
}

func (s *PostgresStore) PutProperty(ctx context.Context, property model.PropertyDetails) error {
	if property.Code == "" {
		return eris.New("postgres: property code is required")
	}

	dataJSON, err := json.Marshal(property)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal property")
	}
	coords, err := encodeCoordinates(property.Coordinates)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO properties (code, data, coords, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (code) DO UPDATE SET data = $2, coords = $3, updated_at = $4`,
		property.Code, dataJSON, coords, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put property %s", property.Code)
}

// PutProperties bulk-upserts properties through a temp table and COPY, one
// round trip for the whole batch.
func (s *PostgresStore) PutProperties(ctx context.Context, properties []model.PropertyDetails) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(properties))
	for _, p := range properties {
		if p.Code == "" {
			return 0, eris.New("postgres: property code is required")
		}
		dataJSON, err := json.Marshal(p)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal property %s", p.Code)
		}
		coords, err := encodeCoordinates(p.Coordinates)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{p.Code, dataJSON, coords, now})
	}

	return db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "properties",
		Columns:      []string{"code", "data", "coords", "updated_at"},
		ConflictKeys: []string{"code"},
	}, rows)
}

func (s *PostgresStore) UpdatePropertyCoordinates(ctx context.Context, code string, c model.Coordinates) error {
	coords, err := encodeCoordinates(&c)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET coords = $1, data = jsonb_set(data, '{coordinates}', $2::jsonb), updated_at = $3 WHERE code = $4`,
		coords, mustJSON(c), time.Now().UTC(), code,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update property coords %s", code)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("property not found: %s", code)
	}
	return nil
}

func (s *PostgresStore) GetMatch(ctx context.Context, buyerID, propertyID string) (*model.PropertyMatch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at
		 FROM matches WHERE buyer_id = $1 AND property_id = $2`,
		buyerID, propertyID,
	)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get match %s/%s", buyerID, propertyID)
	}
	return m, nil
}

func (s *PostgresStore) GetMatchByID(ctx context.Context, id string) (*model.PropertyMatch, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at
		 FROM matches WHERE id = $1`,
		id,
	)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get match %s", id)
	}
	return m, nil
}

func (s *PostgresStore) ListMatches(ctx context.Context, filter MatchFilter) ([]model.PropertyMatch, error) {
	query := `SELECT id, buyer_id, property_id, score, stage, sync_id, created_at, updated_at FROM matches WHERE true`
	args := []any{}
	argIdx := 1

	if filter.BuyerID != "" {
		query += fmt.Sprintf(` AND buyer_id = $%d`, argIdx)
		args = append(args, filter.BuyerID)
		argIdx++
	}
	if filter.PropertyID != "" {
		query += fmt.Sprintf(` AND property_id = $%d`, argIdx)
		args = append(args, filter.PropertyID)
		argIdx++
	}
	if filter.Stage != "" {
		query += fmt.Sprintf(` AND stage = $%d`, argIdx)
		args = append(args, string(filter.Stage))
		argIdx++
	}
	if filter.MinTotal > 0 {
		query += fmt.Sprintf(` AND total >= $%d`, argIdx)
		args = append(args, filter.MinTotal)
		argIdx++
	}
	query += ` ORDER BY total DESC, updated_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list matches")
	}
	defer rows.Close()

	var matches []model.PropertyMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		matches = append(matches, *m)
	}
	return matches, eris.Wrap(rows.Err(), "postgres: list matches iterate")
}

func (s *PostgresStore) UpsertMatch(ctx context.Context, match *model.PropertyMatch) (bool, error) {
	if match.ID == "" {
		match.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	scoreJSON, err := json.Marshal(match.Score)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal score")
	}

	// On conflict only the score fields refresh; the stage and its sync
	// identifier stay under the pipeline's control. xmax = 0 distinguishes a
	// freshly inserted row from an updated one.
	var created bool
	err = s.pool.QueryRow(ctx,
		`INSERT INTO matches (id, buyer_id, property_id, score, total, is_priority, stage, sync_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 ON CONFLICT (buyer_id, property_id) DO UPDATE SET
		   score = $4, total = $5, is_priority = $6, updated_at = $9
		 RETURNING id, stage, sync_id, created_at, (xmax = 0) AS created`,
		match.ID, match.BuyerID, match.PropertyID, scoreJSON,
		match.Score.Total, match.Score.IsPriority,
		string(match.Stage), match.SyncID, now,
	).Scan(&match.ID, &match.Stage, &match.SyncID, &match.CreatedAt, &created)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: upsert match %s/%s", match.BuyerID, match.PropertyID)
	}
	match.UpdatedAt = now
	return created, nil
}

func (s *PostgresStore) UpdateMatchStage(ctx context.Context, id string, stage model.DealStage, syncID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE matches SET stage = $1, sync_id = $2, updated_at = $3 WHERE id = $4`,
		string(stage), syncID, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update match stage %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("match not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) DeleteMatch(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id)
	return eris.Wrapf(err, "postgres: delete match %s", id)
}

func (s *PostgresStore) AppendActivity(ctx context.Context, activity model.MatchActivity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO match_activities (id, match_id, type, body, from_stage, to_stage, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		activity.ID, activity.MatchID, string(activity.Type), activity.Body,
		string(activity.FromStage), string(activity.ToStage), activity.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: append activity for match %s", activity.MatchID)
}

func (s *PostgresStore) ListActivities(ctx context.Context, matchID string) ([]model.MatchActivity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, match_id, type, body, from_stage, to_stage, created_at
		 FROM match_activities WHERE match_id = $1 ORDER BY created_at ASC`,
		matchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list activities for match %s", matchID)
	}
	defer rows.Close()

	var activities []model.MatchActivity
	for rows.Next() {
		var a model.MatchActivity
		var typ, from, to string
		if err := rows.Scan(&a.ID, &a.MatchID, &typ, &a.Body, &from, &to, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan activity")
		}
		a.Type = model.ActivityType(typ)
		a.FromStage = model.DealStage(from)
		a.ToStage = model.DealStage(to)
		activities = append(activities, a)
	}
	return activities, eris.Wrap(rows.Err(), "postgres: list activities iterate")
}

// scanMatch reads one match row from a pgx row scanner.
func scanMatch(row pgx.Row) (*model.PropertyMatch, error) {
	var m model.PropertyMatch
	var scoreJSON []byte
	var stage string

	if err := row.Scan(&m.ID, &m.BuyerID, &m.PropertyID, &scoreJSON, &stage, &m.SyncID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Stage = model.DealStage(stage)
	if err := json.Unmarshal(scoreJSON, &m.Score); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal score")
	}
	return &m, nil
}

// unmarshalBuyer hydrates a buyer document, preferring the coords column over
// whatever the JSON payload carried.
func unmarshalBuyer(id string, dataJSON, coords []byte) (*model.BuyerCriteria, error) {
	var b model.BuyerCriteria
	if err := json.Unmarshal(dataJSON, &b); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal buyer %s", id)
	}
	b.ContactID = id

	c, err := decodeCoordinates(coords)
	if err != nil {
		return nil, err
	}
	if c != nil {
		b.Coordinates = c
	}
	return &b, nil
}

// unmarshalProperty hydrates a property document, preferring the coords
// column over whatever the JSON payload carried.
func unmarshalProperty(code string, dataJSON, coords []byte) (*model.PropertyDetails, error) {
	var p model.PropertyDetails
	if err := json.Unmarshal(dataJSON, &p); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal property %s", code)
	}
	p.Code = code

	c, err := decodeCoordinates(coords)
	if err != nil {
		return nil, err
	}
	if c != nil {
		p.Coordinates = c
	}
	return &p, nil
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
