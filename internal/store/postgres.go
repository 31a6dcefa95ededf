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

	"github.com/pawprint/leakwatch/internal/db"
	"github.com/pawprint/leakwatch/internal/model"
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
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"is_known_asset":  `SELECT COUNT(1) FROM items WHERE source_type = $1 AND external_id = $2`,
	"update_delivery": `UPDATE items SET message_id = $1 WHERE id = $2`,
	"get_setting":     `SELECT value FROM settings WHERE key = $1`,
	"insert_log":      `INSERT INTO logs (event_type, message, metadata, created_at) VALUES ($1, $2, $3, $4)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS items (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_type   TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	description   TEXT,
	path          TEXT,
	thumbnail_url TEXT,
	creator_id    TEXT,
	creator_name  TEXT,
	tags          JSONB,
	change_kind   TEXT NOT NULL,
	metadata      JSONB,
	fingerprint   TEXT NOT NULL,
	confidence    INTEGER NOT NULL DEFAULT 0,
	verified      BOOLEAN NOT NULL DEFAULT false,
	tier          INTEGER NOT NULL DEFAULT 3,
	reasons       JSONB,
	message_id    TEXT,
	discovered_at TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS logs (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	message    TEXT NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_items_external ON items(source_type, external_id);
CREATE INDEX IF NOT EXISTS idx_items_fingerprint ON items(fingerprint);
CREATE INDEX IF NOT EXISTS idx_items_tier ON items(tier);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
CREATE INDEX IF NOT EXISTS idx_logs_event_type ON logs(event_type);
CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at);
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

var itemColumns = []string{
	"id", "source_type", "external_id", "name", "description", "path",
	"thumbnail_url", "creator_id", "creator_name", "tags", "change_kind",
	"metadata", "fingerprint", "confidence", "verified", "tier", "reasons",
	"discovered_at", "created_at",
}

func itemRow(id string, item model.ClassifiedItem, now time.Time) ([]any, error) {
	var tagsJSON, metaJSON, reasonsJSON []byte
	var err error
	if len(item.Tags) > 0 {
		if tagsJSON, err = json.Marshal(item.Tags); err != nil {
			return nil, err
		}
	}
	if item.Metadata != nil {
		if metaJSON, err = json.Marshal(item.Metadata); err != nil {
			return nil, err
		}
	}
	if len(item.Reasons) > 0 {
		if reasonsJSON, err = json.Marshal(item.Reasons); err != nil {
			return nil, err
		}
	}
	return []any{
		id, string(item.SourceType), item.ExternalID, item.Name, item.Description,
		item.Path, item.ThumbnailURL, item.CreatorID, item.CreatorName, tagsJSON,
		string(item.ChangeKind), metaJSON, item.Fingerprint(),
		item.Confidence, item.Verified, item.Tier, reasonsJSON,
		item.DiscoveredAt.UTC(), now,
	}, nil
}

func (s *PostgresStore) RecordItem(ctx context.Context, item model.ClassifiedItem) (*model.ItemRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	row, err := itemRow(id, item, now)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal item")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO items
		 (id, source_type, external_id, name, description, path, thumbnail_url,
		  creator_id, creator_name, tags, change_kind, metadata, fingerprint,
		  confidence, verified, tier, reasons, discovered_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		row...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert item")
	}

	return &model.ItemRecord{
		ID:             id,
		ClassifiedItem: item,
		CreatedAt:      now,
	}, nil
}

// RecordItems bulk-inserts a scan cycle's items via COPY.
func (s *PostgresStore) RecordItems(ctx context.Context, items []model.ClassifiedItem) ([]model.ItemRecord, error) {
	if len(items) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(items))
	records := make([]model.ItemRecord, 0, len(items))
	for _, item := range items {
		id := uuid.New().String()
		row, err := itemRow(id, item, now)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal item")
		}
		rows = append(rows, row)
		records = append(records, model.ItemRecord{ID: id, ClassifiedItem: item, CreatedAt: now})
	}

	if _, err := db.CopyFrom(ctx, s.pool, "items", itemColumns, rows); err != nil {
		return nil, eris.Wrap(err, "postgres: record items")
	}
	return records, nil
}

func (s *PostgresStore) IsKnownAsset(ctx context.Context, sourceType model.SourceType, externalID string) (bool, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(1) FROM items WHERE source_type = $1 AND external_id = $2`,
		string(sourceType), externalID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "postgres: is known asset")
	}
	return n > 0, nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*model.ItemRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source_type, external_id, name, description, path, thumbnail_url,
		        creator_id, creator_name, tags, change_kind, metadata,
		        confidence, verified, tier, reasons, message_id, discovered_at, created_at
		 FROM items WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get item %s", id)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, eris.Wrapf(err, "postgres: get item %s", id)
		}
		return nil, eris.New("item not found")
	}
	return scanPgItem(rows)
}

func (s *PostgresStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.ItemRecord, error) {
	query := `SELECT id, source_type, external_id, name, description, path, thumbnail_url,
	                 creator_id, creator_name, tags, change_kind, metadata,
	                 confidence, verified, tier, reasons, message_id, discovered_at, created_at
	          FROM items WHERE true`
	args := []any{}
	argIdx := 1

	if filter.SourceType != "" {
		query += fmt.Sprintf(` AND source_type = $%d`, argIdx)
		args = append(args, string(filter.SourceType))
		argIdx++
	}
	if filter.Tier > 0 {
		query += fmt.Sprintf(` AND tier = $%d`, argIdx)
		args = append(args, filter.Tier)
		argIdx++
	}
	if filter.Verified != nil {
		query += fmt.Sprintf(` AND verified = $%d`, argIdx)
		args = append(args, *filter.Verified)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(` AND created_at >= $%d`, argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

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
		return nil, eris.Wrap(err, "postgres: list items")
	}
	defer rows.Close()

	var records []model.ItemRecord
	for rows.Next() {
		rec, err := scanPgItem(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list items iterate")
}

func (s *PostgresStore) UpdateDelivery(ctx context.Context, id string, messageID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE items SET message_id = $1 WHERE id = $2`,
		messageID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update delivery %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("item not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", eris.Wrapf(err, "postgres: get setting %s", key)
	}
	return value, nil
}

func (s *PostgresStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3`,
		key, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set setting %s", key)
}

func (s *PostgresStore) CreateLog(ctx context.Context, entry model.LogEntry) error {
	var metaJSON []byte
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal log metadata")
		}
		metaJSON = b
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO logs (event_type, message, metadata, created_at) VALUES ($1, $2, $3, $4)`,
		string(entry.EventType), entry.Message, metaJSON, createdAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert log")
}

func (s *PostgresStore) ListLogs(ctx context.Context, filter LogFilter) ([]model.LogEntry, error) {
	query := `SELECT id, event_type, message, metadata, created_at FROM logs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(` AND event_type = $%d`, argIdx)
		args = append(args, string(filter.EventType))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

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
		return nil, eris.Wrap(err, "postgres: list logs")
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var eventType string
		var metaJSON []byte
		if err := rows.Scan(&e.ID, &eventType, &e.Message, &metaJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan log")
		}
		e.EventType = model.EventType(eventType)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal log metadata")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list logs iterate")
}

func scanPgItem(rows pgx.Rows) (*model.ItemRecord, error) {
	var rec model.ItemRecord
	var sourceType, changeKind string
	var desc, path, thumb, creatorID, creatorName, messageID *string
	var tagsJSON, metaJSON, reasonsJSON []byte

	if err := rows.Scan(&rec.ID, &sourceType, &rec.ExternalID, &rec.Name, &desc,
		&path, &thumb, &creatorID, &creatorName, &tagsJSON, &changeKind,
		&metaJSON, &rec.Confidence, &rec.Verified, &rec.Tier, &reasonsJSON,
		&messageID, &rec.DiscoveredAt, &rec.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: scan item")
	}

	rec.SourceType = model.SourceType(sourceType)
	rec.ChangeKind = model.ChangeKind(changeKind)
	if desc != nil {
		rec.Description = *desc
	}
	if path != nil {
		rec.Path = *path
	}
	if thumb != nil {
		rec.ThumbnailURL = *thumb
	}
	if creatorID != nil {
		rec.CreatorID = *creatorID
	}
	if creatorName != nil {
		rec.CreatorName = *creatorName
	}
	if messageID != nil {
		rec.MessageID = *messageID
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &rec.Tags); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal tags")
		}
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	if len(reasonsJSON) > 0 {
		if err := json.Unmarshal(reasonsJSON, &rec.Reasons); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal reasons")
		}
	}
	return &rec, nil
}
