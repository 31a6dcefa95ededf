package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pawprint/leakwatch/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS items (
	id            TEXT PRIMARY KEY,
	source_type   TEXT NOT NULL,
	external_id   TEXT NOT NULL,
	name          TEXT NOT NULL,
	description   TEXT,
	path          TEXT,
	thumbnail_url TEXT,
	creator_id    TEXT,
	creator_name  TEXT,
	tags          TEXT,
	change_kind   TEXT NOT NULL,
	metadata      TEXT,
	fingerprint   TEXT NOT NULL,
	confidence    INTEGER NOT NULL DEFAULT 0,
	verified      INTEGER NOT NULL DEFAULT 0,
	tier          INTEGER NOT NULL DEFAULT 3,
	reasons       TEXT,
	message_id    TEXT,
	discovered_at DATETIME NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS logs (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	message    TEXT NOT NULL,
	metadata   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_items_external ON items(source_type, external_id);
CREATE INDEX IF NOT EXISTS idx_items_fingerprint ON items(fingerprint);
CREATE INDEX IF NOT EXISTS idx_items_tier ON items(tier);
CREATE INDEX IF NOT EXISTS idx_items_created_at ON items(created_at);
CREATE INDEX IF NOT EXISTS idx_logs_event_type ON logs(event_type);
CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordItem(ctx context.Context, item model.ClassifiedItem) (*model.ItemRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tagsJSON, metaJSON, reasonsJSON, err := marshalItemJSON(item)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal item")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items
		 (id, source_type, external_id, name, description, path, thumbnail_url,
		  creator_id, creator_name, tags, change_kind, metadata, fingerprint,
		  confidence, verified, tier, reasons, discovered_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(item.SourceType), item.ExternalID, item.Name, item.Description,
		item.Path, item.ThumbnailURL, item.CreatorID, item.CreatorName, tagsJSON,
		string(item.ChangeKind), metaJSON, item.Fingerprint(),
		item.Confidence, item.Verified, item.Tier, reasonsJSON,
		item.DiscoveredAt.UTC(), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert item")
	}

	return &model.ItemRecord{
		ID:             id,
		ClassifiedItem: item,
		CreatedAt:      now,
	}, nil
}

func (s *SQLiteStore) RecordItems(ctx context.Context, items []model.ClassifiedItem) ([]model.ItemRecord, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items
		 (id, source_type, external_id, name, description, path, thumbnail_url,
		  creator_id, creator_name, tags, change_kind, metadata, fingerprint,
		  confidence, verified, tier, reasons, discovered_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	records := make([]model.ItemRecord, 0, len(items))
	for _, item := range items {
		tagsJSON, metaJSON, reasonsJSON, err := marshalItemJSON(item)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal item")
		}
		id := uuid.New().String()
		_, err = stmt.ExecContext(ctx,
			id, string(item.SourceType), item.ExternalID,
			item.Name, item.Description, item.Path, item.ThumbnailURL,
			item.CreatorID, item.CreatorName, tagsJSON, string(item.ChangeKind),
			metaJSON, item.Fingerprint(), item.Confidence, item.Verified,
			item.Tier, reasonsJSON, item.DiscoveredAt.UTC(), now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert item %s", item.ExternalID)
		}
		records = append(records, model.ItemRecord{ID: id, ClassifiedItem: item, CreatedAt: now})
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return records, nil
}

func (s *SQLiteStore) IsKnownAsset(ctx context.Context, sourceType model.SourceType, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM items WHERE source_type = ? AND external_id = ?`,
		string(sourceType), externalID,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: is known asset")
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*model.ItemRecord, error) {
	row := s.db.QueryRowContext(ctx, selectItemColumns+` FROM items WHERE id = ?`, id)
	return scanItem(row)
}

func (s *SQLiteStore) ListItems(ctx context.Context, filter ItemFilter) ([]model.ItemRecord, error) {
	query := selectItemColumns + ` FROM items WHERE 1=1`
	var args []any

	if filter.SourceType != "" {
		query += ` AND source_type = ?`
		args = append(args, string(filter.SourceType))
	}
	if filter.Tier > 0 {
		query += ` AND tier = ?`
		args = append(args, filter.Tier)
	}
	if filter.Verified != nil {
		query += ` AND verified = ?`
		args = append(args, *filter.Verified)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC`

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
		return nil, eris.Wrap(err, "sqlite: list items")
	}
	defer rows.Close()

	var records []model.ItemRecord
	for rows.Next() {
		rec, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func (s *SQLiteStore) UpdateDelivery(ctx context.Context, id string, messageID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET message_id = ? WHERE id = ?`,
		messageID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update delivery %s", id)
	}
	return checkRowsAffected(res, "item", id)
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get setting %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set setting %s", key)
}

func (s *SQLiteStore) CreateLog(ctx context.Context, entry model.LogEntry) error {
	var metaJSON sql.NullString
	if entry.Metadata != nil {
		b, err := json.Marshal(entry.Metadata)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal log metadata")
		}
		metaJSON = sql.NullString{String: string(b), Valid: true}
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (event_type, message, metadata, created_at) VALUES (?, ?, ?, ?)`,
		string(entry.EventType), entry.Message, metaJSON, createdAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert log")
}

func (s *SQLiteStore) ListLogs(ctx context.Context, filter LogFilter) ([]model.LogEntry, error) {
	query := `SELECT id, event_type, message, metadata, created_at FROM logs WHERE 1=1`
	var args []any

	if filter.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.EventType))
	}
	query += ` ORDER BY created_at DESC`

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
		return nil, eris.Wrap(err, "sqlite: list logs")
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		var metaJSON sql.NullString
		if err := rows.Scan(&e.ID, &e.EventType, &e.Message, &metaJSON, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log")
		}
		if metaJSON.Valid {
			if err := json.Unmarshal([]byte(metaJSON.String), &e.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal log metadata")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list logs iterate")
}

// helpers

const selectItemColumns = `SELECT id, source_type, external_id, name, description, path, thumbnail_url,
	creator_id, creator_name, tags, change_kind, metadata,
	confidence, verified, tier, reasons, message_id, discovered_at, created_at`

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func marshalItemJSON(item model.ClassifiedItem) (tags, meta, reasons sql.NullString, err error) {
	if len(item.Tags) > 0 {
		b, merr := json.Marshal(item.Tags)
		if merr != nil {
			return tags, meta, reasons, merr
		}
		tags = sql.NullString{String: string(b), Valid: true}
	}
	if item.Metadata != nil {
		b, merr := json.Marshal(item.Metadata)
		if merr != nil {
			return tags, meta, reasons, merr
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	if len(item.Reasons) > 0 {
		b, merr := json.Marshal(item.Reasons)
		if merr != nil {
			return tags, meta, reasons, merr
		}
		reasons = sql.NullString{String: string(b), Valid: true}
	}
	return tags, meta, reasons, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanItem(row scannable) (*model.ItemRecord, error) {
	var rec model.ItemRecord
	var desc, path, thumb, creatorID, creatorName, tagsJSON, metaJSON, reasonsJSON, messageID sql.NullString
	var sourceType, changeKind string

	err := row.Scan(&rec.ID, &sourceType, &rec.ExternalID, &rec.Name, &desc, &path,
		&thumb, &creatorID, &creatorName, &tagsJSON, &changeKind, &metaJSON,
		&rec.Confidence, &rec.Verified, &rec.Tier, &reasonsJSON, &messageID,
		&rec.DiscoveredAt, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("item not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan item")
	}

	rec.SourceType = model.SourceType(sourceType)
	rec.ChangeKind = model.ChangeKind(changeKind)
	rec.Description = desc.String
	rec.Path = path.String
	rec.ThumbnailURL = thumb.String
	rec.CreatorID = creatorID.String
	rec.CreatorName = creatorName.String
	rec.MessageID = messageID.String

	if tagsJSON.Valid {
		if err := json.Unmarshal([]byte(tagsJSON.String), &rec.Tags); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal tags")
		}
	}
	if metaJSON.Valid {
		if err := json.Unmarshal([]byte(metaJSON.String), &rec.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	if reasonsJSON.Valid {
		if err := json.Unmarshal([]byte(reasonsJSON.String), &rec.Reasons); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal reasons")
		}
	}
	return &rec, nil
}
