package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pawprint/leakwatch/internal/config"
	"github.com/pawprint/leakwatch/internal/model"
)

// Setting keys used by the pipeline.
const (
	SettingLastCycleAt = "last_cycle_at"
)

// ItemFilter specifies criteria for listing recorded items.
type ItemFilter struct {
	SourceType model.SourceType `json:"source_type,omitempty"`
	Tier       int              `json:"tier,omitempty"`
	Verified   *bool            `json:"verified,omitempty"`
	Since      time.Time        `json:"since,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	Offset     int              `json:"offset,omitempty"`
}

// LogFilter specifies criteria for listing log entries.
type LogFilter struct {
	EventType model.EventType `json:"event_type,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the discovery pipeline.
type Store interface {
	// Items
	RecordItem(ctx context.Context, item model.ClassifiedItem) (*model.ItemRecord, error)
	RecordItems(ctx context.Context, items []model.ClassifiedItem) ([]model.ItemRecord, error)
	IsKnownAsset(ctx context.Context, sourceType model.SourceType, externalID string) (bool, error)
	GetItem(ctx context.Context, id string) (*model.ItemRecord, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]model.ItemRecord, error)
	UpdateDelivery(ctx context.Context, id string, messageID string) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Logs
	CreateLog(ctx context.Context, entry model.LogEntry) error
	ListLogs(ctx context.Context, filter LogFilter) ([]model.LogEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
