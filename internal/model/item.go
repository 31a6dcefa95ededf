package model

import (
	"fmt"
	"strings"
	"time"
)

// SourceType identifies which platform surface an item was discovered on.
type SourceType string

const (
	SourceTypeBadge            SourceType = "badge"
	SourceTypeGamePass         SourceType = "gamepass"
	SourceTypeDeveloperProduct SourceType = "developer_product"
	SourceTypeGameIcon         SourceType = "game_icon"
	SourceTypeAsset            SourceType = "asset"
	SourceTypePlaceUpdate      SourceType = "place_update"
)

// ChangeKind describes how an item changed relative to what the platform
// previously exposed.
type ChangeKind string

const (
	ChangeKindAdded   ChangeKind = "added"
	ChangeKindUpdated ChangeKind = "updated"
	ChangeKindRemoved ChangeKind = "removed"
)

// Item is a freshly collected, not-yet-classified discovered asset.
// Numeric platform IDs are carried as opaque strings.
type Item struct {
	SourceType   SourceType     `json:"source_type"`
	ExternalID   string         `json:"external_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Path         string         `json:"path,omitempty"`
	ThumbnailURL string         `json:"thumbnail_url,omitempty"`
	CreatorID    string         `json:"creator_id,omitempty"`
	CreatorName  string         `json:"creator_name,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	ChangeKind   ChangeKind     `json:"change_kind"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	DiscoveredAt time.Time      `json:"discovered_at"`
}

// Fingerprint derives the dedup key: normalized name, normalized path (or
// external ID when no path is known), source type, and change kind. Two items
// with the same fingerprint inside the dedup window are one event.
func (i Item) Fingerprint() string {
	pathOrID := i.Path
	if pathOrID == "" {
		pathOrID = i.ExternalID
	}
	return fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(i.Name),
		strings.ToLower(pathOrID),
		i.SourceType,
		i.ChangeKind,
	)
}

// MetaString returns a string metadata value, or "" when absent or not a string.
func (i Item) MetaString(key string) string {
	if i.Metadata == nil {
		return ""
	}
	s, _ := i.Metadata[key].(string)
	return s
}

// MetaInt returns a numeric metadata value. JSON decoding produces float64,
// so both exact ints and floats are accepted.
func (i Item) MetaInt(key string) (int, bool) {
	if i.Metadata == nil {
		return 0, false
	}
	switch v := i.Metadata[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// MetaBool returns a boolean metadata value, false when absent.
func (i Item) MetaBool(key string) bool {
	if i.Metadata == nil {
		return false
	}
	b, _ := i.Metadata[key].(bool)
	return b
}

// Classification is the result of running an item through the rule tables.
type Classification struct {
	Confidence int      `json:"confidence"`
	Verified   bool     `json:"verified"`
	Tier       int      `json:"tier"`
	Reasons    []string `json:"reasons,omitempty"`
}

// ClassifiedItem pairs an item with its classification.
type ClassifiedItem struct {
	Item           `json:"item"`
	Classification `json:"classification"`
}

// ItemRecord is the durable copy of a delivered or enqueued item.
type ItemRecord struct {
	ID             string `json:"id"`
	ClassifiedItem `json:"item"`
	MessageID      string    `json:"message_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
