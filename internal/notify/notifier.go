// Package notify delivers discovered items to the chat channel: tier-1 items
// immediately, lower tiers as an aggregated batch summary with interactive
// category actions.
package notify

import "context"

// Field is one label/value pair on an outbound embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Message is an immediate tier-1 notification.
type Message struct {
	ChannelID    string  `json:"channel_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Tier         int     `json:"tier"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Fields       []Field `json:"fields,omitempty"`
}

// Action is one interactive button on a batch summary.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Emoji string `json:"emoji,omitempty"`
	Style string `json:"style,omitempty"`
}

// BatchSummary is the aggregated lower-tier notification sent on batch flush.
type BatchSummary struct {
	ChannelID      string         `json:"channel_id"`
	BatchID        string         `json:"batch_id"`
	Total          int            `json:"total"`
	CategoryCounts map[string]int `json:"category_counts"`
	Tier2Count     int            `json:"tier2_count"`
	Tier3Count     int            `json:"tier3_count"`
	Actions        []Action       `json:"actions"`
}

// Notifier is the outbound chat collaborator. Ready reports whether the
// channel is currently reachable; both send methods return the platform
// message ID on success.
type Notifier interface {
	Ready() bool
	SendImmediate(ctx context.Context, msg Message) (string, error)
	SendBatchSummary(ctx context.Context, summary BatchSummary) (string, error)
}
