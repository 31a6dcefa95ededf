package model

import "time"

// EventType categorizes log entries written by the pipeline.
type EventType string

const (
	EventScan         EventType = "scan"
	EventScanSkipped  EventType = "scan_skipped"
	EventBatchAdd     EventType = "batch_add"
	EventBatchNotify  EventType = "batch_notify"
	EventNotify       EventType = "notify"
	EventOfflineQueue EventType = "offline_queue"
	EventError        EventType = "error"
)

// LogEntry is a persisted observability event.
type LogEntry struct {
	ID        int64          `json:"id"`
	EventType EventType      `json:"event_type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
