package model

import "time"

// SourceKind discriminates catalog entries.
type SourceKind string

const (
	SourceKindDeveloper SourceKind = "developer"
	SourceKindGroup     SourceKind = "group"
	SourceKindKeyword   SourceKind = "keyword"
	SourceKindGame      SourceKind = "game"
)

// SourceDescriptor is one external entity the collector polls each cycle.
// Immutable at runtime.
type SourceDescriptor struct {
	ID          string     `json:"id" yaml:"id"`
	Kind        SourceKind `json:"kind" yaml:"kind"`
	DisplayName string     `json:"display_name" yaml:"display_name"`
}

// SourceResult holds the per-source outcome of one discovery cycle.
type SourceResult struct {
	Source     SourceDescriptor `json:"source"`
	ItemsFound int              `json:"items_found"`
	Duplicates int              `json:"duplicates"`
	Error      string           `json:"error,omitempty"`
}

// CycleResult summarizes one discovery cycle for observability.
type CycleResult struct {
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []SourceResult `json:"sources"`
	ItemsFound int            `json:"items_found"`
	Duplicates int            `json:"duplicates"`
	Skipped    bool           `json:"skipped,omitempty"`
}
