package models

import (
	"fmt"
	"time"
)

// SourceRecord represents a raw record from the source CRM: field name to raw
// value (scalars, nested objects, nested lists). Immutable once fetched.
type SourceRecord map[string]any

// FlatRecord is a SourceRecord with nested fields reduced to scalars under
// derived keys. Produced once per SourceRecord and never mutated afterwards.
type FlatRecord map[string]any

// ID returns the source-assigned identifier of the record, or "unknown" when
// the record carries none.
func (r FlatRecord) ID() string {
	if id, ok := r["id"].(string); ok && id != "" {
		return id
	}
	return "unknown"
}

// Text returns the record's value for key when it is a non-empty string.
func (r FlatRecord) Text(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok && s != ""
}

// FieldPair maps one source field to one target field.
type FieldPair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FieldMapping is an ordered mapping from source field names to target field
// names. Built once per migration run and constant thereafter; may be partial
// (unmapped fields are dropped).
type FieldMapping []FieldPair

// TargetOf returns the target field for a source field, if mapped.
func (m FieldMapping) TargetOf(source string) (string, bool) {
	for _, pair := range m {
		if pair.Source == source {
			return pair.Target, true
		}
	}
	return "", false
}

// TargetPayload is an Attio-shaped write payload: target attribute slug to a
// target-type-specific value. Constructed per record, sent once (or retried
// with identical content).
type TargetPayload struct {
	Values map[string]any `json:"values"`
}

// Has reports whether the payload carries a non-empty value for the attribute.
func (p *TargetPayload) Has(attribute string) bool {
	if p == nil || p.Values == nil {
		return false
	}
	v, ok := p.Values[attribute]
	if !ok || v == nil {
		return false
	}
	if list, isList := v.([]any); isList {
		return len(list) > 0
	}
	return true
}

// RecordStatus tags a MigrationResult.
type RecordStatus string

const (
	StatusSuccess RecordStatus = "success"
	StatusFailure RecordStatus = "failure"
	StatusSkipped RecordStatus = "skipped"
)

// MigrationResult records the outcome of migrating a single source record.
// Accumulated into ordered sequences; appended to, never mutated.
type MigrationResult struct {
	SourceID string         `json:"source_id"`
	TargetID string         `json:"target_id,omitempty"`
	Status   RecordStatus   `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Payload  *TargetPayload `json:"payload,omitempty"`
}

// Succeeded creates a success result tying a source record to its target id.
func Succeeded(sourceID, targetID string, payload *TargetPayload) MigrationResult {
	return MigrationResult{SourceID: sourceID, TargetID: targetID, Status: StatusSuccess, Payload: payload}
}

// Failed creates a failure result carrying the upstream error detail.
func Failed(sourceID string, reason string, payload *TargetPayload) MigrationResult {
	return MigrationResult{SourceID: sourceID, Status: StatusFailure, Reason: reason, Payload: payload}
}

// Skipped creates a skipped result (e.g. already migrated in a resumed run).
func Skipped(sourceID, reason string) MigrationResult {
	return MigrationResult{SourceID: sourceID, Status: StatusSkipped, Reason: reason}
}

// RecordSummary is a slim view of a target record used by the dedupe path.
type RecordSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Emails    []string  `json:"emails,omitempty"`
	Domains   []string  `json:"domains,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateGroup maps a natural key value to the target records sharing it.
// Groups with exactly one member are not duplicates and are filtered out
// before they reach callers.
type DuplicateGroup struct {
	Key     string          `json:"key"`
	Records []RecordSummary `json:"records"`
}

// MergeDecision is the plan for consolidating one DuplicateGroup: the earliest
// created record is retained, the others deleted, and the union of mergeable
// attributes written back to the master.
type MergeDecision struct {
	Master  RecordSummary   `json:"master"`
	Others  []RecordSummary `json:"others"`
	Domains []string        `json:"domains"`
}

// Run is a persisted migration run in the sqlite ledger.
type Run struct {
	ID           string
	SourceObject string
	TargetObject string
	DryRun       bool
	StartedAt    time.Time
	FinishedAt   time.Time
	SuccessCount int
	FailureCount int
	SkippedCount int
}

// Validate checks that the run's data is complete enough to persist.
func (r *Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if r.SourceObject == "" || r.TargetObject == "" {
		return fmt.Errorf("run source and target objects are required")
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("run start time is required")
	}
	return nil
}

// Total returns the number of processed records in the run.
func (r *Run) Total() int {
	return r.SuccessCount + r.FailureCount + r.SkippedCount
}

// SuccessRate returns the percentage of successful records among processed
// (skips excluded), or 0 when nothing was processed.
func (r *Run) SuccessRate() float64 {
	processed := r.SuccessCount + r.FailureCount
	if processed == 0 {
		return 0
	}
	return float64(r.SuccessCount) / float64(processed) * 100
}
