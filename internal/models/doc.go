// Package models defines domain entities for the crmx CRM migration service.
//
// The package contains two categories of types:
//
// 1. Record pipeline types flowing through the migrate path:
//   - [SourceRecord] : Raw record as returned by the Twenty collection endpoint
//   - [FlatRecord] : SourceRecord with nested fields reduced to scalars
//   - [FieldMapping] : Ordered source-field to target-field table
//   - [TargetPayload] : Attio-shaped write payload
//   - [MigrationResult] : Per-record outcome (success, failure, skipped)
//
// 2. Dedupe types flowing through the merge path:
//   - [RecordSummary] : Slim view of an Attio record (id, name, keys, created_at)
//   - [DuplicateGroup] : Records sharing a natural key
//   - [MergeDecision] : Chosen master, records to delete, consolidated attributes
//
// [Run] is the persistent entity backing the sqlite run ledger.
package models
