// package services defines interfaces and clients for interacting with CRM HTTP APIs
//
// Twenty CRM (source), Attio CRM (target)
package services

import (
	"context"

	"github.com/desertthunder/crmx/internal/models"
)

// Source defines the read surface of the source CRM (Twenty): collection
// discovery and cursor-paginated record extraction.
type Source interface {
	// AvailableObjects lists the record collections the source exposes.
	AvailableObjects(ctx context.Context) ([]string, error)

	// ExtractRecords walks a collection page by page until cursor exhaustion,
	// flattening each record. Extraction is best-effort: on a mid-loop client
	// failure the records accumulated so far are returned alongside the error,
	// so callers can log the truncation and keep going.
	ExtractRecords(ctx context.Context, object string) ([]models.FlatRecord, error)

	// Name returns the service name (e.g. "Twenty CRM")
	Name() string
}

// Target defines the write and query surface of the target CRM (Attio).
type Target interface {
	// ListObjects lists the objects configured in the target workspace.
	ListObjects(ctx context.Context) ([]TargetObject, error)

	// QueryRecords fetches every record of an object type, paged by
	// limit/offset and sorted by creation time ascending.
	QueryRecords(ctx context.Context, object string) ([]TargetRecord, error)

	// GetRecord fetches one record as raw JSON for inspection.
	GetRecord(ctx context.Context, object, recordID string) (map[string]any, error)

	// CreateRecord creates a record and returns its target-assigned id.
	CreateRecord(ctx context.Context, object string, payload *models.TargetPayload) (string, error)

	// UpsertRecord creates or updates a record matched server-side on the
	// given attribute, returning the target-assigned id.
	UpsertRecord(ctx context.Context, object, matchingAttribute string, payload *models.TargetPayload) (string, error)

	// UpdateRecord partially updates a record's values.
	UpdateRecord(ctx context.Context, object, recordID string, values map[string]any) error

	// DeleteRecord removes a record.
	DeleteRecord(ctx context.Context, object, recordID string) error

	// Name returns the service name (e.g. "Attio CRM")
	Name() string
}

// TargetObject describes one object type in the target workspace.
type TargetObject struct {
	APISlug      string `json:"api_slug"`
	ObjectID     string `json:"object_id"`
	SingularNoun string `json:"singular_noun"`
	PluralNoun   string `json:"plural_noun"`
}
