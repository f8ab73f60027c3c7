package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/shared"
)

const queryPageSize = 1000

// upsertedSentinel stands in for a record id when the API accepts a write
// but responds without one.
const upsertedSentinel = "upserted"

// TargetRecord is an Attio record as returned by the records query endpoint.
type TargetRecord struct {
	ID struct {
		RecordID string `json:"record_id"`
	} `json:"id"`
	Values    map[string][]map[string]any `json:"values"`
	CreatedAt time.Time                   `json:"created_at"`
}

// AttioService writes and queries records in an Attio CRM workspace.
type AttioService struct {
	client *Client
	logger *log.Logger
}

// NewAttioService builds the target service from config.
func NewAttioService(config *shared.Config, logger *log.Logger) *AttioService {
	timeout := time.Duration(config.Migration.RequestTimeout) * time.Second
	client := NewClient("attio", config.Credentials.Attio.BaseURL, config.Credentials.Attio.APIToken,
		timeout, config.Migration.MaxRetries, logger)
	return &AttioService{client: client, logger: logger}
}

func (s *AttioService) Name() string {
	return "Attio CRM"
}

// ListObjects lists the object types configured in the workspace.
func (s *AttioService) ListObjects(ctx context.Context) ([]TargetObject, error) {
	resp, err := s.client.Get(ctx, "/objects", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	var decoded struct {
		Data []struct {
			ID struct {
				ObjectID string `json:"object_id"`
			} `json:"id"`
			APISlug      string `json:"api_slug"`
			SingularNoun string `json:"singular_noun"`
			PluralNoun   string `json:"plural_noun"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&decoded); err != nil {
		return nil, err
	}

	objects := make([]TargetObject, 0, len(decoded.Data))
	for _, obj := range decoded.Data {
		objects = append(objects, TargetObject{
			APISlug:      obj.APISlug,
			ObjectID:     obj.ID.ObjectID,
			SingularNoun: obj.SingularNoun,
			PluralNoun:   obj.PluralNoun,
		})
	}
	return objects, nil
}

// QueryRecords pages through every record of an object type and returns
// them sorted by creation time ascending.
func (s *AttioService) QueryRecords(ctx context.Context, object string) ([]TargetRecord, error) {
	var records []TargetRecord
	offset := 0

	for {
		body := map[string]any{"limit": queryPageSize, "offset": offset}
		resp, err := s.client.Post(ctx, "/objects/"+object+"/records/query", body)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s records at offset %d: %w", object, offset, err)
		}

		var decoded struct {
			Data []TargetRecord `json:"data"`
		}
		if err := resp.DecodeJSON(&decoded); err != nil {
			return nil, err
		}

		records = append(records, decoded.Data...)
		if len(decoded.Data) < queryPageSize {
			break
		}
		offset += queryPageSize
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// GetRecord fetches a single record as raw JSON.
func (s *AttioService) GetRecord(ctx context.Context, object, recordID string) (map[string]any, error) {
	resp, err := s.client.Get(ctx, "/objects/"+object+"/records/"+recordID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrRecordNotFound, object, recordID)
	}
	return resp.JSONData, nil
}

// CreateRecord creates a new record, returning its id.
func (s *AttioService) CreateRecord(ctx context.Context, object string, payload *models.TargetPayload) (string, error) {
	body := map[string]any{"data": map[string]any{"values": payload.Values}}
	resp, err := s.client.Post(ctx, "/objects/"+object+"/records", body)
	if err != nil {
		return "", err
	}
	return recordID(resp), nil
}

// UpsertRecord creates or updates a record, matched server-side on the
// given attribute.
func (s *AttioService) UpsertRecord(ctx context.Context, object, matchingAttribute string, payload *models.TargetPayload) (string, error) {
	body := map[string]any{"data": map[string]any{"values": payload.Values}}
	params := url.Values{}
	params.Set("matching_attribute", matchingAttribute)
	resp, err := s.client.Put(ctx, "/objects/"+object+"/records", body, params)
	if err != nil {
		return "", err
	}
	return recordID(resp), nil
}

// UpdateRecord partially updates a record's values.
func (s *AttioService) UpdateRecord(ctx context.Context, object, recordID string, values map[string]any) error {
	body := map[string]any{"data": map[string]any{"values": values}}
	_, err := s.client.Patch(ctx, "/objects/"+object+"/records/"+recordID, body)
	return err
}

// DeleteRecord removes a record.
func (s *AttioService) DeleteRecord(ctx context.Context, object, recordID string) error {
	_, err := s.client.Delete(ctx, "/objects/"+object+"/records/"+recordID)
	return err
}

// recordID digs data.id.record_id out of a write response, falling back to
// a sentinel when the shape is missing.
func recordID(resp *APIResponse) string {
	data, ok := resp.JSONData["data"].(map[string]any)
	if !ok {
		return upsertedSentinel
	}
	id, ok := data["id"].(map[string]any)
	if !ok {
		return upsertedSentinel
	}
	recordID, ok := id["record_id"].(string)
	if !ok || recordID == "" {
		return upsertedSentinel
	}
	return recordID
}

// AttributeValue returns the first value of an attribute under the given
// key, or the empty string.
func (r TargetRecord) AttributeValue(attribute, key string) string {
	entries := r.Values[attribute]
	if len(entries) == 0 {
		return ""
	}
	value, _ := entries[0][key].(string)
	return value
}

// SummarizePerson reduces a person record to the fields duplicate
// detection and reporting need. Emails are lowercased.
func SummarizePerson(record TargetRecord) models.RecordSummary {
	summary := models.RecordSummary{
		ID:        record.ID.RecordID,
		CreatedAt: record.CreatedAt,
	}

	for _, entry := range record.Values["name"] {
		if full, ok := entry["full_name"].(string); ok && full != "" {
			summary.Name = full
			break
		}
	}

	for _, entry := range record.Values["email_addresses"] {
		if email, ok := entry["email_address"].(string); ok && email != "" {
			summary.Emails = append(summary.Emails, strings.ToLower(email))
		}
	}

	return summary
}

// SummarizeCompany reduces a company record to the fields duplicate
// detection and merging need. Domains are lowercased.
func SummarizeCompany(record TargetRecord) models.RecordSummary {
	summary := models.RecordSummary{
		ID:        record.ID.RecordID,
		CreatedAt: record.CreatedAt,
	}

	for _, entry := range record.Values["name"] {
		if name, ok := entry["value"].(string); ok && name != "" {
			summary.Name = name
			break
		}
	}

	for _, entry := range record.Values["domains"] {
		if domain, ok := entry["domain"].(string); ok && domain != "" {
			summary.Domains = append(summary.Domains, strings.ToLower(domain))
		}
	}

	return summary
}
