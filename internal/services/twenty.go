package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/shared"
)

// defaultObjects covers the collections a stock Twenty workspace exposes,
// used when the metadata endpoint is unavailable.
var defaultObjects = []string{"people", "companies", "opportunities", "tasks"}

// TwentyService reads records out of a Twenty CRM workspace.
type TwentyService struct {
	client    *Client
	logger    *log.Logger
	batchSize int
	maxPages  int
}

// NewTwentyService builds the source service from config.
func NewTwentyService(config *shared.Config, logger *log.Logger) *TwentyService {
	timeout := time.Duration(config.Migration.RequestTimeout) * time.Second
	client := NewClient("twenty", config.Credentials.Twenty.BaseURL, config.Credentials.Twenty.APIKey,
		timeout, config.Migration.MaxRetries, logger)
	return &TwentyService{
		client:    client,
		logger:    logger,
		batchSize: config.Migration.BatchSize,
		maxPages:  config.Migration.MaxPages,
	}
}

func (s *TwentyService) Name() string {
	return "Twenty CRM"
}

// AvailableObjects lists the workspace's collections from the metadata API,
// falling back to the stock collection names when the endpoint fails.
func (s *TwentyService) AvailableObjects(ctx context.Context) ([]string, error) {
	resp, err := s.client.Get(ctx, "/metadata/objects", nil)
	if err != nil {
		s.logger.Warn("metadata endpoint unavailable, assuming stock objects", "error", err)
		return defaultObjects, nil
	}

	var decoded struct {
		Data struct {
			Objects []struct {
				NamePlural string `json:"namePlural"`
			} `json:"objects"`
		} `json:"data"`
	}
	if err := resp.DecodeJSON(&decoded); err != nil {
		return defaultObjects, nil
	}

	objects := make([]string, 0, len(decoded.Data.Objects))
	for _, obj := range decoded.Data.Objects {
		if obj.NamePlural != "" {
			objects = append(objects, obj.NamePlural)
		}
	}
	if len(objects) == 0 {
		return defaultObjects, nil
	}
	return objects, nil
}

// ExtractRecords walks the collection cursor by cursor, flattening each
// record. On a mid-loop failure the records gathered so far are returned
// alongside the error. A page cap guards against a server that keeps
// echoing cursors.
func (s *TwentyService) ExtractRecords(ctx context.Context, object string) ([]models.FlatRecord, error) {
	var records []models.FlatRecord
	cursor := ""

	for page := 0; ; page++ {
		if s.maxPages > 0 && page >= s.maxPages {
			s.logger.Warn("stopping extraction at page cap", "object", object, "pages", page, "records", len(records))
			return records, nil
		}

		params := url.Values{}
		params.Set("limit", strconv.Itoa(s.batchSize))
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := s.client.Get(ctx, "/"+object, params)
		if err != nil {
			return records, fmt.Errorf("failed to fetch %s page %d: %w", object, page, err)
		}

		batch, err := decodePage(resp, object)
		if err != nil {
			return records, fmt.Errorf("failed to decode %s page %d: %w", object, page, err)
		}
		// An empty batch is terminal even when the server echoes a cursor.
		if len(batch) == 0 {
			return records, nil
		}
		for _, record := range batch {
			records = append(records, Flatten(record))
		}

		cursor = nextCursor(resp)
		if cursor == "" {
			return records, nil
		}
	}
}

// decodePage pulls the record list out of a page response. The data field
// is either a bare list or an object keyed by the collection name.
func decodePage(resp *APIResponse, object string) ([]models.SourceRecord, error) {
	data, ok := resp.JSONData["data"]
	if !ok {
		return nil, fmt.Errorf("response has no data field")
	}

	var items []any
	switch d := data.(type) {
	case []any:
		items = d
	case map[string]any:
		nested, ok := d[object].([]any)
		if !ok {
			return nil, fmt.Errorf("data object has no %s list", object)
		}
		items = nested
	default:
		return nil, fmt.Errorf("unexpected data shape %T", data)
	}

	records := make([]models.SourceRecord, 0, len(items))
	for _, item := range items {
		if record, ok := item.(map[string]any); ok {
			records = append(records, models.SourceRecord(record))
		}
	}
	return records, nil
}

func nextCursor(resp *APIResponse) string {
	meta, ok := resp.JSONData["meta"].(map[string]any)
	if !ok {
		return ""
	}
	cursor, _ := meta["next_cursor"].(string)
	return cursor
}
