// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
)

// MockSource is a test double for [services.Source]
type MockSource struct {
	Records []models.FlatRecord
	Err     error
}

func (m *MockSource) AvailableObjects(ctx context.Context) ([]string, error) {
	return []string{"people", "companies"}, nil
}

func (m *MockSource) ExtractRecords(ctx context.Context, object string) ([]models.FlatRecord, error) {
	return m.Records, m.Err
}

func (m *MockSource) Name() string { return "mock source" }

// MockTarget is a test double for [services.Target]
type MockTarget struct {
	Objects []services.TargetObject
	Records []services.TargetRecord
	Err     error
}

func (m *MockTarget) ListObjects(ctx context.Context) ([]services.TargetObject, error) {
	return m.Objects, m.Err
}

func (m *MockTarget) QueryRecords(ctx context.Context, object string) ([]services.TargetRecord, error) {
	return m.Records, m.Err
}

func (m *MockTarget) GetRecord(ctx context.Context, object, recordID string) (map[string]any, error) {
	return map[string]any{}, m.Err
}

func (m *MockTarget) CreateRecord(ctx context.Context, object string, payload *models.TargetPayload) (string, error) {
	return "created", m.Err
}

func (m *MockTarget) UpsertRecord(ctx context.Context, object, attribute string, payload *models.TargetPayload) (string, error) {
	return "upserted", m.Err
}

func (m *MockTarget) UpdateRecord(ctx context.Context, object, recordID string, values map[string]any) error {
	return m.Err
}

func (m *MockTarget) DeleteRecord(ctx context.Context, object, recordID string) error {
	return m.Err
}

func (m *MockTarget) Name() string { return "mock target" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
