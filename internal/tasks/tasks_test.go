package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
)

// mockSource returns canned flat records.
type mockSource struct {
	records    []models.FlatRecord
	extractErr error
}

func (m *mockSource) Name() string { return "Mock Source" }

func (m *mockSource) AvailableObjects(ctx context.Context) ([]string, error) {
	return []string{"people", "companies"}, nil
}

func (m *mockSource) ExtractRecords(ctx context.Context, object string) ([]models.FlatRecord, error) {
	return m.records, m.extractErr
}

// mockTarget records every write it receives.
type mockTarget struct {
	mu      sync.Mutex
	upserts []string
	creates []string
	updates []string
	deletes []string
	records []services.TargetRecord
	failOn  map[string]error
	nextID  int
}

func (m *mockTarget) Name() string { return "Mock Target" }

func (m *mockTarget) ListObjects(ctx context.Context) ([]services.TargetObject, error) {
	return nil, nil
}

func (m *mockTarget) QueryRecords(ctx context.Context, object string) ([]services.TargetRecord, error) {
	return m.records, nil
}

func (m *mockTarget) GetRecord(ctx context.Context, object, recordID string) (map[string]any, error) {
	return nil, shared.ErrRecordNotFound
}

func (m *mockTarget) CreateRecord(ctx context.Context, object string, payload *models.TargetPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("created-%d", m.nextID)
	m.creates = append(m.creates, id)
	return id, nil
}

func (m *mockTarget) UpsertRecord(ctx context.Context, object, attribute string, payload *models.TargetPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := fmt.Sprintf("upserted-%d", m.nextID)
	m.upserts = append(m.upserts, attribute)
	return id, nil
}

func (m *mockTarget) UpdateRecord(ctx context.Context, object, recordID string, values map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["update:"+recordID]; err != nil {
		return err
	}
	m.updates = append(m.updates, recordID)
	return nil
}

func (m *mockTarget) DeleteRecord(ctx context.Context, object, recordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["delete:"+recordID]; err != nil {
		return err
	}
	m.deletes = append(m.deletes, recordID)
	return nil
}

func (m *mockTarget) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.creates) + len(m.upserts) + len(m.updates) + len(m.deletes)
}

// mockStore is an in-memory run ledger.
type mockStore struct {
	runs      []*models.Run
	results   map[string][]models.MigrationResult
	succeeded map[string]bool
}

func newMockStore() *mockStore {
	return &mockStore{results: make(map[string][]models.MigrationResult)}
}

func (s *mockStore) CreateRun(run *models.Run) error { s.runs = append(s.runs, run); return nil }

func (s *mockStore) AppendResult(runID string, seq int, result models.MigrationResult) error {
	s.results[runID] = append(s.results[runID], result)
	return nil
}

func (s *mockStore) FinishRun(run *models.Run) error { return nil }

func (s *mockStore) SucceededSourceIDs(runID string) (map[string]bool, error) {
	return s.succeeded, nil
}

func personRecord(id, name, email string) models.FlatRecord {
	return models.FlatRecord{"id": id, "name_full": name, "email_primary": email}
}

func testEngine(source services.Source, target services.Target, store RunStore) *MigrationEngine {
	return NewMigrationEngine(source, target, store, shared.NewLogger(io.Discard))
}

func TestMigrationEngineRun(t *testing.T) {
	opts := MigrationOpts{SourceObject: "people", RateLimit: 1000}

	t.Run("upserts records carrying the natural key", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			personRecord("p1", "Ada Lovelace", "ada@example.com"),
			personRecord("p2", "Grace Hopper", "grace@example.com"),
		}}
		target := &mockTarget{}

		report, err := testEngine(source, target, nil).Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Run.SuccessCount != 2 {
			t.Errorf("success = %d, want 2", report.Run.SuccessCount)
		}
		if len(target.upserts) != 2 || target.upserts[0] != "email_addresses" {
			t.Errorf("upserts = %v, want two matched on email_addresses", target.upserts)
		}
		if len(target.creates) != 0 {
			t.Errorf("creates = %v, want none", target.creates)
		}
	})

	t.Run("creates records without the natural key", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			{"id": "p1", "name_full": "Ada Lovelace"},
		}}
		target := &mockTarget{}

		report, err := testEngine(source, target, nil).Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Run.SuccessCount != 1 {
			t.Errorf("success = %d, want 1", report.Run.SuccessCount)
		}
		if len(target.creates) != 1 || len(target.upserts) != 0 {
			t.Errorf("creates = %v, upserts = %v", target.creates, target.upserts)
		}
	})

	t.Run("dry run reports synthetic successes without touching the target", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			personRecord("p1", "Ada Lovelace", "ada@example.com"),
			personRecord("p2", "Grace Hopper", "grace@example.com"),
		}}
		target := &mockTarget{}
		dryOpts := opts
		dryOpts.DryRun = true

		report, err := testEngine(source, target, nil).Run(context.Background(), nil, dryOpts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target.writeCount() != 0 {
			t.Errorf("target received %d writes, want 0", target.writeCount())
		}
		if report.Run.SuccessCount != 2 {
			t.Errorf("success = %d, want one synthetic success per record", report.Run.SuccessCount)
		}
		for _, result := range report.Results {
			if result.Status != models.StatusSuccess || result.TargetID != "dry-run-id" {
				t.Errorf("result = %+v, want success with the dry-run-id placeholder", result)
			}
			if result.Payload == nil {
				t.Errorf("result %s should carry the encoded payload", result.SourceID)
			}
		}
	})

	t.Run("skips records with no mapped values", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			{"id": "p1", "unmapped": "value"},
		}}
		target := &mockTarget{}

		report, err := testEngine(source, target, nil).Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Run.SkippedCount != 1 || target.writeCount() != 0 {
			t.Errorf("skipped = %d, writes = %d", report.Run.SkippedCount, target.writeCount())
		}
	})

	t.Run("continues with partial results when extraction truncates", func(t *testing.T) {
		source := &mockSource{
			records:    []models.FlatRecord{personRecord("p1", "Ada Lovelace", "ada@example.com")},
			extractErr: errors.New("page 3 failed"),
		}
		target := &mockTarget{}

		report, err := testEngine(source, target, nil).Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !report.Truncated {
			t.Error("report should flag the truncated extraction")
		}
		if report.Run.SuccessCount != 1 {
			t.Errorf("success = %d, want 1", report.Run.SuccessCount)
		}
	})

	t.Run("resume skips previously migrated records", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			personRecord("p1", "Ada Lovelace", "ada@example.com"),
			personRecord("p2", "Grace Hopper", "grace@example.com"),
		}}
		target := &mockTarget{}
		store := newMockStore()
		store.succeeded = map[string]bool{"p1": true}
		resumeOpts := opts
		resumeOpts.ResumeRunID = "prior-run"

		report, err := testEngine(source, target, store).Run(context.Background(), nil, resumeOpts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Run.SuccessCount != 1 || report.Run.SkippedCount != 1 {
			t.Errorf("success = %d skipped = %d, want 1 and 1", report.Run.SuccessCount, report.Run.SkippedCount)
		}
		if target.writeCount() != 1 {
			t.Errorf("writes = %d, want 1", target.writeCount())
		}
	})

	t.Run("resume skips flow through the worker pool", func(t *testing.T) {
		const total = 40
		records := make([]models.FlatRecord, total)
		succeeded := make(map[string]bool)
		for i := range records {
			id := fmt.Sprintf("p%d", i)
			records[i] = personRecord(id, "Ada Lovelace", id+"@example.com")
			if i%2 == 0 {
				succeeded[id] = true
			}
		}
		source := &mockSource{records: records}
		target := &mockTarget{}
		store := newMockStore()
		store.succeeded = succeeded
		resumeOpts := opts
		resumeOpts.ResumeRunID = "prior-run"
		resumeOpts.NumWorkers = 4

		report, err := testEngine(source, target, store).Run(context.Background(), nil, resumeOpts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Results) != total {
			t.Fatalf("results = %d, want %d", len(report.Results), total)
		}
		if report.Run.SuccessCount != 20 || report.Run.SkippedCount != 20 {
			t.Errorf("success = %d skipped = %d, want 20 and 20", report.Run.SuccessCount, report.Run.SkippedCount)
		}
		if target.writeCount() != 20 {
			t.Errorf("writes = %d, want 20", target.writeCount())
		}
	})

	t.Run("cancelled context returns cleanly during a resumed run", func(t *testing.T) {
		records := make([]models.FlatRecord, 10)
		succeeded := make(map[string]bool)
		for i := range records {
			id := fmt.Sprintf("p%d", i)
			records[i] = personRecord(id, "Ada Lovelace", id+"@example.com")
			succeeded[id] = true
		}
		source := &mockSource{records: records}
		store := newMockStore()
		store.succeeded = succeeded
		resumeOpts := opts
		resumeOpts.ResumeRunID = "prior-run"
		resumeOpts.NumWorkers = 4
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := testEngine(source, &mockTarget{}, store).Run(ctx, nil, resumeOpts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Run == nil {
			t.Fatal("report should still carry the run")
		}
	})

	t.Run("persists results to the run store", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			personRecord("p1", "Ada Lovelace", "ada@example.com"),
		}}
		store := newMockStore()

		report, err := testEngine(source, &mockTarget{}, store).Run(context.Background(), nil, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(store.runs) != 1 {
			t.Fatalf("runs = %d, want 1", len(store.runs))
		}
		if got := len(store.results[report.Run.ID]); got != 1 {
			t.Errorf("stored results = %d, want 1", got)
		}
	})

	t.Run("filter narrows the input", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			personRecord("p1", "Ada Lovelace", "ada@example.com"),
			personRecord("p2", "Grace Hopper", "grace@navy.mil"),
		}}
		target := &mockTarget{}
		filterOpts := opts
		filterOpts.Filter = "email_primary=example.com"

		report, err := testEngine(source, target, nil).Run(context.Background(), nil, filterOpts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Extracted != 1 || report.Run.SuccessCount != 1 {
			t.Errorf("extracted = %d success = %d, want 1 and 1", report.Extracted, report.Run.SuccessCount)
		}
	})

	t.Run("rejects a missing source object", func(t *testing.T) {
		_, err := testEngine(&mockSource{}, &mockTarget{}, nil).Run(context.Background(), nil, MigrationOpts{})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("error = %v, want ErrMissingArgument", err)
		}
	})

	t.Run("emits progress updates", func(t *testing.T) {
		source := &mockSource{records: []models.FlatRecord{
			personRecord("p1", "Ada Lovelace", "ada@example.com"),
		}}
		prog := make(chan ProgressUpdate, 32)

		_, err := testEngine(source, &mockTarget{}, nil).Run(context.Background(), prog, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		close(prog)

		phases := make(map[Phase]bool)
		for update := range prog {
			phases[update.Phase] = true
		}
		if !phases[Extract] || !phases[Load] {
			t.Errorf("phases = %v, want extract and load", phases)
		}
	})
}

func TestFilterRecords(t *testing.T) {
	records := []models.FlatRecord{
		{"id": "a", "city": "Berlin"},
		{"id": "b", "city": "London"},
	}

	t.Run("matches case-insensitively", func(t *testing.T) {
		kept := filterRecords(records, "city=berlin")
		if len(kept) != 1 || kept[0].ID() != "a" {
			t.Errorf("kept = %v", kept)
		}
	})

	t.Run("malformed filter keeps everything", func(t *testing.T) {
		if kept := filterRecords(records, "nonsense"); len(kept) != 2 {
			t.Errorf("kept = %d, want 2", len(kept))
		}
		if kept := filterRecords(records, ""); len(kept) != 2 {
			t.Errorf("kept = %d, want 2", len(kept))
		}
	})
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		Extract:          "extract",
		Load:             "load",
		DetectDuplicates: "detect_duplicates",
		Merge:            "merge",
		Phase(99):        "",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
