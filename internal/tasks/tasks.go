// package tasks implements record migration operations between CRM services.
//
// The core abstraction is MigrationEngine, which orchestrates extraction,
// field mapping, payload encoding, and upserts into the target. Operations
// emit progress updates via channels for non-blocking status reporting to
// CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/mapping"
	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
	"golang.org/x/time/rate"
)

// RunStore persists per-run and per-record outcomes so interrupted runs can
// be resumed and inspected later. A nil store disables the ledger.
type RunStore interface {
	CreateRun(run *models.Run) error
	AppendResult(runID string, seq int, result models.MigrationResult) error
	FinishRun(run *models.Run) error
	SucceededSourceIDs(runID string) (map[string]bool, error)
}

// MigrationOpts contains configuration for a migration run.
type MigrationOpts struct {
	SourceObject string  // Collection to extract from the source
	TargetObject string  // Object type to write in the target (defaults to SourceObject)
	MappingFile  string  // Optional JSON mapping table overriding the builtins
	Filter       string  // Optional key=value substring filter on flat records
	DryRun       bool    // Encode and report without writing to the target
	ResumeRunID  string  // Skip records a previous run already migrated
	NumWorkers   int     // Concurrent workers (default: 1, max: 10)
	RateLimit    float64 // Requests per second (default: 5)
}

// MigrationReport contains all data from a full migration run.
type MigrationReport struct {
	Run       *models.Run              // Run metadata and counters
	Results   []models.MigrationResult // Per-record outcomes in completion order
	Extracted int                      // Records extracted from the source
	Truncated bool                     // Extraction ended early on an error
}

// matchingAttributes holds the natural-key attribute per target object. A
// record whose payload carries its object's attribute is upserted, matched
// server-side on it; anything else is created outright.
var matchingAttributes = map[string]string{
	"people":    "email_addresses",
	"companies": "domains",
}

// MigrationEngine moves records from a source CRM into a target CRM.
type MigrationEngine struct {
	source services.Source
	target services.Target
	store  RunStore
	logger *log.Logger
}

// NewMigrationEngine builds an engine. store may be nil.
func NewMigrationEngine(source services.Source, target services.Target, store RunStore, logger *log.Logger) *MigrationEngine {
	return &MigrationEngine{source: source, target: target, store: store, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
//
// Drops the update when the channel is full or nil.
func (e *MigrationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes a full migration of one collection.
//
// Extraction is best-effort: a mid-pagination failure truncates the input
// rather than aborting, and the records already fetched are still migrated.
// Records are written by a worker pool paced by a shared rate limiter.
func (e *MigrationEngine) Run(ctx context.Context, prog chan<- ProgressUpdate, opts MigrationOpts) (*MigrationReport, error) {
	if e.source == nil || e.target == nil {
		return nil, fmt.Errorf("%w: services not initialized", shared.ErrServiceUnavailable)
	}
	if opts.SourceObject == "" {
		return nil, fmt.Errorf("%w: source object required", shared.ErrMissingArgument)
	}
	if opts.TargetObject == "" {
		opts.TargetObject = opts.SourceObject
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	fieldMapping, err := mapping.Resolve(opts.TargetObject, opts.MappingFile)
	if err != nil {
		return nil, err
	}

	e.sendProgress(prog, extractUpdate(1, 1, opts.SourceObject, e.source.Name()))
	records, extractErr := e.source.ExtractRecords(ctx, opts.SourceObject)
	if extractErr != nil {
		e.logger.Warn("extraction truncated, continuing with partial results",
			"object", opts.SourceObject, "records", len(records), "error", extractErr)
	}
	e.sendProgress(prog, extractedUpdate(len(records), opts.SourceObject))

	records = filterRecords(records, opts.Filter)

	done, err := e.resumeSet(opts.ResumeRunID)
	if err != nil {
		return nil, err
	}

	run := &models.Run{
		ID:           shared.GenerateID(),
		SourceObject: opts.SourceObject,
		TargetObject: opts.TargetObject,
		DryRun:       opts.DryRun,
		StartedAt:    time.Now().UTC(),
	}
	if e.store != nil {
		if err := e.store.CreateRun(run); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
	}

	report := &MigrationReport{
		Run:       run,
		Results:   make([]models.MigrationResult, 0, len(records)),
		Extracted: len(records),
		Truncated: extractErr != nil,
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan migrationJob, len(records))
	results := make(chan models.MigrationResult, len(records))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.migrateWorker(ctx, &wg, limiter, opts, fieldMapping, jobs, results)
	}

	total := len(records)
	go func() {
		defer close(jobs)
		for i, record := range records {
			select {
			case <-ctx.Done():
				return
			default:
			}
			sourceID := record.ID()
			resumed := done[sourceID]
			if !resumed {
				e.sendProgress(prog, loadUpdate(i+1, total, sourceID))
			}
			// Only workers send on results, so closing it after the
			// pool drains cannot race with the feeder.
			jobs <- migrationJob{record: record, resumed: resumed}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for result := range results {
		completed++
		report.Results = append(report.Results, result)

		switch result.Status {
		case models.StatusSuccess:
			run.SuccessCount++
			e.sendProgress(prog, loadedUpdate(completed, total, result.SourceID, result.TargetID))
		case models.StatusFailure:
			run.FailureCount++
			e.sendProgress(prog, loadFailedUpdate(completed, total, result.SourceID, fmt.Errorf("%s", result.Reason)))
		case models.StatusSkipped:
			run.SkippedCount++
		}

		if e.store != nil {
			if err := e.store.AppendResult(run.ID, completed, result); err != nil {
				e.logger.Warn("failed to record result", "run", run.ID, "source_id", result.SourceID, "error", err)
			}
		}
	}

	run.FinishedAt = time.Now().UTC()
	if e.store != nil {
		if err := e.store.FinishRun(run); err != nil {
			e.logger.Warn("failed to finalize run record", "run", run.ID, "error", err)
		}
	}

	return report, nil
}

type migrationJob struct {
	record  models.FlatRecord
	resumed bool
}

// migrateWorker encodes and writes records from the jobs channel.
func (e *MigrationEngine) migrateWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	opts MigrationOpts,
	fieldMapping models.FieldMapping,
	jobs <-chan migrationJob,
	results chan<- models.MigrationResult,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if job.resumed {
			results <- models.Skipped(job.record.ID(), "already migrated in resumed run")
			continue
		}
		results <- e.migrateRecord(ctx, limiter, opts, fieldMapping, job.record)
	}
}

// migrateRecord encodes one record and writes it to the target. Records
// whose payload carries the object's natural key are upserted, the rest
// are created. Dry runs stop after encoding and report a synthetic success
// carrying the payload that would have been sent.
func (e *MigrationEngine) migrateRecord(
	ctx context.Context,
	limiter *rate.Limiter,
	opts MigrationOpts,
	fieldMapping models.FieldMapping,
	record models.FlatRecord,
) models.MigrationResult {
	sourceID := record.ID()

	payload := mapping.BuildPayload(opts.TargetObject, record, fieldMapping)
	if len(payload.Values) == 0 {
		return models.Skipped(sourceID, "no mapped fields with values")
	}

	if opts.DryRun {
		return models.Succeeded(sourceID, "dry-run-id", payload)
	}

	if err := limiter.Wait(ctx); err != nil {
		return models.Failed(sourceID, err.Error(), payload)
	}

	attribute := matchingAttributes[opts.TargetObject]
	var targetID string
	var err error
	if attribute != "" && payload.Has(attribute) {
		targetID, err = e.target.UpsertRecord(ctx, opts.TargetObject, attribute, payload)
	} else {
		targetID, err = e.target.CreateRecord(ctx, opts.TargetObject, payload)
	}
	if err != nil {
		return models.Failed(sourceID, err.Error(), payload)
	}

	return models.Succeeded(sourceID, targetID, payload)
}

// resumeSet loads the source ids a previous run already migrated.
func (e *MigrationEngine) resumeSet(runID string) (map[string]bool, error) {
	if runID == "" {
		return nil, nil
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: resume requires the run database", shared.ErrInvalidArgument)
	}
	done, err := e.store.SucceededSourceIDs(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resumed run %s: %w", runID, err)
	}
	return done, nil
}

// filterRecords keeps records whose flat field contains the filter value.
// The filter has the form key=value; a malformed filter keeps everything.
func filterRecords(records []models.FlatRecord, filter string) []models.FlatRecord {
	key, value, ok := strings.Cut(filter, "=")
	if !ok || key == "" {
		return records
	}

	kept := make([]models.FlatRecord, 0, len(records))
	for _, record := range records {
		text, _ := record.Text(key)
		if strings.Contains(strings.ToLower(text), strings.ToLower(value)) {
			kept = append(kept, record)
		}
	}
	return kept
}
