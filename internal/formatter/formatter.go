// package formatter writes migration and duplicate-scan artifacts to disk (CSV logs, JSON payload dumps, plain text reports)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/shared"
	"github.com/desertthunder/crmx/internal/tasks"
)

// SuccessesToCSV renders the successful results with columns: SourceID, TargetID
func SuccessesToCSV(results []models.MigrationResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"SourceID", "TargetID"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, result := range results {
		if result.Status != models.StatusSuccess {
			continue
		}
		if err := writer.Write([]string{result.SourceID, result.TargetID}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// FailuresToCSV renders the failed and skipped results with columns: SourceID, Status, Reason
func FailuresToCSV(results []models.MigrationResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"SourceID", "Status", "Reason"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, result := range results {
		if result.Status == models.StatusSuccess {
			continue
		}
		if err := writer.Write([]string{result.SourceID, string(result.Status), result.Reason}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportToText renders a run summary as plain text.
func ReportToText(report *tasks.MigrationReport) []byte {
	var buf bytes.Buffer

	run := report.Run
	buf.WriteString(fmt.Sprintf("Run: %s\n", run.ID))
	buf.WriteString(fmt.Sprintf("Migration: %s -> %s\n", run.SourceObject, run.TargetObject))
	if run.DryRun {
		buf.WriteString("Mode: dry run\n")
	}
	buf.WriteString(fmt.Sprintf("Started: %s\n", run.StartedAt.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("Finished: %s\n\n", run.FinishedAt.Format(time.RFC3339)))

	buf.WriteString(fmt.Sprintf("Extracted: %d", report.Extracted))
	if report.Truncated {
		buf.WriteString(" (extraction truncated by an error)")
	}
	buf.WriteString("\n")
	buf.WriteString(fmt.Sprintf("Succeeded: %d\n", run.SuccessCount))
	buf.WriteString(fmt.Sprintf("Failed:    %d\n", run.FailureCount))
	buf.WriteString(fmt.Sprintf("Skipped:   %d\n", run.SkippedCount))
	buf.WriteString(fmt.Sprintf("Success rate: %.1f%%\n", run.SuccessRate()))

	return buf.Bytes()
}

// PayloadsToJSON renders every result's encoded payload, keyed by source id.
//
// Used by dry runs to show what would have been written.
func PayloadsToJSON(results []models.MigrationResult) ([]byte, error) {
	payloads := make(map[string]any, len(results))
	for _, result := range results {
		if result.Payload != nil {
			payloads[result.SourceID] = result.Payload.Values
		}
	}
	return shared.MarshalJSON(payloads, true)
}

// DuplicatesToText renders a duplicate scan report as plain text.
func DuplicatesToText(report *tasks.DuplicateReport) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Duplicate scan: %s (%d records)\n\n", report.Object, report.Total))

	writeView := func(title string, groups []models.DuplicateGroup) {
		if len(groups) == 0 {
			return
		}
		buf.WriteString(fmt.Sprintf("%s (%d groups)\n", title, len(groups)))
		for _, group := range groups {
			buf.WriteString(fmt.Sprintf("  %s\n", group.Key))
			for _, record := range group.Records {
				name := record.Name
				if name == "" {
					name = "(unnamed)"
				}
				buf.WriteString(fmt.Sprintf("    %s  %s  created %s\n",
					record.ID, name, record.CreatedAt.Format(time.RFC3339)))
			}
		}
		buf.WriteString("\n")
	}

	writeView("By email", report.ByEmail)
	writeView("By domain", report.ByDomain)
	writeView("By name", report.ByName)

	if len(report.Groups()) == 0 {
		buf.WriteString("No duplicates found.\n")
	}
	return buf.Bytes()
}

// MergesToCSV renders merge outcomes with columns: Key, MasterID, Deleted, Status
func MergesToCSV(results []tasks.MergeResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Key", "MasterID", "Deleted", "Status"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, result := range results {
		status := "merged"
		if result.Err != nil {
			status = fmt.Sprintf("aborted: %v", result.Err)
		}
		row := []string{result.Key, result.MasterID, strconv.Itoa(len(result.Deleted)), status}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// RunArtifacts contains the paths of files created by WriteRunArtifacts.
type RunArtifacts struct {
	SummaryFile  string
	SuccessFile  string
	FailureFile  string
	PayloadsFile string
}

// WriteRunArtifacts writes a run's summary, success log, and failure log
// under dir. Dry runs also get a JSON dump of the encoded payloads.
//
// Files are named {run_id}_summary.txt, {run_id}_success.csv,
// {run_id}_errors.csv, and {run_id}_payloads.json.
func WriteRunArtifacts(report *tasks.MigrationReport, dir string) (*RunArtifacts, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	base := filepath.Join(dir, report.Run.ID)
	artifacts := &RunArtifacts{SummaryFile: base + "_summary.txt"}

	if err := os.WriteFile(artifacts.SummaryFile, ReportToText(report), 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}

	successCSV, err := SuccessesToCSV(report.Results)
	if err != nil {
		return nil, err
	}
	artifacts.SuccessFile = base + "_success.csv"
	if err := os.WriteFile(artifacts.SuccessFile, successCSV, 0644); err != nil {
		return nil, fmt.Errorf("failed to write success log: %w", err)
	}

	failureCSV, err := FailuresToCSV(report.Results)
	if err != nil {
		return nil, err
	}
	artifacts.FailureFile = base + "_errors.csv"
	if err := os.WriteFile(artifacts.FailureFile, failureCSV, 0644); err != nil {
		return nil, fmt.Errorf("failed to write error log: %w", err)
	}

	if report.Run.DryRun {
		payloadJSON, err := PayloadsToJSON(report.Results)
		if err != nil {
			return nil, err
		}
		artifacts.PayloadsFile = base + "_payloads.json"
		if err := os.WriteFile(artifacts.PayloadsFile, payloadJSON, 0644); err != nil {
			return nil, fmt.Errorf("failed to write payload dump: %w", err)
		}
	}

	return artifacts, nil
}

// WriteDuplicatesReport writes a duplicate scan report to path, defaulting
// to duplicates_report.txt in the current directory.
func WriteDuplicatesReport(report *tasks.DuplicateReport, path string) (string, error) {
	if path == "" {
		path = "duplicates_report.txt"
	}
	if err := os.WriteFile(path, DuplicatesToText(report), 0644); err != nil {
		return "", fmt.Errorf("failed to write duplicates report: %w", err)
	}
	return path, nil
}
