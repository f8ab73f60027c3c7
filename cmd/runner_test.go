package main

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
	tu "github.com/desertthunder/crmx/internal/testing"
	_ "github.com/mattn/go-sqlite3"
	"github.com/urfave/cli/v3"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			twenty := &tu.MockSource{}
			attio := &tu.MockTarget{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Twenty: twenty,
				Attio:  attio,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.twenty != twenty {
				t.Error("expected twenty to be set")
			}
			if runner.attio != attio {
				t.Error("expected attio to be set")
			}
			if runner.engine == nil {
				t.Error("expected engine to be built")
			}
		})

		t.Run("with defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Error("expected default config")
			}
			if runner.logger == nil {
				t.Error("expected default logger")
			}
			if runner.runs != nil {
				t.Error("expected no run repository without a database")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writeJSON(map[string]any{"key": "value"}, false); err != nil {
			t.Fatalf("writeJSON: %v", err)
		}
		if got := output.String(); got != "{\"key\":\"value\"}\n" {
			t.Errorf("output = %q", got)
		}
	})

	t.Run("writeJSON propagates writer failures", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writeJSON(map[string]any{}, false); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("requireTwenty", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if err := runner.requireTwenty(); err == nil {
			t.Error("expected an error without a source service")
		}

		runner = NewRunner(RunnerOpts{Twenty: &tu.MockSource{}})
		if err := runner.requireTwenty(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("requireAttio", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if err := runner.requireAttio(); err == nil {
			t.Error("expected an error without a target service")
		}
	})
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func runCommand(t *testing.T, runner *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "crmx", Commands: runner.register()}
	return app.Run(context.Background(), append([]string{"crmx"}, args...))
}

func TestCommands(t *testing.T) {
	t.Run("twenty objects lists collections", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Twenty: &tu.MockSource{}, Output: output})

		if err := runCommand(t, runner, "twenty", "objects"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "people") {
			t.Errorf("output = %s", output.String())
		}
	})

	t.Run("migrate writes artifacts and records the run", func(t *testing.T) {
		output := &bytes.Buffer{}
		source := &tu.MockSource{Records: []models.FlatRecord{
			{"id": "p1", "name_full": "Ada Lovelace", "email_primary": "ada@example.com"},
		}}
		db := testDB(t)
		runner := NewRunner(RunnerOpts{
			Twenty: source,
			Attio:  &tu.MockTarget{},
			DB:     db,
			Output: output,
		})

		logDir := t.TempDir()
		if err := runCommand(t, runner, "migrate", "--object", "people", "--log-dir", logDir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "Migration Complete") {
			t.Errorf("output = %s", output.String())
		}

		runs, err := runner.runs.ListRuns(0)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 1 || runs[0].SuccessCount != 1 {
			t.Errorf("runs = %+v", runs)
		}

		summaryPath := filepath.Join(logDir, runs[0].ID+"_summary.txt")
		tu.AssertFileExists(t, summaryPath)
		if summary := tu.MustReadFile(t, summaryPath); !strings.Contains(summary, "Succeeded: 1") {
			t.Errorf("summary = %s", summary)
		}
	})

	t.Run("dedupe reports duplicate groups", func(t *testing.T) {
		record := func(id, email string, created time.Time) services.TargetRecord {
			rec := services.TargetRecord{
				Values: map[string][]map[string]any{
					"email_addresses": {{"email_address": email}},
				},
				CreatedAt: created,
			}
			rec.ID.RecordID = id
			return rec
		}
		output := &bytes.Buffer{}
		target := &tu.MockTarget{Records: []services.TargetRecord{
			record("r1", "dup@example.com", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
			record("r2", "dup@example.com", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		}}
		runner := NewRunner(RunnerOpts{Attio: target, Output: output})

		reportPath := t.TempDir() + "/dupes.txt"
		if err := runCommand(t, runner, "dedupe", "--object", "people", "-o", reportPath); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "dup@example.com") {
			t.Errorf("output = %s", output.String())
		}
		tu.AssertFileExists(t, reportPath)
	})

	t.Run("runs list reports an empty ledger", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{DB: testDB(t), Output: output})

		if err := runCommand(t, runner, "runs", "list"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "No runs recorded") {
			t.Errorf("output = %s", output.String())
		}
	})

	t.Run("runs commands fail without the database", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
		if err := runCommand(t, runner, "runs", "list"); err == nil {
			t.Error("expected an error")
		}
	})
}
