package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/crmx/internal/shared"
)

func TestResolve(t *testing.T) {
	t.Run("returns builtin people mapping", func(t *testing.T) {
		mapping, err := Resolve("people", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, ok := mapping.TargetOf("email_primary"); !ok || got != "email_addresses" {
			t.Errorf("email_primary maps to %q, want email_addresses", got)
		}
	})

	t.Run("returns builtin companies mapping", func(t *testing.T) {
		mapping, err := Resolve("companies", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got, ok := mapping.TargetOf("domain_url"); !ok || got != "domains" {
			t.Errorf("domain_url maps to %q, want domains", got)
		}
	})

	t.Run("fails for unknown objects without a file", func(t *testing.T) {
		if _, err := Resolve("widgets", ""); !errors.Is(err, shared.ErrNoMapping) {
			t.Errorf("error = %v, want ErrNoMapping", err)
		}
	})

	t.Run("file takes precedence over builtins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mapping.json")
		os.WriteFile(path, []byte(`{"people": {"custom_field": "custom_target"}}`), 0o644)

		mapping, err := Resolve("people", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		target, ok := mapping.TargetOf("custom_field")
		if len(mapping) != 1 || !ok || target != "custom_target" {
			t.Errorf("mapping = %v", mapping)
		}
	})
}

func TestLoadMappingFile(t *testing.T) {
	t.Run("accepts a flat table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "flat.json")
		os.WriteFile(path, []byte(`{"a": "b"}`), 0o644)

		mapping, err := LoadMappingFile(path, "widgets")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target, ok := mapping.TargetOf("a"); !ok || target != "b" {
			t.Errorf("mapping = %v", mapping)
		}
	})

	t.Run("rejects a per-object table missing the object", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "objects.json")
		os.WriteFile(path, []byte(`{"people": {"a": "b"}}`), 0o644)

		if _, err := LoadMappingFile(path, "widgets"); !errors.Is(err, shared.ErrNoMapping) {
			t.Errorf("error = %v, want ErrNoMapping", err)
		}
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte(`[1, 2]`), 0o644)

		if _, err := LoadMappingFile(path, "widgets"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("fails on a missing file", func(t *testing.T) {
		if _, err := LoadMappingFile("/nope/mapping.json", "people"); err == nil {
			t.Error("expected an error")
		}
	})
}
