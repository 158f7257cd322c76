package interview

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRoster(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.json")
	fixture := `{
		"C-100": {"name": "Asha", "jobDescription": "Mechanical Designer\nGD&T and DFM reviews"},
		"C-200": {"name": "Ravi", "jobDescription": "\n  PCB Designer  \nHigh-speed layout"}
	}`
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	roster, err := NewFileRoster(path)
	if err != nil {
		t.Fatalf("NewFileRoster: %v", err)
	}

	rec, err := roster.Resolve(context.Background(), "C-100")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rec.Name != "Asha" || rec.JobTitle() != "Mechanical Designer" {
		t.Errorf("got name=%q title=%q", rec.Name, rec.JobTitle())
	}

	t.Run("title_skips_blank_lines", func(t *testing.T) {
		rec, err := roster.Resolve(context.Background(), "C-200")
		if err != nil {
			t.Fatal(err)
		}
		if rec.JobTitle() != "PCB Designer" {
			t.Errorf("expected trimmed first non-empty line, got %q", rec.JobTitle())
		}
	})

	t.Run("unknown_candidate", func(t *testing.T) {
		_, err := roster.Resolve(context.Background(), "nope")
		if !errors.Is(err, ErrCandidateNotFound) {
			t.Errorf("expected ErrCandidateNotFound, got %v", err)
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := roster.Resolve(ctx, "C-100")
		if !errors.Is(err, ErrRosterUnavailable) {
			t.Errorf("expected ErrRosterUnavailable, got %v", err)
		}
	})
}

func TestNewFileRoster_missing_file(t *testing.T) {
	if _, err := NewFileRoster(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing roster file")
	}
}

func TestRosterRecord_JobTitle_empty(t *testing.T) {
	rec := RosterRecord{JobDescription: "\n  \n"}
	if rec.JobTitle() != "" {
		t.Errorf("expected empty title, got %q", rec.JobTitle())
	}
}
