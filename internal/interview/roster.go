package interview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrCandidateNotFound is returned by a RosterDirectory when the
	// candidate identifier is unknown. Not retryable.
	ErrCandidateNotFound = errors.New("candidate not found in roster")

	// ErrRosterUnavailable is returned when the roster authority cannot
	// be reached or times out. Callers may retry.
	ErrRosterUnavailable = errors.New("roster unavailable")
)

// RosterDirectory resolves an opaque candidate identifier to display
// metadata. The production authority is an external system of record;
// this service only consumes the interface.
type RosterDirectory interface {
	Resolve(ctx context.Context, candidateID string) (RosterRecord, error)
}

// FileRoster is a RosterDirectory backed by a JSON file mapping candidate
// id to {"name": ..., "jobDescription": ...}. Useful for local runs and
// as the default wiring when no remote authority is configured.
type FileRoster struct {
	records map[string]RosterRecord
}

// NewFileRoster loads the roster fixture at path.
func NewFileRoster(path string) (*FileRoster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var entries map[string]struct {
		Name           string `json:"name"`
		JobDescription string `json:"jobDescription"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}

	records := make(map[string]RosterRecord, len(entries))
	for id, e := range entries {
		records[id] = RosterRecord{
			CandidateID:    id,
			Name:           e.Name,
			JobDescription: e.JobDescription,
		}
	}
	return &FileRoster{records: records}, nil
}

// NewStaticRoster builds a FileRoster-equivalent directory from records
// already in memory.
func NewStaticRoster(records ...RosterRecord) *FileRoster {
	m := make(map[string]RosterRecord, len(records))
	for _, rec := range records {
		m[rec.CandidateID] = rec
	}
	return &FileRoster{records: m}
}

// Resolve implements RosterDirectory.Resolve.
func (r *FileRoster) Resolve(ctx context.Context, candidateID string) (RosterRecord, error) {
	if err := ctx.Err(); err != nil {
		return RosterRecord{}, fmt.Errorf("%w: %v", ErrRosterUnavailable, err)
	}
	rec, ok := r.records[candidateID]
	if !ok {
		return RosterRecord{}, ErrCandidateNotFound
	}
	return rec, nil
}

// JobTitle extracts the display job title from a roster record: the first
// non-empty line of the job description.
func (r RosterRecord) JobTitle() string {
	for _, line := range strings.Split(r.JobDescription, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
