package interview

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNoActiveRecording is returned when stopping an attempt that has
	// no egress bound.
	ErrNoActiveRecording = errors.New("no active recording")

	// ErrAlreadyRecording is returned by a Recorder asked to start an
	// egress it already runs for the same attempt.
	ErrAlreadyRecording = errors.New("recording already in progress")
)

// Recorder is the collaborator that captures a live interview room into a
// recording egress. The production recorder lives outside this core; the
// service only needs start/stop.
type Recorder interface {
	StartEgress(ctx context.Context, attemptID string) (egressID string, err error)
	StopEgress(ctx context.Context, egressID string) error
}

// LocalRecorder is an in-process Recorder that mints egress identifiers
// and tracks which ones are live. It stands in for a real media egress in
// local runs and tests.
type LocalRecorder struct {
	mu        sync.Mutex
	byAttempt map[string]string // attemptID -> egressID
	active    map[string]string // egressID -> attemptID
}

// NewLocalRecorder returns an empty LocalRecorder.
func NewLocalRecorder() *LocalRecorder {
	return &LocalRecorder{
		byAttempt: make(map[string]string),
		active:    make(map[string]string),
	}
}

// StartEgress implements Recorder.StartEgress.
func (r *LocalRecorder) StartEgress(ctx context.Context, attemptID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byAttempt[attemptID]; ok {
		return id, ErrAlreadyRecording
	}
	egressID := uuid.NewString()
	r.byAttempt[attemptID] = egressID
	r.active[egressID] = attemptID
	return egressID, nil
}

// StopEgress implements Recorder.StopEgress. Stopping an unknown egress
// is a no-op so that retries after a partial failure stay safe.
func (r *LocalRecorder) StopEgress(ctx context.Context, egressID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	attemptID, ok := r.active[egressID]
	if !ok {
		return nil
	}
	delete(r.active, egressID)
	delete(r.byAttempt, attemptID)
	return nil
}
