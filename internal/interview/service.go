package interview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrUploadFailed is returned when the object store rejects a write. The
// attempt's state is left untouched, so the caller may retry the same
// chunk.
var ErrUploadFailed = errors.New("upload failed")

// ObjectStore puts blobs by key and returns a stable public URL for each
// stored object. Implementations handle their own durability and
// concurrency.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (url string, err error)
}

// SessionBroker creates realtime speech sessions for the interview agent
// and returns an ephemeral client token.
type SessionBroker interface {
	CreateSession(ctx context.Context, instructions string) (token string, err error)
}

// DefaultUploadTimeout bounds a single object-store write.
const DefaultUploadTimeout = 30 * time.Second

// Service is the public-facing ingestion orchestrator: it validates
// input, resolves attempts through the registry, pushes media to the
// object store, rebuilds the playlist after each append, and drives the
// attempt lifecycle.
type Service struct {
	registry      *Registry
	objects       ObjectStore
	recorder      Recorder
	broker        SessionBroker
	uploadTimeout time.Duration
}

// NewService wires a Service. recorder and broker may be nil when the
// corresponding operations are not exposed (e.g. in tests); an
// uploadTimeout <= 0 falls back to DefaultUploadTimeout.
func NewService(registry *Registry, objects ObjectStore, recorder Recorder, broker SessionBroker, uploadTimeout time.Duration) *Service {
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	return &Service{
		registry:      registry,
		objects:       objects,
		recorder:      recorder,
		broker:        broker,
		uploadTimeout: uploadTimeout,
	}
}

// UploadResult is the outcome of one segment ingestion.
type UploadResult struct {
	SegmentURL    string
	TotalSegments int
	PlaylistURL   string
}

// CreateAttempt materializes a new ad-hoc attempt.
func (s *Service) CreateAttempt(candidateName, jobTitle string) Attempt {
	return s.registry.CreateAttempt(candidateName, jobTitle)
}

// GetAttempt returns a snapshot of the attempt.
func (s *Service) GetAttempt(id string) (Attempt, error) {
	return s.registry.Get(id)
}

// ActiveInterview returns the most recently created ad-hoc attempt.
func (s *Service) ActiveInterview() (Attempt, error) {
	return s.registry.MostRecentInternal()
}

// UploadSegment ingests one device-recorded media chunk for the candidate
// and republishes the playlist. The upload timestamp is taken when the
// server accepts the chunk, before the object-store write. Nothing is
// appended unless the chunk's write succeeds.
func (s *Service) UploadSegment(ctx context.Context, candidateID, filename, contentType string, body io.Reader, size int64) (UploadResult, error) {
	attempt, err := s.registry.GetOrCreateByExternalID(ctx, candidateID)
	if err != nil {
		return UploadResult{}, err
	}

	uploadedAt := time.Now().UnixMilli()
	key := fmt.Sprintf("recordings/%s/%d_%s", candidateID, uploadedAt, filename)

	url, err := s.put(ctx, key, contentType, body, size)
	if err != nil {
		return UploadResult{}, err
	}

	segments, err := s.registry.AppendSegment(attempt.ID, Segment{URL: url, UploadedAt: uploadedAt})
	if err != nil {
		return UploadResult{}, err
	}
	if err := s.registry.UpdateStatus(attempt.ID, StatusInProgress); err != nil {
		return UploadResult{}, err
	}

	playlist := BuildPlaylist(segments)
	playlistKey := fmt.Sprintf("recordings/%s/playlist.m3u8", candidateID)
	playlistURL, err := s.put(ctx, playlistKey, "application/vnd.apple.mpegurl", strings.NewReader(playlist), int64(len(playlist)))
	if err != nil {
		// The segment is committed; the playlist is a pure function of
		// the segment list, so the next successful append republishes a
		// complete manifest.
		return UploadResult{}, err
	}
	if err := s.registry.SetVideoPath(attempt.ID, playlistURL); err != nil {
		return UploadResult{}, err
	}

	return UploadResult{
		SegmentURL:    url,
		TotalSegments: len(segments),
		PlaylistURL:   playlistURL,
	}, nil
}

// UploadFinal stores one complete recording for the candidate, points
// videoPath directly at it (overwriting any playlist URL) and forces the
// attempt to COMPLETED. The segment/playlist mechanism is bypassed.
func (s *Service) UploadFinal(ctx context.Context, candidateID, filename, contentType string, body io.Reader, size int64) (string, error) {
	attempt, err := s.registry.GetOrCreateByExternalID(ctx, candidateID)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("recordings/%s/final_%d_%s", candidateID, time.Now().UnixMilli(), filename)
	url, err := s.put(ctx, key, contentType, body, size)
	if err != nil {
		return "", err
	}

	if err := s.registry.SetVideoPath(attempt.ID, url); err != nil {
		return "", err
	}
	if err := s.registry.UpdateStatus(attempt.ID, StatusCompleted); err != nil {
		return "", err
	}
	return url, nil
}

// ListSegments returns the candidate's segments in append order. Like the
// upload paths it resolves-or-creates the attempt, so a first read can
// materialize a PENDING record; the mobile client flow depends on that.
func (s *Service) ListSegments(ctx context.Context, candidateID string) ([]Segment, error) {
	attempt, err := s.registry.GetOrCreateByExternalID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return attempt.Segments, nil
}

// StartRecording starts a recording egress for the attempt and moves it
// to IN_PROGRESS. Re-invocation returns the existing egress id.
func (s *Service) StartRecording(ctx context.Context, attemptID string) (string, error) {
	attempt, err := s.registry.Get(attemptID)
	if err != nil {
		return "", err
	}
	if attempt.EgressID != "" {
		return attempt.EgressID, nil
	}

	egressID, err := s.recorder.StartEgress(ctx, attemptID)
	if err != nil && !errors.Is(err, ErrAlreadyRecording) {
		return "", err
	}

	bound, err := s.registry.BindEgress(attemptID, egressID)
	if err != nil {
		return "", err
	}
	if bound != egressID {
		// Lost a concurrent start; tear down our egress and report the
		// winner's binding.
		_ = s.recorder.StopEgress(ctx, egressID)
	}
	if err := s.registry.UpdateStatus(attemptID, StatusInProgress); err != nil {
		return "", err
	}
	return bound, nil
}

// StopRecording stops the attempt's egress and moves it to COMPLETED.
// Fails with ErrNoActiveRecording when no egress is bound.
func (s *Service) StopRecording(ctx context.Context, attemptID string) error {
	attempt, err := s.registry.Get(attemptID)
	if err != nil {
		return err
	}
	if attempt.EgressID == "" {
		return ErrNoActiveRecording
	}

	if err := s.recorder.StopEgress(ctx, attempt.EgressID); err != nil {
		return err
	}
	if err := s.registry.ClearEgress(attemptID); err != nil {
		return err
	}
	return s.registry.UpdateStatus(attemptID, StatusCompleted)
}

// CreateRealtimeSession asks the session broker for an ephemeral realtime
// speech token carrying the given interviewer instructions.
func (s *Service) CreateRealtimeSession(ctx context.Context, instructions string) (string, error) {
	return s.broker.CreateSession(ctx, instructions)
}

// put performs one bounded object-store write, classifying failures as
// retryable ErrUploadFailed.
func (s *Service) put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	url, err := s.objects.Put(ctx, key, contentType, body, size)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUploadFailed, key, err)
	}
	return url, nil
}
