package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrAttemptNotFound is returned when an attempt id is unknown, or
	// when the roster rejects an external candidate identifier.
	ErrAttemptNotFound = errors.New("attempt not found")
)

// Registry is the authoritative table of interview attempts. It holds
// both internally created attempts and roster-derived ones; the origin is
// metadata on the record, not a separate table.
//
// Every mutation of one attempt is serialized through that attempt's own
// mutex, held across the full read-modify-write. Distinct attempts share
// no lock, so concurrent uploads for different candidates never contend.
type Registry struct {
	mu    sync.Mutex // guards store, locks, and id bookkeeping
	store Store
	locks map[string]*sync.Mutex

	roster RosterDirectory

	lastInternalMillis int64
	lastInternalID     string
}

// NewRegistry constructs a registry over an empty in-memory store.
func NewRegistry(roster RosterDirectory) *Registry {
	return NewRegistryWithStore(NewInMemoryStore(), roster)
}

// NewRegistryWithStore constructs a registry over the given Store.
// Useful for tests and for plugging in a different persistence backend.
func NewRegistryWithStore(store Store, roster RosterDirectory) *Registry {
	return &Registry{
		store:  store,
		locks:  make(map[string]*sync.Mutex),
		roster: roster,
	}
}

// lockFor returns the serialization mutex for id, creating it on first
// use. The mutex exists independently of the record so that concurrent
// creation of the same attempt is also serialized.
func (r *Registry) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// withAttempt runs fn with exclusive ownership of the attempt. fn may
// mutate the record in place.
func (r *Registry) withAttempt(id string, fn func(a *Attempt) error) error {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	a, ok := r.store.GetAttempt(id)
	r.mu.Unlock()
	if !ok {
		return ErrAttemptNotFound
	}
	return fn(a)
}

// snapshot returns a copy of the attempt safe to hand out without the
// attempt lock. The segments slice is copied, never shared.
func snapshot(a *Attempt) Attempt {
	c := *a
	c.Segments = append([]Segment(nil), a.Segments...)
	return c
}

// nextInternalIDLocked generates a fresh internal attempt id of the form
// "int-<millis>". Ids are strictly monotonic even when two attempts are
// created within the same millisecond. Caller must hold r.mu.
func (r *Registry) nextInternalIDLocked() string {
	ms := time.Now().UnixMilli()
	if ms <= r.lastInternalMillis {
		ms = r.lastInternalMillis + 1
	}
	r.lastInternalMillis = ms
	return fmt.Sprintf("int-%d", ms)
}

// CreateAttempt materializes a new internally identified attempt with
// status PENDING and an empty segment list. Always succeeds.
func (r *Registry) CreateAttempt(candidateName, jobTitle string) Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	a := &Attempt{
		ID:            r.nextInternalIDLocked(),
		CandidateName: candidateName,
		JobTitle:      jobTitle,
		Status:        StatusPending,
		Segments:      []Segment{},
		Origin:        OriginInternal,
		CreatedAt:     time.Now().UnixMilli(),
	}
	r.store.SetAttempt(a)
	r.lastInternalID = a.ID
	return snapshot(a)
}

// GetOrCreateByExternalID returns the attempt for a roster candidate id,
// materializing it on first contact. The roster is queried at most once
// per id across concurrent callers; after the first success the resolved
// name and title are memoized for the attempt's lifetime. A roster
// rejection maps to ErrAttemptNotFound and leaves no record behind.
func (r *Registry) GetOrCreateByExternalID(ctx context.Context, id string) (Attempt, error) {
	l := r.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	a, ok := r.store.GetAttempt(id)
	r.mu.Unlock()
	if ok {
		return snapshot(a), nil
	}

	rec, err := r.roster.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCandidateNotFound) {
			return Attempt{}, fmt.Errorf("%w: candidate %q", ErrAttemptNotFound, id)
		}
		return Attempt{}, err
	}

	a = &Attempt{
		ID:            id,
		CandidateName: rec.Name,
		JobTitle:      rec.JobTitle(),
		Status:        StatusPending,
		Segments:      []Segment{},
		Origin:        OriginExternal,
		CreatedAt:     time.Now().UnixMilli(),
	}
	r.mu.Lock()
	r.store.SetAttempt(a)
	r.mu.Unlock()
	return snapshot(a), nil
}

// Get returns a snapshot of the attempt or ErrAttemptNotFound.
func (r *Registry) Get(id string) (Attempt, error) {
	var out Attempt
	err := r.withAttempt(id, func(a *Attempt) error {
		out = snapshot(a)
		return nil
	})
	return out, err
}

// UpdateStatus moves the attempt's status forward. Backward transitions
// are no-ops, not errors: once COMPLETED an attempt stays COMPLETED.
func (r *Registry) UpdateStatus(id string, status Status) error {
	return r.withAttempt(id, func(a *Attempt) error {
		if status.rank() > a.Status.rank() {
			a.Status = status
		}
		return nil
	})
}

// SetVideoPath points the attempt at its current playable timeline.
func (r *Registry) SetVideoPath(id, url string) error {
	return r.withAttempt(id, func(a *Attempt) error {
		a.VideoPath = url
		return nil
	})
}

// AppendSegment appends seg to the attempt's segment list and returns the
// full ordered list after the append. Appends are permitted at any
// status, including COMPLETED.
func (r *Registry) AppendSegment(id string, seg Segment) ([]Segment, error) {
	var out []Segment
	err := r.withAttempt(id, func(a *Attempt) error {
		a.Segments = append(a.Segments, seg)
		out = append([]Segment(nil), a.Segments...)
		return nil
	})
	return out, err
}

// BindEgress records egressID as the attempt's active recording egress if
// none is bound, and returns whichever id ended up bound. A caller that
// loses the race gets the winner's id back.
func (r *Registry) BindEgress(id, egressID string) (string, error) {
	var bound string
	err := r.withAttempt(id, func(a *Attempt) error {
		if a.EgressID == "" {
			a.EgressID = egressID
		}
		bound = a.EgressID
		return nil
	})
	return bound, err
}

// ClearEgress removes the attempt's active egress binding.
func (r *Registry) ClearEgress(id string) error {
	return r.withAttempt(id, func(a *Attempt) error {
		a.EgressID = ""
		return nil
	})
}

// MostRecentInternal returns the most recently created internally
// identified attempt, or ErrAttemptNotFound if none exists yet.
func (r *Registry) MostRecentInternal() (Attempt, error) {
	r.mu.Lock()
	id := r.lastInternalID
	r.mu.Unlock()
	if id == "" {
		return Attempt{}, ErrAttemptNotFound
	}
	return r.Get(id)
}

// ActiveAttemptCount returns the number of attempts not yet COMPLETED.
// Used for metrics.
func (r *Registry) ActiveAttemptCount() int {
	r.mu.Lock()
	ids := r.store.ListIDs()
	r.mu.Unlock()

	n := 0
	for _, id := range ids {
		a, err := r.Get(id)
		if err == nil && a.Status != StatusCompleted {
			n++
		}
	}
	return n
}
