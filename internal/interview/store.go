package interview

// Store is the persistence abstraction for attempt records. The default
// implementation is in-memory with process lifetime: initialized empty at
// start, never persisted, fully lost on restart. The Registry routes all
// reads and writes through Store, so a durable backend can be substituted
// without touching the ingestion service.
type Store interface {
	GetAttempt(id string) (*Attempt, bool)
	SetAttempt(a *Attempt)
	ListIDs() []string
}

// InMemoryStore is the in-memory implementation of Store.
type InMemoryStore struct {
	attempts map[string]*Attempt
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		attempts: make(map[string]*Attempt),
	}
}

// GetAttempt implements Store.GetAttempt.
func (s *InMemoryStore) GetAttempt(id string) (*Attempt, bool) {
	a, ok := s.attempts[id]
	return a, ok
}

// SetAttempt implements Store.SetAttempt.
func (s *InMemoryStore) SetAttempt(a *Attempt) {
	s.attempts[a.ID] = a
}

// ListIDs implements Store.ListIDs.
func (s *InMemoryStore) ListIDs() []string {
	ids := make([]string, 0, len(s.attempts))
	for id := range s.attempts {
		ids = append(ids, id)
	}
	return ids
}
