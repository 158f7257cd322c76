package interview

// Status is the lifecycle state of an interview attempt.
// Transitions are forward-only: PENDING -> IN_PROGRESS -> COMPLETED.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// rank orders statuses for the monotonic state machine. Unknown statuses
// rank below PENDING so they can never overwrite a valid state.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	}
	return 0
}

// Origin records where an attempt's identifier came from: generated
// internally or supplied by the roster. Both kinds live in the same
// registry; origin is metadata, not a separate table.
type Origin string

const (
	OriginInternal Origin = "internal"
	OriginExternal Origin = "external"
)

// Segment is one uploaded media chunk of an attempt's recording.
type Segment struct {
	URL string `json:"url"`
	// UploadedAt is epoch milliseconds, assigned by the server when it
	// accepts the chunk. Never client-supplied.
	UploadedAt int64 `json:"uploadedAt"`
}

// Attempt is one interview session's tracked lifecycle record.
// Segments are kept in append order; chronological ordering happens at
// playlist build time.
type Attempt struct {
	ID            string    `json:"id"`
	CandidateName string    `json:"candidateName"`
	JobTitle      string    `json:"jobTitle"`
	Status        Status    `json:"status"`
	VideoPath     string    `json:"videoPath,omitempty"`
	Segments      []Segment `json:"segments"`

	// Managed by the registry (not exposed in the API).
	Origin    Origin `json:"-"`
	EgressID  string `json:"-"` // active recording egress, empty when none
	CreatedAt int64  `json:"-"` // epoch milliseconds
}

// RosterRecord is the external roster authority's view of a candidate.
// The first line of JobDescription is treated as the job title.
type RosterRecord struct {
	CandidateID    string
	Name           string
	JobDescription string
}
