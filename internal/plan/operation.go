package plan

import "time"

// Status is an Operation's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusComplete, StatusError:
		return true
	}
	return false
}

// Outcome is the per-change result classification.
type Outcome string

const (
	OutcomeExecuted Outcome = "executed"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// ChangeResult records how one requested change was resolved.
type ChangeResult struct {
	Index      int     `json:"index"`
	Kind       Kind    `json:"kind"`
	Outcome    Outcome `json:"outcome"`
	Reason     string  `json:"reason,omitempty"`
	ProducedID string  `json:"producedId,omitempty"`
}

// TempIDMapping binds a caller-chosen placeholder to the real ID it
// produced.
type TempIDMapping struct {
	TempID     string `json:"tempId"`
	RealID     string `json:"realId"`
	EntityKind string `json:"entityKind"`
}

// Totals are the digest's headline counts. For a terminal Operation
// Requested == Executed + Skipped + Failed always holds.
type Totals struct {
	Requested int `json:"requested"`
	Results   int `json:"results"`
	Executed  int `json:"executed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// IntegrityFlags summarize digest consistency for quick caller checks.
type IntegrityFlags struct {
	HasErrors                   bool `json:"hasErrors"`
	HasSkips                    bool `json:"hasSkips"`
	ResultCountMatchesRequested bool `json:"resultCountMatchesRequested"`
}

// Digest aggregates per-change outcomes. A zeroed "pending" digest is
// returned at submission time; the populated one appears at terminal
// state.
type Digest struct {
	Totals          Totals         `json:"totals"`
	RequestedByType map[string]int `json:"requestedByType"`
	ExecutedByType  map[string]int `json:"executedByType"`
	SkipsByReason   map[string]int `json:"skipsByReason"`
	IntegrityFlags  IntegrityFlags `json:"integrityFlags"`
}

// PendingDigest returns the placeholder digest for a not-yet-terminal
// Operation with the given request size.
func PendingDigest(requested int) Digest {
	return Digest{
		Totals:          Totals{Requested: requested},
		RequestedByType: map[string]int{},
		ExecutedByType:  map[string]int{},
		SkipsByReason:   map[string]int{},
	}
}

// Operation is the server-tracked unit of work for exactly one batch.
// The snapshot carries pagination state for the Results slice: HasMore
// and NextCursor describe the page contained in Results, never the
// underlying total (Digest.Totals.Results has that).
type Operation struct {
	ID             string          `json:"operationId"`
	Status         Status          `json:"status"`
	Seq            int64           `json:"-"`
	CreatedAt      time.Time       `json:"createdAt"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	Results        []ChangeResult  `json:"results,omitempty"`
	Digest         Digest          `json:"digest"`
	TempIDMap      map[string]string `json:"tempIdMap"`
	TempIDMappings []TempIDMapping `json:"tempIdMappings"`
	ErrorKind      string          `json:"errorKind,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	HasMore        bool            `json:"hasMore"`
	NextCursor     string          `json:"nextCursor,omitempty"`
}

// OperationList is one page of recent operations.
type OperationList struct {
	Operations []Operation `json:"operations"`
	HasMore    bool        `json:"hasMore"`
	NextCursor string      `json:"nextCursor,omitempty"`
}
