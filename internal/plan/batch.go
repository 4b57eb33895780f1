package plan

import (
	"encoding/json"
	"fmt"
)

// Strategy selects duplicate-resolution behavior for create changes.
type Strategy string

const (
	// StrategyError fails the change when an equivalent entity exists.
	StrategyError Strategy = "error"
	// StrategyReuse returns the existing entity's ID without creating.
	StrategyReuse Strategy = "reuse"
	// StrategyRename creates a new entity under a disambiguated name.
	StrategyRename Strategy = "rename"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyError, StrategyReuse, StrategyRename:
		return true
	}
	return false
}

// Batch is one client-submitted ordered list of changes plus batch-level
// defaults.
type Batch struct {
	Changes           []Change `json:"changes"`
	DuplicateStrategy Strategy `json:"duplicateStrategy,omitempty"`
	IdempotencyKey    string   `json:"idempotencyKey,omitempty"`
}

// ParseBatch decodes a raw request body into a Batch. Decode failures
// (malformed JSON, unknown kinds, bad strategy values) surface as
// ValidationError so the caller can reject synchronously.
func ParseBatch(raw []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, &ValidationError{Problems: []string{err.Error()}}
	}
	if b.DuplicateStrategy != "" && !b.DuplicateStrategy.Valid() {
		return nil, &ValidationError{
			Problems: []string{fmt.Sprintf("unknown duplicate strategy %q", b.DuplicateStrategy)},
		}
	}
	return &b, nil
}
