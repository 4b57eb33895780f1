package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one conformance scenario: a sequence of raw batch
// submissions with expected outcomes, plus assertions on the final
// model state.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Batches are submitted in order. Each payload is the raw JSON body
	// an HTTP client would POST.
	Batches []BatchStep `yaml:"batches"`

	// Assert validates the final model state after all batches.
	Assert *FinalState `yaml:"assert,omitempty"`
}

// BatchStep is one submission plus its expected outcome.
type BatchStep struct {
	// Payload is the raw JSON batch body.
	Payload string `yaml:"payload"`

	// Rejected marks a payload the server must refuse synchronously.
	Rejected bool `yaml:"rejected,omitempty"`

	// Expect validates the terminal operation; nil skips validation.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected terminal operation shape.
type ExpectClause struct {
	// Status is the expected terminal status ("complete" or "error").
	Status string `yaml:"status"`

	// Executed, Skipped and Failed are expected digest totals; negative
	// values (the default) skip the check.
	Executed int `yaml:"executed"`
	Skipped  int `yaml:"skipped"`
	Failed   int `yaml:"failed"`

	// Outcomes optionally pins each change's outcome by index.
	Outcomes []string `yaml:"outcomes,omitempty"`
}

// UnmarshalYAML applies the skip-by-default totals.
func (e *ExpectClause) UnmarshalYAML(value *yaml.Node) error {
	type raw ExpectClause
	out := raw{Executed: -1, Skipped: -1, Failed: -1}
	if err := value.Decode(&out); err != nil {
		return err
	}
	*e = ExpectClause(out)
	return nil
}

// FinalState asserts on the model after the scenario finishes.
type FinalState struct {
	// Counts; negative (default) skips the check.
	Elements      int `yaml:"elements"`
	Relationships int `yaml:"relationships"`
	Views         int `yaml:"views"`
	Folders       int `yaml:"folders"`

	// UndoDepth pins the number of undo entries; negative skips.
	UndoDepth int `yaml:"undoDepth"`

	// ElementNames must all exist (any type).
	ElementNames []string `yaml:"elementNames,omitempty"`
}

// UnmarshalYAML applies the skip-by-default counts.
func (f *FinalState) UnmarshalYAML(value *yaml.Node) error {
	type raw FinalState
	out := raw{Elements: -1, Relationships: -1, Views: -1, Folders: -1, UndoDepth: -1}
	if err := value.Decode(&out); err != nil {
		return err
	}
	*f = FinalState(out)
	return nil
}

// LoadScenario reads and validates one scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	if len(s.Batches) == 0 {
		return nil, fmt.Errorf("scenario %s: no batches", path)
	}
	return &s, nil
}
