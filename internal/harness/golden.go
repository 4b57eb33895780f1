package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"archplan/internal/plan"
)

// OperationSnapshot is the golden-file view of one operation: stable
// fields only, timestamps and idempotency bookkeeping stripped.
type OperationSnapshot struct {
	Status    plan.Status          `json:"status"`
	Results   []plan.ChangeResult  `json:"results"`
	Digest    plan.Digest          `json:"digest"`
	Mappings  []plan.TempIDMapping `json:"tempIdMappings,omitempty"`
	ErrorKind string               `json:"errorKind,omitempty"`
}

// ScenarioSnapshot captures a full scenario run for golden comparison.
type ScenarioSnapshot struct {
	Scenario   string              `json:"scenario"`
	Operations []OperationSnapshot `json:"operations"`
}

// RunWithGolden executes a scenario, fails the test on any expectation
// failure, and compares the operation stream against the golden file
// testdata/<name>.golden.
//
// Regenerate with: go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, failure := range result.Failures {
		t.Errorf("scenario %s: %s", scenario.Name, failure)
	}

	snapshot := ScenarioSnapshot{Scenario: scenario.Name}
	for _, op := range result.Operations {
		snapshot.Operations = append(snapshot.Operations, OperationSnapshot{
			Status:    op.Status,
			Results:   op.Results,
			Digest:    op.Digest,
			Mappings:  op.TempIDMappings,
			ErrorKind: op.ErrorKind,
		})
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		t.Fatalf("scenario %s: marshal snapshot: %v", scenario.Name, err)
	}

	g := goldie.New(t)
	g.Assert(t, scenario.Name, data)
}
