package harness

import (
	"context"
	"fmt"

	"archplan/internal/engine"
	"archplan/internal/model"
	"archplan/internal/plan"
	"archplan/internal/store"
)

// Result is one scenario execution's outcome.
type Result struct {
	Scenario   string
	Pass       bool
	Failures   []string
	Operations []plan.Operation
	Model      model.API
	Stack      *model.CommandStack
}

func (r *Result) failf(format string, args ...any) {
	r.Pass = false
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Run executes a scenario against a fresh engine: in-memory model,
// in-memory status store, sequential IDs for reproducible output.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	defer st.Close()

	m := model.NewMemory()
	eng := engine.New(st, m, engine.NewSequenceGenerator("id"), engine.Config{
		StrictSchema: true,
	})

	result := &Result{Scenario: scenario.Name, Pass: true, Model: m, Stack: eng.Stack()}
	ctx := context.Background()

	for i, step := range scenario.Batches {
		op, err := eng.Submit(ctx, []byte(step.Payload))
		if err != nil {
			if step.Rejected {
				continue
			}
			result.failf("batch %d: rejected: %v", i, err)
			continue
		}
		if step.Rejected {
			result.failf("batch %d: expected rejection, got operation %s", i, op.ID)
			continue
		}
		if err := eng.Drain(ctx); err != nil {
			return nil, fmt.Errorf("batch %d: drain: %w", i, err)
		}

		final, err := eng.Poll(ctx, op.ID, store.PollOptions{})
		if err != nil {
			return nil, fmt.Errorf("batch %d: poll: %w", i, err)
		}
		result.Operations = append(result.Operations, final)
		checkExpect(result, i, step.Expect, final)
	}

	if scenario.Assert != nil {
		checkFinalState(result, scenario.Assert, m, eng.Stack())
	}
	return result, nil
}

func checkExpect(result *Result, index int, expect *ExpectClause, op plan.Operation) {
	if expect == nil {
		return
	}
	if expect.Status != "" && string(op.Status) != expect.Status {
		result.failf("batch %d: status %s, want %s", index, op.Status, expect.Status)
	}
	t := op.Digest.Totals
	if expect.Executed >= 0 && t.Executed != expect.Executed {
		result.failf("batch %d: executed %d, want %d", index, t.Executed, expect.Executed)
	}
	if expect.Skipped >= 0 && t.Skipped != expect.Skipped {
		result.failf("batch %d: skipped %d, want %d", index, t.Skipped, expect.Skipped)
	}
	if expect.Failed >= 0 && t.Failed != expect.Failed {
		result.failf("batch %d: failed %d, want %d", index, t.Failed, expect.Failed)
	}
	for j, want := range expect.Outcomes {
		if j >= len(op.Results) {
			result.failf("batch %d: no result for change %d", index, j)
			continue
		}
		if string(op.Results[j].Outcome) != want {
			result.failf("batch %d change %d: outcome %s, want %s",
				index, j, op.Results[j].Outcome, want)
		}
	}
}

func checkFinalState(result *Result, assert *FinalState, m model.API, stack *model.CommandStack) {
	if assert.Elements >= 0 {
		if got := len(m.Elements()); got != assert.Elements {
			result.failf("final state: %d elements, want %d", got, assert.Elements)
		}
	}
	if assert.Relationships >= 0 {
		if got := len(m.Relationships()); got != assert.Relationships {
			result.failf("final state: %d relationships, want %d", got, assert.Relationships)
		}
	}
	if assert.Views >= 0 {
		if got := len(m.Views()); got != assert.Views {
			result.failf("final state: %d views, want %d", got, assert.Views)
		}
	}
	if assert.Folders >= 0 {
		if got := len(m.Folders()); got != assert.Folders {
			result.failf("final state: %d folders, want %d", got, assert.Folders)
		}
	}
	if assert.UndoDepth >= 0 {
		if got := stack.Depth(); got != assert.UndoDepth {
			result.failf("final state: undo depth %d, want %d", got, assert.UndoDepth)
		}
	}
	for _, name := range assert.ElementNames {
		if !elementExists(m, name) {
			result.failf("final state: element %q not found", name)
		}
	}
}

func elementExists(m model.API, name string) bool {
	for _, el := range m.Elements() {
		if el.Name == name {
			return true
		}
	}
	return false
}
