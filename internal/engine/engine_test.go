package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archplan/internal/model"
	"archplan/internal/plan"
	"archplan/internal/store"
)

func newTestEngine(t *testing.T, cfg Config) (*Engine, *model.Memory) {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mem := model.NewMemory()
	return New(st, mem, NewSequenceGenerator("id"), cfg), mem
}

// submitAndDrain runs one batch to completion and returns the terminal
// snapshot.
func submitAndDrain(t *testing.T, e *Engine, raw string) plan.Operation {
	t.Helper()
	ctx := context.Background()

	op, err := e.Submit(ctx, []byte(raw))
	require.NoError(t, err)
	require.NoError(t, e.Drain(ctx))

	final, err := e.Poll(ctx, op.ID, store.PollOptions{})
	require.NoError(t, err)
	return final
}

func TestEngine_TempIDChain(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"BusinessActor","name":"Customer"},
		{"kind":"createElement","tempId":"t2","type":"BusinessService","name":"Ordering"},
		{"kind":"createRelationship","tempId":"t3","type":"ServingRelationship","source":"t2","target":"t1"},
		{"kind":"createView","tempId":"v1","name":"Overview"},
		{"kind":"addToView","tempId":"o1","view":"v1","element":"t1"},
		{"kind":"addToView","tempId":"o2","view":"v1","element":"t2"},
		{"kind":"addConnectionToView","view":"v1","relationship":"t3","sourceObject":"o2","targetObject":"o1"}
	]}`)

	assert.Equal(t, plan.StatusComplete, op.Status)
	assert.Equal(t, 7, op.Digest.Totals.Executed)
	assert.Equal(t, 0, op.Digest.Totals.Failed)
	assert.False(t, op.Digest.IntegrityFlags.HasErrors)

	// id-1 is the operation itself; entities follow in change order.
	assert.Equal(t, "id-2", op.TempIDMap["t1"])
	assert.Equal(t, "id-4", op.TempIDMap["t3"])
	require.Len(t, op.TempIDMappings, 6)
	assert.Equal(t, "element", op.TempIDMappings[0].EntityKind)
	assert.Equal(t, "relationship", op.TempIDMappings[2].EntityKind)

	assert.Len(t, mem.Elements(), 2)
	assert.Len(t, mem.Relationships(), 1)
	assert.Len(t, mem.ConnectionsInView("id-5"), 1)
	assert.Equal(t, 1, e.Stack().Depth())
}

func TestEngine_ForwardReferenceFailsOnlyThatChange(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"setProperty","id":"t1","key":"owner","value":"x"},
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"}
	]}`)

	assert.Equal(t, plan.StatusComplete, op.Status)
	require.Len(t, op.Results, 2)

	assert.Equal(t, plan.OutcomeFailed, op.Results[0].Outcome)
	assert.Contains(t, op.Results[0].Reason, "ReferenceError")
	assert.Contains(t, op.Results[0].Reason, `tempId "t1" is not resolved`)

	assert.Equal(t, plan.OutcomeExecuted, op.Results[1].Outcome)
	assert.Len(t, mem.Elements(), 1)
	assert.True(t, op.Digest.IntegrityFlags.HasErrors)
}

func TestEngine_MissingEntityFails(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"deleteElement","id":"ghost"}
	]}`)

	assert.Equal(t, plan.StatusComplete, op.Status)
	require.Len(t, op.Results, 1)
	assert.Equal(t, plan.OutcomeFailed, op.Results[0].Outcome)
	assert.Contains(t, op.Results[0].Reason, `element "ghost" does not exist`)

	// Nothing applied, nothing to undo.
	assert.Equal(t, 0, e.Stack().Depth())
}

func TestEngine_DuplicateErrorStrategySkips(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Billing"}
	]}`)
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Billing"}
	]}`)

	require.Len(t, op.Results, 1)
	assert.Equal(t, plan.OutcomeSkipped, op.Results[0].Outcome)
	assert.Equal(t, `DuplicateConflictError: element "Billing" already exists as id-2`, op.Results[0].Reason)
	assert.Equal(t, map[string]int{"DuplicateConflictError": 1}, op.Digest.SkipsByReason)
	assert.Len(t, mem.Elements(), 1)
}

func TestEngine_DuplicateReuseReturnsExistingID(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Billing"}
	]}`)
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"Billing"}
	],"duplicateStrategy":"reuse"}`)

	require.Len(t, op.Results, 1)
	assert.Equal(t, plan.OutcomeExecuted, op.Results[0].Outcome)
	assert.Equal(t, "id-2", op.Results[0].ProducedID)
	assert.Equal(t, `reused existing element "Billing"`, op.Results[0].Reason)
	assert.Equal(t, "id-2", op.TempIDMap["t1"])
	assert.Len(t, mem.Elements(), 1)
}

func TestEngine_CreateOrGetAlwaysReuses(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Billing"}
	]}`)
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createOrGetElement","tempId":"t1","type":"Node","name":"Billing","onDuplicate":"error"}
	]}`)

	require.Len(t, op.Results, 1)
	assert.Equal(t, plan.OutcomeExecuted, op.Results[0].Outcome)
	assert.Equal(t, "id-2", op.Results[0].ProducedID)
	assert.Len(t, mem.Elements(), 1)
}

func TestEngine_DuplicateRenameDisambiguates(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Billing"}
	]}`)
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Billing","onDuplicate":"rename"},
		{"kind":"createElement","type":"Node","name":"Billing","onDuplicate":"rename"}
	]}`)

	assert.Equal(t, 2, op.Digest.Totals.Executed)
	names := make([]string, 0, 3)
	for _, el := range mem.Elements() {
		names = append(names, el.Name)
	}
	assert.ElementsMatch(t, []string{"Billing", "Billing (2)", "Billing (3)"}, names)
}

func TestEngine_PartialSuccessIsOneUndoEntry(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"},
		{"kind":"setProperty","id":"ghost","key":"k","value":"v"},
		{"kind":"createElement","type":"Node","name":"B"}
	]}`)

	assert.Equal(t, plan.StatusComplete, op.Status)
	assert.Equal(t, 2, op.Digest.Totals.Executed)
	assert.Equal(t, 1, op.Digest.Totals.Failed)
	assert.True(t, op.Digest.IntegrityFlags.HasErrors)
	assert.Len(t, mem.Elements(), 2)

	require.Equal(t, 1, e.Stack().Depth())
	_, err := e.Stack().Undo()
	require.NoError(t, err)
	assert.Empty(t, mem.Elements())
}

func TestEngine_DigestReconciles(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	]}`)
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"},
		{"kind":"createElement","type":"Node","name":"B"},
		{"kind":"deleteElement","id":"ghost"}
	]}`)

	totals := op.Digest.Totals
	assert.Equal(t, totals.Requested, totals.Executed+totals.Skipped+totals.Failed)
	assert.Equal(t, 1, totals.Executed)
	assert.Equal(t, 1, totals.Skipped)
	assert.Equal(t, 1, totals.Failed)
	assert.True(t, op.Digest.IntegrityFlags.ResultCountMatchesRequested)
}

func TestEngine_ProcessingTimeout(t *testing.T) {
	e, _ := newTestEngine(t, Config{ProcessingTimeout: time.Millisecond})

	// Every clock read jumps 10ms, so the budget expires before the
	// first change runs.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	e.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * 10 * time.Millisecond)
	}

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"},
		{"kind":"createElement","type":"Node","name":"B"}
	]}`)

	assert.Equal(t, plan.StatusError, op.Status)
	assert.Equal(t, "TimeoutError", op.ErrorKind)
	assert.Contains(t, op.ErrorMessage, "processing exceeded")
	require.Len(t, op.Results, 2)
	for _, r := range op.Results {
		assert.Equal(t, plan.OutcomeFailed, r.Outcome)
		assert.Contains(t, r.Reason, "processing budget exceeded")
	}
}

func TestEngine_TimeoutDisabled(t *testing.T) {
	e, mem := newTestEngine(t, Config{ProcessingTimeout: -1})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	]}`)

	assert.Equal(t, plan.StatusComplete, op.Status)
	assert.Len(t, mem.Elements(), 1)
}

func TestEngine_IdempotentReplay(t *testing.T) {
	e, mem := newTestEngine(t, Config{})
	ctx := context.Background()

	raw := `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	],"idempotencyKey":"key-1"}`

	first := submitAndDrain(t, e, raw)
	require.Equal(t, plan.StatusComplete, first.Status)

	replay, err := e.Submit(ctx, []byte(raw))
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, plan.StatusComplete, replay.Status)

	// Nothing new was queued or applied.
	assert.Equal(t, 0, e.QueueLen())
	assert.Len(t, mem.Elements(), 1)
}

func TestEngine_IdempotencyKeyWhitespaceInsensitive(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	first := submitAndDrain(t, e, `{"changes":[{"kind":"createElement","type":"Node","name":"A"}],"idempotencyKey":"key-1"}`)

	// Same content, different formatting and field order.
	replay, err := e.Submit(ctx, []byte(`{
		"idempotencyKey": "key-1",
		"changes": [
			{"name": "A", "type": "Node", "kind": "createElement"}
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, first.ID, replay.ID)
}

func TestEngine_IdempotencyConflict(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	submitAndDrain(t, e, `{"changes":[{"kind":"createElement","type":"Node","name":"A"}],"idempotencyKey":"key-1"}`)

	_, err := e.Submit(ctx, []byte(`{"changes":[{"kind":"createElement","type":"Node","name":"B"}],"idempotencyKey":"key-1"}`))
	require.Error(t, err)
	assert.True(t, IsIdempotencyConflict(err))
	assert.Contains(t, err.Error(), `idempotency key "key-1" was already used with a different payload`)
}

func TestEngine_RejectsInvalidBatch(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	_, err := e.Submit(ctx, []byte(`{"changes":[]}`))
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = e.Submit(ctx, []byte(`{"changes":[{"kind":"createElement","name":"missing type"}]}`))
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, 0, e.QueueLen())
}

func TestEngine_StrictSchemaRejectsUnknownFields(t *testing.T) {
	e, _ := newTestEngine(t, Config{StrictSchema: true})
	ctx := context.Background()

	_, err := e.Submit(ctx, []byte(`{"changes":[
		{"kind":"createElement","type":"Node","name":"A","surprise":true}
	]}`))
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestEngine_MaxChangesEnforced(t *testing.T) {
	e, _ := newTestEngine(t, Config{MaxChanges: 1})
	ctx := context.Background()

	_, err := e.Submit(ctx, []byte(`{"changes":[
		{"kind":"createElement","type":"Node","name":"A"},
		{"kind":"createElement","type":"Node","name":"B"}
	]}`))
	var verr *plan.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "limit is 1")
}

func TestEngine_SubmitAfterStop(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	e.Stop()

	_, err := e.Submit(context.Background(), []byte(`{"changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	]}`))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestEngine_FailedSubmitReleasesIdempotencyKey(t *testing.T) {
	st, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()

	raw := `{"idempotencyKey":"retry-me","changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	]}`

	stopped := New(st, model.NewMemory(), NewSequenceGenerator("a"), Config{})
	stopped.Stop()
	_, err = stopped.Submit(ctx, []byte(raw))
	require.ErrorIs(t, err, ErrQueueClosed)

	// The failed submission must not hold the key; a later submit with
	// the same key runs fresh instead of replaying a phantom operation.
	e := New(st, model.NewMemory(), NewSequenceGenerator("b"), Config{})
	op, err := e.Submit(ctx, []byte(raw))
	require.NoError(t, err)
	require.NoError(t, e.Drain(ctx))

	final, err := e.Poll(ctx, op.ID, store.PollOptions{})
	require.NoError(t, err)
	assert.Equal(t, plan.StatusComplete, final.Status)
}

func TestEngine_RunProcessesAndStops(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	op, err := e.Submit(ctx, []byte(`{"changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	]}`))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		snap, err := e.Poll(ctx, op.ID, store.PollOptions{})
		require.NoError(t, err)
		if snap.Status.Terminal() {
			assert.Equal(t, plan.StatusComplete, snap.Status)
			break
		}
		select {
		case <-deadline:
			t.Fatal("operation never reached a terminal state")
		case <-time.After(5 * time.Millisecond):
		}
	}

	e.Stop()
	require.NoError(t, <-done)
}

func TestEngine_RunStopsOnContextCancel(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestEngine_SeqMonotonic(t *testing.T) {
	e, _ := newTestEngine(t, Config{})
	ctx := context.Background()

	first, err := e.Submit(ctx, []byte(`{"changes":[{"kind":"createElement","type":"Node","name":"A"}]}`))
	require.NoError(t, err)
	second, err := e.Submit(ctx, []byte(`{"changes":[{"kind":"createElement","type":"Node","name":"B"}]}`))
	require.NoError(t, err)

	assert.Greater(t, second.Seq, first.Seq)
	assert.Equal(t, int64(2), e.Clock().Current())
}

func TestAsChangeError(t *testing.T) {
	typed := NewChangeError(CodeReference, 3, "boom")
	assert.Same(t, typed, asChangeError(typed, 9))

	wrapped := asChangeError(assert.AnError, 4)
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, 4, wrapped.Index)
}
