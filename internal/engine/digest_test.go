package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archplan/internal/plan"
)

func TestBuildDigest_Reconciles(t *testing.T) {
	batch := tempBatch(t, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"},
		{"kind":"createElement","type":"Node","name":"B"},
		{"kind":"createView","name":"V"},
		{"kind":"setProperty","id":"e1","key":"k","value":"v"}
	]}`)
	results := []plan.ChangeResult{
		{Index: 0, Kind: plan.KindCreateElement, Outcome: plan.OutcomeExecuted, ProducedID: "id-1"},
		{Index: 1, Kind: plan.KindCreateElement, Outcome: plan.OutcomeSkipped,
			Reason: `DuplicateConflictError: element "A" already exists as id-1`},
		{Index: 2, Kind: plan.KindCreateView, Outcome: plan.OutcomeExecuted, ProducedID: "id-2"},
		{Index: 3, Kind: plan.KindSetProperty, Outcome: plan.OutcomeFailed,
			Reason: `ReferenceError: element "e1" does not exist`},
	}

	d := BuildDigest(batch, results)

	assert.Equal(t, 4, d.Totals.Requested)
	assert.Equal(t, 4, d.Totals.Results)
	assert.Equal(t, 2, d.Totals.Executed)
	assert.Equal(t, 1, d.Totals.Skipped)
	assert.Equal(t, 1, d.Totals.Failed)
	assert.Equal(t, d.Totals.Requested, d.Totals.Executed+d.Totals.Skipped+d.Totals.Failed)

	assert.Equal(t, map[string]int{"createElement": 2, "createView": 1, "setProperty": 1}, d.RequestedByType)
	assert.Equal(t, map[string]int{"createElement": 1, "createView": 1}, d.ExecutedByType)
	assert.Equal(t, map[string]int{"DuplicateConflictError": 1}, d.SkipsByReason)

	assert.True(t, d.IntegrityFlags.HasErrors)
	assert.True(t, d.IntegrityFlags.HasSkips)
	assert.True(t, d.IntegrityFlags.ResultCountMatchesRequested)
}

func TestBuildDigest_CleanRun(t *testing.T) {
	batch := tempBatch(t, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"}
	]}`)
	results := []plan.ChangeResult{
		{Index: 0, Kind: plan.KindCreateElement, Outcome: plan.OutcomeExecuted, ProducedID: "id-1"},
	}

	d := BuildDigest(batch, results)
	require.False(t, d.IntegrityFlags.HasErrors)
	require.False(t, d.IntegrityFlags.HasSkips)
	assert.Empty(t, d.SkipsByReason)
}

func TestBuildDigest_ResultCountMismatch(t *testing.T) {
	batch := tempBatch(t, `{"changes":[
		{"kind":"createElement","type":"Node","name":"A"},
		{"kind":"createElement","type":"Node","name":"B"}
	]}`)

	d := BuildDigest(batch, nil)
	assert.False(t, d.IntegrityFlags.ResultCountMatchesRequested)
}

func TestReasonBucket(t *testing.T) {
	assert.Equal(t, "DuplicateConflictError", reasonBucket(`DuplicateConflictError: element "A" already exists as id-1`))
	assert.Equal(t, "ReferenceError", reasonBucket("ReferenceError: view does not exist"))
	assert.Equal(t, "no colon here", reasonBucket("no colon here"))
	assert.Equal(t, "", reasonBucket(""))
}
