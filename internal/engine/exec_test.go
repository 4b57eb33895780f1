package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archplan/internal/model"
	"archplan/internal/plan"
)

func TestEngine_RelationshipEndpointsMustBeElements(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"},
		{"kind":"createView","tempId":"v1","name":"V"},
		{"kind":"createRelationship","type":"FlowRelationship","source":"t1","target":"v1"}
	]}`)

	require.Len(t, op.Results, 3)
	assert.Equal(t, plan.OutcomeFailed, op.Results[2].Outcome)
	assert.Contains(t, op.Results[2].Reason, "is not an element")
	assert.Empty(t, mem.Relationships())
}

func TestEngine_ConnectionRequiresPlacement(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	// Relationship exists but its endpoints were never placed on the
	// view, so the connection has nothing to anchor to.
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"},
		{"kind":"createElement","tempId":"t2","type":"Node","name":"B"},
		{"kind":"createRelationship","tempId":"r1","type":"FlowRelationship","source":"t1","target":"t2"},
		{"kind":"createView","tempId":"v1","name":"V"},
		{"kind":"addConnectionToView","view":"v1","relationship":"r1","sourceObject":"ghost","targetObject":"ghost2"}
	]}`)

	require.Len(t, op.Results, 5)
	assert.Equal(t, plan.OutcomeFailed, op.Results[4].Outcome)
	assert.Contains(t, op.Results[4].Reason, `view object "ghost" does not exist`)
}

func TestEngine_ConnectionObjectMustDepictEndpoint(t *testing.T) {
	e, _ := newTestEngine(t, Config{})

	// o2 depicts B, but it is passed as the connection's source while
	// the relationship runs A -> B.
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"},
		{"kind":"createElement","tempId":"t2","type":"Node","name":"B"},
		{"kind":"createRelationship","tempId":"r1","type":"FlowRelationship","source":"t1","target":"t2"},
		{"kind":"createView","tempId":"v1","name":"V"},
		{"kind":"addToView","tempId":"o1","view":"v1","element":"t1"},
		{"kind":"addToView","tempId":"o2","view":"v1","element":"t2"},
		{"kind":"addConnectionToView","view":"v1","relationship":"r1","sourceObject":"o2","targetObject":"o1"}
	]}`)

	require.Len(t, op.Results, 7)
	assert.Equal(t, plan.OutcomeFailed, op.Results[6].Outcome)
	assert.Contains(t, op.Results[6].Reason, "does not depict the relationship's source element")
}

func TestEngine_NestingChecks(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"},
		{"kind":"createView","tempId":"v1","name":"V"},
		{"kind":"createView","tempId":"v2","name":"W"},
		{"kind":"addToView","tempId":"o1","view":"v1","element":"t1"},
		{"kind":"addToView","tempId":"o2","view":"v2","element":"t1"},
		{"kind":"nestInView","child":"o1","parent":"o1"},
		{"kind":"nestInView","child":"o1","parent":"o2"},
		{"kind":"createGroup","tempId":"g1","view":"v1","name":"Zone"},
		{"kind":"nestInView","child":"o1","parent":"g1"}
	]}`)

	require.Len(t, op.Results, 9)
	assert.Equal(t, plan.OutcomeFailed, op.Results[5].Outcome)
	assert.Contains(t, op.Results[5].Reason, "cannot nest inside itself")
	assert.Equal(t, plan.OutcomeFailed, op.Results[6].Outcome)
	assert.Contains(t, op.Results[6].Reason, "different views")
	assert.Equal(t, plan.OutcomeExecuted, op.Results[8].Outcome)

	obj, ok := mem.Object(op.TempIDMap["o1"])
	require.True(t, ok)
	assert.Equal(t, op.TempIDMap["g1"], obj.Parent)
}

func TestEngine_NoteAndGroupDefaults(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createView","tempId":"v1","name":"V"},
		{"kind":"createNote","tempId":"n1","view":"v1","text":"remember"},
		{"kind":"createGroup","tempId":"g1","view":"v1","name":"Zone","bounds":{"x":5,"y":5,"w":400,"h":300}}
	]}`)

	assert.Equal(t, 3, op.Digest.Totals.Executed)

	note, ok := mem.Object(op.TempIDMap["n1"])
	require.True(t, ok)
	assert.Equal(t, model.ObjectNote, note.Kind)
	assert.Equal(t, "remember", note.Text)
	assert.Equal(t, 120, note.Bounds.W)
	assert.Equal(t, 55, note.Bounds.H)

	group, ok := mem.Object(op.TempIDMap["g1"])
	require.True(t, ok)
	assert.Equal(t, model.ObjectGroup, group.Kind)
	assert.Equal(t, 400, group.Bounds.W)
}

func TestEngine_PropertyOwnerMayBeRelationship(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A"},
		{"kind":"createElement","tempId":"t2","type":"Node","name":"B"},
		{"kind":"createRelationship","tempId":"r1","type":"FlowRelationship","source":"t1","target":"t2"},
		{"kind":"setProperty","id":"r1","key":"medium","value":"https"},
		{"kind":"setProperty","id":"v-ghost","key":"k","value":"v"}
	]}`)

	require.Len(t, op.Results, 5)
	assert.Equal(t, plan.OutcomeExecuted, op.Results[3].Outcome)
	assert.Equal(t, plan.OutcomeFailed, op.Results[4].Outcome)
	assert.Contains(t, op.Results[4].Reason, "no element or relationship")

	rel, ok := mem.Relationship(op.TempIDMap["r1"])
	require.True(t, ok)
	assert.Equal(t, "https", rel.Properties["medium"])
}

func TestEngine_FolderScoping(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createFolder","tempId":"f1","name":"Business"},
		{"kind":"createFolder","tempId":"f2","name":"Sub","parent":"f1"},
		{"kind":"createElement","tempId":"t1","type":"Node","name":"A","folder":"f2"},
		{"kind":"createView","tempId":"v1","name":"V"},
		{"kind":"moveToFolder","id":"v1","folder":"f1"},
		{"kind":"createFolder","name":"Business"}
	]}`)

	// Same name under the root collides; the default strategy skips it.
	require.Len(t, op.Results, 6)
	assert.Equal(t, plan.OutcomeSkipped, op.Results[5].Outcome)
	assert.Contains(t, op.Results[5].Reason, "DuplicateConflictError")

	el, ok := mem.Element(op.TempIDMap["t1"])
	require.True(t, ok)
	assert.Equal(t, op.TempIDMap["f2"], el.Folder)

	view, ok := mem.View(op.TempIDMap["v1"])
	require.True(t, ok)
	assert.Equal(t, op.TempIDMap["f1"], view.Folder)
}

func TestEngine_NamesNormalizedOnCreateAndMatch(t *testing.T) {
	e, mem := newTestEngine(t, Config{})

	// First batch stores the decomposed form; the second queries with
	// the precomposed form and still collides.
	submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Café"}
	]}`)
	op := submitAndDrain(t, e, `{"changes":[
		{"kind":"createElement","type":"Node","name":"Café"}
	]}`)

	require.Len(t, op.Results, 1)
	assert.Equal(t, plan.OutcomeSkipped, op.Results[0].Outcome)

	els := mem.Elements()
	require.Len(t, els, 1)
	assert.Equal(t, normalizeName("Café"), els[0].Name)
}
