package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeUnmarshal_KindDispatch(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{
		"kind": "createElement",
		"tempId": "t1",
		"type": "BusinessActor",
		"name": "Customer",
		"documentation": "doc"
	}`), &c)
	require.NoError(t, err)

	assert.Equal(t, KindCreateElement, c.Kind)
	assert.Equal(t, "t1", c.TempID)
	require.NotNil(t, c.CreateElement)
	assert.Equal(t, "BusinessActor", c.CreateElement.Type)
	assert.Equal(t, "Customer", c.CreateElement.Name)
	assert.Nil(t, c.UpdateElement)
}

func TestChangeUnmarshal_CreateOrGetSharesArgs(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{"kind":"createOrGetElement","type":"Node","name":"N"}`), &c)
	require.NoError(t, err)

	assert.Equal(t, KindCreateOrGetElement, c.Kind)
	require.NotNil(t, c.CreateElement)
	assert.Equal(t, "N", c.CreateElement.Name)
}

func TestChangeUnmarshal_RelationshipRefs(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{
		"kind": "createRelationship",
		"type": "ServingRelationship",
		"source": "t1",
		"target": "real-id"
	}`), &c)
	require.NoError(t, err)

	require.NotNil(t, c.CreateRelationship)
	assert.Equal(t, Ref("t1"), c.CreateRelationship.Source)
	assert.Equal(t, Ref("real-id"), c.CreateRelationship.Target)
}

func TestChangeUnmarshal_MissingKind(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{"type":"Node","name":"N"}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind")
}

func TestChangeUnmarshal_UnknownKind(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{"kind":"teleportElement"}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown change kind "teleportElement"`)
}

func TestChangeUnmarshal_UnknownStrategy(t *testing.T) {
	var c Change
	err := json.Unmarshal([]byte(`{"kind":"createElement","onDuplicate":"merge","type":"Node","name":"N"}`), &c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown duplicate strategy "merge"`)
}

func TestKind_ProducesID(t *testing.T) {
	assert.True(t, KindCreateElement.ProducesID())
	assert.True(t, KindAddToView.ProducesID())
	assert.True(t, KindCreateNote.ProducesID())
	assert.False(t, KindDeleteElement.ProducesID())
	assert.False(t, KindSetProperty.ProducesID())
	assert.False(t, KindStyleObject.ProducesID())
}

func TestKind_IsCreate(t *testing.T) {
	assert.True(t, KindCreateElement.IsCreate())
	assert.True(t, KindCreateOrGetRelationship.IsCreate())
	assert.True(t, KindCreateView.IsCreate())
	// Notes and groups carry no identity key.
	assert.False(t, KindCreateNote.IsCreate())
	assert.False(t, KindCreateGroup.IsCreate())
	assert.False(t, KindAddToView.IsCreate())
}

func TestStrategy_Valid(t *testing.T) {
	assert.True(t, StrategyError.Valid())
	assert.True(t, StrategyReuse.Valid())
	assert.True(t, StrategyRename.Valid())
	assert.False(t, Strategy("merge").Valid())
	assert.False(t, Strategy("").Valid())
}

func TestParseBatch(t *testing.T) {
	b, err := ParseBatch([]byte(`{
		"changes": [{"kind":"createElement","type":"Node","name":"N"}],
		"duplicateStrategy": "reuse",
		"idempotencyKey": "k-1"
	}`))
	require.NoError(t, err)
	assert.Len(t, b.Changes, 1)
	assert.Equal(t, StrategyReuse, b.DuplicateStrategy)
	assert.Equal(t, "k-1", b.IdempotencyKey)
}

func TestParseBatch_Errors(t *testing.T) {
	_, err := ParseBatch([]byte(`{"changes":`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = ParseBatch([]byte(`{"changes":[],"duplicateStrategy":"merge"}`))
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), `unknown duplicate strategy "merge"`)
}
