package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSchema_AcceptsValidBatch(t *testing.T) {
	err := ValidateSchema([]byte(`{
		"changes": [
			{"kind": "createElement", "tempId": "t1", "type": "Node", "name": "N"},
			{"kind": "addToView", "view": "v1", "element": "t1", "bounds": {"x": 10, "y": 20}}
		],
		"duplicateStrategy": "reuse",
		"idempotencyKey": "k-1"
	}`))
	assert.NoError(t, err)
}

func TestValidateSchema_RejectsUnknownKind(t *testing.T) {
	err := ValidateSchema([]byte(`{"changes":[{"kind":"teleportElement"}]}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateSchema_RejectsUnknownTopLevelField(t *testing.T) {
	err := ValidateSchema([]byte(`{"changes":[],"mode":"atomic"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateSchema_RejectsWrongValueType(t *testing.T) {
	err := ValidateSchema([]byte(`{"changes":[{"kind":"createElement","type":"Node","name":42}]}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateSchema_RejectsBadStrategy(t *testing.T) {
	err := ValidateSchema([]byte(`{"changes":[],"duplicateStrategy":"merge"}`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateSchema_RejectsMalformedJSON(t *testing.T) {
	err := ValidateSchema([]byte(`{"changes": [`))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
