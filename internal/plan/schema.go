package plan

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSrc string

var (
	schemaOnce  sync.Once
	schemaValue cue.Value
	schemaErr   error
)

// batchSchema compiles the embedded CUE schema once per process.
func batchSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile batch schema: %w", err)
			return
		}
		schemaValue = v.LookupPath(cue.ParsePath("#Batch"))
		if err := schemaValue.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Batch: %w", err)
		}
	})
	return schemaValue, schemaErr
}

// ValidateSchema checks a raw batch body against the wire schema:
// unknown fields, wrong value types, and out-of-vocabulary kind or
// strategy values are rejected. Shape problems surface as
// ValidationError; only schema-compilation failures (a build defect)
// return a bare error.
func ValidateSchema(raw []byte) error {
	schema, err := batchSchema()
	if err != nil {
		return err
	}

	expr, err := cuejson.Extract("batch.json", raw)
	if err != nil {
		return &ValidationError{Problems: []string{err.Error()}}
	}

	ctx := schema.Context()
	data := ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return &ValidationError{Problems: []string{cueerrors.Details(err, nil)}}
	}

	unified := schema.Unify(data)
	if err := unified.Validate(cue.Final()); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		if len(problems) == 0 {
			problems = []string{err.Error()}
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}
