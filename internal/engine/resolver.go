package engine

import (
	"archplan/internal/plan"
)

// tempTable is the per-batch symbol table for placeholder references.
//
// Binding order is strictly sequential: a tempId becomes visible only
// after its defining change has executed, so a reference to a later
// change (or to a change that failed) is an unresolved placeholder.
// The declared set, built by prescanning the batch, distinguishes
// "placeholder you used too early" from "literal entity ID".
type tempTable struct {
	declared map[string]int // tempId -> declaring change index
	bound    map[string]plan.TempIDMapping
	order    []string // bind order, for stable reporting
}

// newTempTable prescans the batch's declared tempIds.
func newTempTable(b *plan.Batch) *tempTable {
	t := &tempTable{
		declared: make(map[string]int),
		bound:    make(map[string]plan.TempIDMapping),
	}
	for i, c := range b.Changes {
		if c.TempID != "" {
			t.declared[c.TempID] = i
		}
	}
	return t
}

// bind records the real ID produced for a tempId.
func (t *tempTable) bind(tempID, realID, entityKind string) {
	if tempID == "" {
		return
	}
	if _, exists := t.bound[tempID]; !exists {
		t.order = append(t.order, tempID)
	}
	t.bound[tempID] = plan.TempIDMapping{TempID: tempID, RealID: realID, EntityKind: entityKind}
}

// resolve maps a reference to a real ID. A bound placeholder resolves to
// its real ID; an unbound but declared placeholder is a reference error
// (its defining change has not executed yet, or never will); anything
// else passes through as a literal entity ID for live validation.
func (t *tempTable) resolve(r plan.Ref, index int) (string, *ChangeError) {
	if r.IsZero() {
		return "", nil
	}
	if m, ok := t.bound[string(r)]; ok {
		return m.RealID, nil
	}
	if declAt, ok := t.declared[string(r)]; ok {
		return "", NewChangeError(CodeReference, index,
			"tempId %q is not resolved: its defining change (index %d) has not executed", r, declAt)
	}
	return string(r), nil
}

// mappings returns bindings in bind order.
func (t *tempTable) mappings() []plan.TempIDMapping {
	out := make([]plan.TempIDMapping, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.bound[id])
	}
	return out
}

// asMap returns the tempId -> realId view.
func (t *tempTable) asMap() map[string]string {
	out := make(map[string]string, len(t.bound))
	for id, m := range t.bound {
		out[id] = m.RealID
	}
	return out
}
