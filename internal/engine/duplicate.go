package engine

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"archplan/internal/model"
	"archplan/internal/plan"
)

// normalizeName puts a name into NFC so that identity matching is
// form-insensitive. Names are normalized both when stored and when
// matched, so exact map lookups suffice downstream.
func normalizeName(s string) string {
	return norm.NFC.String(s)
}

// effectiveStrategy resolves the duplicate strategy for one change.
// Precedence: createOrGet kinds always reuse, then the per-change
// override, then the batch default, then the engine default.
func effectiveStrategy(c *plan.Change, batch *plan.Batch, fallback plan.Strategy) plan.Strategy {
	if c.Kind.IsCreateOrGet() {
		return plan.StrategyReuse
	}
	if c.OnDuplicate != "" {
		return c.OnDuplicate
	}
	if batch.DuplicateStrategy != "" {
		return batch.DuplicateStrategy
	}
	if fallback != "" {
		return fallback
	}
	return plan.StrategyError
}

// duplicateMatch describes an existing entity equivalent to a requested
// create.
type duplicateMatch struct {
	id   string
	name string
}

// findDuplicateElement matches on type plus NFC-normalized name.
func findDuplicateElement(api model.API, typ, name string) (duplicateMatch, bool) {
	el, ok := api.FindElement(typ, normalizeName(name))
	if !ok {
		return duplicateMatch{}, false
	}
	return duplicateMatch{id: el.ID, name: el.Name}, true
}

// findDuplicateRelationship matches on type, resolved endpoints, and
// NFC-normalized name. Two unnamed relationships of the same type
// between the same endpoints are duplicates.
func findDuplicateRelationship(api model.API, typ, source, target, name string) (duplicateMatch, bool) {
	rel, ok := api.FindRelationship(typ, source, target, normalizeName(name))
	if !ok {
		return duplicateMatch{}, false
	}
	return duplicateMatch{id: rel.ID, name: rel.Name}, true
}

// findDuplicateFolder matches on NFC-normalized name under the same
// parent.
func findDuplicateFolder(api model.API, name, parent string) (duplicateMatch, bool) {
	f, ok := api.FindFolder(normalizeName(name), parent)
	if !ok {
		return duplicateMatch{}, false
	}
	return duplicateMatch{id: f.ID, name: f.Name}, true
}

// findDuplicateView matches on NFC-normalized name, model-wide.
func findDuplicateView(api model.API, name string) (duplicateMatch, bool) {
	v, ok := api.FindView(normalizeName(name))
	if !ok {
		return duplicateMatch{}, false
	}
	return duplicateMatch{id: v.ID, name: v.Name}, true
}

// renameFor returns the first free disambiguated name: "Name (2)",
// "Name (3)", and so on. taken reports whether a candidate still
// collides under the change's identity key.
func renameFor(base string, taken func(candidate string) bool) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
