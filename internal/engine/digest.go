package engine

import (
	"strings"

	"archplan/internal/plan"
)

// BuildDigest aggregates per-change outcomes for a terminal operation.
// The totals reconcile by construction: every requested change yields
// exactly one result, and every result is counted into exactly one of
// executed, skipped or failed.
func BuildDigest(batch *plan.Batch, results []plan.ChangeResult) plan.Digest {
	d := plan.Digest{
		RequestedByType: map[string]int{},
		ExecutedByType:  map[string]int{},
		SkipsByReason:   map[string]int{},
	}
	d.Totals.Requested = len(batch.Changes)
	d.Totals.Results = len(results)

	for _, c := range batch.Changes {
		d.RequestedByType[string(c.Kind)]++
	}
	for _, r := range results {
		switch r.Outcome {
		case plan.OutcomeExecuted:
			d.Totals.Executed++
			d.ExecutedByType[string(r.Kind)]++
		case plan.OutcomeSkipped:
			d.Totals.Skipped++
			d.SkipsByReason[reasonBucket(r.Reason)]++
		case plan.OutcomeFailed:
			d.Totals.Failed++
		}
	}

	d.IntegrityFlags = plan.IntegrityFlags{
		HasErrors:                   d.Totals.Failed > 0,
		HasSkips:                    d.Totals.Skipped > 0,
		ResultCountMatchesRequested: d.Totals.Results == d.Totals.Requested,
	}
	return d
}

// reasonBucket collapses a reason string to its error-code prefix so the
// skip histogram groups by cause rather than by message detail.
func reasonBucket(reason string) string {
	if i := strings.IndexByte(reason, ':'); i > 0 {
		return reason[:i]
	}
	return reason
}
