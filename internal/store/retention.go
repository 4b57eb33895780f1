package store

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy bounds how long and how many terminal operations the
// store keeps.
type RetentionPolicy struct {
	// MaxAge evicts terminal operations completed longer ago than this.
	MaxAge time.Duration
	// MaxCount caps the number of stored operations; the oldest by seq
	// go first.
	MaxCount int
	// PollGrace protects recently-read operations from eviction so a
	// caller paging through results does not lose its cursor target.
	PollGrace time.Duration
	// IdempotencyTTL expires idempotency records.
	IdempotencyTTL time.Duration
}

// Evict applies the retention policy and returns the number of
// operations removed. Queued and processing operations are never
// evicted. Cascade deletes clean up results and mappings.
func (s *Store) Evict(ctx context.Context, now time.Time, policy RetentionPolicy) (int, error) {
	removed := 0

	if policy.MaxAge > 0 {
		cutoff := formatTime(now.Add(-policy.MaxAge))
		graceCutoff := formatTime(now.Add(-policy.PollGrace))
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM operations
			WHERE status IN ('complete', 'error')
			  AND completed_at < ?
			  AND accessed_at < ?
		`, cutoff, graceCutoff)
		if err != nil {
			return removed, fmt.Errorf("evict by age: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("evict by age: %w", err)
		}
		removed += int(n)
	}

	if policy.MaxCount > 0 {
		graceCutoff := formatTime(now.Add(-policy.PollGrace))
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM operations
			WHERE status IN ('complete', 'error')
			  AND accessed_at < ?
			  AND seq NOT IN (
			      SELECT seq FROM operations ORDER BY seq DESC LIMIT ?
			  )
		`, graceCutoff, policy.MaxCount)
		if err != nil {
			return removed, fmt.Errorf("evict by count: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, fmt.Errorf("evict by count: %w", err)
		}
		removed += int(n)
	}

	if policy.IdempotencyTTL > 0 {
		cutoff := formatTime(now.Add(-policy.IdempotencyTTL))
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM idempotency_records WHERE created_at < ?`, cutoff); err != nil {
			return removed, fmt.Errorf("evict idempotency records: %w", err)
		}
	}

	return removed, nil
}

// Count returns the number of stored operations. Used by tests and the
// retention sweep's logging.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return n, nil
}
