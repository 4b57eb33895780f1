package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"archplan/internal/plan"
)

// ErrNotFound is returned for unknown or already-evicted operation IDs.
var ErrNotFound = errors.New("operation not found")

// ErrBadCursor is returned when a pagination cursor cannot be parsed.
// Cursors are opaque to callers but not to us.
var ErrBadCursor = errors.New("invalid pagination cursor")

// DefaultPageSize bounds result pages when the caller gives no size.
const DefaultPageSize = 200

// MaxPageSize caps caller-requested page sizes.
const MaxPageSize = 1000

func clampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// PollOptions controls one status read.
type PollOptions struct {
	// Cursor resumes the results page; empty starts from the beginning.
	Cursor string
	// PageSize bounds the results page; 0 means DefaultPageSize.
	PageSize int
	// SummaryOnly omits per-change results entirely.
	SummaryOnly bool
}

// GetOperation reads one operation snapshot. Reading refreshes the
// operation's accessed_at so retention will not evict a record a
// caller is still paging through.
func (s *Store) GetOperation(ctx context.Context, id string, opts PollOptions) (plan.Operation, error) {
	var (
		op          plan.Operation
		createdAt   string
		startedAt   sql.NullString
		completedAt sql.NullString
		digestJSON  string
	)
	op.ID = id

	err := s.db.QueryRowContext(ctx, `
		SELECT seq, status, created_at, started_at, completed_at, digest,
		       error_kind, error_message, idempotency_key
		FROM operations WHERE id = ?
	`, id).Scan(
		&op.Seq, &op.Status, &createdAt, &startedAt, &completedAt, &digestJSON,
		&op.ErrorKind, &op.ErrorMessage, &op.IdempotencyKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return plan.Operation{}, ErrNotFound
	}
	if err != nil {
		return plan.Operation{}, fmt.Errorf("get operation %s: %w", id, err)
	}

	if op.CreatedAt, err = parseTime(createdAt); err != nil {
		return plan.Operation{}, fmt.Errorf("get operation %s: %w", id, err)
	}
	if startedAt.Valid {
		t, err := parseTime(startedAt.String)
		if err != nil {
			return plan.Operation{}, fmt.Errorf("get operation %s: %w", id, err)
		}
		op.StartedAt = &t
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return plan.Operation{}, fmt.Errorf("get operation %s: %w", id, err)
		}
		op.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(digestJSON), &op.Digest); err != nil {
		return plan.Operation{}, fmt.Errorf("get operation %s: decode digest: %w", id, err)
	}

	if op.TempIDMap, op.TempIDMappings, err = s.readMappings(ctx, id); err != nil {
		return plan.Operation{}, err
	}

	if !opts.SummaryOnly {
		if err := s.readResultsPage(ctx, &op, opts); err != nil {
			return plan.Operation{}, err
		}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE operations SET accessed_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return plan.Operation{}, fmt.Errorf("get operation %s: touch: %w", id, err)
	}

	return op, nil
}

func (s *Store) readMappings(ctx context.Context, id string) (map[string]string, []plan.TempIDMapping, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT temp_id, real_id, entity_kind
		FROM tempid_mappings WHERE operation_id = ? ORDER BY ord
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("read mappings %s: %w", id, err)
	}
	defer rows.Close()

	asMap := map[string]string{}
	var mappings []plan.TempIDMapping
	for rows.Next() {
		var m plan.TempIDMapping
		if err := rows.Scan(&m.TempID, &m.RealID, &m.EntityKind); err != nil {
			return nil, nil, fmt.Errorf("read mappings %s: %w", id, err)
		}
		asMap[m.TempID] = m.RealID
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("read mappings %s: %w", id, err)
	}
	return asMap, mappings, nil
}

func (s *Store) readResultsPage(ctx context.Context, op *plan.Operation, opts PollOptions) error {
	afterIdx := -1
	if opts.Cursor != "" {
		n, err := strconv.Atoi(opts.Cursor)
		if err != nil || n < 0 {
			return ErrBadCursor
		}
		afterIdx = n
	}
	pageSize := clampPageSize(opts.PageSize)

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, kind, outcome, reason, produced_id
		FROM change_results
		WHERE operation_id = ? AND idx > ?
		ORDER BY idx LIMIT ?
	`, op.ID, afterIdx, pageSize+1)
	if err != nil {
		return fmt.Errorf("read results %s: %w", op.ID, err)
	}
	defer rows.Close()

	var results []plan.ChangeResult
	for rows.Next() {
		var r plan.ChangeResult
		if err := rows.Scan(&r.Index, &r.Kind, &r.Outcome, &r.Reason, &r.ProducedID); err != nil {
			return fmt.Errorf("read results %s: %w", op.ID, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read results %s: %w", op.ID, err)
	}

	if len(results) > pageSize {
		results = results[:pageSize]
		op.HasMore = true
		op.NextCursor = strconv.Itoa(results[len(results)-1].Index)
	}
	op.Results = results
	return nil
}

// ListOptions controls one listing page.
type ListOptions struct {
	// Cursor resumes a listing; empty starts from the most recent.
	Cursor string
	// PageSize bounds the page; 0 means DefaultPageSize.
	PageSize int
	// Status restricts the listing to one lifecycle state; empty
	// returns all.
	Status plan.Status
}

// ListOperations returns operation summaries, most recent first.
// Summaries carry the digest but no per-change results.
func (s *Store) ListOperations(ctx context.Context, opts ListOptions) (plan.OperationList, error) {
	beforeSeq := int64(1<<62 - 1)
	if opts.Cursor != "" {
		n, err := strconv.ParseInt(opts.Cursor, 10, 64)
		if err != nil || n < 0 {
			return plan.OperationList{}, ErrBadCursor
		}
		beforeSeq = n
	}
	pageSize := clampPageSize(opts.PageSize)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM operations
		WHERE seq < ? AND (? = '' OR status = ?)
		ORDER BY seq DESC LIMIT ?
	`, beforeSeq, string(opts.Status), string(opts.Status), pageSize+1)
	if err != nil {
		return plan.OperationList{}, fmt.Errorf("list operations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return plan.OperationList{}, fmt.Errorf("list operations: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return plan.OperationList{}, fmt.Errorf("list operations: %w", err)
	}

	var list plan.OperationList
	if len(ids) > pageSize {
		ids = ids[:pageSize]
		list.HasMore = true
	}

	for _, id := range ids {
		op, err := s.GetOperation(ctx, id, PollOptions{SummaryOnly: true})
		if err != nil {
			return plan.OperationList{}, err
		}
		list.Operations = append(list.Operations, op)
	}
	if list.HasMore && len(list.Operations) > 0 {
		last := list.Operations[len(list.Operations)-1]
		list.NextCursor = strconv.FormatInt(last.Seq, 10)
	}
	return list, nil
}
