package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archplan/internal/plan"
)

// InsertOperation records a freshly accepted operation in "queued"
// state with a pending digest.
func (s *Store) InsertOperation(ctx context.Context, op plan.Operation, requested int) error {
	digestJSON, err := json.Marshal(op.Digest)
	if err != nil {
		return fmt.Errorf("insert operation: marshal digest: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operations
		(id, seq, status, created_at, accessed_at, requested, digest, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		op.ID,
		op.Seq,
		string(op.Status),
		formatTime(op.CreatedAt),
		formatTime(op.CreatedAt),
		requested,
		string(digestJSON),
		op.IdempotencyKey,
	)
	if err != nil {
		return fmt.Errorf("insert operation %s: %w", op.ID, err)
	}
	return nil
}

// MarkProcessing transitions an operation from queued to processing.
func (s *Store) MarkProcessing(ctx context.Context, id string, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE operations SET status = ?, started_at = ?
		WHERE id = ? AND status = ?
	`, string(plan.StatusProcessing), formatTime(startedAt), id, string(plan.StatusQueued))
	if err != nil {
		return fmt.Errorf("mark processing %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processing %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark processing %s: operation not queued", id)
	}
	return nil
}

// FinalizeParams carries everything a terminal transition writes.
type FinalizeParams struct {
	OperationID  string
	Status       plan.Status
	CompletedAt  time.Time
	Results      []plan.ChangeResult
	Mappings     []plan.TempIDMapping
	Digest       plan.Digest
	ErrorKind    string
	ErrorMessage string
}

// Finalize writes the terminal status, results, mappings, and digest in
// one transaction. A poller never observes a terminal status with a
// partial result set.
func (s *Store) Finalize(ctx context.Context, p FinalizeParams) error {
	if !p.Status.Terminal() {
		return fmt.Errorf("finalize %s: status %q is not terminal", p.OperationID, p.Status)
	}
	digestJSON, err := json.Marshal(p.Digest)
	if err != nil {
		return fmt.Errorf("finalize %s: marshal digest: %w", p.OperationID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finalize %s: begin: %w", p.OperationID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE operations
		SET status = ?, completed_at = ?, digest = ?, error_kind = ?, error_message = ?
		WHERE id = ?
	`,
		string(p.Status),
		formatTime(p.CompletedAt),
		string(digestJSON),
		p.ErrorKind,
		p.ErrorMessage,
		p.OperationID,
	)
	if err != nil {
		return fmt.Errorf("finalize %s: update: %w", p.OperationID, err)
	}

	for _, r := range p.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO change_results (operation_id, idx, kind, outcome, reason, produced_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.OperationID, r.Index, string(r.Kind), string(r.Outcome), r.Reason, r.ProducedID)
		if err != nil {
			return fmt.Errorf("finalize %s: result %d: %w", p.OperationID, r.Index, err)
		}
	}

	for ord, m := range p.Mappings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tempid_mappings (operation_id, ord, temp_id, real_id, entity_kind)
			VALUES (?, ?, ?, ?, ?)
		`, p.OperationID, ord, m.TempID, m.RealID, m.EntityKind)
		if err != nil {
			return fmt.Errorf("finalize %s: mapping %q: %w", p.OperationID, m.TempID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finalize %s: commit: %w", p.OperationID, err)
	}
	return nil
}
