package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ReserveOutcome classifies an idempotency-key reservation.
type ReserveOutcome int

const (
	// ReserveNew means the key was free and is now bound to the caller's
	// operation ID.
	ReserveNew ReserveOutcome = iota
	// ReserveReplay means the key is held with an identical payload
	// hash; the caller should return the prior operation.
	ReserveReplay
	// ReserveConflict means the key is held with a different payload
	// hash; the caller must reject the request.
	ReserveConflict
)

// ReserveIdempotency claims key for operationID, or reports how the key
// is already held. The claim is a single conditional INSERT, so two
// racing submits with the same fresh key resolve to one winner and one
// replay/conflict instead of a constraint error. Expired records are
// removed lazily as they are encountered; the retention sweep clears
// the rest.
func (s *Store) ReserveIdempotency(ctx context.Context, key, payloadHash, operationID string, now time.Time, ttl time.Duration) (ReserveOutcome, string, error) {
	for {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO idempotency_records (key, payload_hash, operation_id, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (key) DO NOTHING
		`, key, payloadHash, operationID, formatTime(now))
		if err != nil {
			return 0, "", fmt.Errorf("reserve idempotency %q: %w", key, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, "", fmt.Errorf("reserve idempotency %q: %w", key, err)
		}
		if n == 1 {
			return ReserveNew, operationID, nil
		}

		var (
			storedHash string
			storedOp   string
			createdAt  string
		)
		err = s.db.QueryRowContext(ctx, `
			SELECT payload_hash, operation_id, created_at
			FROM idempotency_records WHERE key = ?
		`, key).Scan(&storedHash, &storedOp, &createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			// The holder vanished between the insert and the read;
			// try to claim again.
			continue
		}
		if err != nil {
			return 0, "", fmt.Errorf("reserve idempotency %q: %w", key, err)
		}

		created, perr := parseTime(createdAt)
		if perr != nil {
			return 0, "", fmt.Errorf("reserve idempotency %q: %w", key, perr)
		}
		if now.Sub(created) <= ttl {
			if storedHash == payloadHash {
				return ReserveReplay, storedOp, nil
			}
			return ReserveConflict, storedOp, nil
		}

		// Expired record; clear exactly that record and retry the claim.
		if _, derr := s.db.ExecContext(ctx, `
			DELETE FROM idempotency_records WHERE key = ? AND created_at = ?
		`, key, createdAt); derr != nil {
			return 0, "", fmt.Errorf("reserve idempotency %q: expire: %w", key, derr)
		}
	}
}

// ReleaseIdempotency drops a reservation this operation holds. Used to
// roll back a claim when the operation could not be queued after all;
// a reservation held by a different operation is left alone.
func (s *Store) ReleaseIdempotency(ctx context.Context, key, operationID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM idempotency_records WHERE key = ? AND operation_id = ?
	`, key, operationID)
	if err != nil {
		return fmt.Errorf("release idempotency %q: %w", key, err)
	}
	return nil
}
