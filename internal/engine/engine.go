package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"archplan/internal/model"
	"archplan/internal/plan"
	"archplan/internal/store"
)

// Defaults for Config zero values.
const (
	DefaultMaxChanges        = 500
	DefaultProcessingTimeout = 30 * time.Second
	DefaultIdempotencyTTL    = 24 * time.Hour
)

// Config tunes batch admission and execution.
type Config struct {
	// MaxChanges caps the number of changes per batch.
	MaxChanges int
	// ProcessingTimeout bounds one operation's execution; 0 keeps the
	// default, negative disables the budget.
	ProcessingTimeout time.Duration
	// DefaultDuplicateStrategy applies when neither the batch nor the
	// change names one.
	DefaultDuplicateStrategy plan.Strategy
	// StrictSchema runs CUE schema validation on the raw payload before
	// decoding.
	StrictSchema bool
	// IdempotencyTTL is the replay window for idempotency keys.
	IdempotencyTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxChanges <= 0 {
		c.MaxChanges = DefaultMaxChanges
	}
	if c.ProcessingTimeout == 0 {
		c.ProcessingTimeout = DefaultProcessingTimeout
	}
	if c.DefaultDuplicateStrategy == "" {
		c.DefaultDuplicateStrategy = plan.StrategyError
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = DefaultIdempotencyTTL
	}
	return c
}

// Engine executes accepted batches against the live model.
//
// All model mutations happen in the single-writer Run loop goroutine.
// External callers use Submit to validate and queue a batch; Poll and
// List read operation status from the store.
//
// Thread-safety model:
//   - Submit, Poll, List: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Engine struct {
	store *store.Store
	api   model.API
	stack *model.CommandStack
	queue *taskQueue
	clock *Clock
	idgen IDGenerator
	cfg   Config
	now   func() time.Time
}

// New creates an Engine over the given store and live model.
func New(s *store.Store, api model.API, idgen IDGenerator, cfg Config) *Engine {
	return NewWithClock(s, api, idgen, NewClock(), cfg)
}

// NewWithClock creates an Engine resuming from a pre-seeded clock.
// Used when the status store already holds stamped operations.
func NewWithClock(s *store.Store, api model.API, idgen IDGenerator, clock *Clock, cfg Config) *Engine {
	return &Engine{
		store: s,
		api:   api,
		stack: model.NewCommandStack(api),
		queue: newTaskQueue(),
		clock: clock,
		idgen: idgen,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// Stack returns the undo stack the engine pushes compounds onto.
func (e *Engine) Stack() *model.CommandStack {
	return e.stack
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// QueueLen returns the number of queued batches.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Submit validates a raw batch payload and, if accepted, queues it for
// execution. The returned Operation is the queued snapshot, or the
// prior operation's snapshot on an idempotent replay.
//
// Rejections surface as *plan.ValidationError (malformed batch),
// *ChangeError with CodeIdempotency (key reuse with different payload),
// or ErrQueueClosed (engine stopped).
//
// Thread-safe: may be called from any goroutine.
func (e *Engine) Submit(ctx context.Context, raw []byte) (plan.Operation, error) {
	if e.cfg.StrictSchema {
		if err := plan.ValidateSchema(raw); err != nil {
			return plan.Operation{}, err
		}
	}
	batch, err := plan.ParseBatch(raw)
	if err != nil {
		return plan.Operation{}, err
	}
	if err := plan.Validate(batch, e.cfg.MaxChanges); err != nil {
		return plan.Operation{}, err
	}

	now := e.now()
	opID := e.idgen.NewID()

	if batch.IdempotencyKey != "" {
		hash, err := plan.PayloadHash(raw)
		if err != nil {
			return plan.Operation{}, &plan.ValidationError{Problems: []string{err.Error()}}
		}
		outcome, heldBy, err := e.store.ReserveIdempotency(
			ctx, batch.IdempotencyKey, hash, opID, now, e.cfg.IdempotencyTTL)
		if err != nil {
			return plan.Operation{}, err
		}
		switch outcome {
		case store.ReserveReplay:
			prior, err := e.store.GetOperation(ctx, heldBy, store.PollOptions{})
			if err != nil {
				return plan.Operation{}, fmt.Errorf("idempotent replay of %s: %w", heldBy, err)
			}
			slog.Info("idempotent replay",
				"operation_id", heldBy,
				"idempotency_key", batch.IdempotencyKey,
			)
			return prior, nil
		case store.ReserveConflict:
			return plan.Operation{}, NewChangeError(CodeIdempotency, -1,
				"idempotency key %q was already used with a different payload (operation %s)",
				batch.IdempotencyKey, heldBy)
		}
	}

	op := plan.Operation{
		ID:             opID,
		Status:         plan.StatusQueued,
		Seq:            e.clock.Next(),
		CreatedAt:      now,
		Digest:         plan.PendingDigest(len(batch.Changes)),
		TempIDMap:      map[string]string{},
		IdempotencyKey: batch.IdempotencyKey,
	}
	// A reservation pointing at an operation that never reached the
	// store would poison the key for its whole TTL, so roll it back if
	// queuing fails from here on.
	releaseReservation := func() {
		if batch.IdempotencyKey == "" {
			return
		}
		if rerr := e.store.ReleaseIdempotency(ctx, batch.IdempotencyKey, opID); rerr != nil {
			slog.Error("failed to release idempotency reservation",
				"idempotency_key", batch.IdempotencyKey,
				"operation_id", opID,
				"error", rerr,
			)
		}
	}
	if err := e.store.InsertOperation(ctx, op, len(batch.Changes)); err != nil {
		releaseReservation()
		return plan.Operation{}, err
	}
	if !e.queue.Enqueue(&task{operationID: opID, batch: batch}) {
		releaseReservation()
		return plan.Operation{}, ErrQueueClosed
	}

	slog.Info("batch accepted",
		"operation_id", opID,
		"changes", len(batch.Changes),
		"seq", op.Seq,
	)
	return op, nil
}

// Poll reads one operation's status snapshot.
func (e *Engine) Poll(ctx context.Context, id string, opts store.PollOptions) (plan.Operation, error) {
	return e.store.GetOperation(ctx, id, opts)
}

// List reads a page of recent operation summaries.
func (e *Engine) List(ctx context.Context, opts store.ListOptions) (plan.OperationList, error) {
	return e.store.ListOperations(ctx, opts)
}

// Run starts the single-writer execution loop. Blocks until the context
// is cancelled or Stop is called.
//
// Must be called from exactly one goroutine. All command application
// and undo-stack pushes happen here.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		t, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processBatch(ctx, t); err != nil {
				// Status-store failures are not recoverable from here;
				// the operation stays in its last persisted state for
				// operators to inspect.
				slog.Error("batch processing failed",
					"error", err,
					"operation_id", t.operationID,
				)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine. Run returns once the queue
// drains.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Drain processes every queued batch synchronously on the caller's
// goroutine. For tests and the scenario harness; must not be mixed with
// a concurrent Run loop.
func (e *Engine) Drain(ctx context.Context) error {
	for {
		t, ok := e.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := e.processBatch(ctx, t); err != nil {
			return err
		}
	}
}

// processBatch executes one operation end to end: mark processing, walk
// the changes best-effort, push the compound, finalize status.
//
// Called only from the Run loop (or Drain) goroutine.
func (e *Engine) processBatch(ctx context.Context, t *task) error {
	started := e.now()
	if err := e.store.MarkProcessing(ctx, t.operationID, started); err != nil {
		return err
	}

	var deadline time.Time
	if e.cfg.ProcessingTimeout > 0 {
		deadline = started.Add(e.cfg.ProcessingTimeout)
	}

	label := fmt.Sprintf("apply change plan (%d changes)", len(t.batch.Changes))
	x := newExecutor(e.api, t.batch, e.idgen, e.cfg.DefaultDuplicateStrategy, label)

	status := plan.StatusComplete
	errKind, errMsg := "", ""

	for i := range t.batch.Changes {
		if !deadline.IsZero() && e.now().After(deadline) {
			for j := i; j < len(t.batch.Changes); j++ {
				x.fail(j, &t.batch.Changes[j],
					NewChangeError(CodeTimeout, j, "processing budget exceeded"))
			}
			status = plan.StatusError
			errKind = string(CodeTimeout)
			errMsg = fmt.Sprintf("processing exceeded %s after %d of %d changes",
				e.cfg.ProcessingTimeout, i, len(t.batch.Changes))
			break
		}

		if err := x.applyChange(i, &t.batch.Changes[i]); err != nil {
			// Internal fault: the mutation layer rejected a validated
			// change. Everything applied so far stays applied (and
			// revertible); the rest of the batch is not attempted.
			ce := asChangeError(err, i)
			x.fail(i, &t.batch.Changes[i], ce)
			for j := i + 1; j < len(t.batch.Changes); j++ {
				x.fail(j, &t.batch.Changes[j],
					NewChangeError(CodeInternal, j, "not attempted: aborted after change %d", i))
			}
			status = plan.StatusError
			errKind = string(ce.Code)
			errMsg = ce.Message
			break
		}
	}

	// Partial results are still one undo entry.
	if x.compound.Len() > 0 {
		e.stack.Push(x.compound)
	}

	digest := BuildDigest(t.batch, x.results)
	err := e.store.Finalize(ctx, store.FinalizeParams{
		OperationID:  t.operationID,
		Status:       status,
		CompletedAt:  e.now(),
		Results:      x.results,
		Mappings:     x.temps.mappings(),
		Digest:       digest,
		ErrorKind:    errKind,
		ErrorMessage: errMsg,
	})
	if err != nil {
		return err
	}

	slog.Info("operation finished",
		"operation_id", t.operationID,
		"status", status,
		"executed", digest.Totals.Executed,
		"skipped", digest.Totals.Skipped,
		"failed", digest.Totals.Failed,
	)
	return nil
}

func asChangeError(err error, index int) *ChangeError {
	var ce *ChangeError
	if errors.As(err, &ce) {
		return ce
	}
	return NewChangeError(CodeInternal, index, "%v", err)
}
