// Package engine implements the change-plan execution engine.
//
// The engine accepts batches of heterogeneous change requests against a
// live architecture model, executes them on a single confined writer,
// resolves forward references between changes in the same batch, applies
// duplicate-creation policy, and bundles every applied mutation into one
// undoable step.
//
// ARCHITECTURE:
//
// Single-Writer Batch Loop:
// All model mutation happens in one goroutine. Run() drains a FIFO
// queue of submitted batches strictly one at a time, because the host
// mutation API is not reentrant and the undo stack must see exactly one
// compound entry per batch. Submitters never touch the model; they talk
// to the queue and the status store only.
//
// Batch Processing Flow:
//  1. Submit(): static validation, idempotency reservation, operation
//     row inserted as "queued", task enqueued. Non-blocking.
//  2. Run() dequeues one task, marks the operation "processing".
//  3. Per change, in array order: temp references resolved, live
//     referential checks against the current (possibly already
//     partially mutated) model, duplicate policy, mutation applied and
//     wrapped as a revertible command.
//  4. Applied commands accumulate into one compound command; after the
//     batch it is pushed as a single undo entry (nothing is pushed when
//     no change applied).
//  5. Results, tempId mappings and the digest are finalized in the
//     status store for polling.
//
// Failure isolation is best-effort by design: a failing change does not
// roll back earlier changes in the same batch. The caller gets a full
// per-change account instead, and the interactive user can still revert
// the whole partial result with one undo.
//
// A wall-clock budget bounds processing; on expiry the operation
// terminates as "error" with a timeout reason, but mutations already
// applied remain part of the undo bundle.
package engine
