// Package store persists operation status, per-change results, tempId
// mappings, and idempotency records in SQLite.
//
// The store is the durable side of the engine: the model itself lives
// in the host process, but everything a caller can poll for survives
// here. All writes come from the engine's single writer; reads may come
// from any HTTP handler goroutine, which WAL mode supports.
package store
