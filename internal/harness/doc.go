// Package harness runs YAML-defined conformance scenarios against a
// real engine: fresh in-memory model and status store, deterministic ID
// generation, synchronous draining. Scenarios submit raw batch payloads
// exactly as an HTTP client would and assert on operation outcomes and
// final model state; golden files snapshot the full result stream.
package harness
