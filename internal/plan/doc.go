// Package plan defines the change-plan vocabulary: the closed set of
// change kinds a batch may request, the batch envelope, and the tracked
// Operation types returned to callers.
//
// The vocabulary is a tagged union. Every Change carries exactly one
// kind-specific argument struct, selected by the "kind" field on the
// wire, so the validator and the processor can match exhaustively
// instead of probing loose maps for field presence.
//
// Identifier fields that may hold either a caller-chosen placeholder
// (tempId) or a real entity ID are typed as Ref, never plain string.
// Resolution happens in the engine; an unknown placeholder is a
// per-change reference error, not a silent fall-through to "real ID".
//
// The package also provides canonical JSON serialization (RFC 8785
// style: sorted keys by UTF-16 code units, NFC-normalized strings, no
// HTML escaping, integers only) and the domain-separated SHA-256
// payload hash used for idempotent replay detection. The hash excludes
// the idempotency key itself, so field order and key placement never
// cause false conflicts.
package plan
