// Package model defines the live-model boundary the change-plan engine
// mutates: elements, relationships, folders, and views with their placed
// objects and connections, plus the undo/redo command stack the host
// exposes.
//
// The host application owns the real model; this package specifies the
// mutation surface as the API interface and ships Memory, an in-memory
// reference implementation used by the engine in standalone mode and by
// tests.
//
// MUTATION DISCIPLINE:
//
// Nothing in this package is safe for concurrent mutation. The engine's
// single-writer loop is the only caller that may mutate a model or its
// command stack. Read access from other goroutines is not supported;
// readers go through the status store instead.
//
// Commands are applied as they are built, one per requested change. The
// batch's compound command is pushed onto the CommandStack already
// applied, so the whole batch reverts as a single user-visible undo step.
package model
