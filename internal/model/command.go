package model

import "fmt"

// Command is one atomic, revertible mutation against the live model.
//
// Apply and Revert are exact inverses: Revert after a successful Apply
// must restore the model to its prior state. Commands that cascade
// (element and view deletes) capture the removed dependents during Apply
// so Revert can rebuild them.
type Command interface {
	Apply(api API) error
	Revert(api API) error
	Label() string
}

// Compound bundles the sub-commands applied for one batch into a single
// undo-stack entry. Revert runs in reverse application order.
type Compound struct {
	label string
	subs  []Command
}

// NewCompound creates an empty compound command with a user-visible label.
func NewCompound(label string) *Compound {
	return &Compound{label: label}
}

// Append adds an already-applied sub-command.
func (c *Compound) Append(cmd Command) {
	c.subs = append(c.subs, cmd)
}

// Len returns the number of accumulated sub-commands.
func (c *Compound) Len() int {
	return len(c.subs)
}

// Apply re-applies every sub-command in order. Used by Redo.
func (c *Compound) Apply(api API) error {
	for i, sub := range c.subs {
		if err := sub.Apply(api); err != nil {
			return fmt.Errorf("compound %q sub %d: %w", c.label, i, err)
		}
	}
	return nil
}

// Revert undoes every sub-command in reverse order.
func (c *Compound) Revert(api API) error {
	for i := len(c.subs) - 1; i >= 0; i-- {
		if err := c.subs[i].Revert(api); err != nil {
			return fmt.Errorf("compound %q sub %d: %w", c.label, i, err)
		}
	}
	return nil
}

func (c *Compound) Label() string {
	return c.label
}

// CommandStack is the host's undo/redo stack. One entry per completed
// batch; Push takes a command that has ALREADY been applied (the engine
// applies sub-commands as it processes changes, so the partially mutated
// model is visible to later changes in the same batch).
//
// Single-writer only, like everything else in this package.
type CommandStack struct {
	model API
	undo  []Command
	redo  []Command
}

// NewCommandStack creates a stack bound to a model.
func NewCommandStack(m API) *CommandStack {
	return &CommandStack{model: m}
}

// Push records an already-applied command as one undo entry and clears
// the redo history.
func (s *CommandStack) Push(cmd Command) {
	s.undo = append(s.undo, cmd)
	s.redo = nil
}

// Undo reverts the most recent entry. Returns the entry's label.
func (s *CommandStack) Undo() (string, error) {
	if len(s.undo) == 0 {
		return "", fmt.Errorf("undo: stack is empty")
	}
	cmd := s.undo[len(s.undo)-1]
	if err := cmd.Revert(s.model); err != nil {
		return "", fmt.Errorf("undo %q: %w", cmd.Label(), err)
	}
	s.undo = s.undo[:len(s.undo)-1]
	s.redo = append(s.redo, cmd)
	return cmd.Label(), nil
}

// Redo re-applies the most recently undone entry.
func (s *CommandStack) Redo() (string, error) {
	if len(s.redo) == 0 {
		return "", fmt.Errorf("redo: stack is empty")
	}
	cmd := s.redo[len(s.redo)-1]
	if err := cmd.Apply(s.model); err != nil {
		return "", fmt.Errorf("redo %q: %w", cmd.Label(), err)
	}
	s.redo = s.redo[:len(s.redo)-1]
	s.undo = append(s.undo, cmd)
	return cmd.Label(), nil
}

// Depth returns the number of undoable entries.
func (s *CommandStack) Depth() int {
	return len(s.undo)
}

// RedoDepth returns the number of redoable entries.
func (s *CommandStack) RedoDepth() int {
	return len(s.redo)
}
