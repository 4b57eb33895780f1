package plan

// Ref is an identifier field that may hold either a caller-chosen
// placeholder (tempId) or a real entity ID. The distinction is resolved
// per batch: a value bound in the batch's symbol table is a placeholder,
// anything else is treated as a literal existing-entity ID.
//
// Using a distinct type keeps "maybe a placeholder" out of plain string
// plumbing: every site that consumes a Ref has to go through the
// resolver.
type Ref string

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool {
	return r == ""
}

func (r Ref) String() string {
	return string(r)
}
