// Package ops defines the operation vocabulary and safety metadata consulted by
// rewrite passes.
//
// Each operation is described by a sealed Schema record (namespace-qualified
// name plus per-argument aliasing annotations) rather than runtime
// introspection. Only the core namespace's schemas are considered authoritative;
// extension namespaces may register schemas but are never trusted for
// deduplication decisions.
package ops

// ArgSpec describes one declared argument of an operation.
type ArgSpec struct {
	Name string

	// Written marks the argument as mutably aliased: the operation writes
	// through it in place. Any written argument makes the operation unsafe to
	// deduplicate.
	Written bool
}

// Schema is the authoritative metadata record for one operation.
type Schema struct {
	// Name is the qualified operation name, e.g. "core::add.Tensor".
	Name string

	// Args lists the declared positional/keyword arguments in schema order.
	Args []ArgSpec
}

// Mutates reports whether any declared argument is annotated as written.
func (s Schema) Mutates() bool {
	for _, a := range s.Args {
		if a.Written {
			return true
		}
	}
	return false
}
