package ops

import (
	"strings"

	"github.com/pkg/errors"
)

// TrustedNamespace is the operation namespace whose schema metadata is
// considered authoritative. Schemas registered under any other namespace have
// untrusted mutation/side-effect annotations.
const TrustedNamespace = "core"

// ScalarPrefix marks schema-less scalar arithmetic primitives ("scalar.add",
// "scalar.mul", ...). They operate on literal scalars only and are pure and
// deterministic by construction.
const ScalarPrefix = "scalar."

// Registry maps qualified operation names to their schemas.
//
// A Registry is immutable after construction except through Register, which is
// intended for model-specific extension namespaces. It is safe for concurrent
// read access once registration is done.
type Registry struct {
	schemas map[string]Schema
}

// NewRegistry returns a registry seeded with the built-in core vocabulary.
func NewRegistry() *Registry {
	r := &Registry{schemas: make(map[string]Schema, len(builtins))}
	for _, s := range builtins {
		r.schemas[s.Name] = s
	}
	return r
}

// Register adds a schema for an extension operation. Re-registering an existing
// name or claiming the trusted namespace is rejected.
func (r *Registry) Register(s Schema) error {
	if s.Name == "" {
		return errors.New("ops: schema has no name")
	}
	if Namespace(s.Name) == TrustedNamespace {
		return errors.Errorf("ops: cannot register %q: namespace %q is reserved", s.Name, TrustedNamespace)
	}
	if _, exists := r.schemas[s.Name]; exists {
		return errors.Errorf("ops: %q already registered", s.Name)
	}
	r.schemas[s.Name] = s
	return nil
}

// Lookup returns the schema for a qualified operation name.
func (r *Registry) Lookup(target string) (Schema, bool) {
	s, ok := r.schemas[target]
	return s, ok
}

// Mutates reports whether an operation may write through its arguments.
// It fails closed: a missing schema, an untrusted namespace, or any written
// argument all report true. Scalar primitives never mutate.
//
// This is the retention predicate handed to dead-code elimination.
func (r *Registry) Mutates(target string) bool {
	if IsScalarPrimitive(target) {
		return false
	}
	s, ok := r.schemas[target]
	if !ok {
		return true
	}
	if Namespace(target) != TrustedNamespace {
		return true
	}
	return s.Mutates()
}

// Namespace extracts the namespace of a qualified operation name:
// "core::add.Tensor" -> "core". Names without a namespace separator have no
// namespace.
func Namespace(target string) string {
	if i := strings.Index(target, "::"); i >= 0 {
		return target[:i]
	}
	return ""
}

// IsScalarPrimitive reports whether target is a schema-less scalar arithmetic
// primitive.
func IsScalarPrimitive(target string) bool {
	return strings.HasPrefix(target, ScalarPrefix) && len(target) > len(ScalarPrefix)
}

// builtins is the core operation vocabulary.
//
// In-place variants follow the trailing-underscore convention and annotate
// their self argument as written. The random family carries no written
// arguments; its unsafety comes from the non-determinism denylist instead.
var builtins = []Schema{
	// Elementwise arithmetic.
	{Name: "core::add.Tensor", Args: []ArgSpec{{Name: "self"}, {Name: "other"}, {Name: "alpha"}}},
	{Name: "core::sub.Tensor", Args: []ArgSpec{{Name: "self"}, {Name: "other"}, {Name: "alpha"}}},
	{Name: "core::mul.Tensor", Args: []ArgSpec{{Name: "self"}, {Name: "other"}}},
	{Name: "core::div.Tensor", Args: []ArgSpec{{Name: "self"}, {Name: "other"}}},
	{Name: "core::neg", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::abs", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::exp", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::sqrt", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::rsqrt", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::clamp", Args: []ArgSpec{{Name: "self"}, {Name: "min"}, {Name: "max"}}},

	// In-place variants (written self).
	{Name: "core::add_.Tensor", Args: []ArgSpec{{Name: "self", Written: true}, {Name: "other"}, {Name: "alpha"}}},
	{Name: "core::mul_.Tensor", Args: []ArgSpec{{Name: "self", Written: true}, {Name: "other"}}},
	{Name: "core::copy_", Args: []ArgSpec{{Name: "self", Written: true}, {Name: "src"}, {Name: "non_blocking"}}},
	{Name: "core::index_copy_", Args: []ArgSpec{{Name: "self", Written: true}, {Name: "dim"}, {Name: "index"}, {Name: "source"}}},
	{Name: "core::index_put_", Args: []ArgSpec{{Name: "self", Written: true}, {Name: "indices"}, {Name: "values"}, {Name: "accumulate"}}},

	// Matrix / reduction.
	{Name: "core::mm", Args: []ArgSpec{{Name: "self"}, {Name: "mat2"}}},
	{Name: "core::bmm", Args: []ArgSpec{{Name: "self"}, {Name: "mat2"}}},
	{Name: "core::matmul", Args: []ArgSpec{{Name: "self"}, {Name: "other"}}},
	{Name: "core::sum.dim_IntList", Args: []ArgSpec{{Name: "self"}, {Name: "dim"}, {Name: "keepdim"}, {Name: "dtype"}}},
	{Name: "core::mean.dim", Args: []ArgSpec{{Name: "self"}, {Name: "dim"}, {Name: "keepdim"}, {Name: "dtype"}}},
	{Name: "core::softmax.int", Args: []ArgSpec{{Name: "self"}, {Name: "dim"}, {Name: "dtype"}}},

	// Shape / selection (read-only views or copies).
	{Name: "core::view", Args: []ArgSpec{{Name: "self"}, {Name: "size"}}},
	{Name: "core::reshape", Args: []ArgSpec{{Name: "self"}, {Name: "shape"}}},
	{Name: "core::permute", Args: []ArgSpec{{Name: "self"}, {Name: "dims"}}},
	{Name: "core::transpose.int", Args: []ArgSpec{{Name: "self"}, {Name: "dim0"}, {Name: "dim1"}}},
	{Name: "core::select.int", Args: []ArgSpec{{Name: "self"}, {Name: "dim"}, {Name: "index"}}},
	{Name: "core::slice.Tensor", Args: []ArgSpec{{Name: "self"}, {Name: "dim"}, {Name: "start"}, {Name: "end"}, {Name: "step"}}},
	{Name: "core::cat", Args: []ArgSpec{{Name: "tensors"}, {Name: "dim"}}},
	{Name: "core::item", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::to.dtype", Args: []ArgSpec{{Name: "self"}, {Name: "dtype"}, {Name: "non_blocking"}, {Name: "copy"}, {Name: "memory_format"}}},

	// Activations.
	{Name: "core::relu", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::gelu", Args: []ArgSpec{{Name: "self"}, {Name: "approximate"}}},
	{Name: "core::sigmoid", Args: []ArgSpec{{Name: "self"}}},
	{Name: "core::tanh", Args: []ArgSpec{{Name: "self"}}},

	// Random family: pure per schema, non-deterministic per denylist.
	{Name: "core::rand", Args: []ArgSpec{{Name: "size"}, {Name: "dtype"}, {Name: "device"}}},
	{Name: "core::rand_like", Args: []ArgSpec{{Name: "self"}, {Name: "dtype"}}},
	{Name: "core::randn", Args: []ArgSpec{{Name: "size"}, {Name: "dtype"}, {Name: "device"}}},
	{Name: "core::randn_like", Args: []ArgSpec{{Name: "self"}, {Name: "dtype"}}},
	{Name: "core::randint", Args: []ArgSpec{{Name: "low"}, {Name: "high"}, {Name: "size"}}},
	{Name: "core::randint_like", Args: []ArgSpec{{Name: "self"}, {Name: "high"}}},
	{Name: "core::randperm", Args: []ArgSpec{{Name: "n"}}},
	{Name: "core::bernoulli", Args: []ArgSpec{{Name: "self"}, {Name: "generator"}}},
	{Name: "core::dropout", Args: []ArgSpec{{Name: "input"}, {Name: "p"}, {Name: "train"}}},
	{Name: "core::native_dropout", Args: []ArgSpec{{Name: "input"}, {Name: "p"}, {Name: "train"}}},
	{Name: "core::multinomial", Args: []ArgSpec{{Name: "self"}, {Name: "num_samples"}, {Name: "replacement"}}},
	{Name: "core::normal", Args: []ArgSpec{{Name: "mean"}, {Name: "std"}, {Name: "size"}}},
	{Name: "core::uniform", Args: []ArgSpec{{Name: "self"}, {Name: "from"}, {Name: "to"}}},
}
