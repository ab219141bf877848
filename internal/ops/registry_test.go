package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace(t *testing.T) {
	assert.Equal(t, "core", Namespace("core::add.Tensor"))
	assert.Equal(t, "vendorx", Namespace("vendorx::gelu"))
	assert.Equal(t, "", Namespace("scalar.add"))
	assert.Equal(t, "", Namespace("add"))
}

func TestIsScalarPrimitive(t *testing.T) {
	assert.True(t, IsScalarPrimitive("scalar.add"))
	assert.True(t, IsScalarPrimitive("scalar.floordiv"))
	assert.False(t, IsScalarPrimitive("scalar."))
	assert.False(t, IsScalarPrimitive("core::add.Tensor"))
	assert.False(t, IsScalarPrimitive("scalarize"))
}

func TestDenylisted_OverloadSuffixIgnored(t *testing.T) {
	assert.True(t, Denylisted("core::rand"))
	assert.True(t, Denylisted("core::bernoulli.p"))
	assert.True(t, Denylisted("core::dropout"))
	assert.False(t, Denylisted("core::add.Tensor"))
	assert.False(t, Denylisted("vendorx::rand"))
}

func TestLookup_BuiltinVocabulary(t *testing.T) {
	r := NewRegistry()

	s, ok := r.Lookup("core::add.Tensor")
	require.True(t, ok)
	assert.False(t, s.Mutates())

	s, ok = r.Lookup("core::index_copy_")
	require.True(t, ok)
	assert.True(t, s.Mutates())

	_, ok = r.Lookup("core::no_such_op")
	assert.False(t, ok)
}

func TestRegister_ExtensionNamespaces(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Schema{Name: "vendorx::gelu", Args: []ArgSpec{{Name: "self"}}})
	require.NoError(t, err)

	_, ok := r.Lookup("vendorx::gelu")
	assert.True(t, ok)

	// Duplicate registration is rejected.
	err = r.Register(Schema{Name: "vendorx::gelu"})
	assert.Error(t, err)

	// The trusted namespace is reserved.
	err = r.Register(Schema{Name: "core::sneaky"})
	assert.Error(t, err)

	err = r.Register(Schema{})
	assert.Error(t, err)
}

func TestMutates_FailsClosed(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Schema{Name: "vendorx::gelu", Args: []ArgSpec{{Name: "self"}}}))

	assert.False(t, r.Mutates("core::relu"), "trusted, read-only schema")
	assert.True(t, r.Mutates("core::copy_"), "written argument")
	assert.True(t, r.Mutates("core::no_such_op"), "missing schema fails closed")
	assert.True(t, r.Mutates("vendorx::gelu"), "untrusted namespace fails closed")
	assert.False(t, r.Mutates("scalar.add"), "scalar primitives never mutate")
}
