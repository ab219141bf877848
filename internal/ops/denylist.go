package ops

import "strings"

// nondeterministic is the fixed set of operations that are pure per schema (no
// written arguments) but can produce different outputs for identical inputs.
// Membership forces "unsafe to deduplicate" irrespective of schema.
//
// The table is owned by this package and deliberately not configurable.
var nondeterministic = map[string]struct{}{
	"core::rand":           {},
	"core::rand_like":      {},
	"core::randn":          {},
	"core::randn_like":     {},
	"core::randint":        {},
	"core::randint_like":   {},
	"core::randperm":       {},
	"core::bernoulli":      {},
	"core::dropout":        {},
	"core::native_dropout": {},
	"core::multinomial":    {},
	"core::normal":         {},
	"core::uniform":        {},
}

// Denylisted reports whether target is a known non-deterministic operation.
// Overload suffixes are ignored: "core::bernoulli.p" matches "core::bernoulli".
func Denylisted(target string) bool {
	name := target
	if i := strings.Index(name, "::"); i >= 0 {
		if j := strings.Index(name[i+2:], "."); j >= 0 {
			name = name[:i+2+j]
		}
	}
	_, ok := nondeterministic[name]
	return ok
}
