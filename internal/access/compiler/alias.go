package compiler

import (
	"fmt"
	"hash/fnv"
)

// aliasFor implements the state machine of spec.md §4.5: a fresh Relation
// link entering a `some(p => ...)` body becomes
// `Aliased("<alias-base>_<hash[0..8]>")`, where alias-base is the
// parameter name (or "nested" if empty) and hash folds
// (alias-base, position, relation-identity) — deterministic by
// construction, seeded only with stable inputs, never a language's default
// (randomized) hasher (spec.md §9 "Higher-order alias hashing").
func aliasFor(paramName string, position int, relationIdentity string) string {
	base := paramName
	if base == "" {
		base = "nested"
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s\x00%d\x00%s", base, position, relationIdentity)
	return fmt.Sprintf("%s_%08x", base, uint32(h.Sum64()))
}

// conflictAlias resolves the alias collision spec.md §4.5 describes when
// joining a nested body's path onto an outer one and the outer's head
// relation link collides with the nested lead-table identity.
func conflictAlias(paramName string) string {
	if paramName == "" {
		return "nested_path"
	}
	return paramName + "_path"
}
