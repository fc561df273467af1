package resolver

import (
	"golang.org/x/sync/errgroup"

	"github.com/stokaro/exoptah/internal/diagnostic"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// BuildMany resolves several independent ast.System values concurrently
// (spec.md §5 "safe to run multiple compilations in parallel"). Each system
// gets its own Resolver instance built from opts, so there is no shared
// mutable state between goroutines: Build's internal diagnostic.Bag and
// resolved.System are per-call, not shared, which is what makes fanning out
// across systems safe when fanning out across modules of the same system
// would not be (a single system's passes share state on purpose, to let
// types refer to each other regardless of declaration order).
//
// Results are returned in the same order as systems; a failure in one system
// does not cancel resolution of the others.
func BuildMany(systems []ast.System, opts ...Option) ([]*resolved.System, [][]diagnostic.Diagnostic) {
	results := make([]*resolved.System, len(systems))
	diags := make([][]diagnostic.Diagnostic, len(systems))

	var g errgroup.Group
	for i, sys := range systems {
		i, sys := i, sys
		g.Go(func() error {
			r := New(opts...)
			out, d := r.Build(sys)
			results[i] = out
			diags[i] = d
			return nil
		})
	}
	_ = g.Wait() // Build never returns an error itself; failures live in diags.

	return results, diags
}
