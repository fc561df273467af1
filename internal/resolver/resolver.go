// Package resolver elaborates a typechecked ast.System into a typed,
// normalized resolved.System: entities, fields, relations, primary keys,
// default values, and annotations (spec.md §4.1). It never panics —
// every violation becomes a diagnostic.Diagnostic appended to a shared
// diagnostic.Bag, and Build returns a batch of them instead of failing on
// the first one (spec.md §4.1 "Failure semantics").
package resolver

import (
	"log/slog"
	"sort"

	"github.com/stokaro/exoptah/internal/diagnostic"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

// Resolver holds the handful of cross-cutting knobs ambient across a
// resolution pass: a logger (matches migrator.Migrator's WithLogger
// pattern) and the diagnostic bag every method appends to.
type Resolver struct {
	logger *slog.Logger
	bag    *diagnostic.Bag
}

// Option configures a Resolver at construction.
type Option func(*Resolver)

// WithLogger overrides the resolver's logger; default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New returns a ready-to-use Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{logger: slog.Default(), bag: &diagnostic.Bag{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// pendingType is the intermediate state for a declared type while its
// fields are still being resolved: enough to let other types refer to it
// by name before every field is finished (handles forward references and
// relation cycles without needing pointers, per spec.md §9).
type pendingType struct {
	decl     ast.TypeDecl
	schema   string
	composite *resolved.Composite
}

// Build elaborates sys into a resolved.System, or returns the accumulated
// diagnostics if any module failed to resolve (spec.md §4.1 "build").
func (r *Resolver) Build(sys ast.System) (*resolved.System, []diagnostic.Diagnostic) {
	out := resolved.NewSystem()
	out.Contexts = sys.Contexts

	fragments := map[string]ast.FragmentDecl{}
	enums := map[string]ast.EnumDecl{}
	pending := map[string]*pendingType{}

	for _, m := range sys.Modules {
		defaultSchema := r.moduleSchema(m)
		for _, d := range m.Declarations {
			switch decl := d.(type) {
			case ast.FragmentDecl:
				fragments[decl.Name.Name] = decl
			case ast.EnumDecl:
				enums[decl.Name.Name] = decl
			}
		}
		for _, d := range m.Declarations {
			td, ok := d.(ast.TypeDecl)
			if !ok {
				continue
			}
			pending[td.Name.Name] = &pendingType{decl: td, schema: defaultSchema}
		}
	}

	// Declaration order in the AST is stable, but the intermediate maps
	// above are not; iterating them directly would let the arena's
	// composite/enum order (and thus every CompositeID/EnumID) vary from
	// run to run on identical input, which breaks anything downstream
	// that assumes two builds of the same system are structurally equal
	// (spec.md §8's "two runs produce equal IRs" property). Sorting by
	// name makes the arena order a function of the input alone.
	enumNames := make([]string, 0, len(enums))
	for name := range enums {
		enumNames = append(enumNames, name)
	}
	sort.Strings(enumNames)
	for _, name := range enumNames {
		decl := enums[name]
		out.AddEnum(&resolved.Enum{
			Name:     name,
			Variants: identNames(decl.Variants),
			DBName:   resolved.TableName{Name: "enum_" + toSnakeCase(name)},
		})
	}

	typeNames := make([]string, 0, len(pending))
	for name := range pending {
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)

	// Pass 1: create composite shells (table identity, representation) so
	// field resolution in pass 2 and relation inference in pass 3 can look
	// up any type by name regardless of declaration order.
	for _, name := range typeNames {
		pt := pending[name]
		composite := r.buildShell(pt.decl, pt.schema, fragments)
		pt.composite = composite
		out.AddComposite(composite)
	}

	// Pass 2: flatten fragments and resolve each field's type, defaults,
	// uniques/indices, and vector attributes now that every composite name
	// is registered.
	for _, name := range typeNames {
		pt := pending[name]
		r.resolveFields(pt.decl, pt.composite, out, fragments)
	}

	// Pass 3: infer relations between resolved composites (spec.md §4.1
	// "Cardinality inference"), now that all fields have resolved types.
	r.inferRelations(pending, out)

	// Pass 4: validate cross-cutting invariants (spec.md §3 "Invariants").
	r.validate(out)

	if r.bag.HasErrors() {
		return nil, r.bag.All()
	}
	return out, r.bag.All()
}

func (r *Resolver) moduleSchema(m ast.Module) string {
	if a, ok := m.Annotation("postgres"); ok {
		if s := stringArg(a, "schema"); s != "" {
			return s
		}
	}
	return ""
}

func identNames(idents []ast.Ident) []string {
	out := make([]string, len(idents))
	for i, id := range idents {
		out[i] = id.Name
	}
	return out
}

func (r *Resolver) buildShell(td ast.TypeDecl, defaultSchema string, fragments map[string]ast.FragmentDecl) *resolved.Composite {
	rep := resolved.Managed
	if td.Kind == ast.KindJson {
		rep = resolved.Json
	}

	name := td.Name.Name
	plural := pluralize(toSnakeCase(name))
	schema := defaultSchema
	tableName := toSnakeCase(plural)
	managed := rep != resolved.Json

	if a, ok := td.Annotation("table"); ok {
		if s := stringArg(a, ""); s != "" {
			tableName = s
		}
		if s := stringArg(a, "name"); s != "" {
			tableName = s
		}
		if s := stringArg(a, "schema"); s != "" {
			schema = s
		}
		if v, ok := boolArg(a, "managed"); ok {
			managed = v
		}
	}
	if a, ok := td.Annotation("plural"); ok {
		if s := stringArg(a, ""); s != "" {
			plural = s
		}
	}
	if !managed {
		rep = resolved.NotManaged
	}

	return &resolved.Composite{
		Name:           name,
		PluralName:     plural,
		Representation: rep,
		TableName:      resolved.TableName{Schema: schema, Name: tableName},
	}
}

// flattenFields expands fragment fields into the declaration's own field
// list in declaration order (spec.md §4.1 "Fragments"), rejecting a name
// collision between a fragment field and a direct field.
func (r *Resolver) flattenFields(td ast.TypeDecl, fragments map[string]ast.FragmentDecl) []ast.FieldDecl {
	seen := map[string]bool{}
	var out []ast.FieldDecl
	for _, fname := range td.Fragments {
		frag, ok := fragments[fname.Name]
		if !ok {
			r.bag.Addf(fname.Span, "unknown fragment %q", fname.Name)
			continue
		}
		for _, f := range frag.Fields {
			if seen[f.Name.Name] {
				r.bag.Addf(f.Span, "fragment field %q collides with an existing field", f.Name.Name)
				continue
			}
			seen[f.Name.Name] = true
			out = append(out, f)
		}
	}
	for _, f := range td.Fields {
		if seen[f.Name.Name] {
			r.bag.Addf(f.Span, "field %q declared more than once", f.Name.Name)
			continue
		}
		seen[f.Name.Name] = true
		out = append(out, f)
	}
	return out
}

func stringArg(a ast.Annotation, key string) string {
	var e ast.Expr
	if key == "" {
		if len(a.Positional) == 0 {
			return ""
		}
		e = a.Positional[0]
	} else {
		e = a.Arg(key)
	}
	if s, ok := e.(ast.StringLiteral); ok {
		return s.Value
	}
	return ""
}

func boolArg(a ast.Annotation, key string) (bool, bool) {
	e := a.Arg(key)
	if b, ok := e.(ast.BooleanLiteral); ok {
		return b.Value, true
	}
	return false, false
}

func numberArg(a ast.Annotation, key string) (string, bool) {
	var e ast.Expr
	if key == "" {
		if len(a.Positional) == 0 {
			return "", false
		}
		e = a.Positional[0]
	} else {
		e = a.Arg(key)
	}
	if n, ok := e.(ast.NumberLiteral); ok {
		return n.Text, true
	}
	return "", false
}

