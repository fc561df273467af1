// Package ast defines the typed parse-tree node kinds that a surface-grammar
// parser (an external collaborator, see spec.md §1/§6) hands to the
// Resolver. It intentionally stops at "already parsed, not yet elaborated":
// no name resolution, no cardinality inference, no defaults — that is the
// Resolver's job (internal/resolver).
//
// The node set mirrors spec.md §3 exactly: identifiers+spans, declared
// types with fields and annotations, enums, fragments, contexts, and the
// access-expression grammar consumed by internal/access/compiler.
package ast

import "github.com/stokaro/exoptah/internal/diagnostic"

// Ident is a syntactic name paired with the source span it came from.
type Ident struct {
	Name string
	Span diagnostic.Span
}

// TypeRef is how a field's declared type appears in source: a base name
// plus the two wrapper shapes the language allows (spec.md §3 "Optional<T>
// or List<T>").
type TypeRef struct {
	Name     string
	Optional bool
	List     bool
	Span     diagnostic.Span
}

// Annotation is a single `@name(...)` attached to a module, type, or field.
// Args holds keyword arguments; Positional holds bare (unnamed) arguments.
// Both may be empty for a bare `@name` annotation.
type Annotation struct {
	Name       Ident
	Args       map[string]Expr
	Positional []Expr
	Span       diagnostic.Span
}

// Arg returns the value of a named argument, or nil if absent.
func (a Annotation) Arg(name string) Expr {
	if a.Args == nil {
		return nil
	}
	return a.Args[name]
}

// FieldDecl is one field of a TypeDecl or FragmentDecl.
type FieldDecl struct {
	Name        Ident
	Type        TypeRef
	Annotations []Annotation
	Span        diagnostic.Span
}

// HasAnnotation reports whether the field carries an annotation of the
// given name.
func (f FieldDecl) HasAnnotation(name string) bool {
	_, ok := f.Annotation(name)
	return ok
}

// Annotation returns the first annotation of the given name on this field.
func (f FieldDecl) Annotation(name string) (Annotation, bool) {
	for _, a := range f.Annotations {
		if a.Name.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// TypeKind distinguishes the two declared composite-type shapes. Whether an
// entity is Managed or NotManaged is decided later by the Resolver from its
// @table(managed=...) annotation.
type TypeKind int

const (
	// KindEntity is a normal Managed/NotManaged composite (an entity).
	KindEntity TypeKind = iota
	// KindJson is a composite annotated @json: treated like a primitive.
	KindJson
)

// TypeDecl is a declared composite type: `type Concert { ... }`.
type TypeDecl struct {
	Name        Ident
	Kind        TypeKind
	Annotations []Annotation
	Fields      []FieldDecl
	// Fragments lists fragment types whose fields are flattened in, in
	// declaration order, before the Resolver processes Fields.
	Fragments []Ident
	Span      diagnostic.Span
}

func (t TypeDecl) Annotation(name string) (Annotation, bool) {
	for _, a := range t.Annotations {
		if a.Name.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// EnumDecl is a declared enum type with ordered variants.
type EnumDecl struct {
	Name     Ident
	Variants []Ident
	Span     diagnostic.Span
}

// FragmentDecl is a reusable bundle of fields that can be mixed into a
// TypeDecl (spec.md §4.1 "Fragments").
type FragmentDecl struct {
	Name   Ident
	Fields []FieldDecl
	Span   diagnostic.Span
}

// ContextField is one named value a RequestContext supplies, along with the
// source annotation describing where it comes from (e.g. a JWT claim path).
// The values are supplied at request time by a solver.ContextExtractor
// (e.g. internal/access/context/jwt); the AST only records the declared
// shape.
type ContextField struct {
	Name   Ident
	Type   TypeRef
	Source Annotation
	Span   diagnostic.Span
}

// ContextDecl declares a named context root usable in access expressions,
// e.g. `context AuthContext { id: Int @jwt("sub") }`.
type ContextDecl struct {
	Name   Ident
	Fields []ContextField
	Span   diagnostic.Span
}

// Declaration is the sum of everything a Module can directly contain.
type Declaration interface{ isDeclaration() }

func (TypeDecl) isDeclaration()     {}
func (EnumDecl) isDeclaration()     {}
func (FragmentDecl) isDeclaration() {}
func (ContextDecl) isDeclaration()  {}

// Module is one persistence module: a named grouping of declarations
// annotated `@postgres(schema=...)`, the Resolver's top-level input unit.
type Module struct {
	Name         Ident
	Annotations  []Annotation
	Declarations []Declaration
	Span         diagnostic.Span
}

func (m Module) Annotation(name string) (Annotation, bool) {
	for _, a := range m.Annotations {
		if a.Name.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// System is the full typechecked input to Resolver.Build: every persistent
// module plus the context declarations visible to access expressions.
type System struct {
	Modules  []Module
	Contexts []ContextDecl
}
