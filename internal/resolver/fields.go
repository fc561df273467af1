package resolver

import (
	"strconv"
	"strings"

	"github.com/stokaro/exoptah/internal/diagnostic"
	"github.com/stokaro/exoptah/internal/schema/ast"
	"github.com/stokaro/exoptah/internal/schema/resolved"
)

var primitiveNames = map[string]resolved.PrimitiveKind{
	"Int": resolved.Int, "Float": resolved.Float, "Decimal": resolved.Decimal,
	"String": resolved.String, "Boolean": resolved.Boolean, "Instant": resolved.Instant,
	"LocalDate": resolved.LocalDate, "LocalTime": resolved.LocalTime,
	"LocalDateTime": resolved.LocalDateTime, "Uuid": resolved.Uuid,
	"Blob": resolved.Blob, "Vector": resolved.Vector,
}

func (r *Resolver) resolveFields(td ast.TypeDecl, composite *resolved.Composite, sys *resolved.System, fragments map[string]ast.FragmentDecl) {
	flat := r.flattenFields(td, fragments)

	if composite.Representation == resolved.Json {
		if _, ok := td.Annotation("access"); ok {
			r.bag.Addf(td.Span, "@access is not permitted on a @json composite %q", td.Name.Name)
		}
	}

	for _, fd := range flat {
		field := r.resolveField(td, fd, composite, sys)
		composite.Fields = append(composite.Fields, field)
	}

	if composite.Representation == resolved.Managed && len(composite.PKFields()) == 0 {
		r.bag.Addf(td.Span, "managed composite %q has no primary-key field", td.Name.Name)
	}
}

func (r *Resolver) resolveField(td ast.TypeDecl, fd ast.FieldDecl, composite *resolved.Composite, sys *resolved.System) resolved.Field {
	typ := r.resolveTypeRef(fd.Type, sys, fd.Span)

	f := resolved.Field{
		Name: fd.Name.Name,
		Type: typ,
	}

	isCollectionField := typ.List
	_, hasColumnAnno := fd.Annotation("column")

	if isCollectionField && hasColumnAnno {
		r.bag.Addf(fd.Span, "@column is not permitted on a collection field %q", fd.Name.Name)
	}

	if typ.Kind == resolved.TComposite {
		// Relation column naming is finished once cardinality is known
		// (pass 3); for now just record explicit @column mapping/override
		// requests so inferRelations can apply them without re-parsing
		// annotations.
		f.ColumnNames = explicitRelationColumns(fd, sys.Composite(typ.Composite))
	} else {
		name := toSnakeCase(fd.Name.Name)
		if a, ok := fd.Annotation("column"); ok {
			if s := stringArg(a, ""); s != "" {
				name = s
			} else if s := stringArg(a, "name"); s != "" {
				name = s
			}
		}
		f.ColumnNames = []string{name}
	}

	if _, ok := fd.Annotation("pk"); ok {
		f.IsPK = true
	}

	f.TypeHint = r.resolveTypeHint(fd, typ)
	f.Default = r.resolveDefault(fd, typ)
	f.Readonly = fd.HasAnnotation("readonly")
	f.UpdateSync = fd.HasAnnotation("update")

	if f.Readonly || f.UpdateSync {
		if composite.Representation == resolved.Managed && f.Default.Kind == resolved.DefaultNone {
			r.bag.Addf(fd.Span, "field %q has @readonly or @update and requires a default value", fd.Name.Name)
		}
	}

	f.UniqueGroups = annotationGroups(fd, "unique", fd.Name.Name)
	f.IndexGroups = annotationGroups(fd, "index", defaultIndexName(td.Name.Name, fd.Name.Name))

	if typ.Primitive == resolved.Vector && !typ.List {
		r.resolveVector(fd, &f)
	}

	return f
}

func (r *Resolver) resolveTypeRef(ref ast.TypeRef, sys *resolved.System, span diagnostic.Span) resolved.Type {
	t := resolved.Type{Optional: ref.Optional, List: ref.List}
	if prim, ok := primitiveNames[ref.Name]; ok {
		t.Kind = resolved.TPrimitive
		t.Primitive = prim
		return t
	}
	if enum, ok := sys.EnumByName(ref.Name); ok {
		t.Kind = resolved.TEnum
		t.EnumID = enum.ID
		return t
	}
	if comp, ok := sys.CompositeByName(ref.Name); ok {
		t.Kind = resolved.TComposite
		t.Composite = comp.ID
		return t
	}
	r.bag.Addf(span, "unknown type %q", ref.Name)
	t.Kind = resolved.TPrimitive
	t.Primitive = resolved.String
	return t
}

func explicitRelationColumns(fd ast.FieldDecl, target *resolved.Composite) []string {
	if a, ok := fd.Annotation("column"); ok {
		if mapping := a.Arg("mapping"); mapping != nil {
			if obj, ok := mapping.(ast.ObjectLiteral); ok {
				var out []string
				for _, pk := range target.PKFields() {
					if v, ok := obj.Fields[pk.Name]; ok {
						if s, ok := v.(ast.StringLiteral); ok {
							out = append(out, s.Value)
							continue
						}
					}
					out = append(out, fd.Name.Name+"_"+pk.Name)
				}
				return out
			}
		}
	}
	var out []string
	for _, pk := range target.PKFields() {
		out = append(out, toSnakeCase(fd.Name.Name)+"_"+toSnakeCase(pk.Name))
	}
	return out
}

func (r *Resolver) resolveTypeHint(fd ast.FieldDecl, t resolved.Type) resolved.TypeHint {
	dbtypeAnno, hasDBType := fd.Annotation("dbtype")
	sizeAnno, hasSize := fd.Annotation("size")
	precAnno, hasPrecision := fd.Annotation("precision")

	if hasDBType && (hasSize || hasPrecision) {
		r.bag.Addf(fd.Span, "@dbtype and a structured type hint are mutually exclusive on field %q", fd.Name.Name)
	}
	if hasDBType {
		return resolved.TypeHint{Kind: resolved.HintRaw, RawDBType: stringArg(dbtypeAnno, "")}
	}
	switch t.Primitive {
	case resolved.String:
		if hasSize {
			if n, ok := numberArg(sizeAnno, ""); ok {
				v, _ := strconv.Atoi(n)
				return resolved.TypeHint{Kind: resolved.HintString, StringLen: v}
			}
		}
	case resolved.Int:
		if hasSize {
			if n, ok := numberArg(sizeAnno, ""); ok {
				v, _ := strconv.Atoi(n)
				return resolved.TypeHint{Kind: resolved.HintInt, IntBits: v}
			}
		}
	case resolved.Decimal:
		if hasPrecision {
			scaleAnno, _ := fd.Annotation("scale")
			p, _ := numberArg(precAnno, "")
			s, _ := numberArg(scaleAnno, "")
			pv, _ := strconv.Atoi(p)
			sv, _ := strconv.Atoi(s)
			return resolved.TypeHint{Kind: resolved.HintDecimal, DecimalPrec: pv, DecimalScale: sv}
		}
	case resolved.Vector:
		if hasSize {
			if n, ok := numberArg(sizeAnno, ""); ok {
				v, _ := strconv.Atoi(n)
				return resolved.TypeHint{Kind: resolved.HintInt, IntBits: v}
			}
		}
	}
	return resolved.TypeHint{Kind: resolved.HintNone}
}

func (r *Resolver) resolveDefault(fd ast.FieldDecl, t resolved.Type) resolved.DefaultValue {
	a, ok := fd.Annotation("default")
	if !ok {
		return resolved.DefaultValue{Kind: resolved.DefaultNone}
	}
	// A default annotation's sole positional argument is either a literal
	// or a bare function-call-shaped identifier we special-case by name.
	if len(a.Positional) == 0 {
		return resolved.DefaultValue{Kind: resolved.DefaultNone}
	}
	expr := a.Positional[0]
	switch e := expr.(type) {
	case ast.NumberLiteral:
		return resolved.DefaultValue{Kind: resolved.DefaultLiteral, Literal: e.Text}
	case ast.StringLiteral:
		return resolved.DefaultValue{Kind: resolved.DefaultLiteral, Literal: e.Value}
	case ast.BooleanLiteral:
		return resolved.DefaultValue{Kind: resolved.DefaultLiteral, Literal: strconv.FormatBool(e.Value)}
	case ast.FieldSelection:
		name := e.Head.Name
		switch name {
		case "autoIncrement":
			if t.Primitive != resolved.Int {
				r.bag.Addf(fd.Span, "autoIncrement() requires an Int field, got %s", t.Primitive)
			}
			return r.resolveAutoIncrement(fd, e)
		case "now":
			if !isTimeFamily(t.Primitive) {
				r.bag.Addf(fd.Span, "now() requires a time-family field, got %s", t.Primitive)
			}
			return resolved.DefaultValue{Kind: resolved.DefaultNow}
		case "generate_uuid", "uuidGenerateV4":
			if t.Primitive != resolved.Uuid {
				r.bag.Addf(fd.Span, "%s() requires a Uuid field, got %s", name, t.Primitive)
			}
			return resolved.DefaultValue{Kind: resolved.DefaultUUIDGenerate}
		default:
			r.bag.Addf(fd.Span, "unknown default function %q", name)
			return resolved.DefaultValue{Kind: resolved.DefaultNone}
		}
	default:
		r.bag.Addf(fd.Span, "unsupported default value expression on field %q", fd.Name.Name)
		return resolved.DefaultValue{Kind: resolved.DefaultNone}
	}
}

// resolveAutoIncrement handles both bare autoIncrement() and the explicit
// sequence-reference form autoIncrement("schema.name") (spec.md §9 Open
// Question: a dotted reference splits at the last dot into schema and
// sequence name; a reference with no dot is a bare sequence name in the
// field's own schema).
func (r *Resolver) resolveAutoIncrement(fd ast.FieldDecl, call ast.FieldSelection) resolved.DefaultValue {
	if len(call.Path) == 0 {
		return resolved.DefaultValue{Kind: resolved.DefaultAutoIncrement}
	}
	ref := call.Path[0].Name.Name
	schema, name, ok := splitSequenceRef(ref)
	if !ok {
		r.bag.Addf(fd.Span, "invalid sequence reference %q in autoIncrement()", ref)
		return resolved.DefaultValue{Kind: resolved.DefaultAutoIncrement}
	}
	return resolved.DefaultValue{Kind: resolved.DefaultAutoIncrement, SequenceSchema: schema, SequenceName: name}
}

// splitSequenceRef splits "schema.name" at the last dot; a reference with no
// dot is a bare sequence name with no schema override.
func splitSequenceRef(ref string) (schema, name string, ok bool) {
	i := strings.LastIndex(ref, ".")
	if i < 0 {
		return "", ref, true
	}
	return ref[:i], ref[i+1:], true
}

func isTimeFamily(k resolved.PrimitiveKind) bool {
	switch k {
	case resolved.Instant, resolved.LocalDate, resolved.LocalTime, resolved.LocalDateTime:
		return true
	default:
		return false
	}
}

func annotationGroups(fd ast.FieldDecl, name, ownColumnDefault string) []string {
	a, ok := fd.Annotation(name)
	if !ok {
		return nil
	}
	if len(a.Positional) == 0 {
		return []string{ownColumnDefault}
	}
	switch e := a.Positional[0].(type) {
	case ast.StringLiteral:
		return []string{e.Value}
	case ast.ListLiteral:
		var out []string
		for _, el := range e.Elements {
			if s, ok := el.(ast.StringLiteral); ok {
				out = append(out, s.Value)
			}
		}
		return out
	default:
		return []string{ownColumnDefault}
	}
}

func (r *Resolver) resolveVector(fd ast.FieldDecl, f *resolved.Field) {
	if a, ok := fd.Annotation("size"); ok {
		if n, ok := numberArg(a, ""); ok {
			v, _ := strconv.Atoi(n)
			f.VectorSize = v
		}
	}
	if fd.HasAnnotation("index") {
		f.VectorIndex = true
	}
	f.VectorDistanceFunction = "cosine"
	if a, ok := fd.Annotation("distanceFunction"); ok {
		if s := stringArg(a, ""); s != "" {
			f.VectorDistanceFunction = s
		}
	}
}
