package solver

import (
	"context"
	"fmt"
)

// ContextExtractor is the external collaborator that supplies a value for
// a named context field (spec.md §6 "Access solver I/O" /
// §5 "confined to ContextExtractor calls" for any suspension). A JWT/JWK
// backed implementation lives in internal/access/context/jwt; tests use
// the in-memory MapContext below.
type ContextExtractor interface {
	// Extract returns the value of contextName.fieldName, or
	// (Value{}, false, nil) if the field genuinely has no value for this
	// request (e.g. an absent optional JWT claim) — that is not an error,
	// it is what drives ErrContextMissing-style "missing" semantics.
	Extract(ctx context.Context, contextName, fieldName string) (Value, bool, error)
}

// RequestContext wraps a ContextExtractor with the request-scoped
// context.Context the extractor may need for suspension (e.g. fetching a
// JWK set over the network).
type RequestContext struct {
	Extractor ContextExtractor
	Ctx       context.Context
}

// Resolve looks up contextName.fieldName, returning (value, true) when
// found, or (Value{}, false) when missing — missing is not an error here,
// matching spec.md §4.4 "Context extraction ... Missing context is treated
// as None."
func (rc RequestContext) Resolve(contextName, fieldName string) (Value, bool, error) {
	if rc.Extractor == nil {
		return Value{}, false, nil
	}
	ctx := rc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	v, ok, err := rc.Extractor.Extract(ctx, contextName, fieldName)
	if err != nil {
		if IsContextMissing(err) {
			return Value{}, false, nil
		}
		return Value{}, false, fmt.Errorf("resolving context %s.%s: %w", contextName, fieldName, err)
	}
	return v, ok, nil
}

// MapContext is the simplest ContextExtractor: a fixed, in-memory map of
// context name -> field name -> value, used by tests and by callers who
// have already extracted their claims by some other means.
type MapContext map[string]map[string]Value

func (m MapContext) Extract(_ context.Context, contextName, fieldName string) (Value, bool, error) {
	fields, ok := m[contextName]
	if !ok {
		return Value{}, false, nil
	}
	v, ok := fields[fieldName]
	if !ok {
		return Value{}, false, nil
	}
	return v, true, nil
}
