// Package jwt implements the one concrete solver.ContextExtractor the
// system ships (SPEC_FULL.md §1): it validates a bearer JWT against a
// remote JWK set and exposes its claims as context fields: a context field
// resolves the claim of the same name, e.g. `AuthContext.sub` reads the
// token's "sub" claim. Grounded on the
// `MicahParks/jwkset` + `MicahParks/keyfunc/v3` stack referenced by
// xaas-cloud-genai-toolbox's go.mod for the same "JWKS-backed bearer
// token" shape, paired with `golang-jwt/jwt/v5` for parsing (keyfunc/v3
// is a `jwt.Keyfunc` adapter over a jwkset.Storage).
package jwt

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/stokaro/exoptah/internal/access/solver"
)

// Extractor is a solver.ContextExtractor backed by a remote JWK set. One
// Extractor corresponds to one context type name (spec.md's "AuthContext"
// or similar); fields are read from the validated token's claims.
type Extractor struct {
	contextName string
	kf          keyfunc.Keyfunc
}

// Options configures an Extractor's JWK fetching.
type Options struct {
	// JWKSURL is the HTTPS endpoint serving the JSON Web Key Set.
	JWKSURL string
	// RefreshInterval controls how often the key set is re-fetched; zero
	// uses jwkset's default.
	RefreshInterval time.Duration
	// HTTPClient overrides the client used to fetch the key set.
	HTTPClient *http.Client
}

// New builds an Extractor for contextName that validates tokens against
// the JWK set served at opts.JWKSURL.
func New(ctx context.Context, contextName string, opts Options) (*Extractor, error) {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	storage, err := jwkset.NewStorageFromHTTP(opts.JWKSURL, jwkset.HTTPClientStorageOptions{
		Client:          client,
		RefreshInterval: opts.RefreshInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK set storage for %q: %w", opts.JWKSURL, err)
	}

	kf, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("failed to build keyfunc from JWK set: %w", err)
	}

	return &Extractor{contextName: contextName, kf: kf}, nil
}

// bearerTokenKey is the context.Context key callers must set (via
// context.WithValue) to the raw bearer token string before Extract is
// invoked; the solver's RequestContext.Ctx carries it through.
type bearerTokenKey struct{}

// WithBearerToken returns a context carrying the raw JWT for later
// extraction; callers populate this once per request, typically from an
// Authorization header.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey{}, token)
}

// Extract implements solver.ContextExtractor. A field is "missing"
// (ok=false, err=nil) when the token carries no such claim, or when no
// token is present at all — both cases spec.md §4.4 treats as None rather
// than an error.
func (e *Extractor) Extract(ctx context.Context, contextName, fieldName string) (solver.Value, bool, error) {
	if contextName != e.contextName {
		return solver.Value{}, false, nil
	}

	raw, _ := ctx.Value(bearerTokenKey{}).(string)
	if raw == "" {
		return solver.Value{}, false, nil
	}

	token, err := jwtlib.Parse(raw, e.kf.Keyfunc)
	if err != nil {
		return solver.Value{}, false, fmt.Errorf("validating bearer token: %w", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return solver.Value{}, false, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	raw2, present := claims[fieldName]
	if !present {
		return solver.Value{}, false, nil
	}
	return claimToValue(raw2), true, nil
}

// claimToValue converts a decoded JWT claim (the dynamic JSON shapes
// encoding/json produces: string, float64, bool, []any, map[string]any,
// or nil) into the solver's Value union.
func claimToValue(v any) solver.Value {
	switch x := v.(type) {
	case nil:
		return solver.Null()
	case bool:
		return solver.Bool(x)
	case float64:
		return solver.Number(x)
	case string:
		return solver.Str(x)
	case []any:
		vs := make([]solver.Value, len(x))
		for i, e := range x {
			vs[i] = claimToValue(e)
		}
		return solver.List(vs...)
	case map[string]any:
		m := make(map[string]solver.Value, len(x))
		for k, e := range x {
			m[k] = claimToValue(e)
		}
		return solver.Object(m)
	default:
		return solver.Str(fmt.Sprintf("%v", x))
	}
}
