package jwt

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/access/solver"
)

func TestClaimToValue(t *testing.T) {
	c := qt.New(t)

	c.Assert(claimToValue(nil), qt.Equals, solver.Null())
	c.Assert(claimToValue(true), qt.Equals, solver.Bool(true))
	c.Assert(claimToValue(float64(42)), qt.Equals, solver.Number(42))
	c.Assert(claimToValue("sub-123"), qt.Equals, solver.Str("sub-123"))

	list := claimToValue([]any{"admin", "editor"})
	c.Assert(list.Kind, qt.Equals, solver.VList)
	c.Assert(list.List, qt.DeepEquals, []solver.Value{solver.Str("admin"), solver.Str("editor")})

	obj := claimToValue(map[string]any{"tenant": "acme"})
	c.Assert(obj.Kind, qt.Equals, solver.VObject)
	c.Assert(obj.Object["tenant"], qt.Equals, solver.Str("acme"))
}

func TestExtractor_WrongContextNameReturnsMissing(t *testing.T) {
	c := qt.New(t)

	e := &Extractor{contextName: "AuthContext"}
	_, ok, err := e.Extract(WithBearerToken(context.Background(), "irrelevant"), "OtherContext", "id")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}

func TestExtractor_NoTokenReturnsMissing(t *testing.T) {
	c := qt.New(t)

	e := &Extractor{contextName: "AuthContext"}
	_, ok, err := e.Extract(context.Background(), "AuthContext", "id")
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsFalse)
}
