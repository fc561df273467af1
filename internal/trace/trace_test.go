package trace_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/stokaro/exoptah/internal/trace"
)

func TestNoOp_ReturnsUsableEndFunc(t *testing.T) {
	c := qt.New(t)

	ctx, end := trace.NoOp.Span(context.Background(), "anything")
	c.Assert(ctx, qt.IsNotNil)

	end() // must not panic
}
