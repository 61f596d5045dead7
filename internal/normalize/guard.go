package normalize

import (
	"fmt"

	"github.com/funvibe/tynorm/internal/diagnostics"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Guard bounds how deeply transparent aliases may expand inside one another.
type Guard struct {
	Limit int
}

// Allows reports whether depth is still within the limit. Depth is counted
// after entering an alias, so a chain of Limit aliases is allowed and the
// next one overflows.
func (g Guard) Allows(depth int) bool {
	return depth <= g.Limit
}

// OverflowError ends a root normalization whose recursion or nesting
// exceeded its limit. The diagnostic has already been reported.
type OverflowError struct {
	Term    ts.Term
	Span    ts.Span
	Opaque  bool
	Nesting bool
	Depth   int
}

func (e *OverflowError) Error() string {
	switch {
	case e.Nesting:
		return fmt.Sprintf("nesting limit reached at depth %d while folding `%s`", e.Depth, e.Term)
	case e.Opaque:
		return fmt.Sprintf("overflow normalizing the opaque type `%s` at depth %d", e.Term, e.Depth)
	case diagnostics.IsProjection(e.Term):
		return fmt.Sprintf("overflow evaluating the projection `%s` at depth %d", e.Term, e.Depth)
	}
	return fmt.Sprintf("overflow normalizing the type alias `%s` at depth %d", e.Term, e.Depth)
}

// NestingReporter is implemented by reporters that want nesting-limit
// diagnostics as well as recursion overflows.
type NestingReporter interface {
	ReportNesting(term ts.Term, span ts.Span, depth int)
}

// ReportOverflow reports a recursion overflow while normalizing term and
// unwinds to the root entry point. It never returns.
func ReportOverflow(ctx *Context, term ts.Term, span ts.Span, opaque bool, depth int) {
	ctx.tracef("overflow at depth %d: %s", depth, term)
	if ctx.Reporter != nil {
		ctx.Reporter.ReportOverflow(term, span, opaque)
	}
	panic(&OverflowError{Term: term, Span: span, Opaque: opaque, Depth: depth})
}

func reportNesting(ctx *Context, term ts.Term, span ts.Span, depth int) {
	ctx.tracef("nesting limit reached at depth %d: %s", depth, term)
	if r, ok := ctx.Reporter.(NestingReporter); ok {
		r.ReportNesting(term, span, depth)
	}
	panic(&OverflowError{Term: term, Span: span, Nesting: true, Depth: depth})
}

// recoverOverflow turns an overflow unwinding into an error. Any other panic
// keeps propagating.
func recoverOverflow(err *error) {
	if r := recover(); r != nil {
		if o, ok := r.(*OverflowError); ok {
			*err = o
			return
		}
		panic(r)
	}
}

// nestingCollector adapts a diagnostics.Collector to NestingReporter.
type nestingCollector struct {
	*diagnostics.Collector
}

func (c nestingCollector) ReportNesting(term ts.Term, span ts.Span, depth int) {
	c.Add(diagnostics.Errorf(diagnostics.ErrN006, span, "reached the nesting limit (%d) while normalizing `%s`", depth, term))
}

// CollectingReporter returns a reporter that records both recursion
// overflows and nesting-limit hits into c.
func CollectingReporter(c *diagnostics.Collector) diagnostics.Reporter {
	return nestingCollector{c}
}
