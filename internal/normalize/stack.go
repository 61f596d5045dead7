package normalize

import (
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// nested runs f one structural level deeper. Every StackSegment levels the
// rest of the fold continues on a fresh goroutine so that deep terms do not
// exhaust a single stack; past MaxNesting the fold is abandoned.
func (n *Normalizer) nested(t ts.Term, f func() ts.Term) ts.Term {
	n.nesting++
	defer func() { n.nesting-- }()
	cfg := n.ctx.Config
	if cfg.MaxNesting > 0 && n.nesting > cfg.MaxNesting {
		reportNesting(n.ctx, t, n.cause.Span, n.nesting)
	}
	if cfg.StackSegment <= 0 || n.nesting%cfg.StackSegment != 0 {
		return f()
	}
	return onFreshStack(f)
}

// onFreshStack runs f on a new goroutine and waits for it. A panic inside f
// is re-raised on the calling goroutine.
func onFreshStack(f func() ts.Term) ts.Term {
	var (
		result    ts.Term
		recovered interface{}
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { recovered = recover() }()
		result = f()
	}()
	<-done
	if recovered != nil {
		panic(recovered)
	}
	return result
}
