package normalize

import (
	"fmt"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Mask of flags that mean a term may still contain something to normalize.
const (
	userFacingMask = ts.HasTyProjection | ts.HasTyInherent | ts.HasCtProjection
	revealAllMask  = userFacingMask | ts.HasTyOpaque
)

// NeedsNormalization reports whether t contains any alias the given reveal
// mode would rewrite. It only looks at flags.
func NeedsNormalization(t ts.Term, reveal ts.Reveal) bool {
	if reveal == ts.RevealAll {
		return t.Flags().HasAny(revealAllMask)
	}
	return t.Flags().HasAny(userFacingMask)
}

// Normalizer folds one value. It owns the recursion depth, the universe
// stack for the binders it has entered and the sink it pushes into.
type Normalizer struct {
	ctx       *Context
	env       ts.ParamEnv
	cause     ts.ObligationCause
	sink      *Sink
	depth     int
	universes []universeSlot
	nesting   int
}

func newNormalizer(ctx *Context, env ts.ParamEnv, cause ts.ObligationCause, depth int, sink *Sink) *Normalizer {
	return &Normalizer{ctx: ctx, env: env, cause: cause, sink: sink, depth: depth}
}

// fold is the root entry. It requires a value with no escaping bound
// variables. Inference variables are resolved as the fold reaches them.
func (n *Normalizer) fold(value ts.Term) ts.Term {
	if ts.HasEscapingBoundVars(value) {
		panic(fmt.Sprintf("normalize: value has escaping bound variables: %s", value))
	}
	return n.foldTerm(value)
}

// pending reports whether t has an alias to rewrite or an inference
// variable that may be bound.
func (n *Normalizer) pending(t ts.Term) bool {
	return NeedsNormalization(t, n.env.Reveal) || t.Flags().HasAny(ts.HasInfer)
}

func (n *Normalizer) foldTerm(t ts.Term) ts.Term {
	if !n.pending(t) {
		return t
	}
	switch t := t.(type) {
	case *ts.TInfer:
		if v, ok := n.ctx.Infer.Probe(t); ok {
			return n.nested(t, func() ts.Term { return n.foldTerm(v) })
		}
		return t
	case *ts.TForall:
		return n.foldBinder(t)
	case *ts.TAlias:
		return n.foldAlias(t)
	case *ts.CAlias:
		return n.foldConst(t)
	}
	if t.Sort() == ts.SortPredicate && !ts.AllowsNormalization(t) {
		return n.resolve(t)
	}
	return n.superFold(t)
}

// resolve replaces bound inference variables in t without normalizing it.
func (n *Normalizer) resolve(t ts.Term) ts.Term {
	if !t.Flags().HasAny(ts.HasInfer) {
		return t
	}
	if v, ok := t.(*ts.TInfer); ok {
		b, ok := n.ctx.Infer.Probe(v)
		if !ok {
			return v
		}
		return n.nested(v, func() ts.Term { return n.resolve(b) })
	}
	return n.nested(t, func() ts.Term { return ts.SuperFold(t, n.resolve) })
}

func (n *Normalizer) superFold(t ts.Term) ts.Term {
	return n.nested(t, func() ts.Term { return ts.SuperFold(t, n.foldTerm) })
}

func (n *Normalizer) foldBinder(t *ts.TForall) ts.Term {
	if t.Sort() == ts.SortPredicate && !ts.AllowsNormalization(t) {
		return n.resolve(t)
	}
	n.universes = append(n.universes, universeSlot{})
	out := n.superFold(t)
	n.universes = n.universes[:len(n.universes)-1]
	return out
}

// enter bumps the recursion depth for an alias expansion and checks it.
func (n *Normalizer) enter(t ts.Term, opaque bool) {
	n.depth++
	if !(Guard{Limit: n.ctx.Config.RecursionLimit}).Allows(n.depth) {
		ReportOverflow(n.ctx, t, n.cause.Span, opaque, n.depth)
	}
}

func (n *Normalizer) foldAlias(t *ts.TAlias) ts.Term {
	switch t.Kind {
	case ts.Opaque:
		return n.foldOpaque(t)
	case ts.Projection, ts.Inherent:
		return n.foldProjection(t)
	case ts.Weak:
		return n.foldWeak(t)
	}
	panic(fmt.Sprintf("normalize: unknown alias kind %d", t.Kind))
}

func (n *Normalizer) foldOpaque(t *ts.TAlias) ts.Term {
	if n.env.Reveal != ts.RevealAll {
		return n.superFold(t)
	}
	n.enter(t, true)
	folded := n.superFold(t).(*ts.TAlias)
	hidden := ts.Instantiate(n.ctx.Store.BodyOf(t.Def), folded.Args)
	out := n.foldTerm(hidden)
	n.depth--
	return out
}

func (n *Normalizer) foldProjection(t *ts.TAlias) ts.Term {
	if !ts.HasEscapingBoundVars(t) {
		folded := n.superFold(t).(*ts.TAlias)
		p, ok := n.ctx.Projector.TryProject(n.ctx, n.env, folded, n.cause, n.depth)
		if !ok {
			n.ctx.tracef("%s is rigid", folded)
			return folded
		}
		n.ctx.tracef("%s => %s (+%d obligations)", folded, p.Value, len(p.Obligations))
		n.sink.Push(p.Obligations...)
		return p.Value
	}

	mark := n.sink.Len()
	replaced, mapped := n.replaceBoundVars(t)
	folded := n.superFold(replaced).(*ts.TAlias)
	p, ok := n.ctx.Projector.TryProject(n.ctx, n.env, folded, n.cause, n.depth)
	if !ok {
		n.sink.truncate(mark)
		n.ctx.tracef("%s is rigid under its binders", t)
		return n.superFold(t)
	}
	n.sink.Push(p.Obligations...)
	out := n.replacePlaceholders(mapped, p.Value)
	n.ctx.tracef("%s => %s under binders", t, out)
	return out
}

func (n *Normalizer) foldWeak(t *ts.TAlias) ts.Term {
	escaping := ts.HasEscapingBoundVars(t)
	for _, sp := range n.ctx.Store.PredicatesOf(t.Def) {
		pred := ts.Instantiate(sp.Predicate, t.Args)
		if escaping {
			pred, _ = n.replaceBoundVars(pred)
		}
		code := ts.TypeAliasCause{Parent: n.cause.Code, Span: sp.Span, Def: t.Def}
		n.sink.Push(ts.Obligation{
			Predicate: pred,
			Cause:     n.cause.WithCode(code),
			Env:       n.env,
			Depth:     n.depth + 1,
		})
	}
	n.enter(t, false)
	body := ts.Instantiate(n.ctx.Store.BodyOf(t.Def), t.Args)
	out := n.foldTerm(body)
	n.depth--
	return out
}

func (n *Normalizer) foldConst(c *ts.CAlias) ts.Term {
	if n.ctx.Config.ConstGenericsRelaxed {
		return c
	}
	folded := n.superFold(c)
	return n.withReplacedEscapingBoundVars(folded, func(v ts.Term) ts.Term {
		alias, ok := v.(*ts.CAlias)
		if !ok {
			return v
		}
		if value, ok := n.ctx.Projector.EvalConst(n.ctx, n.env, alias, n.depth); ok {
			return value
		}
		return v
	})
}
