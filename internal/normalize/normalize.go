package normalize

import (
	"fmt"
	"strings"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Normalized is a normalized value together with the obligations under
// which the rewriting is valid.
type Normalized struct {
	Value       ts.Term
	Obligations []ts.Obligation
}

// Normalize rewrites every alias in value that can be resolved under env.
// Unresolvable projections are left in place and do not produce an error.
// An overflow is reported through ctx.Reporter and returned as
// *OverflowError.
func Normalize(ctx *Context, env ts.ParamEnv, cause ts.ObligationCause, value ts.Term) (res Normalized, err error) {
	defer recoverOverflow(&err)
	return NormalizeWithDepth(ctx, env, cause, 0, value), nil
}

// NormalizeWithDepth is Normalize starting from an existing recursion
// depth. It is the entry used by the proof engine while it is itself
// normalizing; an overflow unwinds straight through it to the root.
func NormalizeWithDepth(ctx *Context, env ts.ParamEnv, cause ts.ObligationCause, depth int, value ts.Term) Normalized {
	sink := &Sink{}
	v := NormalizeWithDepthTo(ctx, env, cause, depth, value, sink)
	return Normalized{Value: v, Obligations: sink.Obligations()}
}

// NormalizeWithDepthTo appends the produced obligations to sink.
func NormalizeWithDepthTo(ctx *Context, env ts.ParamEnv, cause ts.ObligationCause, depth int, value ts.Term, sink *Sink) ts.Term {
	before := sink.Len()
	out := newNormalizer(ctx, env, cause, depth, sink).fold(value)
	if depth == 0 {
		ctx.tracef("normalized %s to %s with %d obligations", value, out, sink.Len()-before)
	}
	return out
}

// DeepNormalizeError lists the obligations that kept a value from being
// fully normalized.
type DeepNormalizeError struct {
	Value  ts.Term
	Errors []*ts.FulfillmentError
}

func (e *DeepNormalizeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cannot fully normalize `%s`", e.Value)
	for _, fe := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(fe.Error())
	}
	return b.String()
}

// DeeplyNormalize normalizes value and then proves every produced obligation
// with f. Any projection left over must also be proven to project; the
// result contains only the aliases that are genuinely rigid.
func DeeplyNormalize(ctx *Context, env ts.ParamEnv, cause ts.ObligationCause, value ts.Term, f Fulfiller) (result ts.Term, err error) {
	defer recoverOverflow(&err)
	sink := &Sink{}
	v := NormalizeWithDepthTo(ctx, env, cause, 0, value, sink)
	f.Register(sink.Obligations()...)

	rc := &residualCollector{ctx: ctx, env: env, cause: cause}
	v = rc.fold(v)
	f.Register(rc.out...)

	errs := f.SelectAllOrError(ctx)
	v = newNormalizer(ctx, env, cause, 0, sink).resolve(v)
	if len(errs) > 0 {
		return nil, &DeepNormalizeError{Value: v, Errors: errs}
	}
	return v, nil
}

// residualCollector replaces each outermost projection or inherent alias
// left after normalization with a fresh inference variable and records an
// obligation that the alias projects to it. Aliases under binders stay in
// place and get an obligation wrapped in those binders.
type residualCollector struct {
	ctx     *Context
	env     ts.ParamEnv
	cause   ts.ObligationCause
	binders []*ts.TForall
	out     []ts.Obligation
}

func (r *residualCollector) fold(t ts.Term) ts.Term {
	if !t.Flags().HasAny(ts.HasTyProjection | ts.HasTyInherent) {
		return t
	}
	switch t := t.(type) {
	case *ts.TForall:
		r.binders = append(r.binders, t)
		out := ts.SuperFold(t, r.fold)
		r.binders = r.binders[:len(r.binders)-1]
		return out
	case *ts.TAlias:
		if t.Kind != ts.Projection && t.Kind != ts.Inherent {
			return ts.SuperFold(t, r.fold)
		}
		cause := r.cause.WithCode(ts.ProjectionCause{Alias: t})
		if !ts.HasEscapingBoundVars(t) {
			v := r.ctx.Infer.NewVar()
			r.out = append(r.out, ts.Obligation{Predicate: ts.ProjectsTo(t, v), Cause: cause, Env: r.env})
			return v
		}
		var pred ts.Term = ts.ProjectsTo(t, r.ctx.Infer.NewVar())
		for i := 0; i < t.OuterBinder(); i++ {
			b := r.binders[len(r.binders)-1-i]
			pred = ts.Forall(b.Vars, b.Names, pred)
		}
		r.out = append(r.out, ts.Obligation{Predicate: pred, Cause: cause, Env: r.env})
		return t
	}
	return ts.SuperFold(t, r.fold)
}
