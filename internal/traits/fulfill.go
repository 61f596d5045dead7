package traits

import (
	"fmt"

	set "github.com/hashicorp/go-set/v2"

	"github.com/funvibe/tynorm/internal/normalize"
	"github.com/funvibe/tynorm/internal/symbols"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

type outcome int

const (
	holds outcome = iota
	pending
	fails
)

// FulfillmentContext proves registered obligations to a fixed point. It
// implements normalize.Fulfiller.
type FulfillmentContext struct {
	sel     *SelectionContext
	pending []ts.Obligation
	seen    *set.Set[string]
}

func NewFulfillmentContext(sel *SelectionContext) *FulfillmentContext {
	return &FulfillmentContext{sel: sel, seen: set.New[string](0)}
}

var _ normalize.Fulfiller = (*FulfillmentContext)(nil)

// Register queues obligations. An obligation whose predicate was already
// registered is dropped.
func (f *FulfillmentContext) Register(obligations ...ts.Obligation) {
	for _, o := range obligations {
		if !f.seen.Insert(o.Predicate.String()) {
			continue
		}
		f.pending = append(f.pending, o)
	}
}

// Pending returns the obligations that are neither proven nor refuted.
func (f *FulfillmentContext) Pending() []ts.Obligation {
	out := make([]ts.Obligation, len(f.pending))
	copy(out, f.pending)
	return out
}

// SelectWherePossible processes obligations until no more progress can be
// made and returns those found to be false. Undecided obligations stay
// pending.
func (f *FulfillmentContext) SelectWherePossible(ctx *normalize.Context) []*ts.FulfillmentError {
	var errs []*ts.FulfillmentError
	for progress := true; progress; {
		progress = false
		queue := f.pending
		f.pending = nil
		for _, o := range queue {
			res, nested, err := f.evaluate(ctx, o)
			switch res {
			case holds:
				progress = true
				f.Register(nested...)
			case fails:
				progress = true
				errs = append(errs, err)
			default:
				f.pending = append(f.pending, o)
			}
		}
	}
	return errs
}

// SelectAllOrError is SelectWherePossible followed by reporting every
// remaining obligation as ambiguous.
func (f *FulfillmentContext) SelectAllOrError(ctx *normalize.Context) []*ts.FulfillmentError {
	errs := f.SelectWherePossible(ctx)
	for _, o := range f.pending {
		errs = append(errs, &ts.FulfillmentError{
			Obligation: o,
			Code:       ts.CodeAmbiguous,
			Detail:     fmt.Sprintf("cannot decide `%s`", ctx.Infer.ResolveIfPossible(o.Predicate)),
		})
	}
	f.pending = nil
	return errs
}

func (f *FulfillmentContext) evaluate(ctx *normalize.Context, o ts.Obligation) (res outcome, nested []ts.Obligation, ferr *ts.FulfillmentError) {
	fail := func(code ts.FulfillmentCode, format string, args ...interface{}) (outcome, []ts.Obligation, *ts.FulfillmentError) {
		return fails, nil, &ts.FulfillmentError{Obligation: o, Code: code, Detail: fmt.Sprintf(format, args...)}
	}
	if o.Depth > ctx.Config.RecursionLimit {
		return fail(ts.CodeOverflow, "obligation depth %d exceeds the recursion limit", o.Depth)
	}
	defer func() {
		if r := recover(); r != nil {
			if overflow, ok := r.(*normalize.OverflowError); ok {
				res, nested, ferr = fail(ts.CodeOverflow, "%s", overflow)
				return
			}
			panic(r)
		}
	}()

	pred := ctx.Infer.ResolveIfPossible(o.Predicate)
	if b, ok := pred.(*ts.TForall); ok {
		u := ctx.Infer.CreateNextUniverse()
		vals := make([]ts.Term, len(b.Vars))
		for i, kind := range b.Vars {
			vals[i] = ts.Placeholder(int(u), i, kind)
		}
		pred = ts.OpenBinder(b, vals)
	}
	if ts.AllowsNormalization(pred) {
		n := normalize.NormalizeWithDepth(ctx, o.Env, o.Cause, o.Depth, pred)
		pred, nested = n.Value, n.Obligations
	}

	switch p := pred.(type) {
	case *ts.PTrait:
		return f.evaluateTrait(ctx, o, p, nested)
	case *ts.PProjection:
		proj, ok := f.sel.TryProject(ctx, o.Env, p.Alias, o.Cause, o.Depth)
		if !ok {
			if p.Alias.Flags().HasAny(ts.HasInfer) {
				return pending, nil, nil
			}
			return fail(ts.CodeCannotNormalize, "`%s` cannot be normalized", p.Alias)
		}
		if err := ctx.Infer.Unify(proj.Value, p.Term); err != nil {
			return fail(ts.CodeProjectionMismatch, "expected `%s`, found `%s`", ctx.Infer.ResolveIfPossible(p.Term), proj.Value)
		}
		return holds, append(nested, proj.Obligations...), nil
	case *ts.PWellFormed:
		return holds, nested, nil
	case *ts.PAliasRelate:
		if err := ctx.Infer.Unify(p.Left, p.Right); err != nil {
			if p.Flags().HasAny(ts.HasInfer) {
				return pending, nil, nil
			}
			return fail(ts.CodeProjectionMismatch, "%v", err)
		}
		return holds, nested, nil
	}
	return fail(ts.CodeUnimplemented, "not a predicate: %s", pred)
}

func (f *FulfillmentContext) evaluateTrait(ctx *normalize.Context, o ts.Obligation, p *ts.PTrait, nested []ts.Obligation) (outcome, []ts.Obligation, *ts.FulfillmentError) {
	if _, isVar := p.Self.(*ts.TInfer); isVar {
		return pending, nil, nil
	}
	if p.Trait == symbols.SizedTrait {
		return holds, nested, nil
	}
	header := append([]ts.Term{p.Self}, p.Args...)
	if assumesTrait(o.Env, p.Trait, header) {
		return holds, nested, nil
	}
	c, res := selectImpl(ctx.Infer.NewVar, f.sel.table.ImplsOf(p.Trait), traitHeader, header)
	switch res {
	case Match:
		return holds, append(nested, f.sel.implObligations(o.Env, o.Cause, o.Depth, c)...), nil
	case Ambiguous:
		return pending, nil, nil
	}
	return fails, nil, &ts.FulfillmentError{
		Obligation: o,
		Code:       ts.CodeUnimplemented,
		Detail:     fmt.Sprintf("the trait `%s` is not implemented for `%s`", p.Trait, p.Self),
	}
}
