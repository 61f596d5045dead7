package traits

import (
	"github.com/funvibe/tynorm/internal/normalize"
	"github.com/funvibe/tynorm/internal/symbols"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// SelectionContext resolves aliases against a symbol table. It implements
// normalize.Projector.
type SelectionContext struct {
	table *symbols.SymbolTable
}

func NewSelectionContext(table *symbols.SymbolTable) *SelectionContext {
	return &SelectionContext{table: table}
}

var _ normalize.Projector = (*SelectionContext)(nil)

func (s *SelectionContext) Table() *symbols.SymbolTable {
	return s.table
}

// TryProject resolves a projection or inherent alias. A projection whose
// trait bound is assumed in env for a rigid self type projects to itself.
func (s *SelectionContext) TryProject(ctx *normalize.Context, env ts.ParamEnv, alias *ts.TAlias, cause ts.ObligationCause, depth int) (normalize.Projected, bool) {
	if depth > ctx.Config.RecursionLimit {
		normalize.ReportOverflow(ctx, alias, cause.Span, false, depth)
	}
	alias = ctx.Infer.ResolveIfPossible(alias).(*ts.TAlias)
	switch alias.Kind {
	case ts.Projection:
		return s.projectAssoc(ctx, env, alias, cause, depth)
	case ts.Inherent:
		return s.projectInherent(ctx, env, alias, cause, depth)
	}
	return normalize.Projected{}, false
}

func (s *SelectionContext) projectAssoc(ctx *normalize.Context, env ts.ParamEnv, alias *ts.TAlias, cause ts.ObligationCause, depth int) (normalize.Projected, bool) {
	trait, ok := s.table.TraitOf(alias.Def)
	if !ok {
		return normalize.Projected{}, false
	}
	self := alias.SelfType()
	if _, isVar := self.(*ts.TInfer); isVar {
		return normalize.Projected{}, false
	}

	for _, bound := range env.CallerBounds {
		if p, ok := bound.(*ts.PProjection); ok && ts.Equal(p.Alias, alias) {
			n := normalize.NormalizeWithDepth(ctx, env, cause, depth+1, p.Term)
			return normalize.Projected{Value: n.Value, Obligations: n.Obligations}, true
		}
	}
	if isRigid(self) && assumesTrait(env, trait.ID, alias.Args) {
		return normalize.Projected{Value: alias}, true
	}

	c, res := selectImpl(ctx.Infer.NewVar, s.table.ImplsOf(trait.ID), traitHeader, alias.Args)
	if res != Match {
		return normalize.Projected{}, false
	}
	_, item := alias.Def.Split()
	itemID, ok := c.impl.Items[item]
	if !ok {
		return normalize.Projected{}, false
	}
	return s.confirm(ctx, env, cause, depth, c, itemID), true
}

func (s *SelectionContext) projectInherent(ctx *normalize.Context, env ts.ParamEnv, alias *ts.TAlias, cause ts.ObligationCause, depth int) (normalize.Projected, bool) {
	if kind, ok := s.table.KindOf(alias.Def); !ok || kind != ts.DefInherentTy {
		return normalize.Projected{}, false
	}
	if _, isVar := alias.SelfType().(*ts.TInfer); isVar {
		return normalize.Projected{}, false
	}
	c, res := selectImpl(ctx.Infer.NewVar, s.table.InherentImplsOf(alias.Def), inherentHeader, alias.Args)
	if res != Match {
		return normalize.Projected{}, false
	}
	_, item := alias.Def.Split()
	return s.confirm(ctx, env, cause, depth, c, c.impl.Items[item]), true
}

// confirm instantiates the impl item for a selected candidate, normalizes
// it one level deeper and attaches the impl's where-clauses.
func (s *SelectionContext) confirm(ctx *normalize.Context, env ts.ParamEnv, cause ts.ObligationCause, depth int, c candidate, item ts.DefID) normalize.Projected {
	obligations := s.implObligations(env, cause, depth, c)
	value := ts.Instantiate(s.table.BodyOf(item), c.args)
	n := normalize.NormalizeWithDepth(ctx, env, cause, depth+1, value)
	return normalize.Projected{Value: n.Value, Obligations: append(obligations, n.Obligations...)}
}

func (s *SelectionContext) implObligations(env ts.ParamEnv, cause ts.ObligationCause, depth int, c candidate) []ts.Obligation {
	var out []ts.Obligation
	for _, sp := range c.impl.Predicates {
		out = append(out, ts.Obligation{
			Predicate: ts.Instantiate(sp.Predicate, c.args),
			Cause:     cause.WithCode(ts.ImplWhereClauseCause{Impl: c.impl.ID, Span: sp.Span}),
			Env:       env,
			Depth:     depth + 1,
		})
	}
	return out
}

// EvalConst evaluates a free or associated constant to a value.
func (s *SelectionContext) EvalConst(ctx *normalize.Context, env ts.ParamEnv, c *ts.CAlias, depth int) (ts.Term, bool) {
	if depth > ctx.Config.RecursionLimit {
		normalize.ReportOverflow(ctx, c, ts.Span{}, false, depth)
	}
	c = ctx.Infer.ResolveIfPossible(c).(*ts.CAlias)
	cause := ts.MiscObligation(ts.Span{})

	var value ts.Term
	if !c.Assoc {
		def, ok := s.table.Def(c.Def)
		if !ok || def.Kind != ts.DefConst {
			return nil, false
		}
		value = ts.Instantiate(def.Body, c.Args)
	} else {
		trait, ok := s.table.TraitOf(c.Def)
		if !ok || len(c.Args) == 0 {
			return nil, false
		}
		if _, isVar := c.Args[0].(*ts.TInfer); isVar {
			return nil, false
		}
		cand, res := selectImpl(ctx.Infer.NewVar, s.table.ImplsOf(trait.ID), traitHeader, c.Args)
		if res != Match {
			return nil, false
		}
		_, item := c.Def.Split()
		itemID, ok := cand.impl.Items[item]
		if !ok {
			return nil, false
		}
		value = ts.Instantiate(s.table.BodyOf(itemID), cand.args)
	}
	n := normalize.NormalizeWithDepth(ctx, env, cause, depth+1, value)
	if v, ok := n.Value.(*ts.CValue); ok {
		return v, true
	}
	return nil, false
}

// isRigid reports whether t can only be reasoned about through assumptions.
func isRigid(t ts.Term) bool {
	switch t.(type) {
	case *ts.TParam, *ts.TPlaceholder, *ts.TAlias:
		return true
	}
	return false
}

// assumesTrait reports whether env contains the bound header[0]: trait<header[1:]>.
func assumesTrait(env ts.ParamEnv, trait ts.DefID, header []ts.Term) bool {
	for _, bound := range env.CallerBounds {
		p, ok := bound.(*ts.PTrait)
		if !ok || p.Trait != trait || len(p.Args) != len(header)-1 || !ts.Equal(p.Self, header[0]) {
			continue
		}
		if equalAll(p.Args, header[1:]) {
			return true
		}
	}
	return false
}

func equalAll(a, b []ts.Term) bool {
	for i := range a {
		if !ts.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
