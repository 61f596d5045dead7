package normalize

import (
	"fmt"

	"github.com/funvibe/tynorm/internal/infer"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// universeSlot is one entry of the universe stack kept by the normalizer,
// one per binder it has entered. A universe is only created the first time
// a variable of that binder has to be replaced.
type universeSlot struct {
	assigned bool
	universe infer.Universe
}

type boundVar struct {
	Var  int
	Kind ts.Sort
}

type placeholderKey struct {
	Universe infer.Universe
	Var      int
	Kind     ts.Sort
}

// boundVarReplacer swaps variables bound outside the folded value for
// placeholders, allocating universes on the shared stack as needed.
type boundVarReplacer struct {
	n       *Normalizer
	current int
	mapped  map[placeholderKey]boundVar
}

// replaceBoundVars returns value with every escaping bound variable replaced
// by a placeholder, and the mapping needed to undo it.
func (n *Normalizer) replaceBoundVars(value ts.Term) (ts.Term, map[placeholderKey]boundVar) {
	r := &boundVarReplacer{n: n, mapped: map[placeholderKey]boundVar{}}
	return r.fold(value), r.mapped
}

func (r *boundVarReplacer) fold(t ts.Term) ts.Term {
	if !ts.HasVarsBoundAtOrAbove(t, r.current) {
		return t
	}
	switch t := t.(type) {
	case *ts.TBound:
		if t.DeBruijn < r.current {
			return t
		}
		u := r.universeFor(t.DeBruijn)
		r.mapped[placeholderKey{Universe: u, Var: t.Var, Kind: t.Kind}] = boundVar{Var: t.Var, Kind: t.Kind}
		return ts.Placeholder(int(u), t.Var, t.Kind)
	case *ts.TForall:
		r.current++
		out := r.n.nested(t, func() ts.Term { return ts.SuperFold(t, r.fold) })
		r.current--
		return out
	}
	return r.n.nested(t, func() ts.Term { return ts.SuperFold(t, r.fold) })
}

func (r *boundVarReplacer) universeFor(debruijn int) infer.Universe {
	stack := r.n.universes
	index := len(stack) + r.current - debruijn - 1
	if index < 0 || index >= len(stack) {
		panic(fmt.Sprintf("normalize: bound variable ^%d has no enclosing binder", debruijn))
	}
	if !stack[index].assigned {
		for i := 0; i <= index; i++ {
			if !stack[i].assigned {
				stack[i] = universeSlot{assigned: true, universe: r.n.ctx.Infer.CreateNextUniverse()}
			}
		}
	}
	return stack[index].universe
}

// placeholderReplacer maps placeholders created by boundVarReplacer back to
// bound variables, relative to the position of the folded value.
type placeholderReplacer struct {
	n       *Normalizer
	mapped  map[placeholderKey]boundVar
	current int
}

func (n *Normalizer) replacePlaceholders(mapped map[placeholderKey]boundVar, value ts.Term) ts.Term {
	if len(mapped) == 0 {
		return value
	}
	p := &placeholderReplacer{n: n, mapped: mapped}
	return p.fold(n.resolve(value))
}

func (p *placeholderReplacer) fold(t ts.Term) ts.Term {
	if !t.Flags().HasAny(ts.HasPlaceholder) {
		return t
	}
	switch t := t.(type) {
	case *ts.TPlaceholder:
		key := placeholderKey{Universe: infer.Universe(t.Universe), Var: t.Var, Kind: t.Kind}
		bv, ok := p.mapped[key]
		if !ok {
			return t
		}
		universes := p.n.universes
		index := -1
		for i, slot := range universes {
			if slot.assigned && slot.universe == key.Universe {
				index = i
				break
			}
		}
		if index < 0 {
			panic(fmt.Sprintf("normalize: placeholder universe %d is not on the stack", t.Universe))
		}
		return ts.Bound(len(universes)-index+p.current-1, bv.Var, bv.Kind)
	case *ts.TForall:
		p.current++
		out := p.n.nested(t, func() ts.Term { return ts.SuperFold(t, p.fold) })
		p.current--
		return out
	}
	return p.n.nested(t, func() ts.Term { return ts.SuperFold(t, p.fold) })
}

// withReplacedEscapingBoundVars runs f on value with its escaping bound
// variables replaced by placeholders and restores them in the result.
func (n *Normalizer) withReplacedEscapingBoundVars(value ts.Term, f func(ts.Term) ts.Term) ts.Term {
	if !ts.HasEscapingBoundVars(value) {
		return f(value)
	}
	replaced, mapped := n.replaceBoundVars(value)
	result := f(replaced)
	return n.replacePlaceholders(mapped, result)
}
