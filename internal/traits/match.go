// Package traits is the proof engine used by the normalizer: impl
// selection, projection of associated items and an obligation fulfillment
// loop.
package traits

import (
	"github.com/funvibe/tynorm/internal/symbols"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// MatchResult is the outcome of matching a goal against impl headers.
type MatchResult int

const (
	NoMatch MatchResult = iota
	Match
	Ambiguous
)

func (r MatchResult) String() string {
	switch r {
	case Match:
		return "match"
	case Ambiguous:
		return "ambiguous"
	}
	return "no match"
}

// matcher matches an impl header template one way against a goal: only the
// template's generic parameters are bound. Regions are not compared. A
// parameter never binds to a term that mentions a variable of a binder the
// match has entered.
type matcher struct {
	args      []ts.Term
	ambiguous bool
}

func (m *matcher) match(pattern, target ts.Term) bool {
	if p, ok := pattern.(*ts.TParam); ok && p.Index < len(m.args) {
		if ts.HasEscapingBoundVars(target) {
			return false
		}
		prev := m.args[p.Index]
		switch {
		case prev == nil:
			m.args[p.Index] = target
			return true
		case p.Kind == ts.SortRegion || ts.Equal(prev, target):
			return true
		case prev.Flags().HasAny(ts.HasInfer) || target.Flags().HasAny(ts.HasInfer):
			m.ambiguous = true
			return true
		}
		return false
	}
	if pattern.Sort() == ts.SortRegion && target.Sort() == ts.SortRegion {
		return true
	}
	if _, ok := target.(*ts.TInfer); ok {
		m.ambiguous = true
		return true
	}
	if !sameHead(pattern, target) {
		return false
	}
	pc, tc := ts.Children(pattern), ts.Children(target)
	for i := range pc {
		if !m.match(pc[i], tc[i]) {
			return false
		}
	}
	return true
}

// sameHead compares the outermost constructor of two terms, including
// everything that is not a child term.
func sameHead(a, b ts.Term) bool {
	switch a := a.(type) {
	case *ts.TCon:
		b, ok := b.(*ts.TCon)
		return ok && a.Name == b.Name && len(a.Args) == len(b.Args)
	case *ts.TRef:
		_, ok := b.(*ts.TRef)
		return ok
	case *ts.TTuple:
		b, ok := b.(*ts.TTuple)
		return ok && len(a.Elements) == len(b.Elements)
	case *ts.TFunc:
		b, ok := b.(*ts.TFunc)
		return ok && len(a.Params) == len(b.Params)
	case *ts.TArray:
		_, ok := b.(*ts.TArray)
		return ok
	case *ts.TAlias:
		b, ok := b.(*ts.TAlias)
		return ok && a.Kind == b.Kind && a.Def == b.Def && len(a.Args) == len(b.Args)
	case *ts.TForall:
		b, ok := b.(*ts.TForall)
		if !ok || len(a.Vars) != len(b.Vars) {
			return false
		}
		for i := range a.Vars {
			if a.Vars[i] != b.Vars[i] {
				return false
			}
		}
		return true
	case *ts.CAlias:
		b, ok := b.(*ts.CAlias)
		return ok && a.Def == b.Def && a.Assoc == b.Assoc && len(a.Args) == len(b.Args)
	}
	return ts.Equal(a, b)
}

// candidate is an impl whose header matched a goal, with the generic
// arguments that make it match.
type candidate struct {
	impl *symbols.Def
	args []ts.Term
}

// matchImpl matches one impl header against goal. Type parameters the
// header does not mention are filled with fresh inference variables and
// regions with 'static; an unconstrained const parameter rejects the impl.
func matchImpl(newVar func() *ts.TInfer, impl *symbols.Def, pattern, goal []ts.Term) (candidate, MatchResult) {
	if len(pattern) != len(goal) {
		return candidate{}, NoMatch
	}
	m := &matcher{args: make([]ts.Term, len(impl.Generics))}
	if !m.match(ts.Tuple(pattern...), ts.Tuple(goal...)) {
		return candidate{}, NoMatch
	}
	if m.ambiguous {
		return candidate{}, Ambiguous
	}
	for i, a := range m.args {
		if a != nil {
			continue
		}
		switch impl.Generics[i].Kind {
		case ts.SortRegion:
			m.args[i] = ts.Static
		case ts.SortType:
			m.args[i] = newVar()
		default:
			return candidate{}, NoMatch
		}
	}
	return candidate{impl: impl, args: m.args}, Match
}

// selectImpl picks the single impl among impls whose header matches goal.
// Where-clauses are not consulted; they become obligations of the match.
func selectImpl(newVar func() *ts.TInfer, impls []*symbols.Def, header func(*symbols.Def) []ts.Term, goal []ts.Term) (candidate, MatchResult) {
	var found []candidate
	for _, impl := range impls {
		c, res := matchImpl(newVar, impl, header(impl), goal)
		switch res {
		case Ambiguous:
			return candidate{}, Ambiguous
		case Match:
			found = append(found, c)
		}
	}
	switch len(found) {
	case 0:
		return candidate{}, NoMatch
	case 1:
		return found[0], Match
	}
	return candidate{}, Ambiguous
}

func traitHeader(impl *symbols.Def) []ts.Term {
	return impl.Header()
}

func inherentHeader(impl *symbols.Def) []ts.Term {
	return []ts.Term{impl.SelfTy}
}
