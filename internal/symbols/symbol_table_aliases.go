package symbols

import (
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// DefineTypeAlias registers a weak (free) type alias with its where-clauses.
func (st *SymbolTable) DefineTypeAlias(name string, generics []ts.GenericParam, body ts.Term, predicates []ts.SpannedPredicate, span ts.Span) error {
	return st.define(&Def{
		ID:         ts.DefID(name),
		Kind:       ts.DefWeakAlias,
		Generics:   generics,
		Body:       body,
		Predicates: predicates,
		Span:       span,
	})
}

// DefineOpaque registers an opaque type together with its hidden type.
func (st *SymbolTable) DefineOpaque(name string, generics []ts.GenericParam, hidden ts.Term, span ts.Span) error {
	return st.define(&Def{
		ID:       ts.DefID(name),
		Kind:     ts.DefOpaque,
		Generics: generics,
		Body:     hidden,
		Span:     span,
	})
}

// DefineConst registers a free const item.
func (st *SymbolTable) DefineConst(name string, generics []ts.GenericParam, value ts.Term, span ts.Span) error {
	return st.define(&Def{
		ID:       ts.DefID(name),
		Kind:     ts.DefConst,
		Generics: generics,
		Body:     value,
		Span:     span,
	})
}
