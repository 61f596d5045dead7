package symbols

import (
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Def is one registered definition. Which fields are meaningful depends on
// Kind; templates (Body, Predicates, TraitArgs, SelfTy) refer to Generics
// through TParam indices.
type Def struct {
	ID       ts.DefID
	Kind     ts.DefKind
	Parent   ts.DefID // trait of an associated item, impl of an impl item
	Generics []ts.GenericParam
	Span     ts.Span

	// Alias body, opaque hidden type, const value or impl item value.
	Body       ts.Term
	Predicates []ts.SpannedPredicate

	// Impls only.
	Trait     ts.DefID
	TraitArgs []ts.Term
	SelfTy    ts.Term

	// Traits and impls: item name to item definition.
	Items map[string]ts.DefID
}

// Header returns the self type followed by the trait arguments of an impl.
func (d *Def) Header() []ts.Term {
	return append([]ts.Term{d.SelfTy}, d.TraitArgs...)
}

// ImplDecl describes a trait impl to register.
type ImplDecl struct {
	ID         ts.DefID // generated when empty
	Generics   []ts.GenericParam
	Trait      ts.DefID
	TraitArgs  []ts.Term
	SelfTy     ts.Term
	Predicates []ts.SpannedPredicate
	Types      map[string]ts.Term
	Consts     map[string]ts.Term
	Span       ts.Span
}

// InherentImplDecl describes an inherent impl carrying associated types.
type InherentImplDecl struct {
	ID         ts.DefID
	Generics   []ts.GenericParam
	SelfTy     ts.Term
	Predicates []ts.SpannedPredicate
	Types      map[string]ts.Term
	Span       ts.Span
}

// RenameParams replaces the type parameters of a template with inference
// variables numbered from offset, so two generic headers can be unified
// without their parameters colliding. Region parameters become 'static and
// const parameters stay rigid.
func RenameParams(t ts.Term, generics []ts.GenericParam, offset int) ts.Term {
	args := make([]ts.Term, len(generics))
	for i, g := range generics {
		switch g.Kind {
		case ts.SortType:
			args[i] = ts.Infer(offset + i)
		case ts.SortRegion:
			args[i] = ts.Static
		default:
			args[i] = ts.Param(i, g.Name, g.Kind)
		}
	}
	return ts.Instantiate(t, args)
}
