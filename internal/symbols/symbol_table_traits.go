package symbols

import (
	"fmt"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// DefineTrait registers a trait with its associated types and consts.
// Generic parameter 0 of the trait is always Self; params are the rest.
func (st *SymbolTable) DefineTrait(name string, params []ts.GenericParam, types, consts []string, span ts.Span) error {
	id := ts.DefID(name)
	generics := append([]ts.GenericParam{{Name: "Self", Kind: ts.SortType}}, params...)
	trait := &Def{
		ID:       id,
		Kind:     ts.DefTrait,
		Generics: generics,
		Items:    make(map[string]ts.DefID),
		Span:     span,
	}
	if err := st.define(trait); err != nil {
		return err
	}

	addItem := func(item string, kind ts.DefKind) error {
		if _, dup := trait.Items[item]; dup {
			return fmt.Errorf("trait %s declares `%s` twice", name, item)
		}
		itemID := ts.Item(name, item)
		trait.Items[item] = itemID
		return st.define(&Def{ID: itemID, Kind: kind, Parent: id, Generics: generics, Span: span})
	}
	for _, item := range types {
		if err := addItem(item, ts.DefAssocTy); err != nil {
			return err
		}
	}
	for _, item := range consts {
		if err := addItem(item, ts.DefAssocConst); err != nil {
			return err
		}
	}
	return nil
}

// TraitExists reports whether name is a registered trait.
func (st *SymbolTable) TraitExists(name ts.DefID) bool {
	d, ok := st.defs[name]
	return ok && d.Kind == ts.DefTrait
}

// TraitOf returns the trait owning an associated item.
func (st *SymbolTable) TraitOf(item ts.DefID) (*Def, bool) {
	d, ok := st.defs[item]
	if !ok || (d.Kind != ts.DefAssocTy && d.Kind != ts.DefAssocConst) {
		return nil, false
	}
	return st.Def(d.Parent)
}
