package symbols

import (
	"fmt"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// SymbolTable is the in-memory definition store. It is filled once and then
// only read, so concurrent lookups are safe after construction.
type SymbolTable struct {
	defs      map[ts.DefID]*Def
	order     []ts.DefID
	impls     map[ts.DefID][]ts.DefID // trait -> impls, in registration order
	inherent  []ts.DefID
	implCount int
}

// NewSymbolTable creates a table holding only the builtin traits.
func NewSymbolTable() *SymbolTable {
	st := NewEmptySymbolTable()
	st.InitBuiltins()
	return st
}

func NewEmptySymbolTable() *SymbolTable {
	return &SymbolTable{
		defs:  make(map[ts.DefID]*Def),
		impls: make(map[ts.DefID][]ts.DefID),
	}
}

// Clone returns a table with the same definitions that can be extended
// without affecting st. Definitions are shared; they are never modified once
// registered.
func (st *SymbolTable) Clone() *SymbolTable {
	c := &SymbolTable{
		defs:      make(map[ts.DefID]*Def, len(st.defs)),
		order:     append([]ts.DefID(nil), st.order...),
		impls:     make(map[ts.DefID][]ts.DefID, len(st.impls)),
		inherent:  append([]ts.DefID(nil), st.inherent...),
		implCount: st.implCount,
	}
	for id, d := range st.defs {
		c.defs[id] = d
	}
	for trait, ids := range st.impls {
		c.impls[trait] = append([]ts.DefID(nil), ids...)
	}
	return c
}

// SizedTrait is the builtin marker trait every non-inference type implements.
const SizedTrait ts.DefID = "Sized"

func (st *SymbolTable) InitBuiltins() {
	if _, ok := st.defs[SizedTrait]; ok {
		return
	}
	st.insert(&Def{
		ID:       SizedTrait,
		Kind:     ts.DefTrait,
		Generics: []ts.GenericParam{{Name: "Self", Kind: ts.SortType}},
		Items:    map[string]ts.DefID{},
	})
}

func (st *SymbolTable) insert(d *Def) {
	if _, exists := st.defs[d.ID]; !exists {
		st.order = append(st.order, d.ID)
	}
	st.defs[d.ID] = d
	switch d.Kind {
	case ts.DefImpl:
		st.impls[d.Trait] = append(st.impls[d.Trait], d.ID)
		st.implCount++
	case ts.DefInherentImpl:
		st.inherent = append(st.inherent, d.ID)
		st.implCount++
	}
}

func (st *SymbolTable) define(d *Def) error {
	if existing, ok := st.defs[d.ID]; ok {
		return fmt.Errorf("%s `%s` is already defined as a %s", d.Kind, d.ID, existing.Kind)
	}
	st.insert(d)
	return nil
}

// Def returns the definition with the given id.
func (st *SymbolTable) Def(id ts.DefID) (*Def, bool) {
	d, ok := st.defs[id]
	return d, ok
}

// KindOf returns the kind of a definition.
func (st *SymbolTable) KindOf(id ts.DefID) (ts.DefKind, bool) {
	d, ok := st.defs[id]
	if !ok {
		return 0, false
	}
	return d.Kind, true
}

func (st *SymbolTable) mustDef(id ts.DefID) *Def {
	d, ok := st.defs[id]
	if !ok {
		panic(ts.NewUnknownDefError(id))
	}
	return d
}

// BodyOf returns the body template of an alias, opaque, const or impl item.
// Asking for an unknown definition is a programming error.
func (st *SymbolTable) BodyOf(id ts.DefID) ts.Term {
	return st.mustDef(id).Body
}

// PredicatesOf returns the where-clause templates of a definition.
func (st *SymbolTable) PredicatesOf(id ts.DefID) []ts.SpannedPredicate {
	return st.mustDef(id).Predicates
}

// ImplsOf returns the impls of a trait in registration order.
func (st *SymbolTable) ImplsOf(trait ts.DefID) []*Def {
	ids := st.impls[trait]
	out := make([]*Def, len(ids))
	for i, id := range ids {
		out[i] = st.defs[id]
	}
	return out
}

// InherentImpls returns every inherent impl in registration order.
func (st *SymbolTable) InherentImpls() []*Def {
	out := make([]*Def, len(st.inherent))
	for i, id := range st.inherent {
		out[i] = st.defs[id]
	}
	return out
}

// Defs returns every definition in registration order.
func (st *SymbolTable) Defs() []*Def {
	out := make([]*Def, len(st.order))
	for i, id := range st.order {
		out[i] = st.defs[id]
	}
	return out
}

func (st *SymbolTable) nextImplID() ts.DefID {
	return ts.DefID(fmt.Sprintf("impl#%d", st.implCount))
}
