package symbols

import (
	"fmt"
	"sort"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// RegisterImplementation registers a trait impl after checking it against
// the trait declaration and every existing impl of the same trait.
func (st *SymbolTable) RegisterImplementation(decl ImplDecl) (*Def, error) {
	trait, ok := st.defs[decl.Trait]
	if !ok || trait.Kind != ts.DefTrait {
		return nil, fmt.Errorf("impl of unknown trait %s", decl.Trait)
	}
	if want := len(trait.Generics) - 1; len(decl.TraitArgs) != want {
		return nil, fmt.Errorf("trait %s takes %d arguments, impl gives %d", decl.Trait, want, len(decl.TraitArgs))
	}

	id := decl.ID
	if id == "" {
		id = st.nextImplID()
	}

	// Check overlap against every impl of the trait.
	header := ts.Tuple(append([]ts.Term{decl.SelfTy}, decl.TraitArgs...)...)
	renamed := RenameParams(header, decl.Generics, 1000)
	for _, existing := range st.ImplsOf(decl.Trait) {
		other := RenameParams(ts.Tuple(existing.Header()...), existing.Generics, 0)
		if _, err := ts.Unify(other, renamed); err == nil {
			return nil, fmt.Errorf("overlapping implementations of trait %s: %s (%s) and %s (%s)",
				decl.Trait, existing.SelfTy, existing.ID, decl.SelfTy, id)
		}
	}

	impl := &Def{
		ID:         id,
		Kind:       ts.DefImpl,
		Generics:   decl.Generics,
		Predicates: decl.Predicates,
		Trait:      decl.Trait,
		TraitArgs:  decl.TraitArgs,
		SelfTy:     decl.SelfTy,
		Items:      make(map[string]ts.DefID),
		Span:       decl.Span,
	}
	items := make([]*Def, 0, len(decl.Types)+len(decl.Consts))
	addItems := func(values map[string]ts.Term, kind ts.DefKind) error {
		for _, name := range sortedKeys(values) {
			traitItem, ok := trait.Items[name]
			if !ok {
				return fmt.Errorf("`%s` is not a member of trait %s", name, decl.Trait)
			}
			if itemKind, _ := st.KindOf(traitItem); itemKind != kind {
				return fmt.Errorf("`%s` of trait %s is a %s", name, decl.Trait, itemKind)
			}
			itemID := ts.Item(string(id), name)
			impl.Items[name] = itemID
			items = append(items, &Def{
				ID:       itemID,
				Kind:     ts.DefImplItem,
				Parent:   id,
				Generics: decl.Generics,
				Body:     values[name],
				Span:     decl.Span,
			})
		}
		return nil
	}
	if err := addItems(decl.Types, ts.DefAssocTy); err != nil {
		return nil, err
	}
	if err := addItems(decl.Consts, ts.DefAssocConst); err != nil {
		return nil, err
	}
	for name := range trait.Items {
		if _, ok := impl.Items[name]; !ok {
			return nil, fmt.Errorf("impl %s of trait %s is missing `%s`", id, decl.Trait, name)
		}
	}

	if err := st.define(impl); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := st.define(item); err != nil {
			return nil, err
		}
	}
	return impl, nil
}

// RegisterInherentImpl registers an inherent impl. Its associated types are
// addressed as <TypeName>::<Item>; several impls for the same constructor
// may define an item as long as their self types do not overlap. The body
// of each definition lives in an impl item of its own.
func (st *SymbolTable) RegisterInherentImpl(decl InherentImplDecl) (*Def, error) {
	self, ok := decl.SelfTy.(*ts.TCon)
	if !ok {
		return nil, fmt.Errorf("inherent impl must be for a nominal type, got %s", decl.SelfTy)
	}
	id := decl.ID
	if id == "" {
		id = st.nextImplID()
	}

	renamed := RenameParams(decl.SelfTy, decl.Generics, 1000)
	var shared []*Def
	for _, name := range sortedKeys(decl.Types) {
		alias := ts.Item(self.Name, name)
		existing, ok := st.defs[alias]
		if !ok {
			shared = append(shared, &Def{ID: alias, Kind: ts.DefInherentTy, Span: decl.Span})
			continue
		}
		if existing.Kind != ts.DefInherentTy {
			return nil, fmt.Errorf("inherent associated type %s is already defined as a %s", alias, existing.Kind)
		}
		for _, other := range st.InherentImplsOf(alias) {
			if _, err := ts.Unify(RenameParams(other.SelfTy, other.Generics, 0), renamed); err == nil {
				return nil, fmt.Errorf("overlapping definitions of %s: for %s (%s) and %s (%s)",
					alias, other.SelfTy, other.ID, decl.SelfTy, id)
			}
		}
	}

	impl := &Def{
		ID:         id,
		Kind:       ts.DefInherentImpl,
		Generics:   decl.Generics,
		Predicates: decl.Predicates,
		SelfTy:     decl.SelfTy,
		Items:      make(map[string]ts.DefID),
		Span:       decl.Span,
	}
	var items []*Def
	for _, name := range sortedKeys(decl.Types) {
		itemID := ts.Item(string(id), name)
		impl.Items[name] = itemID
		items = append(items, &Def{
			ID:       itemID,
			Kind:     ts.DefImplItem,
			Parent:   id,
			Generics: decl.Generics,
			Body:     decl.Types[name],
			Span:     decl.Span,
		})
	}
	if err := st.define(impl); err != nil {
		return nil, err
	}
	for _, d := range append(shared, items...) {
		if err := st.define(d); err != nil {
			return nil, err
		}
	}
	return impl, nil
}

// InherentImplsOf returns the inherent impls that define the inherent
// associated type alias, in registration order.
func (st *SymbolTable) InherentImplsOf(alias ts.DefID) []*Def {
	owner, name := alias.Split()
	var out []*Def
	for _, impl := range st.InherentImpls() {
		con, ok := impl.SelfTy.(*ts.TCon)
		if !ok || con.Name != owner {
			continue
		}
		if _, ok := impl.Items[name]; ok {
			out = append(out, impl)
		}
	}
	return out
}

func sortedKeys(m map[string]ts.Term) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
