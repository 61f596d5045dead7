package typesystem

// Predicate is a term of SortPredicate.
type Predicate interface {
	Term
	// AllowsNormalization reports whether aliases inside the predicate may be
	// rewritten. Well-formedness and alias-relate goals talk about the alias
	// itself and must see it unchanged.
	AllowsNormalization() bool
}

// PTrait is Self: Trait<Args>.
type PTrait struct {
	meta
	Self  Term
	Trait DefID
	Args  []Term
}

func (p *PTrait) Sort() Sort                { return SortPredicate }
func (p *PTrait) AllowsNormalization() bool { return true }

// Implements builds a trait predicate.
func Implements(self Term, trait DefID, args ...Term) *PTrait {
	return &PTrait{meta: metaOfSlices(0, []Term{self}, args), Self: self, Trait: trait, Args: args}
}

// PProjection is Alias == Term. Only the alias arguments contribute flags,
// the alias itself is the subject of the predicate.
type PProjection struct {
	meta
	Alias *TAlias
	Term  Term
}

func (p *PProjection) Sort() Sort                { return SortPredicate }
func (p *PProjection) AllowsNormalization() bool { return true }

// ProjectsTo builds a projection predicate.
func ProjectsTo(alias *TAlias, term Term) *PProjection {
	return &PProjection{meta: metaOfSlices(0, alias.Args, []Term{term}), Alias: alias, Term: term}
}

// PWellFormed asserts that a term is well formed.
type PWellFormed struct {
	meta
	Term Term
}

func (p *PWellFormed) Sort() Sort                { return SortPredicate }
func (p *PWellFormed) AllowsNormalization() bool { return false }

func WellFormed(t Term) *PWellFormed {
	return &PWellFormed{meta: metaOf(0, t), Term: t}
}

// PAliasRelate relates two terms that may be unnormalized aliases.
type PAliasRelate struct {
	meta
	Left  Term
	Right Term
}

func (p *PAliasRelate) Sort() Sort                { return SortPredicate }
func (p *PAliasRelate) AllowsNormalization() bool { return false }

func AliasRelate(left, right Term) *PAliasRelate {
	return &PAliasRelate{meta: metaOf(0, left, right), Left: left, Right: right}
}

// AllowsNormalization reports whether t may be normalized. Non-predicate
// terms always may; a binder defers to what it wraps.
func AllowsNormalization(t Term) bool {
	switch p := t.(type) {
	case Predicate:
		return p.AllowsNormalization()
	case *TForall:
		return AllowsNormalization(p.Body)
	}
	return true
}
