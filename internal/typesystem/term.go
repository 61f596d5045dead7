package typesystem

// Sort distinguishes the syntactic categories a term can belong to.
type Sort int

const (
	SortType Sort = iota
	SortRegion
	SortConst
	SortPredicate
)

func (s Sort) String() string {
	switch s {
	case SortType:
		return "type"
	case SortRegion:
		return "region"
	case SortConst:
		return "const"
	case SortPredicate:
		return "predicate"
	}
	return "unknown"
}

// Flags summarize what a term contains, so folders can skip subtrees.
type Flags uint32

const (
	HasTyProjection Flags = 1 << iota // projection or weak alias
	HasTyInherent
	HasTyOpaque
	HasCtProjection
	HasInfer
	HasPlaceholder
	HasParams
	HasBound
)

// HasAny reports whether any of the given flags are set.
func (f Flags) HasAny(mask Flags) bool { return f&mask != 0 }

// Term is the interface for all types, regions, consts and predicates.
// Terms are immutable; they are built only through the constructors in this
// package, which compute Flags and OuterBinder once.
type Term interface {
	String() string
	Flags() Flags
	// OuterBinder is the number of binders a term must be wrapped in to have
	// no escaping bound variables. Zero means the term is closed.
	OuterBinder() int
	Sort() Sort
}

type meta struct {
	flags Flags
	outer int
}

func (m meta) Flags() Flags      { return m.flags }
func (m meta) OuterBinder() int { return m.outer }

func metaOf(own Flags, children ...Term) meta {
	m := meta{flags: own}
	for _, c := range children {
		m.flags |= c.Flags()
		if o := c.OuterBinder(); o > m.outer {
			m.outer = o
		}
	}
	return m
}

func metaOfSlices(own Flags, groups ...[]Term) meta {
	m := meta{flags: own}
	for _, g := range groups {
		for _, c := range g {
			m.flags |= c.Flags()
			if o := c.OuterBinder(); o > m.outer {
				m.outer = o
			}
		}
	}
	return m
}

// TCon is a nominal type applied to generic arguments (e.g. Int, Vec<T>).
type TCon struct {
	meta
	Name string
	Args []Term
}

func (t *TCon) Sort() Sort { return SortType }

// Con builds a nominal type.
func Con(name string, args ...Term) *TCon {
	return &TCon{meta: metaOfSlices(0, args), Name: name, Args: args}
}

// TParam is a generic parameter of the enclosing definition. Its Kind says
// whether it stands for a type, a region or a const.
type TParam struct {
	meta
	Index int
	Name  string
	Kind  Sort
}

func (t *TParam) Sort() Sort { return t.Kind }

// Param builds a generic parameter reference.
func Param(index int, name string, kind Sort) *TParam {
	return &TParam{meta: meta{flags: HasParams}, Index: index, Name: name, Kind: kind}
}

// TInfer is a type inference variable.
type TInfer struct {
	meta
	ID int
}

func (t *TInfer) Sort() Sort { return SortType }

// Infer builds an inference variable reference.
func Infer(id int) *TInfer {
	return &TInfer{meta: meta{flags: HasInfer}, ID: id}
}

// TBound is a variable bound by an enclosing TForall. DeBruijn counts binders
// outward from the occurrence; Var is the position in that binder's list.
type TBound struct {
	meta
	DeBruijn int
	Var      int
	Kind     Sort
}

func (t *TBound) Sort() Sort { return t.Kind }

// Bound builds a bound variable.
func Bound(debruijn, v int, kind Sort) *TBound {
	if debruijn < 0 {
		panic("typesystem: negative De Bruijn index")
	}
	return &TBound{meta: meta{flags: HasBound, outer: debruijn + 1}, DeBruijn: debruijn, Var: v, Kind: kind}
}

// TPlaceholder is a universally quantified variable opened in a universe.
type TPlaceholder struct {
	meta
	Universe int
	Var      int
	Kind     Sort
}

func (t *TPlaceholder) Sort() Sort { return t.Kind }

// Placeholder builds a placeholder.
func Placeholder(universe, v int, kind Sort) *TPlaceholder {
	return &TPlaceholder{meta: meta{flags: HasPlaceholder}, Universe: universe, Var: v, Kind: kind}
}

// TRef is a reference type &'r T.
type TRef struct {
	meta
	Region Term
	Elem   Term
}

func (t *TRef) Sort() Sort { return SortType }

func Ref(region, elem Term) *TRef {
	return &TRef{meta: metaOf(0, region, elem), Region: region, Elem: elem}
}

type TTuple struct {
	meta
	Elements []Term
}

func (t *TTuple) Sort() Sort { return SortType }

func Tuple(elems ...Term) *TTuple {
	return &TTuple{meta: metaOfSlices(0, elems), Elements: elems}
}

// Unit is the empty tuple.
var Unit = Tuple()

type TFunc struct {
	meta
	Params []Term
	Result Term
}

func (t *TFunc) Sort() Sort { return SortType }

func Func(params []Term, result Term) *TFunc {
	m := metaOfSlices(0, params, []Term{result})
	return &TFunc{meta: m, Params: params, Result: result}
}

// TArray is [Elem; Len] where Len is a const.
type TArray struct {
	meta
	Elem Term
	Len  Term
}

func (t *TArray) Sort() Sort { return SortType }

func Array(elem, length Term) *TArray {
	return &TArray{meta: metaOf(0, elem, length), Elem: elem, Len: length}
}

// AliasKind is the flavour of an alias type.
type AliasKind int

const (
	// Projection is a trait-associated type <S as Trait<..>>::Name.
	// Args[0] is the self type, the rest are trait arguments.
	Projection AliasKind = iota
	// Inherent is an associated type of an inherent impl, Args[0] is the receiver.
	Inherent
	// Opaque hides its underlying type unless the environment reveals it.
	Opaque
	// Weak is a free type alias; it is always transparent.
	Weak
)

func (k AliasKind) String() string {
	switch k {
	case Projection:
		return "projection"
	case Inherent:
		return "inherent"
	case Opaque:
		return "opaque"
	case Weak:
		return "weak"
	}
	return "unknown"
}

func (k AliasKind) flag() Flags {
	switch k {
	case Projection, Weak:
		return HasTyProjection
	case Inherent:
		return HasTyInherent
	case Opaque:
		return HasTyOpaque
	}
	panic("typesystem: unknown alias kind")
}

// TAlias is a type alias awaiting normalization.
type TAlias struct {
	meta
	Kind AliasKind
	Def  DefID
	Args []Term
}

func (t *TAlias) Sort() Sort { return SortType }

// Alias builds an alias type.
func Alias(kind AliasKind, def DefID, args ...Term) *TAlias {
	return &TAlias{meta: metaOfSlices(kind.flag(), args), Kind: kind, Def: def, Args: args}
}

// SelfType returns the receiver of a projection or inherent alias.
func (t *TAlias) SelfType() Term {
	if len(t.Args) == 0 {
		return nil
	}
	return t.Args[0]
}

// TForall binds Vars (by position) in Body. Names are cosmetic and ignored by
// Equal; they only drive printing.
type TForall struct {
	meta
	Vars  []Sort
	Names []string
	Body  Term
}

func (t *TForall) Sort() Sort { return t.Body.Sort() }

// Forall wraps body in a binder.
func Forall(vars []Sort, names []string, body Term) *TForall {
	m := metaOf(0, body)
	if m.outer > 0 {
		m.outer--
	}
	return &TForall{meta: m, Vars: vars, Names: names, Body: body}
}

// RStatic is the 'static region.
type RStatic struct{ meta }

func (r *RStatic) Sort() Sort { return SortRegion }

var Static = &RStatic{}

// CValue is an evaluated integer constant.
type CValue struct {
	meta
	Value int64
}

func (c *CValue) Sort() Sort { return SortConst }

func Value(v int64) *CValue { return &CValue{Value: v} }

// CAlias is an unevaluated constant: a free const item, or an associated
// const <S as Trait>::NAME when Assoc is set.
type CAlias struct {
	meta
	Def   DefID
	Args  []Term
	Assoc bool
}

func (c *CAlias) Sort() Sort { return SortConst }

// ConstAlias builds an unevaluated constant.
func ConstAlias(def DefID, assoc bool, args ...Term) *CAlias {
	return &CAlias{meta: metaOfSlices(HasCtProjection, args), Def: def, Args: args, Assoc: assoc}
}

// HasEscapingBoundVars reports whether t mentions a variable bound outside it.
func HasEscapingBoundVars(t Term) bool { return t.OuterBinder() > 0 }

// HasVarsBoundAtOrAbove reports whether t mentions a variable bound by the
// binder at depth or further out.
func HasVarsBoundAtOrAbove(t Term, depth int) bool { return t.OuterBinder() > depth }
