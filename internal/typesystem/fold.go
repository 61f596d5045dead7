package typesystem

import "fmt"

// SuperFold rebuilds t with every direct child passed through f, returning t
// itself when nothing changed. It does not track binders: a folder that cares
// about binder depth must handle *TForall before delegating here.
func SuperFold(t Term, f func(Term) Term) Term {
	switch t := t.(type) {
	case *TCon:
		if args, changed := foldList(t.Args, f); changed {
			return Con(t.Name, args...)
		}
		return t
	case *TRef:
		r, e := f(t.Region), f(t.Elem)
		if r == t.Region && e == t.Elem {
			return t
		}
		return Ref(r, e)
	case *TTuple:
		if elems, changed := foldList(t.Elements, f); changed {
			return Tuple(elems...)
		}
		return t
	case *TFunc:
		params, changed := foldList(t.Params, f)
		res := f(t.Result)
		if !changed && res == t.Result {
			return t
		}
		return Func(params, res)
	case *TArray:
		e, l := f(t.Elem), f(t.Len)
		if e == t.Elem && l == t.Len {
			return t
		}
		return Array(e, l)
	case *TAlias:
		if args, changed := foldList(t.Args, f); changed {
			return Alias(t.Kind, t.Def, args...)
		}
		return t
	case *TForall:
		body := f(t.Body)
		if body == t.Body {
			return t
		}
		return Forall(t.Vars, t.Names, body)
	case *CAlias:
		if args, changed := foldList(t.Args, f); changed {
			return ConstAlias(t.Def, t.Assoc, args...)
		}
		return t
	case *PTrait:
		self := f(t.Self)
		args, changed := foldList(t.Args, f)
		if !changed && self == t.Self {
			return t
		}
		return Implements(self, t.Trait, args...)
	case *PProjection:
		args, changed := foldList(t.Alias.Args, f)
		term := f(t.Term)
		if !changed && term == t.Term {
			return t
		}
		alias := t.Alias
		if changed {
			alias = Alias(alias.Kind, alias.Def, args...)
		}
		return ProjectsTo(alias, term)
	case *PWellFormed:
		inner := f(t.Term)
		if inner == t.Term {
			return t
		}
		return WellFormed(inner)
	case *PAliasRelate:
		l, r := f(t.Left), f(t.Right)
		if l == t.Left && r == t.Right {
			return t
		}
		return AliasRelate(l, r)
	}
	return t
}

func foldList(list []Term, f func(Term) Term) ([]Term, bool) {
	var out []Term
	for i, item := range list {
		folded := f(item)
		if out == nil && folded != item {
			out = make([]Term, len(list))
			copy(out, list[:i])
		}
		if out != nil {
			out[i] = folded
		}
	}
	if out == nil {
		return list, false
	}
	return out, true
}

// Children returns the direct subterms of t in fold order.
func Children(t Term) []Term {
	switch t := t.(type) {
	case *TCon:
		return t.Args
	case *TRef:
		return []Term{t.Region, t.Elem}
	case *TTuple:
		return t.Elements
	case *TFunc:
		return append(append([]Term{}, t.Params...), t.Result)
	case *TArray:
		return []Term{t.Elem, t.Len}
	case *TAlias:
		return t.Args
	case *TForall:
		return []Term{t.Body}
	case *CAlias:
		return t.Args
	case *PTrait:
		return append([]Term{t.Self}, t.Args...)
	case *PProjection:
		return append(append([]Term{}, t.Alias.Args...), t.Term)
	case *PWellFormed:
		return []Term{t.Term}
	case *PAliasRelate:
		return []Term{t.Left, t.Right}
	}
	return nil
}

// Walk visits t and its subterms in pre-order. Returning false from visit
// skips the subterms of the visited node.
func Walk(t Term, visit func(Term) bool) {
	if !visit(t) {
		return
	}
	for _, c := range Children(t) {
		Walk(c, visit)
	}
}

// Shift moves every escaping bound variable of t outward by amount binders.
// A negative amount moves them inward and panics if one would escape below 0.
func Shift(t Term, amount int) Term {
	if amount == 0 || !HasEscapingBoundVars(t) {
		return t
	}
	return shifter{amount: amount}.fold(t, 0)
}

type shifter struct {
	amount int
}

func (s shifter) fold(t Term, depth int) Term {
	if !HasVarsBoundAtOrAbove(t, depth) {
		return t
	}
	switch t := t.(type) {
	case *TBound:
		if t.DeBruijn >= depth {
			return Bound(t.DeBruijn+s.amount, t.Var, t.Kind)
		}
		return t
	case *TForall:
		body := s.fold(t.Body, depth+1)
		if body == t.Body {
			return t
		}
		return Forall(t.Vars, t.Names, body)
	}
	return SuperFold(t, func(c Term) Term { return s.fold(c, depth) })
}

// Instantiate replaces every generic parameter TParam{Index: i} in template
// with args[i]. Arguments are shifted over any binders they are placed under.
func Instantiate(template Term, args []Term) Term {
	if template == nil || !template.Flags().HasAny(HasParams) {
		return template
	}
	return instantiator{args: args}.fold(template, 0)
}

// InstantiateAll applies Instantiate to each template.
func InstantiateAll(templates []Term, args []Term) []Term {
	out := make([]Term, len(templates))
	for i, t := range templates {
		out[i] = Instantiate(t, args)
	}
	return out
}

type instantiator struct {
	args []Term
}

func (in instantiator) fold(t Term, depth int) Term {
	if !t.Flags().HasAny(HasParams) {
		return t
	}
	switch t := t.(type) {
	case *TParam:
		if t.Index >= len(in.args) {
			panic(fmt.Sprintf("typesystem: parameter %s (#%d) out of range for %d arguments", t.Name, t.Index, len(in.args)))
		}
		return Shift(in.args[t.Index], depth)
	case *TForall:
		body := in.fold(t.Body, depth+1)
		if body == t.Body {
			return t
		}
		return Forall(t.Vars, t.Names, body)
	}
	return SuperFold(t, func(c Term) Term { return in.fold(c, depth) })
}

// OpenBinder removes the binder b, substituting vals[i] for its i-th variable.
func OpenBinder(b *TForall, vals []Term) Term {
	if len(vals) != len(b.Vars) {
		panic(fmt.Sprintf("typesystem: binder has %d variables, got %d values", len(b.Vars), len(vals)))
	}
	return opener{vals: vals}.fold(b.Body, 0)
}

type opener struct {
	vals []Term
}

func (o opener) fold(t Term, depth int) Term {
	if !HasVarsBoundAtOrAbove(t, depth) {
		return t
	}
	switch t := t.(type) {
	case *TBound:
		switch {
		case t.DeBruijn == depth:
			return Shift(o.vals[t.Var], depth)
		case t.DeBruijn > depth:
			return Bound(t.DeBruijn-1, t.Var, t.Kind)
		}
		return t
	case *TForall:
		body := o.fold(t.Body, depth+1)
		if body == t.Body {
			return t
		}
		return Forall(t.Vars, t.Names, body)
	}
	return SuperFold(t, func(c Term) Term { return o.fold(c, depth) })
}

// Equal reports structural equality. Binder names are ignored.
func Equal(a, b Term) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Flags() != b.Flags() || a.OuterBinder() != b.OuterBinder() {
		return false
	}
	switch a := a.(type) {
	case *TCon:
		bb, ok := b.(*TCon)
		return ok && a.Name == bb.Name && equalList(a.Args, bb.Args)
	case *TParam:
		bb, ok := b.(*TParam)
		return ok && a.Index == bb.Index && a.Name == bb.Name && a.Kind == bb.Kind
	case *TInfer:
		bb, ok := b.(*TInfer)
		return ok && a.ID == bb.ID
	case *TBound:
		bb, ok := b.(*TBound)
		return ok && a.DeBruijn == bb.DeBruijn && a.Var == bb.Var && a.Kind == bb.Kind
	case *TPlaceholder:
		bb, ok := b.(*TPlaceholder)
		return ok && a.Universe == bb.Universe && a.Var == bb.Var && a.Kind == bb.Kind
	case *TRef:
		bb, ok := b.(*TRef)
		return ok && Equal(a.Region, bb.Region) && Equal(a.Elem, bb.Elem)
	case *TTuple:
		bb, ok := b.(*TTuple)
		return ok && equalList(a.Elements, bb.Elements)
	case *TFunc:
		bb, ok := b.(*TFunc)
		return ok && equalList(a.Params, bb.Params) && Equal(a.Result, bb.Result)
	case *TArray:
		bb, ok := b.(*TArray)
		return ok && Equal(a.Elem, bb.Elem) && Equal(a.Len, bb.Len)
	case *TAlias:
		bb, ok := b.(*TAlias)
		return ok && a.Kind == bb.Kind && a.Def == bb.Def && equalList(a.Args, bb.Args)
	case *TForall:
		bb, ok := b.(*TForall)
		if !ok || len(a.Vars) != len(bb.Vars) {
			return false
		}
		for i := range a.Vars {
			if a.Vars[i] != bb.Vars[i] {
				return false
			}
		}
		return Equal(a.Body, bb.Body)
	case *RStatic:
		_, ok := b.(*RStatic)
		return ok
	case *CValue:
		bb, ok := b.(*CValue)
		return ok && a.Value == bb.Value
	case *CAlias:
		bb, ok := b.(*CAlias)
		return ok && a.Def == bb.Def && a.Assoc == bb.Assoc && equalList(a.Args, bb.Args)
	case *PTrait:
		bb, ok := b.(*PTrait)
		return ok && a.Trait == bb.Trait && Equal(a.Self, bb.Self) && equalList(a.Args, bb.Args)
	case *PProjection:
		bb, ok := b.(*PProjection)
		return ok && Equal(a.Alias, bb.Alias) && Equal(a.Term, bb.Term)
	case *PWellFormed:
		bb, ok := b.(*PWellFormed)
		return ok && Equal(a.Term, bb.Term)
	case *PAliasRelate:
		bb, ok := b.(*PAliasRelate)
		return ok && Equal(a.Left, bb.Left) && Equal(a.Right, bb.Right)
	}
	return false
}

func equalList(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
