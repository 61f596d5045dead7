package typesystem

import (
	"fmt"
)

// Subst maps inference variable ids to terms.
type Subst map[int]Term

// Apply replaces every bound inference variable in t, following chains of
// bindings.
func (s Subst) Apply(t Term) Term {
	if len(s) == 0 || t == nil || !t.Flags().HasAny(HasInfer) {
		return t
	}
	return applyWithCycleCheck(t, s, nil)
}

// applyWithCycleCheck stops following a chain as soon as it revisits a
// variable, returning the variable as-is.
func applyWithCycleCheck(t Term, s Subst, visited map[int]bool) Term {
	if !t.Flags().HasAny(HasInfer) {
		return t
	}
	if v, ok := t.(*TInfer); ok {
		if visited[v.ID] {
			return v
		}
		replacement, ok := s[v.ID]
		if !ok {
			return v
		}
		if rv, ok := replacement.(*TInfer); ok && rv.ID == v.ID {
			return v
		}
		newVisited := make(map[int]bool, len(visited)+1)
		for k := range visited {
			newVisited[k] = true
		}
		newVisited[v.ID] = true
		return applyWithCycleCheck(replacement, s, newVisited)
	}
	return SuperFold(t, func(c Term) Term { return applyWithCycleCheck(c, s, visited) })
}

// Compose combines two substitutions: the result applies s1 and then s2.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = s2.Apply(v)
	}
	return subst
}

// Unify attempts to find a substitution that makes t1 and t2 equal.
// Only inference variables are bound; params, placeholders and bound
// variables are rigid. Aliases unify structurally, as rigid types.
func Unify(t1, t2 Term) (Subst, error) {
	if Equal(t1, t2) {
		return Subst{}, nil
	}
	if v, ok := t1.(*TInfer); ok {
		return Bind(v, t2)
	}
	if v, ok := t2.(*TInfer); ok {
		return Bind(v, t1)
	}
	if t1.Sort() != t2.Sort() {
		return nil, errUnifyMsg(t1, t2, "sort mismatch")
	}

	switch a := t1.(type) {
	case *TCon:
		b, ok := t2.(*TCon)
		if !ok || a.Name != b.Name || len(a.Args) != len(b.Args) {
			return nil, errUnifyMsg(t1, t2, "type constant mismatch")
		}
		return unifyLists(a.Args, b.Args)
	case *TRef:
		b, ok := t2.(*TRef)
		if !ok {
			return nil, errUnify(t1, t2)
		}
		return unifyLists([]Term{a.Region, a.Elem}, []Term{b.Region, b.Elem})
	case *TTuple:
		b, ok := t2.(*TTuple)
		if !ok || len(a.Elements) != len(b.Elements) {
			return nil, errUnifyMsg(t1, t2, "cannot unify tuple")
		}
		return unifyLists(a.Elements, b.Elements)
	case *TFunc:
		b, ok := t2.(*TFunc)
		if !ok || len(a.Params) != len(b.Params) {
			return nil, errUnifyMsg(t1, t2, "cannot unify function type")
		}
		return unifyLists(append(append([]Term{}, a.Params...), a.Result), append(append([]Term{}, b.Params...), b.Result))
	case *TArray:
		b, ok := t2.(*TArray)
		if !ok {
			return nil, errUnify(t1, t2)
		}
		return unifyLists([]Term{a.Elem, a.Len}, []Term{b.Elem, b.Len})
	case *TAlias:
		b, ok := t2.(*TAlias)
		if !ok || a.Kind != b.Kind || a.Def != b.Def || len(a.Args) != len(b.Args) {
			return nil, errUnifyMsg(t1, t2, "alias mismatch")
		}
		return unifyLists(a.Args, b.Args)
	case *TForall:
		b, ok := t2.(*TForall)
		if !ok || len(a.Vars) != len(b.Vars) {
			return nil, errUnifyMsg(t1, t2, "cannot unify binders")
		}
		for i := range a.Vars {
			if a.Vars[i] != b.Vars[i] {
				return nil, errUnifyMsg(t1, t2, "cannot unify binders")
			}
		}
		s, err := Unify(a.Body, b.Body)
		if err != nil {
			return nil, errUnifyContext("binder body", err)
		}
		return s, nil
	case *CAlias:
		b, ok := t2.(*CAlias)
		if !ok || a.Def != b.Def || a.Assoc != b.Assoc || len(a.Args) != len(b.Args) {
			return nil, errUnifyMsg(t1, t2, "const mismatch")
		}
		return unifyLists(a.Args, b.Args)
	}
	return nil, errUnify(t1, t2)
}

func unifyLists(a, b []Term) (Subst, error) {
	subst := Subst{}
	for i := range a {
		s, err := Unify(subst.Apply(a[i]), subst.Apply(b[i]))
		if err != nil {
			return nil, err
		}
		subst = subst.Compose(s)
	}
	return subst, nil
}

// Bind binds an inference variable to t.
func Bind(tv *TInfer, t Term) (Subst, error) {
	if other, ok := t.(*TInfer); ok && other.ID == tv.ID {
		return Subst{}, nil
	}
	if t.Sort() != SortType {
		return nil, errMismatch(fmt.Sprintf("sort mismatch: variable %s is a type, but %s is a %s", tv, t, t.Sort()))
	}
	if HasEscapingBoundVars(t) {
		return nil, errMismatch(fmt.Sprintf("bound variable would escape its binder: %s := %s", tv, t))
	}
	if OccursCheck(tv, t) {
		return nil, errMismatch(fmt.Sprintf("infinite type detected: %s in %s", tv, t))
	}
	return Subst{tv.ID: t}, nil
}

// OccursCheck returns true if tv appears in t.
func OccursCheck(tv *TInfer, t Term) bool {
	found := false
	Walk(t, func(n Term) bool {
		if found || !n.Flags().HasAny(HasInfer) {
			return false
		}
		if v, ok := n.(*TInfer); ok && v.ID == tv.ID {
			found = true
		}
		return true
	})
	return found
}

func errUnify(t1, t2 Term) error {
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func errUnifyMsg(t1, t2 Term, msg string) error {
	return fmt.Errorf("%s: %s vs %s", msg, t1, t2)
}

func errMismatch(msg string) error {
	return fmt.Errorf("%s", msg)
}

func errUnifyContext(ctx string, err error) error {
	return fmt.Errorf("in %s: %w", ctx, err)
}
