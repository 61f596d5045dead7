// Package infer holds the inference state of one type-checking session:
// inference variables, their bindings and the universe counter used when
// binders are opened.
package infer

import (
	"fmt"

	"github.com/funvibe/tynorm/internal/typesystem"
)

// Universe identifies a placeholder scope. The root universe is 0.
type Universe int

const RootUniverse Universe = 0

// Ctxt is not safe for concurrent use; each normalization session owns one.
type Ctxt struct {
	subst    typesystem.Subst
	nextVar  int
	universe Universe
}

func New() *Ctxt {
	return &Ctxt{subst: typesystem.Subst{}}
}

// NewVar creates a fresh, unbound type inference variable.
func (c *Ctxt) NewVar() *typesystem.TInfer {
	c.nextVar++
	return typesystem.Infer(c.nextVar)
}

// CreateNextUniverse returns a universe that did not exist before.
func (c *Ctxt) CreateNextUniverse() Universe {
	c.universe++
	return c.universe
}

// Universe is the most recently created universe.
func (c *Ctxt) Universe() Universe {
	return c.universe
}

// ResolveIfPossible replaces bound inference variables in t with their
// values. It is idempotent and leaves unbound variables in place.
func (c *Ctxt) ResolveIfPossible(t typesystem.Term) typesystem.Term {
	if t == nil || !t.Flags().HasAny(typesystem.HasInfer) {
		return t
	}
	return c.subst.Apply(t)
}

// Probe returns the value bound directly to v, if any. The value is not
// resolved further; it may itself mention bound variables.
func (c *Ctxt) Probe(v *typesystem.TInfer) (typesystem.Term, bool) {
	t, ok := c.subst[v.ID]
	if !ok {
		return nil, false
	}
	if w, ok := t.(*typesystem.TInfer); ok && w.ID == v.ID {
		return nil, false
	}
	return t, true
}

// Unify equates a and b, recording any inference variable bindings. On
// failure no binding is recorded.
func (c *Ctxt) Unify(a, b typesystem.Term) error {
	s, err := typesystem.Unify(c.ResolveIfPossible(a), c.ResolveIfPossible(b))
	if err != nil {
		return fmt.Errorf("unify: %w", err)
	}
	c.subst = c.subst.Compose(s)
	return nil
}
