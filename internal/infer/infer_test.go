package infer

import (
	"testing"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

func TestResolveIfPossibleIsIdempotent(t *testing.T) {
	c := New()
	a, b := c.NewVar(), c.NewVar()
	if err := c.Unify(a, ts.Con("Vec", b)); err != nil {
		t.Fatalf("Unify() error = %v", err)
	}
	if err := c.Unify(b, ts.Con("Int")); err != nil {
		t.Fatalf("Unify() error = %v", err)
	}

	once := c.ResolveIfPossible(ts.Tuple(a, b))
	twice := c.ResolveIfPossible(once)
	want := ts.Tuple(ts.Con("Vec", ts.Con("Int")), ts.Con("Int"))
	if !ts.Equal(once, want) || !ts.Equal(twice, once) {
		t.Errorf("resolve = %s, then %s; want %s", once, twice, want)
	}
}

func TestUnifyFailureRecordsNothing(t *testing.T) {
	c := New()
	a := c.NewVar()
	if err := c.Unify(ts.Tuple(a, ts.Con("Int")), ts.Tuple(ts.Con("Bool"), ts.Con("Char"))); err == nil {
		t.Fatalf("expected unification failure")
	}
	if v, ok := c.Probe(a); ok {
		t.Errorf("?%d bound to %s after failed unification", a.ID, v)
	}
}

func TestProbe(t *testing.T) {
	c := New()
	a, b := c.NewVar(), c.NewVar()
	if _, ok := c.Probe(a); ok {
		t.Fatalf("fresh ?%d is bound", a.ID)
	}
	if err := c.Unify(b, ts.Con("Int")); err != nil {
		t.Fatalf("Unify() error = %v", err)
	}
	if err := c.Unify(a, ts.Con("Vec", b)); err != nil {
		t.Fatalf("Unify() error = %v", err)
	}
	v, ok := c.Probe(a)
	if !ok || !ts.Equal(v, ts.Con("Vec", ts.Con("Int"))) {
		t.Errorf("Probe(?%d) = %v, %v", a.ID, v, ok)
	}
}

func TestUniversesAreFresh(t *testing.T) {
	c := New()
	u1 := c.CreateNextUniverse()
	u2 := c.CreateNextUniverse()
	if u1 == RootUniverse || u1 == u2 || c.Universe() != u2 {
		t.Errorf("universes not fresh: %d %d", u1, u2)
	}
}
