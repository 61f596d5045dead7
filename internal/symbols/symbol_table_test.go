package symbols

import (
	"path/filepath"
	"strings"
	"testing"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

var tParam = []ts.GenericParam{{Name: "T", Kind: ts.SortType}}

func newIteratorTable(t *testing.T) *SymbolTable {
	t.Helper()
	st := NewSymbolTable()
	if err := st.DefineTrait("Iterator", nil, []string{"Item"}, nil, ts.Span{}); err != nil {
		t.Fatalf("DefineTrait() error = %v", err)
	}
	_, err := st.RegisterImplementation(ImplDecl{
		Generics: tParam,
		Trait:    "Iterator",
		SelfTy:   ts.Con("Vec", ts.Param(0, "T", ts.SortType)),
		Types:    map[string]ts.Term{"Item": ts.Param(0, "T", ts.SortType)},
		Predicates: []ts.SpannedPredicate{{
			Predicate: ts.Implements(ts.Param(0, "T", ts.SortType), "Sized"),
			Span:      ts.Span{File: "w.yaml", Line: 3, Column: 5},
		}},
	})
	if err != nil {
		t.Fatalf("RegisterImplementation() error = %v", err)
	}
	return st
}

func TestRegisterImplementation(t *testing.T) {
	st := newIteratorTable(t)

	impls := st.ImplsOf("Iterator")
	if len(impls) != 1 {
		t.Fatalf("ImplsOf() = %d impls, want 1", len(impls))
	}
	item, ok := impls[0].Items["Item"]
	if !ok {
		t.Fatalf("impl has no Item")
	}
	if kind, _ := st.KindOf(item); kind != ts.DefImplItem {
		t.Errorf("KindOf(%s) = %s", item, kind)
	}
	if body := st.BodyOf(item); body.String() != "T" {
		t.Errorf("BodyOf(%s) = %s", item, body)
	}
	if trait, ok := st.TraitOf("Iterator::Item"); !ok || trait.ID != "Iterator" {
		t.Errorf("TraitOf(Iterator::Item) = %v, %v", trait, ok)
	}
}

func TestRegisterImplementationOverlap(t *testing.T) {
	st := newIteratorTable(t)
	_, err := st.RegisterImplementation(ImplDecl{
		Trait:  "Iterator",
		SelfTy: ts.Con("Vec", ts.Con("Int")),
		Types:  map[string]ts.Term{"Item": ts.Con("Int")},
	})
	if err == nil || !strings.Contains(err.Error(), "overlapping") {
		t.Errorf("expected overlap error, got %v", err)
	}

	if _, err := st.RegisterImplementation(ImplDecl{
		Trait:  "Iterator",
		SelfTy: ts.Con("Range"),
		Types:  map[string]ts.Term{"Item": ts.Con("Int")},
	}); err != nil {
		t.Errorf("non-overlapping impl rejected: %v", err)
	}
}

func TestRegisterImplementationChecksItems(t *testing.T) {
	st := newIteratorTable(t)
	tests := []struct {
		name    string
		decl    ImplDecl
		wantErr string
	}{
		{"unknown trait", ImplDecl{Trait: "Nope", SelfTy: ts.Con("A")}, "unknown trait"},
		{"missing item", ImplDecl{Trait: "Iterator", SelfTy: ts.Con("A")}, "missing `Item`"},
		{"extra item", ImplDecl{Trait: "Iterator", SelfTy: ts.Con("B"), Types: map[string]ts.Term{"Item": ts.Con("Int"), "Other": ts.Con("Int")}}, "not a member"},
		{"arity", ImplDecl{Trait: "Iterator", SelfTy: ts.Con("C"), TraitArgs: []ts.Term{ts.Con("Int")}}, "takes 0 arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.RegisterImplementation(tt.decl)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestInherentItemsPerImpl(t *testing.T) {
	st := NewSymbolTable()
	decl := InherentImplDecl{
		Generics: tParam,
		SelfTy:   ts.Con("Wrapper", ts.Param(0, "T", ts.SortType)),
		Types:    map[string]ts.Term{"Inner": ts.Param(0, "T", ts.SortType)},
	}
	if _, err := st.RegisterInherentImpl(decl); err != nil {
		t.Fatalf("RegisterInherentImpl() error = %v", err)
	}
	if kind, ok := st.KindOf("Wrapper::Inner"); !ok || kind != ts.DefInherentTy {
		t.Errorf("KindOf(Wrapper::Inner) = %v, %v", kind, ok)
	}
	if _, err := st.RegisterInherentImpl(decl); err == nil || !strings.Contains(err.Error(), "overlapping") {
		t.Errorf("second Wrapper<T>::Inner error = %v, want overlap", err)
	}

	st = NewSymbolTable()
	for _, arg := range []string{"Int", "Bool"} {
		_, err := st.RegisterInherentImpl(InherentImplDecl{
			SelfTy: ts.Con("Foo", ts.Con(arg)),
			Types:  map[string]ts.Term{"X": ts.Con("Vec", ts.Con(arg))},
		})
		if err != nil {
			t.Fatalf("impl Foo<%s> error = %v", arg, err)
		}
	}
	impls := st.InherentImplsOf("Foo::X")
	if len(impls) != 2 {
		t.Fatalf("InherentImplsOf(Foo::X) = %v, want 2 impls", impls)
	}
	for i, want := range []string{"Vec<Int>", "Vec<Bool>"} {
		if got := st.BodyOf(impls[i].Items["X"]).String(); got != want {
			t.Errorf("impl %d body = %s, want %s", i, got, want)
		}
	}
	if got := st.InherentImplsOf("Foo::Y"); len(got) != 0 {
		t.Errorf("InherentImplsOf(Foo::Y) = %v", got)
	}
}

func TestBodyOfUnknownPanics(t *testing.T) {
	st := NewSymbolTable()
	defer func() {
		r := recover()
		if _, ok := r.(*ts.UnknownDefError); !ok {
			t.Errorf("recover() = %v, want *UnknownDefError", r)
		}
	}()
	st.BodyOf("Missing")
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	st := newIteratorTable(t)
	if err := st.DefineTypeAlias("Pair", tParam, ts.Tuple(ts.Param(0, "T", ts.SortType), ts.Param(0, "T", ts.SortType)), nil, ts.Span{Line: 9}); err != nil {
		t.Fatalf("DefineTypeAlias() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "defs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	if err := store.Save(st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n, err := store.Count(); err != nil || n != len(st.Defs()) {
		t.Errorf("Count() = %d, %v; want %d", n, err, len(st.Defs()))
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := defNames(loaded), defNames(st); got != want {
		t.Errorf("names = %s, want %s", got, want)
	}
	impls := loaded.ImplsOf("Iterator")
	if len(impls) != 1 || !ts.Equal(impls[0].SelfTy, ts.Con("Vec", ts.Param(0, "T", ts.SortType))) {
		t.Fatalf("loaded impls = %v", impls)
	}
	preds := impls[0].Predicates
	if len(preds) != 1 || preds[0].Predicate.String() != "T: Sized" || preds[0].Span.Line != 3 {
		t.Errorf("loaded predicates = %v", preds)
	}
	if body := loaded.BodyOf("Pair"); body.String() != "(T, T)" {
		t.Errorf("loaded alias body = %s", body)
	}
}

func defNames(st *SymbolTable) string {
	var names []string
	for _, d := range st.Defs() {
		names = append(names, string(d.ID))
	}
	return strings.Join(names, ",")
}

func TestCloneIsIndependent(t *testing.T) {
	st := newIteratorTable(t)
	c := st.Clone()
	_, err := c.RegisterImplementation(ImplDecl{
		Trait:  "Iterator",
		SelfTy: ts.Con("Range"),
		Types:  map[string]ts.Term{"Item": ts.Con("Int")},
	})
	if err != nil {
		t.Fatalf("RegisterImplementation() on clone error = %v", err)
	}
	if err := c.DefineTrait("Clone", nil, nil, nil, ts.Span{}); err != nil {
		t.Fatalf("DefineTrait() on clone error = %v", err)
	}
	if n := len(st.ImplsOf("Iterator")); n != 1 {
		t.Errorf("original has %d Iterator impls, want 1", n)
	}
	if _, ok := st.Def("Clone"); ok {
		t.Error("trait defined on the clone leaked into the original")
	}
	if n := len(c.ImplsOf("Iterator")); n != 2 {
		t.Errorf("clone has %d Iterator impls, want 2", n)
	}
	if len(c.Defs()) <= len(st.Defs()) {
		t.Errorf("clone has %d defs, original %d", len(c.Defs()), len(st.Defs()))
	}
}
