package tynorm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/normalize"
	ts "github.com/funvibe/tynorm/internal/typesystem"
	tynorm "github.com/funvibe/tynorm/pkg/embed"
)

const iterWorld = `format: 1.0.0
traits:
  - name: Iterator
    types: [Item]
impls:
  - trait: Iterator
    generics: [T]
    self: Vec<T>
    types:
      Item: T
aliases:
  - name: Loop
    body: Loop
  - name: Items
    generics: [X]
    body: <X as Iterator>::Item
    where: ["X: Iterator"]
env:
  params: [T]
  bounds: ["T: Iterator"]
queries:
  - name: vec
    term: <Vec<Int> as Iterator>::Item
  - name: param
    term: <T as Iterator>::Item
    mode: deep
  - name: missing
    term: <Int as Iterator>::Item
    mode: deep
  - name: loop
    term: Loop
`

func loadEngine(t *testing.T) *tynorm.Engine {
	t.Helper()
	e := tynorm.New(nil)
	if err := e.LoadSource("iter.yaml", []byte(iterWorld)); err != nil {
		t.Fatalf("LoadSource() error = %v", err)
	}
	return e
}

func mustParse(t *testing.T, e *tynorm.Engine, src string) ts.Term {
	t.Helper()
	term, err := e.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	return term
}

func TestEngineNormalize(t *testing.T) {
	e := loadEngine(t)

	res := e.Normalize(mustParse(t, e, "(Items<Vec<Bool>>, <T as Iterator>::Item)"))
	if res.Failed() {
		t.Fatalf("Normalize() failed: %v %v", res.Err, res.Diagnostics)
	}
	if got, want := res.Output.String(), "(Bool, <T as Iterator>::Item)"; got != want {
		t.Errorf("Output = %s, want %s", got, want)
	}
	if len(res.Obligations) != 1 || res.Obligations[0].String() != "Vec<Bool>: Iterator" {
		t.Errorf("Obligations = %v", res.Obligations)
	}

	deep := e.DeeplyNormalize(mustParse(t, e, "Items<Vec<Bool>>"))
	if deep.Failed() || deep.Output.String() != "Bool" {
		t.Errorf("DeeplyNormalize() = %v, %v, %v", deep.Output, deep.Err, deep.Diagnostics)
	}
}

func TestEngineQueries(t *testing.T) {
	e := loadEngine(t)
	results, err := e.NormalizeBatch(context.Background(), e.Queries(), 2)
	if err != nil {
		t.Fatalf("NormalizeBatch() error = %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}

	byName := make(map[string]tynorm.Result)
	for _, r := range results {
		byName[r.Query] = r
	}
	if r := byName["vec"]; r.Failed() || r.Output.String() != "Int" {
		t.Errorf("vec = %v (%v)", r.Output, r.Err)
	}
	if r := byName["param"]; r.Failed() || r.Output.String() != "<T as Iterator>::Item" {
		t.Errorf("param = %v (%v)", r.Output, r.Err)
	}

	missing := byName["missing"]
	var deep *normalize.DeepNormalizeError
	if !errors.As(missing.Err, &deep) {
		t.Fatalf("missing: error = %v, want *DeepNormalizeError", missing.Err)
	}
	if len(missing.Diagnostics) != 1 || missing.Diagnostics[0].Code != diagnostics.ErrN003 {
		t.Errorf("missing: diagnostics = %v", missing.Diagnostics)
	}

	loop := byName["loop"]
	var overflow *normalize.OverflowError
	if !errors.As(loop.Err, &overflow) || loop.Output != nil {
		t.Fatalf("loop: error = %v, output = %v", loop.Err, loop.Output)
	}
	if len(loop.Diagnostics) != 1 || loop.Diagnostics[0].Code != diagnostics.ErrN002 {
		t.Errorf("loop: diagnostics = %v", loop.Diagnostics)
	}

	if results[0].Session == results[1].Session {
		t.Error("queries share a session id")
	}
}

func TestNormalizeBatchCancelled(t *testing.T) {
	e := loadEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.NormalizeBatch(ctx, e.Queries(), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("NormalizeBatch() error = %v, want context.Canceled", err)
	}
}

func TestLoadErrors(t *testing.T) {
	e := tynorm.New(nil)
	err := e.LoadSource("bad.yaml", []byte("format: 1.0.0\naliases:\n  - name: A\n    body: Vec<\n"))
	var le *tynorm.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("LoadSource() error = %v, want *LoadError", err)
	}
	if len(le.Errors) == 0 || le.Errors[0].Code != diagnostics.ErrN005 {
		t.Errorf("diagnostics = %v", le.Errors)
	}

	if err := e.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile() of a missing file succeeded")
	}
}

func TestFailedLoadLeavesEngineUnchanged(t *testing.T) {
	e := tynorm.New(nil)
	broken := strings.Replace(iterWorld, "body: Loop\n", "body: Vec<\n", 1)
	if err := e.LoadSource("iter.yaml", []byte(broken)); err == nil {
		t.Fatal("LoadSource() of a broken world succeeded")
	}
	if _, ok := e.Table().Def("Iterator"); ok {
		t.Error("failed load left Iterator in the table")
	}
	if len(e.Queries()) != 0 {
		t.Errorf("failed load added %d queries", len(e.Queries()))
	}

	if err := e.LoadSource("iter.yaml", []byte(iterWorld)); err != nil {
		t.Fatalf("LoadSource() after a failed load error = %v", err)
	}
	if len(e.Queries()) != 4 {
		t.Errorf("got %d queries, want 4", len(e.Queries()))
	}
	res := e.Normalize(mustParse(t, e, "<Vec<Int> as Iterator>::Item"))
	if res.Failed() || res.Output.String() != "Int" {
		t.Errorf("Normalize() = %v, %v", res.Output, res.Err)
	}
}

func TestDefinitionsRoundTripThroughSQLite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "iter.yaml")
	if err := os.WriteFile(src, []byte(iterWorld), 0644); err != nil {
		t.Fatal(err)
	}
	e := tynorm.New(nil)
	if err := e.LoadFile(src); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	db := filepath.Join(dir, "defs.db")
	if err := e.SaveDefinitions(db); err != nil {
		t.Fatalf("SaveDefinitions() error = %v", err)
	}

	restored := tynorm.New(nil)
	if err := restored.LoadDefinitions(db); err != nil {
		t.Fatalf("LoadDefinitions() error = %v", err)
	}
	res := restored.Normalize(mustParse(t, restored, "<Vec<Int> as Iterator>::Item"))
	if res.Failed() || res.Output.String() != "Int" {
		t.Errorf("Normalize() after restore = %v (%v)", res.Output, res.Err)
	}
}
