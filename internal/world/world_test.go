package world

import (
	"strings"
	"testing"

	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/pipeline"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

const sampleWorld = `format: 1.0.0
config:
  recursion_limit: 32
traits:
  - name: Iterator
    types: [Item]
  - name: Shape
    consts: [SIDES]
impls:
  - trait: Iterator
    generics: [T]
    self: Vec<T>
    where: ["T: Sized"]
    types:
      Item: Pair<T>
  - trait: Shape
    self: Square
    consts:
      SIDES: "4"
inherent:
  - generics: [T]
    self: Wrapper<T>
    types:
      Inner: Vec<T>
aliases:
  - name: Pair
    generics: [X]
    body: (X, X)
opaques:
  - name: Hidden
    hidden: Vec<Int>
consts:
  - name: LEN
    value: "3"
env:
  params: [T]
  bounds: ["T: Iterator"]
queries:
  - name: item
    term: <Vec<Int> as Iterator>::Item
  - term: Wrapper<T>::Inner
    mode: deep
    reveal: all
`

func buildSample(t *testing.T, src string) (*World, []*diagnostics.DiagnosticError) {
	t.Helper()
	f, err := ParseFile([]byte(src), "sample.yaml")
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	return Build(f, config.Default())
}

func TestBuildSampleWorld(t *testing.T) {
	w, errs := buildSample(t, sampleWorld)
	if len(errs) > 0 {
		t.Fatalf("Build() errors = %v", errs)
	}
	if w.Config.RecursionLimit != 32 || w.Config.MaxNesting != config.DefaultMaxNesting {
		t.Errorf("config = %+v", w.Config)
	}
	for _, id := range []ts.DefID{"Iterator", "Iterator::Item", "Pair", "Hidden", "LEN", "Wrapper::Inner", "Shape::SIDES"} {
		if _, ok := w.Table.Def(id); !ok {
			t.Errorf("definition %s missing", id)
		}
	}
	if n := len(w.Table.ImplsOf("Iterator")); n != 1 {
		t.Errorf("Iterator has %d impls, want 1", n)
	}
	if len(w.Env.CallerBounds) != 1 || w.Env.CallerBounds[0].String() != "T: Iterator" {
		t.Errorf("env = %v", w.Env.CallerBounds)
	}
	if len(w.Queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(w.Queries))
	}
	q0, q1 := w.Queries[0], w.Queries[1]
	if q0.Name != "item" || q0.Deep || q0.Env.Reveal != ts.RevealUserFacing {
		t.Errorf("query 0 = %+v", q0)
	}
	if q1.Name != "query 2" || !q1.Deep || q1.Env.Reveal != ts.RevealAll {
		t.Errorf("query 1 = %+v", q1)
	}
	if q0.Span.Line != 40 || q0.Span.File != "sample.yaml" {
		t.Errorf("query 0 span = %s", q0.Span)
	}
}

func TestBodiesMayReferToLaterDefinitions(t *testing.T) {
	src := `format: 1.0.0
aliases:
  - name: First
    body: Second
  - name: Second
    body: Int
`
	w, errs := buildSample(t, src)
	if len(errs) > 0 {
		t.Fatalf("Build() errors = %v", errs)
	}
	if got := w.Table.BodyOf("First").String(); got != "Second" {
		t.Errorf("First = %s, want the weak alias Second", got)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode diagnostics.ErrorCode
		wantMsg  string
		wantLine int
	}{
		{"syntax", "aliases:\n  - name: A\n    body: Vec<Int\n", diagnostics.ErrN005, "", 4},
		{"unknown trait", "impls:\n  - trait: Nope\n    self: Int\n", diagnostics.ErrN007, "unknown trait", 3},
		{"duplicate", "aliases:\n  - name: A\n    body: Int\n  - name: A\n    body: Int\n", diagnostics.ErrN007, "more than once", 5},
		{"bad mode", "queries:\n  - term: Int\n    mode: sideways\n", diagnostics.ErrN007, "unknown query mode", 3},
		{"bad generics", "aliases:\n  - name: A\n    generics: [\"1x\"]\n    body: Int\n", diagnostics.ErrN007, "invalid generic", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := buildSample(t, "format: 1.0.0\n"+tt.body)
			if len(errs) == 0 {
				t.Fatal("Build() succeeded, want an error")
			}
			e := errs[0]
			if e.Code != tt.wantCode || !strings.Contains(e.Message, tt.wantMsg) || e.Span.Line != tt.wantLine {
				t.Errorf("error = %v (line %d), want %s containing %q on line %d", e, e.Span.Line, tt.wantCode, tt.wantMsg, tt.wantLine)
			}
		})
	}
}

func TestParseFileFormat(t *testing.T) {
	tests := []struct {
		src     string
		wantErr string
	}{
		{"format: 1.4.2\n", ""},
		{"traits: []\n", "missing format version"},
		{"format: 2.0.0\n", "unsupported format version"},
		{"format: banana\n", "invalid format version"},
		{"format: 1.0.0\nunknown: true\n", "parsing"},
		{"format: 1.0.0\nqueries:\n  - term: [a, b]\n", "expected a term"},
	}
	for _, tt := range tests {
		_, err := ParseFile([]byte(tt.src), "f.yaml")
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("ParseFile(%q) error = %v", tt.src, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("ParseFile(%q) error = %v, want %q", tt.src, err, tt.wantErr)
		}
	}
}

func TestProcessors(t *testing.T) {
	run := func(src string) *pipeline.PipelineContext {
		t.Helper()
		ctx := pipeline.NewPipelineContext("p.yaml", []byte(src), nil)
		return pipeline.New(&LoaderProcessor{}, &BuilderProcessor{}).Run(ctx)
	}

	ctx := run(sampleWorld)
	if ctx.Failed() {
		t.Fatalf("errors = %v", ctx.Errors)
	}
	w, ok := ctx.World.(*World)
	if !ok || len(w.Queries) != 2 || ctx.Config.RecursionLimit != 32 {
		t.Fatalf("world = %+v, config = %+v", ctx.World, ctx.Config)
	}

	ctx = run("format: 3.0.0\n")
	if len(ctx.Errors) != 1 || ctx.World != nil {
		t.Fatalf("errors = %v, world = %v", ctx.Errors, ctx.World)
	}
	if !strings.Contains(ctx.Errors[0].Message, "unsupported format version") {
		t.Errorf("message = %q", ctx.Errors[0].Message)
	}
}
