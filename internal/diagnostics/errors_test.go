package diagnostics

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

func TestOverflowDiagnostic(t *testing.T) {
	span := ts.Span{File: "w.yaml", Line: 4, Column: 9}

	opaque := OverflowDiagnostic(ts.Alias(ts.Opaque, "Hidden"), span, true)
	if opaque.Code != ErrN001 || len(opaque.Notes) != 0 {
		t.Errorf("opaque overflow = %+v", opaque)
	}

	weak := OverflowDiagnostic(ts.Alias(ts.Weak, "Loop"), span, false)
	if weak.Code != ErrN002 {
		t.Errorf("weak overflow code = %s", weak.Code)
	}
	if len(weak.Notes) != 1 || weak.Notes[0] != RecursiveAliasNote {
		t.Errorf("weak overflow notes = %v", weak.Notes)
	}
	want := "w.yaml:4:9: error[N002]: overflow normalizing the type alias `Loop`"
	if got := weak.Error(); !strings.HasPrefix(got, want) {
		t.Errorf("Error() = %q, want prefix %q", got, want)
	}

	for _, term := range []ts.Term{
		ts.Alias(ts.Projection, "Loop::Out", ts.Con("Int")),
		ts.Alias(ts.Inherent, "Wrapper::Inner", ts.Con("Wrapper", ts.Con("Int"))),
		ts.ConstAlias("Shape::SIDES", true, ts.Con("Square")),
	} {
		proj := OverflowDiagnostic(term, span, false)
		if proj.Code != ErrN008 || len(proj.Notes) != 0 {
			t.Errorf("overflow of %s = %+v, want N008 without notes", term, proj)
		}
	}
	proj := OverflowDiagnostic(ts.Alias(ts.Projection, "Loop::Out", ts.Con("Int")), span, false)
	if got, want := proj.Error(), "w.yaml:4:9: error[N008]: overflow evaluating the projection `<Int as Loop>::Out`"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCollectorConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ReportOverflow(ts.Alias(ts.Weak, "A"), ts.Span{}, false)
		}()
	}
	wg.Wait()
	if got := len(c.Errors()); got != 16 {
		t.Errorf("collected %d diagnostics, want 16", got)
	}
}

func TestRenderPlain(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []*DiagnosticError{
		NewError(ErrN003, ts.Span{File: "w.yaml", Line: 2, Column: 3}, "the trait bound `Int: Clone` is not satisfied").WithNote("required by a bound"),
	}, false)
	want := "error[N003]: the trait bound `Int: Clone` is not satisfied\n  --> w.yaml:2:3\n  = note: required by a bound\n"
	if buf.String() != want {
		t.Errorf("Render() =\n%s\nwant\n%s", buf.String(), want)
	}
}
