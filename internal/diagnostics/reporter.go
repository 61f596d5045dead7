package diagnostics

import (
	"sync"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Reporter receives fatal overflow reports from the normalizer.
type Reporter interface {
	ReportOverflow(term ts.Term, span ts.Span, opaque bool)
}

// Collector accumulates diagnostics. It is safe for concurrent use.
type Collector struct {
	mu   sync.Mutex
	errs []*DiagnosticError
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) ReportOverflow(term ts.Term, span ts.Span, opaque bool) {
	c.Add(OverflowDiagnostic(term, span, opaque))
}

func (c *Collector) Add(errs ...*DiagnosticError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, errs...)
}

// Errors returns a copy of the collected diagnostics.
func (c *Collector) Errors() []*DiagnosticError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*DiagnosticError, len(c.errs))
	copy(out, c.errs)
	return out
}

func (c *Collector) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) > 0
}

// Discard is a Reporter that drops every report.
type Discard struct{}

func (Discard) ReportOverflow(ts.Term, ts.Span, bool) {}
