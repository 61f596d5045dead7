package cli

import (
	"fmt"
	"io"

	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/pipeline"
	"github.com/funvibe/tynorm/internal/symbols"
	ts "github.com/funvibe/tynorm/internal/typesystem"
	"github.com/funvibe/tynorm/internal/world"
	tynorm "github.com/funvibe/tynorm/pkg/embed"
)

// ExportProcessor saves the built definitions to a SQLite database.
type ExportProcessor struct {
	Path string
}

func (ep *ExportProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	w, ok := ctx.World.(*world.World)
	if !ok || ctx.Failed() {
		return ctx
	}
	store, err := symbols.OpenSQLite(ep.Path)
	if err == nil {
		err = store.Save(w.Table)
		if cerr := store.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		ctx.Fail(diagnostics.Errorf(diagnostics.ErrN007, ts.Span{File: ctx.FilePath}, "exporting definitions: %v", err))
	}
	return ctx
}

// ReportProcessor prints one line per query result, the obligations a
// shallow result leaves behind, and every diagnostic. Failed is set when
// a query did not normalize cleanly.
type ReportProcessor struct {
	Out    io.Writer
	Err    io.Writer
	Color  bool
	Failed bool
}

func (rp *ReportProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Failed() {
		diagnostics.Render(rp.Err, ctx.Errors, rp.Color)
		return ctx
	}
	results, _ := ctx.Results.([]tynorm.Result)
	for _, r := range results {
		rp.report(r)
	}
	return ctx
}

func (rp *ReportProcessor) report(r tynorm.Result) {
	mode := ""
	if r.Deep {
		mode = " (deep)"
	}
	out := "error"
	if r.Err == nil {
		out = r.Output.String()
	}
	fmt.Fprintf(rp.Out, "%s%s: %s => %s", r.Query, mode, r.Input, out)
	if !config.IsTestMode {
		fmt.Fprintf(rp.Out, "  [%s]", r.Session.String()[:8])
	}
	fmt.Fprintln(rp.Out)
	for _, o := range r.Obligations {
		fmt.Fprintf(rp.Out, "  requires %s\n", o)
	}
	if r.Failed() {
		rp.Failed = true
		diagnostics.Render(rp.Err, r.Diagnostics, rp.Color)
	}
}
