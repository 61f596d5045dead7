package world

import (
	"os"

	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/pipeline"
	"github.com/funvibe/tynorm/internal/symbols"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// LoaderProcessor decodes ctx.Source, reading ctx.FilePath when no source
// was supplied, into a *File.
type LoaderProcessor struct{}

func (lp *LoaderProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	if ctx.Source == nil {
		data, err := os.ReadFile(ctx.FilePath)
		if err != nil {
			ctx.Fail(diagnostics.NewError(diagnostics.ErrN007, ts.Span{File: ctx.FilePath}, err.Error()))
			return ctx
		}
		ctx.Source = data
	}
	f, err := ParseFile(ctx.Source, ctx.FilePath)
	if err != nil {
		ctx.Fail(diagnostics.NewError(diagnostics.ErrN007, ts.Span{File: ctx.FilePath}, err.Error()))
		return ctx
	}
	ctx.File = f
	return ctx
}

// BuilderProcessor builds the loaded file into a *World, on top of Table
// when one is set.
type BuilderProcessor struct {
	Table *symbols.SymbolTable
}

func (bp *BuilderProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	f, ok := ctx.File.(*File)
	if !ok || ctx.Failed() {
		return ctx
	}
	table := bp.Table
	if table == nil {
		table = symbols.NewSymbolTable()
	}
	w, errs := BuildOn(f, ctx.Config, table)
	if len(errs) > 0 {
		ctx.Fail(errs...)
		return ctx
	}
	ctx.World = w
	ctx.Config = w.Config
	return ctx
}
