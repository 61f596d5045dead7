// Package tynorm is the embedding API: load definitions, then normalize
// terms against them.
package tynorm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/normalize"
	"github.com/funvibe/tynorm/internal/pipeline"
	"github.com/funvibe/tynorm/internal/symbols"
	"github.com/funvibe/tynorm/internal/syntax"
	"github.com/funvibe/tynorm/internal/traits"
	ts "github.com/funvibe/tynorm/internal/typesystem"
	"github.com/funvibe/tynorm/internal/world"
)

// Engine holds a definition table and the environment queries run under.
// Loading is not safe for concurrent use; once loaded, Run and
// NormalizeBatch may be called from several goroutines.
type Engine struct {
	table   *symbols.SymbolTable
	config  *config.Config
	env     ts.ParamEnv
	params  []ts.GenericParam
	queries []world.Query
}

// New creates an engine with only the builtin definitions.
func New(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Engine{
		table:  symbols.NewSymbolTable(),
		config: cfg,
		env:    ts.ParamEnv{Reveal: cfg.DefaultReveal()},
	}
}

// FromWorld wraps an already built world.
func FromWorld(w *world.World) *Engine {
	return &Engine{table: w.Table, config: w.Config, env: w.Env, params: w.Params, queries: w.Queries}
}

func (e *Engine) Table() *symbols.SymbolTable { return e.table }
func (e *Engine) Config() *config.Config      { return e.config }
func (e *Engine) Env() ts.ParamEnv            { return e.env }
func (e *Engine) Queries() []world.Query      { return e.queries }

// LoadError lists the diagnostics that stopped a load.
type LoadError struct {
	Path   string
	Errors []*diagnostics.DiagnosticError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, d := range e.Errors {
		msgs[i] = d.Error()
	}
	return fmt.Sprintf("loading %s failed:\n  %s", e.Path, strings.Join(msgs, "\n  "))
}

// LoadFile adds the definitions of a world file. Its environment and
// config replace the engine's, and its queries are appended. A failed load
// leaves the engine as it was.
func (e *Engine) LoadFile(path string) error {
	return e.load(pipeline.NewPipelineContext(path, nil, e.config))
}

// LoadSource is LoadFile for world source held in memory.
func (e *Engine) LoadSource(path string, src []byte) error {
	return e.load(pipeline.NewPipelineContext(path, src, e.config))
}

func (e *Engine) load(ctx *pipeline.PipelineContext) error {
	ctx = pipeline.New(&world.LoaderProcessor{}, &world.BuilderProcessor{Table: e.table.Clone()}).Run(ctx)
	if ctx.Failed() {
		return &LoadError{Path: ctx.FilePath, Errors: ctx.Errors}
	}
	w := ctx.World.(*world.World)
	e.table, e.config, e.env, e.params = w.Table, w.Config, w.Env, w.Params
	e.queries = append(e.queries, w.Queries...)
	return nil
}

// Parse reads a term in the engine's environment.
func (e *Engine) Parse(src string) (ts.Term, error) {
	return syntax.ParseTerm(src, syntax.Options{Generics: e.params, Resolver: e.table})
}

// SaveDefinitions writes the definition table to a SQLite database.
func (e *Engine) SaveDefinitions(path string) error {
	store, err := symbols.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(e.table)
}

// LoadDefinitions replaces the definition table with one read from a
// SQLite database written by SaveDefinitions.
func (e *Engine) LoadDefinitions(path string) error {
	store, err := symbols.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer store.Close()
	table, err := store.Load()
	if err != nil {
		return err
	}
	e.table = table
	return nil
}

// Result is the outcome of one query.
type Result struct {
	Query       string
	Input       ts.Term
	Output      ts.Term // nil when normalization overflowed
	Deep        bool
	Obligations []ts.Obligation // obligations left for the caller (shallow only)
	Diagnostics []*diagnostics.DiagnosticError
	Session     uuid.UUID
	Err         error
}

func (r Result) Failed() bool {
	return r.Err != nil || len(r.Diagnostics) > 0
}

// Normalize normalizes term shallowly under the engine's environment.
func (e *Engine) Normalize(term ts.Term) Result {
	return e.Run(world.Query{Name: term.String(), Term: term, Env: e.env})
}

// DeeplyNormalize normalizes term and proves every produced obligation.
func (e *Engine) DeeplyNormalize(term ts.Term) Result {
	return e.Run(world.Query{Name: term.String(), Term: term, Env: e.env, Deep: true})
}

// Run answers one query with its own inference context and session.
func (e *Engine) Run(q world.Query) Result {
	sel := traits.NewSelectionContext(e.table)
	nctx := normalize.NewContext(e.table, sel, e.config)
	collector := diagnostics.NewCollector()
	nctx.Reporter = normalize.CollectingReporter(collector)

	res := Result{Query: q.Name, Input: q.Term, Deep: q.Deep, Session: nctx.Session}
	cause := ts.MiscObligation(q.Span)
	if q.Deep {
		res.Output, res.Err = normalize.DeeplyNormalize(nctx, q.Env, cause, q.Term, traits.NewFulfillmentContext(sel))
		var deep *normalize.DeepNormalizeError
		if errors.As(res.Err, &deep) {
			res.Output = deep.Value
			for _, fe := range deep.Errors {
				collector.Add(fulfillmentDiagnostic(fe, q.Span))
			}
		}
	} else {
		n, err := normalize.Normalize(nctx, q.Env, cause, q.Term)
		res.Output, res.Obligations, res.Err = n.Value, n.Obligations, err
	}
	res.Diagnostics = collector.Errors()
	return res
}

func fulfillmentDiagnostic(fe *ts.FulfillmentError, at ts.Span) *diagnostics.DiagnosticError {
	code := diagnostics.ErrN003
	if fe.Code == ts.CodeAmbiguous {
		code = diagnostics.ErrN004
	}
	span := fe.Obligation.Cause.Span
	if span.IsZero() {
		span = at
	}
	return diagnostics.NewError(code, span, fe.Error())
}

// NormalizeBatch runs independent queries in parallel, at most workers at
// a time (unbounded when workers <= 0). Results keep the order of queries.
// The error is non-nil only when ctx is cancelled.
func (e *Engine) NormalizeBatch(ctx context.Context, queries []world.Query, workers int) ([]Result, error) {
	results := make([]Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.Run(q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// NormalizeProcessor runs the built world's queries and stores the
// []Result in ctx.Results.
type NormalizeProcessor struct {
	Context context.Context
	Workers int
}

func (np *NormalizeProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	w, ok := ctx.World.(*world.World)
	if !ok || ctx.Failed() {
		return ctx
	}
	base := np.Context
	if base == nil {
		base = context.Background()
	}
	results, err := FromWorld(w).NormalizeBatch(base, w.Queries, np.Workers)
	if err != nil {
		ctx.Fail(diagnostics.NewError(diagnostics.ErrN007, ts.Span{File: ctx.FilePath}, err.Error()))
		return ctx
	}
	ctx.Results = results
	return ctx
}
