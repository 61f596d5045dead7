package world

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/symbols"
	"github.com/funvibe/tynorm/internal/syntax"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Query is one term to normalize.
type Query struct {
	Name string
	Term ts.Term
	Deep bool
	Env  ts.ParamEnv
	Span ts.Span
}

// World is a built world file: the definitions in a symbol table, the
// environment and the parsed queries.
type World struct {
	Path    string
	Config  *config.Config
	Table   *symbols.SymbolTable
	Env     ts.ParamEnv
	Params  []ts.GenericParam // generic parameters in scope for Env and the queries
	Queries []Query
}

// Build checks and registers every definition of f into a fresh symbol
// table. base is the configuration the file's own config section is
// applied on top of.
func Build(f *File, base *config.Config) (*World, []*diagnostics.DiagnosticError) {
	return BuildOn(f, base, symbols.NewSymbolTable())
}

// BuildOn is Build with definitions added to an existing table.
func BuildOn(f *File, base *config.Config, table *symbols.SymbolTable) (*World, []*diagnostics.DiagnosticError) {
	b := &builder{file: f, table: table, declared: make(map[ts.DefID]ts.DefKind)}
	w := &World{Path: f.Path, Table: table}

	cfg, err := b.config(base)
	if err != nil {
		b.errs = append(b.errs, diagnostics.NewError(diagnostics.ErrN007, ts.Span{File: f.Path}, err.Error()))
		return nil, b.errs
	}
	w.Config = cfg

	b.declare()
	b.define()
	w.Env = b.env(cfg)
	w.Params = b.envG
	w.Queries = b.queries(w.Env)
	if len(b.errs) > 0 {
		return nil, b.errs
	}
	return w, nil
}

type builder struct {
	file     *File
	table    *symbols.SymbolTable
	declared map[ts.DefID]ts.DefKind
	envG     []ts.GenericParam
	errs     []*diagnostics.DiagnosticError
}

// KindOf resolves names against the table and the definitions declared but
// not yet registered, so bodies may refer to later entries.
func (b *builder) KindOf(id ts.DefID) (ts.DefKind, bool) {
	if k, ok := b.table.KindOf(id); ok {
		return k, true
	}
	k, ok := b.declared[id]
	return k, ok
}

func (b *builder) span(s Snippet) ts.Span {
	return ts.Span{File: b.file.Path, Line: s.Line, Column: s.Column}
}

func (b *builder) errorf(s Snippet, format string, args ...interface{}) {
	b.errs = append(b.errs, diagnostics.Errorf(diagnostics.ErrN007, b.span(s), format, args...))
}

func (b *builder) config(base *config.Config) (*config.Config, error) {
	if base == nil {
		base = config.Default()
	}
	cfg := *base
	if b.file.Config == nil {
		return &cfg, nil
	}
	if err := b.file.Config.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config section: %w", err)
	}
	if err := cfg.Finish(b.file.Path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (b *builder) generics(at Snippet, names []string) ([]ts.GenericParam, bool) {
	g, err := syntax.ParseGenerics(names)
	if err != nil {
		b.errorf(at, "%v", err)
		return nil, false
	}
	return g, true
}

func (b *builder) options(s Snippet, generics []ts.GenericParam) syntax.Options {
	return syntax.Options{Generics: generics, Resolver: b, Origin: b.span(s)}
}

func (b *builder) term(s Snippet, generics []ts.GenericParam) (ts.Term, bool) {
	t, err := syntax.ParseTerm(s.Text, b.options(s, generics))
	if err != nil {
		b.syntaxError(s, err)
		return nil, false
	}
	return t, true
}

func (b *builder) predicate(s Snippet, generics []ts.GenericParam) (ts.Term, bool) {
	t, err := syntax.ParsePredicate(s.Text, b.options(s, generics))
	if err != nil {
		b.syntaxError(s, err)
		return nil, false
	}
	return t, true
}

func (b *builder) syntaxError(s Snippet, err error) {
	var d *diagnostics.DiagnosticError
	if errors.As(err, &d) {
		b.errs = append(b.errs, d)
		return
	}
	b.errs = append(b.errs, diagnostics.NewError(diagnostics.ErrN005, b.span(s), err.Error()))
}

func (b *builder) where(clauses []Snippet, generics []ts.GenericParam) ([]ts.SpannedPredicate, bool) {
	out := make([]ts.SpannedPredicate, 0, len(clauses))
	ok := true
	for _, c := range clauses {
		p, good := b.predicate(c, generics)
		if !good {
			ok = false
			continue
		}
		out = append(out, ts.SpannedPredicate{Predicate: p, Span: b.span(c)})
	}
	return out, ok
}

// declare registers traits and records the kind of every other named
// definition.
func (b *builder) declare() {
	for _, tr := range b.file.Traits {
		params, ok := b.generics(tr.Name, tr.Params)
		if !ok {
			continue
		}
		if err := b.table.DefineTrait(tr.Name.Text, params, tr.Types, tr.Consts, b.span(tr.Name)); err != nil {
			b.errorf(tr.Name, "%v", err)
		}
	}
	note := func(name Snippet, kind ts.DefKind) {
		id := ts.DefID(name.Text)
		if _, exists := b.KindOf(id); exists {
			b.errorf(name, "`%s` is defined more than once", id)
			return
		}
		b.declared[id] = kind
	}
	for _, a := range b.file.Aliases {
		note(a.Name, ts.DefWeakAlias)
	}
	for _, o := range b.file.Opaques {
		note(o.Name, ts.DefOpaque)
	}
	for _, c := range b.file.Consts {
		note(c.Name, ts.DefConst)
	}
	for _, in := range b.file.Inherent {
		owner := leadingIdent(in.Self.Text)
		for _, name := range sortedSnippetKeys(in.Types) {
			b.declared[ts.Item(owner, name)] = ts.DefInherentTy
		}
	}
}

// leadingIdent returns the type constructor name an inherent impl is for.
func leadingIdent(src string) string {
	src = strings.TrimSpace(src)
	end := strings.IndexAny(src, "< \t")
	if end < 0 {
		return src
	}
	return src[:end]
}

func (b *builder) define() {
	for _, a := range b.file.Aliases {
		g, ok := b.generics(a.Name, a.Generics)
		if !ok {
			continue
		}
		body, okBody := b.term(a.Body, g)
		preds, okWhere := b.where(a.Where, g)
		if !okBody || !okWhere {
			continue
		}
		b.check(a.Name, b.table.DefineTypeAlias(a.Name.Text, g, body, preds, b.span(a.Name)))
	}
	for _, o := range b.file.Opaques {
		g, ok := b.generics(o.Name, o.Generics)
		if !ok {
			continue
		}
		if hidden, ok := b.term(o.Hidden, g); ok {
			b.check(o.Name, b.table.DefineOpaque(o.Name.Text, g, hidden, b.span(o.Name)))
		}
	}
	for _, c := range b.file.Consts {
		g, ok := b.generics(c.Name, c.Generics)
		if !ok {
			continue
		}
		if value, ok := b.term(c.Value, g); ok {
			b.check(c.Name, b.table.DefineConst(c.Name.Text, g, value, b.span(c.Name)))
		}
	}
	for _, im := range b.file.Impls {
		b.defineImpl(im)
	}
	for _, in := range b.file.Inherent {
		b.defineInherent(in)
	}
}

func (b *builder) check(at Snippet, err error) {
	if err != nil {
		b.errorf(at, "%v", err)
	}
}

func (b *builder) defineImpl(im ImplEntry) {
	g, ok := b.generics(im.Self, im.Generics)
	if !ok {
		return
	}
	self, ok := b.term(im.Self, g)
	if !ok {
		return
	}
	var args []ts.Term
	for _, a := range im.Args {
		t, good := b.term(a, g)
		ok = ok && good
		args = append(args, t)
	}
	preds, good := b.where(im.Where, g)
	ok = ok && good
	types, good := b.items(im.Types, g)
	ok = ok && good
	consts, good := b.items(im.Consts, g)
	if !ok || !good {
		return
	}
	_, err := b.table.RegisterImplementation(symbols.ImplDecl{
		Generics:   g,
		Trait:      ts.DefID(im.Trait.Text),
		TraitArgs:  args,
		SelfTy:     self,
		Predicates: preds,
		Types:      types,
		Consts:     consts,
		Span:       b.span(im.Self),
	})
	b.check(im.Trait, err)
}

func (b *builder) defineInherent(in InherentEntry) {
	g, ok := b.generics(in.Self, in.Generics)
	if !ok {
		return
	}
	self, ok := b.term(in.Self, g)
	if !ok {
		return
	}
	preds, okWhere := b.where(in.Where, g)
	types, okTypes := b.items(in.Types, g)
	if !okWhere || !okTypes {
		return
	}
	_, err := b.table.RegisterInherentImpl(symbols.InherentImplDecl{
		Generics:   g,
		SelfTy:     self,
		Predicates: preds,
		Types:      types,
		Span:       b.span(in.Self),
	})
	b.check(in.Self, err)
}

func (b *builder) items(src map[string]Snippet, g []ts.GenericParam) (map[string]ts.Term, bool) {
	if len(src) == 0 {
		return nil, true
	}
	out := make(map[string]ts.Term, len(src))
	ok := true
	for _, name := range sortedSnippetKeys(src) {
		t, good := b.term(src[name], g)
		if !good {
			ok = false
			continue
		}
		out[name] = t
	}
	return out, ok
}

func sortedSnippetKeys(m map[string]Snippet) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *builder) env(cfg *config.Config) ts.ParamEnv {
	env := ts.ParamEnv{Reveal: cfg.DefaultReveal()}
	if b.file.Env.Reveal != "" {
		r, err := ts.ParseReveal(b.file.Env.Reveal)
		if err != nil {
			b.errs = append(b.errs, diagnostics.NewError(diagnostics.ErrN007, ts.Span{File: b.file.Path}, err.Error()))
		}
		env.Reveal = r
	}
	b.envG, _ = b.generics(Snippet{}, b.file.Env.Params)
	for _, s := range b.file.Env.Bounds {
		if p, ok := b.predicate(s, b.envG); ok {
			env.CallerBounds = append(env.CallerBounds, p)
		}
	}
	return env
}

func (b *builder) queries(env ts.ParamEnv) []Query {
	out := make([]Query, 0, len(b.file.Queries))
	for i, q := range b.file.Queries {
		name := q.Name
		if name == "" {
			name = fmt.Sprintf("query %d", i+1)
		}
		term, ok := b.term(q.Term, b.envG)
		if !ok {
			continue
		}
		query := Query{Name: name, Term: term, Env: env, Span: b.span(q.Term)}
		switch q.Mode {
		case "", "shallow":
		case "deep":
			query.Deep = true
		default:
			b.errorf(q.Term, "unknown query mode %q (expected shallow or deep)", q.Mode)
			continue
		}
		if q.Reveal != "" {
			r, err := ts.ParseReveal(q.Reveal)
			if err != nil {
				b.errorf(q.Term, "%v", err)
				continue
			}
			query.Env = env.WithReveal(r)
		}
		out = append(out, query)
	}
	return out
}
