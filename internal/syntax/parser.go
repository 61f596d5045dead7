// Package syntax parses the textual form of terms and predicates used by
// world files, tests and the command line:
//
//	Vec<T>  <T as Iterator>::Item  Wrapper<Int>::Inner  &'a T  (A, B)
//	fn(A) -> B  [T; 4]  for<'a> fn(&'a T)  ?1
//	T: Clone  <T as Iterator>::Item == Int  wf(T)  relate(A, B)
package syntax

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/funvibe/tynorm/internal/diagnostics"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Resolver tells the parser what a path names. Paths it does not know are
// nominal types.
type Resolver interface {
	KindOf(id ts.DefID) (ts.DefKind, bool)
}

// Options configure a parse.
type Options struct {
	// Generics are the parameters in scope, addressed by name.
	Generics []ts.GenericParam
	Resolver Resolver
	// Origin is the location of the first character of the source; token
	// positions are reported relative to it.
	Origin ts.Span
}

type binderScope struct {
	names map[string]int
	sorts []ts.Sort
}

type Parser struct {
	l         *Lexer
	opts      Options
	curToken  Token
	peekToken Token
	binders   []binderScope
	errors    []*diagnostics.DiagnosticError
}

func New(src string, opts Options) *Parser {
	p := &Parser{l: NewLexer(src), opts: opts}
	p.nextToken()
	p.nextToken()
	return p
}

// ParseTerm parses a complete type or const.
func ParseTerm(src string, opts Options) (ts.Term, error) {
	p := New(src, opts)
	t := p.parseTerm()
	p.expectEnd()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParsePredicate parses a complete predicate.
func ParsePredicate(src string, opts Options) (ts.Term, error) {
	p := New(src, opts)
	t := p.parsePredicate()
	p.expectEnd()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseGenerics turns declared parameter names into generics: "'a" is a
// region, "const N" a const, anything else a type.
func ParseGenerics(names []string) ([]ts.GenericParam, error) {
	out := make([]ts.GenericParam, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		kind := ts.SortType
		switch {
		case strings.HasPrefix(name, "'"):
			kind = ts.SortRegion
		case strings.HasPrefix(name, "const "):
			kind = ts.SortConst
			name = strings.TrimSpace(strings.TrimPrefix(name, "const "))
		}
		if !validParamName(name) {
			return nil, fmt.Errorf("invalid generic parameter %q", raw)
		}
		if seen[name] {
			return nil, fmt.Errorf("generic parameter %s declared twice", name)
		}
		seen[name] = true
		out = append(out, ts.GenericParam{Name: name, Kind: kind})
	}
	return out, nil
}

func validParamName(name string) bool {
	name = strings.TrimPrefix(name, "'")
	if name == "" || name == "static" || LookupIdent(name) != IDENT {
		return false
	}
	for i, r := range name {
		if !isLetter(r) && (i == 0 || !isDigit(r)) {
			return false
		}
	}
	return true
}

// Errors returns every error found so far.
func (p *Parser) Errors() []*diagnostics.DiagnosticError {
	return p.errors
}

// Err returns the first error, if any.
func (p *Parser) Err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return p.errors[0]
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) span(tok Token) ts.Span {
	o := p.opts.Origin
	if tok.Line == 1 {
		col := tok.Column
		if o.Line > 0 {
			col = o.Column + tok.Column - 1
		}
		return ts.Span{File: o.File, Line: max(o.Line, 1), Column: col}
	}
	return ts.Span{File: o.File, Line: max(o.Line, 1) + tok.Line - 1, Column: tok.Column}
}

func (p *Parser) errorf(tok Token, format string, args ...interface{}) {
	p.errors = append(p.errors, diagnostics.Errorf(diagnostics.ErrN005, p.span(tok), format, args...))
}

func describe(tok Token) string {
	if tok.Type == EOF {
		return "end of input"
	}
	return fmt.Sprintf("'%s'", tok.Literal)
}

// expect checks the current token and advances past it.
func (p *Parser) expect(t TokenType) bool {
	if !p.curTokenIs(t) {
		p.errorf(p.curToken, "expected '%s', got %s", t, describe(p.curToken))
		return false
	}
	p.nextToken()
	return true
}

func (p *Parser) expectEnd() {
	if len(p.errors) == 0 && !p.curTokenIs(EOF) {
		p.errorf(p.curToken, "unexpected %s after term", describe(p.curToken))
	}
}

// parseTerm parses a type or const; on return curToken is the first token
// after it.
func (p *Parser) parseTerm() ts.Term {
	tok := p.curToken
	switch tok.Type {
	case FOR:
		return p.parseBinder(p.parseTerm)
	case FN:
		return p.parseFnType()
	case AMP:
		return p.parseRef()
	case LPAREN:
		return p.parseTuple()
	case LBRACKET:
		return p.parseArray()
	case LT:
		return p.parseQualified()
	case INFER:
		p.nextToken()
		id, err := strconv.Atoi(tok.Literal)
		if err != nil {
			p.errorf(tok, "invalid inference variable ?%s", tok.Literal)
			return ts.Unit
		}
		return ts.Infer(id)
	case INT, MINUS:
		return p.parseInt()
	case LIFETIME:
		p.nextToken()
		return p.resolveRegion(tok)
	case IDENT:
		return p.parsePath()
	}
	p.errorf(tok, "expected a type, got %s", describe(tok))
	p.nextToken()
	return ts.Unit
}

func (p *Parser) parseInt() ts.Term {
	neg := false
	if p.curTokenIs(MINUS) {
		neg = true
		p.nextToken()
	}
	tok := p.curToken
	if !p.expect(INT) {
		return ts.Value(0)
	}
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.errorf(tok, "integer %s out of range", tok.Literal)
	}
	if neg {
		v = -v
	}
	return ts.Value(v)
}

// parseBinder parses for<...> and then the body with body.
func (p *Parser) parseBinder(body func() ts.Term) ts.Term {
	p.nextToken() // for
	if !p.expect(LT) {
		return ts.Unit
	}
	scope := binderScope{names: make(map[string]int)}
	var names []string
	for !p.curTokenIs(GT) && !p.curTokenIs(EOF) {
		kind := ts.SortType
		if p.curTokenIs(CONST) {
			kind = ts.SortConst
			p.nextToken()
		}
		tok := p.curToken
		switch {
		case tok.Type == LIFETIME && kind == ts.SortType:
			kind = ts.SortRegion
		case tok.Type == IDENT:
		default:
			p.errorf(tok, "expected a binder variable, got %s", describe(tok))
			return ts.Unit
		}
		if _, dup := scope.names[tok.Literal]; dup {
			p.errorf(tok, "%s is bound twice", tok.Literal)
		}
		scope.names[tok.Literal] = len(scope.sorts)
		scope.sorts = append(scope.sorts, kind)
		names = append(names, tok.Literal)
		p.nextToken()
		if !p.curTokenIs(COMMA) {
			break
		}
		p.nextToken()
	}
	if !p.expect(GT) {
		return ts.Unit
	}
	p.binders = append(p.binders, scope)
	inner := body()
	p.binders = p.binders[:len(p.binders)-1]
	return ts.Forall(scope.sorts, names, inner)
}

func (p *Parser) parseFnType() ts.Term {
	p.nextToken() // fn
	if !p.expect(LPAREN) {
		return ts.Unit
	}
	params := p.parseList(RPAREN)
	var result ts.Term = ts.Unit
	if p.curTokenIs(ARROW) {
		p.nextToken()
		result = p.parseTerm()
	}
	return ts.Func(params, result)
}

// parseList parses comma separated terms up to and including end.
func (p *Parser) parseList(end TokenType) []ts.Term {
	var items []ts.Term
	for !p.curTokenIs(end) && !p.curTokenIs(EOF) {
		items = append(items, p.parseTerm())
		if len(p.errors) > 0 {
			return items
		}
		if !p.curTokenIs(COMMA) {
			break
		}
		p.nextToken()
	}
	p.expect(end)
	return items
}

func (p *Parser) parseRef() ts.Term {
	p.nextToken() // &
	tok := p.curToken
	if !p.curTokenIs(LIFETIME) {
		p.errorf(tok, "expected a lifetime after '&', got %s", describe(tok))
		return ts.Unit
	}
	p.nextToken()
	region := p.resolveRegion(tok)
	return ts.Ref(region, p.parseTerm())
}

func (p *Parser) parseTuple() ts.Term {
	p.nextToken() // (
	if p.curTokenIs(RPAREN) {
		p.nextToken()
		return ts.Unit
	}
	first := p.parseTerm()
	if p.curTokenIs(RPAREN) {
		p.nextToken()
		return first
	}
	if !p.expect(COMMA) {
		return ts.Unit
	}
	rest := p.parseList(RPAREN)
	return ts.Tuple(append([]ts.Term{first}, rest...)...)
}

func (p *Parser) parseArray() ts.Term {
	p.nextToken() // [
	elem := p.parseTerm()
	if !p.expect(SEMICOLON) {
		return ts.Unit
	}
	lenTok := p.curToken
	length := p.parseTerm()
	if length.Sort() != ts.SortConst {
		p.errorf(lenTok, "array length must be a const, got %s `%s`", length.Sort(), length)
	}
	p.expect(RBRACKET)
	return ts.Array(elem, length)
}

// parseQualified parses <Self as Trait<Args>>::Item.
func (p *Parser) parseQualified() ts.Term {
	start := p.curToken
	p.nextToken() // <
	self := p.parseTerm()
	if !p.expect(AS) {
		return ts.Unit
	}
	traitTok := p.curToken
	if !p.expect(IDENT) {
		return ts.Unit
	}
	var traitArgs []ts.Term
	if p.curTokenIs(LT) {
		p.nextToken()
		traitArgs = p.parseList(GT)
	}
	if !p.expect(GT) || !p.expect(PATHSEP) {
		return ts.Unit
	}
	itemTok := p.curToken
	if !p.expect(IDENT) {
		return ts.Unit
	}
	id := ts.Item(traitTok.Literal, itemTok.Literal)
	args := append([]ts.Term{self}, traitArgs...)

	if p.opts.Resolver == nil {
		return ts.Alias(ts.Projection, id, args...)
	}
	kind, ok := p.opts.Resolver.KindOf(id)
	switch {
	case ok && kind == ts.DefAssocTy:
		return ts.Alias(ts.Projection, id, args...)
	case ok && kind == ts.DefAssocConst:
		return ts.ConstAlias(id, true, args...)
	}
	p.errorf(start, "unknown associated item `%s`", id)
	return ts.Unit
}

func (p *Parser) parsePath() ts.Term {
	tok := p.curToken
	name := tok.Literal
	p.nextToken()

	var args []ts.Term
	hasArgs := false
	if p.curTokenIs(LT) {
		hasArgs = true
		p.nextToken()
		args = p.parseList(GT)
	}

	if p.curTokenIs(PATHSEP) {
		p.nextToken()
		itemTok := p.curToken
		if !p.expect(IDENT) {
			return ts.Unit
		}
		id := ts.Item(name, itemTok.Literal)
		if p.opts.Resolver != nil {
			if kind, ok := p.opts.Resolver.KindOf(id); !ok || kind != ts.DefInherentTy {
				p.errorf(itemTok, "unknown associated type `%s`", id)
				return ts.Unit
			}
		}
		return ts.Alias(ts.Inherent, id, ts.Con(name, args...))
	}

	if !hasArgs {
		if v, ok := p.lookupBound(name); ok {
			return v
		}
		if v, ok := p.lookupParam(name); ok {
			return v
		}
	} else if _, ok := p.lookupParam(name); ok {
		p.errorf(tok, "generic parameter %s does not take arguments", name)
		return ts.Unit
	}

	if p.opts.Resolver != nil {
		if kind, ok := p.opts.Resolver.KindOf(ts.DefID(name)); ok {
			switch kind {
			case ts.DefWeakAlias:
				return ts.Alias(ts.Weak, ts.DefID(name), args...)
			case ts.DefOpaque:
				return ts.Alias(ts.Opaque, ts.DefID(name), args...)
			case ts.DefConst:
				return ts.ConstAlias(ts.DefID(name), false, args...)
			case ts.DefTrait:
				p.errorf(tok, "expected a type, found trait `%s`", name)
				return ts.Unit
			}
		}
	}
	return ts.Con(name, args...)
}

func (p *Parser) lookupBound(name string) (ts.Term, bool) {
	for i := len(p.binders) - 1; i >= 0; i-- {
		if v, ok := p.binders[i].names[name]; ok {
			return ts.Bound(len(p.binders)-1-i, v, p.binders[i].sorts[v]), true
		}
	}
	return nil, false
}

func (p *Parser) lookupParam(name string) (ts.Term, bool) {
	for i, g := range p.opts.Generics {
		if g.Name == name {
			return ts.Param(i, g.Name, g.Kind), true
		}
	}
	return nil, false
}

func (p *Parser) resolveRegion(tok Token) ts.Term {
	if tok.Literal == "'static" {
		return ts.Static
	}
	if v, ok := p.lookupBound(tok.Literal); ok {
		return v
	}
	if v, ok := p.lookupParam(tok.Literal); ok {
		return v
	}
	p.errorf(tok, "undeclared lifetime %s", tok.Literal)
	return ts.Static
}

// parsePredicate parses a trait bound, a projection equality, wf(..),
// relate(..) or a binder over one of them.
func (p *Parser) parsePredicate() ts.Term {
	tok := p.curToken
	switch tok.Type {
	case FOR:
		return p.parseBinder(p.parsePredicate)
	case WF:
		p.nextToken()
		if !p.expect(LPAREN) {
			return ts.Unit
		}
		t := p.parseTerm()
		p.expect(RPAREN)
		return ts.WellFormed(t)
	case RELATE:
		p.nextToken()
		if !p.expect(LPAREN) {
			return ts.Unit
		}
		l := p.parseTerm()
		if !p.expect(COMMA) {
			return ts.Unit
		}
		r := p.parseTerm()
		p.expect(RPAREN)
		return ts.AliasRelate(l, r)
	}

	lhs := p.parseTerm()
	switch p.curToken.Type {
	case EQ:
		p.nextToken()
		rhs := p.parseTerm()
		alias, ok := lhs.(*ts.TAlias)
		if !ok || (alias.Kind != ts.Projection && alias.Kind != ts.Inherent) {
			p.errorf(tok, "left side of '==' must be an associated type, got `%s`", lhs)
			return ts.Unit
		}
		return ts.ProjectsTo(alias, rhs)
	case COLON:
		p.nextToken()
		traitTok := p.curToken
		if !p.expect(IDENT) {
			return ts.Unit
		}
		if p.opts.Resolver != nil {
			if kind, ok := p.opts.Resolver.KindOf(ts.DefID(traitTok.Literal)); !ok || kind != ts.DefTrait {
				p.errorf(traitTok, "unknown trait `%s`", traitTok.Literal)
				return ts.Unit
			}
		}
		var args []ts.Term
		if p.curTokenIs(LT) {
			p.nextToken()
			args = p.parseList(GT)
		}
		return ts.Implements(lhs, ts.DefID(traitTok.Literal), args...)
	}
	p.errorf(p.curToken, "expected ':' or '==' in predicate, got %s", describe(p.curToken))
	return ts.Unit
}
