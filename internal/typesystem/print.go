package typesystem

import (
	"fmt"
	"strconv"
	"strings"
)

// Print renders a term in the surface syntax accepted by the syntax package.
// Bound variables are printed with the names of their binders.
func Print(t Term) string {
	var p printer
	p.term(t)
	return p.b.String()
}

type printer struct {
	b       strings.Builder
	binders [][]string
}

func (p *printer) write(s string) { p.b.WriteString(s) }

func (p *printer) list(items []Term) {
	for i, it := range items {
		if i > 0 {
			p.write(", ")
		}
		p.term(it)
	}
}

func (p *printer) generics(args []Term) {
	if len(args) == 0 {
		return
	}
	p.write("<")
	p.list(args)
	p.write(">")
}

func (p *printer) qualified(self Term, owner string, traitArgs []Term, item string) {
	p.write("<")
	p.term(self)
	p.write(" as ")
	p.write(owner)
	p.generics(traitArgs)
	p.write(">::")
	p.write(item)
}

func (p *printer) term(t Term) {
	switch t := t.(type) {
	case nil:
		p.write("<nil>")
	case *TCon:
		p.write(t.Name)
		p.generics(t.Args)
	case *TParam:
		p.write(t.Name)
	case *TInfer:
		p.write("?" + strconv.Itoa(t.ID))
	case *TBound:
		p.write(p.boundName(t))
	case *TPlaceholder:
		prefix := "!"
		if t.Kind == SortRegion {
			prefix = "'!"
		}
		p.write(fmt.Sprintf("%s%d_%d", prefix, t.Universe, t.Var))
	case *TRef:
		p.write("&")
		p.term(t.Region)
		p.write(" ")
		p.term(t.Elem)
	case *TTuple:
		p.write("(")
		p.list(t.Elements)
		if len(t.Elements) == 1 {
			p.write(",")
		}
		p.write(")")
	case *TFunc:
		p.write("fn(")
		p.list(t.Params)
		p.write(")")
		if tup, ok := t.Result.(*TTuple); !ok || len(tup.Elements) > 0 {
			p.write(" -> ")
			p.term(t.Result)
		}
	case *TArray:
		p.write("[")
		p.term(t.Elem)
		p.write("; ")
		p.term(t.Len)
		p.write("]")
	case *TAlias:
		p.alias(t)
	case *TForall:
		names := binderNames(t, len(p.binders))
		p.write("for<")
		p.write(strings.Join(names, ", "))
		p.write("> ")
		p.binders = append(p.binders, names)
		p.term(t.Body)
		p.binders = p.binders[:len(p.binders)-1]
	case *RStatic:
		p.write("'static")
	case *CValue:
		p.write(strconv.FormatInt(t.Value, 10))
	case *CAlias:
		if t.Assoc && len(t.Args) > 0 {
			owner, item := t.Def.Split()
			p.qualified(t.Args[0], owner, t.Args[1:], item)
			return
		}
		p.write(string(t.Def))
		p.generics(t.Args)
	case *PTrait:
		p.term(t.Self)
		p.write(": ")
		p.write(string(t.Trait))
		p.generics(t.Args)
	case *PProjection:
		p.term(t.Alias)
		p.write(" == ")
		p.term(t.Term)
	case *PWellFormed:
		p.write("wf(")
		p.term(t.Term)
		p.write(")")
	case *PAliasRelate:
		p.write("relate(")
		p.term(t.Left)
		p.write(", ")
		p.term(t.Right)
		p.write(")")
	default:
		p.write(fmt.Sprintf("<%T>", t))
	}
}

func (p *printer) alias(t *TAlias) {
	switch t.Kind {
	case Projection:
		owner, item := t.Def.Split()
		p.qualified(t.Args[0], owner, t.Args[1:], item)
	case Inherent:
		owner, item := t.Def.Split()
		if con, ok := t.Args[0].(*TCon); ok && con.Name == owner {
			p.term(con)
		} else {
			p.write("<")
			p.term(t.Args[0])
			p.write(">")
		}
		p.write("::")
		p.write(item)
	case Opaque, Weak:
		p.write(string(t.Def))
		p.generics(t.Args)
	}
}

func (p *printer) boundName(t *TBound) string {
	level := len(p.binders) - 1 - t.DeBruijn
	if level < 0 || t.Var >= len(p.binders[level]) {
		prefix := "^"
		if t.Kind == SortRegion {
			prefix = "'^"
		}
		return fmt.Sprintf("%s%d_%d", prefix, t.DeBruijn, t.Var)
	}
	return p.binders[level][t.Var]
}

func binderNames(t *TForall, level int) []string {
	names := make([]string, len(t.Vars))
	for i, sort := range t.Vars {
		if i < len(t.Names) && t.Names[i] != "" {
			names[i] = t.Names[i]
			continue
		}
		switch sort {
		case SortRegion:
			names[i] = fmt.Sprintf("'b%d_%d", level, i)
		case SortConst:
			names[i] = fmt.Sprintf("C%d_%d", level, i)
		default:
			names[i] = fmt.Sprintf("B%d_%d", level, i)
		}
	}
	return names
}

func (t *TCon) String() string         { return Print(t) }
func (t *TParam) String() string       { return Print(t) }
func (t *TInfer) String() string       { return Print(t) }
func (t *TBound) String() string       { return Print(t) }
func (t *TPlaceholder) String() string { return Print(t) }
func (t *TRef) String() string         { return Print(t) }
func (t *TTuple) String() string       { return Print(t) }
func (t *TFunc) String() string        { return Print(t) }
func (t *TArray) String() string       { return Print(t) }
func (t *TAlias) String() string       { return Print(t) }
func (t *TForall) String() string      { return Print(t) }
func (r *RStatic) String() string      { return Print(r) }
func (c *CValue) String() string       { return Print(c) }
func (c *CAlias) String() string       { return Print(c) }
func (p *PTrait) String() string       { return Print(p) }
func (p *PProjection) String() string  { return Print(p) }
func (p *PWellFormed) String() string  { return Print(p) }
func (p *PAliasRelate) String() string { return Print(p) }
