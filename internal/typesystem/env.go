package typesystem

import (
	"fmt"
	"strings"
)

// DefID names a definition: a trait ("Iterator"), an associated item
// ("Iterator::Item"), an inherent item ("Wrapper::Inner"), an impl, or a free
// alias / opaque / const.
type DefID string

// Split returns the owner and item parts of an item path ("Iterator", "Item").
// For a path without "::" the owner is empty.
func (d DefID) Split() (owner, item string) {
	s := string(d)
	if i := strings.LastIndex(s, "::"); i >= 0 {
		return s[:i], s[i+2:]
	}
	return "", s
}

// Item joins an owner and an item name.
func Item(owner, item string) DefID {
	return DefID(owner + "::" + item)
}

// DefKind classifies a definition.
type DefKind int

const (
	DefTrait DefKind = iota
	DefAssocTy
	DefAssocConst
	DefImpl
	DefImplItem
	DefInherentImpl
	DefInherentTy
	DefWeakAlias
	DefOpaque
	DefConst
)

var defKindNames = [...]string{
	DefTrait:        "trait",
	DefAssocTy:      "associated type",
	DefAssocConst:   "associated const",
	DefImpl:         "impl",
	DefImplItem:     "impl item",
	DefInherentImpl: "inherent impl",
	DefInherentTy:   "inherent associated type",
	DefWeakAlias:    "type alias",
	DefOpaque:       "opaque type",
	DefConst:        "const",
}

func (k DefKind) String() string {
	if int(k) >= 0 && int(k) < len(defKindNames) {
		return defKindNames[k]
	}
	return "unknown"
}

// GenericParam declares one generic parameter of a definition.
type GenericParam struct {
	Name string
	Kind Sort
}

// Params returns TParam references for every generic, in order.
func Params(generics []GenericParam) []Term {
	out := make([]Term, len(generics))
	for i, g := range generics {
		out[i] = Param(i, g.Name, g.Kind)
	}
	return out
}

// Span locates a piece of source text.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) IsZero() bool { return s.Line == 0 && s.File == "" }

func (s Span) String() string {
	if s.IsZero() {
		return "<unknown>"
	}
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Reveal selects whether opaque types stay hidden.
type Reveal int

const (
	RevealUserFacing Reveal = iota
	RevealAll
)

func (r Reveal) String() string {
	if r == RevealAll {
		return "all"
	}
	return "user_facing"
}

// ParseReveal accepts "user_facing" (or "") and "all".
func ParseReveal(s string) (Reveal, error) {
	switch s {
	case "", "user_facing":
		return RevealUserFacing, nil
	case "all":
		return RevealAll, nil
	}
	return RevealUserFacing, fmt.Errorf("unknown reveal mode %q", s)
}

// ParamEnv is the set of assumptions in scope plus the reveal mode.
type ParamEnv struct {
	CallerBounds []Term
	Reveal       Reveal
}

// WithReveal returns a copy of the environment with the given reveal mode.
func (e ParamEnv) WithReveal(r Reveal) ParamEnv {
	e.Reveal = r
	return e
}

// CauseCode explains why an obligation exists.
type CauseCode interface {
	String() string
}

// MiscCause is the root cause of caller-provided obligations.
type MiscCause struct{}

func (MiscCause) String() string { return "misc" }

// TypeAliasCause marks a where-clause of a weak alias.
type TypeAliasCause struct {
	Parent CauseCode
	Span   Span
	Def    DefID
}

func (c TypeAliasCause) String() string {
	return fmt.Sprintf("required by a bound on type alias `%s` at %s", c.Def, c.Span)
}

// ImplWhereClauseCause marks a where-clause of a selected impl.
type ImplWhereClauseCause struct {
	Impl DefID
	Span Span
}

func (c ImplWhereClauseCause) String() string {
	return fmt.Sprintf("required by a bound on `%s` at %s", c.Impl, c.Span)
}

// ProjectionCause marks an obligation introduced to normalize an alias.
type ProjectionCause struct {
	Alias Term
}

func (c ProjectionCause) String() string {
	return fmt.Sprintf("required to normalize `%s`", c.Alias)
}

// ObligationCause locates an obligation and explains it.
type ObligationCause struct {
	Span Span
	Code CauseCode
}

// WithCode returns a copy of the cause with a different code.
func (c ObligationCause) WithCode(code CauseCode) ObligationCause {
	c.Code = code
	return c
}

// MiscObligation builds a cause at span with MiscCause.
func MiscObligation(span Span) ObligationCause {
	return ObligationCause{Span: span, Code: MiscCause{}}
}

func (c ObligationCause) String() string {
	if c.Code == nil {
		return c.Span.String()
	}
	return c.Code.String()
}

// Obligation is a predicate that must hold for a normalization to be valid.
type Obligation struct {
	Predicate Term
	Cause     ObligationCause
	Env       ParamEnv
	Depth     int
}

func (o Obligation) String() string {
	return o.Predicate.String()
}

// SpannedPredicate is a where-clause template together with its location.
type SpannedPredicate struct {
	Predicate Term
	Span      Span
}
