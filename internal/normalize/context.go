// Package normalize rewrites terms so that every alias the proof engine can
// resolve is replaced by its underlying form. Obligations produced along the
// way are returned to the caller rather than proven here.
package normalize

import (
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/infer"
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// DefinitionStore provides alias bodies and where-clauses.
type DefinitionStore interface {
	BodyOf(def ts.DefID) ts.Term
	PredicatesOf(def ts.DefID) []ts.SpannedPredicate
}

// Projected is a successful projection: the value the alias stands for and
// the obligations under which that holds.
type Projected struct {
	Value       ts.Term
	Obligations []ts.Obligation
}

// Projector resolves projection and inherent aliases and evaluates
// unevaluated constants. Implementations may re-enter the engine through
// NormalizeWithDepth.
type Projector interface {
	// TryProject returns false when the alias cannot be resolved.
	TryProject(ctx *Context, env ts.ParamEnv, alias *ts.TAlias, cause ts.ObligationCause, depth int) (Projected, bool)
	// EvalConst returns false when the constant cannot be evaluated.
	EvalConst(ctx *Context, env ts.ParamEnv, c *ts.CAlias, depth int) (ts.Term, bool)
}

// Fulfiller proves obligations to a fixed point.
type Fulfiller interface {
	Register(obligations ...ts.Obligation)
	// SelectAllOrError returns every obligation that is false or could not
	// be decided.
	SelectAllOrError(ctx *Context) []*ts.FulfillmentError
}

// Context is the state shared by a root normalization and every re-entrant
// normalization the proof engine performs under it. It is not safe for
// concurrent use.
type Context struct {
	Infer     *infer.Ctxt
	Store     DefinitionStore
	Projector Projector
	Reporter  diagnostics.Reporter
	Config    *config.Config
	Logger    *log.Logger
	Session   uuid.UUID
}

// NewContext builds a context with a fresh inference context and session
// id. Tracing goes to stderr when cfg.Trace is set.
func NewContext(store DefinitionStore, projector Projector, cfg *config.Config) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	var out io.Writer = io.Discard
	if cfg.Trace {
		out = os.Stderr
	}
	return &Context{
		Infer:     infer.New(),
		Store:     store,
		Projector: projector,
		Reporter:  diagnostics.Discard{},
		Config:    cfg,
		Logger:    log.New(out, "normalize: ", 0),
		Session:   uuid.New(),
	}
}

func (c *Context) tracef(format string, args ...interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Printf("[%s] "+format, append([]interface{}{c.Session.String()[:8]}, args...)...)
}
