package pipeline

import (
	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
)

// PipelineContext carries a world file through the stages. File, World
// and Results hold the stage outputs; they are typed by the packages that
// produce them to keep this package free of import cycles.
type PipelineContext struct {
	FilePath string
	Source   []byte
	Config   *config.Config

	File    interface{} // *world.File
	World   interface{} // *world.World
	Results interface{} // []tynorm.Result

	Errors []*diagnostics.DiagnosticError
}

// NewPipelineContext starts a run over source read from path.
func NewPipelineContext(path string, source []byte, cfg *config.Config) *PipelineContext {
	if cfg == nil {
		cfg = config.Default()
	}
	return &PipelineContext{FilePath: path, Source: source, Config: cfg}
}

// Fail records diagnostics produced by a stage.
func (c *PipelineContext) Fail(errs ...*diagnostics.DiagnosticError) {
	c.Errors = append(c.Errors, errs...)
}

// Failed reports whether any stage has recorded an error.
func (c *PipelineContext) Failed() bool {
	return len(c.Errors) > 0
}
