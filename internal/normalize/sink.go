package normalize

import (
	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Sink collects obligations in the order they are produced. Callers only
// ever append; the normalizer itself discards what a failed speculative
// projection added.
type Sink struct {
	obligations []ts.Obligation
}

func (s *Sink) Push(obligations ...ts.Obligation) {
	s.obligations = append(s.obligations, obligations...)
}

func (s *Sink) Len() int {
	return len(s.obligations)
}

// Obligations returns a copy of the collected obligations.
func (s *Sink) Obligations() []ts.Obligation {
	out := make([]ts.Obligation, len(s.obligations))
	copy(out, s.obligations)
	return out
}

func (s *Sink) truncate(n int) {
	s.obligations = s.obligations[:n]
}
