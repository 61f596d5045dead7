// Package world reads YAML world files: a set of definitions, an
// environment and the queries to normalize under it.
package world

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

const (
	// SupportedFormats is the range of world formats this build reads.
	SupportedFormats = ">= 1.0.0, < 2.0.0"
)

// Snippet is a scalar holding term or predicate syntax, with its position
// in the world file.
type Snippet struct {
	Text   string
	Line   int
	Column int
}

func (s *Snippet) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a term, got a %s", n.Line, nodeKind(n.Kind))
	}
	s.Text, s.Line, s.Column = n.Value, n.Line, n.Column
	// Plain scalars start where the node starts; quoted ones one column later.
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		s.Column++
	}
	return nil
}

func nodeKind(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	}
	return "document"
}

type TraitEntry struct {
	Name   Snippet  `yaml:"name"`
	Params []string `yaml:"params,omitempty"`
	Types  []string `yaml:"types,omitempty"`
	Consts []string `yaml:"consts,omitempty"`
}

type ImplEntry struct {
	Trait    Snippet            `yaml:"trait"`
	Generics []string           `yaml:"generics,omitempty"`
	Args     []Snippet          `yaml:"args,omitempty"`
	Self     Snippet            `yaml:"self"`
	Where    []Snippet          `yaml:"where,omitempty"`
	Types    map[string]Snippet `yaml:"types,omitempty"`
	Consts   map[string]Snippet `yaml:"consts,omitempty"`
}

type InherentEntry struct {
	Generics []string           `yaml:"generics,omitempty"`
	Self     Snippet            `yaml:"self"`
	Where    []Snippet          `yaml:"where,omitempty"`
	Types    map[string]Snippet `yaml:"types"`
}

type AliasEntry struct {
	Name     Snippet   `yaml:"name"`
	Generics []string  `yaml:"generics,omitempty"`
	Body     Snippet   `yaml:"body"`
	Where    []Snippet `yaml:"where,omitempty"`
}

type OpaqueEntry struct {
	Name     Snippet  `yaml:"name"`
	Generics []string `yaml:"generics,omitempty"`
	Hidden   Snippet  `yaml:"hidden"`
}

type ConstEntry struct {
	Name     Snippet  `yaml:"name"`
	Generics []string `yaml:"generics,omitempty"`
	Value    Snippet  `yaml:"value"`
}

type EnvEntry struct {
	Params []string  `yaml:"params,omitempty"`
	Bounds []Snippet `yaml:"bounds,omitempty"`
	Reveal string    `yaml:"reveal,omitempty"`
}

type QueryEntry struct {
	Name   string  `yaml:"name"`
	Term   Snippet `yaml:"term"`
	Mode   string  `yaml:"mode,omitempty"`
	Reveal string  `yaml:"reveal,omitempty"`
}

// File is the decoded form of a world file.
type File struct {
	Format   string          `yaml:"format"`
	Config   *yaml.Node      `yaml:"config,omitempty"`
	Traits   []TraitEntry    `yaml:"traits,omitempty"`
	Impls    []ImplEntry     `yaml:"impls,omitempty"`
	Inherent []InherentEntry `yaml:"inherent,omitempty"`
	Aliases  []AliasEntry    `yaml:"aliases,omitempty"`
	Opaques  []OpaqueEntry   `yaml:"opaques,omitempty"`
	Consts   []ConstEntry    `yaml:"consts,omitempty"`
	Env      EnvEntry        `yaml:"env,omitempty"`
	Queries  []QueryEntry    `yaml:"queries,omitempty"`

	Path string `yaml:"-"`
}

// LoadFile reads and decodes a world file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file: %w", err)
	}
	return ParseFile(data, path)
}

// ParseFile decodes a world file and checks its format version. Unknown
// keys are rejected.
func ParseFile(data []byte, path string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	f.Path = path
	if err := checkFormat(f.Format); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

func checkFormat(format string) error {
	if format == "" {
		return fmt.Errorf("missing format version (this build reads %s)", SupportedFormats)
	}
	v, err := semver.NewVersion(format)
	if err != nil {
		return fmt.Errorf("invalid format version %q: %w", format, err)
	}
	c, err := semver.NewConstraint(SupportedFormats)
	if err != nil {
		return err
	}
	if !c.Check(v) {
		return fmt.Errorf("unsupported format version %s (this build reads %s)", v, SupportedFormats)
	}
	return nil
}
