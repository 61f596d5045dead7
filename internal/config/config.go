package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

// Config holds the engine settings read from tynorm.yaml.
type Config struct {
	// RecursionLimit bounds how many transparent aliases may be expanded
	// inside one another.
	RecursionLimit int `yaml:"recursion_limit"`
	// ConstGenericsRelaxed leaves constants unnormalized.
	ConstGenericsRelaxed bool `yaml:"const_generics_relaxed"`
	// MaxNesting bounds the structural depth of a folded term.
	MaxNesting int `yaml:"max_nesting"`
	// StackSegment is the nesting interval at which folding continues on a
	// fresh goroutine stack.
	StackSegment int `yaml:"stack_segment"`
	// Reveal is the default reveal mode for queries: user_facing or all.
	Reveal string `yaml:"reveal"`
	// Trace logs every alias resolution.
	Trace bool `yaml:"trace"`
}

// Default returns a configuration with every value at its default.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config data; path is only used in error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Finish(path); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Finish validates a config decoded by some other means (for example embedded
// in a world file) and fills in defaults.
func (c *Config) Finish(path string) error {
	if err := c.validate(path); err != nil {
		return err
	}
	c.setDefaults()
	return nil
}

// FindConfig walks up from dir looking for a config file. It returns "" when
// none exists.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) validate(path string) error {
	if c.RecursionLimit < 0 {
		return fmt.Errorf("%s: recursion_limit must not be negative, got %d", path, c.RecursionLimit)
	}
	if c.MaxNesting < 0 {
		return fmt.Errorf("%s: max_nesting must not be negative, got %d", path, c.MaxNesting)
	}
	if c.StackSegment < 0 {
		return fmt.Errorf("%s: stack_segment must not be negative, got %d", path, c.StackSegment)
	}
	if c.MaxNesting > 0 && c.StackSegment > c.MaxNesting {
		return fmt.Errorf("%s: stack_segment (%d) exceeds max_nesting (%d)", path, c.StackSegment, c.MaxNesting)
	}
	if _, err := ts.ParseReveal(c.Reveal); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// setDefaults fills in default values for omitted fields.
func (c *Config) setDefaults() {
	if c.RecursionLimit == 0 {
		c.RecursionLimit = DefaultRecursionLimit
	}
	if c.MaxNesting == 0 {
		c.MaxNesting = DefaultMaxNesting
	}
	if c.StackSegment == 0 {
		c.StackSegment = DefaultStackSegment
		if c.StackSegment > c.MaxNesting {
			c.StackSegment = c.MaxNesting
		}
	}
	if c.Reveal == "" {
		c.Reveal = ts.RevealUserFacing.String()
	}
}

// DefaultReveal returns the configured reveal mode.
func (c *Config) DefaultReveal() ts.Reveal {
	r, _ := ts.ParseReveal(c.Reveal)
	return r
}
