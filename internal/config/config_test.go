package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	ts "github.com/funvibe/tynorm/internal/typesystem"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("trace: true\n"), "tynorm.yaml")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.RecursionLimit != DefaultRecursionLimit || cfg.MaxNesting != DefaultMaxNesting || cfg.StackSegment != DefaultStackSegment {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if !cfg.Trace || cfg.DefaultReveal() != ts.RevealUserFacing {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestParseConfigValues(t *testing.T) {
	src := "recursion_limit: 4\nconst_generics_relaxed: true\nmax_nesting: 64\nstack_segment: 8\nreveal: all\n"
	cfg, err := ParseConfig([]byte(src), "tynorm.yaml")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.RecursionLimit != 4 || !cfg.ConstGenericsRelaxed || cfg.MaxNesting != 64 || cfg.StackSegment != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DefaultReveal() != ts.RevealAll {
		t.Errorf("DefaultReveal() = %s", cfg.DefaultReveal())
	}
}

func TestParseConfigSmallNestingClampsSegment(t *testing.T) {
	cfg, err := ParseConfig([]byte("max_nesting: 100\n"), "tynorm.yaml")
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.StackSegment != 100 {
		t.Errorf("StackSegment = %d, want 100", cfg.StackSegment)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		src     string
		wantErr string
	}{
		{"recursion_limit: -1\n", "recursion_limit must not be negative"},
		{"reveal: sometimes\n", "unknown reveal mode"},
		{"max_nesting: 10\nstack_segment: 20\n", "exceeds max_nesting"},
		{"recursion_limit: [1]\n", "parsing"},
	}
	for _, tt := range tests {
		_, err := ParseConfig([]byte(tt.src), "tynorm.yaml")
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("ParseConfig(%q) error = %v, want substring %q", tt.src, err, tt.wantErr)
		}
	}
}

func TestFindConfigWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, "tynorm.yaml")
	if err := os.WriteFile(want, []byte("recursion_limit: 8\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindConfig(nested)
	if err != nil {
		t.Fatalf("FindConfig() error = %v", err)
	}
	if got != want {
		t.Errorf("FindConfig() = %q, want %q", got, want)
	}
	cfg, err := LoadConfig(got)
	if err != nil || cfg.RecursionLimit != 8 {
		t.Errorf("LoadConfig() = %+v, %v", cfg, err)
	}
}
