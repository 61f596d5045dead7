package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/funvibe/tynorm/internal/config"
)

func testMode(t *testing.T) {
	t.Helper()
	prev := config.IsTestMode
	config.IsTestMode = true
	t.Cleanup(func() { config.IsTestMode = prev })
}

func runMain(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out bytes.Buffer
	code := Main(context.Background(), append([]string{"-no-color"}, args...), &out, &out)
	return out.String(), code
}

// TestWorldFiles runs every world in testdata and compares the output with
// the matching .want file.
func TestWorldFiles(t *testing.T) {
	testMode(t)
	files, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no world files in testdata")
	}
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			want, err := os.ReadFile(strings.TrimSuffix(file, ".yaml") + ".want")
			if err != nil {
				t.Fatal(err)
			}
			got, code := runMain(t, file)
			if got != string(want) {
				t.Errorf("output mismatch\n--- got\n%s--- want\n%s", got, want)
			}
			wantCode := 0
			if strings.Contains(string(want), "error[") {
				wantCode = 1
			}
			if code != wantCode {
				t.Errorf("exit code = %d, want %d", code, wantCode)
			}
		})
	}
}

func TestUsage(t *testing.T) {
	tests := []struct {
		args     []string
		wantCode int
		wantOut  string
	}{
		{nil, 2, "usage: tynorm"},
		{[]string{"-version"}, 0, "tynorm " + Version},
		{[]string{"-bogus"}, 2, "flag provided but not defined"},
		{[]string{"testdata/absent.yaml"}, 1, "absent.yaml"},
	}
	for _, tt := range tests {
		got, code := runMain(t, tt.args...)
		if code != tt.wantCode || !strings.Contains(got, tt.wantOut) {
			t.Errorf("Main(%v) = %d, %q; want %d containing %q", tt.args, code, got, tt.wantCode, tt.wantOut)
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConfigFileIsFound(t *testing.T) {
	testMode(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tynorm.yaml"), "recursion_limit: 2\n")
	world := filepath.Join(dir, "w.yaml")
	writeFile(t, world, `format: 1.0.0
aliases:
  - name: A
    body: B
  - name: B
    body: C
  - name: C
    body: Int
queries:
  - term: A
`)
	got, code := runMain(t, world)
	if code != 1 || !strings.Contains(got, "error[N002]") {
		t.Errorf("with limit 2: code %d, output %q", code, got)
	}

	other := filepath.Join(t.TempDir(), "limits.yaml")
	writeFile(t, other, "recursion_limit: 3\n")
	got, code = runMain(t, "-config", other, world)
	if code != 0 || got != "query 1: A => Int\n" {
		t.Errorf("with -config: code %d, output %q", code, got)
	}
}

func TestDefinitionsDatabase(t *testing.T) {
	testMode(t)
	dir := t.TempDir()
	db := filepath.Join(dir, "defs.db")
	if _, code := runMain(t, "-export-db", db, filepath.Join("testdata", "iterator.yaml")); code != 0 {
		t.Fatalf("export exited with %d", code)
	}

	queries := filepath.Join(dir, "queries.yaml")
	writeFile(t, queries, "format: 1.0.0\nqueries:\n  - term: <Vec<Bool> as Iterator>::Item\n")
	got, code := runMain(t, "-db", db, queries)
	if code != 0 || got != "query 1: <Vec<Bool> as Iterator>::Item => Bool\n" {
		t.Errorf("import: code %d, output %q", code, got)
	}

	got, code = runMain(t, queries)
	if code != 1 || !strings.Contains(got, "Iterator") {
		t.Errorf("without -db: code %d, output %q", code, got)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, out *syncBuffer, text string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(out.String(), text) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %q; output so far:\n%s", text, out.String())
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchRerunsOnChange(t *testing.T) {
	testMode(t)
	world := filepath.Join(t.TempDir(), "w.yaml")
	writeFile(t, world, "format: 1.0.0\nqueries:\n  - name: first\n    term: Int\n")

	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	done := make(chan int, 1)
	go func() {
		done <- Main(ctx, []string{"-no-color", "-watch", world}, &out, &out)
	}()

	waitFor(t, &out, "first: Int => Int")
	writeFile(t, world, "format: 1.0.0\nqueries:\n  - name: second\n    term: Bool\n")
	waitFor(t, &out, "second: Bool => Bool")
	if !strings.Contains(out.String(), "--- "+world+" changed") {
		t.Errorf("missing change banner in:\n%s", out.String())
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("watch exited with %d", code)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
