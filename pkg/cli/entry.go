// Package cli implements the tynorm command: it loads world files,
// normalizes their queries and reports the results.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/funvibe/tynorm/internal/config"
	"github.com/funvibe/tynorm/internal/diagnostics"
	"github.com/funvibe/tynorm/internal/pipeline"
	"github.com/funvibe/tynorm/internal/symbols"
	"github.com/funvibe/tynorm/internal/world"
	tynorm "github.com/funvibe/tynorm/pkg/embed"
)

// Version is reported by -version.
var Version = "0.3.0"

type options struct {
	configPath string
	watch      bool
	exportDB   string
	importDB   string
	trace      bool
	noColor    bool
	workers    int
	files      []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("tynorm", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "", "engine config file (default: nearest tynorm.yaml)")
	fs.BoolVar(&opts.watch, "watch", false, "re-run queries whenever a world file changes")
	fs.StringVar(&opts.exportDB, "export-db", "", "write the built definitions to a SQLite database")
	fs.StringVar(&opts.importDB, "db", "", "start from the definitions in a SQLite database")
	fs.BoolVar(&opts.trace, "trace", false, "log every alias resolution to stderr")
	fs.BoolVar(&opts.noColor, "no-color", false, "disable coloured diagnostics")
	fs.IntVar(&opts.workers, "workers", 0, "queries normalized in parallel (0 = unbounded)")
	version := fs.Bool("version", false, "print the version and exit")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: tynorm [options] <world.yaml>...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *version {
		fmt.Fprintln(stderr, "tynorm "+Version)
		return nil, flag.ErrHelp
	}
	opts.files = fs.Args()
	if len(opts.files) == 0 {
		fs.Usage()
		return nil, errors.New("no world files given")
	}
	return opts, nil
}

// Run executes the command with the process arguments and exits.
func Run() {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(1)
		}
	}()

	if os.Getenv("TYNORM_TEST_MODE") == "1" {
		config.IsTestMode = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(Main(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// Main runs the command and returns the exit code: 0 when every query
// normalized cleanly, 1 otherwise, 2 for usage errors.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	color := !opts.noColor && writesToTerminal(stdout)
	r := &runner{opts: opts, stdout: stdout, stderr: stderr, color: color}
	if opts.watch {
		if err := r.watch(ctx); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}

	code := 0
	for _, path := range opts.files {
		if !r.runFile(ctx, path) {
			code = 1
		}
	}
	return code
}

func writesToTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && diagnostics.UseColor(f)
}

type runner struct {
	opts   *options
	stdout io.Writer
	stderr io.Writer
	color  bool
}

// loadConfig returns the -config file, else the nearest config file above
// the world file, else the defaults.
func (r *runner) loadConfig(worldPath string) (*config.Config, error) {
	path := r.opts.configPath
	if path == "" {
		found, err := config.FindConfig(filepath.Dir(worldPath))
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg := config.Default()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if r.opts.trace {
		cfg.Trace = true
	}
	return cfg, nil
}

func (r *runner) baseTable() (*symbols.SymbolTable, error) {
	if r.opts.importDB == "" {
		return symbols.NewSymbolTable(), nil
	}
	store, err := symbols.OpenSQLite(r.opts.importDB)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load()
}

// runFile processes one world file and reports whether it succeeded.
func (r *runner) runFile(ctx context.Context, path string) bool {
	cfg, err := r.loadConfig(path)
	if err != nil {
		fmt.Fprintln(r.stderr, err)
		return false
	}
	table, err := r.baseTable()
	if err != nil {
		fmt.Fprintf(r.stderr, "loading definitions: %v\n", err)
		return false
	}

	processors := []pipeline.Processor{
		&world.LoaderProcessor{},
		&world.BuilderProcessor{Table: table},
	}
	if r.opts.exportDB != "" {
		processors = append(processors, &ExportProcessor{Path: r.opts.exportDB})
	}
	report := &ReportProcessor{Out: r.stdout, Err: r.stderr, Color: r.color}
	processors = append(processors,
		&tynorm.NormalizeProcessor{Context: ctx, Workers: r.opts.workers},
		report,
	)

	final := pipeline.New(processors...).Run(pipeline.NewPipelineContext(path, nil, cfg))
	return !final.Failed() && !report.Failed
}
