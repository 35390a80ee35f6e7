// Package godsl parses the Structurizr DSL into a resolved workspace
// model.
//
// A parse never fails on malformed input: the parser recovers, records
// diagnostics, and always produces a workspace (possibly a placeholder
// when the error budget aborts). Callers decide what to do with
// partial results by checking Result.HasErrors.
//
// Example:
//
//	res := godsl.Parse(source,
//	    godsl.WithSource(godsl.Dir("./architecture")),
//	    godsl.WithLogger(slog.Default()),
//	)
//	if res.HasErrors() {
//	    for _, d := range res.Diagnostics {
//	        fmt.Println(d)
//	    }
//	}
package godsl

import (
	"log/slog"
	"os"
	"sort"

	"github.com/structviz/godsl/internal/include"
	"github.com/structviz/godsl/internal/parser"
	"github.com/structviz/godsl/internal/report"
	"github.com/structviz/godsl/internal/resolver"
	"github.com/structviz/godsl/internal/types"
	"github.com/structviz/godsl/workspace"
)

// LevelTrace is a custom log level more verbose than Debug.
// Use for per-item iteration logging (tokens, AST nodes, include files).
// Enable with: &slog.HandlerOptions{Level: slog.Level(-8)}
const LevelTrace = slog.Level(-8)

// ParseOption configures Parse, ParseString and ParseFile.
type ParseOption func(*parseConfig)

type parseConfig struct {
	logger    *slog.Logger
	source    Source
	entry     string
	maxErrors int
	diag      types.DiagnosticConfig
}

// WithLogger sets the logger for debug/trace output.
// If not set, no logging occurs (zero overhead).
func WithLogger(logger *slog.Logger) ParseOption {
	return func(c *parseConfig) { c.logger = logger }
}

// WithSource configures where !include directives load files from.
// Without a source, every !include reports a diagnostic.
func WithSource(src Source) ParseOption {
	return func(c *parseConfig) { c.source = src }
}

// WithMaxErrors overrides the error budget that aborts a parse.
func WithMaxErrors(n int) ParseOption {
	return func(c *parseConfig) { c.maxErrors = n }
}

// WithMinSeverity drops diagnostics less severe than the given level.
func WithMinSeverity(sev workspace.Severity) ParseOption {
	return func(c *parseConfig) { c.diag.Level = types.Severity(sev) }
}

// WithIgnore suppresses diagnostics whose code matches any of the
// given globs (e.g. "missing-*").
func WithIgnore(globs ...string) ParseOption {
	return func(c *parseConfig) { c.diag.Ignore = append(c.diag.Ignore, globs...) }
}

// Result is the outcome of a parse: a resolved workspace plus every
// diagnostic collected across include expansion, parsing, and
// resolution, in source order.
type Result struct {
	Workspace   *workspace.Workspace
	Diagnostics []workspace.Diagnostic

	// Placeholder is set when the error budget aborted the parse and
	// the workspace carries no useful content.
	Placeholder bool
}

// HasErrors reports whether any diagnostic is error severity or worse.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity <= workspace.SeverityError {
			return true
		}
	}
	return false
}

// HasFatalErrors reports whether the parse aborted.
func (r *Result) HasFatalErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == workspace.SeverityFatal {
			return true
		}
	}
	return false
}

// Parse parses DSL source text. It always returns a usable Result;
// malformed input surfaces as diagnostics, never as an error.
func Parse(source []byte, opts ...ParseOption) *Result {
	// entry stays empty for in-memory input so includes in the root
	// buffer anchor at the Source's root, not the working directory.
	cfg := parseConfig{
		diag: types.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return parse(source, cfg)
}

// ParseString parses DSL source text given as a string.
func ParseString(source string, opts ...ParseOption) *Result {
	return Parse([]byte(source), opts...)
}

// ParseFile reads and parses a DSL file. Includes resolve relative to
// the file's directory unless WithSource overrides that. The returned
// error covers file I/O only; parse problems are diagnostics on the
// Result.
func ParseFile(path string, opts ...ParseOption) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := parseConfig{
		entry: path,
		diag:  types.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.source == nil {
		cfg.source = Dir(".")
	}
	return parse(content, cfg), nil
}

func parse(source []byte, cfg parseConfig) *Result {
	src := cfg.source
	if src == nil {
		src = include.Multi()
	}
	inc := include.NewResolver(src, cfg.logger)
	source, diags := inc.Expand(cfg.entry, source)

	p := parser.New(source, cfg.logger, cfg.diag)
	if cfg.maxErrors > 0 {
		p.SetMaxErrors(cfg.maxErrors)
	}
	root := p.Parse()
	p.Reporter().Extend(diags)

	ws, resolveDiags := resolver.Resolve(root, cfg.logger)
	p.Reporter().Extend(resolveDiags)

	res := &Result{
		Workspace:   ws,
		Placeholder: root.Placeholder,
	}
	for _, d := range p.Reporter().Sorted() {
		if !cfg.diag.ShouldReport(d.Code, d.Severity) {
			continue
		}
		res.Diagnostics = append(res.Diagnostics, convertDiagnostic(source, d))
	}
	sort.SliceStable(res.Diagnostics, func(i, j int) bool {
		a, b := res.Diagnostics[i], res.Diagnostics[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return res
}

func convertDiagnostic(source []byte, d types.SpanDiagnostic) workspace.Diagnostic {
	out := workspace.Diagnostic{
		Severity: workspace.Severity(d.Severity),
		Code:     d.Code,
		Message:  d.Message,
	}
	if !d.Span.IsSynthetic() {
		out.Line, out.Column = report.Position(source, d.Span.Start)
	}
	return out
}
