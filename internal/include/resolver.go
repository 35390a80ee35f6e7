// Package include expands !include directives before parsing. It
// splices referenced file contents into a single source buffer, builds
// a directed file graph, and reports circular includes by naming the
// cycle members. A file is spliced at most once; later references to
// the same file expand to nothing, so expansion terminates even on
// self- or mutually-referential files.
package include

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/structviz/godsl/internal/graph"
	"github.com/structviz/godsl/internal/lexer"
	"github.com/structviz/godsl/internal/types"
)

// entryName identifies the entry buffer in the file graph when no path
// was supplied.
const entryName = "<input>"

// includeRef is one !include directive found in a file. Resolved is the
// canonical path of the referenced file, empty when it could not be
// loaded.
type includeRef struct {
	Path     string
	Span     types.Span
	Resolved string
}

type fileInfo struct {
	canonical string
	content   []byte
	refs      []includeRef
}

// Resolver expands include directives against a Source.
type Resolver struct {
	src    Source
	logger *types.Logger
	graph  *graph.Graph
	diags  []types.SpanDiagnostic
}

// NewResolver creates a Resolver. src may be nil, in which case any
// !include directive is reported as unresolvable. logger may be nil.
func NewResolver(src Source, logger *slog.Logger) *Resolver {
	var componentLogger *slog.Logger
	if logger != nil {
		componentLogger = logger.With(slog.String("component", "include"))
	}
	return &Resolver{
		src:    src,
		logger: &types.Logger{L: componentLogger},
		graph:  graph.New(),
	}
}

// Graph returns the file-inclusion graph built by the last Expand call.
func (r *Resolver) Graph() *graph.Graph {
	return r.graph
}

// Expand replaces every !include directive in content with the
// referenced file's contents, transitively, and returns the expanded
// buffer plus diagnostics. entry is the path of the content's file,
// used to anchor relative includes; it may be empty for in-memory
// input. Expansion always terminates; cycles are reported and the
// offending references expand to nothing.
func (r *Resolver) Expand(entry string, content []byte) ([]byte, []types.SpanDiagnostic) {
	r.graph = graph.New()
	r.diags = nil

	root := entry
	if root == "" {
		root = entryName
	}

	infos := map[string]*fileInfo{
		root: {canonical: root, content: content},
	}
	r.graph.AddNode(root)

	// Discovery: breadth-first over the include graph, loading each
	// file exactly once.
	queue := []string{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		info := infos[cur]
		info.refs = scanIncludes(info.content)

		for i := range info.refs {
			ref := &info.refs[i]
			if r.src == nil {
				r.includeError(cur == root, ref.Span,
					fmt.Sprintf("cannot load %q: %v", ref.Path, ErrNoSource))
				continue
			}

			from := ""
			if cur != root || entry != "" {
				from = cur
			}
			data, canonical, err := r.src.Open(from, ref.Path)
			if err != nil {
				r.includeError(cur == root, ref.Span,
					fmt.Sprintf("cannot load %q included from %s: %v", ref.Path, cur, err))
				continue
			}

			ref.Resolved = canonical
			r.graph.AddEdge(cur, canonical)
			if _, seen := infos[canonical]; !seen {
				infos[canonical] = &fileInfo{canonical: canonical, content: data}
				queue = append(queue, canonical)
				r.logger.Log(slog.LevelDebug, "include loaded",
					slog.String("path", canonical),
					slog.Int("bytes", len(data)))
			}
		}
	}

	for _, cycle := range r.graph.FindCycles() {
		r.diags = append(r.diags, types.SpanDiagnostic{
			Severity: types.SeverityError,
			Code:     types.DiagCircularInclude,
			Span:     types.Synthetic,
			Message:  fmt.Sprintf("circular include: %s", strings.Join(cycle, " -> ")),
		})
	}

	return r.splice(root, infos), r.diags
}

func (r *Resolver) includeError(inRoot bool, span types.Span, msg string) {
	if !inRoot {
		span = types.Synthetic
	}
	r.diags = append(r.diags, types.SpanDiagnostic{
		Severity: types.SeverityError,
		Code:     types.DiagIncludeNotFound,
		Span:     span,
		Message:  msg,
	})
}

// spliceFrame tracks one partially-emitted file during expansion.
type spliceFrame struct {
	info   *fileInfo
	offset int
	refIdx int
}

// splice emits the expanded buffer without recursion: a stack of
// frames, one per file being emitted, with a global set ensuring each
// file's content appears at most once.
func (r *Resolver) splice(root string, infos map[string]*fileInfo) []byte {
	var out bytes.Buffer
	spliced := map[string]bool{root: true}
	stack := []spliceFrame{{info: infos[root]}}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		content := f.info.content

		if f.refIdx >= len(f.refs()) {
			out.Write(content[f.offset:])
			if out.Len() > 0 && out.Bytes()[out.Len()-1] != '\n' {
				out.WriteByte('\n')
			}
			stack = stack[:len(stack)-1]
			continue
		}

		ref := f.refs()[f.refIdx]
		f.refIdx++
		out.Write(content[f.offset:clamp(int(ref.Span.Start), len(content))])
		f.offset = clamp(int(ref.Span.End), len(content))

		if ref.Resolved == "" || spliced[ref.Resolved] {
			continue
		}
		spliced[ref.Resolved] = true
		stack = append(stack, spliceFrame{info: infos[ref.Resolved]})
	}

	return out.Bytes()
}

func (f *spliceFrame) refs() []includeRef {
	return f.info.refs
}

func clamp(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}

// scanIncludes lexes a file and collects its !include directives. Each
// reference's span covers the directive and its path token, so splicing
// removes both. Directives with no path are left alone for the parser
// to diagnose.
func scanIncludes(content []byte) []includeRef {
	var refs []includeRef

	tokens, _ := lexer.New(content, nil).Tokenize()
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Kind != lexer.TokDirective {
			continue
		}
		name := string(content[tok.Span.Start:tok.Span.End])
		if !strings.EqualFold(name, "!include") {
			continue
		}
		if i+1 >= len(tokens) {
			continue
		}
		next := tokens[i+1]
		if next.Kind == lexer.TokEOF || lexer.HasNewlineBetween(content, tok.Span, next.Span) {
			continue
		}

		path := string(content[next.Span.Start:next.Span.End])
		if next.Kind == lexer.TokString {
			path = strings.TrimSuffix(strings.TrimPrefix(path, `"`), `"`)
		}
		if path == "" {
			continue
		}
		refs = append(refs, includeRef{
			Path: path,
			Span: types.NewSpan(tok.Span.Start, next.Span.End),
		})
		i++
	}
	return refs
}
