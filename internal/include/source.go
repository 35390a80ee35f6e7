package include

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoSource is returned when a workspace uses !include but no include
// source was configured.
var ErrNoSource = errors.New("no include source configured")

// Source loads files referenced by !include directives. from is the
// canonical path of the including file (empty for the entry file);
// rel is the path as written in the directive. The canonical return
// value identifies the file for deduplication and cycle detection.
type Source interface {
	Open(from, rel string) (content []byte, canonical string, err error)
}

// --- Dir source ---

type dirSource struct {
	root string
}

// Dir creates a Source that resolves include paths relative to the
// including file, with the entry file anchored at root.
func Dir(root string) Source {
	return &dirSource{root: root}
}

func (s *dirSource) Open(from, rel string) ([]byte, string, error) {
	base := s.root
	if from != "" {
		base = filepath.Dir(from)
	}

	full := rel
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, rel)
	}
	canonical, err := filepath.Abs(filepath.Clean(full))
	if err != nil {
		canonical = filepath.Clean(full)
	}

	content, err := os.ReadFile(canonical)
	if err != nil {
		return nil, canonical, err
	}
	return content, canonical, nil
}

// --- FS source (embed.FS, fstest.MapFS) ---

type fsSource struct {
	name string
	fsys fs.FS
}

// FS creates a Source backed by an fs.FS. The name prefixes canonical
// paths so files from different filesystems never collide.
func FS(name string, fsys fs.FS) Source {
	return &fsSource{name: name, fsys: fsys}
}

func (s *fsSource) Open(from, rel string) ([]byte, string, error) {
	base := "."
	if from != "" {
		base = path.Dir(strings.TrimPrefix(from, s.name+":"))
	}

	full := path.Clean(path.Join(base, filepath.ToSlash(rel)))
	content, err := fs.ReadFile(s.fsys, full)
	if err != nil {
		return nil, s.name + ":" + full, err
	}
	return content, s.name + ":" + full, nil
}

// --- Multi source ---

type multiSource struct {
	sources []Source
}

// Multi creates a Source that tries each source in order and returns
// the first hit.
func Multi(sources ...Source) Source {
	return &multiSource{sources: sources}
}

func (s *multiSource) Open(from, rel string) ([]byte, string, error) {
	var lastCanonical string
	var lastErr error = fs.ErrNotExist
	if len(s.sources) == 0 {
		lastErr = ErrNoSource
	}
	for _, src := range s.sources {
		content, canonical, err := src.Open(from, rel)
		if err == nil {
			return content, canonical, nil
		}
		lastCanonical, lastErr = canonical, err
	}
	return nil, lastCanonical, lastErr
}
