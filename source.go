package godsl

import (
	"io/fs"

	"github.com/structviz/godsl/internal/include"
)

// Source provides file content for !include directives. Open receives
// the canonical path of the including file and the reference as
// written, and returns the content plus a canonical path used for
// cycle detection.
type Source = include.Source

// ErrNoSource is returned by a Source with nothing to search.
var ErrNoSource = include.ErrNoSource

// Dir serves include files from a directory tree. References resolve
// relative to the including file's directory, falling back to root for
// the entry file.
func Dir(root string) Source {
	return include.Dir(root)
}

// FS serves include files from an fs.FS, e.g. an embed.FS. The name
// prefixes canonical paths so multiple FS sources stay distinct.
func FS(name string, fsys fs.FS) Source {
	return include.FS(name, fsys)
}

// Multi combines sources; the first one that resolves a reference
// wins.
func Multi(sources ...Source) Source {
	return include.Multi(sources...)
}
