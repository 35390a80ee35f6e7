package resolver

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/structviz/godsl/internal/types"
	"github.com/structviz/godsl/workspace"
)

// applyOverrides consumes dotted keys from the workspace properties
// bag and applies them to individual elements and relationships:
//
//	element.<id>.<prop>            = value
//	relationship.<src>.<dst>.<prop> = value
//
// Applied keys are removed from the bag; everything else stays as a
// plain workspace property. Keys are processed in sorted order so
// diagnostics are deterministic.
func (r *resolver) applyOverrides() {
	if len(r.out.Properties) == 0 {
		return
	}
	keys := make([]string, 0, len(r.out.Properties))
	for k := range r.out.Properties {
		if strings.HasPrefix(k, "element.") || strings.HasPrefix(k, "relationship.") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if r.applyOverride(k, r.out.Properties[k]) {
			delete(r.out.Properties, k)
		}
	}
	if len(keys) > 0 {
		r.logger.Log(slog.LevelDebug, "applied property overrides", slog.Int("count", len(keys)))
	}
}

// applyOverride reports true when the key was consumed, whether or not
// it applied cleanly. Malformed override keys stay in the bag so
// callers can still see them.
func (r *resolver) applyOverride(key, value string) bool {
	parts := strings.Split(key, ".")
	switch parts[0] {
	case "element":
		if len(parts) < 3 {
			r.badPropertyKey(key, "want element.<id>.<prop>")
			return false
		}
		id := parts[1]
		prop := strings.Join(parts[2:], ".")
		e := r.resolveAny(id)
		if e == nil {
			r.report(types.SeverityWarning, types.DiagUnresolvedReference,
				fmt.Sprintf("property override %q references unknown element %q", key, id),
				types.Synthetic)
			return true
		}
		setProperty(&e.Properties, prop, value)
		return true
	case "relationship":
		if len(parts) < 4 {
			r.badPropertyKey(key, "want relationship.<source>.<destination>.<prop>")
			return false
		}
		src, dst := parts[1], parts[2]
		prop := strings.Join(parts[3:], ".")
		rel := r.findRelationship(src, dst)
		if rel == nil {
			r.report(types.SeverityWarning, types.DiagUnresolvedReference,
				fmt.Sprintf("property override %q references unknown relationship %s -> %s", key, src, dst),
				types.Synthetic)
			return true
		}
		setProperty(&rel.Properties, prop, value)
		return true
	}
	return false
}

func (r *resolver) findRelationship(src, dst string) *workspace.Relationship {
	srcEl := r.resolveAny(src)
	dstEl := r.resolveAny(dst)
	if srcEl == nil || dstEl == nil {
		return nil
	}
	for _, rel := range r.out.Relationships {
		if rel.SourceID == srcEl.ID && rel.DestinationID == dstEl.ID {
			return rel
		}
	}
	return nil
}

func (r *resolver) badPropertyKey(key, want string) {
	r.report(types.SeverityWarning, types.DiagBadPropertyKey,
		fmt.Sprintf("malformed property override key %q (%s)", key, want),
		types.Synthetic)
}

func setProperty(m *map[string]string, key, value string) {
	if *m == nil {
		*m = make(map[string]string)
	}
	(*m)[key] = value
}
