package values

import (
	"fmt"
	"strings"
)

// Path addresses one value in a document tree as a sequence of map keys and
// decimal list indices, e.g. ["services", "api", "name"] for services.api.name.
type Path []string

// ParsePath splits a dotted path string into its segments. Empty segments
// (leading, trailing or doubled dots) are rejected.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("empty path")
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", s)
		}
	}
	return Path(segs), nil
}

// String returns the dotted form of the path.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Child returns a new path with seg appended. The receiver is not modified.
func (p Path) Child(seg string) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, seg)
}

// Equal reports whether two paths address the same location.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
