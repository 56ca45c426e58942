// Package path addresses values inside nested documents. A Path is a sequence
// of map-key and list-index segments, e.g. scenes.<id>.arguments.providers[0].
//
// Get never fails loudly: a missing location simply reports false. Set and
// Delete are copy-on-write: the input document is never mutated, every
// container along the path is shallow-copied and all sibling subtrees are
// shared with the input.
package path

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotFound is returned when an intermediate segment does not exist.
	ErrNotFound = errors.New("path not found")
	// ErrTypeMismatch is returned when a value cannot be stored at the target.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrSyntax is returned by Parse for malformed path strings.
	ErrSyntax = errors.New("invalid path syntax")
)

// Segment is a single step of a Path. It is either a map key or a list index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key creates a map-key segment.
func Key(k string) Segment { return Segment{Key: k} }

// Index creates a list-index segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// key returns the segment as a map key. Index segments are formatted in base 10.
func (s Segment) key() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// index returns the segment as a list index. Key segments are accepted when
// they hold a decimal integer, so "providers.0" and "providers[0]" are equal.
func (s Segment) index() (int, bool) {
	if s.IsIndex {
		return s.Index, true
	}
	i, err := strconv.Atoi(s.Key)
	if err != nil {
		return 0, false
	}
	return i, true
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path is an ordered list of segments from the document root to a value.
type Path []Segment

// Of builds a Path from strings (keys), ints (indices) and Segments. Any
// other value is formatted with fmt and used as a key.
func Of(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch v := part.(type) {
		case Segment:
			p = append(p, v)
		case string:
			p = append(p, Key(v))
		case int:
			p = append(p, Index(v))
		default:
			p = append(p, Key(fmt.Sprint(v)))
		}
	}
	return p
}

// Parse reads a dotted path with optional bracket indices:
//
//	scenes.s1.arguments.providers[0].arguments.urls[2]
//
// An empty string is the root path.
func Parse(s string) (Path, error) {
	var p Path
	if s == "" {
		return p, nil
	}

	rest := s
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			if len(p) == 0 {
				return nil, fmt.Errorf("%w: %q starts with a separator", ErrSyntax, s)
			}
			rest = rest[1:]
			if rest == "" || rest[0] == '.' || rest[0] == '[' {
				return nil, fmt.Errorf("%w: empty segment in %q", ErrSyntax, s)
			}
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated index in %q", ErrSyntax, s)
			}
			i, err := strconv.Atoi(rest[1:end])
			if err != nil || i < 0 {
				return nil, fmt.Errorf("%w: bad index %q in %q", ErrSyntax, rest[1:end], s)
			}
			p = append(p, Index(i))
			rest = rest[end+1:]
			if rest != "" && rest[0] != '.' && rest[0] != '[' {
				return nil, fmt.Errorf("%w: unexpected %q after index in %q", ErrSyntax, rest[0], s)
			}
		default:
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			p = append(p, Key(rest[:end]))
			rest = rest[end:]
		}
	}
	return p, nil
}

// MustParse is like Parse but panics on error. Intended for constant paths.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Append returns a new Path extended with parts (see Of). The receiver is
// never modified.
func (p Path) Append(parts ...any) Path {
	out := make(Path, 0, len(p)+len(parts))
	out = append(out, p...)
	return append(out, Of(parts...)...)
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if i > 0 && !s.IsIndex {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Error describes a failed Set or Delete. At is the position of the segment
// that could not be resolved.
type Error struct {
	Op   string
	Path Path
	At   int
	Err  error
}

func (e *Error) Error() string {
	if e.At >= 0 && e.At < len(e.Path) {
		return fmt.Sprintf("%s %s: %v at %q", e.Op, e.Path, e.Err, e.Path[e.At].String())
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
