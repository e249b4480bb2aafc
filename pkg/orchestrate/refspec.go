// Package orchestrate implements the thin policies named by the core's
// Orchestration component (§4.9): clone, fetch-one, fetch-some,
// fetch-all, and update-and-create, all built directly on top of the
// Fetch and Push drivers in pkg/transport/http. Nothing here talks to
// the wire itself; it only decides which refs to ask for, where to
// write them, and how to report the outcome.
package orchestrate

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Refspec is one src:dst mapping used to select and rename refs during
// fetch, in the same "+src:dst" shorthand git and the teacher's own
// remote config accept: a leading '+' allows a non-fast-forward update
// of dst, src may contain a single '*' wildcard mirrored into dst's own
// '*'.
type Refspec struct {
	Src   string
	Dst   string
	Force bool
}

// ParseRefspec parses the "+src:dst" / "src:dst" / "src" shorthand.
// A bare src with no ":" maps to itself.
func ParseRefspec(s string) (Refspec, error) {
	var rs Refspec
	if strings.HasPrefix(s, "+") {
		rs.Force = true
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 2)
	rs.Src = parts[0]
	if len(parts) == 2 {
		rs.Dst = parts[1]
	} else {
		rs.Dst = parts[0]
	}
	srcGlob := strings.Contains(rs.Src, "*")
	dstGlob := strings.Contains(rs.Dst, "*")
	if srcGlob != dstGlob {
		return Refspec{}, fmt.Errorf("orchestrate: both src and dst must be a pattern if one is: %q", s)
	}
	if _, err := glob.Compile(rs.Src); err != nil {
		return Refspec{}, fmt.Errorf("orchestrate: invalid refspec pattern %q: %w", rs.Src, err)
	}
	return rs, nil
}

// String renders the refspec back into "+src:dst" shorthand, the
// inverse of ParseRefspec.
func (r Refspec) String() string {
	s := ""
	if r.Force {
		s += "+"
	}
	s += r.Src
	if r.Dst != "" && r.Dst != r.Src {
		s += ":" + r.Dst
	}
	return s
}

// MarshalText implements encoding.TextMarshaler so a Refspec persists as
// a single shorthand string in YAML instead of a nested mapping.
func (r Refspec) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Refspec) UnmarshalText(text []byte) error {
	parsed, err := ParseRefspec(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// MustParseRefspec is ParseRefspec for callers that already know the
// shorthand is well formed, e.g. compiled-in defaults.
func MustParseRefspec(s string) Refspec {
	rs, err := ParseRefspec(s)
	if err != nil {
		panic(err)
	}
	return rs
}

// Matches reports whether name is selected by this refspec.
func (r Refspec) Matches(name string) bool {
	g, err := glob.Compile(r.Src)
	if err != nil {
		return false
	}
	return g.Match(name)
}

// DstForRef returns the local ref name name maps to under this refspec,
// and whether it matched at all. For a wildcard refspec, the portion of
// name matched by src's '*' is substituted into dst's own '*'.
func (r Refspec) DstForRef(name string) (string, bool) {
	if !strings.Contains(r.Src, "*") {
		if name != r.Src {
			return "", false
		}
		return r.Dst, true
	}
	prefix, suffix, _ := strings.Cut(r.Src, "*")
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	mid := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	if len(prefix)+len(suffix) > len(name) {
		return "", false
	}
	dstPrefix, dstSuffix, _ := strings.Cut(r.Dst, "*")
	return dstPrefix + mid + dstSuffix, true
}
