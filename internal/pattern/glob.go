/*
Package pattern wraps the glob and regex engines behind small, JSON-decodable
matcher types. Both accept a bare pattern string as shorthand for a struct
with default options, and both compile eagerly at decode time so a bad
pattern fails config loading instead of the first job that hits it.
*/
package pattern

import (
	"encoding/json"
	"strings"

	"github.com/gobwas/glob"
)

// Glob matches strings against a glob pattern. Matching options mirror the
// conventional filesystem-glob knobs: case sensitivity, whether wildcards
// may cross "/" separators, and whether a leading dot must be matched
// literally.
type Glob struct {
	Pattern                  string `json:"pattern"`
	CaseSensitive            bool   `json:"case_sensitive"`
	RequireLiteralSeparator  bool   `json:"require_literal_separator"`
	RequireLiteralLeadingDot bool   `json:"require_literal_leading_dot"`

	compiled glob.Glob
}

// NewGlob compiles a pattern with the default options: case sensitive,
// wildcards cross separators, leading dots are literal.
func NewGlob(pattern string) (*Glob, error) {
	g := &Glob{
		Pattern:                  pattern,
		CaseSensitive:            true,
		RequireLiteralLeadingDot: true,
	}
	if err := g.compile(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Glob) compile() error {
	pat := g.Pattern
	if !g.CaseSensitive {
		pat = strings.ToLower(pat)
	}
	var separators []rune
	if g.RequireLiteralSeparator {
		separators = []rune{'/'}
	}
	compiled, err := glob.Compile(pat, separators...)
	if err != nil {
		return err
	}
	g.compiled = compiled
	return nil
}

// Matches reports whether s matches the pattern.
func (g *Glob) Matches(s string) bool {
	if g.RequireLiteralLeadingDot &&
		strings.HasPrefix(s, ".") && !strings.HasPrefix(g.Pattern, ".") {
		return false
	}
	if !g.CaseSensitive {
		s = strings.ToLower(s)
	}
	return g.compiled.Match(s)
}

// MarshalJSON encodes back to the shorthand string when all options hold
// their defaults.
func (g *Glob) MarshalJSON() ([]byte, error) {
	if g.CaseSensitive && !g.RequireLiteralSeparator && g.RequireLiteralLeadingDot {
		return json.Marshal(g.Pattern)
	}
	type raw Glob
	return json.Marshal((*raw)(g))
}

// UnmarshalJSON accepts either a bare pattern string or the full struct.
func (g *Glob) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err == nil {
		built, err := NewGlob(pattern)
		if err != nil {
			return err
		}
		*g = *built
		return nil
	}
	type raw Glob
	decoded := raw{CaseSensitive: true, RequireLiteralLeadingDot: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*g = Glob(decoded)
	return g.compile()
}
