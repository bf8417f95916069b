package pattern

import (
	"encoding/json"
	"regexp"
)

// Regex matches strings against a regular expression. Flags map onto the
// engine's inline (?ims) flags.
type Regex struct {
	Pattern           string `json:"pattern"`
	CaseInsensitive   bool   `json:"case_insensitive"`
	MultiLine         bool   `json:"multi_line"`
	DotMatchesNewline bool   `json:"dot_matches_newline"`

	compiled *regexp.Regexp
}

// NewRegex compiles a pattern with all flags off.
func NewRegex(pattern string) (*Regex, error) {
	r := &Regex{Pattern: pattern}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Regex) compile() error {
	flags := ""
	if r.CaseInsensitive {
		flags += "i"
	}
	if r.MultiLine {
		flags += "m"
	}
	if r.DotMatchesNewline {
		flags += "s"
	}
	pat := r.Pattern
	if flags != "" {
		pat = "(?" + flags + ")" + pat
	}
	compiled, err := regexp.Compile(pat)
	if err != nil {
		return err
	}
	r.compiled = compiled
	return nil
}

// Matches reports whether s contains a match.
func (r *Regex) Matches(s string) bool {
	return r.compiled.MatchString(s)
}

// ReplaceAll substitutes every match with the replacement, which may use
// $1-style group references.
func (r *Regex) ReplaceAll(s, replacement string) string {
	return r.compiled.ReplaceAllString(s, replacement)
}

// Find returns the first match, or false when there is none.
func (r *Regex) Find(s string) (string, bool) {
	loc := r.compiled.FindStringIndex(s)
	if loc == nil {
		return "", false
	}
	return s[loc[0]:loc[1]], true
}

// MarshalJSON encodes back to the shorthand string when all flags are off.
func (r *Regex) MarshalJSON() ([]byte, error) {
	if !r.CaseInsensitive && !r.MultiLine && !r.DotMatchesNewline {
		return json.Marshal(r.Pattern)
	}
	type raw Regex
	return json.Marshal((*raw)(r))
}

// UnmarshalJSON accepts either a bare pattern string or the full struct.
func (r *Regex) UnmarshalJSON(data []byte) error {
	var pattern string
	if err := json.Unmarshal(data, &pattern); err == nil {
		built, err := NewRegex(pattern)
		if err != nil {
			return err
		}
		*r = *built
		return nil
	}
	type raw Regex
	var decoded raw
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Regex(decoded)
	return r.compile()
}
