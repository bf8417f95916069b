package rules

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/urlwash/urlwash/internal/pattern"
	"github.com/urlwash/urlwash/internal/types"
)

// StringMatcher is a boolean expression tree tested against a haystack
// string. Matchers share the condition combinators and may consult job
// context through the view.
type StringMatcher interface {
	MatchedBy(haystack string, v *StateView) (bool, error)
}

// MatcherBox wraps a StringMatcher for JSON decoding of recursive fields.
type MatcherBox struct {
	StringMatcher
}

func (b *MatcherBox) UnmarshalJSON(data []byte) error {
	m, err := DecodeStringMatcher(data)
	if err != nil {
		return err
	}
	b.StringMatcher = m
	return nil
}

// MatchAlways matches everything.
type MatchAlways struct{}

func (MatchAlways) MatchedBy(string, *StateView) (bool, error) { return true, nil }

// MatchNever matches nothing.
type MatchNever struct{}

func (MatchNever) MatchedBy(string, *StateView) (bool, error) { return false, nil }

// MatchError unconditionally fails.
type MatchError struct{}

func (MatchError) MatchedBy(string, *StateView) (bool, error) {
	return false, types.ErrExplicit
}

// MatchDebug evaluates its child, traces the outcome, and re-raises it.
type MatchDebug struct {
	Matcher *MatcherBox
}

func (m MatchDebug) MatchedBy(haystack string, v *StateView) (bool, error) {
	matched, err := m.Matcher.MatchedBy(haystack, v)
	log.Debug().
		Str("node", fmt.Sprintf("%T", m.Matcher.StringMatcher)).
		Str("haystack", haystack).
		Bool("matched", matched).
		AnErr("result", err).
		Msg("string matcher trace")
	return matched, err
}

// MatchNot negates its child; the child's error passes through untouched.
type MatchNot struct {
	Matcher *MatcherBox
}

func (m MatchNot) MatchedBy(haystack string, v *StateView) (bool, error) {
	matched, err := m.Matcher.MatchedBy(haystack, v)
	if err != nil {
		return false, err
	}
	return !matched, nil
}

// MatchAll is short-circuiting conjunction; empty is true.
type MatchAll []*MatcherBox

func (m MatchAll) MatchedBy(haystack string, v *StateView) (bool, error) {
	for _, sub := range m {
		matched, err := sub.MatchedBy(haystack, v)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// MatchAny is short-circuiting disjunction; empty is false.
type MatchAny []*MatcherBox

func (m MatchAny) MatchedBy(haystack string, v *StateView) (bool, error) {
	for _, sub := range m {
		matched, err := sub.MatchedBy(haystack, v)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// MatchTreatErrorAsPass converts any child error into a match.
type MatchTreatErrorAsPass struct {
	Matcher *MatcherBox
}

func (m MatchTreatErrorAsPass) MatchedBy(haystack string, v *StateView) (bool, error) {
	matched, err := m.Matcher.MatchedBy(haystack, v)
	if err != nil {
		return true, nil
	}
	return matched, nil
}

// MatchTreatErrorAsFail converts any child error into a non-match.
type MatchTreatErrorAsFail struct {
	Matcher *MatcherBox
}

func (m MatchTreatErrorAsFail) MatchedBy(haystack string, v *StateView) (bool, error) {
	matched, err := m.Matcher.MatchedBy(haystack, v)
	if err != nil {
		return false, nil
	}
	return matched, nil
}

// MatchTryElse falls back to else when try errors; if both error the
// composite carries both.
type MatchTryElse struct {
	Try  *MatcherBox `json:"try"`
	Else *MatcherBox `json:"else"`
}

func (m MatchTryElse) MatchedBy(haystack string, v *StateView) (bool, error) {
	matched, tryErr := m.Try.MatchedBy(haystack, v)
	if tryErr == nil {
		return matched, nil
	}
	matched, elseErr := m.Else.MatchedBy(haystack, v)
	if elseErr == nil {
		return matched, nil
	}
	return false, &types.TryElseError{Try: tryErr, Else: elseErr}
}

// MatchFirstNotError returns the first non-erroring child's result. When
// every child errors, only the last error is returned.
type MatchFirstNotError []*MatcherBox

func (m MatchFirstNotError) MatchedBy(haystack string, v *StateView) (bool, error) {
	err := errFirstNotErrorEmpty
	for _, sub := range m {
		var matched bool
		matched, err = sub.MatchedBy(haystack, v)
		if err == nil {
			return matched, nil
		}
	}
	return false, err
}

// MatchInSet tests literal set membership.
type MatchInSet struct {
	Set types.StringSet
}

func (m MatchInSet) MatchedBy(haystack string, _ *StateView) (bool, error) {
	return m.Set.Contains(haystack), nil
}

// MatchLocation tests where a sourced needle occurs in the haystack.
type MatchLocation struct {
	Location StringLocation `json:"location"`
	Value    *SourceBox     `json:"value"`
}

func (m MatchLocation) MatchedBy(haystack string, v *StateView) (bool, error) {
	needle, err := m.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if needle == nil {
		return false, types.ErrStringSourceIsNone
	}
	return m.Location.SatisfiedBy(haystack, *needle)
}

// MatchRegex tests the haystack against a regular expression.
type MatchRegex struct {
	Regex *pattern.Regex
}

func (m MatchRegex) MatchedBy(haystack string, _ *StateView) (bool, error) {
	return m.Regex.Matches(haystack), nil
}

// MatchGlob tests the haystack against a glob.
type MatchGlob struct {
	Glob *pattern.Glob
}

func (m MatchGlob) MatchedBy(haystack string, _ *StateView) (bool, error) {
	return m.Glob.Matches(haystack), nil
}

// MatchModified applies a modification to the haystack before matching.
type MatchModified struct {
	Modification StringModification `json:"modification"`
	Matcher      *MatcherBox        `json:"matcher"`
}

func (m MatchModified) MatchedBy(haystack string, v *StateView) (bool, error) {
	modified, err := m.Modification.Apply(haystack)
	if err != nil {
		return false, err
	}
	return m.Matcher.MatchedBy(modified, v)
}

// MatchEquals compares the haystack to a sourced value.
type MatchEquals struct {
	Value *SourceBox
}

func (m MatchEquals) MatchedBy(haystack string, v *StateView) (bool, error) {
	value, err := m.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, types.ErrStringSourceIsNone
	}
	return haystack == *value, nil
}

// MatchLengthIs tests the haystack's byte length.
type MatchLengthIs struct {
	Length int
}

func (m MatchLengthIs) MatchedBy(haystack string, _ *StateView) (bool, error) {
	return len(haystack) == m.Length, nil
}

// MatchIsEmpty matches the empty string.
type MatchIsEmpty struct{}

func (MatchIsEmpty) MatchedBy(haystack string, _ *StateView) (bool, error) {
	return haystack == "", nil
}

var matcherUnitVariants = map[string]StringMatcher{
	"Always":  MatchAlways{},
	"Never":   MatchNever{},
	"Error":   MatchError{},
	"IsEmpty": MatchIsEmpty{},
}

// DecodeStringMatcher decodes a matcher expression. Payload-free variants
// accept a bare tag string.
func DecodeStringMatcher(data []byte) (StringMatcher, error) {
	if name, ok := asString(data); ok {
		if m, ok := matcherUnitVariants[name]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("unknown string matcher %q", name)
	}

	tag, payload, err := taggedVariant(data, "string matcher")
	if err != nil {
		return nil, err
	}
	if m, ok := matcherUnitVariants[tag]; ok {
		return m, nil
	}
	switch tag {
	case "Debug":
		var inner MatcherBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MatchDebug{Matcher: &inner}, nil
	case "Not":
		var inner MatcherBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MatchNot{Matcher: &inner}, nil
	case "All":
		var subs MatchAll
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "Any":
		var subs MatchAny
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "TreatErrorAsPass":
		var inner MatcherBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MatchTreatErrorAsPass{Matcher: &inner}, nil
	case "TreatErrorAsFail":
		var inner MatcherBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MatchTreatErrorAsFail{Matcher: &inner}, nil
	case "TryElse":
		var m MatchTryElse
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "FirstNotError":
		var subs MatchFirstNotError
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "InSet":
		var m MatchInSet
		if err := json.Unmarshal(payload, &m.Set); err != nil {
			return nil, err
		}
		return m, nil
	case "StringLocation":
		var m MatchLocation
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "Contains":
		var m struct {
			Where StringLocation `json:"where"`
			Value *SourceBox     `json:"value"`
		}
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return MatchLocation{Location: m.Where, Value: m.Value}, nil
	case "Regex":
		var r pattern.Regex
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, err
		}
		return MatchRegex{Regex: &r}, nil
	case "Glob":
		var g pattern.Glob
		if err := json.Unmarshal(payload, &g); err != nil {
			return nil, err
		}
		return MatchGlob{Glob: &g}, nil
	case "Modified":
		var m MatchModified
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "Equals":
		var value SourceBox
		if err := json.Unmarshal(payload, &value); err != nil {
			return nil, err
		}
		return MatchEquals{Value: &value}, nil
	case "LengthIs":
		var m MatchLengthIs
		if err := json.Unmarshal(payload, &m.Length); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown string matcher %q", tag)
}
