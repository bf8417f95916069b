package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/urlwash/urlwash/internal/types"
)

// LocationKind enumerates the StringLocation variants.
type LocationKind int

const (
	LocAnywhere LocationKind = iota
	LocStart
	LocEnd
	LocStartsAt
	LocEndsAt
	LocRangeIs
	LocRangeHas
	LocAfter
	LocBefore
)

// StringLocation is the leaf predicate testing where a needle occurs
// within a haystack. Offsets are byte offsets and must land on rune
// boundaries of the haystack; anything else is ErrInvalidSlice, not a
// silent miss.
type StringLocation struct {
	Kind  LocationKind
	Start int
	End   int
}

// checkBoundary verifies that i is a valid slice boundary of s.
func checkBoundary(s string, i int) error {
	if i < 0 || i > len(s) {
		return types.ErrInvalidSlice
	}
	if i < len(s) && !utf8.RuneStart(s[i]) {
		return types.ErrInvalidSlice
	}
	return nil
}

func slice(s string, start, end int) (string, error) {
	if start > end {
		return "", types.ErrInvalidSlice
	}
	if err := checkBoundary(s, start); err != nil {
		return "", err
	}
	if err := checkBoundary(s, end); err != nil {
		return "", err
	}
	return s[start:end], nil
}

// SatisfiedBy reports whether needle occurs in haystack at the location.
func (l StringLocation) SatisfiedBy(haystack, needle string) (bool, error) {
	switch l.Kind {
	case LocAnywhere:
		return strings.Contains(haystack, needle), nil
	case LocStart:
		return strings.HasPrefix(haystack, needle), nil
	case LocEnd:
		return strings.HasSuffix(haystack, needle), nil
	case LocStartsAt:
		rest, err := slice(haystack, l.Start, len(haystack))
		if err != nil {
			return false, err
		}
		return strings.HasPrefix(rest, needle), nil
	case LocEndsAt:
		head, err := slice(haystack, 0, l.End)
		if err != nil {
			return false, err
		}
		return strings.HasSuffix(head, needle), nil
	case LocRangeIs:
		window, err := slice(haystack, l.Start, l.End)
		if err != nil {
			return false, err
		}
		return window == needle, nil
	case LocRangeHas:
		window, err := slice(haystack, l.Start, l.End)
		if err != nil {
			return false, err
		}
		return strings.Contains(window, needle), nil
	case LocAfter:
		rest, err := slice(haystack, l.Start, len(haystack))
		if err != nil {
			return false, err
		}
		return strings.Contains(rest, needle), nil
	case LocBefore:
		head, err := slice(haystack, 0, l.End)
		if err != nil {
			return false, err
		}
		return strings.Contains(head, needle), nil
	}
	return false, fmt.Errorf("unknown string location kind %d", int(l.Kind))
}

var locationUnitNames = map[string]LocationKind{
	"Anywhere": LocAnywhere,
	"Start":    LocStart,
	"End":      LocEnd,
}

// UnmarshalJSON accepts a bare name for offset-free variants, an integer
// payload for single-offset variants, and a {start, end} object for range
// variants.
func (l *StringLocation) UnmarshalJSON(data []byte) error {
	if name, ok := asString(data); ok {
		kind, ok := locationUnitNames[name]
		if !ok {
			return fmt.Errorf("unknown string location %q", name)
		}
		*l = StringLocation{Kind: kind}
		return nil
	}

	tag, payload, err := taggedVariant(data, "string location")
	if err != nil {
		return err
	}
	switch tag {
	case "StartsAt", "After":
		var offset int
		if err := json.Unmarshal(payload, &offset); err != nil {
			return err
		}
		kind := LocStartsAt
		if tag == "After" {
			kind = LocAfter
		}
		*l = StringLocation{Kind: kind, Start: offset}
		return nil
	case "EndsAt", "Before":
		var offset int
		if err := json.Unmarshal(payload, &offset); err != nil {
			return err
		}
		kind := LocEndsAt
		if tag == "Before" {
			kind = LocBefore
		}
		*l = StringLocation{Kind: kind, End: offset}
		return nil
	case "RangeIs", "RangeHas":
		var r struct {
			Start int `json:"start"`
			End   int `json:"end"`
		}
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		kind := LocRangeIs
		if tag == "RangeHas" {
			kind = LocRangeHas
		}
		*l = StringLocation{Kind: kind, Start: r.Start, End: r.End}
		return nil
	}
	return fmt.Errorf("unknown string location %q", tag)
}
