package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/urlwash/urlwash/internal/types"
)

func decodeLocation(t *testing.T, raw string) StringLocation {
	t.Helper()
	var l StringLocation
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v, want nil", raw, err)
	}
	return l
}

func TestStringLocationSatisfiedBy(t *testing.T) {
	tests := []struct {
		name     string
		location string
		haystack string
		needle   string
		want     bool
	}{
		{"anywhere hit", `"Anywhere"`, "abcdef", "cd", true},
		{"anywhere miss", `"Anywhere"`, "abcdef", "xy", false},
		{"start", `"Start"`, "abcdef", "ab", true},
		{"start miss", `"Start"`, "abcdef", "cd", false},
		{"end", `"End"`, "abcdef", "ef", true},
		{"starts at", `{"StartsAt": 2}`, "abcdef", "cd", true},
		{"starts at miss", `{"StartsAt": 3}`, "abcdef", "cd", false},
		{"ends at", `{"EndsAt": 4}`, "abcdef", "cd", true},
		{"range is", `{"RangeIs": {"start": 2, "end": 4}}`, "abcdef", "cd", true},
		{"range is partial", `{"RangeIs": {"start": 2, "end": 5}}`, "abcdef", "cd", false},
		{"range has", `{"RangeHas": {"start": 1, "end": 5}}`, "abcdef", "cd", true},
		{"after", `{"After": 1}`, "abcdef", "cd", true},
		{"after miss", `{"After": 3}`, "abcdef", "cd", false},
		{"before", `{"Before": 4}`, "abcdef", "cd", true},
		{"before miss", `{"Before": 3}`, "abcdef", "cd", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeLocation(t, tt.location).SatisfiedBy(tt.haystack, tt.needle)
			if err != nil {
				t.Fatalf("SatisfiedBy() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("SatisfiedBy(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
			}
		})
	}
}

func TestStringLocationInvalidSlice(t *testing.T) {
	tests := []struct {
		name     string
		location string
		haystack string
	}{
		{"end past length", `{"RangeIs": {"start": 0, "end": 10}}`, "abc"},
		{"negative start", `{"RangeIs": {"start": -1, "end": 2}}`, "abc"},
		{"inverted range", `{"RangeIs": {"start": 3, "end": 1}}`, "abc"},
		{"start splits rune", `{"RangeIs": {"start": 2, "end": 4}}`, "héllo"},
		{"end splits rune", `{"RangeIs": {"start": 0, "end": 2}}`, "héllo"},
		{"starts at out of range", `{"StartsAt": 9}`, "abc"},
		{"ends at splits rune", `{"EndsAt": 2}`, "héllo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeLocation(t, tt.location).SatisfiedBy(tt.haystack, "x")
			if !errors.Is(err, types.ErrInvalidSlice) {
				t.Errorf("SatisfiedBy() error = %v, want ErrInvalidSlice", err)
			}
		})
	}
}
