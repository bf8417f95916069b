package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/urlwash/urlwash/internal/types"
)

func decodeMod(t *testing.T, raw string) StringModification {
	t.Helper()
	var m StringModification
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v, want nil", raw, err)
	}
	return m
}

func TestStringModificationApply(t *testing.T) {
	tests := []struct {
		name  string
		mod   string
		input string
		want  string
	}{
		{"set", `{"Set": "new"}`, "old", "new"},
		{"append", `{"Append": "!"}`, "hi", "hi!"},
		{"prepend", `{"Prepend": "> "}`, "hi", "> hi"},
		{"replace first only", `{"Replace": {"find": "a", "replace": "b"}}`, "aaa", "baa"},
		{"replace all", `{"ReplaceAll": {"find": "a", "replace": "b"}}`, "aaa", "bbb"},
		{"lowercase", `"Lowercase"`, "MiXeD", "mixed"},
		{"uppercase", `"Uppercase"`, "MiXeD", "MIXED"},
		{"strip prefix", `{"StripPrefix": "www."}`, "www.example.com", "example.com"},
		{"strip maybe prefix absent", `{"StripMaybePrefix": "www."}`, "example.com", "example.com"},
		{"strip suffix", `{"StripSuffix": "/"}`, "path/", "path"},
		{"strip maybe suffix absent", `{"StripMaybeSuffix": "/"}`, "path", "path"},
		{"url decode", `"URLDecode"`, "a%20b", "a b"},
		{"url encode", `"URLEncode"`, "a b", "a+b"},
		{"base64 decode", `"Base64Decode"`, "aGk=", "hi"},
		{"base64 encode", `"Base64Encode"`, "hi", "aGk="},
		{"all sequences", `{"All": [{"StripMaybePrefix": "www."}, "Uppercase"]}`, "www.ex", "EX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeMod(t, tt.mod).Apply(tt.input)
			if err != nil {
				t.Fatalf("Apply(%q) error = %v, want nil", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Apply(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStringModificationStrictStrips(t *testing.T) {
	if _, err := decodeMod(t, `{"StripPrefix": "www."}`).Apply("example.com"); !errors.Is(err, types.ErrPrefixNotPresent) {
		t.Errorf("StripPrefix error = %v, want ErrPrefixNotPresent", err)
	}
	if _, err := decodeMod(t, `{"StripSuffix": "/"}`).Apply("path"); !errors.Is(err, types.ErrSuffixNotPresent) {
		t.Errorf("StripSuffix error = %v, want ErrSuffixNotPresent", err)
	}
}

func TestStringModificationAllStopsAtError(t *testing.T) {
	mod := decodeMod(t, `{"All": [{"StripPrefix": "x"}, "Uppercase"]}`)
	if _, err := mod.Apply("abc"); !errors.Is(err, types.ErrPrefixNotPresent) {
		t.Errorf("Apply() error = %v, want ErrPrefixNotPresent", err)
	}
}
