package rules

import (
	"encoding/json"
	"testing"

	"github.com/urlwash/urlwash/internal/urlutil"
)

// mustParse is for property-test closures that have no *testing.T.
func mustParse(raw string) *urlutil.URL {
	u, err := urlutil.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

func mustPart(t *testing.T, raw string) urlutil.Part {
	t.Helper()
	var p urlutil.Part
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v, want nil", raw, err)
	}
	return p
}

func mustURL(t *testing.T, raw string) *urlutil.URL {
	t.Helper()
	u, err := urlutil.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v, want nil", raw, err)
	}
	return u
}

func newTestState(t *testing.T, raw string) *State {
	t.Helper()
	return NewState(mustURL(t, raw), nil, nil, nil)
}

func decodeCondition(t *testing.T, raw string) Condition {
	t.Helper()
	c, err := DecodeCondition([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeCondition(%s) error = %v, want nil", raw, err)
	}
	return c
}

func decodeMapper(t *testing.T, raw string) Mapper {
	t.Helper()
	m, err := DecodeMapper([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeMapper(%s) error = %v, want nil", raw, err)
	}
	return m
}

func decodeSource(t *testing.T, raw string) StringSource {
	t.Helper()
	s, err := DecodeStringSource([]byte(raw))
	if err != nil {
		t.Fatalf("DecodeStringSource(%s) error = %v, want nil", raw, err)
	}
	return s
}
