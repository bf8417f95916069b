package urlutil

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/urlwash/urlwash/internal/types"
)

func decodePart(t *testing.T, raw string) Part {
	t.Helper()
	var p Part
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v, want nil", raw, err)
	}
	return p
}

func TestPartDecode(t *testing.T) {
	tests := []struct {
		raw  string
		want Part
	}{
		{`"Whole"`, Part{Kind: PartWhole}},
		{`"Host"`, Part{Kind: PartHost}},
		{`"Subdomain"`, Part{Kind: PartSubdomain}},
		{`"Fragment"`, Part{Kind: PartFragment}},
		{`{"PathSegment": 2}`, PathSegment(2)},
		{`{"PathSegment": -1}`, PathSegment(-1)},
		{`{"QueryParam": "utm_source"}`, QueryParam("utm_source")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := decodePart(t, tt.raw); got != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPartDecodeErrors(t *testing.T) {
	for _, raw := range []string{
		`"PathSegment"`,
		`"Bogus"`,
		`{"Bogus": 1}`,
		`{"PathSegment": 1, "QueryParam": "x"}`,
		`{"PathSegment": "one"}`,
	} {
		var p Part
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			t.Errorf("Unmarshal(%s) error = nil, want failure", raw)
		}
	}
}

func TestPartRoundTrip(t *testing.T) {
	for _, p := range []Part{
		{Kind: PartScheme},
		{Kind: PartRegDomain},
		PathSegment(-2),
		QueryParam("id"),
	} {
		data, err := json.Marshal(p)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v, want nil", p, err)
		}
		var got Part
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v, want nil", data, err)
		}
		if got != p {
			t.Errorf("round trip %v = %v", p, got)
		}
	}
}

func TestPartGet(t *testing.T) {
	u := mustParse(t, "https://alice:pw@www.example.com:8080/a/b?x=1&y=2#top")

	tests := []struct {
		part Part
		want string
		ok   bool
	}{
		{Part{Kind: PartWhole}, "https://alice:pw@www.example.com:8080/a/b?x=1&y=2#top", true},
		{Part{Kind: PartScheme}, "https", true},
		{Part{Kind: PartUsername}, "alice", true},
		{Part{Kind: PartPassword}, "pw", true},
		{Part{Kind: PartHost}, "www.example.com", true},
		{Part{Kind: PartSubdomain}, "www", true},
		{Part{Kind: PartDomain}, "www.example.com", true},
		{Part{Kind: PartRegDomain}, "example.com", true},
		{Part{Kind: PartDomainSuffix}, "com", true},
		{Part{Kind: PartPort}, "8080", true},
		{Part{Kind: PartPath}, "/a/b", true},
		{PathSegment(0), "a", true},
		{PathSegment(-1), "b", true},
		{PathSegment(5), "", false},
		{Part{Kind: PartQuery}, "x=1&y=2", true},
		{QueryParam("y"), "2", true},
		{QueryParam("z"), "", false},
		{Part{Kind: PartFragment}, "top", true},
	}
	for _, tt := range tests {
		t.Run(tt.part.String(), func(t *testing.T) {
			got, ok := tt.part.Get(u)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Get() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestPartSet(t *testing.T) {
	some := func(s string) *string { return &s }

	tests := []struct {
		name  string
		start string
		part  Part
		value *string
		want  string
	}{
		{"whole", "https://example.com/", Part{Kind: PartWhole}, some("http://other.org/x"), "http://other.org/x"},
		{"scheme", "https://example.com/", Part{Kind: PartScheme}, some("http"), "http://example.com/"},
		{"host keeps port", "https://example.com:8080/", Part{Kind: PartHost}, some("other.org"), "https://other.org:8080/"},
		{"subdomain set", "https://example.com/", Part{Kind: PartSubdomain}, some("www"), "https://www.example.com/"},
		{"subdomain replace", "https://m.example.com/", Part{Kind: PartSubdomain}, some("www"), "https://www.example.com/"},
		{"subdomain remove", "https://www.example.com/", Part{Kind: PartSubdomain}, nil, "https://example.com/"},
		{"port set", "https://example.com/", Part{Kind: PartPort}, some("8443"), "https://example.com:8443/"},
		{"port remove", "https://example.com:8443/", Part{Kind: PartPort}, nil, "https://example.com/"},
		{"path", "https://example.com/a", Part{Kind: PartPath}, some("/b/c"), "https://example.com/b/c"},
		{"path segment set", "https://example.com/a/b/c", PathSegment(1), some("x"), "https://example.com/a/x/c"},
		{"path segment negative", "https://example.com/a/b/c", PathSegment(-1), some("x"), "https://example.com/a/b/x"},
		{"path segment remove", "https://example.com/a/b/c", PathSegment(1), nil, "https://example.com/a/c"},
		{"query set", "https://example.com/?a=1", Part{Kind: PartQuery}, some("b=2"), "https://example.com/?b=2"},
		{"query remove", "https://example.com/?a=1", Part{Kind: PartQuery}, nil, "https://example.com/"},
		{"query param set", "https://example.com/?a=1", QueryParam("b"), some("2"), "https://example.com/?a=1&b=2"},
		{"query param remove", "https://example.com/?a=1&b=2", QueryParam("a"), nil, "https://example.com/?b=2"},
		{"fragment set", "https://example.com/", Part{Kind: PartFragment}, some("top"), "https://example.com/#top"},
		{"fragment remove", "https://example.com/#top", Part{Kind: PartFragment}, nil, "https://example.com/"},
		{"username set", "https://example.com/", Part{Kind: PartUsername}, some("alice"), "https://alice@example.com/"},
		{"username remove drops userinfo", "https://alice:pw@example.com/", Part{Kind: PartUsername}, nil, "https://example.com/"},
		{"password set", "https://alice@example.com/", Part{Kind: PartPassword}, some("pw"), "https://alice:pw@example.com/"},
		{"password remove keeps user", "https://alice:pw@example.com/", Part{Kind: PartPassword}, nil, "https://alice@example.com/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustParse(t, tt.start)
			if err := tt.part.Set(u, tt.value); err != nil {
				t.Fatalf("Set() error = %v, want nil", err)
			}
			if got := u.String(); got != tt.want {
				t.Errorf("Set() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartSetErrors(t *testing.T) {
	tests := []struct {
		name  string
		start string
		part  Part
		value *string
		want  error
	}{
		{"whole remove", "https://example.com/", Part{Kind: PartWhole}, nil, types.ErrPartReadOnly},
		{"scheme remove", "https://example.com/", Part{Kind: PartScheme}, nil, types.ErrPartReadOnly},
		{"host remove", "https://example.com/", Part{Kind: PartHost}, nil, types.ErrPartReadOnly},
		{"path remove", "https://example.com/", Part{Kind: PartPath}, nil, types.ErrPartReadOnly},
		{"reg domain", "https://example.com/", Part{Kind: PartRegDomain}, nil, types.ErrPartReadOnly},
		{"domain suffix", "https://example.com/", Part{Kind: PartDomainSuffix}, nil, types.ErrPartReadOnly},
		{"subdomain without reg domain", "https://127.0.0.1/", Part{Kind: PartSubdomain}, nil, types.ErrPartIsNone},
		{"segment out of range", "https://example.com/a", PathSegment(5), nil, types.ErrSegmentRange},
		{"segment on opaque", "mailto:someone@example.com", PathSegment(0), nil, types.ErrPartIsNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := mustParse(t, tt.start)
			if err := tt.part.Set(u, tt.value); !errors.Is(err, tt.want) {
				t.Errorf("Set() error = %v, want %v", err, tt.want)
			}
		})
	}
}
