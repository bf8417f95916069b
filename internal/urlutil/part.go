package urlutil

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"

	"github.com/urlwash/urlwash/internal/types"
)

// PartKind enumerates the addressable parts of a URL.
type PartKind int

const (
	PartWhole PartKind = iota
	PartScheme
	PartUsername
	PartPassword
	PartHost
	PartSubdomain
	PartDomain
	PartRegDomain
	PartDomainSuffix
	PartPort
	PartPath
	PartPathSegment
	PartQuery
	PartQueryParam
	PartFragment
)

var partKindNames = map[PartKind]string{
	PartWhole:        "Whole",
	PartScheme:       "Scheme",
	PartUsername:     "Username",
	PartPassword:     "Password",
	PartHost:         "Host",
	PartSubdomain:    "Subdomain",
	PartDomain:       "Domain",
	PartRegDomain:    "RegDomain",
	PartDomainSuffix: "DomainSuffix",
	PartPort:         "Port",
	PartPath:         "Path",
	PartQuery:        "Query",
	PartFragment:     "Fragment",
}

// Part names one part of a URL. Simple parts are addressed by kind alone;
// PathSegment carries an index (negative counts from the end) and
// QueryParam carries a parameter name.
type Part struct {
	Kind  PartKind
	Index int    // PathSegment only
	Name  string // QueryParam only
}

// PathSegment addresses the path segment at index i.
func PathSegment(i int) Part {
	return Part{Kind: PartPathSegment, Index: i}
}

// QueryParam addresses the query parameter with the given name.
func QueryParam(name string) Part {
	return Part{Kind: PartQueryParam, Name: name}
}

func (p Part) String() string {
	switch p.Kind {
	case PartPathSegment:
		return fmt.Sprintf("PathSegment(%d)", p.Index)
	case PartQueryParam:
		return fmt.Sprintf("QueryParam(%s)", p.Name)
	}
	return partKindNames[p.Kind]
}

// negIndex resolves a possibly negative index against length n. The second
// return is false when the resolved index is out of range.
func negIndex(i, n int) (int, bool) {
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}

// Get returns the part's value, or false when the URL does not have it.
// Getting never fails; absence is the only negative outcome.
func (p Part) Get(u *URL) (string, bool) {
	switch p.Kind {
	case PartWhole:
		return u.String(), true
	case PartScheme:
		return u.Scheme(), true
	case PartUsername:
		return u.Username(), true
	case PartPassword:
		return u.Password()
	case PartHost:
		return u.Hostname()
	case PartSubdomain:
		return u.Subdomain()
	case PartDomain:
		return u.Domain()
	case PartRegDomain:
		return u.RegDomain()
	case PartDomainSuffix:
		return u.DomainSuffix()
	case PartPort:
		return u.Port()
	case PartPath:
		return u.Path(), true
	case PartPathSegment:
		segments, ok := u.PathSegments()
		if !ok {
			return "", false
		}
		i, ok := negIndex(p.Index, len(segments))
		if !ok {
			return "", false
		}
		return segments[i], true
	case PartQuery:
		return u.Query()
	case PartQueryParam:
		return u.QueryParam(p.Name)
	case PartFragment:
		return u.Fragment()
	}
	return "", false
}

// Set writes the part's value. A nil value removes the part where removal
// is meaningful; parts that cannot be removed or rewritten return
// ErrPartReadOnly.
func (p Part) Set(u *URL, value *string) error {
	switch p.Kind {
	case PartWhole:
		if value == nil {
			return types.ErrPartReadOnly
		}
		parsed, err := Parse(*value)
		if err != nil {
			return err
		}
		u.CopyFrom(parsed)
		return nil
	case PartScheme:
		if value == nil {
			return types.ErrPartReadOnly
		}
		u.u.Scheme = *value
		return nil
	case PartUsername:
		pw, hasPW := u.Password()
		switch {
		case value == nil:
			u.u.User = nil
		case hasPW:
			u.u.User = url.UserPassword(*value, pw)
		default:
			u.u.User = url.User(*value)
		}
		return nil
	case PartPassword:
		name := u.Username()
		if value == nil {
			u.u.User = url.User(name)
		} else {
			u.u.User = url.UserPassword(name, *value)
		}
		return nil
	case PartHost, PartDomain:
		if value == nil {
			return types.ErrPartReadOnly
		}
		u.setHostname(*value)
		return nil
	case PartSubdomain:
		reg, ok := u.RegDomain()
		if !ok {
			return types.ErrPartIsNone
		}
		if value == nil {
			u.setHostname(reg)
		} else {
			u.setHostname(*value + "." + reg)
		}
		return nil
	case PartRegDomain, PartDomainSuffix:
		return types.ErrPartReadOnly
	case PartPort:
		host := u.u.Hostname()
		if value == nil {
			u.u.Host = host
		} else {
			u.u.Host = host + ":" + *value
		}
		return nil
	case PartPath:
		if value == nil {
			return types.ErrPartReadOnly
		}
		u.u.Path = *value
		u.u.RawPath = ""
		return nil
	case PartPathSegment:
		segments, ok := u.PathSegments()
		if !ok {
			return types.ErrPartIsNone
		}
		i, ok := negIndex(p.Index, len(segments))
		if !ok {
			return types.ErrSegmentRange
		}
		if value == nil {
			segments = slices.Delete(segments, i, i+1)
		} else {
			segments[i] = *value
		}
		u.SetPathSegments(segments)
		return nil
	case PartQuery:
		if value == nil {
			u.SetQuery("")
		} else {
			u.SetQuery(*value)
		}
		return nil
	case PartQueryParam:
		if value == nil {
			u.RemoveQueryParam(p.Name)
		} else {
			u.SetQueryParam(p.Name, *value)
		}
		return nil
	case PartFragment:
		if value == nil {
			u.u.Fragment = ""
		} else {
			u.u.Fragment = *value
		}
		return nil
	}
	return fmt.Errorf("unknown url part %v", p.Kind)
}

// MarshalJSON encodes simple parts as their bare name and parametrized
// parts as one-key objects.
func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PartPathSegment:
		return json.Marshal(map[string]int{"PathSegment": p.Index})
	case PartQueryParam:
		return json.Marshal(map[string]string{"QueryParam": p.Name})
	}
	name, ok := partKindNames[p.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown url part %v", p.Kind)
	}
	return json.Marshal(name)
}

// UnmarshalJSON accepts either a bare part name or a one-key object for
// the parametrized parts.
func (p *Part) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for kind, n := range partKindNames {
			if n == name {
				*p = Part{Kind: kind}
				return nil
			}
		}
		return fmt.Errorf("unknown url part %q", name)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if len(obj) != 1 {
		return fmt.Errorf("url part object must have exactly one key, got %d", len(obj))
	}
	for tag, payload := range obj {
		switch tag {
		case "PathSegment":
			var i int
			if err := json.Unmarshal(payload, &i); err != nil {
				return err
			}
			*p = PathSegment(i)
			return nil
		case "QueryParam":
			var n string
			if err := json.Unmarshal(payload, &n); err != nil {
				return err
			}
			*p = QueryParam(n)
			return nil
		default:
			return fmt.Errorf("unknown url part %q", tag)
		}
	}
	return nil
}

func (u *URL) setHostname(host string) {
	if port, ok := u.Port(); ok {
		u.u.Host = host + ":" + port
	} else {
		u.u.Host = host
	}
}
