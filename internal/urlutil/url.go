// Package urlutil wraps net/url with the part-level accessors the rule
// engine evaluates against. Parsing and normalization stay inside this
// package; callers treat a URL as an opaque bundle of named parts.
package urlutil

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// URL is a parsed, mutable URL. One job exclusively owns its URL for the
// duration of the job; the zero value is not usable, construct via Parse.
type URL struct {
	u *url.URL
}

// Parse parses an absolute URL. A hierarchical URL with a host and an
// empty path is normalized to path "/", so "https://example.com" and
// "https://example.com/" parse identically.
func Parse(raw string) (*URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Opaque == "" && u.Host != "" && u.Path == "" {
		u.Path = "/"
	}
	return &URL{u: u}, nil
}

// String returns the serialized URL.
func (u *URL) String() string {
	return u.u.String()
}

// Clone returns a deep copy. Rules apply against a clone so a mid-list
// failure leaves the caller's URL untouched.
func (u *URL) Clone() *URL {
	cp := *u.u
	if u.u.User != nil {
		if pw, ok := u.u.User.Password(); ok {
			cp.User = url.UserPassword(u.u.User.Username(), pw)
		} else {
			cp.User = url.User(u.u.User.Username())
		}
	}
	return &URL{u: &cp}
}

// CopyFrom overwrites u with the contents of other.
func (u *URL) CopyFrom(other *URL) {
	*u.u = *other.Clone().u
}

// Hostname returns the host without port, or false when the URL has none.
func (u *URL) Hostname() (string, bool) {
	h := u.u.Hostname()
	return h, h != ""
}

// Domain returns the host when it is a domain name rather than an IP
// address.
func (u *URL) Domain() (string, bool) {
	h, ok := u.Hostname()
	if !ok || net.ParseIP(strings.Trim(h, "[]")) != nil {
		return "", false
	}
	return h, true
}

// RegDomain returns the registrable domain (eTLD+1) of the host.
func (u *URL) RegDomain() (string, bool) {
	d, ok := u.Domain()
	if !ok {
		return "", false
	}
	reg, err := publicsuffix.EffectiveTLDPlusOne(d)
	if err != nil {
		return "", false
	}
	return reg, true
}

// DomainSuffix returns the public suffix of the host.
func (u *URL) DomainSuffix() (string, bool) {
	d, ok := u.Domain()
	if !ok {
		return "", false
	}
	suffix, _ := publicsuffix.PublicSuffix(d)
	return suffix, suffix != ""
}

// Subdomain returns everything left of the registrable domain, without the
// joining dot. A bare registrable domain has no subdomain.
func (u *URL) Subdomain() (string, bool) {
	d, ok := u.Domain()
	if !ok {
		return "", false
	}
	reg, ok := u.RegDomain()
	if !ok || d == reg {
		return "", false
	}
	return strings.TrimSuffix(d, "."+reg), true
}

// IsOpaque reports whether the URL has no hierarchical path (mailto:,
// data:, and friends).
func (u *URL) IsOpaque() bool {
	return u.u.Opaque != ""
}

// Path returns the escaped path.
func (u *URL) Path() string {
	if u.IsOpaque() {
		return u.u.Opaque
	}
	return u.u.EscapedPath()
}

// PathSegments splits the path on "/" after the leading slash. A URL with
// path "/" has one empty segment. Opaque URLs have no segments.
func (u *URL) PathSegments() ([]string, bool) {
	if u.IsOpaque() {
		return nil, false
	}
	return strings.Split(strings.TrimPrefix(u.Path(), "/"), "/"), true
}

// SetPathSegments rejoins segments into the path.
func (u *URL) SetPathSegments(segments []string) {
	u.u.Path = "/" + strings.Join(segments, "/")
	u.u.RawPath = ""
}

// Query returns the raw query string, or false when the URL has none.
func (u *URL) Query() (string, bool) {
	return u.u.RawQuery, u.u.RawQuery != ""
}

// SetQuery replaces the raw query. An empty string removes the query.
func (u *URL) SetQuery(q string) {
	u.u.RawQuery = q
}

// QueryParam returns the first value of the named query parameter.
func (u *URL) QueryParam(name string) (string, bool) {
	if u.u.RawQuery == "" {
		return "", false
	}
	values := u.u.Query()
	vs, ok := values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// HasQueryParam reports whether the named query parameter exists.
func (u *URL) HasQueryParam(name string) bool {
	_, ok := u.QueryParam(name)
	return ok
}

// SetQueryParam sets the named parameter, replacing all previous values.
func (u *URL) SetQueryParam(name, value string) {
	values := u.u.Query()
	values.Set(name, value)
	u.u.RawQuery = values.Encode()
}

// RemoveQueryParam deletes all values of the named parameter.
func (u *URL) RemoveQueryParam(name string) {
	values := u.u.Query()
	values.Del(name)
	u.u.RawQuery = values.Encode()
}

// QueryParamNames returns the parameter names in encoded order.
func (u *URL) QueryParamNames() []string {
	if u.u.RawQuery == "" {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, pair := range strings.Split(u.u.RawQuery, "&") {
		name := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			name = pair[:i]
		}
		if decoded, err := url.QueryUnescape(name); err == nil {
			name = decoded
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// FilterQueryParams keeps only the parameters for which keep returns true.
// The keep callback may fail, in which case filtering stops and the URL is
// left unchanged.
func (u *URL) FilterQueryParams(keep func(name string) (bool, error)) error {
	values := u.u.Query()
	kept := url.Values{}
	for name, vs := range values {
		ok, err := keep(name)
		if err != nil {
			return err
		}
		if ok {
			kept[name] = vs
		}
	}
	if len(kept) == 0 {
		u.u.RawQuery = ""
		return nil
	}
	u.u.RawQuery = kept.Encode()
	return nil
}

// Fragment returns the fragment, or false when the URL has none.
func (u *URL) Fragment() (string, bool) {
	return u.u.Fragment, u.u.Fragment != ""
}

// Scheme returns the URL scheme.
func (u *URL) Scheme() string {
	return u.u.Scheme
}

// Username returns the userinfo name. Present (possibly empty) on every
// hierarchical URL, matching WHATWG semantics.
func (u *URL) Username() string {
	if u.u.User == nil {
		return ""
	}
	return u.u.User.Username()
}

// Password returns the userinfo password if one is set.
func (u *URL) Password() (string, bool) {
	if u.u.User == nil {
		return "", false
	}
	return u.u.User.Password()
}

// Port returns the explicit port, or false when the URL has none.
func (u *URL) Port() (string, bool) {
	p := u.u.Port()
	return p, p != ""
}
