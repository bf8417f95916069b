package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// errFirstNotErrorEmpty is what a FirstNotError with no branches returns.
var errFirstNotErrorEmpty = errors.New("first-not-error has no branches")

/*
Expression trees serialize as externally tagged one-key objects, with two
shorthands: a variant with no payload may be written as its bare tag
string, and a few leaf types treat a bare string as their most common
variant (a literal StringSource, a default-options glob). Each family has
a Box wrapper implementing json.Unmarshaler so recursive fields, slices,
and maps decode through plain encoding/json.
*/

// asString decodes data as a bare JSON string.
func asString(data []byte) (string, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return "", false
	}
	return s, true
}

// taggedVariant splits an externally tagged object into its single tag and
// payload.
func taggedVariant(data []byte, family string) (string, json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", nil, fmt.Errorf("%s: %w", family, err)
	}
	if len(obj) != 1 {
		return "", nil, fmt.Errorf("%s: variant object must have exactly one key, got %d", family, len(obj))
	}
	for tag, payload := range obj {
		return tag, payload, nil
	}
	return "", nil, fmt.Errorf("%s: empty variant object", family)
}
