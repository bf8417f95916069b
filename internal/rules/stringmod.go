package rules

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/urlwash/urlwash/internal/types"
)

// ModKind enumerates the StringModification operations.
type ModKind int

const (
	ModSet ModKind = iota
	ModAppend
	ModPrepend
	ModReplace
	ModReplaceAll
	ModLowercase
	ModUppercase
	ModStripPrefix
	ModStripMaybePrefix
	ModStripSuffix
	ModStripMaybeSuffix
	ModURLDecode
	ModURLEncode
	ModBase64Decode
	ModBase64Encode
	ModAll
)

// StringModification is a pure string transformation used by the Modified
// variants of sources, matchers, and mappers. The strict strip operations
// fail when the affix is absent; the Maybe forms pass the input through.
type StringModification struct {
	Kind        ModKind
	Value       string
	Find        string
	ReplaceWith string
	Mods        []StringModification
}

// Apply transforms s.
func (m StringModification) Apply(s string) (string, error) {
	switch m.Kind {
	case ModSet:
		return m.Value, nil
	case ModAppend:
		return s + m.Value, nil
	case ModPrepend:
		return m.Value + s, nil
	case ModReplace:
		return strings.Replace(s, m.Find, m.ReplaceWith, 1), nil
	case ModReplaceAll:
		return strings.ReplaceAll(s, m.Find, m.ReplaceWith), nil
	case ModLowercase:
		return strings.ToLower(s), nil
	case ModUppercase:
		return strings.ToUpper(s), nil
	case ModStripPrefix:
		if !strings.HasPrefix(s, m.Value) {
			return "", types.ErrPrefixNotPresent
		}
		return s[len(m.Value):], nil
	case ModStripMaybePrefix:
		return strings.TrimPrefix(s, m.Value), nil
	case ModStripSuffix:
		if !strings.HasSuffix(s, m.Value) {
			return "", types.ErrSuffixNotPresent
		}
		return s[:len(s)-len(m.Value)], nil
	case ModStripMaybeSuffix:
		return strings.TrimSuffix(s, m.Value), nil
	case ModURLDecode:
		return url.QueryUnescape(s)
	case ModURLEncode:
		return url.QueryEscape(s), nil
	case ModBase64Decode:
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	case ModBase64Encode:
		return base64.StdEncoding.EncodeToString([]byte(s)), nil
	case ModAll:
		var err error
		for _, sub := range m.Mods {
			s, err = sub.Apply(s)
			if err != nil {
				return "", err
			}
		}
		return s, nil
	}
	return "", fmt.Errorf("unknown string modification kind %d", int(m.Kind))
}

var modUnitNames = map[string]ModKind{
	"Lowercase":    ModLowercase,
	"Uppercase":    ModUppercase,
	"URLDecode":    ModURLDecode,
	"URLEncode":    ModURLEncode,
	"Base64Decode": ModBase64Decode,
	"Base64Encode": ModBase64Encode,
}

var modValueNames = map[string]ModKind{
	"Set":              ModSet,
	"Append":           ModAppend,
	"Prepend":          ModPrepend,
	"StripPrefix":      ModStripPrefix,
	"StripMaybePrefix": ModStripMaybePrefix,
	"StripSuffix":      ModStripSuffix,
	"StripMaybeSuffix": ModStripMaybeSuffix,
}

// UnmarshalJSON accepts bare names for value-free operations and one-key
// tagged objects for the rest.
func (m *StringModification) UnmarshalJSON(data []byte) error {
	if name, ok := asString(data); ok {
		kind, ok := modUnitNames[name]
		if !ok {
			return fmt.Errorf("unknown string modification %q", name)
		}
		*m = StringModification{Kind: kind}
		return nil
	}

	tag, payload, err := taggedVariant(data, "string modification")
	if err != nil {
		return err
	}
	if kind, ok := modValueNames[tag]; ok {
		var value string
		if err := json.Unmarshal(payload, &value); err != nil {
			return err
		}
		*m = StringModification{Kind: kind, Value: value}
		return nil
	}
	switch tag {
	case "Replace", "ReplaceAll":
		var r struct {
			Find    string `json:"find"`
			Replace string `json:"replace"`
		}
		if err := json.Unmarshal(payload, &r); err != nil {
			return err
		}
		kind := ModReplace
		if tag == "ReplaceAll" {
			kind = ModReplaceAll
		}
		*m = StringModification{Kind: kind, Find: r.Find, ReplaceWith: r.Replace}
		return nil
	case "All":
		var mods []StringModification
		if err := json.Unmarshal(payload, &mods); err != nil {
			return err
		}
		*m = StringModification{Kind: ModAll, Mods: mods}
		return nil
	}
	return fmt.Errorf("unknown string modification %q", tag)
}
