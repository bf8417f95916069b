package rules

import (
	"encoding/json"
	"fmt"

	"github.com/urlwash/urlwash/internal/execs"
)

var conditionUnitVariants = map[string]Condition{
	"Always":       CondAlways{},
	"Never":        CondNever{},
	"Error":        CondError{},
	"URLHasHost":   CondURLHasHost{},
	"HostIsDomain": CondHostIsDomain{},
	"HostIsIP":     CondHostIsIP{},
}

// conditionStringVariants maps tags whose payload is a single string.
var conditionStringVariants = map[string]func(string) Condition{
	"HostIs":              func(s string) Condition { return CondHostIs{Host: s} },
	"SubdomainIs":         func(s string) Condition { return CondSubdomainIs{Subdomain: s} },
	"RegDomainIs":         func(s string) Condition { return CondRegDomainIs{RegDomain: s} },
	"DomainIs":            func(s string) Condition { return CondDomainIs{Domain: s} },
	"QueryHasParam":       func(s string) Condition { return CondQueryHasParam{Name: s} },
	"PathIs":              func(s string) Condition { return CondPathIs{Path: s} },
	"FlagIsSet":           func(s string) Condition { return CondFlagIsSet{Name: s} },
	"ScratchpadFlagIsSet": func(s string) Condition { return CondScratchpadFlagIsSet{Name: s} },
	"CommonFlagIsSet":     func(s string) Condition { return CondCommonFlagIsSet{Name: s} },
}

// DecodeCondition decodes a condition expression. Payload-free variants
// accept a bare tag string.
func DecodeCondition(data []byte) (Condition, error) {
	if name, ok := asString(data); ok {
		if c, ok := conditionUnitVariants[name]; ok {
			return c, nil
		}
		return nil, fmt.Errorf("unknown condition %q", name)
	}

	tag, payload, err := taggedVariant(data, "condition")
	if err != nil {
		return nil, err
	}
	if c, ok := conditionUnitVariants[tag]; ok {
		return c, nil
	}
	if build, ok := conditionStringVariants[tag]; ok {
		var s string
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return build(s), nil
	}

	switch tag {
	case "Debug":
		var inner ConditionBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return CondDebug{Condition: &inner}, nil
	case "Not":
		var inner ConditionBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return CondNot{Condition: &inner}, nil
	case "All":
		var subs CondAll
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "Any":
		var subs CondAny
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "If":
		var c CondIf
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "TreatErrorAsPass":
		var inner ConditionBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return CondTreatErrorAsPass{Condition: &inner}, nil
	case "TreatErrorAsFail":
		var inner ConditionBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return CondTreatErrorAsFail{Condition: &inner}, nil
	case "TryElse":
		var c CondTryElse
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "FirstNotError":
		var subs CondFirstNotError
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "HostIsOneOf":
		var c CondHostIsOneOf
		if err := json.Unmarshal(payload, &c.Hosts); err != nil {
			return nil, err
		}
		return c, nil
	case "PartIs":
		var c CondPartIs
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "PartContains":
		var c CondPartContains
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "PartMatches":
		var c CondPartMatches
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "PartIsOneOf":
		var c CondPartIsOneOf
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "VarIs":
		var c CondVarIs
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "AnyFlagIsSet":
		var c CondAnyFlagIsSet
		if err := json.Unmarshal(payload, &c.Names); err != nil {
			return nil, err
		}
		return c, nil
	case "StringIs":
		var c CondStringIs
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "StringContains":
		var c CondStringContains
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "StringMatches":
		var c CondStringMatches
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "PathSegmentsMatch":
		var c CondPathSegmentsMatch
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "PartMap":
		var c CondPartMap
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "StringMap":
		var c CondStringMap
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "CommandExists":
		var cmd execs.Command
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return nil, err
		}
		return CondCommandExists{Command: cmd}, nil
	case "CommandExitStatus":
		var c CondCommandExitStatus
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	case "Common":
		var c CondCommon
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown condition %q", tag)
}
