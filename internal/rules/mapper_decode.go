package rules

import (
	"encoding/json"
	"fmt"
)

var mapperUnitVariants = map[string]Mapper{
	"None":        MapperNone{},
	"Error":       MapperError{},
	"RemoveQuery": MapperRemoveQuery{},
	"Redirect":    MapperRedirect{},
}

// DecodeMapper decodes a mapper expression. Payload-free variants accept a
// bare tag string.
func DecodeMapper(data []byte) (Mapper, error) {
	if name, ok := asString(data); ok {
		if m, ok := mapperUnitVariants[name]; ok {
			return m, nil
		}
		return nil, fmt.Errorf("unknown mapper %q", name)
	}

	tag, payload, err := taggedVariant(data, "mapper")
	if err != nil {
		return nil, err
	}
	if m, ok := mapperUnitVariants[tag]; ok {
		return m, nil
	}

	switch tag {
	case "Debug":
		var inner MapperBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MapperDebug{Mapper: &inner}, nil
	case "If":
		var m MapperIf
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "All":
		var subs MapperAll
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "IgnoreError":
		var inner MapperBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MapperIgnoreError{Mapper: &inner}, nil
	case "TryElse":
		var m MapperTryElse
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "FirstNotError":
		var subs MapperFirstNotError
		if err := json.Unmarshal(payload, &subs); err != nil {
			return nil, err
		}
		return subs, nil
	case "SetPart":
		var m MapperSetPart
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "ModifyPart":
		var m MapperModifyPart
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "CopyPart":
		var m MapperCopyPart
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "RemoveQueryParams":
		var m MapperRemoveQueryParams
		if err := json.Unmarshal(payload, &m.Names); err != nil {
			return nil, err
		}
		return m, nil
	case "AllowQueryParams":
		var m MapperAllowQueryParams
		if err := json.Unmarshal(payload, &m.Names); err != nil {
			return nil, err
		}
		return m, nil
	case "RemoveQueryParamsMatching":
		var inner MatcherBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MapperRemoveQueryParamsMatching{Matcher: &inner}, nil
	case "AllowQueryParamsMatching":
		var inner MatcherBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return MapperAllowQueryParamsMatching{Matcher: &inner}, nil
	case "SetHost":
		var m MapperSetHost
		if err := json.Unmarshal(payload, &m.Host); err != nil {
			return nil, err
		}
		return m, nil
	case "SetScratchpadFlag":
		var m MapperSetScratchpadFlag
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "SetScratchpadVar":
		var m MapperSetScratchpadVar
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "PartMap":
		var m MapperPartMap
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "StringMap":
		var m MapperStringMap
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "Common":
		var m MapperCommon
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown mapper %q", tag)
}
