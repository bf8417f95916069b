package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/urlwash/urlwash/internal/types"
	"github.com/urlwash/urlwash/internal/urlutil"
)

// StringSource produces an optional string from the job's context. A nil
// result with a nil error means "no value", which is distinct from an
// empty string.
type StringSource interface {
	GetString(v *StateView) (*string, error)
}

// SourceBox wraps a StringSource for JSON decoding of recursive fields.
type SourceBox struct {
	StringSource
}

// UnmarshalJSON decodes a bare string as a literal and anything else as a
// tagged variant.
func (b *SourceBox) UnmarshalJSON(data []byte) error {
	src, err := DecodeStringSource(data)
	if err != nil {
		return err
	}
	b.StringSource = src
	return nil
}

func someString(s string) *string { return &s }

// SrcString yields a literal.
type SrcString struct {
	Value string
}

func (s SrcString) GetString(*StateView) (*string, error) {
	return someString(s.Value), nil
}

// SrcPart yields a URL part. An absent part is none, not an error.
type SrcPart struct {
	Part urlutil.Part
}

func (s SrcPart) GetString(v *StateView) (*string, error) {
	value, ok := s.Part.Get(v.URL)
	if !ok {
		return nil, nil
	}
	return someString(value), nil
}

// SrcVar yields a run-wide variable from Params.
type SrcVar struct {
	Name string
}

func (s SrcVar) GetString(v *StateView) (*string, error) {
	value, ok := v.Params.Vars[s.Name]
	if !ok {
		return nil, nil
	}
	return someString(value), nil
}

// SrcContextVar yields a variable from the job context, falling back to
// the pipeline context.
type SrcContextVar struct {
	Name string
}

func (s SrcContextVar) GetString(v *StateView) (*string, error) {
	value, ok := v.contextVar(s.Name)
	if !ok {
		return nil, nil
	}
	return someString(value), nil
}

// SrcScratchpadVar yields a job-local scratchpad variable.
type SrcScratchpadVar struct {
	Name string
}

func (s SrcScratchpadVar) GetString(v *StateView) (*string, error) {
	value, ok := v.Scratchpad.Vars[s.Name]
	if !ok {
		return nil, nil
	}
	return someString(value), nil
}

// SrcCommonArg yields an argument of the active common call. Evaluating it
// outside a common call is a context error; an unbound argument is none.
type SrcCommonArg struct {
	Name string
}

func (s SrcCommonArg) GetString(v *StateView) (*string, error) {
	if v.CommonArgs == nil {
		return nil, types.ErrNotInCommonContext
	}
	value, ok := v.CommonArgs.Vars[s.Name]
	if !ok {
		return nil, nil
	}
	return someString(value), nil
}

// SrcIfFlag branches on a run-wide flag.
type SrcIfFlag struct {
	Flag string     `json:"flag"`
	Then *SourceBox `json:"then"`
	Else *SourceBox `json:"else"`
}

func (s SrcIfFlag) GetString(v *StateView) (*string, error) {
	branch := s.Else
	if v.Params.Flags.Contains(s.Flag) {
		branch = s.Then
	}
	if branch == nil {
		return nil, nil
	}
	return branch.GetString(v)
}

// SrcIfSourceIsNone branches on whether another source produced a value.
type SrcIfSourceIsNone struct {
	Source *SourceBox `json:"source"`
	Then   *SourceBox `json:"then"`
	Else   *SourceBox `json:"else"`
}

func (s SrcIfSourceIsNone) GetString(v *StateView) (*string, error) {
	value, err := s.Source.GetString(v)
	if err != nil {
		return nil, err
	}
	branch := s.Else
	if value == nil {
		branch = s.Then
	}
	if branch == nil {
		return value, nil
	}
	return branch.GetString(v)
}

// SrcJoin concatenates sources. Any none input makes the whole join none.
type SrcJoin struct {
	Sources   []*SourceBox `json:"sources"`
	Separator string       `json:"separator,omitempty"`
}

func (s SrcJoin) GetString(v *StateView) (*string, error) {
	parts := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		value, err := src.GetString(v)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, nil
		}
		parts = append(parts, *value)
	}
	return someString(strings.Join(parts, s.Separator)), nil
}

// SrcModified applies a string modification to a source's value. A none
// input is an error here; wrap in NoneTo first when absence is expected.
type SrcModified struct {
	Source       *SourceBox         `json:"source"`
	Modification StringModification `json:"modification"`
}

func (s SrcModified) GetString(v *StateView) (*string, error) {
	value, err := s.Source.GetString(v)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, types.ErrStringSourceIsNone
	}
	modified, err := s.Modification.Apply(*value)
	if err != nil {
		return nil, err
	}
	return someString(modified), nil
}

// SrcFetch yields the response body of a GET request, memoized through the
// cache under the "fetch" category. A nil URL source fetches the job's
// current URL.
type SrcFetch struct {
	URL *SourceBox `json:"url,omitempty"`
}

func (s SrcFetch) GetString(v *StateView) (*string, error) {
	target := v.URL.String()
	if s.URL != nil {
		value, err := s.URL.GetString(v)
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, types.ErrStringSourceIsNone
		}
		target = *value
	}

	if v.Cache != nil {
		value, found, err := v.Cache.Read("fetch", target)
		if err != nil {
			return nil, err
		}
		if found {
			return value, nil
		}
	}

	body, err := v.HTTP.Get(target)
	if err != nil {
		return nil, err
	}
	if v.Cache != nil {
		if err := v.Cache.Write("fetch", target, &body); err != nil {
			return nil, err
		}
	}
	return someString(body), nil
}

// SrcDebug evaluates its child, traces the outcome, and re-raises the
// result unchanged.
type SrcDebug struct {
	Source *SourceBox
}

func (s SrcDebug) GetString(v *StateView) (*string, error) {
	value, err := s.Source.GetString(v)
	event := log.Debug().
		Str("node", fmt.Sprintf("%T", s.Source.StringSource)).
		Str("url", v.URL.String())
	if value != nil {
		event = event.Str("value", *value)
	} else {
		event = event.Bool("none", true)
	}
	if err != nil {
		event = event.AnErr("result", err)
	}
	event.Msg("string source trace")
	return value, err
}

// SrcError unconditionally fails.
type SrcError struct{}

func (SrcError) GetString(*StateView) (*string, error) {
	return nil, types.ErrExplicit
}

// SrcNoneToEmptyString converts a none result into the empty string.
type SrcNoneToEmptyString struct {
	Source *SourceBox
}

func (s SrcNoneToEmptyString) GetString(v *StateView) (*string, error) {
	value, err := s.Source.GetString(v)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return someString(""), nil
	}
	return value, nil
}

// SrcNoneTo substitutes an alternative source when the primary is none.
type SrcNoneTo struct {
	Source *SourceBox `json:"source"`
	Alt    *SourceBox `json:"alt"`
}

func (s SrcNoneTo) GetString(v *StateView) (*string, error) {
	value, err := s.Source.GetString(v)
	if err != nil {
		return nil, err
	}
	if value != nil {
		return value, nil
	}
	return s.Alt.GetString(v)
}

// SrcCommon evaluates a named common source with scoped arguments.
type SrcCommon struct {
	Name string            `json:"name"`
	Args *CommonArgsSource `json:"args,omitempty"`
}

func (s SrcCommon) GetString(v *StateView) (*string, error) {
	common, ok := v.Commons.Sources[s.Name]
	if !ok {
		return nil, fmt.Errorf("source %q: %w", s.Name, types.ErrCommonNotFound)
	}
	args, err := s.Args.Eval(v)
	if err != nil {
		return nil, err
	}
	nested, err := v.withCommonArgs(args)
	if err != nil {
		return nil, err
	}
	return common.GetString(nested)
}

// DecodeStringSource decodes a source expression. A bare string is the
// literal shorthand.
func DecodeStringSource(data []byte) (StringSource, error) {
	if s, ok := asString(data); ok {
		return SrcString{Value: s}, nil
	}

	tag, payload, err := taggedVariant(data, "string source")
	if err != nil {
		return nil, err
	}
	switch tag {
	case "String":
		var s SrcString
		if err := json.Unmarshal(payload, &s.Value); err != nil {
			return nil, err
		}
		return s, nil
	case "Part":
		var s SrcPart
		if err := json.Unmarshal(payload, &s.Part); err != nil {
			return nil, err
		}
		return s, nil
	case "Var":
		var s SrcVar
		if err := json.Unmarshal(payload, &s.Name); err != nil {
			return nil, err
		}
		return s, nil
	case "ContextVar":
		var s SrcContextVar
		if err := json.Unmarshal(payload, &s.Name); err != nil {
			return nil, err
		}
		return s, nil
	case "ScratchpadVar":
		var s SrcScratchpadVar
		if err := json.Unmarshal(payload, &s.Name); err != nil {
			return nil, err
		}
		return s, nil
	case "CommonArg":
		var s SrcCommonArg
		if err := json.Unmarshal(payload, &s.Name); err != nil {
			return nil, err
		}
		return s, nil
	case "IfFlag":
		var s SrcIfFlag
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "IfSourceIsNone":
		var s SrcIfSourceIsNone
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "Join":
		var s SrcJoin
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "Modified":
		var s SrcModified
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "Fetch":
		var s SrcFetch
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &s); err != nil {
				return nil, err
			}
		}
		return s, nil
	case "Debug":
		var inner SourceBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return SrcDebug{Source: &inner}, nil
	case "Error":
		return SrcError{}, nil
	case "NoneToEmptyString":
		var inner SourceBox
		if err := json.Unmarshal(payload, &inner); err != nil {
			return nil, err
		}
		return SrcNoneToEmptyString{Source: &inner}, nil
	case "NoneTo":
		var s SrcNoneTo
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	case "Common":
		var s SrcCommon
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown string source %q", tag)
}
