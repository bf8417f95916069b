package rules

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/urlwash/urlwash/internal/types"
	"github.com/urlwash/urlwash/internal/urlutil"
)

// Mapper is a URL-mutating expression tree, structurally symmetric to
// Condition. Apply mutates st.URL in place; transactional behavior across
// a rule list is the responsibility of Rules.Apply.
type Mapper interface {
	Apply(st *State) error
}

// MapperBox wraps a Mapper for JSON decoding of recursive fields.
type MapperBox struct {
	Mapper
}

func (b *MapperBox) UnmarshalJSON(data []byte) error {
	m, err := DecodeMapper(data)
	if err != nil {
		return err
	}
	b.Mapper = m
	return nil
}

// MapperNone does nothing.
type MapperNone struct{}

func (MapperNone) Apply(*State) error { return nil }

// MapperError unconditionally fails.
type MapperError struct{}

func (MapperError) Apply(*State) error { return types.ErrExplicit }

// MapperDebug applies its child, traces the URL before and after, and
// re-raises the result.
type MapperDebug struct {
	Mapper *MapperBox
}

func (m MapperDebug) Apply(st *State) error {
	before := st.URL.String()
	err := m.Mapper.Apply(st)
	log.Debug().
		Str("node", fmt.Sprintf("%T", m.Mapper.Mapper)).
		Str("before", before).
		Str("after", st.URL.String()).
		AnErr("result", err).
		Msg("mapper trace")
	return err
}

// MapperIf applies one of two mappers depending on a condition. A missing
// branch is a no-op.
type MapperIf struct {
	If   *ConditionBox `json:"if"`
	Then *MapperBox    `json:"then"`
	Else *MapperBox    `json:"else"`
}

func (m MapperIf) Apply(st *State) error {
	satisfied, err := m.If.SatisfiedBy(st.View())
	if err != nil {
		return err
	}
	branch := m.Else
	if satisfied {
		branch = m.Then
	}
	if branch == nil {
		return nil
	}
	return branch.Apply(st)
}

// MapperAll applies mappers in sequence, stopping at the first error.
// Mutations made before the error are not rolled back here; the rule list
// level provides atomicity.
type MapperAll []*MapperBox

func (m MapperAll) Apply(st *State) error {
	for _, sub := range m {
		if err := sub.Apply(st); err != nil {
			return err
		}
	}
	return nil
}

// MapperIgnoreError applies its child and swallows any error, keeping
// whatever mutations happened before the failure.
type MapperIgnoreError struct {
	Mapper *MapperBox
}

func (m MapperIgnoreError) Apply(st *State) error {
	if err := m.Mapper.Apply(st); err != nil {
		log.Debug().Err(err).Msg("mapper error ignored")
	}
	return nil
}

// applyIsolated runs a mapper against a scratch copy of the URL and
// commits only on success, so fallback combinators never observe a
// half-applied branch.
func applyIsolated(m *MapperBox, st *State) error {
	scratch := st.URL.Clone()
	original := st.URL
	st.URL = scratch
	err := m.Apply(st)
	st.URL = original
	if err != nil {
		return err
	}
	st.URL.CopyFrom(scratch)
	return nil
}

// MapperTryElse applies try; on error the URL is restored and else is
// applied instead. Both failing yields the composite error.
type MapperTryElse struct {
	Try  *MapperBox `json:"try"`
	Else *MapperBox `json:"else"`
}

func (m MapperTryElse) Apply(st *State) error {
	tryErr := applyIsolated(m.Try, st)
	if tryErr == nil {
		return nil
	}
	elseErr := applyIsolated(m.Else, st)
	if elseErr == nil {
		return nil
	}
	return &types.TryElseError{Try: tryErr, Else: elseErr}
}

// MapperFirstNotError applies each mapper against a restored URL until one
// succeeds. When every branch errors, only the last error is returned.
type MapperFirstNotError []*MapperBox

func (m MapperFirstNotError) Apply(st *State) error {
	err := errFirstNotErrorEmpty
	for _, sub := range m {
		err = applyIsolated(sub, st)
		if err == nil {
			return nil
		}
	}
	return err
}

// MapperSetPart writes a sourced value into a URL part. A none value
// removes the part where removal is meaningful.
type MapperSetPart struct {
	Part  urlutil.Part `json:"part"`
	Value *SourceBox   `json:"value"`
}

func (m MapperSetPart) Apply(st *State) error {
	value, err := m.Value.GetString(st.View())
	if err != nil {
		return err
	}
	return m.Part.Set(st.URL, value)
}

// MapperModifyPart applies a string modification to an existing URL part.
type MapperModifyPart struct {
	Part         urlutil.Part       `json:"part"`
	Modification StringModification `json:"modification"`
}

func (m MapperModifyPart) Apply(st *State) error {
	current, ok := m.Part.Get(st.URL)
	if !ok {
		return types.ErrPartIsNone
	}
	modified, err := m.Modification.Apply(current)
	if err != nil {
		return err
	}
	return m.Part.Set(st.URL, &modified)
}

// MapperCopyPart copies one URL part into another. An absent source part
// removes the destination.
type MapperCopyPart struct {
	From urlutil.Part `json:"from"`
	To   urlutil.Part `json:"to"`
}

func (m MapperCopyPart) Apply(st *State) error {
	value, ok := m.From.Get(st.URL)
	if !ok {
		return m.To.Set(st.URL, nil)
	}
	return m.To.Set(st.URL, &value)
}

// MapperRemoveQuery drops the whole query string.
type MapperRemoveQuery struct{}

func (MapperRemoveQuery) Apply(st *State) error {
	st.URL.SetQuery("")
	return nil
}

// MapperRemoveQueryParams removes the named query parameters.
type MapperRemoveQueryParams struct {
	Names types.StringSet
}

func (m MapperRemoveQueryParams) Apply(st *State) error {
	return st.URL.FilterQueryParams(func(name string) (bool, error) {
		return !m.Names.Contains(name), nil
	})
}

// MapperAllowQueryParams removes every query parameter not in the set.
type MapperAllowQueryParams struct {
	Names types.StringSet
}

func (m MapperAllowQueryParams) Apply(st *State) error {
	return st.URL.FilterQueryParams(func(name string) (bool, error) {
		return m.Names.Contains(name), nil
	})
}

// MapperRemoveQueryParamsMatching removes query parameters whose name
// matches.
type MapperRemoveQueryParamsMatching struct {
	Matcher *MatcherBox
}

func (m MapperRemoveQueryParamsMatching) Apply(st *State) error {
	v := st.View()
	return st.URL.FilterQueryParams(func(name string) (bool, error) {
		matched, err := m.Matcher.MatchedBy(name, v)
		return !matched, err
	})
}

// MapperAllowQueryParamsMatching removes query parameters whose name does
// not match.
type MapperAllowQueryParamsMatching struct {
	Matcher *MatcherBox
}

func (m MapperAllowQueryParamsMatching) Apply(st *State) error {
	v := st.View()
	return st.URL.FilterQueryParams(func(name string) (bool, error) {
		return m.Matcher.MatchedBy(name, v)
	})
}

// MapperSetHost replaces the host, keeping any explicit port.
type MapperSetHost struct {
	Host string
}

func (m MapperSetHost) Apply(st *State) error {
	return urlutil.Part{Kind: urlutil.PartHost}.Set(st.URL, &m.Host)
}

// MapperRedirect follows the URL's redirect chain and replaces the URL
// with where it lands, memoized through the cache under "redirect". A
// cached nil means the chain was followed before and went nowhere new.
type MapperRedirect struct{}

func (MapperRedirect) Apply(st *State) error {
	from := st.URL.String()

	if st.Cache != nil {
		value, found, err := st.Cache.Read("redirect", from)
		if err != nil {
			return err
		}
		if found {
			if value == nil {
				return nil
			}
			return urlutil.Part{Kind: urlutil.PartWhole}.Set(st.URL, value)
		}
	}

	final, err := st.HTTP.FinalURL(from)
	if err != nil {
		return err
	}
	if st.Cache != nil {
		stored := &final
		if final == from {
			stored = nil
		}
		if err := st.Cache.Write("redirect", from, stored); err != nil {
			return err
		}
	}
	if final == from {
		return nil
	}
	return urlutil.Part{Kind: urlutil.PartWhole}.Set(st.URL, &final)
}

// MapperSetScratchpadFlag sets or clears a job-local flag.
type MapperSetScratchpadFlag struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

func (m MapperSetScratchpadFlag) Apply(st *State) error {
	if m.Value {
		st.Scratchpad.Flags.Add(m.Name)
	} else {
		st.Scratchpad.Flags.Remove(m.Name)
	}
	return nil
}

// MapperSetScratchpadVar writes a sourced value into a job-local
// variable; a none value unsets it.
type MapperSetScratchpadVar struct {
	Name  string     `json:"name"`
	Value *SourceBox `json:"value"`
}

func (m MapperSetScratchpadVar) Apply(st *State) error {
	value, err := m.Value.GetString(st.View())
	if err != nil {
		return err
	}
	if value == nil {
		delete(st.Scratchpad.Vars, m.Name)
	} else {
		st.Scratchpad.Vars[m.Name] = *value
	}
	return nil
}

// MapperPartMap dispatches on the value of a URL part. A missing map key
// is a no-op; an absent part uses if_none when present.
type MapperPartMap struct {
	Part   urlutil.Part          `json:"part"`
	Map    map[string]*MapperBox `json:"map"`
	IfNone *MapperBox            `json:"if_none,omitempty"`
}

func (m MapperPartMap) Apply(st *State) error {
	part, ok := m.Part.Get(st.URL)
	if !ok {
		if m.IfNone != nil {
			return m.IfNone.Apply(st)
		}
		return nil
	}
	sub, ok := m.Map[part]
	if !ok {
		return nil
	}
	return sub.Apply(st)
}

// MapperStringMap dispatches on a sourced value, with the same
// missing-key contract as MapperPartMap.
type MapperStringMap struct {
	Source *SourceBox            `json:"source"`
	Map    map[string]*MapperBox `json:"map"`
	IfNone *MapperBox            `json:"if_none,omitempty"`
}

func (m MapperStringMap) Apply(st *State) error {
	value, err := m.Source.GetString(st.View())
	if err != nil {
		return err
	}
	if value == nil {
		if m.IfNone != nil {
			return m.IfNone.Apply(st)
		}
		return nil
	}
	sub, ok := m.Map[*value]
	if !ok {
		return nil
	}
	return sub.Apply(st)
}

// MapperCommon applies a named common mapper with scoped arguments.
type MapperCommon struct {
	Name string            `json:"name"`
	Args *CommonArgsSource `json:"args,omitempty"`
}

func (m MapperCommon) Apply(st *State) error {
	common, ok := st.Commons.Mappers[m.Name]
	if !ok {
		return fmt.Errorf("mapper %q: %w", m.Name, types.ErrCommonNotFound)
	}
	args, err := m.Args.Eval(st.View())
	if err != nil {
		return err
	}
	nested, err := st.withCommonArgs(args)
	if err != nil {
		return err
	}
	return common.Apply(nested)
}

// MapperCustom is an embedder-supplied hook. It has no serialized form.
type MapperCustom struct {
	Func func(*State) error
}

func (m MapperCustom) Apply(st *State) error {
	return m.Func(st)
}
