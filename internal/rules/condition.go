package rules

import (
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/urlwash/urlwash/internal/execs"
	"github.com/urlwash/urlwash/internal/types"
	"github.com/urlwash/urlwash/internal/urlutil"
)

// Condition is a boolean expression tree evaluated against a job's URL and
// context.
type Condition interface {
	SatisfiedBy(v *StateView) (bool, error)
}

// ConditionBox wraps a Condition for JSON decoding of recursive fields.
type ConditionBox struct {
	Condition
}

func (b *ConditionBox) UnmarshalJSON(data []byte) error {
	c, err := DecodeCondition(data)
	if err != nil {
		return err
	}
	b.Condition = c
	return nil
}

// CondAlways is satisfied by every URL.
type CondAlways struct{}

func (CondAlways) SatisfiedBy(*StateView) (bool, error) { return true, nil }

// CondNever is satisfied by no URL.
type CondNever struct{}

func (CondNever) SatisfiedBy(*StateView) (bool, error) { return false, nil }

// CondError unconditionally fails.
type CondError struct{}

func (CondError) SatisfiedBy(*StateView) (bool, error) {
	return false, types.ErrExplicit
}

// CondDebug evaluates its child, traces the outcome, and re-raises it.
type CondDebug struct {
	Condition *ConditionBox
}

func (c CondDebug) SatisfiedBy(v *StateView) (bool, error) {
	satisfied, err := c.Condition.SatisfiedBy(v)
	log.Debug().
		Str("node", fmt.Sprintf("%T", c.Condition.Condition)).
		Str("url", v.URL.String()).
		Bool("satisfied", satisfied).
		AnErr("result", err).
		Msg("condition trace")
	return satisfied, err
}

// CondNot negates its child; the child's error passes through untouched.
type CondNot struct {
	Condition *ConditionBox
}

func (c CondNot) SatisfiedBy(v *StateView) (bool, error) {
	satisfied, err := c.Condition.SatisfiedBy(v)
	if err != nil {
		return false, err
	}
	return !satisfied, nil
}

// CondAll is short-circuiting conjunction; empty is true.
type CondAll []*ConditionBox

func (c CondAll) SatisfiedBy(v *StateView) (bool, error) {
	for _, sub := range c {
		satisfied, err := sub.SatisfiedBy(v)
		if err != nil {
			return false, err
		}
		if !satisfied {
			return false, nil
		}
	}
	return true, nil
}

// CondAny is short-circuiting disjunction; empty is false.
type CondAny []*ConditionBox

func (c CondAny) SatisfiedBy(v *StateView) (bool, error) {
	for _, sub := range c {
		satisfied, err := sub.SatisfiedBy(v)
		if err != nil {
			return false, err
		}
		if satisfied {
			return true, nil
		}
	}
	return false, nil
}

// CondIf branches on another condition. A missing branch is false.
type CondIf struct {
	If   *ConditionBox `json:"if"`
	Then *ConditionBox `json:"then"`
	Else *ConditionBox `json:"else"`
}

func (c CondIf) SatisfiedBy(v *StateView) (bool, error) {
	satisfied, err := c.If.SatisfiedBy(v)
	if err != nil {
		return false, err
	}
	branch := c.Else
	if satisfied {
		branch = c.Then
	}
	if branch == nil {
		return false, nil
	}
	return branch.SatisfiedBy(v)
}

// CondTreatErrorAsPass converts any child error into satisfaction.
type CondTreatErrorAsPass struct {
	Condition *ConditionBox
}

func (c CondTreatErrorAsPass) SatisfiedBy(v *StateView) (bool, error) {
	satisfied, err := c.Condition.SatisfiedBy(v)
	if err != nil {
		return true, nil
	}
	return satisfied, nil
}

// CondTreatErrorAsFail converts any child error into non-satisfaction.
type CondTreatErrorAsFail struct {
	Condition *ConditionBox
}

func (c CondTreatErrorAsFail) SatisfiedBy(v *StateView) (bool, error) {
	satisfied, err := c.Condition.SatisfiedBy(v)
	if err != nil {
		return false, nil
	}
	return satisfied, nil
}

// CondTryElse falls back to else when try errors; if both error the
// composite carries both.
type CondTryElse struct {
	Try  *ConditionBox `json:"try"`
	Else *ConditionBox `json:"else"`
}

func (c CondTryElse) SatisfiedBy(v *StateView) (bool, error) {
	satisfied, tryErr := c.Try.SatisfiedBy(v)
	if tryErr == nil {
		return satisfied, nil
	}
	satisfied, elseErr := c.Else.SatisfiedBy(v)
	if elseErr == nil {
		return satisfied, nil
	}
	return false, &types.TryElseError{Try: tryErr, Else: elseErr}
}

// CondFirstNotError returns the first non-erroring child's result. When
// every child errors, only the last error is returned.
type CondFirstNotError []*ConditionBox

func (c CondFirstNotError) SatisfiedBy(v *StateView) (bool, error) {
	err := errFirstNotErrorEmpty
	for _, sub := range c {
		var satisfied bool
		satisfied, err = sub.SatisfiedBy(v)
		if err == nil {
			return satisfied, nil
		}
	}
	return false, err
}

// CondHostIs compares the host, without port, to a literal.
type CondHostIs struct {
	Host string
}

func (c CondHostIs) SatisfiedBy(v *StateView) (bool, error) {
	host, ok := v.URL.Hostname()
	return ok && host == c.Host, nil
}

// CondSubdomainIs compares the subdomain to a literal. An empty literal
// matches URLs whose host is a bare registrable domain.
type CondSubdomainIs struct {
	Subdomain string
}

func (c CondSubdomainIs) SatisfiedBy(v *StateView) (bool, error) {
	sub, ok := v.URL.Subdomain()
	if !ok {
		if _, hasReg := v.URL.RegDomain(); hasReg {
			return c.Subdomain == "", nil
		}
		return false, nil
	}
	return sub == c.Subdomain, nil
}

// CondRegDomainIs compares the registrable domain to a literal.
type CondRegDomainIs struct {
	RegDomain string
}

func (c CondRegDomainIs) SatisfiedBy(v *StateView) (bool, error) {
	reg, ok := v.URL.RegDomain()
	return ok && reg == c.RegDomain, nil
}

// CondDomainIs compares the domain-name host to a literal.
type CondDomainIs struct {
	Domain string
}

func (c CondDomainIs) SatisfiedBy(v *StateView) (bool, error) {
	d, ok := v.URL.Domain()
	return ok && d == c.Domain, nil
}

// CondHostIsOneOf tests set membership of the host with any leading
// "www." stripped, so one entry covers both spellings.
type CondHostIsOneOf struct {
	Hosts types.StringSet
}

func (c CondHostIsOneOf) SatisfiedBy(v *StateView) (bool, error) {
	host, ok := v.URL.Hostname()
	if !ok {
		return false, nil
	}
	return c.Hosts.Contains(strings.TrimPrefix(host, "www.")), nil
}

// CondURLHasHost is satisfied when the URL carries a host.
type CondURLHasHost struct{}

func (CondURLHasHost) SatisfiedBy(v *StateView) (bool, error) {
	_, ok := v.URL.Hostname()
	return ok, nil
}

// CondHostIsDomain is satisfied when the host is a domain name.
type CondHostIsDomain struct{}

func (CondHostIsDomain) SatisfiedBy(v *StateView) (bool, error) {
	_, ok := v.URL.Domain()
	return ok, nil
}

// CondHostIsIP is satisfied when the host is an IP address.
type CondHostIsIP struct{}

func (CondHostIsIP) SatisfiedBy(v *StateView) (bool, error) {
	host, ok := v.URL.Hostname()
	if !ok {
		return false, nil
	}
	return net.ParseIP(strings.Trim(host, "[]")) != nil, nil
}

// CondQueryHasParam is satisfied when the named query parameter exists.
type CondQueryHasParam struct {
	Name string
}

func (c CondQueryHasParam) SatisfiedBy(v *StateView) (bool, error) {
	return v.URL.HasQueryParam(c.Name), nil
}

// CondPathIs compares the escaped path to a literal.
type CondPathIs struct {
	Path string
}

func (c CondPathIs) SatisfiedBy(v *StateView) (bool, error) {
	return v.URL.Path() == c.Path, nil
}

// CondPartIs compares a URL part to a sourced value. Both being absent
// counts as equal.
type CondPartIs struct {
	Part  urlutil.Part `json:"part"`
	Value *SourceBox   `json:"value"`
}

func (c CondPartIs) SatisfiedBy(v *StateView) (bool, error) {
	part, partOK := c.Part.Get(v.URL)
	value, err := c.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if !partOK || value == nil {
		return !partOK && value == nil, nil
	}
	return part == *value, nil
}

// CondPartContains tests whether a sourced needle occurs in a URL part at
// a location. Absence of the part and absence of the needle each carry
// their own three-way null policy.
type CondPartContains struct {
	Part        urlutil.Part   `json:"part"`
	Value       *SourceBox     `json:"value"`
	Where       StringLocation `json:"where"`
	IfPartNull  types.IfNull   `json:"if_part_null"`
	IfValueNull types.IfNull   `json:"if_value_null"`
}

func (c CondPartContains) SatisfiedBy(v *StateView) (bool, error) {
	part, ok := c.Part.Get(v.URL)
	if !ok {
		return c.IfPartNull.Resolve(types.ErrPartIsNone)
	}
	value, err := c.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if value == nil {
		return c.IfValueNull.Resolve(types.ErrStringSourceIsNone)
	}
	return c.Where.SatisfiedBy(part, *value)
}

// CondPartMatches runs a string matcher against a URL part, with a null
// policy for the part being absent.
type CondPartMatches struct {
	Part    urlutil.Part `json:"part"`
	Matcher *MatcherBox  `json:"matcher"`
	IfNull  types.IfNull `json:"if_null"`
}

func (c CondPartMatches) SatisfiedBy(v *StateView) (bool, error) {
	part, ok := c.Part.Get(v.URL)
	if !ok {
		return c.IfNull.Resolve(types.ErrPartIsNone)
	}
	return c.Matcher.MatchedBy(part, v)
}

// CondPartIsOneOf tests set membership of a URL part. An absent part
// resolves to the configured boolean rather than a policy enum.
type CondPartIsOneOf struct {
	Part   urlutil.Part    `json:"part"`
	Values types.StringSet `json:"values"`
	IfNull bool            `json:"if_null"`
}

func (c CondPartIsOneOf) SatisfiedBy(v *StateView) (bool, error) {
	part, ok := c.Part.Get(v.URL)
	if !ok {
		return c.IfNull, nil
	}
	return c.Values.Contains(part), nil
}

// CondVarIs compares a run-wide variable to a sourced value. Both absent
// counts as equal.
type CondVarIs struct {
	Name  string     `json:"name"`
	Value *SourceBox `json:"value"`
}

func (c CondVarIs) SatisfiedBy(v *StateView) (bool, error) {
	current, ok := v.Params.Vars[c.Name]
	value, err := c.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if !ok || value == nil {
		return !ok && value == nil, nil
	}
	return current == *value, nil
}

// CondFlagIsSet tests a run-wide flag.
type CondFlagIsSet struct {
	Name string
}

func (c CondFlagIsSet) SatisfiedBy(v *StateView) (bool, error) {
	return v.Params.Flags.Contains(c.Name), nil
}

// CondAnyFlagIsSet tests whether any of the named run-wide flags is set.
type CondAnyFlagIsSet struct {
	Names []string
}

func (c CondAnyFlagIsSet) SatisfiedBy(v *StateView) (bool, error) {
	for _, name := range c.Names {
		if v.Params.Flags.Contains(name) {
			return true, nil
		}
	}
	return false, nil
}

// CondScratchpadFlagIsSet tests a job-local flag.
type CondScratchpadFlagIsSet struct {
	Name string
}

func (c CondScratchpadFlagIsSet) SatisfiedBy(v *StateView) (bool, error) {
	return v.Scratchpad.Flags.Contains(c.Name), nil
}

// CondCommonFlagIsSet tests a flag of the active common call. Outside a
// common call this is a context error.
type CondCommonFlagIsSet struct {
	Name string
}

func (c CondCommonFlagIsSet) SatisfiedBy(v *StateView) (bool, error) {
	if v.CommonArgs == nil {
		return false, types.ErrNotInCommonContext
	}
	return v.CommonArgs.Flags.Contains(c.Name), nil
}

// CondStringIs compares two sourced values. Both absent counts as equal.
type CondStringIs struct {
	Left  *SourceBox `json:"left"`
	Right *SourceBox `json:"right"`
}

func (c CondStringIs) SatisfiedBy(v *StateView) (bool, error) {
	left, err := c.Left.GetString(v)
	if err != nil {
		return false, err
	}
	right, err := c.Right.GetString(v)
	if err != nil {
		return false, err
	}
	if left == nil || right == nil {
		return left == nil && right == nil, nil
	}
	return *left == *right, nil
}

// CondStringContains tests whether a sourced needle occurs in a sourced
// haystack at a location. Either being none is an error.
type CondStringContains struct {
	Value     *SourceBox     `json:"value"`
	Substring *SourceBox     `json:"substring"`
	Where     StringLocation `json:"where"`
}

func (c CondStringContains) SatisfiedBy(v *StateView) (bool, error) {
	haystack, err := c.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if haystack == nil {
		return false, types.ErrStringSourceIsNone
	}
	needle, err := c.Substring.GetString(v)
	if err != nil {
		return false, err
	}
	if needle == nil {
		return false, types.ErrStringSourceIsNone
	}
	return c.Where.SatisfiedBy(*haystack, *needle)
}

// CondStringMatches runs a matcher against a sourced value.
type CondStringMatches struct {
	Value   *SourceBox  `json:"value"`
	Matcher *MatcherBox `json:"matcher"`
}

func (c CondStringMatches) SatisfiedBy(v *StateView) (bool, error) {
	value, err := c.Value.GetString(v)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, types.ErrStringSourceIsNone
	}
	return c.Matcher.MatchedBy(*value, v)
}

// CondPathSegmentsMatch runs matchers pairwise against path segments from
// a start offset; negative offsets count from the end. Strict mode fails
// outright when there are more matchers than remaining segments.
type CondPathSegmentsMatch struct {
	Start    int           `json:"start"`
	Matchers []*MatcherBox `json:"matchers"`
	Strict   bool          `json:"strict"`
}

func (c CondPathSegmentsMatch) SatisfiedBy(v *StateView) (bool, error) {
	segments, ok := v.URL.PathSegments()
	if !ok {
		return false, nil
	}
	start := c.Start
	if start < 0 {
		start += len(segments)
	}
	if start < 0 || start > len(segments) {
		return false, nil
	}
	remaining := segments[start:]
	if c.Strict && len(c.Matchers) > len(remaining) {
		return false, nil
	}
	for i, matcher := range c.Matchers {
		if i >= len(remaining) {
			break
		}
		matched, err := matcher.MatchedBy(remaining[i], v)
		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

// CondPartMap dispatches on the value of a URL part. A missing map key is
// false, not an error; an absent part uses if_none when present.
type CondPartMap struct {
	Part   urlutil.Part             `json:"part"`
	Map    map[string]*ConditionBox `json:"map"`
	IfNone *ConditionBox            `json:"if_none,omitempty"`
}

func (c CondPartMap) SatisfiedBy(v *StateView) (bool, error) {
	part, ok := c.Part.Get(v.URL)
	if !ok {
		if c.IfNone != nil {
			return c.IfNone.SatisfiedBy(v)
		}
		return false, nil
	}
	sub, ok := c.Map[part]
	if !ok {
		return false, nil
	}
	return sub.SatisfiedBy(v)
}

// CondStringMap dispatches on a sourced value, with the same missing-key
// contract as CondPartMap.
type CondStringMap struct {
	Source *SourceBox               `json:"source"`
	Map    map[string]*ConditionBox `json:"map"`
	IfNone *ConditionBox            `json:"if_none,omitempty"`
}

func (c CondStringMap) SatisfiedBy(v *StateView) (bool, error) {
	value, err := c.Source.GetString(v)
	if err != nil {
		return false, err
	}
	if value == nil {
		if c.IfNone != nil {
			return c.IfNone.SatisfiedBy(v)
		}
		return false, nil
	}
	sub, ok := c.Map[*value]
	if !ok {
		return false, nil
	}
	return sub.SatisfiedBy(v)
}

// CondCommandExists is satisfied when the configured program resolves.
type CondCommandExists struct {
	Command execs.Command
}

func (c CondCommandExists) SatisfiedBy(*StateView) (bool, error) {
	return c.Command.Exists(), nil
}

// CondCommandExitStatus runs a command with the current URL and compares
// its exit code.
type CondCommandExitStatus struct {
	Command execs.Command `json:"command"`
	Equals  int           `json:"equals"`
}

func (c CondCommandExitStatus) SatisfiedBy(v *StateView) (bool, error) {
	code, err := c.Command.ExitCode(v.URL.String())
	if err != nil {
		return false, err
	}
	return code == c.Equals, nil
}

// CondCommon evaluates a named common condition with scoped arguments.
type CondCommon struct {
	Name string            `json:"name"`
	Args *CommonArgsSource `json:"args,omitempty"`
}

func (c CondCommon) SatisfiedBy(v *StateView) (bool, error) {
	common, ok := v.Commons.Conditions[c.Name]
	if !ok {
		return false, fmt.Errorf("condition %q: %w", c.Name, types.ErrCommonNotFound)
	}
	args, err := c.Args.Eval(v)
	if err != nil {
		return false, err
	}
	nested, err := v.withCommonArgs(args)
	if err != nil {
		return false, err
	}
	return common.SatisfiedBy(nested)
}

// CondCustom is an embedder-supplied hook. It has no serialized form.
type CondCustom struct {
	Func func(*StateView) (bool, error)
}

func (c CondCustom) SatisfiedBy(v *StateView) (bool, error) {
	return c.Func(v)
}
