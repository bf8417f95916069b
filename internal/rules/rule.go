package rules

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urlwash/urlwash/internal/types"
)

// Rule is one rewriting unit: either a condition guarding a mapper, or a
// host-keyed mapper dispatch. Exactly one of the two forms is populated.
type Rule struct {
	Condition *ConditionBox
	Mapper    *MapperBox

	HostMap map[string]*MapperBox
}

// UnmarshalJSON distinguishes the two forms by shape: an object with
// "condition" and "mapper" keys is a normal rule, any other object is a
// host-to-mapper map.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("rule: %w", err)
	}

	_, hasCondition := probe["condition"]
	_, hasMapper := probe["mapper"]
	if hasCondition || hasMapper {
		if !hasCondition || !hasMapper {
			return errors.New("rule: a normal rule needs both condition and mapper")
		}
		if len(probe) != 2 {
			return fmt.Errorf("rule: unexpected keys alongside condition/mapper")
		}
		var normal struct {
			Condition *ConditionBox `json:"condition"`
			Mapper    *MapperBox    `json:"mapper"`
		}
		if err := json.Unmarshal(data, &normal); err != nil {
			return err
		}
		*r = Rule{Condition: normal.Condition, Mapper: normal.Mapper}
		return nil
	}

	var hostMap map[string]*MapperBox
	if err := json.Unmarshal(data, &hostMap); err != nil {
		return err
	}
	*r = Rule{HostMap: hostMap}
	return nil
}

// Apply runs the rule against the state. A normal rule whose condition
// does not hold returns ErrConditionNotMet; a host-map rule on a hostless
// URL returns ErrNoHost, and an unmapped host returns ErrHostNotInMap.
// All three are distinguished, ignorable outcomes, not hard failures.
func (r *Rule) Apply(st *State) error {
	if r.HostMap != nil {
		host, ok := st.URL.Hostname()
		if !ok {
			return types.ErrNoHost
		}
		mapper, ok := r.HostMap[host]
		if !ok {
			return types.ErrHostNotInMap
		}
		return mapper.Apply(st)
	}

	satisfied, err := r.Condition.SatisfiedBy(st.View())
	if err != nil {
		return err
	}
	if !satisfied {
		return types.ErrConditionNotMet
	}
	return r.Mapper.Apply(st)
}

// Rules is an ordered rule list applied transactionally to one URL.
type Rules []*Rule

// ignorable reports whether a rule outcome lets iteration continue.
func ignorable(err error) bool {
	return errors.Is(err, types.ErrConditionNotMet) ||
		errors.Is(err, types.ErrNoHost) ||
		errors.Is(err, types.ErrHostNotInMap)
}

// Apply runs every rule in order against a scratch copy of the URL.
// Ignorable outcomes skip to the next rule; any other error aborts and
// leaves the caller's URL byte-for-byte untouched. Only a full pass
// commits the scratch copy back.
func (rs Rules) Apply(st *State) error {
	original := st.URL
	scratch := original.Clone()
	st.URL = scratch
	defer func() { st.URL = original }()

	for i, rule := range rs {
		err := rule.Apply(st)
		if err == nil || ignorable(err) {
			continue
		}
		return fmt.Errorf("rule %d: %w", i, err)
	}

	original.CopyFrom(scratch)
	return nil
}
