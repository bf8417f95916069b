/*
Package rules implements the declarative URL rewriting language: five
mutually recursive expression families (Condition, Mapper, StringSource,
StringMatcher, StringLocation), the Rule/Rules units that drive them, and
the per-job execution state they evaluate against.

Expression trees are built once when configuration loads and are immutable
afterwards, so one tree is safely shared by every worker of a run. All
mutation flows through State, which one worker exclusively owns for the
duration of one job.
*/
package rules

import (
	"github.com/urlwash/urlwash/internal/cache"
	"github.com/urlwash/urlwash/internal/fetch"
	"github.com/urlwash/urlwash/internal/types"
	"github.com/urlwash/urlwash/internal/urlutil"
)

// Scratchpad holds per-job mutable flags and variables. Created empty for
// each job and discarded with it.
type Scratchpad struct {
	Flags types.StringSet
	Vars  map[string]string
}

// NewScratchpad returns an empty scratchpad.
func NewScratchpad() *Scratchpad {
	return &Scratchpad{
		Flags: types.NewStringSet(),
		Vars:  map[string]string{},
	}
}

// CommonArgs are the evaluated argument bindings of one common call. They
// are visible only to evaluation inside that call.
type CommonArgs struct {
	Flags types.StringSet
	Vars  map[string]string
}

// CommonArgsSource is the unevaluated argument list a Common reference
// carries. Var sources are evaluated in the caller's context; a source
// that produces no value leaves its var unbound.
type CommonArgsSource struct {
	Flags []string              `json:"flags,omitempty"`
	Vars  map[string]*SourceBox `json:"vars,omitempty"`
}

// Eval resolves the argument sources against the caller's view.
func (s *CommonArgsSource) Eval(v *StateView) (*CommonArgs, error) {
	args := &CommonArgs{
		Flags: types.NewStringSet(),
		Vars:  map[string]string{},
	}
	if s == nil {
		return args, nil
	}
	for _, f := range s.Flags {
		args.Flags.Add(f)
	}
	for name, src := range s.Vars {
		value, err := src.GetString(v)
		if err != nil {
			return nil, err
		}
		if value != nil {
			args.Vars[name] = *value
		}
	}
	return args, nil
}

// Commons is the read-only registry of reusable named sub-trees, resolved
// by name at evaluation time.
type Commons struct {
	Conditions map[string]*ConditionBox `json:"conditions,omitempty"`
	Mappers    map[string]*MapperBox    `json:"mappers,omitempty"`
	Sources    map[string]*SourceBox    `json:"sources,omitempty"`
}

// State is the execution context of one job. It exclusively owns the
// mutable URL; everything else is shared, read-only, or job-local.
type State struct {
	URL        *urlutil.URL
	Scratchpad *Scratchpad
	CommonArgs *CommonArgs
	Params     *types.Params
	Commons    *Commons
	Cache      *cache.Cache
	HTTP       *fetch.Client
	JobContext *types.JobContext
	Pipeline   *types.PipelineContext

	commonDepth int
}

// NewState builds the state for one job. Nil Params gets defaults; nil
// contexts are replaced with empty ones.
func NewState(u *urlutil.URL, params *types.Params, commons *Commons, c *cache.Cache) *State {
	if params == nil {
		params = types.NewParams()
	}
	if commons == nil {
		commons = &Commons{}
	}
	return &State{
		URL:        u,
		Scratchpad: NewScratchpad(),
		Params:     params,
		Commons:    commons,
		Cache:      c,
		HTTP:       fetch.New(params.HTTP),
		JobContext: &types.JobContext{},
		Pipeline:   &types.PipelineContext{},
	}
}

// View returns the read-only view condition and source evaluation runs
// against. The view shares the state's URL and scratchpad; it must not
// outlive the job.
func (s *State) View() *StateView {
	return &StateView{
		URL:         s.URL,
		Scratchpad:  s.Scratchpad,
		CommonArgs:  s.CommonArgs,
		Params:      s.Params,
		Commons:     s.Commons,
		Cache:       s.Cache,
		HTTP:        s.HTTP,
		JobContext:  s.JobContext,
		Pipeline:    s.Pipeline,
		commonDepth: s.commonDepth,
	}
}

// withCommonArgs returns the nested state a common call evaluates in. The
// caller's own args are deliberately not visible to the callee.
func (s *State) withCommonArgs(args *CommonArgs) (*State, error) {
	if s.commonDepth >= types.MaxCommonCallDepth {
		return nil, types.ErrCommonCallDepth
	}
	nested := *s
	nested.CommonArgs = args
	nested.commonDepth++
	return &nested, nil
}

// StateView is the read-only variant of State. Conditions, sources, and
// matchers evaluate against a view; only mappers get the full State.
type StateView struct {
	URL        *urlutil.URL
	Scratchpad *Scratchpad
	CommonArgs *CommonArgs
	Params     *types.Params
	Commons    *Commons
	Cache      *cache.Cache
	HTTP       *fetch.Client
	JobContext *types.JobContext
	Pipeline   *types.PipelineContext

	commonDepth int
}

func (v *StateView) withCommonArgs(args *CommonArgs) (*StateView, error) {
	if v.commonDepth >= types.MaxCommonCallDepth {
		return nil, types.ErrCommonCallDepth
	}
	nested := *v
	nested.CommonArgs = args
	nested.commonDepth++
	return &nested, nil
}

// contextVar resolves a variable from job context, then pipeline context.
func (v *StateView) contextVar(name string) (string, bool) {
	if v.JobContext != nil {
		if value, ok := v.JobContext.Vars[name]; ok {
			return value, true
		}
	}
	if v.Pipeline != nil {
		if value, ok := v.Pipeline.Vars[name]; ok {
			return value, true
		}
	}
	return "", false
}
