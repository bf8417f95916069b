// Package types provides domain models shared across urlwash components.
//
// Zero-dependency design: everything here uses encoding/json only, so the
// expression evaluator, the cache, and the job pipeline can all depend on it
// without pulling in each other. ID utilities in ids.go import uuid but are
// isolated for selective inclusion.
package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobID identifies one job inside a pipeline run.
type JobID string

// RunID identifies one pipeline run.
type RunID string

// StringSet is a set of strings with JSON array encoding.
type StringSet map[string]struct{}

// NewStringSet builds a set from its members.
func NewStringSet(members ...string) StringSet {
	s := make(StringSet, len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Contains reports set membership.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Add inserts a member.
func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

// Remove deletes a member.
func (s StringSet) Remove(v string) {
	delete(s, v)
}

// MarshalJSON encodes the set as a JSON array.
func (s StringSet) MarshalJSON() ([]byte, error) {
	members := make([]string, 0, len(s))
	for m := range s {
		members = append(members, m)
	}
	return json.Marshal(members)
}

// UnmarshalJSON decodes a JSON array into the set.
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var members []string
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	*s = NewStringSet(members...)
	return nil
}

// HTTPConfig holds the outbound HTTP settings leaf evaluators use.
// These are configuration values, not cancellation primitives: the pipeline
// itself never aborts an in-flight evaluation.
type HTTPConfig struct {
	Timeout      time.Duration `json:"timeout,omitempty"`
	UserAgent    string        `json:"user_agent,omitempty"`
	MaxRedirects int           `json:"max_redirects,omitempty"`
}

// DefaultHTTPConfig returns the HTTP settings used when a config specifies
// none.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:      10 * time.Second,
		UserAgent:    "urlwash",
		MaxRedirects: 10,
	}
}

// Params are the process-wide, read-only inputs of a pipeline run: flags,
// variables, and HTTP client settings. Built once, after all ParamsDiffs are
// applied, and shared by reference across every job and worker. Never
// mutated afterwards.
type Params struct {
	Flags StringSet         `json:"flags,omitempty"`
	Vars  map[string]string `json:"vars,omitempty"`
	HTTP  HTTPConfig        `json:"http,omitempty"`
}

// NewParams returns empty params with default HTTP settings.
func NewParams() *Params {
	return &Params{
		Flags: NewStringSet(),
		Vars:  map[string]string{},
		HTTP:  DefaultHTTPConfig(),
	}
}

// ParamsDiff is a configuration diff applied to Params before a run starts.
// Unset wins over set: removals are applied after insertions so a diff can
// both define and mask in one pass.
type ParamsDiff struct {
	Flags   []string          `json:"flags,omitempty"`
	Unflags []string          `json:"unflags,omitempty"`
	Vars    map[string]string `json:"vars,omitempty"`
	Unvars  []string          `json:"unvars,omitempty"`
	HTTP    *HTTPConfig       `json:"http,omitempty"`
}

// Apply mutates p in place. Only valid before the params are frozen and
// shared with workers.
func (d *ParamsDiff) Apply(p *Params) {
	for _, f := range d.Flags {
		p.Flags.Add(f)
	}
	for _, f := range d.Unflags {
		p.Flags.Remove(f)
	}
	for k, v := range d.Vars {
		p.Vars[k] = v
	}
	for _, k := range d.Unvars {
		delete(p.Vars, k)
	}
	if d.HTTP != nil {
		p.HTTP = *d.HTTP
	}
}

// JobContext is per-job context supplied alongside the URL in a job
// configuration.
type JobContext struct {
	Vars map[string]string `json:"vars,omitempty"`
}

// PipelineContext is context shared by every job of one pipeline run.
type PipelineContext struct {
	Vars map[string]string `json:"vars,omitempty"`
}

// IfNull selects what happens when a lookup legitimately produced no value:
// propagate an error, treat as a failed check, or treat as a passed check.
// This is a first-class configuration knob, selected per call site.
type IfNull int

const (
	// IfNullError propagates the error. The default.
	IfNullError IfNull = iota
	// IfNullFail treats the absent value as a failed check.
	IfNullFail
	// IfNullPass treats the absent value as a passed check.
	IfNullPass
)

// Resolve turns an absent-value error into the configured boolean outcome.
func (p IfNull) Resolve(err error) (bool, error) {
	switch p {
	case IfNullFail:
		return false, nil
	case IfNullPass:
		return true, nil
	default:
		return false, err
	}
}

// MarshalJSON encodes the policy by its literal name.
func (p IfNull) MarshalJSON() ([]byte, error) {
	switch p {
	case IfNullError:
		return json.Marshal("Error")
	case IfNullFail:
		return json.Marshal("Fail")
	case IfNullPass:
		return json.Marshal("Pass")
	}
	return nil, fmt.Errorf("unknown IfNull value %d", int(p))
}

// UnmarshalJSON accepts the literal values Error, Fail, and Pass.
func (p *IfNull) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "Error":
		*p = IfNullError
	case "Fail":
		*p = IfNullFail
	case "Pass":
		*p = IfNullPass
	default:
		return fmt.Errorf("unknown IfNull value %q (expected Error, Fail, or Pass)", s)
	}
	return nil
}

// Resource limits enforced during evaluation.
const (
	// MaxCommonCallDepth bounds nested common calls. Commons are resolved
	// by name at evaluation time with no static acyclicity check, so
	// self-referential commons would otherwise recurse without bound.
	MaxCommonCallDepth = 64
)
