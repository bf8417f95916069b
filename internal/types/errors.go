package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the expression evaluator and the rule engine.
var (
	// ErrExplicit is returned by the Error variant of every expression
	// family. It exists so configs can be tested for correct error routing.
	ErrExplicit = errors.New("explicit error variant evaluated")

	// ErrStringSourceIsNone indicates a string source produced no value
	// where one was required.
	ErrStringSourceIsNone = errors.New("string source returned no value")

	// ErrPartIsNone indicates the requested URL part is absent.
	ErrPartIsNone = errors.New("url does not have the requested part")

	// ErrPartReadOnly indicates an attempt to write a derived URL part.
	ErrPartReadOnly = errors.New("url part cannot be set")

	// ErrInvalidSlice indicates a string location's bounds fall outside the
	// haystack or split a multi-byte character.
	ErrInvalidSlice = errors.New("slice bounds out of range or not on a character boundary")

	// ErrSegmentRange indicates a path segment index is out of range.
	ErrSegmentRange = errors.New("path segment range not found")

	// ErrPrefixNotPresent indicates a strict prefix strip found no prefix.
	ErrPrefixNotPresent = errors.New("prefix not present")

	// ErrSuffixNotPresent indicates a strict suffix strip found no suffix.
	ErrSuffixNotPresent = errors.New("suffix not present")

	// ErrNotInCommonContext indicates a common-argument lookup happened
	// outside of a common call.
	ErrNotInCommonContext = errors.New("not in a common context")

	// ErrCommonNotFound indicates a named common sub-tree does not exist.
	ErrCommonNotFound = errors.New("common not found")

	// ErrCommonCallDepth indicates the nested common call limit was hit.
	// Commons may reference each other (or themselves) freely, so recursion
	// is bounded at evaluation time rather than validated statically.
	ErrCommonCallDepth = errors.New("common call depth limit exceeded")

	// ErrConditionNotMet is the distinguished, ignorable outcome of a rule
	// whose condition did not pass.
	ErrConditionNotMet = errors.New("rule condition not met")

	// ErrNoHost indicates a host-map rule was applied to a URL without a
	// host. Ignorable at the rule-list level.
	ErrNoHost = errors.New("url has no host to look up")

	// ErrHostNotInMap indicates the URL's host has no entry in a host-map
	// rule. Ignorable at the rule-list level.
	ErrHostNotInMap = errors.New("host not present in host map")

	// ErrNoExitCode indicates an external command terminated without an
	// exit code (killed by a signal).
	ErrNoExitCode = errors.New("command terminated without an exit code")
)

// TryElseError is returned when both branches of a TryElse fail. It carries
// both inner errors rather than discarding the first.
type TryElseError struct {
	Try  error
	Else error
}

func (e *TryElseError) Error() string {
	return fmt.Sprintf("both try and else failed: try: %v; else: %v", e.Try, e.Else)
}

// Unwrap exposes both branch errors to errors.Is and errors.As.
func (e *TryElseError) Unwrap() []error {
	return []error{e.Try, e.Else}
}
