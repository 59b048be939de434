package grammar

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnsupportedGrammarVersion = errors.New("unsupported grammar version")
	ErrMalformedGrammarTable     = errors.New("malformed grammar table")
	ErrInvalidDefinition         = errors.New("invalid grammar definition")
)

// VersionError is returned when a grammar artifact carries a format version
// this package does not understand.
type VersionError struct {
	Language  string
	Got       int
	Supported int
}

func (e *VersionError) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("unsupported grammar version %d for %s (supported: %d)", e.Got, e.Language, e.Supported)
	}
	return fmt.Sprintf("unsupported grammar version %d (supported: %d)", e.Got, e.Supported)
}

// Is matches ErrUnsupportedGrammarVersion.
func (e *VersionError) Is(target error) bool {
	return target == ErrUnsupportedGrammarVersion
}

// MalformedError is returned when a grammar table fails validation.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed grammar table: %s: %v", e.Reason, e.Err)
	}
	return "malformed grammar table: " + e.Reason
}

// Unwrap returns the underlying decode error, if any.
func (e *MalformedError) Unwrap() error { return e.Err }

// Is matches ErrMalformedGrammarTable.
func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformedGrammarTable
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// DefinitionError reports a mistake in a Builder rule set.
type DefinitionError struct {
	Language string
	Rule     string
	Reason   string
}

func (e *DefinitionError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("grammar %s: rule %s: %s", e.Language, e.Rule, e.Reason)
	}
	return fmt.Sprintf("grammar %s: %s", e.Language, e.Reason)
}

// Is matches ErrInvalidDefinition.
func (e *DefinitionError) Is(target error) bool {
	return target == ErrInvalidDefinition
}
