package wordnet

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a lookup miss: the word, sense or synset is not in the graph
	ErrNotFound = errors.New("not found")
	// ErrNotFinalized reports a probability operation on an ontology still being extracted
	ErrNotFinalized = errors.New("ontology is not finalized")
)

// ConsistencyError signals an algorithmic bug: tables that do not sum to one, a missing
// common ancestor, negative counts. Callers must abort the run.
type ConsistencyError struct {
	Op     string
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency violation in %s: %s", e.Op, e.Reason)
}

// Inconsistent builds a ConsistencyError
func Inconsistent(op, format string, args ...any) error {
	return &ConsistencyError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// IsConsistencyError reports whether err wraps a ConsistencyError
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// FormatError reports malformed external input. Loading stops on the first one.
type FormatError struct {
	File   string
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// Malformed builds a FormatError
func Malformed(file string, line int, format string, args ...any) error {
	return &FormatError{File: file, Line: line, Reason: fmt.Sprintf(format, args...)}
}
