package compute

import (
	"errors"
	"fmt"

	"github.com/chazu/isocurve/pkg/graph"
)

// ErrorKind classifies a per-node build failure.
type ErrorKind int

const (
	// InputMissing is a required input pin that is not linked.
	InputMissing ErrorKind = iota + 1
	// NoInputData is a linked upstream node that has no result because it
	// does not exist.
	NoInputData
	// InternalError is a state the builders never produce for valid
	// graphs.
	InternalError
	// IncorrectAttributes is a structural attribute out of range or empty.
	IncorrectAttributes
	// IncorrectExpression is an expression the parser or validator
	// rejected.
	IncorrectExpression
	// IncorrectInput is an upstream result of the wrong kind or with a
	// mismatched parameter.
	IncorrectInput
	// BlockedByUpstream is a node whose upstream failed to build.
	BlockedByUpstream
)

var errorKindNames = map[ErrorKind]string{
	InputMissing:        "input missing",
	NoInputData:         "no input data",
	InternalError:       "internal error",
	IncorrectAttributes: "incorrect attributes",
	IncorrectExpression: "incorrect expression",
	IncorrectInput:      "incorrect input",
	BlockedByUpstream:   "blocked by upstream",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ProcessingError is why one node failed to build.
type ProcessingError struct {
	Kind ErrorKind
	Node graph.NodeID
	// Detail is a human-readable description.
	Detail string
	Err    error
}

func (e *ProcessingError) Error() string {
	msg := fmt.Sprintf("node %s: %s", e.Node, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// RecoverableError is a per-node failure. The rest of the graph still
// builds and runs.
type RecoverableError struct {
	*ProcessingError
}

func (e RecoverableError) Error() string { return e.ProcessingError.Error() }

func (e RecoverableError) Unwrap() error { return e.ProcessingError }

// UnrecoverableError aborts a whole build. The only cause is a dependency
// cycle.
type UnrecoverableError struct {
	Cycle *graph.CycleError
}

func (e *UnrecoverableError) Error() string {
	return fmt.Sprintf("unrecoverable: %v", e.Cycle)
}

func (e *UnrecoverableError) Unwrap() error { return e.Cycle }

// IsUnrecoverable reports whether err aborted a build.
func IsUnrecoverable(err error) bool {
	var u *UnrecoverableError
	return errors.As(err, &u)
}

// IsRecoverable reports whether err is a per-node failure.
func IsRecoverable(err error) bool {
	var r RecoverableError
	return errors.As(err, &r)
}

// KindOf returns the kind of the ProcessingError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var p *ProcessingError
	if errors.As(err, &p) {
		return p.Kind, true
	}
	return 0, false
}

func failf(kind ErrorKind, err error, format string, args ...any) *ProcessingError {
	return &ProcessingError{Kind: kind, Detail: fmt.Sprintf(format, args...), Err: err}
}

func fail(kind ErrorKind, detail string) *ProcessingError {
	return &ProcessingError{Kind: kind, Detail: detail}
}
