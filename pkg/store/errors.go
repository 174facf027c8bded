package store

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies failures for callers that report them structurally.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindResolution ErrorKind = "resolution"
	KindDecode     ErrorKind = "decode"
	KindIntegrity  ErrorKind = "integrity"
	KindInternal   ErrorKind = "internal"
)

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// ValidationError reports malformed or missing caller input.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e ValidationError) Kind() ErrorKind { return KindValidation }

// NotFoundError reports an id that matches no file in any status directory.
type NotFoundError struct {
	ID       string
	Searched []string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s (searched %s)", e.ID, strings.Join(e.Searched, ", "))
}

func (e NotFoundError) Kind() ErrorKind { return KindNotFound }

// DecodeError reports a record whose header cannot be parsed.
type DecodeError struct {
	Path   string
	Field  string
	Reason string
	Err    error
}

func (e DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("decoding")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Field != "" {
		b.WriteString(": field " + e.Field)
	}
	b.WriteString(": " + e.Reason)
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e DecodeError) Unwrap() error { return e.Err }

func (e DecodeError) Kind() ErrorKind { return KindDecode }

// IntegrityError reports an operation that would break a store invariant.
type IntegrityError struct {
	ID     string
	Reason string
	Paths  []string
}

func (e IntegrityError) Error() string {
	msg := fmt.Sprintf("integrity violation for %s: %s", e.ID, e.Reason)
	if len(e.Paths) > 0 {
		msg += " (" + strings.Join(e.Paths, ", ") + ")"
	}
	return msg
}

func (e IntegrityError) Kind() ErrorKind { return KindIntegrity }

// TransitionError reports a status change outside the allowed state machine.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("task %s cannot move from %s to %s", e.ID, e.From, e.To)
}

func (e TransitionError) Kind() ErrorKind { return KindIntegrity }
