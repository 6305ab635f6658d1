package numdir

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates a malformed base name, retention count or
	// relative path. It is never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCollisionExhausted indicates every candidate name was already taken.
	ErrCollisionExhausted = errors.New("collision retries exhausted")

	// ErrRetirement indicates that removing obsolete directories failed. The
	// allocation that triggered the retirement is still valid.
	ErrRetirement = errors.New("retirement failed")
)

// RemoveFailure records one obsolete directory that could not be removed.
type RemoveFailure struct {
	Path string
	Err  error
}

// RetirementError reports every obsolete directory that could not be
// removed during one retirement pass.
type RetirementError struct {
	Failures []RemoveFailure
}

func (e *RetirementError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: could not remove %d obsolete director", ErrRetirement, len(e.Failures))
	if len(e.Failures) == 1 {
		b.WriteString("y")
	} else {
		b.WriteString("ies")
	}
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "; %s: %v", f.Path, f.Err)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrRetirement) true.
func (e *RetirementError) Is(target error) bool {
	return target == ErrRetirement
}

// Unwrap exposes the underlying removal errors.
func (e *RetirementError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
