package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	perrors "github.com/pkg/errors"
)

// ErrInvalidDemand is a user input error: memory demand must be a positive
// integer number of MB. It never affects simulation state.
var ErrInvalidDemand = errors.New("memory demand must be a positive integer")

// InvariantError reports a broken simulation invariant such as a double
// release or a process found in two registry lists. It carries the stack of
// the detection site.
type InvariantError struct {
	Component string
	cause     error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: invariant violation: %v", e.Component, e.cause)
}

func (e *InvariantError) Unwrap() error { return e.cause }

// Format prints the detection stack with %+v.
func (e *InvariantError) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		_, _ = fmt.Fprintf(s, "%s: invariant violation: %+v", e.Component, e.cause)
		return
	}
	_, _ = fmt.Fprint(s, e.Error())
}

// NewInvariantError creates an invariant violation raised by component.
func NewInvariantError(component string, format string, args ...interface{}) error {
	return &InvariantError{Component: component, cause: perrors.WithStack(fmt.Errorf(format, args...))}
}

// IsInvariant reports whether err (or anything it wraps) is an invariant violation.
func IsInvariant(err error) bool {
	var target *InvariantError
	return errors.As(err, &target)
}

// ValidateDemand returns ErrInvalidDemand for non-positive demand.
func ValidateDemand(demand int) error {
	if demand <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDemand, demand)
	}
	return nil
}

// ParseDemand parses manual input into a demand in MB.
func ParseDemand(text string) (int, error) {
	text = strings.TrimSpace(text)
	demand, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidDemand, text)
	}
	if err = ValidateDemand(demand); err != nil {
		return 0, err
	}
	return demand, nil
}
