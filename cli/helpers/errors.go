package helpers

import (
	"errors"
	"fmt"
)

var (
	// ErrPortUnavailable reports that the configured listen address is taken.
	ErrPortUnavailable = errors.New("port unavailable")
	// ErrInvalidFlag reports a flag value that cannot be applied.
	ErrInvalidFlag = errors.New("invalid flag value")
)

// PortError describes a listen address that could not be bound.
type PortError struct {
	Host  string
	Port  int
	Cause error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("port %d is not available on host %s: %v", e.Port, e.Host, e.Cause)
}

func (e *PortError) Is(target error) bool {
	return target == ErrPortUnavailable
}

func (e *PortError) Unwrap() error {
	return e.Cause
}

// FlagError wraps a rejected flag.
type FlagError struct {
	Flag  string
	Value string
	Cause error
}

func (e *FlagError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid value %q for --%s: %v", e.Value, e.Flag, e.Cause)
	}
	return fmt.Sprintf("invalid value %q for --%s", e.Value, e.Flag)
}

func (e *FlagError) Is(target error) bool {
	return target == ErrInvalidFlag
}

func (e *FlagError) Unwrap() error {
	return e.Cause
}
