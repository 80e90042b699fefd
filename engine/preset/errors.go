package preset

import (
	"errors"
	"fmt"
)

// Reason classifies why a preset could not be resolved.
type Reason string

const (
	ReasonDepNotFound            Reason = "dep not found"
	ReasonNotFound               Reason = "preset not found"
	ReasonRenovateConfigNotFound Reason = "preset renovate-config not found"
	ReasonInvalid                Reason = "invalid preset"
	ReasonInvalidJSON            Reason = "invalid preset JSON"
	ReasonProhibitedSubpreset    Reason = "prohibited sub-preset"
	ReasonTooDeep                Reason = "preset nesting too deep"
	ReasonFetchFailed            Reason = "preset fetch failed"
)

var (
	ErrPresetNotFound = errors.New(string(ReasonNotFound))
	ErrDepNotFound    = errors.New(string(ReasonDepNotFound))
)

// Error is returned by Resolve for every preset failure. Its message is safe to
// return to API clients.
type Error struct {
	Preset string
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	switch e.Reason {
	case ReasonDepNotFound:
		return fmt.Sprintf("Cannot find preset's package (%s)", e.Preset)
	case ReasonNotFound:
		return fmt.Sprintf("Preset name not found within published preset config (%s)", e.Preset)
	case ReasonRenovateConfigNotFound:
		return fmt.Sprintf("Preset package is missing a renovate-config entry (%s)", e.Preset)
	case ReasonInvalid:
		return fmt.Sprintf("Preset is invalid (%s)", e.Preset)
	case ReasonInvalidJSON:
		return fmt.Sprintf("Preset is invalid JSON (%s)", e.Preset)
	case ReasonProhibitedSubpreset:
		return fmt.Sprintf("Sub-presets cannot be combined with a custom path (%s)", e.Preset)
	case ReasonTooDeep:
		return fmt.Sprintf("Preset nesting is too deep (%s)", e.Preset)
	default:
		return fmt.Sprintf("Preset caused unexpected error (%s)", e.Preset)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(preset string, reason Reason, err error) *Error {
	return &Error{Preset: preset, Reason: reason, Err: err}
}

// asError attaches the preset name to an error returned by a source.
func asError(preset string, err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		if perr.Preset == "" {
			perr.Preset = preset
		}
		return perr
	}
	switch {
	case errors.Is(err, ErrDepNotFound):
		return newError(preset, ReasonDepNotFound, err)
	case errors.Is(err, ErrPresetNotFound):
		return newError(preset, ReasonNotFound, err)
	default:
		return newError(preset, ReasonFetchFailed, err)
	}
}
