package resolve

import (
	"errors"
	"fmt"

	"github.com/renovate-resolver/resolver/engine/schema"
)

const (
	MsgInvalidConfig  = "Invalid Renovate config"
	MsgInternalError  = "Internal Server Error"
	MsgNotAnObject    = "Renovate config must be a JSON object"
	MsgSchemaNotReady = "Renovate schema is not available"
)

var ErrMalformedRequest = errors.New("malformed request body")

// ValidationError carries every schema violation of a rejected document.
type ValidationError struct {
	Violations []schema.Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d violation(s)", MsgInvalidConfig, len(e.Violations))
}

// ErrorBody is the JSON shape of every failed /resolve response.
type ErrorBody struct {
	Error   string             `json:"error"`
	Details []schema.Violation `json:"details,omitempty"`
}
