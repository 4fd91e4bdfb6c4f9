package core

import (
	"errors"
	"fmt"
)

// ErrUnauthorized signals a missing or invalid session credential. No session
// state is created when it is returned.
var ErrUnauthorized = errors.New("unauthorized")

// ConfigurationError marks a programming or wiring defect (an unknown skill
// referenced by a mode, a gated tool without a registered executor, ...).
// These fail loudly; nothing in the runtime silently substitutes a default
// for a broken configuration.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a ConfigurationError with a formatted message.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}
