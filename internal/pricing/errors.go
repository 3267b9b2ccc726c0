package pricing

import "fmt"

// ValidationError reports malformed or out-of-domain engine input. It is always
// surfaced to the caller and never silently corrected.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("pricing: invalid %s: %s", e.Field, e.Reason)
}

// ConfigError reports a missing, unknown, or out-of-range rate configuration
// entry. It is fatal to the single calculation that observed it.
type ConfigError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("pricing: rate %s: %s", e.Key, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func configErr(key, reason string) *ConfigError {
	return &ConfigError{Key: key, Reason: reason}
}
