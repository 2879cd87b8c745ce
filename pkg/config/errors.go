package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration is the sentinel wrapped by every ConfigurationError.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError reports an option that cannot be resolved or a model file that is
// structurally invalid.
type ConfigurationError struct {
	Key        string
	Technology string
	Location   string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Key != "" {
		fmt.Fprintf(&b, " for %q", e.Key)
	}
	if e.Technology != "" {
		fmt.Fprintf(&b, " (tech %s", e.Technology)
		if e.Location != "" {
			fmt.Fprintf(&b, ", location %s", e.Location)
		}
		b.WriteString(")")
	} else if e.Location != "" {
		fmt.Fprintf(&b, " (location %s)", e.Location)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func newConfigError(key, loc, reason string) *ConfigurationError {
	tech, _, _ := strings.Cut(key, ".")
	return &ConfigurationError{Key: key, Technology: tech, Location: loc, Reason: reason}
}
