package fleet

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig classifies malformed inputs and parameters. It is
	// returned before any solve is attempted and is distinct from an
	// infeasible selection, which is reported through Status.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownVessel is returned when a vessel id is not in the table.
	ErrUnknownVessel = errors.New("unknown vessel")
)

// Invalidf returns an error wrapping ErrInvalidConfig.
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
