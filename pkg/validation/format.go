// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/fleet-optimizer/pkg/constants"
)

// OutputFormats lists the supported report formats in display order.
var OutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatYAML,
	constants.OutputFormatMarkdown,
}

// LogLevels lists the accepted logging levels.
var LogLevels = []string{"debug", "info", "warn", "error"}

// LogFormats lists the accepted logging encodings.
var LogFormats = []string{"json", "console"}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	return oneOf("output format", format, OutputFormats)
}

// ValidateLogLevel checks if the logging level is one zap understands.
func ValidateLogLevel(level string) error {
	return oneOf("log level", level, LogLevels)
}

// ValidateLogFormat checks if the logging encoding is supported.
func ValidateLogFormat(format string) error {
	return oneOf("log format", format, LogFormats)
}

func oneOf(what, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("expected %s of %s, got %q", what, strings.Join(allowed, ", "), value)
}
