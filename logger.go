package compose

import "github.com/rs/zerolog"

// logger is the package-wide logger used by runtimes without their own.
var logger = zerolog.Nop()

// SetLogger overrides the package logger.
//
// If not set, log output is discarded. Use WithLogger for a per-runtime logger.
func SetLogger(l zerolog.Logger) {
	logger = l
}
