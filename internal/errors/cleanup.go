// Package errors provides error-handling utilities shared across the module.
package errors

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/rs/zerolog"
)

// DeferClose properly closes an io.Closer with logging.
// Use this in defer statements to avoid suppressing close errors.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DeferRemove removes a file with logging, ignoring already-gone paths.
// Use this in defer statements for temp artifacts such as marker files.
func DeferRemove(logger zerolog.Logger, remove func() error, msg string) {
	if remove == nil {
		return
	}
	if err := remove(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Msg(msg)
	}
}

// Must panics if error is not nil.
// Use only for initialization code where failure should halt the program.
func Must(err error, msg string) {
	if err != nil {
		panic(fmt.Sprintf("%s: %v", msg, err))
	}
}
