package animator

import "errors"

var (
	// ErrTooManyWriteFailures is returned when uniform writes failed more often than
	// Config.MaxWriteFailures allows.
	ErrTooManyWriteFailures = errors.New("too many uniform write failures")

	// ErrInvalidConfig is returned by New for unusable settings.
	ErrInvalidConfig = errors.New("invalid animator config")
)
