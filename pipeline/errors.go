package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrPipelineError classifies error messages posted on a pipeline bus.
	ErrPipelineError = errors.New("pipeline error")

	// ErrHandleGone is returned by a uniform handle whose stage was torn down.
	ErrHandleGone = errors.New("live uniform handle no longer exists")

	// ErrUnknownStage is returned for a stage name the pipeline does not contain.
	ErrUnknownStage = errors.New("unknown pipeline stage")

	// ErrBusClosed is returned by PopMessage once the bus has been closed and drained.
	ErrBusClosed = errors.New("bus closed")
)

// BusError is the error carried by a MessageError.
type BusError struct {
	Source  string
	Message string
	Debug   string
}

func (e *BusError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("pipeline error: %s", e.Message)
	}
	return fmt.Sprintf("pipeline error from %s: %s", e.Source, e.Message)
}

func (e *BusError) Unwrap() error {
	return ErrPipelineError
}
