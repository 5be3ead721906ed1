// Package pipeline describes the media pipeline collaborator the animator and the shutdown
// sequencer drive. Backends (GStreamer, native GL) implement Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"time"
)

// State mirrors the lifecycle states of a media pipeline.
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "null"
	case StateReady:
		return "ready"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// UniformHandle is a transient view of a shader stage's live uniform state. It is only
// valid for the tick it was looked up in and must never be cached.
type UniformHandle interface {
	SetUniform1f(name string, value float32) error
}

// UniformSource resolves the live uniform handle of a stage. ok is false while the stage
// has not created its shader program yet, or after it has been torn down.
type UniformSource interface {
	LiveUniforms(stage string) (h UniformHandle, ok bool)
	NotifyStateChanged(stage string) error
}

// Bus is the read side of a pipeline's asynchronous message bus.
type Bus interface {
	// PopMessage blocks until a message of one of the given types arrives, the timeout
	// elapses or ctx is done. A timeout returns (nil, nil). No types means any type.
	PopMessage(ctx context.Context, timeout time.Duration, types ...MessageType) (*Message, error)
}

// Pipeline is the full collaborator surface used by the session.
type Pipeline interface {
	UniformSource
	Bus

	SetState(state State) error
	State() State
	SendEndOfStream() error
}
