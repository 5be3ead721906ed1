//go:build !cgo

package gstpipeline

import (
	"context"
	"errors"
	"time"

	"github.com/richinsley/glshaderanim/pipeline"
)

// ErrCGORequired is returned when GStreamer functions are called without CGO support.
var ErrCGORequired = errors.New("GStreamer support requires CGO")

// Pipeline is a stub when CGO is disabled.
type Pipeline struct{}

// New returns an error when CGO is disabled.
func New(cfg Config) (*Pipeline, error) {
	return nil, ErrCGORequired
}

func (p *Pipeline) LiveUniforms(stage string) (pipeline.UniformHandle, bool) { return nil, false }

func (p *Pipeline) NotifyStateChanged(stage string) error { return ErrCGORequired }

func (p *Pipeline) SetState(state pipeline.State) error { return ErrCGORequired }

func (p *Pipeline) State() pipeline.State { return pipeline.StateNull }

func (p *Pipeline) SendEndOfStream() error { return ErrCGORequired }

func (p *Pipeline) PopMessage(ctx context.Context, timeout time.Duration, types ...pipeline.MessageType) (*pipeline.Message, error) {
	return nil, ErrCGORequired
}
