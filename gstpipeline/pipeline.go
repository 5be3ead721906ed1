//go:build cgo

package gstpipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"
	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/pipeline"
	"github.com/richinsley/glshaderanim/shader"
)

// pollSlice bounds each blocking bus pop so waits notice context cancellation.
const pollSlice = 50 * time.Millisecond

var initOnce sync.Once

// Pipeline is a pipeline.Pipeline backed by a GStreamer pipeline.
type Pipeline struct {
	pipeline *gst.Pipeline
	shader   *gst.Element
	bus      *gst.Bus
	uniforms *shader.UniformSet
	frames   FrameWriter
	log      *logrus.Entry

	mu       sync.Mutex
	released bool
}

// New builds the pipeline in the Null state and seeds its initial uniforms.
func New(cfg Config) (*Pipeline, error) {
	initOnce.Do(func() { gst.Init(nil) })

	graph := BuildGraph(cfg)
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	launch := graph.LaunchString()
	log := logrus.WithField("component", "gstpipeline")
	log.WithField("launch", launch).Debug("Building pipeline")

	gp, err := gst.NewPipelineFromString(launch)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	elem, err := gp.GetElementByName(ShaderStage)
	if err != nil {
		return nil, fmt.Errorf("failed to find shader stage: %w", err)
	}
	if err := elem.SetProperty("fragment", cfg.Fragment); err != nil {
		return nil, fmt.Errorf("failed to set fragment shader: %w", err)
	}

	p := &Pipeline{
		pipeline: gp,
		shader:   elem,
		bus:      gp.GetPipelineBus(),
		uniforms: shader.NewUniformSet(shader.UniformCX, shader.UniformCY),
		frames:   cfg.Frames,
		log:      log,
	}
	p.uniforms.DefineAll(cfg.InitialUniforms)
	applyUniforms(p.shader, p.uniforms.Snapshot())

	if cfg.Frames != nil {
		sinkElem, err := gp.GetElementByName(FrameSinkName)
		if err != nil {
			return nil, fmt.Errorf("failed to find frame sink: %w", err)
		}
		app.SinkFromElement(sinkElem).SetCallbacks(&app.SinkCallbacks{
			NewSampleFunc: p.onSample,
		})
	}
	return p, nil
}

func (p *Pipeline) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowEOS
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowError
	}
	mapInfo := buffer.Map(gst.MapRead)
	defer buffer.Unmap()

	if err := p.frames.WriteFrame(mapInfo.Bytes()); err != nil {
		p.log.WithError(err).Error("Failed to hand frame to recorder")
		return gst.FlowError
	}
	return gst.FlowOK
}

// LiveUniforms reports a handle only while glshader holds a compiled shader.
func (p *Pipeline) LiveUniforms(stage string) (pipeline.UniformHandle, bool) {
	if stage != ShaderStage {
		return nil, false
	}
	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if released || !hasLiveShader(p.shader) {
		return nil, false
	}
	return p.uniforms, true
}

// NotifyStateChanged hands the pending uniforms to glshader.
func (p *Pipeline) NotifyStateChanged(stage string) error {
	if stage != ShaderStage {
		return fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, stage)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return pipeline.ErrHandleGone
	}
	applyUniforms(p.shader, p.uniforms.Snapshot())
	return nil
}

func (p *Pipeline) SetState(state pipeline.State) error {
	if err := p.pipeline.SetState(toGstState(state)); err != nil {
		return fmt.Errorf("failed to set pipeline to %s: %w", state, err)
	}
	if state == pipeline.StateNull {
		p.mu.Lock()
		p.released = true
		p.mu.Unlock()
	}
	p.log.WithField("state", state).Debug("Pipeline state set")
	return nil
}

func (p *Pipeline) State() pipeline.State {
	return fromGstState(p.pipeline.GetCurrentState())
}

func (p *Pipeline) SendEndOfStream() error {
	if !p.pipeline.SendEvent(gst.NewEOSEvent()) {
		return errors.New("pipeline did not accept the EOS event")
	}
	return nil
}

// PopMessage implements pipeline.Bus on top of the GStreamer bus.
func (p *Pipeline) PopMessage(ctx context.Context, timeout time.Duration, types ...pipeline.MessageType) (*pipeline.Message, error) {
	mask := gstMessageMask(types)
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wait := pollSlice
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, nil
			}
			wait = min(wait, remaining)
		}

		msg := p.bus.TimedPopFiltered(gst.ClockTime(wait.Nanoseconds()), mask)
		if msg == nil {
			continue
		}
		if m := convertMessage(msg); m != nil {
			return m, nil
		}
	}
}

func gstMessageMask(types []pipeline.MessageType) gst.MessageType {
	if len(types) == 0 {
		return gst.MessageAny
	}
	var mask gst.MessageType
	for _, t := range types {
		switch t {
		case pipeline.MessageEOS:
			mask |= gst.MessageEOS
		case pipeline.MessageError:
			mask |= gst.MessageError
		case pipeline.MessageWarning:
			mask |= gst.MessageWarning
		case pipeline.MessageStateChanged:
			mask |= gst.MessageStateChanged
		}
	}
	return mask
}

func convertMessage(msg *gst.Message) *pipeline.Message {
	out := &pipeline.Message{Source: msg.Source()}
	switch msg.Type() {
	case gst.MessageEOS:
		out.Type = pipeline.MessageEOS
	case gst.MessageError:
		gerr := msg.ParseError()
		out.Type = pipeline.MessageError
		out.Err = &pipeline.BusError{Source: msg.Source(), Message: gerr.Error(), Debug: gerr.DebugString()}
	case gst.MessageWarning:
		gerr := msg.ParseWarning()
		out.Type = pipeline.MessageWarning
		out.Err = fmt.Errorf("%s: %s", msg.Source(), gerr.Error())
	case gst.MessageStateChanged:
		_, newState := msg.ParseStateChanged()
		out.Type = pipeline.MessageStateChanged
		out.State = fromGstState(newState)
	default:
		return nil
	}
	return out
}

func toGstState(s pipeline.State) gst.State {
	switch s {
	case pipeline.StateReady:
		return gst.StateReady
	case pipeline.StatePaused:
		return gst.StatePaused
	case pipeline.StatePlaying:
		return gst.StatePlaying
	}
	return gst.StateNull
}

func fromGstState(s gst.State) pipeline.State {
	switch s {
	case gst.StateReady:
		return pipeline.StateReady
	case gst.StatePaused:
		return pipeline.StatePaused
	case gst.StatePlaying:
		return pipeline.StatePlaying
	}
	return pipeline.StateNull
}
