// Package gstpipeline runs the ball shader inside a GStreamer pipeline built around the
// glshader element.
package gstpipeline

import (
	"fmt"

	"github.com/richinsley/glshaderanim/pipeline"
)

const (
	// ShaderStage is the name of the glshader element, used as the animator's stage id.
	ShaderStage = "shader"

	// FrameSinkName is the appsink that hands frames to the recorder.
	FrameSinkName = "frames"

	DefaultPattern = "smpte"
)

// FrameWriter receives RGBA frames pulled from the pipeline when recording.
type FrameWriter interface {
	WriteFrame(pixels []byte) error
}

// Config describes the pipeline to build.
type Config struct {
	Width   int
	Height  int
	Pattern string
	// Fragment is the GLSL ES fragment shader given to glshader.
	Fragment string
	// InitialUniforms are applied before the pipeline starts playing.
	InitialUniforms map[string]float32

	// Frames, when set, replaces the window with an appsink feeding it.
	Frames FrameWriter
	FPS    int
}

// BuildGraph describes
//
//	videotestsrc ! videoconvert ! caps ! glupload ! glshader ! glimagesink
//
// or, when recording,
//
//	videotestsrc ! videoconvert ! caps ! glupload ! glshader ! gldownload ! videoconvert ! caps ! appsink
func BuildGraph(cfg Config) *pipeline.Graph {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	caps := fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", cfg.Width, cfg.Height)
	if cfg.Frames != nil && cfg.FPS > 0 {
		caps += fmt.Sprintf(",framerate=%d/1", cfg.FPS)
	}

	src := map[string]string{"pattern": pattern}
	if cfg.Frames != nil {
		// the appsink does not sync, so the source clocks frames out at the caps framerate
		src["is-live"] = "true"
	}

	g := &pipeline.Graph{}
	g.Add("videotestsrc", "src", src).
		Add("videoconvert", "", nil).
		Filter(caps).
		Add("glupload", "", nil).
		Add("glshader", ShaderStage, nil)

	if cfg.Frames == nil {
		g.Add("glimagesink", "sink", nil)
		return g
	}
	g.Add("gldownload", "", nil).
		Add("videoconvert", "", nil).
		Filter("video/x-raw,format=RGBA").
		Add("appsink", FrameSinkName, map[string]string{"sync": "false"})
	return g
}
