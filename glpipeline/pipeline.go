// Package glpipeline renders the ball shader in a GLFW window without GStreamer. It plays
// the same role as videotestsrc ! glshader ! glimagesink: a still test pattern is bound as
// tex, and width, height and time are supplied every frame.
package glpipeline

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/glfwcontext"
	"github.com/richinsley/glshaderanim/graphics"
	"github.com/richinsley/glshaderanim/pipeline"
	"github.com/richinsley/glshaderanim/shader"
	"github.com/richinsley/glshaderanim/testsrc"
	"github.com/richinsley/glshaderanim/translator"
)

// StageName identifies the shader stage, matching the GStreamer backend.
const StageName = "shader"

// ErrNotRunning is returned when the render loop has exited or never started.
var ErrNotRunning = errors.New("render loop is not running")

// idleWait is how often the render loop checks for work while not playing.
const idleWait = 10 * time.Millisecond

// Config describes the window and the shader to run.
type Config struct {
	Width   int
	Height  int
	Pattern string
	// Fragment is the GLSL ES 1.00 fragment shader.
	Fragment string
	Title    string
	// InitialUniforms are visible from the first frame.
	InitialUniforms map[string]float32
}

// Pipeline is a pipeline.Pipeline whose render loop runs on the thread calling Run.
type Pipeline struct {
	cfg        Config
	translated *translator.Translated
	*pipeline.MessageBus

	pending   *shader.UniformSet
	committed *shader.UniformSet

	ready chan struct{}
	done  chan struct{}
	wake  chan struct{}
	log   *logrus.Entry

	mu         sync.Mutex
	state      pipeline.State
	stopped    bool
	live       bool
	eosPending bool
	drained    bool
	windowGone bool
	loopErr    error
}

// New translates the fragment shader and prepares the pipeline in the Null state. Nothing
// touches OpenGL until Run.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Title == "" {
		cfg.Title = "glshaderanim"
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "smpte"
	}
	translated, err := translator.TranslateFragment(cfg.Fragment, shader.UniformCX, shader.UniformCY)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		translated: translated,
		MessageBus: pipeline.NewMessageBus(),
		pending:    shader.NewUniformSet(shader.UniformCX, shader.UniformCY),
		committed:  shader.NewUniformSet(),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		wake:       make(chan struct{}, 1),
		log:        logrus.WithField("component", "glpipeline"),
	}
	p.pending.DefineAll(cfg.InitialUniforms)
	p.committed.DefineAll(cfg.InitialUniforms)
	return p, nil
}

// LiveUniforms returns the pending uniform set once the program has drawn its first frame
// and until the render loop tears it down.
func (p *Pipeline) LiveUniforms(stage string) (pipeline.UniformHandle, bool) {
	if stage != StageName {
		return nil, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live {
		return nil, false
	}
	return p.pending, true
}

// NotifyStateChanged publishes the pending uniforms to the next frame.
func (p *Pipeline) NotifyStateChanged(stage string) error {
	if stage != StageName {
		return fmt.Errorf("%w: %q", pipeline.ErrUnknownStage, stage)
	}
	p.mu.Lock()
	live := p.live
	p.mu.Unlock()
	if !live {
		return pipeline.ErrHandleGone
	}
	p.committed.DefineAll(p.pending.Snapshot())
	return nil
}

// SetState changes the target state of the render loop. Setting Playing waits until the
// window and program exist.
func (p *Pipeline) SetState(state pipeline.State) error {
	if state == pipeline.StatePlaying {
		select {
		case <-p.ready:
		case <-p.done:
			return p.runError()
		}
	}

	p.mu.Lock()
	p.state = state
	if state == pipeline.StateNull {
		p.stopped = true
		p.live = false
	}
	p.mu.Unlock()
	p.signal()
	p.log.WithField("state", state).Debug("Pipeline state set")
	return nil
}

func (p *Pipeline) State() pipeline.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SendEndOfStream makes the next rendered frame the last one. EOS is posted on the bus
// once it has been presented.
func (p *Pipeline) SendEndOfStream() error {
	select {
	case <-p.done:
		return p.runError()
	default:
	}

	p.mu.Lock()
	playing := p.state == pipeline.StatePlaying && !p.windowGone
	if playing {
		p.eosPending = true
	} else {
		p.drained = true
	}
	p.mu.Unlock()

	if !playing {
		p.Post(&pipeline.Message{Type: pipeline.MessageEOS, Source: StageName})
	}
	p.signal()
	return nil
}

func (p *Pipeline) runError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loopErr != nil {
		return p.loopErr
	}
	return ErrNotRunning
}

func (p *Pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run owns the window and GL context until the pipeline is set to Null, including before
// it ever played. It must be called from the main goroutine, which GLFW needs to be locked
// to its OS thread.
func (p *Pipeline) Run() error {
	defer close(p.done)

	err := p.loop()
	if err != nil {
		p.mu.Lock()
		p.loopErr = err
		p.live = false
		p.mu.Unlock()
		p.Post(&pipeline.Message{
			Type:   pipeline.MessageError,
			Source: StageName,
			Err:    &pipeline.BusError{Source: StageName, Message: err.Error()},
		})
	}
	return err
}

func (p *Pipeline) loop() error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize glfw: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	win, err := glfwcontext.New(p.cfg.Width, p.cfg.Height, p.cfg.Title, true)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer win.Shutdown()
	win.MakeCurrent()
	win.SetVSync(true)
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r, err := p.newRenderer()
	if err != nil {
		return err
	}
	defer r.destroy()
	close(p.ready)

	p.log.WithFields(logrus.Fields{
		"size":    fmt.Sprintf("%dx%d", p.cfg.Width, p.cfg.Height),
		"pattern": p.cfg.Pattern,
	}).Info("Render loop ready")

	var start float64
	started := false
	for {
		p.mu.Lock()
		state, stopped, eos, drained, gone := p.state, p.stopped, p.eosPending, p.drained, p.windowGone
		p.mu.Unlock()

		if stopped {
			p.log.Info("Render loop stopped")
			return nil
		}
		if state != pipeline.StatePlaying || drained || gone {
			win.PollEvents()
			p.idle()
			continue
		}
		if !started {
			started = true
			start = win.Time()
		}

		if win.ShouldClose() {
			p.windowClosed()
			continue
		}

		r.draw(win, float32(win.Time()-start), p.committed.Snapshot())
		win.EndFrame()

		p.mu.Lock()
		p.live = p.state != pipeline.StateNull
		if eos {
			p.eosPending = false
			p.drained = true
		}
		p.mu.Unlock()
		if eos {
			p.log.Debug("Last frame presented, posting EOS")
			p.Post(&pipeline.Message{Type: pipeline.MessageEOS, Source: StageName})
		}
	}
}

// windowClosed reports a closed window the way glimagesink does.
func (p *Pipeline) windowClosed() {
	p.mu.Lock()
	p.windowGone = true
	p.live = false
	p.mu.Unlock()
	p.log.Warn("Output window was closed")
	p.Post(&pipeline.Message{
		Type:   pipeline.MessageError,
		Source: "sink",
		Err:    &pipeline.BusError{Source: "sink", Message: "output window was closed"},
	})
}

func (p *Pipeline) idle() {
	select {
	case <-p.wake:
	case <-time.After(idleWait):
	}
}

type renderer struct {
	program uint32
	vao     uint32
	vbo     uint32
	texture uint32

	texLoc    int32
	timeLoc   int32
	widthLoc  int32
	heightLoc int32
	locs      map[string]int32
}

func (p *Pipeline) newRenderer() (*renderer, error) {
	texCoord := p.translated.MappedName(shader.TexCoordVarying)
	if texCoord == "" {
		texCoord = "_u" + shader.TexCoordVarying
	}
	program, err := newProgram(shader.GenerateVertexShader(texCoord), p.translated.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to create shader program: %w", err)
	}

	img, err := testsrc.Pattern(p.cfg.Pattern, p.cfg.Width, p.cfg.Height)
	if err != nil {
		gl.DeleteProgram(program)
		return nil, err
	}

	r := &renderer{
		program:   program,
		texture:   newTexture(img),
		texLoc:    uniformLocation(program, p.translated.MappedName(shader.UniformTex)),
		timeLoc:   uniformLocation(program, p.translated.MappedName(shader.UniformTime)),
		widthLoc:  uniformLocation(program, p.translated.MappedName(shader.UniformWidth)),
		heightLoc: uniformLocation(program, p.translated.MappedName(shader.UniformHeight)),
		locs:      make(map[string]int32),
	}
	r.vao, r.vbo = newQuad()
	for _, name := range []string{shader.UniformCX, shader.UniformCY} {
		r.locs[name] = uniformLocation(program, p.translated.MappedName(name))
	}
	return r, nil
}

func (r *renderer) draw(ctx graphics.Context, t float32, uniforms map[string]float32) {
	width, height := ctx.GetFramebufferSize()

	gl.Viewport(0, 0, int32(width), int32(height))
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.UseProgram(r.program)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.texture)
	gl.Uniform1i(r.texLoc, 0)
	gl.Uniform1f(r.timeLoc, t)
	gl.Uniform1f(r.widthLoc, float32(width))
	gl.Uniform1f(r.heightLoc, float32(height))
	for name, loc := range r.locs {
		if v, ok := uniforms[name]; ok {
			gl.Uniform1f(loc, v)
		}
	}

	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (r *renderer) destroy() {
	gl.DeleteProgram(r.program)
	gl.DeleteTextures(1, &r.texture)
	gl.DeleteBuffers(1, &r.vbo)
	gl.DeleteVertexArrays(1, &r.vao)
}
