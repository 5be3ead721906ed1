package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/glshaderanim/animator"
	"github.com/richinsley/glshaderanim/pipeline"
	"github.com/richinsley/glshaderanim/shutdown"
)

// fakePipeline always has live uniforms and answers EOS with an EOS message.
type fakePipeline struct {
	*pipeline.MessageBus

	mu        sync.Mutex
	state     pipeline.State
	states    []pipeline.State
	writes    map[string][]float32
	eosSent   int
	playErr   error
	silentEOS bool
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{MessageBus: pipeline.NewMessageBus(), writes: map[string][]float32{}}
}

func (f *fakePipeline) LiveUniforms(stage string) (pipeline.UniformHandle, bool) {
	return fakeHandle{f}, true
}

func (f *fakePipeline) NotifyStateChanged(stage string) error { return nil }

func (f *fakePipeline) SetState(state pipeline.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
	if state == pipeline.StatePlaying && f.playErr != nil {
		return f.playErr
	}
	f.state = state
	return nil
}

func (f *fakePipeline) State() pipeline.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakePipeline) SendEndOfStream() error {
	f.mu.Lock()
	f.eosSent++
	f.mu.Unlock()
	if !f.silentEOS {
		f.Post(&pipeline.Message{Type: pipeline.MessageEOS, Source: "fake"})
	}
	return nil
}

func (f *fakePipeline) recorded() ([]pipeline.State, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pipeline.State(nil), f.states...), f.eosSent, len(f.writes["cx"])
}

type fakeHandle struct{ f *fakePipeline }

func (h fakeHandle) SetUniform1f(name string, value float32) error {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	h.f.writes[name] = append(h.f.writes[name], value)
	return nil
}

func testConfig(iterations int, interval time.Duration) Config {
	cfg := animator.DefaultConfig()
	cfg.Iterations = iterations
	cfg.Interval = interval
	return Config{Animator: cfg, ShutdownTimeout: time.Second}
}

func TestRunCompletes(t *testing.T) {
	p := newFakePipeline()
	var ticks int
	cfg := testConfig(3, time.Millisecond)
	cfg.OnFrame = func(animator.Frame, float64, float64, bool) { ticks++ }

	stats, err := Run(context.Background(), p, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pushed)
	assert.Equal(t, 3, ticks)

	states, eos, writes := p.recorded()
	assert.Equal(t, []pipeline.State{pipeline.StatePlaying, pipeline.StateNull}, states)
	assert.Equal(t, 1, eos)
	assert.Equal(t, 3, writes)
	assert.Equal(t, pipeline.StateNull, p.State())
}

func TestRunZeroIterationsStillShutsDown(t *testing.T) {
	p := newFakePipeline()
	stats, err := Run(context.Background(), p, testConfig(0, time.Millisecond))
	require.NoError(t, err)
	assert.Zero(t, stats.Ticks)

	states, eos, writes := p.recorded()
	assert.Equal(t, []pipeline.State{pipeline.StatePlaying, pipeline.StateNull}, states)
	assert.Equal(t, 1, eos)
	assert.Zero(t, writes)
}

func TestRunPipelineErrorAborts(t *testing.T) {
	p := newFakePipeline()
	p.Post(&pipeline.Message{
		Type: pipeline.MessageError,
		Err:  &pipeline.BusError{Source: "sink", Message: "output window was closed"},
	})

	_, err := Run(context.Background(), p, testConfig(1000, 10*time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrPipelineError)
	assert.NotErrorIs(t, err, context.Canceled)

	states, eos, _ := p.recorded()
	assert.Zero(t, eos, "no EOS after a terminal error")
	assert.Equal(t, pipeline.StateNull, states[len(states)-1])
}

func TestRunWarningsAreNotTerminal(t *testing.T) {
	p := newFakePipeline()
	p.Post(&pipeline.Message{Type: pipeline.MessageWarning, Source: "shader", Err: errors.New("slow")})

	stats, err := Run(context.Background(), p, testConfig(2, time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Ticks)
}

func TestRunStartFailureReleases(t *testing.T) {
	p := newFakePipeline()
	p.playErr = errors.New("no display")

	_, err := Run(context.Background(), p, testConfig(3, time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")

	states, eos, writes := p.recorded()
	assert.Equal(t, []pipeline.State{pipeline.StatePlaying, pipeline.StateNull}, states)
	assert.Zero(t, eos)
	assert.Zero(t, writes)
}

func TestRunInvalidConfigTouchesNothing(t *testing.T) {
	p := newFakePipeline()
	cfg := testConfig(-1, time.Millisecond)

	_, err := Run(context.Background(), p, cfg)
	assert.ErrorIs(t, err, animator.ErrInvalidConfig)
	states, _, _ := p.recorded()
	assert.Empty(t, states)
}

func TestRunCancelledStillDrains(t *testing.T) {
	p := newFakePipeline()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Run(ctx, p, testConfig(1000, 5*time.Millisecond))
	assert.ErrorIs(t, err, context.Canceled)

	states, eos, _ := p.recorded()
	assert.Equal(t, 1, eos)
	assert.Equal(t, []pipeline.State{pipeline.StatePlaying, pipeline.StateNull}, states)
}

func TestRunShutdownTimeout(t *testing.T) {
	p := newFakePipeline()
	p.silentEOS = true
	cfg := testConfig(1, time.Millisecond)
	cfg.ShutdownTimeout = 20 * time.Millisecond

	_, err := Run(context.Background(), p, cfg)
	assert.ErrorIs(t, err, shutdown.ErrShutdownTimeout)
	assert.Equal(t, pipeline.StateNull, p.State())
}
