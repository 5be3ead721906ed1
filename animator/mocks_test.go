package animator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/richinsley/glshaderanim/pipeline"
)

type uniformWrite struct {
	tick  int
	name  string
	value float32
}

// mockUniformSource exposes a live handle on the ticks listed in present (all ticks when
// present is nil) and records every write.
type mockUniformSource struct {
	mu       sync.Mutex
	present  map[int]bool
	failOn   map[int]error
	writes   []uniformWrite
	commits  int
	lookups  int
	commitFn func() error
}

func (m *mockUniformSource) LiveUniforms(stage string) (pipeline.UniformHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tick := m.lookups
	m.lookups++
	if m.present != nil && !m.present[tick] {
		return nil, false
	}
	return &mockHandle{src: m, tick: tick}, true
}

func (m *mockUniformSource) NotifyStateChanged(stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.commitFn != nil {
		return m.commitFn()
	}
	return nil
}

func (m *mockUniformSource) writesForTick(tick int) []uniformWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uniformWrite
	for _, w := range m.writes {
		if w.tick == tick {
			out = append(out, w)
		}
	}
	return out
}

type mockHandle struct {
	src  *mockUniformSource
	tick int
}

func (h *mockHandle) SetUniform1f(name string, value float32) error {
	h.src.mu.Lock()
	defer h.src.mu.Unlock()
	h.src.writes = append(h.src.writes, uniformWrite{tick: h.tick, name: name, value: value})
	if err, ok := h.src.failOn[h.tick]; ok {
		return err
	}
	return nil
}

var errRejected = errors.New("uniform rejected")

// noSleep records requested sleeps without blocking.
type noSleep struct {
	calls []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

// stepTimeProvider advances by a fixed amount on every Since call.
type stepTimeProvider struct {
	start time.Time
	step  time.Duration
	n     int
}

func (p *stepTimeProvider) Now() time.Time { return p.start }

func (p *stepTimeProvider) Since(time.Time) time.Duration {
	d := time.Duration(p.n) * p.step
	p.n++
	return d
}
