// Package animator drives the ball position into a shader stage's live uniforms at a fixed
// cadence for a bounded number of ticks.
package animator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/pipeline"
	"github.com/richinsley/glshaderanim/shader"
)

// Clock selects how animation time is derived for a tick.
type Clock int

const (
	// ClockTicks uses t = i * Step, independent of the real tick interval.
	ClockTicks Clock = iota
	// ClockWall uses the wall-clock seconds elapsed since the first tick.
	ClockWall
)

// ParseClock resolves "ticks" or "wall".
func ParseClock(name string) (Clock, error) {
	switch name {
	case "ticks", "":
		return ClockTicks, nil
	case "wall":
		return ClockWall, nil
	}
	return ClockTicks, fmt.Errorf("unknown clock %q (want ticks or wall)", name)
}

// Frame is produced once per tick and is not retained.
type Frame struct {
	Iteration uint
	// Elapsed is the animation time of the tick in seconds.
	Elapsed float64
}

// Config describes one animation run.
type Config struct {
	// Stage is the pipeline stage that owns the shader.
	Stage      string
	Iterations int
	Interval   time.Duration
	Step       float64
	Clock      Clock
	Position   PositionFunc
	Remap      RemapFunc
	// Commit asks the pipeline to apply the new uniforms after each tick's writes.
	Commit bool
	// MaxWriteFailures aborts the run once this many ticks failed to write. 0 disables the
	// limit.
	MaxWriteFailures int
}

// DefaultConfig matches the reference animation: 50 ticks, 100ms apart, t advancing 0.1
// per tick, orbit remapped into [0, 1].
func DefaultConfig() Config {
	return Config{
		Stage:      "shader",
		Iterations: 50,
		Interval:   100 * time.Millisecond,
		Step:       0.1,
		Clock:      ClockTicks,
		Position:   Orbit,
		Remap:      RemapUnit,
		Commit:     true,
	}
}

// Stats summarizes a run.
type Stats struct {
	Ticks         int
	Pushed        int
	Skipped       int
	WriteFailures int
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// TimeProvider abstracts the wall clock for deterministic tests.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

func (DefaultTimeProvider) Now() time.Time                  { return time.Now() }
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

// Animator pushes (cx, cy) into the live uniforms of a stage once per tick.
type Animator struct {
	cfg          Config
	src          pipeline.UniformSource
	sleep        Sleeper
	timeProvider TimeProvider
	onFrame      func(f Frame, x, y float64, pushed bool)
	log          *logrus.Entry
}

// New validates cfg and returns an Animator writing through src.
func New(src pipeline.UniformSource, cfg Config) (*Animator, error) {
	switch {
	case src == nil:
		return nil, fmt.Errorf("%w: uniform source cannot be nil", ErrInvalidConfig)
	case cfg.Stage == "":
		return nil, fmt.Errorf("%w: stage name is empty", ErrInvalidConfig)
	case cfg.Iterations < 0:
		return nil, fmt.Errorf("%w: negative iteration count %d", ErrInvalidConfig, cfg.Iterations)
	case cfg.Interval < 0:
		return nil, fmt.Errorf("%w: negative interval %v", ErrInvalidConfig, cfg.Interval)
	case cfg.MaxWriteFailures < 0:
		return nil, fmt.Errorf("%w: negative write failure limit", ErrInvalidConfig)
	case math.IsNaN(cfg.Step) || math.IsInf(cfg.Step, 0):
		return nil, fmt.Errorf("%w: step must be finite", ErrInvalidConfig)
	}
	if cfg.Position == nil {
		cfg.Position = Orbit
	}
	if cfg.Remap == nil {
		cfg.Remap = RemapNone
	}

	return &Animator{
		cfg:          cfg,
		src:          src,
		sleep:        sleepContext,
		timeProvider: DefaultTimeProvider{},
		log: logrus.WithFields(logrus.Fields{
			"component": "animator",
			"stage":     cfg.Stage,
		}),
	}, nil
}

// SetSleeper replaces the tick sleep, mainly for tests.
func (a *Animator) SetSleeper(s Sleeper) {
	if s == nil {
		s = sleepContext
	}
	a.sleep = s
}

// SetTimeProvider replaces the wall clock used by ClockWall.
func (a *Animator) SetTimeProvider(tp TimeProvider) {
	if tp == nil {
		tp = DefaultTimeProvider{}
	}
	a.timeProvider = tp
}

// OnFrame registers a callback invoked after every tick with the remapped position and
// whether it reached the shader.
func (a *Animator) OnFrame(f func(frame Frame, x, y float64, pushed bool)) {
	a.onFrame = f
}

// Run executes the ticks. It returns early when ctx is done (checked at the top of every
// tick and before every sleep) or when the write failure limit is hit.
func (a *Animator) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	start := a.timeProvider.Now()

	a.log.WithFields(logrus.Fields{
		"iterations": a.cfg.Iterations,
		"interval":   a.cfg.Interval,
		"step":       a.cfg.Step,
	}).Info("Starting uniform animation")

	for i := 0; i < a.cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("animation interrupted before tick %d: %w", i, err)
		}

		frame := Frame{Iteration: uint(i), Elapsed: float64(i) * a.cfg.Step}
		if a.cfg.Clock == ClockWall {
			frame.Elapsed = a.timeProvider.Since(start).Seconds()
		}
		stats.Ticks++

		x, y, pushed, err := a.tick(frame)
		if err != nil {
			stats.WriteFailures++
			a.log.WithFields(logrus.Fields{
				"tick":     i,
				"failures": stats.WriteFailures,
			}).WithError(err).Warn("Uniform write failed")
			if a.cfg.MaxWriteFailures > 0 && stats.WriteFailures >= a.cfg.MaxWriteFailures {
				return stats, fmt.Errorf("%w: %d of %d ticks", ErrTooManyWriteFailures, stats.WriteFailures, stats.Ticks)
			}
		} else if pushed {
			stats.Pushed++
		} else {
			stats.Skipped++
		}

		if a.onFrame != nil {
			a.onFrame(frame, x, y, pushed && err == nil)
		}

		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("animation interrupted after tick %d: %w", i, err)
		}
		if err := a.sleep(ctx, a.cfg.Interval); err != nil {
			return stats, fmt.Errorf("animation interrupted after tick %d: %w", i, err)
		}
	}

	a.log.WithFields(logrus.Fields{
		"ticks":          stats.Ticks,
		"pushed":         stats.Pushed,
		"skipped":        stats.Skipped,
		"write_failures": stats.WriteFailures,
	}).Info("Uniform animation finished")
	return stats, nil
}

// tick looks the live handle up fresh and writes cx then cy. pushed is false when the
// handle does not exist yet, which is not an error.
func (a *Animator) tick(frame Frame) (x, y float64, pushed bool, err error) {
	h, ok := a.src.LiveUniforms(a.cfg.Stage)
	if !ok || h == nil {
		a.log.WithField("tick", frame.Iteration).Debug("Live uniforms not available, skipping tick")
		return 0, 0, false, nil
	}

	px, py := a.cfg.Position(frame.Elapsed)
	x, y = a.cfg.Remap(px), a.cfg.Remap(py)
	if !finite(x) || !finite(y) {
		return x, y, false, fmt.Errorf("%w: cx=%v cy=%v at t=%v", shader.ErrNonFinite, x, y, frame.Elapsed)
	}

	errX := h.SetUniform1f(shader.UniformCX, float32(x))
	errY := h.SetUniform1f(shader.UniformCY, float32(y))
	if err := errors.Join(errX, errY); err != nil {
		return x, y, true, err
	}

	if a.cfg.Commit {
		if err := a.src.NotifyStateChanged(a.cfg.Stage); err != nil {
			return x, y, true, fmt.Errorf("commit uniforms: %w", err)
		}
	}

	a.log.WithFields(logrus.Fields{
		"tick": frame.Iteration,
		"t":    frame.Elapsed,
		"cx":   x,
		"cy":   y,
	}).Debug("Pushed uniforms")
	return x, y, true, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
