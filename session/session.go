// Package session runs one animation against a pipeline from Playing back to Null.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/animator"
	"github.com/richinsley/glshaderanim/pipeline"
	"github.com/richinsley/glshaderanim/shutdown"
)

// Config is everything a run needs besides the pipeline itself.
type Config struct {
	Animator        animator.Config
	ShutdownTimeout time.Duration
	// OnFrame, when set, observes every animation tick.
	OnFrame func(f animator.Frame, x, y float64, pushed bool)
}

// Run starts the pipeline, animates it and shuts it down. A pipeline error seen while
// animating is terminal: the animation stops and the pipeline is released without EOS.
// Otherwise, including when ctx is cancelled, the pipeline is drained with EOS before it
// is set to Null. The returned error joins the run failure with any release failure.
func Run(ctx context.Context, p pipeline.Pipeline, cfg Config) (animator.Stats, error) {
	log := logrus.WithField("component", "session")

	anim, err := animator.New(p, cfg.Animator)
	if err != nil {
		return animator.Stats{}, err
	}
	if cfg.OnFrame != nil {
		anim.OnFrame(cfg.OnFrame)
	}
	seq := shutdown.New(p, cfg.ShutdownTimeout)

	log.Info("Setting pipeline to playing")
	if err := p.SetState(pipeline.StatePlaying); err != nil {
		err = fmt.Errorf("failed to start pipeline: %w", err)
		return animator.Stats{}, errors.Join(err, seq.Abort())
	}

	animCtx, cancelAnim := context.WithCancel(ctx)
	defer cancelAnim()
	w := startWatcher(animCtx, p, cancelAnim, log)

	stats, animErr := anim.Run(animCtx)
	terminal := w.stop()

	if terminal != nil {
		log.WithError(terminal).Error("Pipeline failed during animation")
		return stats, errors.Join(terminal, seq.Abort())
	}
	if animErr != nil {
		log.WithError(animErr).Warn("Animation ended early")
	}

	// the EOS wait is bounded by the shutdown timeout, so it may outlive a cancelled ctx
	shutErr := seq.Shutdown(context.WithoutCancel(ctx))
	log.WithField("state", p.State()).Info("Session finished")
	return stats, errors.Join(animErr, shutErr)
}

// watcher consumes error and warning messages while the animation runs. It is the only
// bus consumer until stop returns.
type watcher struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func startWatcher(ctx context.Context, bus pipeline.Bus, onError context.CancelFunc, log *logrus.Entry) *watcher {
	wctx, cancel := context.WithCancel(ctx)
	w := &watcher{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		for {
			msg, err := bus.PopMessage(wctx, -1, pipeline.MessageError, pipeline.MessageWarning)
			if err != nil {
				return
			}
			if msg == nil {
				continue
			}
			if msg.Type == pipeline.MessageWarning {
				log.WithField("source", msg.Source).WithError(msg.Err).Warn("Pipeline warning")
				continue
			}

			err = msg.Err
			if err == nil {
				err = &pipeline.BusError{Source: msg.Source, Message: "unspecified error"}
			}
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			onError()
			return
		}
	}()
	return w
}

// stop ends the watcher and returns the terminal error it saw, if any.
func (w *watcher) stop() error {
	w.cancel()
	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
