// Package shutdown ends a pipeline run: end-of-stream, a bounded wait for it to drain, and
// the final transition to Null.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richinsley/glshaderanim/pipeline"
)

var (
	// ErrAlreadyShutDown is returned by every call after the first.
	ErrAlreadyShutDown = errors.New("pipeline already shut down")

	// ErrShutdownTimeout is returned when neither EOS nor an error arrived in time.
	ErrShutdownTimeout = errors.New("timed out waiting for end-of-stream")
)

// DefaultTimeout bounds the wait for end-of-stream.
const DefaultTimeout = 5 * time.Second

// Target is the part of a pipeline the sequencer drives.
type Target interface {
	pipeline.Bus
	SendEndOfStream() error
	SetState(state pipeline.State) error
}

// Sequencer shuts a pipeline down exactly once.
type Sequencer struct {
	target  Target
	timeout time.Duration
	log     *logrus.Entry

	mu   sync.Mutex
	done bool
}

// New returns a sequencer waiting at most timeout for end-of-stream. A non-positive
// timeout uses DefaultTimeout.
func New(target Target, timeout time.Duration) *Sequencer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sequencer{
		target:  target,
		timeout: timeout,
		log:     logrus.WithField("component", "shutdown"),
	}
}

// Shutdown sends end-of-stream, waits for EOS or an error message and then sets the
// pipeline to Null. The Null transition is attempted whatever happened before it, so a
// failed drain still releases the pipeline; its error is joined to the drain error.
func (s *Sequencer) Shutdown(ctx context.Context) error {
	if err := s.claim(); err != nil {
		return err
	}

	s.log.Info("Sending EOS")
	err := s.drain(ctx)
	if err != nil {
		s.log.WithError(err).Error("Pipeline did not drain cleanly")
	}
	if relErr := s.release(); relErr != nil {
		return errors.Join(err, relErr)
	}
	return err
}

// Abort skips end-of-stream and releases the pipeline immediately. It is used after a
// terminal error, when waiting for the stream to drain is pointless.
func (s *Sequencer) Abort() error {
	if err := s.claim(); err != nil {
		return err
	}
	s.log.Warn("Aborting pipeline without EOS")
	return s.release()
}

func (s *Sequencer) claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return ErrAlreadyShutDown
	}
	s.done = true
	return nil
}

func (s *Sequencer) drain(ctx context.Context) error {
	if err := s.target.SendEndOfStream(); err != nil {
		return fmt.Errorf("failed to send EOS: %w", err)
	}

	s.log.WithField("timeout", s.timeout).Info("Waiting for EOS")
	msg, err := s.target.PopMessage(ctx, s.timeout, pipeline.MessageEOS, pipeline.MessageError)
	switch {
	case err != nil:
		return fmt.Errorf("waiting for EOS: %w", err)
	case msg == nil:
		return fmt.Errorf("%w after %v", ErrShutdownTimeout, s.timeout)
	case msg.Type == pipeline.MessageError:
		if msg.Err != nil {
			return msg.Err
		}
		return &pipeline.BusError{Source: msg.Source, Message: "unspecified error"}
	}
	s.log.WithField("source", msg.Source).Info("EOS received")
	return nil
}

func (s *Sequencer) release() error {
	if err := s.target.SetState(pipeline.StateNull); err != nil {
		return fmt.Errorf("failed to set pipeline to null: %w", err)
	}
	s.log.Info("Pipeline released")
	return nil
}
