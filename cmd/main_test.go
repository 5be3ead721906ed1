package main

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/glshaderanim/pipeline"
)

type stateRecorder struct {
	states []pipeline.State
	err    error
}

func (s *stateRecorder) SetState(state pipeline.State) error {
	s.states = append(s.states, state)
	return s.err
}

func TestStopRenderLoopLogsFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	log := logger.WithField("component", "main")

	ok := &stateRecorder{}
	stopRenderLoop(ok, log)
	assert.Equal(t, []pipeline.State{pipeline.StateNull}, ok.states)
	assert.Empty(t, hook.AllEntries())

	gone := &stateRecorder{err: errors.New("render loop is not running")}
	stopRenderLoop(gone, log)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, gone.err, entry.Data[logrus.ErrorKey])
}
