package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBusPopFiltered(t *testing.T) {
	bus := NewMessageBus()
	bus.Post(&Message{Type: MessageStateChanged, State: StatePlaying})
	bus.Post(&Message{Type: MessageWarning, Source: "shader"})
	bus.Post(&Message{Type: MessageEOS, Source: "pipeline0"})

	m, err := bus.PopMessage(context.Background(), time.Second, MessageEOS, MessageError)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, MessageEOS, m.Type)
	assert.Equal(t, "pipeline0", m.Source)

	// non-matching messages were dropped on the way
	m, err = bus.PopMessage(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestMessageBusTimeout(t *testing.T) {
	bus := NewMessageBus()
	start := time.Now()
	m, err := bus.PopMessage(context.Background(), 20*time.Millisecond, MessageEOS)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMessageBusWakesOnPost(t *testing.T) {
	bus := NewMessageBus()
	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Post(&Message{Type: MessageError, Err: &BusError{Source: "sink", Message: "boom"}})
	}()

	m, err := bus.PopMessage(context.Background(), -1, MessageError)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, errors.Is(m.Err, ErrPipelineError))
	assert.Equal(t, "pipeline error from sink: boom", m.Err.Error())
}

func TestMessageBusContextCancel(t *testing.T) {
	bus := NewMessageBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := bus.PopMessage(ctx, -1)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMessageBusClose(t *testing.T) {
	bus := NewMessageBus()
	bus.Post(&Message{Type: MessageEOS})
	bus.Close()

	assert.False(t, bus.Post(&Message{Type: MessageError}))

	m, err := bus.PopMessage(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, MessageEOS, m.Type)

	_, err = bus.PopMessage(context.Background(), time.Second)
	assert.ErrorIs(t, err, ErrBusClosed)
}
