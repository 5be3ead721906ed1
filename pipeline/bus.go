package pipeline

import (
	"context"
	"sync"
	"time"
)

// MessageBus is an in-process, unbounded message bus for backends that do not bring their
// own. Like GStreamer's filtered pop, messages that do not match the requested types are
// dropped while searching. It supports a single consumer at a time.
type MessageBus struct {
	mu     sync.Mutex
	queue  []*Message
	notify chan struct{}
	closed chan struct{}
	once   sync.Once
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Post appends a message. It reports false once the bus is closed.
func (b *MessageBus) Post(m *Message) bool {
	select {
	case <-b.closed:
		return false
	default:
	}

	b.mu.Lock()
	b.queue = append(b.queue, m)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting messages. Queued messages can still be popped.
func (b *MessageBus) Close() {
	b.once.Do(func() { close(b.closed) })
}

// PopMessage implements Bus. A negative timeout waits without limit.
func (b *MessageBus) PopMessage(ctx context.Context, timeout time.Duration, types ...MessageType) (*Message, error) {
	var expired <-chan time.Time
	if timeout >= 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		if m := b.take(types); m != nil {
			return m, nil
		}

		select {
		case <-b.closed:
			// drain anything posted before the close
			if m := b.take(types); m != nil {
				return m, nil
			}
			return nil, ErrBusClosed
		default:
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-expired:
			return nil, nil
		case <-b.notify:
		case <-b.closed:
		}
	}
}

func (b *MessageBus) take(types []MessageType) *Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	for len(b.queue) > 0 {
		m := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		if m.matches(types) {
			return m
		}
	}
	return nil
}
