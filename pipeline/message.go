package pipeline

import "fmt"

// MessageType classifies bus messages.
type MessageType int

const (
	MessageEOS MessageType = iota + 1
	MessageError
	MessageWarning
	MessageStateChanged
)

func (t MessageType) String() string {
	switch t {
	case MessageEOS:
		return "eos"
	case MessageError:
		return "error"
	case MessageWarning:
		return "warning"
	case MessageStateChanged:
		return "state-changed"
	}
	return fmt.Sprintf("message(%d)", int(t))
}

// Message is a bus message. Err is set for MessageError and MessageWarning.
type Message struct {
	Type   MessageType
	Source string
	Err    error
	// State is the new state of a MessageStateChanged.
	State State
}

func (m *Message) matches(types []MessageType) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if m.Type == t {
			return true
		}
	}
	return false
}
