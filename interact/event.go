package interact

import (
	"fmt"
	"strings"
)

// EventType is a pointer gesture delivered by the host.
type EventType int

const (
	PointerDown EventType = iota + 1
	PointerMove
	PointerUp
	PointerLeave
	// Dismiss closes the detail view.
	Dismiss
)

var eventNames = map[EventType]string{
	PointerDown:  "down",
	PointerMove:  "move",
	PointerUp:    "up",
	PointerLeave: "leave",
	Dismiss:      "dismiss",
}

func (t EventType) String() string {
	if n, ok := eventNames[t]; ok {
		return n
	}
	return fmt.Sprintf("event(%d)", int(t))
}

func (t EventType) MarshalText() ([]byte, error) {
	n, ok := eventNames[t]
	if !ok {
		return nil, fmt.Errorf("interact: unknown event type %d", int(t))
	}
	return []byte(n), nil
}

func (t *EventType) UnmarshalText(b []byte) error {
	s := strings.ToLower(string(b))
	for k, n := range eventNames {
		if n == s {
			*t = k
			return nil
		}
	}
	return fmt.Errorf("interact: unknown event type %q", string(b))
}

// Event is a pointer event in canvas coordinates.
type Event struct {
	Type EventType `json:"type"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}
