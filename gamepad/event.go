package gamepad

import (
	"fmt"

	"github.com/pkg/errors"
)

// EventKind discriminates Event.
type EventKind uint8

const (
	Connected EventKind = iota + 1
	Disconnected
	ButtonDown
	ButtonUp
	AxisChanged
)

var kindNames = map[EventKind]string{
	Connected:    "connected",
	Disconnected: "disconnected",
	ButtonDown:   "button_down",
	ButtonUp:     "button_up",
	AxisChanged:  "axis_changed",
}

func (k EventKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// MarshalText renders the kind as its lower-case name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a name produced by MarshalText.
func (k *EventKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return errors.Errorf("unknown event kind %q", text)
}

// Event is a named change on one slot.
//
// Payload per kind:
//   - Connected, Disconnected: Slot, Profile. Index is -1, Control is empty.
//   - ButtonDown, ButtonUp: Slot, Profile, Index, Control, Value (raw button value).
//   - AxisChanged: Slot, Profile, Index, Control, Value (new axis value).
//
// Control is Unknown when the raw index has no entry in the profile.
type Event struct {
	Kind    EventKind `json:"kind"`
	Slot    int       `json:"slot"`
	Profile string    `json:"profile,omitempty"`
	Index   int       `json:"index"`
	Control string    `json:"control,omitempty"`
	Value   float64   `json:"value"`
}

func (e Event) String() string {
	switch e.Kind {
	case Connected, Disconnected:
		return fmt.Sprintf("%s slot=%d profile=%s", e.Kind, e.Slot, e.Profile)
	case AxisChanged:
		return fmt.Sprintf("%s slot=%d %s[%d]=%.3f", e.Kind, e.Slot, e.Control, e.Index, e.Value)
	default:
		return fmt.Sprintf("%s slot=%d %s[%d]", e.Kind, e.Slot, e.Control, e.Index)
	}
}
