package hub

import (
	"time"

	"github.com/soar/padmap/gamepad"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type      string              `json:"type"`            // "event", "snapshot", "slot_selected" or "kinds_selected"
	Seq       int64               `json:"seq"`             // Sequence number for ordering
	Timestamp int64               `json:"timestamp"`       // Unix timestamp in milliseconds
	Event     *gamepad.Event      `json:"event,omitempty"` // Set for type "event"
	Pads      []gamepad.StateInfo `json:"pads,omitempty"`  // Connected pads for type "snapshot"
	Slot      *int                `json:"slot,omitempty"`  // Followed slot for type "slot_selected"
	Kinds     []gamepad.EventKind `json:"kinds,omitempty"` // Followed kinds for type "kinds_selected", empty for all
}

// NewEventMessage wraps a single gamepad event.
func NewEventMessage(seq int64, e gamepad.Event) *WSMessage {
	return &WSMessage{
		Type:      "event",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Event:     &e,
	}
}

// NewSnapshotMessage carries the state of every connected pad.
func NewSnapshotMessage(seq int64, pads []gamepad.StateInfo) *WSMessage {
	return &WSMessage{
		Type:      "snapshot",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Pads:      pads,
	}
}

// NewSlotSelectedMessage confirms a "select_slot" request.
func NewSlotSelectedMessage(slot int) *WSMessage {
	return &WSMessage{
		Type:      "slot_selected",
		Timestamp: time.Now().UnixMilli(),
		Slot:      &slot,
	}
}

// NewKindsSelectedMessage confirms a "select_kinds" request.
func NewKindsSelectedMessage(kinds []gamepad.EventKind) *WSMessage {
	return &WSMessage{
		Type:      "kinds_selected",
		Timestamp: time.Now().UnixMilli(),
		Kinds:     kinds,
	}
}

// ClientMessage represents a message sent from the client to the server.
//
//	{"type":"select_slot","slot":1}
//	{"type":"select_kinds","kinds":["button_down","button_up"]}
type ClientMessage struct {
	Type  string              `json:"type"`
	Slot  int                 `json:"slot"`
	Kinds []gamepad.EventKind `json:"kinds,omitempty"`
}
