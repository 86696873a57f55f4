package hub

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
)

const (
	fullSyncInterval = 5 * time.Second
	eventBuffer      = 1024
)

// Pads is the read side of the gamepad manager.
type Pads interface {
	Connected() []int
	State(slot int) (gamepad.StateInfo, bool)
}

// Broadcaster forwards gamepad events to the hub and periodically sends a
// full snapshot of the connected pads.
type Broadcaster struct {
	hub     *Hub
	pads    Pads
	events  chan gamepad.Event
	seq     atomic.Int64
	dropped atomic.Int64
}

func NewBroadcaster(h *Hub, pads Pads) *Broadcaster {
	return &Broadcaster{
		hub:    h,
		pads:   pads,
		events: make(chan gamepad.Event, eventBuffer),
	}
}

// Handle queues an event for broadcasting. It never blocks, so it can be
// subscribed with Manager.OnAny directly; events are dropped when the
// buffer is full.
func (b *Broadcaster) Handle(e gamepad.Event) {
	select {
	case b.events <- e:
	default:
		if b.dropped.Add(1) == 1 {
			log.Warn().Msg("broadcast buffer full, dropping events")
		}
	}
}

// Run starts the broadcaster loop until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-b.events:
			b.sendEvent(e)
			// A connect or disconnect changes the pad list
			if e.Kind == gamepad.Connected || e.Kind == gamepad.Disconnected {
				b.sendFull()
			}

		case <-ticker.C:
			if n := b.dropped.Swap(0); n > 0 {
				log.Warn().Int64("dropped", n).Msg("broadcast events dropped")
			}
			if len(b.pads.Connected()) > 0 {
				b.sendFull()
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// Snapshot returns the state of every connected pad in slot order.
func (b *Broadcaster) Snapshot() []gamepad.StateInfo {
	slots := b.pads.Connected()
	pads := make([]gamepad.StateInfo, 0, len(slots))
	for _, slot := range slots {
		if st, ok := b.pads.State(slot); ok {
			pads = append(pads, st)
		}
	}
	return pads
}

// SendInitialState sends the current snapshot to a newly connected client.
func (b *Broadcaster) SendInitialState(c *Client) {
	msg := NewSnapshotMessage(b.seq.Add(1), b.Snapshot())
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling initial state: %v", err)
		return
	}
	b.hub.Send(c, data)
}

func (b *Broadcaster) sendFull() {
	msg := NewSnapshotMessage(b.seq.Add(1), b.Snapshot())
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling snapshot message: %v", err)
		return
	}
	b.hub.Broadcast(data)
}

func (b *Broadcaster) sendEvent(e gamepad.Event) {
	msg := NewEventMessage(b.seq.Add(1), e)
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling event message: %v", err)
		return
	}
	b.hub.BroadcastEvent(data, e.Slot, e.Kind)
}
