package hub

import (
	"encoding/json"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
)

// Client represents a connected WebSocket client.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	closed bool          // guarded by the hub lock
	slot   atomic.Int64  // slot this client follows, AllSlots for every pad
	kinds  atomic.Uint32 // bit per followed event kind, 0 for every kind
}

// NewClient creates a new Client attached to the hub. It follows every
// slot until it asks for one.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	c.slot.Store(AllSlots)
	return c
}

// SetSlot restricts the client to events of one slot.
func (c *Client) SetSlot(slot int) {
	c.slot.Store(int64(slot))
}

// Slot returns the followed slot.
func (c *Client) Slot() int {
	return int(c.slot.Load())
}

func (c *Client) follows(slot int) bool {
	s := c.Slot()
	return s == AllSlots || s == slot
}

// SetKinds restricts the client to events of the given kinds. An empty
// list follows every kind again.
func (c *Client) SetKinds(kinds []gamepad.EventKind) {
	var mask uint32
	for _, k := range kinds {
		mask |= 1 << k
	}
	c.kinds.Store(mask)
}

// Kinds returns the followed kinds, nil when the client follows all.
func (c *Client) Kinds() []gamepad.EventKind {
	mask := c.kinds.Load()
	var kinds []gamepad.EventKind
	for k := gamepad.Connected; k <= gamepad.AxisChanged; k++ {
		if mask&(1<<k) != 0 {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

func (c *Client) wants(kind gamepad.EventKind) bool {
	mask := c.kinds.Load()
	return mask == 0 || mask&(1<<kind) != 0
}

// WritePump sends messages from the send channel to the WebSocket connection.
func (c *Client) WritePump() {
	defer func() {
		c.conn.Close()
	}()

	for msg := range c.send {
		err := c.conn.WriteMessage(websocket.TextMessage, msg)
		if err != nil {
			break
		}
	}
}

// ReadPump reads client commands until the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Error parsing client message: %v", err)
			continue
		}

		switch clientMsg.Type {
		case "select_slot":
			if clientMsg.Slot < AllSlots {
				log.Printf("Failed to switch to slot %d: invalid slot", clientMsg.Slot)
				continue
			}
			c.SetSlot(clientMsg.Slot)
			data, _ := json.Marshal(NewSlotSelectedMessage(clientMsg.Slot))
			c.hub.Send(c, data)
			log.Printf("Client switched to slot %d", clientMsg.Slot)

		case "select_kinds":
			c.SetKinds(clientMsg.Kinds)
			data, _ := json.Marshal(NewKindsSelectedMessage(c.Kinds()))
			c.hub.Send(c, data)
			log.Printf("Client follows event kinds %v", clientMsg.Kinds)
		}
	}
}
