package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padmap/gamepad"
	"github.com/soar/padmap/gamepad/gamepadtest"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return h
}

func register(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := NewClient(h, nil)
	n := h.Len()
	h.Register(c)
	require.Eventually(t, func() bool { return h.Len() == n+1 }, time.Second, time.Millisecond)
	return c
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return WSMessage{}
}

func TestBroadcastToSlot(t *testing.T) {
	h := startHub(t)
	all := register(t, h)
	one := register(t, h)
	one.SetSlot(1)

	h.BroadcastToSlot([]byte("a"), 0)
	h.BroadcastToSlot([]byte("b"), 1)
	h.Broadcast([]byte("c"))

	assert.Equal(t, "a", string(<-all.send))
	assert.Equal(t, "b", string(<-all.send))
	assert.Equal(t, "c", string(<-all.send))
	assert.Equal(t, "b", string(<-one.send))
	assert.Equal(t, "c", string(<-one.send))
	assert.Empty(t, one.send)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := register(t, h)

	h.Unregister(c)
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Send(c, []byte("late")), "sending to a removed client is a no-op")
}

func TestFullBufferDisconnects(t *testing.T) {
	h := startHub(t)
	c := register(t, h)
	for i := 0; i < cap(c.send); i++ {
		h.Broadcast([]byte("x"))
	}
	h.Broadcast([]byte("overflow"))
	require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, time.Millisecond)
}

func TestRunStopsClients(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		assert.NoError(t, h.Run(ctx))
		close(done)
	}()
	c := register(t, h)

	cancel()
	<-done
	_, ok := <-c.send
	assert.False(t, ok)

	// Neither blocks once the hub is gone.
	h.Unregister(c)
	late := NewClient(h, nil)
	h.Register(late)
	_, ok = <-late.send
	assert.False(t, ok)
}

func newManager(t *testing.T) (*gamepad.Manager, *gamepadtest.Source, *gamepad.ManualStrategy) {
	t.Helper()
	src := gamepadtest.NewSource()
	updater := gamepad.NewManualStrategy()
	m := gamepad.New(gamepad.WithSourceFactory(src.Factory()), gamepad.WithStrategy(updater))
	require.NoError(t, m.Init())
	t.Cleanup(func() { m.Close() })
	return m, src, updater
}

func TestBroadcasterForwardsEvents(t *testing.T) {
	h := startHub(t)
	m, src, updater := newManager(t)
	b := NewBroadcaster(h, m)
	m.OnAny(b.Handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	c := register(t, h)
	b.SendInitialState(c)
	msg := receive(t, c)
	assert.Equal(t, "snapshot", msg.Type)
	assert.Empty(t, msg.Pads)

	g := gamepadtest.NewGamepad(0, "xbox gamepad", 17, 4)
	src.Connect(g)

	msg = receive(t, c)
	require.Equal(t, "event", msg.Type)
	assert.Equal(t, gamepad.Connected, msg.Event.Kind)
	assert.Equal(t, gamepad.ProfileXbox, msg.Event.Profile)

	msg = receive(t, c)
	require.Equal(t, "snapshot", msg.Type)
	require.Len(t, msg.Pads, 1)
	assert.Equal(t, "xbox gamepad", msg.Pads[0].Descriptor.ID)

	g.Buttons[0] = 1
	updater.Update()
	msg = receive(t, c)
	assert.Equal(t, "event", msg.Type)
	assert.Equal(t, "A", msg.Event.Control)
	assert.Greater(t, msg.Seq, int64(2))
}

func TestEventKindIsText(t *testing.T) {
	data, err := json.Marshal(NewEventMessage(7, gamepad.Event{Kind: gamepad.ButtonDown, Control: "A"}))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"button_down"`)
	assert.Contains(t, string(data), `"seq":7`)
}

func TestSelectSlotOverWebsocket(t *testing.T) {
	h := startHub(t)
	upgrader := websocket.Upgrader{}
	var client *Client
	clients := make(chan *Client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn)
		h.Register(c)
		clients <- c
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	client = <-clients

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "select_slot", Slot: 2}))
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "slot_selected", msg.Type)
	require.NotNil(t, msg.Slot)
	assert.Equal(t, 2, *msg.Slot)
	assert.Equal(t, 2, client.Slot())

	conn.Close()
	require.Eventually(t, func() bool { return h.Len() == 0 }, time.Second, time.Millisecond)
}

func TestBroadcastEventFiltersKinds(t *testing.T) {
	h := startHub(t)
	all := register(t, h)
	buttons := register(t, h)
	buttons.SetKinds([]gamepad.EventKind{gamepad.ButtonDown, gamepad.ButtonUp})
	assert.Equal(t, []gamepad.EventKind{gamepad.ButtonDown, gamepad.ButtonUp}, buttons.Kinds())

	h.BroadcastEvent([]byte("axis"), 0, gamepad.AxisChanged)
	h.BroadcastEvent([]byte("down"), 0, gamepad.ButtonDown)
	h.Broadcast([]byte("snapshot"))

	assert.Equal(t, "axis", string(<-all.send))
	assert.Equal(t, "down", string(<-all.send))
	assert.Equal(t, "snapshot", string(<-all.send))
	assert.Equal(t, "down", string(<-buttons.send))
	assert.Equal(t, "snapshot", string(<-buttons.send), "snapshots ignore the kind filter")
	assert.Empty(t, buttons.send)

	buttons.SetKinds(nil)
	assert.Nil(t, buttons.Kinds())
	h.BroadcastEvent([]byte("axis"), 0, gamepad.AxisChanged)
	assert.Equal(t, "axis", string(<-buttons.send))
}

func TestSelectKindsOverWebsocket(t *testing.T) {
	h := startHub(t)
	upgrader := websocket.Upgrader{}
	clients := make(chan *Client, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(h, conn)
		h.Register(c)
		clients <- c
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	client := <-clients

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"select_kinds","kinds":["rumble"]}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"select_kinds","kinds":["button_down"]}`)))

	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "kinds_selected", msg.Type, "unknown kind names are rejected")
	assert.Equal(t, []gamepad.EventKind{gamepad.ButtonDown}, msg.Kinds)
	assert.Equal(t, []gamepad.EventKind{gamepad.ButtonDown}, client.Kinds())

	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, time.Millisecond)
	b := NewBroadcaster(h, nil)
	b.sendEvent(gamepad.Event{Kind: gamepad.AxisChanged, Slot: 0, Control: "LEFT_STICK_X"})
	b.sendEvent(gamepad.Event{Kind: gamepad.ButtonDown, Slot: 0, Control: "A"})
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "event", msg.Type)
	require.NotNil(t, msg.Event)
	assert.Equal(t, "A", msg.Event.Control)
}
