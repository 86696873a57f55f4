package evdevpad

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padmap/gamepad"
)

func TestIndicesMatchEvdevProfile(t *testing.T) {
	p, ok := gamepad.DefaultRegistry().Lookup(gamepad.ProfileEvdev)
	require.True(t, ok)

	buttons := map[int]string{
		0x130: "A",
		0x131: "B",
		0x133: "X",
		0x134: "Y",
		0x136: "LB",
		0x137: "RB",
		0x13a: "BACK",
		0x13b: "START",
		0x13c: "HOME",
		0x13d: "LEFT_STICK",
		0x13e: "RIGHT_STICK",
		0x220: "DPAD_UP",
		0x223: "DPAD_RIGHT",
	}
	for code, want := range buttons {
		i, ok := ButtonIndex(code)
		require.True(t, ok, "code %#x", code)
		name, _ := p.Button(i)
		assert.Equal(t, want, name, "code %#x", code)
	}

	axes := map[int]string{
		0x00: "LEFT_STICK_X",
		0x02: "LEFT_TRIGGER",
		0x04: "RIGHT_STICK_Y",
		0x05: "RIGHT_TRIGGER",
		0x10: "DPAD_X",
		0x11: "DPAD_Y",
	}
	for code, want := range axes {
		i, ok := AxisIndex(code)
		require.True(t, ok, "code %#x", code)
		name, _ := p.Axis(i)
		assert.Equal(t, want, name, "code %#x", code)
	}

	_, ok = ButtonIndex(0x110) // BTN_LEFT
	assert.False(t, ok)
	_, ok = AxisIndex(0x08) // ABS_WHEEL
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, -1.0, Normalize(-32768, -32768, 32767))
	assert.Equal(t, 1.0, Normalize(32767, -32768, 32767))
	assert.InDelta(t, 0.0, Normalize(0, -32768, 32767), 0.0001)
	assert.Equal(t, 0.0, Normalize(0, 0, 255), "triggers rest at zero")
	assert.Equal(t, 1.0, Normalize(255, 0, 255))
	assert.Equal(t, -1.0, Normalize(-1, -1, 1))
	assert.Equal(t, 1.0, Normalize(400, 0, 255))
	assert.Equal(t, 0.0, Normalize(5, 3, 3))
}

func TestIdentity(t *testing.T) {
	id := Identity("Logitech Gamepad F310", 0x046d, 0xc21d)
	assert.Equal(t, "046d-c21d-Logitech Gamepad F310", id)
}

type nopCloser struct{ closed bool }

func (c *nopCloser) Close() error {
	c.closed = true
	return nil
}

type listener struct {
	connected    map[int]gamepad.Descriptor
	disconnected []int
}

func (l *listener) Connect(slot int, d gamepad.Descriptor) { l.connected[slot] = d }
func (l *listener) Disconnect(slot int)                    { l.disconnected = append(l.disconnected, slot) }

func TestSlotsAndSnapshots(t *testing.T) {
	s := New("")
	l := &listener{connected: map[int]gamepad.Descriptor{}}
	src, err := s.Factory()(l)
	require.NoError(t, err)

	dev := &nopCloser{}
	_, cancel := context.WithCancel(context.Background())
	slot := s.add(&pad{path: "/dev/input/event3", dev: dev, cancel: cancel}, gamepad.Descriptor{ID: "pad"})
	assert.Equal(t, 0, slot)
	assert.True(t, s.known("/dev/input/event3"))
	assert.Contains(t, l.connected, 0)

	s.setButton(0, 0x131, 1)
	s.setAxis(0, 0x11, -1)
	s.setButton(0, 0x999, 1)

	snap, ok := src.Poll(0)
	require.True(t, ok)
	assert.Len(t, snap.Buttons, numButtons)
	assert.Len(t, snap.Axes, numAxes)
	assert.Equal(t, 1.0, snap.Buttons[1])
	assert.Equal(t, -1.0, snap.Axes[7])

	snap.Buttons[1] = 0
	again, _ := src.Poll(0)
	assert.Equal(t, 1.0, again.Buttons[1], "poll returns a copy")

	_, c2 := context.WithCancel(context.Background())
	assert.Equal(t, 1, s.add(&pad{path: "/dev/input/event4", dev: &nopCloser{}, cancel: c2}, gamepad.Descriptor{}))

	s.remove(0)
	assert.True(t, dev.closed)
	assert.Equal(t, []int{0}, l.disconnected)
	_, ok = src.Poll(0)
	assert.False(t, ok)

	require.NoError(t, s.Close())
	_, ok = src.Poll(1)
	assert.False(t, ok)
}
