// Package evdevpad reads gamepads from Linux input event devices.
//
// Raw indices follow the kernel codes: button index is code - BTN_SOUTH with
// the dpad buttons after BTN_THUMBR, and axes are ABS_X..ABS_RZ followed by
// the first hat. This is the layout of the EVDEV profile.
package evdevpad

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/soar/padmap/gamepad"
)

// DefaultGlob matches the event device nodes scanned for gamepads.
const DefaultGlob = "/dev/input/event*"

// kernel input codes
const (
	btnSouth   = 0x130
	btnThumbR  = 0x13e
	btnDpadUp  = 0x220
	btnDpadRgt = 0x223
	absX       = 0x00
	absRZ      = 0x05
	absHat0X   = 0x10
	absHat0Y   = 0x11
)

const (
	numButtons = btnThumbR - btnSouth + 1 + 4
	numAxes    = absRZ - absX + 1 + 2
)

// ButtonIndex maps a key code to a raw button index.
func ButtonIndex(code int) (int, bool) {
	switch {
	case code >= btnSouth && code <= btnThumbR:
		return code - btnSouth, true
	case code >= btnDpadUp && code <= btnDpadRgt:
		return btnThumbR - btnSouth + 1 + code - btnDpadUp, true
	}
	return 0, false
}

// AxisIndex maps an absolute axis code to a raw axis index.
func AxisIndex(code int) (int, bool) {
	switch {
	case code >= absX && code <= absRZ:
		return code - absX, true
	case code == absHat0X || code == absHat0Y:
		return absRZ - absX + 1 + code - absHat0X, true
	}
	return 0, false
}

// Normalize scales v from [lo, hi] to -1..1, or to 0..1 for axes that
// never go negative such as analog triggers.
func Normalize(v, lo, hi int32) float64 {
	if hi <= lo {
		return 0
	}
	f := float64(v-lo) / float64(hi-lo)
	if lo < 0 {
		f = f*2 - 1
	}
	switch {
	case f < -1:
		return -1
	case f > 1:
		return 1
	}
	return f
}

// Identity formats a device identity the way Firefox does.
func Identity(name string, vendor, product uint16) string {
	return fmt.Sprintf("%04x-%04x-%s", vendor, product, name)
}

type pad struct {
	path   string
	dev    io.Closer
	cancel context.CancelFunc
	snap   gamepad.Snapshot
}

// Source is a gamepad.Source over evdev nodes. Run scans for devices and
// keeps the latest snapshot per slot; Poll hands out copies.
type Source struct {
	glob string

	mu       sync.Mutex
	listener gamepad.Listener
	pads     map[int]*pad
}

// New returns a source scanning glob, or DefaultGlob if empty.
func New(glob string) *Source {
	if glob == "" {
		glob = DefaultGlob
	}
	return &Source{glob: glob, pads: make(map[int]*pad)}
}

// Factory returns a factory that binds s to the manager.
func (s *Source) Factory() gamepad.SourceFactory {
	return func(l gamepad.Listener) (gamepad.Source, error) {
		s.mu.Lock()
		s.listener = l
		s.mu.Unlock()
		return s, nil
	}
}

// Poll implements gamepad.Source.
func (s *Source) Poll(slot int) (gamepad.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pads[slot]
	if !ok {
		return gamepad.Snapshot{}, false
	}
	return p.snap.Clone(), true
}

// Close releases every open device.
func (s *Source) Close() error {
	s.mu.Lock()
	pads := s.pads
	s.pads = make(map[int]*pad)
	s.mu.Unlock()
	for _, p := range pads {
		p.cancel()
		p.dev.Close()
	}
	return nil
}

func (s *Source) known(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pads {
		if p.path == path {
			return true
		}
	}
	return false
}

// add registers a device in the lowest free slot and notifies the listener.
func (s *Source) add(p *pad, d gamepad.Descriptor) int {
	s.mu.Lock()
	slot := 0
	for ; ; slot++ {
		if _, ok := s.pads[slot]; !ok {
			break
		}
	}
	p.snap = gamepad.Snapshot{
		Buttons: make([]float64, numButtons),
		Axes:    make([]float64, numAxes),
	}
	s.pads[slot] = p
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.Connect(slot, d)
	}
	return slot
}

func (s *Source) remove(slot int) {
	s.mu.Lock()
	p, ok := s.pads[slot]
	delete(s.pads, slot)
	l := s.listener
	s.mu.Unlock()
	if !ok {
		return
	}
	p.cancel()
	p.dev.Close()
	if l != nil {
		l.Disconnect(slot)
	}
}

func (s *Source) setButton(slot, code int, value int32) {
	i, ok := ButtonIndex(code)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pads[slot]; ok {
		v := 0.0
		if value != 0 {
			v = 1
		}
		p.snap.Buttons[i] = v
	}
}

func (s *Source) setAxis(slot, code int, v float64) {
	i, ok := AxisIndex(code)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pads[slot]; ok {
		p.snap.Axes[i] = v
	}
}
