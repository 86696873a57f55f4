// Package gamepadtest provides an in-memory platform source for exercising
// a gamepad.Manager without hardware.
package gamepadtest

import (
	"sync"

	"github.com/soar/padmap/gamepad"
)

// Default raw sizes used when NewGamepad is given zero counts.
const (
	DefaultButtons = 17
	DefaultAxes    = 4
)

// Gamepad is a simulated device. Tests write Buttons and Axes directly
// between updates.
type Gamepad struct {
	Slot     int
	ID       string
	Platform gamepad.Platform
	Buttons  []float64
	Axes     []float64
}

// NewGamepad returns a resting device with the given raw sizes.
func NewGamepad(slot int, id string, buttons, axes int) *Gamepad {
	if buttons <= 0 {
		buttons = DefaultButtons
	}
	if axes <= 0 {
		axes = DefaultAxes
	}
	return &Gamepad{
		Slot:    slot,
		ID:      id,
		Buttons: make([]float64, buttons),
		Axes:    make([]float64, axes),
	}
}

// Descriptor returns what the device reports at connect time.
func (g *Gamepad) Descriptor() gamepad.Descriptor {
	return gamepad.Descriptor{
		ID:       g.ID,
		Platform: g.Platform,
		Buttons:  len(g.Buttons),
		Axes:     len(g.Axes),
	}
}

// Source is a gamepad.Source backed by simulated devices.
type Source struct {
	mu       sync.Mutex
	listener gamepad.Listener
	pads     map[int]*Gamepad
	polls    int
}

// NewSource returns an empty source.
func NewSource() *Source {
	return &Source{pads: make(map[int]*Gamepad)}
}

// Factory returns a gamepad.SourceFactory that hands out s.
func (s *Source) Factory() gamepad.SourceFactory {
	return func(l gamepad.Listener) (gamepad.Source, error) {
		s.mu.Lock()
		s.listener = l
		s.mu.Unlock()
		return s, nil
	}
}

// Connect plugs g in and notifies the listener.
func (s *Source) Connect(g *Gamepad) {
	s.mu.Lock()
	s.pads[g.Slot] = g
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.Connect(g.Slot, g.Descriptor())
	}
}

// Disconnect unplugs the device in slot and notifies the listener.
func (s *Source) Disconnect(slot int) {
	s.mu.Lock()
	delete(s.pads, slot)
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l.Disconnect(slot)
	}
}

// Poll implements gamepad.Source.
func (s *Source) Poll(slot int) (gamepad.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls++
	g, ok := s.pads[slot]
	if !ok {
		return gamepad.Snapshot{}, false
	}
	return gamepad.Snapshot{Buttons: g.Buttons, Axes: g.Axes}.Clone(), true
}

// Polls returns how many times Poll has been called.
func (s *Source) Polls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

// Sweep presses every button of g in turn, then pushes every axis to 1.0,
// running update after each step and releasing the control afterwards.
func Sweep(g *Gamepad, update func()) {
	for i := range g.Buttons {
		g.Buttons[i] = 1.0
		update()
		g.Buttons[i] = 0.0
	}
	for i := range g.Axes {
		g.Axes[i] = 1.0
		update()
		g.Axes[i] = 0.0
	}
}

// Recorder collects events.
type Recorder struct {
	mu     sync.Mutex
	events []gamepad.Event
}

// Record is a gamepad.Handler.
func (r *Recorder) Record(e gamepad.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns the recorded events.
func (r *Recorder) Events() []gamepad.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gamepad.Event(nil), r.events...)
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Controls returns the control names of recorded events of kind.
func (r *Recorder) Controls(kind gamepad.EventKind) []string {
	var names []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			names = append(names, e.Control)
		}
	}
	return names
}
