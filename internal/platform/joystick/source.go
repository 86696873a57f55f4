// Package joystick reads joysticks through SDL3 and reports them as raw,
// index-addressed snapshots.
package joystick

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/jupiterrider/purego-sdl3/sdl"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
)

const (
	pollDelayNS       = 16_000_000 // ~60Hz
	hatUp       uint8 = 0x01
	hatRight    uint8 = 0x02
	hatDown     uint8 = 0x04
	hatLeft     uint8 = 0x08
)

type joystickInfo struct {
	joystick *sdl.Joystick
	name     string
	id       sdl.JoystickID
	slot     int
}

// Source is a gamepad.Source over the SDL3 joystick API. All SDL calls,
// including Poll, happen on the goroutine running Run; the update cycle is
// pumped from there.
type Source struct {
	pump      func()
	listener  gamepad.Listener
	joysticks map[sdl.JoystickID]*joystickInfo
	slots     map[int]*joystickInfo
}

// New returns a source that calls pump once per loop iteration after
// processing device events. pump is normally ManualStrategy.Update.
func New(pump func()) *Source {
	return &Source{
		pump:      pump,
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		slots:     make(map[int]*joystickInfo),
	}
}

// Factory returns a factory that binds s to the manager.
func (s *Source) Factory() gamepad.SourceFactory {
	return func(l gamepad.Listener) (gamepad.Source, error) {
		s.listener = l
		return s, nil
	}
}

// Run initializes SDL and runs the event and pump loop on a locked OS
// thread until ctx is done.
func (s *Source) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if s.listener == nil {
		return errors.New("sdl source is not bound to a manager")
	}
	if !sdl.Init(sdl.InitJoystick) {
		return errors.Errorf("SDL init failed: %s", sdl.GetError())
	}
	defer sdl.Quit()

	log.Printf("SDL3 joystick subsystem initialized")

	// Check for already-connected joysticks
	for _, id := range sdl.GetJoysticks() {
		s.openJoystick(id)
	}

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return nil
		default:
		}

		s.processEvents()
		s.pump()
		sdl.DelayNS(pollDelayNS)
	}
}

func (s *Source) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			s.openJoystick(event.JDevice().Which)

		case sdl.EventJoystickRemoved:
			s.removeJoystick(event.JDevice().Which)

		case sdl.EventJoystickButtonDown, sdl.EventJoystickButtonUp:
			be := event.JButton()
			log.Debug().Msgf("raw button %d joystick %d", be.Button, be.Which)

		case sdl.EventJoystickHatMotion:
			he := event.JHat()
			log.Debug().Msgf("raw hat %d value 0x%02X joystick %d", he.Hat, he.Value, he.Which)
		}
	}
}

func (s *Source) freeSlot() int {
	for i := 0; ; i++ {
		if _, ok := s.slots[i]; !ok {
			return i
		}
	}
}

func (s *Source) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := s.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		log.Printf("failed to open joystick %d: %s", instanceID, sdl.GetError())
		return
	}

	info := &joystickInfo{
		joystick: js,
		name:     sdl.GetJoystickName(js),
		id:       sdl.GetJoystickID(js),
		slot:     s.freeSlot(),
	}
	s.joysticks[info.id] = info
	s.slots[info.slot] = info

	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	s.listener.Connect(info.slot, gamepad.Descriptor{
		ID:       Identity(info.name, vendorID, productID),
		Platform: gamepad.PlatformSDL,
		Buttons:  int(sdl.GetNumJoystickButtons(js)),
		Axes:     int(sdl.GetNumJoystickAxes(js)),
	})
}

func (s *Source) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := s.joysticks[instanceID]
	if !exists {
		return
	}

	sdl.CloseJoystick(info.joystick)
	delete(s.joysticks, instanceID)
	delete(s.slots, info.slot)
	s.listener.Disconnect(info.slot)
}

func (s *Source) closeAll() {
	for id, info := range s.joysticks {
		sdl.CloseJoystick(info.joystick)
		delete(s.joysticks, id)
		delete(s.slots, info.slot)
		s.listener.Disconnect(info.slot)
	}
}

// Poll implements gamepad.Source. Hat 0 is reported as four buttons
// starting at gamepad.SDLHatBase unless the device has more buttons than
// that.
func (s *Source) Poll(slot int) (gamepad.Snapshot, bool) {
	info, ok := s.slots[slot]
	if !ok || !sdl.JoystickConnected(info.joystick) {
		return gamepad.Snapshot{}, false
	}
	js := info.joystick

	snap := gamepad.Snapshot{
		Buttons: make([]float64, sdl.GetNumJoystickButtons(js)),
		Axes:    make([]float64, sdl.GetNumJoystickAxes(js)),
	}
	for i := range snap.Axes {
		snap.Axes[i] = NormalizeAxis(sdl.GetJoystickAxis(js, int32(i)))
	}
	for i := range snap.Buttons {
		if sdl.GetJoystickButton(js, int32(i)) {
			snap.Buttons[i] = 1
		}
	}
	if sdl.GetNumJoystickHats(js) > 0 {
		hat := sdl.GetJoystickHat(js, 0)
		snap.Buttons = gamepad.ExpandHat(snap.Buttons,
			hat&hatUp != 0, hat&hatDown != 0, hat&hatLeft != 0, hat&hatRight != 0)
	}
	return snap, true
}

// Identity formats a device identity the way Chrome does, so vendor and
// product ids match the same resolver patterns.
func Identity(name string, vendorID, productID uint16) string {
	return fmt.Sprintf("%s (Vendor: %04x Product: %04x)", name, vendorID, productID)
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}
