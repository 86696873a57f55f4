//go:build linux

package evdevpad

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/kenshaw/evdev"
	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
)

const scanInterval = 1 * time.Second

// Run scans for gamepads every second until ctx is done.
func (s *Source) Run(ctx context.Context) error {
	defer s.Close()
	for {
		s.scan(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(scanInterval):
		}
	}
}

func (s *Source) scan(ctx context.Context) {
	devices, err := filepath.Glob(s.glob)
	if err != nil {
		return
	}
	for _, n := range devices {
		if s.known(n) {
			continue
		}
		d, err := evdev.OpenFile(n)
		if err != nil {
			continue
		}
		if !isGamepad(d) {
			d.Close()
			continue
		}
		s.open(ctx, n, d)
	}
}

// isGamepad accepts devices with a left stick and either a right stick or
// an analog trigger.
func isGamepad(d *evdev.Evdev) bool {
	axes := d.AbsoluteTypes()
	for _, a := range []evdev.AbsoluteType{evdev.AbsoluteX, evdev.AbsoluteY} {
		if _, ok := axes[a]; !ok {
			return false
		}
	}
	_, rx := axes[evdev.AbsoluteRX]
	_, z := axes[evdev.AbsoluteZ]
	return (rx || z) && !strings.Contains(strings.ToLower(d.Name()), "touchpad")
}

func (s *Source) open(ctx context.Context, n string, d *evdev.Evdev) {
	ctx, cancel := context.WithCancel(ctx)
	ch, err := d.Poll(ctx, 64)
	if err != nil {
		log.Printf("could not poll %s: %v", n, err)
		cancel()
		d.Close()
		return
	}

	id := d.ID()
	slot := s.add(&pad{path: n, dev: d, cancel: cancel}, gamepad.Descriptor{
		ID:       Identity(d.Name(), uint16(id.Vendor), uint16(id.Product)),
		Platform: gamepad.PlatformEvdev,
		Buttons:  numButtons,
		Axes:     numAxes,
	})
	log.Printf("[%s] polling %q in slot %d", n, d.Name(), slot)
	go s.poll(ctx, slot, d, ch)
}

// poll applies input events to the slot snapshot until the device goes
// away or ctx is done.
func (s *Source) poll(ctx context.Context, slot int, d *evdev.Evdev, ch <-chan evdev.Event) {
	axes := d.AbsoluteTypes()
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-ch:
			if !ok {
				log.Printf("slot %d: device closed", slot)
				s.remove(slot)
				return
			}
			switch event.Type {
			case evdev.EventKey:
				s.setButton(slot, int(event.Code), int32(event.Value))
			case evdev.EventAbsolute:
				a := axes[evdev.AbsoluteType(event.Code)]
				s.setAxis(slot, int(event.Code), Normalize(int32(event.Value), int32(a.Min), int32(a.Max)))
			}
		}
	}
}
