package gamepad_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/padmap/gamepad"
	"github.com/soar/padmap/gamepad/gamepadtest"
)

type rig struct {
	source  *gamepadtest.Source
	updater *gamepad.ManualStrategy
	manager *gamepad.Manager
	rec     *gamepadtest.Recorder
}

func newRig(t *testing.T, opts ...gamepad.Option) *rig {
	t.Helper()
	r := &rig{
		source:  gamepadtest.NewSource(),
		updater: gamepad.NewManualStrategy(),
		rec:     &gamepadtest.Recorder{},
	}
	opts = append([]gamepad.Option{
		gamepad.WithSourceFactory(r.source.Factory()),
		gamepad.WithStrategy(r.updater),
	}, opts...)
	r.manager = gamepad.New(opts...)
	r.manager.OnAny(r.rec.Record)
	require.NoError(t, r.manager.Init())
	t.Cleanup(func() { r.manager.Close() })
	return r
}

func buttonsDown(r *rig, g *gamepadtest.Gamepad) []string {
	var got []string
	unsub := r.manager.On(gamepad.ButtonDown, func(e gamepad.Event) {
		got = append(got, e.Control)
	})
	defer unsub()
	gamepadtest.Sweep(g, r.updater.Update)
	return got
}

// axesPositive mirrors a consumer that ignores release-to-zero reports.
func axesPositive(r *rig, g *gamepadtest.Gamepad) []string {
	var got []string
	unsub := r.manager.On(gamepad.AxisChanged, func(e gamepad.Event) {
		if e.Value > 0 {
			got = append(got, e.Control)
		}
	})
	defer unsub()
	gamepadtest.Sweep(g, r.updater.Update)
	return got
}

var standardAxisNames = []string{"LEFT_STICK_X", "LEFT_STICK_Y", "RIGHT_STICK_X", "RIGHT_STICK_Y"}

func TestMappings(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		platform gamepad.Platform
		buttons  int
		profile  string
		wantBtns []string
		wantAxes []string
	}{
		{
			name:    "xbox",
			id:      "xbox gamepad",
			buttons: 17,
			profile: gamepad.ProfileXbox,
			wantBtns: []string{"A", "B", "X", "Y", "LB", "RB", "LEFT_TRIGGER", "RIGHT_TRIGGER",
				"BACK", "START", "LEFT_STICK", "RIGHT_STICK",
				"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
				"HOME"},
			wantAxes: standardAxisNames,
		},
		{
			name:     "logitech on webkit",
			id:       "logitech gamepad",
			platform: gamepad.PlatformWebKit,
			profile:  gamepad.ProfileLogitechWebKit,
			// HOME sits between the stick clicks as reported by the engine.
			wantBtns: []string{"X", "A", "B", "Y", "LB", "RB", "LEFT_TRIGGER", "RIGHT_TRIGGER",
				"BACK", "START", "LEFT_STICK", "HOME", "RIGHT_STICK", "DPAD_UP", "DPAD_DOWN", "DPAD_LEFT",
				"DPAD_RIGHT"},
			wantAxes: standardAxisNames,
		},
		{
			name:     "logitech on firefox",
			id:       "logitech gamepad",
			platform: gamepad.PlatformFirefox,
			profile:  gamepad.ProfileLogitechFirefox,
			// the simulated pad has 17 buttons, the last two have no entry
			wantBtns: []string{"A", "B", "X", "Y", "LB", "RB",
				"BACK", "START", "LEFT_STICK", "RIGHT_STICK", "HOME",
				"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
				gamepad.Unknown, gamepad.Unknown},
			wantAxes: []string{"LEFT_STICK_X", "LEFT_STICK_Y", "LEFT_TRIGGER", "RIGHT_STICK_X"},
		},
		{
			name:     "playstation on webkit",
			id:       "playstation gamepad",
			platform: gamepad.PlatformWebKit,
			buttons:  17,
			profile:  gamepad.ProfilePlaystationWebKit,
			wantBtns: []string{"CROSS", "CIRCLE", "SQUARE", "TRIANGLE", "LB1", "RB1", "LB2", "RB2",
				"SELECT", "START", "LEFT_STICK", "RIGHT_STICK",
				"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
				"HOME"},
			wantAxes: standardAxisNames,
		},
		{
			name:     "playstation on firefox",
			id:       "playstation gamepad",
			platform: gamepad.PlatformFirefox,
			profile:  gamepad.ProfilePlaystationFirefox,
			wantBtns: []string{"SELECT", "LEFT_STICK", "RIGHT_STICK", "START",
				"DPAD_UP", "DPAD_RIGHT", "DPAD_DOWN", "DPAD_LEFT",
				gamepad.Unknown, gamepad.Unknown,
				"LB1", "RB1",
				"TRIANGLE", "CIRCLE", "CROSS", "SQUARE",
				gamepad.Unknown},
			wantAxes: standardAxisNames,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("buttons", func(t *testing.T) {
				r := newRig(t)
				g := gamepadtest.NewGamepad(0, tt.id, tt.buttons, 0)
				g.Platform = tt.platform
				r.source.Connect(g)

				st, ok := r.manager.State(0)
				require.True(t, ok)
				assert.Equal(t, tt.profile, st.Profile)
				assert.Equal(t, tt.wantBtns, buttonsDown(r, g))
			})
			t.Run("axes", func(t *testing.T) {
				r := newRig(t)
				g := gamepadtest.NewGamepad(0, tt.id, tt.buttons, 0)
				g.Platform = tt.platform
				r.source.Connect(g)
				assert.Equal(t, tt.wantAxes, axesPositive(r, g))
			})
		})
	}
}

func TestEveryMappedControlRoundTrips(t *testing.T) {
	reg := gamepad.DefaultRegistry()
	for _, id := range reg.IDs() {
		p, _ := reg.Lookup(id)
		t.Run(id, func(t *testing.T) {
			for _, e := range p.Buttons() {
				r := newRig(t, gamepad.WithRules([]gamepad.Rule{{Profile: id}}))
				g := gamepadtest.NewGamepad(0, "test pad", e.Index+1, 1)
				r.source.Connect(g)
				r.rec.Reset()

				g.Buttons[e.Index] = 1.0
				r.updater.Update()
				g.Buttons[e.Index] = 0.0
				r.updater.Update()

				evs := r.rec.Events()
				require.Len(t, evs, 2, "button %s", e.Name)
				assert.Equal(t, gamepad.ButtonDown, evs[0].Kind)
				assert.Equal(t, gamepad.ButtonUp, evs[1].Kind)
				assert.Equal(t, e.Name, evs[0].Control)
				assert.Equal(t, e.Name, evs[1].Control)
			}
			for _, e := range p.Axes() {
				r := newRig(t, gamepad.WithRules([]gamepad.Rule{{Profile: id}}))
				g := gamepadtest.NewGamepad(0, "test pad", 1, e.Index+1)
				r.source.Connect(g)
				r.rec.Reset()

				g.Axes[e.Index] = 1.0
				r.updater.Update()
				g.Axes[e.Index] = 0.0
				r.updater.Update()

				evs := r.rec.Events()
				require.Len(t, evs, 2, "axis %s", e.Name)
				for i, want := range []float64{1.0, 0.0} {
					assert.Equal(t, gamepad.AxisChanged, evs[i].Kind)
					assert.Equal(t, e.Name, evs[i].Control)
					assert.Equal(t, want, evs[i].Value)
				}
			}
		})
	}
}

func TestExpandHat(t *testing.T) {
	buttons := make([]float64, 11)
	buttons[0] = 1
	got := gamepad.ExpandHat(buttons, false, true, true, false)
	require.Len(t, got, gamepad.SDLHatBase+4)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, []float64{0, 1, 1, 0}, got[gamepad.SDLHatBase:])

	many := make([]float64, gamepad.SDLHatBase+2)
	got = gamepad.ExpandHat(many, true, true, true, true)
	assert.Equal(t, many, got, "hat is dropped rather than overwriting real buttons")
	for _, v := range got {
		assert.Zero(t, v)
	}

	exact := gamepad.ExpandHat(make([]float64, gamepad.SDLHatBase), true, false, false, false)
	assert.Equal(t, 1.0, exact[gamepad.SDLHatBase])
}

func TestHatDrivesSDLDpad(t *testing.T) {
	r := newRig(t)
	g := gamepadtest.NewGamepad(0, "xbox controller", 11, 6)
	g.Platform = gamepad.PlatformSDL
	g.Buttons = gamepad.ExpandHat(g.Buttons, false, false, false, false)
	r.source.Connect(g)

	g.Buttons = gamepad.ExpandHat(g.Buttons[:11], false, false, true, false)
	r.updater.Update()
	assert.Equal(t, []string{"DPAD_LEFT"}, r.rec.Controls(gamepad.ButtonDown))
}
