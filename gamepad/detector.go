package gamepad

import "math"

// Snapshot is one raw read of a device. Buttons are 0..1, axes -1..1.
type Snapshot struct {
	Buttons []float64 `json:"buttons"`
	Axes    []float64 `json:"axes"`
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Buttons: append([]float64(nil), s.Buttons...),
		Axes:    append([]float64(nil), s.Axes...),
	}
}

const DefaultPressThreshold = 0.5

// Detector turns two snapshots into named events.
type Detector struct {
	// PressThreshold is the value at or above which a button counts as
	// pressed. Zero means DefaultPressThreshold.
	PressThreshold float64
	// Deadzone clamps axis values with a smaller magnitude to 0 before
	// comparing.
	Deadzone float64
}

// ApplyDeadzone returns 0 if the value is within the deadzone threshold.
func ApplyDeadzone(v float64, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

// Diff compares prev with cur and returns the events for every raw index
// whose state changed: buttons in ascending index order, then axes in
// ascending index order. Indices missing from either snapshot read as 0, so
// a zero prev reports any non-resting initial state.
func (d Detector) Diff(slot int, prev, cur Snapshot, p *Profile) []Event {
	threshold := d.PressThreshold
	if threshold == 0 {
		threshold = DefaultPressThreshold
	}

	var events []Event
	n := max(len(prev.Buttons), len(cur.Buttons))
	for i := 0; i < n; i++ {
		was := at(prev.Buttons, i) >= threshold
		is := at(cur.Buttons, i) >= threshold
		if was == is {
			continue
		}
		kind := ButtonUp
		if is {
			kind = ButtonDown
		}
		events = append(events, Event{
			Kind:    kind,
			Slot:    slot,
			Profile: p.ID(),
			Index:   i,
			Control: p.buttonName(i),
			Value:   at(cur.Buttons, i),
		})
	}

	n = max(len(prev.Axes), len(cur.Axes))
	for i := 0; i < n; i++ {
		was := ApplyDeadzone(at(prev.Axes, i), d.Deadzone)
		is := ApplyDeadzone(at(cur.Axes, i), d.Deadzone)
		if was == is {
			continue
		}
		events = append(events, Event{
			Kind:    AxisChanged,
			Slot:    slot,
			Profile: p.ID(),
			Index:   i,
			Control: p.axisName(i),
			Value:   is,
		})
	}
	return events
}
