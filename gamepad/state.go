package gamepad

// State is the per-slot model of a connected device. The profile is bound
// at connect time and never changes until the slot is reconnected.
type State struct {
	slot       int
	descriptor Descriptor
	profile    *Profile
	prev       Snapshot
}

func newState(slot int, d Descriptor, p *Profile) *State {
	return &State{slot: slot, descriptor: d, profile: p}
}

// StateInfo is a read-only copy of a State handed out to callers.
type StateInfo struct {
	Slot       int        `json:"slot"`
	Descriptor Descriptor `json:"descriptor"`
	Profile    string     `json:"profile"`
	Last       Snapshot   `json:"last"`
}

func (s *State) info() StateInfo {
	return StateInfo{
		Slot:       s.slot,
		Descriptor: s.descriptor,
		Profile:    s.profile.ID(),
		Last:       s.prev.Clone(),
	}
}

// advance diffs cur against the stored snapshot and stores cur in its
// place, whether or not anything changed.
func (s *State) advance(d Detector, cur Snapshot) []Event {
	events := d.Diff(s.slot, s.prev, cur, s.profile)
	s.prev = cur.Clone()
	return events
}
