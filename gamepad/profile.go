package gamepad

import (
	"github.com/pkg/errors"
)

// Unknown is the control name reported for raw indices that have no entry
// in the bound profile.
const Unknown = "UNKNOWN"

// Entry maps a raw index to a control name.
type Entry struct {
	Index int    `json:"index" mapstructure:"index"`
	Name  string `json:"name" mapstructure:"name"`
}

// Seq builds entries for consecutive raw indices starting at 0.
// An empty name leaves a gap at that index.
func Seq(names ...string) []Entry {
	entries := make([]Entry, 0, len(names))
	for i, n := range names {
		if n == "" {
			continue
		}
		entries = append(entries, Entry{Index: i, Name: n})
	}
	return entries
}

// Profile is an immutable raw index to control name table for one
// vendor/platform combination.
type Profile struct {
	id      string
	buttons []Entry
	axes    []Entry
	byBtn   map[int]string
	byAxis  map[int]string
}

// NewProfile validates and builds a profile. Indices must be unique and
// non-negative within the buttons and within the axes, and so must names.
func NewProfile(id string, buttons, axes []Entry) (*Profile, error) {
	if id == "" {
		return nil, errors.New("profile id is empty")
	}
	byBtn, err := index(buttons)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s buttons", id)
	}
	byAxis, err := index(axes)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s axes", id)
	}
	return &Profile{
		id:      id,
		buttons: append([]Entry(nil), buttons...),
		axes:    append([]Entry(nil), axes...),
		byBtn:   byBtn,
		byAxis:  byAxis,
	}, nil
}

// MustProfile is like NewProfile but panics on an invalid table.
func MustProfile(id string, buttons, axes []Entry) *Profile {
	p, err := NewProfile(id, buttons, axes)
	if err != nil {
		panic(err)
	}
	return p
}

func index(entries []Entry) (map[int]string, error) {
	m := make(map[int]string, len(entries))
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		switch {
		case e.Index < 0:
			return nil, errors.Errorf("negative index %d", e.Index)
		case e.Name == "":
			return nil, errors.Errorf("empty name at index %d", e.Index)
		case names[e.Name]:
			return nil, errors.Errorf("duplicate name %q", e.Name)
		}
		if _, ok := m[e.Index]; ok {
			return nil, errors.Errorf("duplicate index %d", e.Index)
		}
		m[e.Index] = e.Name
		names[e.Name] = true
	}
	return m, nil
}

// ID returns the profile identifier, e.g. XBOX_DEFAULT.
func (p *Profile) ID() string {
	return p.id
}

// Button returns the control name for a raw button index.
func (p *Profile) Button(i int) (string, bool) {
	n, ok := p.byBtn[i]
	return n, ok
}

// Axis returns the control name for a raw axis index.
func (p *Profile) Axis(i int) (string, bool) {
	n, ok := p.byAxis[i]
	return n, ok
}

// Buttons returns a copy of the button entries in declaration order.
func (p *Profile) Buttons() []Entry {
	return append([]Entry(nil), p.buttons...)
}

// Axes returns a copy of the axis entries in declaration order.
func (p *Profile) Axes() []Entry {
	return append([]Entry(nil), p.axes...)
}

func (p *Profile) buttonName(i int) string {
	if n, ok := p.byBtn[i]; ok {
		return n
	}
	return Unknown
}

func (p *Profile) axisName(i int) string {
	if n, ok := p.byAxis[i]; ok {
		return n
	}
	return Unknown
}
