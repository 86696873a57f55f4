package gamepad

import (
	"sort"

	"github.com/pkg/errors"
)

// Registry is a read-only set of profiles keyed by id. A Registry never
// changes after construction; With returns a new one.
type Registry struct {
	profiles map[string]*Profile
	def      *Profile
}

// DefaultRegistry returns the built-in profiles with DEFAULT as fallback.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(ProfileDefault, builtinProfiles()...)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistry builds a registry from profiles. def names the fallback
// profile and must be one of them. Later profiles replace earlier ones with
// the same id.
func NewRegistry(def string, profiles ...*Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		if p == nil {
			return nil, errors.New("nil profile")
		}
		r.profiles[p.ID()] = p
	}
	d, ok := r.profiles[def]
	if !ok {
		return nil, errors.Errorf("default profile %q not registered", def)
	}
	r.def = d
	return r, nil
}

// Lookup returns the profile registered under id.
func (r *Registry) Lookup(id string) (*Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// Default returns the fallback profile.
func (r *Registry) Default() *Profile {
	return r.def
}

// IDs returns the registered profile ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// With returns a copy of r where overrides replace or extend the existing
// profiles. Overriding the default id also replaces the fallback.
func (r *Registry) With(overrides ...*Profile) *Registry {
	n := &Registry{
		profiles: make(map[string]*Profile, len(r.profiles)+len(overrides)),
		def:      r.def,
	}
	for id, p := range r.profiles {
		n.profiles[id] = p
	}
	for _, p := range overrides {
		if p == nil {
			continue
		}
		n.profiles[p.ID()] = p
		if p.ID() == r.def.ID() {
			n.def = p
		}
	}
	return n
}
