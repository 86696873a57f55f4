package gamepad

import "strings"

// Platform identifies the runtime or engine that reported a device.
// Engines disagree on raw index order for the same vendor.
type Platform string

const (
	PlatformAny     Platform = ""
	PlatformWebKit  Platform = "webkit"
	PlatformFirefox Platform = "firefox"
	PlatformSDL     Platform = "sdl"
	PlatformEvdev   Platform = "evdev"
)

// Descriptor describes a device at connect time. It is only used to select
// a profile.
type Descriptor struct {
	ID       string   `json:"id"`
	Platform Platform `json:"platform"`
	Buttons  int      `json:"buttons"`
	Axes     int      `json:"axes"`
}

// Rule selects Profile when any of Patterns is a case-insensitive substring
// of the device identity. An empty Platform matches every platform, an empty
// Patterns list matches every identity. MaxButtons > 0 limits the rule to
// devices reporting at most that many buttons.
type Rule struct {
	Patterns   []string `json:"patterns" mapstructure:"patterns"`
	Platform   Platform `json:"platform" mapstructure:"platform"`
	MaxButtons int      `json:"max_buttons" mapstructure:"max_buttons"`
	Profile    string   `json:"profile" mapstructure:"profile"`
}

func (r Rule) match(d Descriptor, id string) bool {
	if r.Platform != PlatformAny && r.Platform != d.Platform {
		return false
	}
	if r.MaxButtons > 0 && d.Buttons > r.MaxButtons {
		return false
	}
	if len(r.Patterns) == 0 {
		return true
	}
	for _, p := range r.Patterns {
		if strings.Contains(id, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

var (
	microsoft = []string{"045e", "xbox", "xinput"}
	logitech  = []string{"046d", "logitech"}
	sony      = []string{"054c", "playstation", "sony", "dualshock", "dualsense"}
	nintendo  = []string{"057e", "pro controller"}
)

// DefaultRules returns the built-in rule list. Vendor ids match both the
// Chrome ("Vendor: 045e Product: 028e") and Firefox ("045e-028e-...") id
// formats.
func DefaultRules() []Rule {
	return []Rule{
		{Patterns: microsoft, Platform: PlatformSDL, Profile: ProfileXboxSDL},
		{Patterns: sony, Platform: PlatformSDL, Profile: ProfilePlaystationSDL},
		{Patterns: nintendo, Platform: PlatformSDL, Profile: ProfileSwitchProSDL},
		{Platform: PlatformEvdev, Profile: ProfileEvdev},
		{Patterns: microsoft, Profile: ProfileXbox},
		{Patterns: logitech, Platform: PlatformWebKit, Profile: ProfileLogitechWebKit},
		{Patterns: logitech, Platform: PlatformFirefox, Profile: ProfileLogitechFirefox},
		{Patterns: sony, Platform: PlatformWebKit, Profile: ProfilePlaystationWebKit},
		{Patterns: sony, Platform: PlatformFirefox, Profile: ProfilePlaystationFirefox},
	}
}

// Resolver picks the profile for a device. It never fails: anything
// unmatched gets the registry default.
type Resolver struct {
	registry *Registry
	rules    []Rule
}

// NewResolver returns a resolver over reg. A nil rules slice means
// DefaultRules.
func NewResolver(reg *Registry, rules []Rule) *Resolver {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if rules == nil {
		rules = DefaultRules()
	}
	return &Resolver{registry: reg, rules: append([]Rule(nil), rules...)}
}

// Registry returns the registry the resolver draws profiles from.
func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Resolve returns the first matching rule's profile, or the default.
// Rules naming a profile the registry does not hold are skipped.
func (r *Resolver) Resolve(d Descriptor) *Profile {
	id := strings.ToLower(d.ID)
	for _, rule := range r.rules {
		if !rule.match(d, id) {
			continue
		}
		if p, ok := r.registry.Lookup(rule.Profile); ok {
			return p
		}
	}
	return r.registry.Default()
}
