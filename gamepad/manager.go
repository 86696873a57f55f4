// Package gamepad turns raw, index-addressed controller state into a stream
// of named control events.
//
// A platform Source reports devices to the Manager through the Listener
// interface and serves raw snapshots on demand. On connect the Manager
// resolves a Profile for the device; on every update it diffs the fresh
// snapshot against the previous one and publishes ButtonDown, ButtonUp and
// AxisChanged events carrying the profile's control names.
package gamepad

import (
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Listener receives device connect and disconnect notifications from a
// Source. Slots are the 0-based indices assigned by the platform.
type Listener interface {
	Connect(slot int, d Descriptor)
	Disconnect(slot int)
}

// Source serves the current raw state of a connected slot. Poll returns
// false when the source has nothing for the slot. Poll must not call back
// into the Listener.
type Source interface {
	Poll(slot int) (Snapshot, bool)
}

// SourceFactory creates the platform source. The listener may be notified
// of already present devices before the factory returns.
type SourceFactory func(Listener) (Source, error)

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry replaces the built-in profile registry.
func WithRegistry(r *Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithRules replaces the resolver rules. A nil slice keeps DefaultRules.
func WithRules(rules []Rule) Option {
	return func(m *Manager) {
		m.rules = rules
	}
}

// WithSourceFactory sets the platform source factory used by Init.
func WithSourceFactory(f SourceFactory) Option {
	return func(m *Manager) {
		m.factory = f
	}
}

// WithStrategy sets the update strategy. The default is a ManualStrategy.
func WithStrategy(s Strategy) Option {
	return func(m *Manager) {
		m.strategy = s
	}
}

// WithDetector sets the thresholds used for diffing.
func WithDetector(d Detector) Option {
	return func(m *Manager) {
		m.detector = d
	}
}

// WithLogger sets the logger. The default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = l
	}
}

// Manager tracks connected slots, runs update cycles and publishes events.
//
// Connecting an already connected slot replaces its state and binding.
// Disconnecting or updating an unknown slot does nothing.
//
// Connect, Disconnect and Update deliver their own events before they
// return. Calls made from inside an event handler are queued and delivered
// after the batch being handled.
type Manager struct {
	registry *Registry
	rules    []Rule
	factory  SourceFactory
	strategy Strategy
	detector Detector
	log      zerolog.Logger
	emitter  *Emitter

	// emitMu serializes state changes with the delivery of their events.
	// owner is the goroutine holding it.
	emitMu sync.Mutex
	owner  atomic.Uint64

	mu       sync.Mutex
	resolver *Resolver
	source   Source
	states   map[int]*State
	pending  []Event
	started  bool
	closed   bool
}

// New returns a Manager. Call Init to create the source and start the
// strategy.
func New(opts ...Option) *Manager {
	m := &Manager{
		registry: DefaultRegistry(),
		strategy: NewManualStrategy(),
		log:      log.Logger,
		states:   make(map[int]*State),
	}
	for _, o := range opts {
		o(m)
	}
	m.emitter = NewEmitter(m.log)
	m.resolver = NewResolver(m.registry, m.rules)
	return m
}

// Init creates the platform source and starts the update strategy. After a
// failed Init the Manager can be initialized again.
func (m *Manager) Init() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.New("manager already initialized")
	}
	m.started = true
	m.closed = false
	m.mu.Unlock()

	fail := func(err error) error {
		m.mu.Lock()
		src := m.source
		m.source = nil
		m.started = false
		m.mu.Unlock()
		if c, ok := src.(io.Closer); ok {
			c.Close()
		}
		return err
	}

	if m.factory != nil {
		src, err := m.factory(m)
		if err != nil {
			return fail(errors.Wrap(err, "create platform source"))
		}
		m.mu.Lock()
		m.source = src
		m.mu.Unlock()
	}
	if err := m.strategy.Start(m.Update); err != nil {
		return fail(errors.Wrap(err, "start update strategy"))
	}
	return nil
}

// Close stops the strategy and closes the source if it is an io.Closer.
// Called from an event handler, it does not wait for the running update
// cycle; later cycles do nothing.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	src := m.source
	m.source = nil
	m.mu.Unlock()

	if m.inHandler() {
		// The strategy may be blocked on emitMu, which this goroutine holds.
		go m.strategy.Stop()
	} else {
		m.strategy.Stop()
	}
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// On subscribes fn to one event kind. The returned function unsubscribes.
func (m *Manager) On(kind EventKind, fn Handler) func() {
	return m.emitter.On(kind, fn)
}

// OnAny subscribes fn to every event.
func (m *Manager) OnAny(fn Handler) func() {
	return m.emitter.OnAny(fn)
}

// Registry returns the registry used for new connections.
func (m *Manager) Registry() *Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolver.Registry()
}

// SetRegistry swaps the registry used for new connections. Connected slots
// keep their profile until they reconnect.
func (m *Manager) SetRegistry(r *Registry) {
	m.mu.Lock()
	m.resolver = NewResolver(r, m.rules)
	m.mu.Unlock()
}

// SetRules swaps the resolver rules for new connections.
func (m *Manager) SetRules(rules []Rule) {
	m.mu.Lock()
	m.rules = rules
	m.resolver = NewResolver(m.resolver.Registry(), rules)
	m.mu.Unlock()
}

// Reconfigure swaps registry and rules at once, so no connection resolves
// against one without the other.
func (m *Manager) Reconfigure(r *Registry, rules []Rule) {
	m.mu.Lock()
	m.rules = rules
	m.resolver = NewResolver(r, rules)
	m.mu.Unlock()
}

// Connect binds a profile to slot and emits Connected.
func (m *Manager) Connect(slot int, d Descriptor) {
	var profile string
	m.publish(func() []Event {
		p := m.resolver.Resolve(d)
		if _, ok := m.states[slot]; ok {
			m.log.Warn().Int("slot", slot).Msg("slot connected twice, replacing state")
		}
		m.states[slot] = newState(slot, d, p)
		profile = p.ID()
		return []Event{{Kind: Connected, Slot: slot, Profile: profile, Index: -1}}
	}, func() {
		m.log.Info().
			Int("slot", slot).
			Str("id", d.ID).
			Str("platform", string(d.Platform)).
			Int("buttons", d.Buttons).
			Int("axes", d.Axes).
			Str("profile", profile).
			Msg("gamepad connected")
	})
}

// Disconnect emits Disconnected and frees slot.
func (m *Manager) Disconnect(slot int) {
	m.publish(func() []Event {
		st, ok := m.states[slot]
		if !ok {
			return nil
		}
		delete(m.states, slot)
		return []Event{{Kind: Disconnected, Slot: slot, Profile: st.profile.ID(), Index: -1}}
	}, func() {
		m.log.Info().Int("slot", slot).Msg("gamepad disconnected")
	})
}

// Update runs one poll-and-diff cycle over every connected slot in
// ascending slot order.
func (m *Manager) Update() {
	m.publish(func() []Event {
		if m.source == nil || m.closed {
			return nil
		}
		var events []Event
		for _, slot := range m.slotsLocked() {
			snap, ok := m.source.Poll(slot)
			if !ok {
				continue
			}
			events = append(events, m.states[slot].advance(m.detector, snap)...)
		}
		return events
	}, nil)
}

// Connected returns the connected slots in ascending order.
func (m *Manager) Connected() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slotsLocked()
}

// State returns a copy of the state bound to slot.
func (m *Manager) State(slot int) (StateInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[slot]
	if !ok {
		return StateInfo{}, false
	}
	return st.info(), true
}

func (m *Manager) slotsLocked() []int {
	slots := make([]int, 0, len(m.states))
	for s := range m.states {
		slots = append(slots, s)
	}
	sort.Ints(slots)
	return slots
}

func (m *Manager) inHandler() bool {
	return m.owner.Load() == goid()
}

// publish applies change under the state lock and delivers the events it
// returns. Outside a handler it holds emitMu until those events, and any
// queued by handlers meanwhile, have been delivered. Inside a handler the
// events are queued for the delivery loop already running on this
// goroutine. logged runs after the state change if it produced events.
func (m *Manager) publish(change func() []Event, logged func()) {
	if m.inHandler() {
		m.mu.Lock()
		events := change()
		m.pending = append(m.pending, events...)
		m.mu.Unlock()
		if len(events) > 0 && logged != nil {
			logged()
		}
		return
	}

	m.emitMu.Lock()
	m.owner.Store(goid())
	defer func() {
		m.owner.Store(0)
		m.emitMu.Unlock()
	}()

	m.mu.Lock()
	batch := change()
	m.mu.Unlock()
	if len(batch) > 0 && logged != nil {
		logged()
	}

	for len(batch) > 0 {
		m.emitter.Emit(batch...)
		m.mu.Lock()
		batch = m.pending
		m.pending = nil
		m.mu.Unlock()
	}
}
