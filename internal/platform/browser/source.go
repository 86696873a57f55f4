// Package browser ingests navigator.getGamepads() snapshots pushed by web
// pages over a websocket. The reporting engine decides the raw ordering, so
// every device carries the engine as its platform hint.
package browser

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/lxzan/gws"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
)

// Message is sent by the page. Type is "connect", "state" or "disconnect";
// Index is the page's navigator.getGamepads() index.
type Message struct {
	Type    string    `json:"type"`
	Index   int       `json:"index"`
	ID      string    `json:"id,omitempty"`
	Engine  string    `json:"engine,omitempty"`
	Buttons []float64 `json:"buttons,omitempty"`
	Axes    []float64 `json:"axes,omitempty"`
}

// EngineFromUserAgent guesses the engine from a User-Agent header.
func EngineFromUserAgent(ua string) gamepad.Platform {
	switch {
	case strings.Contains(ua, "Firefox/"):
		return gamepad.PlatformFirefox
	case strings.Contains(ua, "AppleWebKit/"):
		return gamepad.PlatformWebKit
	}
	return gamepad.PlatformAny
}

// session is one connected page.
type session struct {
	engine gamepad.Platform
	slots  map[int]int // page index -> slot
}

// Source is a gamepad.Source fed by websocket pages. It also serves the
// ingest endpoint.
type Source struct {
	gws.BuiltinEventHandler

	upgrader *gws.Upgrader

	mu       sync.Mutex
	listener gamepad.Listener
	pads     map[int]gamepad.Snapshot
	sessions map[*gws.Conn]*session
}

// New returns an idle source.
func New() *Source {
	s := &Source{
		pads:     make(map[int]gamepad.Snapshot),
		sessions: make(map[*gws.Conn]*session),
	}
	s.upgrader = gws.NewUpgrader(s, &gws.ServerOption{
		Recovery: gws.Recovery,
	})
	return s
}

// Factory returns a factory that binds s to the manager.
func (s *Source) Factory() gamepad.SourceFactory {
	return func(l gamepad.Listener) (gamepad.Source, error) {
		s.mu.Lock()
		s.listener = l
		s.mu.Unlock()
		return s, nil
	}
}

// Poll implements gamepad.Source.
func (s *Source) Poll(slot int) (gamepad.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.pads[slot]
	if !ok {
		return gamepad.Snapshot{}, false
	}
	return snap.Clone(), true
}

// ServeHTTP upgrades the request and reads page messages until it closes.
func (s *Source) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := s.upgrader.Upgrade(w, r)
	if err != nil {
		log.Printf("ingest upgrade failed: %v", err)
		return
	}
	s.mu.Lock()
	s.sessions[socket] = &session{
		engine: EngineFromUserAgent(r.UserAgent()),
		slots:  make(map[int]int),
	}
	s.mu.Unlock()
	go socket.ReadLoop()
}

func (s *Source) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()
	s.mu.Lock()
	sess, ok := s.sessions[socket]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.handle(sess, message.Bytes()); err != nil {
		log.Printf("ingest: %v", err)
	}
}

func (s *Source) OnClose(socket *gws.Conn, err error) {
	s.mu.Lock()
	sess, ok := s.sessions[socket]
	delete(s.sessions, socket)
	s.mu.Unlock()
	if ok {
		s.drop(sess)
	}
}

func (s *Source) handle(sess *session, data []byte) error {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "decode message")
	}
	switch m.Type {
	case "connect":
		s.connect(sess, m)
	case "state":
		s.mu.Lock()
		slot, ok := sess.slots[m.Index]
		if ok {
			s.pads[slot] = gamepad.Snapshot{Buttons: m.Buttons, Axes: m.Axes}
		}
		s.mu.Unlock()
		if !ok {
			return errors.Errorf("state for unknown index %d", m.Index)
		}
	case "disconnect":
		s.disconnect(sess, m.Index)
	default:
		return errors.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

func (s *Source) connect(sess *session, m Message) {
	engine := sess.engine
	if m.Engine != "" {
		engine = gamepad.Platform(strings.ToLower(m.Engine))
	}

	s.mu.Lock()
	slot, ok := sess.slots[m.Index]
	if !ok {
		for slot = 0; ; slot++ {
			if _, used := s.pads[slot]; !used {
				break
			}
		}
		sess.slots[m.Index] = slot
	}
	s.pads[slot] = gamepad.Snapshot{Buttons: m.Buttons, Axes: m.Axes}
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.Connect(slot, gamepad.Descriptor{
			ID:       m.ID,
			Platform: engine,
			Buttons:  len(m.Buttons),
			Axes:     len(m.Axes),
		})
	}
}

func (s *Source) disconnect(sess *session, index int) {
	s.mu.Lock()
	slot, ok := sess.slots[index]
	if ok {
		delete(sess.slots, index)
		delete(s.pads, slot)
	}
	l := s.listener
	s.mu.Unlock()

	if ok && l != nil {
		l.Disconnect(slot)
	}
}

func (s *Source) drop(sess *session) {
	s.mu.Lock()
	indices := make([]int, 0, len(sess.slots))
	for i := range sess.slots {
		indices = append(indices, i)
	}
	s.mu.Unlock()
	for _, i := range indices {
		s.disconnect(sess, i)
	}
}
