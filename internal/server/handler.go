package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/soar/padmap/gamepad"
	"github.com/soar/padmap/internal/devicelog"
	"github.com/soar/padmap/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local use
	},
}

func handleWebSocket(h *hub.Hub, b *hub.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := hub.NewClient(h, conn)
		h.Register(client)

		// Send connected pads to the new client
		b.SendInitialState(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

// ProfileView is the JSON form of a mapping profile.
type ProfileView struct {
	ID      string          `json:"id"`
	Default bool            `json:"default"`
	Buttons []gamepad.Entry `json:"buttons"`
	Axes    []gamepad.Entry `json:"axes"`
}

// Registries exposes the profiles currently in use.
type Registries interface {
	Registry() *gamepad.Registry
}

// History is the device history store.
type History interface {
	List() ([]devicelog.Record, error)
	WriteCSV(w io.Writer) error
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleProfiles(m Registries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg := m.Registry()
		def := reg.Default().ID()
		views := make([]ProfileView, 0)
		for _, id := range reg.IDs() {
			p, _ := reg.Lookup(id)
			views = append(views, ProfileView{
				ID:      id,
				Default: id == def,
				Buttons: p.Buttons(),
				Axes:    p.Axes(),
			})
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func handlePads(b *hub.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.Snapshot())
	}
}

func handleDevices(history History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeError(w, http.StatusNotFound, "device history is disabled")
			return
		}
		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="devices.csv"`)
			if err := history.WriteCSV(w); err != nil {
				log.Printf("Error writing device history: %v", err)
			}
			return
		}
		records, err := history.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if records == nil {
			records = []devicelog.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}
