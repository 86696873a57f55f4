package server

import (
	"bytes"
	"context"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"

	"github.com/soar/padmap/internal/hub"
)

type Option func(*Server)

// WithIngest mounts the browser source at /ingest.
func WithIngest(h http.Handler) Option {
	return func(s *Server) { s.ingest = h }
}

// WithHistory serves the device history at /api/devices.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	manager     Registries
	ingest      http.Handler
	history     History
	static      map[string][]byte
	addr        string
	httpServer  *http.Server
}

// New minifies the frontend files and prepares the routes.
func New(h *hub.Hub, b *hub.Broadcaster, m Registries, frontendFS fs.FS, addr string, opts ...Option) (*Server, error) {
	static, err := minifyFS(frontendFS)
	if err != nil {
		return nil, err
	}
	s := &Server{
		hub:         h,
		broadcaster: b,
		manager:     m,
		static:      static,
		addr:        addr,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	// WebSocket endpoints
	r.HandleFunc("/ws", handleWebSocket(s.hub, s.broadcaster))
	if s.ingest != nil {
		r.Handle("/ingest", s.ingest)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/profiles", handleProfiles(s.manager)).Methods(http.MethodGet)
	api.HandleFunc("/pads", handlePads(s.broadcaster)).Methods(http.MethodGet)
	api.HandleFunc("/devices", handleDevices(s.history)).Methods(http.MethodGet)

	// Static files (frontend)
	r.PathPrefix("/").HandlerFunc(s.serveStatic).Methods(http.MethodGet, http.MethodHead)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead},
	}).Handler(r)
}

func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}
	data, ok := s.static[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(data))
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	log.Printf("HTTP server listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		log.Print("Shutting down HTTP server...")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

var jsType = regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$")

// minifyFS loads every file of fsys into memory, minifying html, css and
// javascript on the way.
func minifyFS(fsys fs.FS) (map[string][]byte, error) {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFuncRegexp(jsType, js.Minify)

	files := make(map[string][]byte)
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		mediatype, _, _ := strings.Cut(mime.TypeByExtension(path.Ext(name)), ";")
		switch {
		case mediatype == "text/html", mediatype == "text/css", jsType.MatchString(mediatype):
			out, err := m.Bytes(mediatype, data)
			if err != nil {
				return errors.Wrapf(err, "minify %s", name)
			}
			data = out
		}
		files[name] = data
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "load frontend")
	}
	return files, nil
}
