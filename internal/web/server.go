// Package web provides the HTTP status page and remote control endpoints
// for the outlet daemon.
package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/sweeney/wifi-outlet/internal/control"
	"github.com/sweeney/wifi-outlet/internal/logic"
	"github.com/sweeney/wifi-outlet/internal/schedule"
	"github.com/sweeney/wifi-outlet/internal/status"
)

// Options configures a Server.
type Options struct {
	Addr     string
	Tracker  *status.Tracker
	Commands chan<- control.Command
	// Metrics is served at /metrics when non-nil.
	Metrics http.Handler
	// AccessLog receives one Apache combined log line per request when non-nil.
	AccessLog io.Writer
}

// Server serves the status page and accepts control requests over HTTP.
// Control requests are validated here and queued for the main loop; the
// response is 202 once queued.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- control.Command
}

// New creates a Server.
func New(o Options) *Server {
	s := &Server{tracker: o.Tracker, commands: o.Commands}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/", s.handleToggleForm).Methods(http.MethodPost)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/outlet", s.handleOutlet).Methods(http.MethodPost)
	r.HandleFunc("/schedule", s.handleSchedule).Methods(http.MethodPut)
	r.HandleFunc("/cycles/{index:[0-9]+}", s.handleCycle).Methods(http.MethodPut)
	if o.Metrics != nil {
		r.Handle("/metrics", o.Metrics).Methods(http.MethodGet)
	}

	var h http.Handler = r
	if o.AccessLog != nil {
		h = handlers.CombinedLoggingHandler(o.AccessLog, r)
	}

	s.httpServer = &http.Server{
		Addr:    o.Addr,
		Handler: h,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleToggleForm serves the toggle button on the status page:
// POST /?outlet=toggle.
func (s *Server) handleToggleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("outlet") != "toggle" {
		writeError(w, http.StatusBadRequest, "expected outlet=toggle")
		return
	}
	if !s.submit(w, control.Command{Kind: control.KindToggle, Source: logic.SourceHTTP}) {
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleOutlet switches the relay: POST /outlet?action=on|off|toggle.
func (s *Server) handleOutlet(w http.ResponseWriter, r *http.Request) {
	kind, err := control.ParseKind(r.URL.Query().Get("action"))
	if err != nil || (kind != control.KindOn && kind != control.KindOff && kind != control.KindToggle) {
		writeError(w, http.StatusBadRequest, "action must be on, off or toggle")
		return
	}
	cmd := control.Command{Kind: kind, Source: logic.SourceHTTP}
	if s.submit(w, cmd) {
		writeJSON(w, http.StatusAccepted, accepted(cmd))
	}
}

// handleSchedule enables or disables the whole schedule: PUT /schedule {"enabled": bool}.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "missing enabled")
		return
	}
	cmd := control.Command{Kind: control.KindDisable, Source: logic.SourceHTTP}
	if *req.Enabled {
		cmd.Kind = control.KindEnable
	}
	if s.submit(w, cmd) {
		writeJSON(w, http.StatusAccepted, accepted(cmd))
	}
}

// handleCycle replaces one rule: PUT /cycles/{index} with a rule body.
func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad cycle index")
		return
	}
	var spec schedule.RuleSpec
	if err := decodeBody(r, &spec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cmd, err := control.SetCycle(index, spec, logic.SourceHTTP)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.submit(w, cmd) {
		writeJSON(w, http.StatusAccepted, accepted(cmd))
	}
}

// submit queues cmd for the main loop without blocking.
func (s *Server) submit(w http.ResponseWriter, cmd control.Command) bool {
	select {
	case s.commands <- cmd:
		return true
	default:
		writeError(w, http.StatusServiceUnavailable, "command queue full")
		return false
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4096))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
