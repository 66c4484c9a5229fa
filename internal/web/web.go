package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"icsconv/internal/config"
	"icsconv/internal/export"
	"icsconv/internal/extract"
	appLog "icsconv/internal/log"
	"icsconv/internal/model"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Server exposes the parser and the export pipeline over HTTP.
type Server struct {
	cfg    *config.Config
	parser *extract.Parser
	mux    *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, parser *extract.Parser) *Server {
	s := &Server{
		cfg:    cfg,
		parser: parser,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. An empty
// username or password disables it.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="icsconv", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, parser *extract.Parser) error {
	s := NewServer(cfg, parser)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/ics", s.handleICS)
	s.mux.HandleFunc("/api/export", s.handleExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Format   string                `json:"format"`
	Timezone string                `json:"timezone"`
	Events   []model.CalendarEvent `json:"events"`
}

// handleEvents parses the request body (plain text) and returns the events.
//
// POST /api/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	events, format := s.parser.ParseWithFormat(string(body))
	appLog.Info("api events request", "format", format.String(), "bytes", len(body), "event_count", len(events))

	writeJSON(w, http.StatusOK, eventsResponse{
		Format:   format.String(),
		Timezone: s.parser.Timezone(),
		Events:   events,
	})
}

// handleICS parses the request body and answers with the .ics attachment.
//
// POST /api/ics?filename=optional.ics
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	events := s.parser.Parse(string(body))
	s.export(w, r, events, r.URL.Query().Get("filename"))
}

// exportRequest is the JSON request shape for /api/export.
type exportRequest struct {
	Events   []model.CalendarEvent `json:"events"`
	Filename string                `json:"filename"`
}

// handleExport serializes caller-supplied events.
//
// POST /api/export {"events": [...], "filename": "optional.ics"}
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	events := make([]model.CalendarEvent, 0, len(req.Events))
	for _, ev := range req.Events {
		events = append(events, model.CandidateEvent{CalendarEvent: ev}.Finalize(s.parser.Timezone()))
	}
	s.export(w, r, events, req.Filename)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, events []model.CalendarEvent, filename string) {
	x := export.New(s.cfg.ProdID, s.cfg.StrictValidation, responseDeliverer{w: w})

	res := x.Export(r.Context(), events, filename)
	if res.Success {
		return
	}

	status := http.StatusInternalServerError
	if errors.Is(res.Err, export.ErrNoEvents) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, res)
}

// responseDeliverer writes the artifact as an HTTP attachment.
type responseDeliverer struct {
	w http.ResponseWriter
}

func (d responseDeliverer) Deliver(_ context.Context, a export.Artifact) error {
	h := d.w.Header()
	h.Set("Content-Type", a.MIMEType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	h.Set("Content-Length", strconv.Itoa(len(a.Data)))
	d.w.WriteHeader(http.StatusOK)
	_, err := d.w.Write(a.Data)
	return err
}

// readBody enforces POST and the body size limit, writing the error
// response itself when it returns false.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		appLog.Error("failed to read request body", err, "path", r.URL.Path)
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
