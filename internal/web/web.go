package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"voccal/internal/config"
	"voccal/internal/ics"
	appLog "voccal/internal/log"
	"voccal/internal/model"
	"voccal/internal/pipeline"
	"voccal/internal/schedule"
)

// Server exposes the rendered timelines and the last assembled calendar
// while the watch command runs.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// Last successful run, replaced by Publish.
	mu   sync.RWMutex
	last *snapshot
}

type snapshot struct {
	result    *pipeline.Result
	updatedAt time.Time
}

func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Publish makes res the calendar served by /api/events.
func (s *Server) Publish(res *pipeline.Result, at time.Time) {
	s.mu.Lock()
	s.last = &snapshot{result: res, updatedAt: at}
	s.mu.Unlock()
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

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil {
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
			w.Header().Set("WWW-Authenticate", `Basic realm="voccal", charset="UTF-8"`)
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

// Serve listens on cfg.Listen until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
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
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the rendered files from the output directory.
func (s *Server) staticFileServer() http.Handler {
	dir := "."
	if s.cfg != nil && s.cfg.Output.Dir != "" {
		dir = s.cfg.Output.Dir
	}
	fileServer := http.FileServer(http.Dir(dir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		// Hide dotfiles such as in-flight temp files.
		for _, part := range strings.Split(path, "/") {
			if strings.HasPrefix(part, ".") {
				http.NotFound(w, r)
				return
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Year      int        `json:"year"`
	UpdatedAt time.Time  `json:"updated_at"`
	Resources []string   `json:"resources"`
	Events    []eventDTO `json:"events"`
	Files     []string   `json:"files"`
}

// eventDTO is a JSON-friendly view of an assembled event.
type eventDTO struct {
	UID       string   `json:"uid"`
	Name      string   `json:"name"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	Days      int      `json:"days"`
	Rooms     []string `json:"rooms"`
	Audio     []string `json:"audio"`
	Resources []string `json:"resources"`
	Color     string   `json:"color"`
}

// handleEvents returns the last assembled calendar.
//
// GET /api/events?resource=S1
//   - resource: only events using that resource id
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()
	if last == nil || last.result == nil || last.result.Calendar == nil {
		writeError(w, http.StatusServiceUnavailable, "no calendar rendered yet")
		return
	}
	cal := last.result.Calendar

	events := cal.Events
	if id := r.URL.Query().Get("resource"); id != "" {
		res := findResource(cal, id)
		if res == nil {
			writeError(w, http.StatusNotFound, "unknown resource")
			return
		}
		events = cal.EventsFor(res)
	}

	resources := make([]*model.Resource, len(cal.Resources))
	copy(resources, cal.Resources)
	schedule.SortResources(resources)
	ids := make([]string, 0, len(resources))
	for _, res := range resources {
		ids = append(ids, res.ID)
	}

	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, eventDTO{
			UID:       ics.EventUID(ev),
			Name:      ev.Name,
			Start:     ev.Start.Format(time.DateOnly),
			End:       ev.End().Format(time.DateOnly),
			Days:      ev.Days,
			Rooms:     nonNil(ev.RoomIDs),
			Audio:     nonNil(ev.AudioIDs),
			Resources: ev.ResourceIDs(),
			Color:     string(ev.Color),
		})
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Year:      last.result.Year,
		UpdatedAt: last.updatedAt,
		Resources: ids,
		Events:    dtos,
		Files:     nonNil(last.result.Files),
	})
}

func findResource(cal *model.Calendar, id string) *model.Resource {
	for _, res := range cal.Resources {
		if res.ID == id {
			return res
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
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
