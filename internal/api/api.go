package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joescharf/issuetracker/internal/store"
	"github.com/joescharf/issuetracker/internal/tracker"
	"github.com/joescharf/issuetracker/internal/ui"
)

const (
	// maxBodyBytes caps request bodies.
	maxBodyBytes = 1 << 20

	requestTimeout = 30 * time.Second
)

// Server provides the REST API handlers.
type Server struct {
	issues *tracker.Service
}

// NewServer creates a new API server backed by s.
func NewServer(s store.Store) *Server {
	return &Server{issues: tracker.NewService(s)}
}

// Router returns an http.Handler for the API routes and the embedded UI.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(corsMiddleware)

	r.Get("/health", s.healthCheck)

	r.Route("/api/issues/{project}", func(r chi.Router) {
		r.Get("/", s.listIssues)
		r.Post("/", s.createIssue)
		r.Put("/", s.updateIssue)
		r.Delete("/", s.deleteIssue)
	})

	if h, err := ui.Handler(); err == nil {
		r.Handle("/*", h)
	} else {
		slog.Warn("web UI unavailable", "error", err)
	}

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes v as compact JSON with no trailing newline.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// projectParam returns the unescaped {project} route segment. chi routes on
// RawPath when it is set and on the already decoded Path otherwise.
func projectParam(r *http.Request) string {
	raw := chi.URLParam(r, "project")
	if r.URL.RawPath == "" {
		return raw
	}
	if p, err := url.PathUnescape(raw); err == nil {
		return p
	}
	return raw
}

// readFields decodes a JSON or urlencoded body into a flat field set. An
// unreadable body yields an empty set.
func readFields(r *http.Request) tracker.Fields {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || len(body) == 0 {
		return tracker.Fields{}
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return tracker.Fields{}
		}
		return tracker.FieldsFromValues(values)
	}

	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return tracker.Fields{}
	}
	return tracker.FieldsFromMap(m)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "issuetracker",
		"time":    time.Now().UTC(),
	})
}

// --- Issues ---

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.issues.List(r.Context(), projectParam(r), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	req := tracker.NewCreateRequest(readFields(r))
	issue, err := s.issues.Create(r.Context(), projectParam(r), req)
	if err != nil {
		if tracker.IsLogical(err) {
			writeJSON(w, http.StatusOK, tracker.ErrorResponse("", err))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// updateIssue and deleteIssue always answer 200; the body says what happened.
func (s *Server) updateIssue(w http.ResponseWriter, r *http.Request) {
	resp, _ := s.issues.Update(r.Context(), projectParam(r), tracker.NewUpdateRequest(readFields(r)))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id := readFields(r).ID()
	if id == "" {
		id = tracker.FieldsFromValues(r.URL.Query()).ID()
	}
	resp, _ := s.issues.Delete(r.Context(), projectParam(r), id)
	writeJSON(w, http.StatusOK, resp)
}
