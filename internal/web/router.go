package web

import (
	"context"
	"encoding/json"
	"net/http"

	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/session"
	"esign-workflows/pkg/registry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workflow is one form-backed eSignature workflow.
type Workflow interface {
	Descriptor() registry.Workflow
	GetForm(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterOptions struct {
	Renderer  *Renderer
	Sessions  *session.Store
	Registry  *registry.WorkflowRegistry
	Workflows []Workflow
	Redis     Pinger
	Logger    logger.Logger
}

type server struct {
	renderer *Renderer
	sessions *session.Store
	registry *registry.WorkflowRegistry
	redis    Pinger
	logger   logger.Logger
}

func NewRouter(opts RouterOptions) *chi.Mux {
	s := &server{
		renderer: opts.Renderer,
		sessions: opts.Sessions,
		registry: opts.Registry,
		redis:    opts.Redis,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(opts.Logger))

	r.Get("/", s.index)
	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ds/resume", s.resume)
	r.Get("/ds-return", s.dsReturn)

	for _, wf := range opts.Workflows {
		path := wf.Descriptor().Path
		r.Get(path, wf.GetForm)
		r.Post(path, wf.Submit)
	}
	return r
}

func (s *server) index(w http.ResponseWriter, r *http.Request) {
	page := Page{Title: "Home", Data: s.registry.All()}

	sess, err := s.sessions.Load(r)
	if err == nil {
		if page.Flash = sess.PopFlash(); len(page.Flash) > 0 {
			if err := s.sessions.Persist(w, r, sess); err != nil {
				s.logger.Warn("session save failed", map[string]interface{}{"error": err})
			}
		}
	}
	s.renderer.Render(w, http.StatusOK, "index", page)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.redis.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "redis": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// resume sends the browser back to the workflow that was interrupted by re-authentication.
func (s *server) resume(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Load(r)
	if err != nil {
		s.renderer.Error(w, err)
		return
	}

	target := "/"
	if wf, ok := s.registry.Lookup(sess.TakePending()); ok {
		target = wf.Path
	}
	if err := s.sessions.Persist(w, r, sess); err != nil {
		s.renderer.Error(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type dsReturnData struct {
	Event      string
	EnvelopeID string
	State      string
}

func (s *server) dsReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.renderer.Render(w, http.StatusOK, "ds_return", Page{
		Title: "Return from DocuSign",
		Data: dsReturnData{
			Event:      q.Get("event"),
			EnvelopeID: q.Get("envelopeId"),
			State:      q.Get("state"),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
