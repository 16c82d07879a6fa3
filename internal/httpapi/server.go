// Package httpapi exposes the translator and the translation cache to
// in-page clients over HTTP and websockets.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/singleflight"

	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/persistence"
	"github.com/marte113/Player-On-Caption/internal/translator"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

// Translator is what the bridge needs from the translation client.
type Translator interface {
	Do(ctx context.Context, req translator.Request) translator.Result
	Stream(ctx context.Context, provider, text string) (<-chan llm.StreamEvent, error)
}

// TranslationReader is the read side of the translation cache.
type TranslationReader interface {
	GetTranslation(ctx context.Context, title string) (persistence.TranslationEntry, bool, error)
	ListTranslations(ctx context.Context) ([]persistence.TranslationSummary, error)
}

type Server struct {
	translator Translator
	store      TranslationReader
	origins    []string

	// identical in-flight translate requests share one upstream call
	inflight singleflight.Group

	router chi.Router
	server *http.Server
}

type Option func(*Server)

// WithStore enables the /api/translations endpoints.
func WithStore(store TranslationReader) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithCORSOrigins sets the allowed origins for both CORS and websocket
// upgrades. "*" allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

func NewServer(tr Translator, opts ...Option) *Server {
	s := &Server{
		translator: tr,
		origins:    []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("bridge listening on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(CORSOptions(s.origins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/translate", s.handleTranslate)
		r.Get("/stream", s.handleStream)
		r.Get("/translations", s.handleListTranslations)
		r.Get("/translations/{title}", s.handleGetTranslation)
	})
	s.router = r
}

// CORSOptions builds the CORS policy. Credentials are only allowed when the
// origin list is explicit.
func CORSOptions(origins []string) cors.Options {
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
			break
		}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: credentials,
		MaxAge:           300,
	}
}

// requestLogger logs each request; health checks only when they fail.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if r.URL.Path == "/api/health" && status < 400 {
			return
		}
		log.Debug("%s %s %d %s", r.Method, r.URL.Path, status, time.Since(start))
	})
}
