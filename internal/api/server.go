package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dgallion1/resumedraft/internal/config"
	"github.com/dgallion1/resumedraft/internal/editor"
	"github.com/dgallion1/resumedraft/internal/export"
	"github.com/dgallion1/resumedraft/internal/llm"
	"github.com/dgallion1/resumedraft/internal/pipeline"
	"github.com/dgallion1/resumedraft/internal/profile"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LLM is the model client the handlers call directly.
type LLM interface {
	Generate(ctx context.Context, profileText, instructions string) (string, error)
	Enhance(ctx context.Context, text, subject string) (string, error)
	Model() string
	Stats() llm.StatsReport
}

// Deps are the services behind the API.
type Deps struct {
	Editor       *editor.Editor
	Orchestrator *pipeline.Orchestrator
	LLM          LLM
	Profiles     profile.Store
	Exporter     *export.Service
}

// Server is the HTTP API server for resumedraft.
type Server struct {
	router chi.Router
	Deps
	log *slog.Logger
	cfg config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		Deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(CORS(s.cfg.AllowedOrigin))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/generate", s.handleGenerate)
		r.Post("/api/enhance-text", s.handleEnhance)
		r.Get("/api/stats/llm", s.handleLLMStats)

		r.Get("/api/profile", s.handleGetProfile)
		r.Put("/api/profile", s.handlePutProfile)

		r.Route("/api/document", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Put("/", s.handlePutDocument)
			r.Post("/markdown", s.handleLoadMarkdown)
			r.Post("/import", s.handleImport)
			r.Post("/generate", s.handleSubmitGeneration)

			r.Post("/nodes", s.handleInsertNode)
			r.Patch("/nodes/{nodeID}", s.handleUpdateNode)
			r.Delete("/nodes/{nodeID}", s.handleDeleteNode)

			r.Post("/selection", s.handleSelection)
			r.Post("/commands", s.handleCommand)
			r.Post("/pointer", s.handlePointer)

			r.Get("/export/{format}", s.handleExport)
		})

		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"model":  s.modelName(),
	})
}

func (s *Server) modelName() string {
	if s.LLM == nil {
		return ""
	}
	return s.LLM.Model()
}
