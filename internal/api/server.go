package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knsuzuki/shopmail/internal/service"
)

// maxBodyBytes caps the size of a mail request body.
const maxBodyBytes = 1 << 20

// Server holds all dependencies for the REST API handlers.
type Server struct {
	mailSvc service.MailService
	logger  *slog.Logger
	auth    *TokenVerifier
}

// New creates a new API Server backed by the provided service. A nil
// verifier leaves the mail routes unauthenticated.
func New(mailSvc service.MailService, verifier *TokenVerifier, logger *slog.Logger) *Server {
	return &Server{
		mailSvc: mailSvc,
		logger:  logger,
		auth:    verifier,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	r.Get("/version", s.handleVersion)

	r.Route("/mail", func(r chi.Router) {
		if s.auth != nil {
			r.Use(s.auth.Middleware)
		}
		r.Get("/kinds", s.handleListKinds)
		r.Get("/templates", s.handleListTemplates)
		r.Get("/history", s.handleListHistory)
		r.Post("/{kind}", s.handleSendMail)
	})
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		nfe *service.NotFoundError
		ve  *service.ValidationError
	)
	switch {
	case errors.As(err, &nfe):
		writeError(w, http.StatusNotFound, nfe.Error())
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	default:
		s.logger.ErrorContext(r.Context(), fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
