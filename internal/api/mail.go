package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/knsuzuki/shopmail/internal/notification"
)

func (s *Server) handleListKinds(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.mailSvc.Kinds())
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.mailSvc.ListTemplates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list mail templates")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleListHistory returns shipping notice history. Accepts optional
// ?order_id=N and ?limit=N query parameters.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var orderID int64
	if v := q.Get("order_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "order_id must be an integer")
			return
		}
		orderID = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.mailSvc.ListHistory(r.Context(), orderID, limit)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list mail history")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSendMail(w http.ResponseWriter, r *http.Request) {
	kind, err := notification.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if sub, ok := SubjectFromContext(r.Context()); ok {
		s.logger.InfoContext(r.Context(), "mail requested",
			slog.String("kind", string(kind)),
			slog.String("requested_by", sub),
		)
	}

	resp, err := s.mailSvc.Send(r.Context(), kind, json.RawMessage(body))
	if err != nil {
		s.writeServiceError(w, r, err, "failed to send mail")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
