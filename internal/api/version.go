package api

import (
	"net/http"

	"github.com/knsuzuki/shopmail/internal/build"
)

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, build.Get())
}
