package api

import (
	_ "embed"
	"net/http"
)

//go:embed static/ui.html
var uiPage []byte

// handleUI serves the single-page form that posts to /query.
func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(uiPage)
}
