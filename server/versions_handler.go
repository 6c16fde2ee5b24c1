package server

import (
	_ "embed"
	"net/http"
)

//go:embed static/versions.json
var versionsJSON []byte

// VersionsHandler serves the static version metadata, unauthenticated
func (s *Server) VersionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_, _ = w.Write(versionsJSON)
	}
}
