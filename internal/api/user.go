package api

import (
	"net/http"

	"github.com/xenocrm/crm-backend/internal/auth"
)

// handleCurrentUser returns the authenticated identity for the request, or
// 401 when the bearer token is missing or unknown.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		UnauthorizedError(w, r, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, id)
}
