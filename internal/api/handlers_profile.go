package api

import (
	"net/http"

	"github.com/dgallion1/resumedraft/internal/profile"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Profiles.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if err := decodeJSON(w, r, &p); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p = p.Normalize()
	if err := s.Profiles.Save(r.Context(), p); err != nil {
		s.log.Error("save profile failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
