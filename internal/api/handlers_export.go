package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgallion1/resumedraft/internal/export"
	"github.com/dgallion1/resumedraft/internal/profile"
	"github.com/go-chi/chi/v5"
)

// lossHeader carries the JSON list of formatting an export could not keep.
const lossHeader = "X-Export-Losses"

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, err)
		return
	}

	title := r.URL.Query().Get("title")
	if title == "" {
		title = s.defaultTitle(r)
	}

	res, err := s.Exporter.Export(r.Context(), f, s.Editor.Document(), title)
	if err != nil {
		s.log.Error("export failed", "format", f, "error", err)
		writeError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.MimeType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	if len(res.Losses) > 0 {
		if b, err := json.Marshal(res.Losses); err == nil {
			h.Set(lossHeader, string(b))
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Data)
}

// defaultTitle names exports after the stored profile.
func (s *Server) defaultTitle(r *http.Request) string {
	if s.Profiles == nil {
		return ""
	}
	p, err := s.Profiles.Load(r.Context())
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			s.log.Warn("profile lookup for export title failed", "error", err)
		}
		return ""
	}
	return p.Name
}
