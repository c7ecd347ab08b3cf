package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/dgallion1/resumedraft/internal/editor"
	"github.com/dgallion1/resumedraft/internal/format"
	"github.com/dgallion1/resumedraft/internal/parser"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Editor.View())
}

func (s *Server) handlePutDocument(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		jsonError(w, "document body is required", http.StatusBadRequest)
		return
	}
	var root doctree.Node
	if err := json.Unmarshal(raw, &root); err != nil {
		jsonError(w, "invalid document: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Editor.SetContent(&root)
	writeJSON(w, http.StatusOK, s.Editor.View())
}

type markdownRequest struct {
	Markdown string `json:"markdown"`
}

func (s *Server) handleLoadMarkdown(w http.ResponseWriter, r *http.Request) {
	var req markdownRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	degraded := s.Editor.LoadMarkdown(req.Markdown)
	if degraded == nil {
		degraded = []parser.Degradation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": s.Editor.View(),
		"degraded": degraded,
	})
}

// handleImport replaces the document with an uploaded resume file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	p, err := parser.ForFile(filename, parser.Options{PDFFallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	root, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		s.log.Warn("import failed", "filename", filename, "error", err)
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.Editor.SetContent(root)
	s.log.Info("document imported", "filename", filename, "bytes", len(data))
	writeJSON(w, http.StatusOK, s.Editor.View())
}

type insertNodeRequest struct {
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Text   string  `json:"text"`
	Src    string  `json:"src"`
	Alt    string  `json:"alt"`
}

func (s *Server) handleInsertNode(w http.ResponseWriter, r *http.Request) {
	var req insertNodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var id string
	var err error
	switch req.Kind {
	case doctree.KindTextBox.String():
		id, err = s.Editor.InsertTextBox(doctree.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}, req.Text)
	case doctree.KindImage.String():
		if req.Src == "" {
			jsonError(w, "src is required for images", http.StatusBadRequest)
			return
		}
		id, err = s.Editor.InsertImage(req.Src, req.Alt, req.Width, req.Height)
	default:
		jsonError(w, fmt.Sprintf("cannot insert node of kind %q", req.Kind), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"document": s.Editor.View(),
	})
}

type updateNodeRequest struct {
	Attrs map[string]any `json:"attrs"`
}

func (s *Server) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req updateNodeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Attrs) == 0 {
		jsonError(w, "attrs is required", http.StatusBadRequest)
		return
	}
	if err := s.Editor.UpdateNode(chi.URLParam(r, "nodeID"), doctree.Attrs(req.Attrs)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Editor.View())
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.Editor.RemoveNode(chi.URLParam(r, "nodeID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Editor.View())
}

type selectionRequest struct {
	Kind string           `json:"kind"`
	From doctree.Position `json:"from"`
	To   doctree.Position `json:"to"`
	Node string           `json:"node"`
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var err error
	switch req.Kind {
	case "text":
		err = s.Editor.SelectText(req.From, req.To)
	case "node":
		err = s.Editor.SelectNode(req.Node)
	case "none", "":
		err = s.Editor.ClearSelection()
	default:
		jsonError(w, fmt.Sprintf("unknown selection kind %q", req.Kind), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Editor.View())
}

type commandRequest struct {
	Command format.Command `json:"command"`
	format.Args
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	changed, err := s.Editor.Exec(req.Command, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"changed":  changed,
		"document": s.Editor.View(),
	})
}

func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	var ev editor.PointerEvent
	if err := decodeJSON(w, r, &ev); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.Editor.Pointer(ev); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Editor.View())
}
