package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/resumedraft/internal/llm"
	"github.com/dgallion1/resumedraft/internal/profile"
)

type generateRequest struct {
	Profile      json.RawMessage `json:"profile"`
	Instructions string          `json:"instructions"`
}

type enhanceRequest struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// profileText resolves the profile sent with a request, falling back to
// the stored one.
func (s *Server) profileText(ctx context.Context, raw json.RawMessage) (string, error) {
	text, err := profile.PromptTextFromJSON(raw)
	if err != nil {
		return "", &llm.InputError{Field: "profile", Reason: err.Error()}
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}
	if s.Profiles == nil {
		return "", &llm.InputError{Field: "profile", Reason: "required"}
	}
	p, err := s.Profiles.Load(ctx)
	if errors.Is(err, profile.ErrNotFound) {
		return "", &llm.InputError{Field: "profile", Reason: "required"}
	}
	if err != nil {
		return "", err
	}
	return p.PromptText(), nil
}

// handleGenerate drafts a resume synchronously and returns the text
// without touching the live document.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, llm.NewResult("", err))
		return
	}
	text, err := s.profileText(r.Context(), req.Profile)
	if err != nil {
		writeJSON(w, errorStatus(err), llm.NewResult("", err))
		return
	}

	out, err := s.LLM.Generate(r.Context(), text, req.Instructions)
	if err != nil {
		s.log.Error("generate failed", "error", err)
		code := errorStatus(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		writeJSON(w, code, llm.NewResult("", err))
		return
	}
	writeJSON(w, http.StatusOK, llm.NewResult(out, nil))
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, llm.NewResult("", err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, llm.Result{Error: "Text is required"})
		return
	}

	out, err := s.LLM.Enhance(r.Context(), req.Text, req.Context)
	if err != nil {
		s.log.Error("enhance failed", "error", err)
		code := errorStatus(err)
		if code == http.StatusInternalServerError {
			code = http.StatusBadGateway
		}
		writeJSON(w, code, llm.NewResult("", err))
		return
	}
	writeJSON(w, http.StatusOK, llm.NewResult(out, nil))
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.LLM == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model": s.LLM.Model(),
		"stats": s.LLM.Stats(),
	})
}
