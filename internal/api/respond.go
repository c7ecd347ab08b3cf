package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/resumedraft/internal/doctree"
	"github.com/dgallion1/resumedraft/internal/editor"
	"github.com/dgallion1/resumedraft/internal/export"
	"github.com/dgallion1/resumedraft/internal/format"
	"github.com/dgallion1/resumedraft/internal/llm"
	"github.com/dgallion1/resumedraft/internal/overlay"
	"github.com/dgallion1/resumedraft/internal/pipeline"
	"github.com/dgallion1/resumedraft/internal/profile"
)

// maxJSONBody caps request bodies that are not file uploads.
const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	var inputErr *llm.InputError
	switch {
	case errors.Is(err, doctree.ErrNotFound), errors.Is(err, profile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, overlay.ErrGestureInProgress):
		return http.StatusConflict
	case errors.Is(err, doctree.ErrInvalidChild), errors.Is(err, doctree.ErrOutOfRange),
		errors.Is(err, doctree.ErrRootRemoval), errors.Is(err, overlay.ErrNotFloating),
		errors.Is(err, format.ErrUnknownCommand), errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, llm.ErrEmptyText), errors.Is(err, editor.ErrInvalidEvent),
		errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrQueueFull), errors.Is(err, pipeline.ErrStopped),
		errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable
	case llm.IsRetryable(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	jsonError(w, err.Error(), errorStatus(err))
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
