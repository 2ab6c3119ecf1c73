package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finofficer/autoreply/internal/reply"
)

// templateCatalog is the slice of the template store the handler reads.
type templateCatalog interface {
	Keys() []reply.TemplateKey
	Get(key reply.TemplateKey) (string, error)
}

// TemplatesHandler serves the reply template catalog.
type TemplatesHandler struct {
	store templateCatalog
}

// NewTemplatesHandler creates the handler over the template store.
func NewTemplatesHandler(store templateCatalog) *TemplatesHandler {
	return &TemplatesHandler{store: store}
}

type templateSummary struct {
	Key     string `json:"key"`
	Preview string `json:"preview"`
}

type templateResponse struct {
	Key     string `json:"key"`
	Content string `json:"content"`
}

const previewLen = 100

// List handles GET /api/templates.
func (h *TemplatesHandler) List(w http.ResponseWriter, _ *http.Request) {
	keys := h.store.Keys()
	out := make([]templateSummary, 0, len(keys))
	for _, key := range keys {
		content, err := h.store.Get(key)
		if err != nil {
			continue
		}
		preview := content
		if len(preview) > previewLen {
			preview = preview[:previewLen] + "..."
		}
		out = append(out, templateSummary{Key: string(key), Preview: preview})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/templates/{key}. Unlike rendering, the catalog
// lookup here is exact: asking for a key with no backing file is a 404, not
// a fallback to default.
func (h *TemplatesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := reply.TemplateKey(chi.URLParam(r, "key"))

	found := false
	for _, k := range h.store.Keys() {
		if k == key {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}

	content, err := h.store.Get(key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load template")
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{Key: string(key), Content: content})
}
