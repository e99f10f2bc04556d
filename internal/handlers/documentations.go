package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/types"
)

// DocumentationHandler provides HTTP handlers for documentation articles.
type DocumentationHandler struct {
	documentationService *services.DocumentationService
}

func NewDocumentationHandler(documentationService *services.DocumentationService) *DocumentationHandler {
	return &DocumentationHandler{documentationService: documentationService}
}

// DocumentationRouter registers documentation routes on the given router.
func DocumentationRouter(r chi.Router, documentationService *services.DocumentationService) {
	handler := NewDocumentationHandler(documentationService)

	r.Get("/", handler.ListDocumentations)
	r.Post("/", handler.CreateDocumentation)
	r.Route("/{documentationID}", func(r chi.Router) {
		r.Get("/", handler.GetDocumentation)
		r.Put("/", handler.UpdateDocumentation)
		r.Patch("/", handler.UpdateDocumentation)
		r.Delete("/", handler.DeleteDocumentation)
	})
}

type DocumentationResponse struct {
	types.Documentation
	Resume string `json:"resume"`
}

func presentDocumentation(d types.Documentation) DocumentationResponse {
	return DocumentationResponse{Documentation: d, Resume: d.Resume()}
}

func (h *DocumentationHandler) ListDocumentations(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := h.documentationService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]DocumentationResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, presentDocumentation(d))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit))
}

func (h *DocumentationHandler) GetDocumentation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "documentationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.documentationService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presentDocumentation(doc))
}

func (h *DocumentationHandler) CreateDocumentation(w http.ResponseWriter, r *http.Request) {
	var input services.DocumentationInput
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	created, err := h.documentationService.Create(r.Context(), actorFromContext(r.Context()), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, presentDocumentation(created))
}

func (h *DocumentationHandler) UpdateDocumentation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "documentationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch types.DocumentationPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	updated, err := h.documentationService.Update(r.Context(), actorFromContext(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, presentDocumentation(updated))
}

func (h *DocumentationHandler) DeleteDocumentation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "documentationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.documentationService.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
