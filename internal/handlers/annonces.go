package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/types"
)

const (
	formFieldTitre         = "titre"
	formFieldDescription   = "description"
	formFieldCategorie     = "categorie"
	formFieldContact       = "contact"
	formFieldPiecesJointes = "pieces_jointes"
)

// AnnonceHandler provides HTTP handlers for listings.
type AnnonceHandler struct {
	annonceService *services.AnnonceService
	maxUploadBytes int64
	now            func() time.Time
}

// NewAnnonceHandler constructs a handler with the provided service.
func NewAnnonceHandler(annonceService *services.AnnonceService, maxUploadBytes int64) *AnnonceHandler {
	return &AnnonceHandler{
		annonceService: annonceService,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

// AnnonceRouter registers listing routes on the given router.
func AnnonceRouter(r chi.Router, annonceService *services.AnnonceService, maxUploadBytes int64) {
	handler := NewAnnonceHandler(annonceService, maxUploadBytes)

	r.Get("/", handler.ListAnnonces)
	r.Post("/", handler.CreateAnnonce)
	r.Get("/mine", handler.ListMyAnnonces)
	r.Route("/{annonceID}", func(r chi.Router) {
		r.Get("/", handler.GetAnnonce)
		r.Put("/", handler.UpdateAnnonce)
		r.Patch("/", handler.UpdateAnnonce)
		r.Delete("/", handler.DeleteAnnonce)
	})
}

// AnnonceResponse is the listing representation with derived fields.
type AnnonceResponse struct {
	types.Annonce
	Auteur        string  `json:"auteur"`
	PiecesJointes *string `json:"pieces_jointes"`
	EstRecente    bool    `json:"est_recente"`
}

func (h *AnnonceHandler) present(r *http.Request, a types.Annonce) AnnonceResponse {
	return AnnonceResponse{
		Annonce:       a,
		Auteur:        a.AuteurLabel(),
		PiecesJointes: absoluteURL(r, a.PiecesJointes),
		EstRecente:    a.EstRecente(h.now()),
	}
}

func (h *AnnonceHandler) presentAll(r *http.Request, annonces []types.Annonce) []AnnonceResponse {
	items := make([]AnnonceResponse, 0, len(annonces))
	for _, a := range annonces {
		items = append(items, h.present(r, a))
	}
	return items
}

// ListAnnonces lists listings, filtered by the mot_cle and categorie
// query parameters.
func (h *AnnonceHandler) ListAnnonces(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query()
	annonces, err := h.annonceService.Search(r.Context(), types.AnnonceFilter{
		MotCle:    query.Get("mot_cle"),
		Categorie: query.Get("categorie"),
		Offset:    offset,
		Limit:     limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(h.presentAll(r, annonces), page, limit))
}

// ListMyAnnonces lists the listings of the calling referrer.
func (h *AnnonceHandler) ListMyAnnonces(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	annonces, err := h.annonceService.Mine(r.Context(), actorFromContext(r.Context()), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(h.presentAll(r, annonces), page, limit))
}

func (h *AnnonceHandler) GetAnnonce(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "annonceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	annonce, err := h.annonceService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.present(r, annonce))
}

// CreateAnnonce accepts JSON or a multipart form carrying the optional
// pieces_jointes file.
func (h *AnnonceHandler) CreateAnnonce(w http.ResponseWriter, r *http.Request) {
	var (
		input      services.AnnonceInput
		attachment *services.Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		input.Titre, _ = formValue(r, formFieldTitre)
		input.Description, _ = formValue(r, formFieldDescription)
		input.Contact, _ = formValue(r, formFieldContact)
		categorie, _ := formValue(r, formFieldCategorie)
		input.Categorie = types.AnnonceCategorie(strings.ToLower(categorie))

		upload, file, err := readUpload(r, formFieldPiecesJointes, h.maxUploadBytes)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		defer closeQuietly(file)
		attachment = upload
	} else if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	created, err := h.annonceService.Create(r.Context(), actorFromContext(r.Context()), input, attachment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.present(r, created))
}

// UpdateAnnonce applies a partial update. PUT and PATCH share it.
func (h *AnnonceHandler) UpdateAnnonce(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "annonceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		patch      types.AnnoncePatch
		attachment *services.Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		patch.Titre = formString(r, formFieldTitre)
		patch.Description = formString(r, formFieldDescription)
		patch.Contact = formString(r, formFieldContact)
		if raw := formString(r, formFieldCategorie); raw != nil {
			categorie := types.AnnonceCategorie(strings.ToLower(*raw))
			patch.Categorie = &categorie
		}

		upload, file, err := readUpload(r, formFieldPiecesJointes, h.maxUploadBytes)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		defer closeQuietly(file)
		attachment = upload
	} else if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	updated, err := h.annonceService.Update(r.Context(), actorFromContext(r.Context()), id, patch, attachment)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.present(r, updated))
}

func (h *AnnonceHandler) DeleteAnnonce(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "annonceID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.annonceService.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
