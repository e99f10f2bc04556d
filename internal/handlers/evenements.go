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
	formFieldHeureDebut = "heure_debut"
	formFieldHeureFin   = "heure_fin"
	formFieldDate       = "date"
	formFieldLieu       = "lieu"
	formFieldTags       = "tags"
	formFieldImage      = "image"
)

// EvenementHandler provides HTTP handlers for events.
type EvenementHandler struct {
	evenementService *services.EvenementService
	maxUploadBytes   int64
	now              func() time.Time
}

func NewEvenementHandler(evenementService *services.EvenementService, maxUploadBytes int64) *EvenementHandler {
	return &EvenementHandler{
		evenementService: evenementService,
		maxUploadBytes:   maxUploadBytes,
		now:              time.Now,
	}
}

// EvenementRouter registers event routes on the given router.
func EvenementRouter(r chi.Router, evenementService *services.EvenementService, maxUploadBytes int64) {
	handler := NewEvenementHandler(evenementService, maxUploadBytes)

	r.Get("/", handler.ListEvenements)
	r.Post("/", handler.CreateEvenement)
	r.Route("/{evenementID}", func(r chi.Router) {
		r.Get("/", handler.GetEvenement)
		r.Put("/", handler.UpdateEvenement)
		r.Patch("/", handler.UpdateEvenement)
		r.Delete("/", handler.DeleteEvenement)
		r.Post("/participants", handler.Register)
		r.Get("/participants", handler.ListParticipants)
	})
}

// EvenementResponse is the event representation with derived fields.
type EvenementResponse struct {
	types.Evenement
	ImageURL   *string `json:"image_url"`
	EstEnCours bool    `json:"est_en_cours"`
}

func (h *EvenementHandler) present(r *http.Request, e types.Evenement) EvenementResponse {
	return EvenementResponse{
		Evenement:  e,
		ImageURL:   absoluteURL(r, e.Image),
		EstEnCours: e.EstEnCours(h.now()),
	}
}

func (h *EvenementHandler) ListEvenements(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	evenements, err := h.evenementService.List(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]EvenementResponse, 0, len(evenements))
	for _, e := range evenements {
		items = append(items, h.present(r, e))
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit))
}

func (h *EvenementHandler) GetEvenement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "evenementID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	evenement, err := h.evenementService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.present(r, evenement))
}

// parseEvenementForm reads the event fields of a multipart form into a
// patch. Malformed dates and times are reported per field.
func parseEvenementForm(r *http.Request) (types.EvenementPatch, error) {
	var patch types.EvenementPatch
	fields := map[string]string{}

	patch.Titre = formString(r, formFieldTitre)
	patch.Description = formString(r, formFieldDescription)
	patch.Lieu = formString(r, formFieldLieu)
	if raw := formString(r, formFieldCategorie); raw != nil {
		categorie := types.EvenementCategorie(strings.ToLower(*raw))
		patch.Categorie = &categorie
	}
	if raw := formString(r, formFieldTags); raw != nil {
		tag := types.EvenementTag(strings.ToLower(*raw))
		patch.Tags = &tag
	}
	for field, target := range map[string]**types.TimeOfDay{
		formFieldHeureDebut: &patch.HeureDebut,
		formFieldHeureFin:   &patch.HeureFin,
	} {
		if raw := formString(r, field); raw != nil {
			parsed, err := types.ParseTimeOfDay(*raw)
			if err != nil {
				fields[field] = err.Error()
				continue
			}
			*target = &parsed
		}
	}
	if raw := formString(r, formFieldDate); raw != nil {
		parsed, err := types.ParseDate(*raw)
		if err != nil {
			fields[formFieldDate] = err.Error()
		} else {
			patch.Date = &parsed
		}
	}

	if len(fields) > 0 {
		return types.EvenementPatch{}, &services.ValidationError{Fields: fields}
	}
	return patch, nil
}

func inputFromPatch(patch types.EvenementPatch) services.EvenementInput {
	input := services.EvenementInput{
		HeureDebut: patch.HeureDebut,
		HeureFin:   patch.HeureFin,
		Date:       patch.Date,
	}
	if patch.Titre != nil {
		input.Titre = *patch.Titre
	}
	if patch.Description != nil {
		input.Description = *patch.Description
	}
	if patch.Lieu != nil {
		input.Lieu = *patch.Lieu
	}
	if patch.Categorie != nil {
		input.Categorie = *patch.Categorie
	}
	if patch.Tags != nil {
		input.Tags = *patch.Tags
	}
	return input
}

// CreateEvenement accepts JSON or a multipart form carrying the optional
// image file.
func (h *EvenementHandler) CreateEvenement(w http.ResponseWriter, r *http.Request) {
	var (
		input services.EvenementInput
		image *services.Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		patch, err := parseEvenementForm(r)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		input = inputFromPatch(patch)

		upload, file, err := readUpload(r, formFieldImage, h.maxUploadBytes)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		defer closeQuietly(file)
		image = upload
	} else if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	created, err := h.evenementService.Create(r.Context(), actorFromContext(r.Context()), input, image)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.present(r, created))
}

func (h *EvenementHandler) UpdateEvenement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "evenementID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		patch types.EvenementPatch
		image *services.Upload
	)
	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		patch, err = parseEvenementForm(r)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}

		upload, file, err := readUpload(r, formFieldImage, h.maxUploadBytes)
		if err != nil {
			writeDecodeError(w, r, err)
			return
		}
		defer closeQuietly(file)
		image = upload
	} else if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	updated, err := h.evenementService.Update(r.Context(), actorFromContext(r.Context()), id, patch, image)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.present(r, updated))
}

func (h *EvenementHandler) DeleteEvenement(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "evenementID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.evenementService.Delete(r.Context(), actorFromContext(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Register signs the caller up for the event.
func (h *EvenementHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "evenementID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	evenement, err := h.evenementService.Register(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.present(r, evenement))
}

func (h *EvenementHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "evenementID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, err := h.evenementService.Participants(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}
