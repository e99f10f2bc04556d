package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/types"
)

// ProfileHandler serves the administration endpoints of one profile role.
type ProfileHandler struct {
	profileService *services.ProfileService
	role           types.Role
}

func NewProfileHandler(profileService *services.ProfileService, role types.Role) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, role: role}
}

// ProfileRouter registers the routes of the role's profiles. Expert
// profiles are created through signup only and get a validation route
// instead.
func ProfileRouter(r chi.Router, profileService *services.ProfileService, role types.Role) {
	handler := NewProfileHandler(profileService, role)

	r.Get("/", handler.ListProfiles)
	if role != types.RoleExpert {
		r.Post("/", handler.CreateProfile)
	}
	r.Route("/{profileID}", func(r chi.Router) {
		r.Get("/", handler.GetProfile)
		r.Put("/", handler.UpdateProfile)
		r.Patch("/", handler.UpdateProfile)
		r.Delete("/", handler.DeleteProfile)
		if role == types.RoleExpert {
			r.Post("/validate", handler.ValidateExpert)
		}
	})
}

// CreateProfileRequest nests the account fields under "user".
type CreateProfileRequest struct {
	User services.AccountInput `json:"user"`
}

func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profiles, err := h.profileService.List(r.Context(), actorFromContext(r.Context()), h.role, offset, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newListResponse(profiles, page, limit))
}

func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.profileService.Get(r.Context(), actorFromContext(r.Context()), h.role, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	profile, err := h.profileService.Create(r.Context(), actorFromContext(r.Context()), h.role, req.User)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	profile, err := h.profileService.Update(r.Context(), actorFromContext(r.Context()), h.role, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.profileService.Delete(r.Context(), actorFromContext(r.Context()), h.role, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ValidateExpert activates a pending expert account.
func (h *ProfileHandler) ValidateExpert(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "profileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expert, err := h.profileService.ValidateExpert(r.Context(), actorFromContext(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, expert)
}
