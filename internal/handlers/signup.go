package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reseau-affaires/apiserver/internal/services"
)

// SignupHandler exposes public account creation.
type SignupHandler struct {
	accounts *services.AccountService
}

func NewSignupHandler(accounts *services.AccountService) *SignupHandler {
	return &SignupHandler{accounts: accounts}
}

// SignupRouter registers the signup route on the given router.
func SignupRouter(r chi.Router, accounts *services.AccountService) {
	handler := NewSignupHandler(accounts)

	r.Post("/", handler.Signup)
}

// SignupResponse reports the created profile.
type SignupResponse struct {
	Message string `json:"message"`
	ID      int    `json:"id"`
}

func (h *SignupHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	result, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SignupResponse{
		Message: result.Message,
		ID:      result.Profile.ProfileID(),
	})
}
