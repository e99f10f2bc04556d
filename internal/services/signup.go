package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/reseau-affaires/apiserver/types"
)

const msgInvalidRole = "Rôle non valide"

// SignupRequest is the public signup payload. Expert attributes sit next
// to the role token and are only validated and stored for experts.
type SignupRequest struct {
	Role        string       `json:"role"`
	User        AccountInput `json:"user"`
	ExpertInput `validate:"-"`
}

// SignupResult reports the created profile.
type SignupResult struct {
	Message string
	Profile types.Profile
}

// Signup dispatches on the role token and creates the account and its
// profile. Nothing is written when the token or the payload is invalid.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (SignupResult, error) {
	role, ok := types.RoleFromSignupToken(req.Role)
	if !ok {
		return SignupResult{}, newValidationError("role", msgInvalidRole)
	}

	req.User.normalize()
	if err := validateStruct(req); err != nil {
		return SignupResult{}, err
	}

	profile, err := s.CreateAccount(ctx, role, req.User, req.ExpertInput)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			if _, taken := validationErr.Fields["username"]; taken {
				return SignupResult{}, validationErr.prefixed("user")
			}
		}
		return SignupResult{}, err
	}

	return SignupResult{
		Message: fmt.Sprintf("Compte %s créé avec succès", req.Role),
		Profile: profile,
	}, nil
}
