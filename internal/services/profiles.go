package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/types"
)

// ProfileUpdate is a partial update of a profile and its nested account.
type ProfileUpdate struct {
	User *UserUpdate `json:"user"`
	types.ExpertPatch
}

// ProfileService manages the role profiles of every role.
type ProfileService struct {
	accounts *AccountService
}

func NewProfileService(accounts *AccountService) *ProfileService {
	return &ProfileService{accounts: accounts}
}

func profileTarget(role types.Role) (authz.Target, error) {
	resource, ok := authz.ProfileResource(role)
	if !ok {
		return authz.Target{}, fmt.Errorf("role %q has no profile", role)
	}
	return authz.On(resource), nil
}

func (s *ProfileService) check(actor authz.Actor, action authz.Action, role types.Role) error {
	target, err := profileTarget(role)
	if err != nil {
		return err
	}
	return authz.Check(actor, action, target)
}

func (s *ProfileService) List(ctx context.Context, actor authz.Actor, role types.Role, offset, limit int) ([]types.Profile, error) {
	if err := s.check(actor, authz.ActionRead, role); err != nil {
		return nil, err
	}
	return s.accounts.ListProfiles(ctx, role, offset, limit)
}

func (s *ProfileService) Get(ctx context.Context, actor authz.Actor, role types.Role, id int) (types.Profile, error) {
	if err := s.check(actor, authz.ActionRead, role); err != nil {
		return nil, err
	}
	return s.accounts.GetProfile(ctx, role, id)
}

// Create adds an account with a profile of role. Expert profiles are only
// created through signup.
func (s *ProfileService) Create(ctx context.Context, actor authz.Actor, role types.Role, account AccountInput) (types.Profile, error) {
	if err := validateStruct(account); err != nil {
		return nil, nestUnderUser(err)
	}
	if err := s.check(actor, authz.ActionCreate, role); err != nil {
		return nil, err
	}
	profile, err := s.accounts.CreateAccount(ctx, role, account, ExpertInput{})
	if err != nil {
		return nil, nestUnderUser(err)
	}
	return profile, nil
}

// nestUnderUser moves account field errors under the "user" key of the
// profile payload.
func nestUnderUser(err error) error {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.prefixed("user")
	}
	return err
}

// Update applies the nested account update and, for experts, the expert
// attributes.
func (s *ProfileService) Update(ctx context.Context, actor authz.Actor, role types.Role, id int, update ProfileUpdate) (types.Profile, error) {
	if err := validateStruct(update); err != nil {
		return nil, err
	}
	if err := s.check(actor, authz.ActionUpdate, role); err != nil {
		return nil, err
	}
	if role == types.RoleExpert {
		if _, err := s.accounts.UpdateExpert(ctx, id, update.ExpertPatch, update.User); err != nil {
			return nil, err
		}
		return s.accounts.GetProfile(ctx, role, id)
	}

	profile, err := s.accounts.GetProfile(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if update.User != nil {
		if _, err := s.accounts.UpdateUser(ctx, profile.AccountID(), *update.User); err != nil {
			return nil, nestUnderUser(err)
		}
	}
	return s.accounts.GetProfile(ctx, role, id)
}

// Delete removes the profile and reverts the account to RoleUtilisateur.
func (s *ProfileService) Delete(ctx context.Context, actor authz.Actor, role types.Role, id int) error {
	if err := s.check(actor, authz.ActionDelete, role); err != nil {
		return err
	}
	return s.accounts.DeleteProfile(ctx, role, id)
}

// ValidateExpert activates a pending expert account.
func (s *ProfileService) ValidateExpert(ctx context.Context, actor authz.Actor, id int) (types.Expert, error) {
	if err := authz.Check(actor, authz.ActionUpdate, authz.On(authz.ResourceExpert)); err != nil {
		return types.Expert{}, err
	}
	return s.accounts.ValidateExpert(ctx, id)
}
