package services

import (
	"context"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/types"
)

// UserService encapsulates user use-cases: self-service on the caller's
// own account and administrator management of every account.
type UserService struct {
	accounts *AccountService
}

func NewUserService(accounts *AccountService) *UserService {
	return &UserService{accounts: accounts}
}

func requireAuthenticated(actor authz.Actor) error {
	if actor.Authenticated() {
		return nil
	}
	return &authz.Denied{Action: authz.ActionRead, Resource: authz.ResourceUser, Anonymous: true}
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, actor authz.Actor) (types.User, error) {
	if err := requireAuthenticated(actor); err != nil {
		return types.User{}, err
	}
	return s.accounts.GetUser(ctx, actor.UserID)
}

// UpdateMe updates the caller's own account. Activation and staff flags
// are not self-service.
func (s *UserService) UpdateMe(ctx context.Context, actor authz.Actor, update UserUpdate) (types.User, error) {
	if err := requireAuthenticated(actor); err != nil {
		return types.User{}, err
	}
	update.IsActive = nil
	update.IsStaff = nil
	return s.accounts.UpdateUser(ctx, actor.UserID, update)
}

// DeactivateMe is the caller's account deletion request: the account is
// deactivated and its content kept.
func (s *UserService) DeactivateMe(ctx context.Context, actor authz.Actor) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	return s.accounts.Deactivate(ctx, actor.UserID)
}

func (s *UserService) List(ctx context.Context, actor authz.Actor, offset, limit int) ([]types.User, error) {
	if err := authz.Check(actor, authz.ActionRead, authz.On(authz.ResourceUser)); err != nil {
		return nil, err
	}
	return s.accounts.ListUsers(ctx, offset, limit)
}

func (s *UserService) Get(ctx context.Context, actor authz.Actor, id int) (types.User, error) {
	if err := authz.Check(actor, authz.ActionRead, authz.On(authz.ResourceUser)); err != nil {
		return types.User{}, err
	}
	return s.accounts.GetUser(ctx, id)
}

// Create adds an account without role profile.
func (s *UserService) Create(ctx context.Context, actor authz.Actor, account AccountInput) (types.User, error) {
	if err := validateStruct(account); err != nil {
		return types.User{}, err
	}
	if err := authz.Check(actor, authz.ActionCreate, authz.On(authz.ResourceUser)); err != nil {
		return types.User{}, err
	}
	return s.accounts.CreateUser(ctx, account)
}

func (s *UserService) Update(ctx context.Context, actor authz.Actor, id int, update UserUpdate) (types.User, error) {
	if err := validateStruct(update); err != nil {
		return types.User{}, err
	}
	if err := authz.Check(actor, authz.ActionUpdate, authz.On(authz.ResourceUser)); err != nil {
		return types.User{}, err
	}
	return s.accounts.UpdateUser(ctx, id, update)
}

func (s *UserService) Delete(ctx context.Context, actor authz.Actor, id int) error {
	if err := authz.Check(actor, authz.ActionDelete, authz.On(authz.ResourceUser)); err != nil {
		return err
	}
	return s.accounts.DeleteUser(ctx, id)
}
