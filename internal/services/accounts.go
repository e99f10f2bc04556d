package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/internal/store"
	"github.com/reseau-affaires/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const msgUsernameTaken = "A user with that username already exists."

// AccountRepository defines persistence operations for users and role profiles.
type AccountRepository interface {
	GetUser(ctx context.Context, id int) (types.User, error)
	GetUserByUsername(ctx context.Context, username string) (types.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]types.User, error)
	CreateUser(ctx context.Context, user types.User) (types.User, error)
	CreateAccount(ctx context.Context, profile types.Profile) (types.Profile, error)
	GetProfile(ctx context.Context, role types.Role, id int) (types.Profile, error)
	ListProfiles(ctx context.Context, role types.Role, offset, limit int) ([]types.Profile, error)
	ProfileIDForUser(ctx context.Context, role types.Role, userID int) (int, error)
	UpdateUser(ctx context.Context, user types.User) (types.User, error)
	UpdateExpert(ctx context.Context, expert types.Expert, user *types.User) (types.Expert, error)
	SetActive(ctx context.Context, userID int, active bool) error
	DeleteUser(ctx context.Context, id int) error
	DeleteProfile(ctx context.Context, role types.Role, id int) error
}

// AccountInput carries the account fields of a new user.
type AccountInput struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"omitempty,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Adresse   string `json:"adresse"`
	Telephone string `json:"telephone" validate:"max=20"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

func (in *AccountInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Telephone = strings.TrimSpace(in.Telephone)
}

// ExpertInput carries the expert attributes of a new expert account.
// Only ServicesProposes may be omitted.
type ExpertInput struct {
	DureeExperience  *int                `json:"duree_experience" validate:"required,min=0"`
	Specialite       string              `json:"specialite" validate:"required,max=100"`
	Localisation     string              `json:"localisation" validate:"required,max=100"`
	ServicesProposes types.ServiceExpert `json:"services_proposes" validate:"omitempty,choice"`
}

func (in *ExpertInput) normalize() {
	in.Specialite = strings.TrimSpace(in.Specialite)
	in.Localisation = strings.TrimSpace(in.Localisation)
}

// UserUpdate is a partial account update. Password is hashed before it
// reaches the store.
type UserUpdate struct {
	types.UserPatch
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// AccountService implements the account and role model: atomic account
// creation, role resolution, authentication and profile maintenance.
// It performs no authorization; callers check the matrix first.
type AccountService struct {
	repo   AccountRepository
	events *Notifier
}

func NewAccountService(repo AccountRepository, events *Notifier) *AccountService {
	return &AccountService{repo: repo, events: events}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (s *AccountService) ensureUsernameFree(ctx context.Context, username string, exceptID int) error {
	existing, err := s.repo.GetUserByUsername(ctx, username)
	if err == nil && existing.ID != exceptID {
		return newValidationError("username", msgUsernameTaken)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AccountService) newUser(ctx context.Context, in AccountInput) (types.User, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return types.User{}, err
	}
	if err := s.ensureUsernameFree(ctx, in.Username, 0); err != nil {
		return types.User{}, err
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return types.User{}, err
	}
	return types.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Adresse:      in.Adresse,
		Telephone:    in.Telephone,
		IsActive:     true,
		PasswordHash: hashed,
	}, nil
}

// CreateAccount validates the input and creates the user and its role
// profile atomically. Experts start inactive until an administrator
// validates them.
func (s *AccountService) CreateAccount(ctx context.Context, role types.Role, account AccountInput, expert ExpertInput) (types.Profile, error) {
	if !role.HasProfile() {
		return nil, newValidationError("role", fmt.Sprintf("%q is not a valid role.", role))
	}
	if role == types.RoleExpert {
		expert.normalize()
		if err := validateStruct(expert); err != nil {
			return nil, err
		}
	}
	user, err := s.newUser(ctx, account)
	if err != nil {
		return nil, err
	}

	switch role {
	case types.RoleExpert:
		user.IsActive = false
	case types.RoleAdministrateur:
		user.IsStaff = true
	}

	profile, _ := types.NewProfile(role, user)
	if role == types.RoleExpert {
		p := profile.(types.Expert)
		p.DureeExperience = *expert.DureeExperience
		p.Specialite = expert.Specialite
		p.Localisation = expert.Localisation
		if expert.ServicesProposes != "" {
			p.ServicesProposes = expert.ServicesProposes
		}
		profile = p
	}

	created, err := s.repo.CreateAccount(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("create %s account: %w", role, err)
	}
	if expertProfile, ok := created.(types.Expert); ok {
		s.events.ExpertEnAttente(ctx, expertProfile)
	}
	return created, nil
}

// CreateUser creates an account without role profile.
func (s *AccountService) CreateUser(ctx context.Context, account AccountInput) (types.User, error) {
	user, err := s.newUser(ctx, account)
	if err != nil {
		return types.User{}, err
	}
	return s.repo.CreateUser(ctx, user)
}

func (s *AccountService) GetUser(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetUser(ctx, id)
}

func (s *AccountService) ListUsers(ctx context.Context, offset, limit int) ([]types.User, error) {
	return s.repo.ListUsers(ctx, offset, limit)
}

func (s *AccountService) GetProfile(ctx context.Context, role types.Role, id int) (types.Profile, error) {
	return s.repo.GetProfile(ctx, role, id)
}

func (s *AccountService) ListProfiles(ctx context.Context, role types.Role, offset, limit int) ([]types.Profile, error) {
	return s.repo.ListProfiles(ctx, role, offset, limit)
}

// DetermineRole returns the role of the profile attached to the user, or
// RoleUtilisateur when none is.
func (s *AccountService) DetermineRole(ctx context.Context, userID int) (types.Role, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.Role.Valid() {
		return types.RoleUtilisateur, nil
	}
	return user.Role, nil
}

// ResolveActor loads the authorization identity of userID. Inactive
// accounts resolve to ErrAccountInactive.
func (s *AccountService) ResolveActor(ctx context.Context, userID int) (authz.Actor, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return authz.Anonymous, err
	}
	if !user.IsActive {
		return authz.Anonymous, ErrAccountInactive
	}
	actor := authz.Actor{UserID: user.ID, Role: types.RoleUtilisateur}
	if !user.Role.HasProfile() {
		return actor, nil
	}
	profileID, err := s.repo.ProfileIDForUser(ctx, user.Role, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return actor, nil
		}
		return authz.Anonymous, err
	}
	actor.Role = user.Role
	actor.ProfileID = profileID
	return actor, nil
}

// Authenticate checks credentials. Inactive accounts cannot log in.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return types.User{}, ErrAccountInactive
	}
	return user, nil
}

// UpdateUser applies a partial update to an account.
func (s *AccountService) UpdateUser(ctx context.Context, id int, update UserUpdate) (types.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user, err = s.applyUserUpdate(ctx, user, update)
	if err != nil {
		return types.User{}, err
	}
	return s.repo.UpdateUser(ctx, user)
}

// applyUserUpdate validates update against user and returns the updated
// account, with the new password hashed. Nothing is written.
func (s *AccountService) applyUserUpdate(ctx context.Context, user types.User, update UserUpdate) (types.User, error) {
	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		update.Username = &trimmed
	}
	if err := validateStruct(update); err != nil {
		return types.User{}, err
	}
	if update.Username != nil && *update.Username != user.Username {
		if err := s.ensureUsernameFree(ctx, *update.Username, user.ID); err != nil {
			return types.User{}, err
		}
	}
	if update.Password != nil {
		hashed, err := hashPassword(*update.Password)
		if err != nil {
			return types.User{}, err
		}
		update.PasswordHash = &hashed
	}
	update.Apply(&user)
	return user, nil
}

// UpdateExpert applies a partial update to the expert attributes and,
// when account is set, to the expert's account. Both are written in one
// transaction; account errors are reported under "user".
func (s *AccountService) UpdateExpert(ctx context.Context, id int, patch types.ExpertPatch, account *UserUpdate) (types.Expert, error) {
	if err := validateStruct(patch); err != nil {
		return types.Expert{}, err
	}
	profile, err := s.repo.GetProfile(ctx, types.RoleExpert, id)
	if err != nil {
		return types.Expert{}, err
	}
	expert := profile.(types.Expert)

	var user *types.User
	if account != nil {
		updated, err := s.applyUserUpdate(ctx, expert.User, *account)
		if err != nil {
			return types.Expert{}, nestUnderUser(err)
		}
		user = &updated
	}
	patch.Apply(&expert)
	return s.repo.UpdateExpert(ctx, expert, user)
}

// Deactivate disables the account without deleting it or its content.
func (s *AccountService) Deactivate(ctx context.Context, userID int) error {
	return s.repo.SetActive(ctx, userID, false)
}

// ValidateExpert activates a pending expert account.
func (s *AccountService) ValidateExpert(ctx context.Context, expertID int) (types.Expert, error) {
	profile, err := s.repo.GetProfile(ctx, types.RoleExpert, expertID)
	if err != nil {
		return types.Expert{}, err
	}
	expert := profile.(types.Expert)
	if err := s.repo.SetActive(ctx, expert.UserID, true); err != nil {
		return types.Expert{}, err
	}
	expert.User.IsActive = true
	return expert, nil
}

// DeleteUser removes the account together with its profile and owned listings.
func (s *AccountService) DeleteUser(ctx context.Context, id int) error {
	return s.repo.DeleteUser(ctx, id)
}

// DeleteProfile removes the role profile. The account survives with
// RoleUtilisateur.
func (s *AccountService) DeleteProfile(ctx context.Context, role types.Role, id int) error {
	return s.repo.DeleteProfile(ctx, role, id)
}
