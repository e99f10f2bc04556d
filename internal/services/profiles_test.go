package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/types"
)

func adminActor(t *testing.T, svc *AccountService) authz.Actor {
	t.Helper()
	ctx := context.Background()
	profile, err := svc.CreateAccount(ctx, types.RoleAdministrateur, account("admin"), ExpertInput{})
	require.NoError(t, err)
	actor, err := svc.ResolveActor(ctx, profile.AccountID())
	require.NoError(t, err)
	return actor
}

func TestProfileServiceRequiresAdministrateur(t *testing.T) {
	accounts, repo, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	ctx := context.Background()

	chercheur := authz.Actor{UserID: 40, Role: types.RoleChercheur, ProfileID: 4}

	_, err := profiles.Create(ctx, chercheur, types.RoleApporteur, account("awa"))
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.Empty(t, repo.users)

	_, err = profiles.List(ctx, authz.Anonymous, types.RoleApporteur, 0, 0)
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)

	_, err = profiles.List(ctx, chercheur, types.RoleChercheur, 0, 0)
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestProfileServiceExpertsVisibleToExperts(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	ctx := context.Background()

	created, err := accounts.CreateAccount(ctx, types.RoleExpert, account("moussa"), expertInput())
	require.NoError(t, err)

	expert := authz.Actor{UserID: 50, Role: types.RoleExpert, ProfileID: 5}
	got, err := profiles.Get(ctx, expert, types.RoleExpert, created.ProfileID())
	require.NoError(t, err)
	assert.Equal(t, "Douane", got.(types.Expert).Specialite)

	_, err = profiles.Get(ctx, authz.Actor{UserID: 60, Role: types.RoleApporteur, ProfileID: 6}, types.RoleExpert, created.ProfileID())
	assert.ErrorIs(t, err, authz.ErrForbidden)

	_, err = profiles.ValidateExpert(ctx, expert, created.ProfileID())
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestProfileServiceCreateNestsUserErrors(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	admin := adminActor(t, accounts)

	_, err := profiles.Create(context.Background(), admin, types.RoleChercheur, AccountInput{Username: "fatou"})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "user.password")
}

func TestProfileServiceUpdateExpert(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	admin := adminActor(t, accounts)
	ctx := context.Background()

	created, err := accounts.CreateAccount(ctx, types.RoleExpert, account("moussa"), expertInput())
	require.NoError(t, err)

	firstName := "Moussa"
	years := 12
	service := types.ServiceDedouanement
	updated, err := profiles.Update(ctx, admin, types.RoleExpert, created.ProfileID(), ProfileUpdate{
		User: &UserUpdate{UserPatch: types.UserPatch{FirstName: &firstName}},
		ExpertPatch: types.ExpertPatch{
			DureeExperience:  &years,
			ServicesProposes: &service,
		},
	})
	require.NoError(t, err)

	expert := updated.(types.Expert)
	assert.Equal(t, "Moussa", expert.User.FirstName)
	assert.Equal(t, "moussa", expert.User.Username)
	assert.Equal(t, 12, expert.DureeExperience)
	assert.Equal(t, types.ServiceDedouanement, expert.ServicesProposes)
}

func TestProfileServiceUpdateRejectsUnknownService(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	admin := adminActor(t, accounts)

	service := types.ServiceExpert("astrologie")
	_, err := profiles.Update(context.Background(), admin, types.RoleExpert, 1, ProfileUpdate{
		ExpertPatch: types.ExpertPatch{ServicesProposes: &service},
	})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, validationErr.Fields, "services_proposes")
}

func TestProfileServiceUpdateExpertFailureKeepsAccount(t *testing.T) {
	accounts, repo, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	admin := adminActor(t, accounts)
	ctx := context.Background()

	created, err := accounts.CreateAccount(ctx, types.RoleExpert, account("moussa"), expertInput())
	require.NoError(t, err)
	repo.failExpertUpdate = true

	firstName := "Moussa"
	years := 20
	_, err = profiles.Update(ctx, admin, types.RoleExpert, created.ProfileID(), ProfileUpdate{
		User:        &UserUpdate{UserPatch: types.UserPatch{FirstName: &firstName}},
		ExpertPatch: types.ExpertPatch{DureeExperience: &years},
	})
	require.Error(t, err)

	assert.Empty(t, repo.users[created.AccountID()].FirstName)
	got, err := accounts.GetProfile(ctx, types.RoleExpert, created.ProfileID())
	require.NoError(t, err)
	assert.Equal(t, 5, got.(types.Expert).DureeExperience)
}

func TestProfileServiceUpdateExpertNestsAccountErrors(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	admin := adminActor(t, accounts)
	ctx := context.Background()

	created, err := accounts.CreateAccount(ctx, types.RoleExpert, account("moussa"), expertInput())
	require.NoError(t, err)

	taken := "admin"
	_, err = profiles.Update(ctx, admin, types.RoleExpert, created.ProfileID(), ProfileUpdate{
		User: &UserUpdate{UserPatch: types.UserPatch{Username: &taken}},
	})

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, map[string]string{"user.username": msgUsernameTaken}, validationErr.Fields)
}

func TestProfileServiceDelete(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	profiles := NewProfileService(accounts)
	admin := adminActor(t, accounts)
	ctx := context.Background()

	created, err := accounts.CreateAccount(ctx, types.RoleApporteur, account("awa"), ExpertInput{})
	require.NoError(t, err)

	require.NoError(t, profiles.Delete(ctx, admin, types.RoleApporteur, created.ProfileID()))

	actor, err := accounts.ResolveActor(ctx, created.AccountID())
	require.NoError(t, err)
	assert.Equal(t, types.RoleUtilisateur, actor.Role)
}

func TestUserServiceSelfService(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	users := NewUserService(accounts)
	ctx := context.Background()

	_, err := users.Me(ctx, authz.Anonymous)
	assert.ErrorIs(t, err, authz.ErrUnauthenticated)

	created, err := accounts.CreateAccount(ctx, types.RoleChercheur, account("fatou"), ExpertInput{})
	require.NoError(t, err)
	actor, err := accounts.ResolveActor(ctx, created.AccountID())
	require.NoError(t, err)

	staff := true
	adresse := "Rue 10, Thiès"
	updated, err := users.UpdateMe(ctx, actor, UserUpdate{UserPatch: types.UserPatch{Adresse: &adresse, IsStaff: &staff}})
	require.NoError(t, err)
	assert.Equal(t, adresse, updated.Adresse)
	assert.False(t, updated.IsStaff)

	require.NoError(t, users.DeactivateMe(ctx, actor))
	me, err := users.Me(ctx, actor)
	require.NoError(t, err)
	assert.False(t, me.IsActive)
}

func TestUserServiceAdministration(t *testing.T) {
	accounts, _, _ := newTestAccounts(t)
	users := NewUserService(accounts)
	admin := adminActor(t, accounts)
	ctx := context.Background()

	_, err := users.List(ctx, authz.Actor{UserID: 9, Role: types.RoleApporteur, ProfileID: 9}, 0, 0)
	assert.ErrorIs(t, err, authz.ErrForbidden)

	created, err := users.Create(ctx, admin, account("invite"))
	require.NoError(t, err)
	assert.Equal(t, types.RoleUtilisateur, created.Role)

	listed, err := users.List(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, users.Delete(ctx, admin, created.ID))
	_, err = users.Get(ctx, admin, created.ID)
	assert.Error(t, err)
}
