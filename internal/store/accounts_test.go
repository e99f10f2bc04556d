package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reseau-affaires/apiserver/types"
)

func newMock(t *testing.T) (*AccountRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewAccountRepository(db), mock
}

var userColumnNames = []string{
	"id", "username", "email", "first_name", "last_name", "adresse", "telephone",
	"role", "is_active", "is_staff", "is_superuser", "password_hash", "date_joined", "updated_at",
}

func TestCreateAccountCommitsUserAndProfile(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO apporteurs (user_id) VALUES ($1) RETURNING id")).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	profile, ok := types.NewProfile(types.RoleApporteur, types.User{Username: "awa", IsActive: true})
	require.True(t, ok)

	created, err := repo.CreateAccount(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, types.RoleApporteur, created.Role())
	assert.Equal(t, 3, created.ProfileID())
	assert.Equal(t, 7, created.AccountID())
	assert.Equal(t, types.RoleApporteur, created.Account().Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountInsertsExpertAttributes(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO experts")).
		WithArgs(8, 5, "Export", "Dakar", "transport").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	expert := types.Expert{
		User:             types.User{Username: "moussa"},
		DureeExperience:  5,
		Specialite:       "Export",
		Localisation:     "Dakar",
		ServicesProposes: types.ServiceTransport,
	}
	created, err := repo.CreateAccount(context.Background(), expert)
	require.NoError(t, err)

	got, ok := created.(types.Expert)
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)
	assert.Equal(t, 8, got.UserID)
	assert.Equal(t, "Export", got.Specialite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountRollsBackWhenProfileInsertFails(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO chercheurs")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	profile, _ := types.NewProfile(types.RoleChercheur, types.User{Username: "fatou"})
	created, err := repo.CreateAccount(context.Background(), profile)
	require.Error(t, err)
	assert.Nil(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicateUsernameIsConflict(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_username_key"})
	mock.ExpectRollback()

	profile, _ := types.NewProfile(types.RoleApporteur, types.User{Username: "awa"})
	_, err := repo.CreateAccount(context.Background(), profile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "users_username_key", conflict.Constraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfileScansExpert(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	columns := append([]string{"id"}, userColumnNames...)
	columns = append(columns, "duree_experience", "specialite", "localisation", "services_proposes")
	rows := sqlmock.NewRows(columns).AddRow(
		4, 11, "moussa", "m@example.com", "Moussa", "Diop", "Dakar", "770000000",
		"expert", false, false, false, "hash", now, now,
		12, "Douane", "Thies", "dedouanement",
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM experts p JOIN users u ON u.id = p.user_id WHERE p.id = $1")).
		WithArgs(4).
		WillReturnRows(rows)

	profile, err := repo.GetProfile(context.Background(), types.RoleExpert, 4)
	require.NoError(t, err)

	expert, ok := profile.(types.Expert)
	require.True(t, ok)
	assert.Equal(t, 4, expert.ID)
	assert.Equal(t, 11, expert.UserID)
	assert.Equal(t, "moussa", expert.User.Username)
	assert.False(t, expert.User.IsActive)
	assert.Equal(t, types.ServiceDedouanement, expert.ServicesProposes)
	assert.Equal(t, 12, expert.DureeExperience)
}

func TestGetProfileNotFound(t *testing.T) {
	repo, mock := newMock(t)

	columns := append([]string{"id"}, userColumnNames...)
	mock.ExpectQuery(regexp.QuoteMeta("FROM administrateurs p")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetProfile(context.Background(), types.RoleAdministrateur, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileRejectsRoleWithoutProfile(t *testing.T) {
	repo, _ := newMock(t)

	_, err := repo.GetProfile(context.Background(), types.RoleUtilisateur, 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestUpdateExpertWritesAccountInSameTransaction(t *testing.T) {
	repo, mock := newMock(t)

	user := types.User{ID: 11, Username: "moussa", FirstName: "Moussa", Role: types.RoleExpert, IsActive: true}
	expert := types.Expert{ID: 4, UserID: 11, DureeExperience: 9, Specialite: "Douane", Localisation: "Thies",
		ServicesProposes: types.ServiceTransport}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WithArgs("moussa", "", "Moussa", "", "", "", true, false, false, "", sqlmock.AnyArg(), 11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE experts")).
		WithArgs(9, "Douane", "Thies", "transport", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateExpert(context.Background(), expert, &user)
	require.NoError(t, err)
	assert.Equal(t, "Moussa", updated.User.FirstName)
	assert.False(t, updated.User.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExpertFailureRollsBackAccount(t *testing.T) {
	repo, mock := newMock(t)

	user := types.User{ID: 11, Username: "moussa"}
	expert := types.Expert{ID: 4, UserID: 11, ServicesProposes: types.ServiceLogistique}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE experts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.UpdateExpert(context.Background(), expert, &user)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateExpertWithoutAccount(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE experts")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := repo.UpdateExpert(context.Background(), types.Expert{ID: 4}, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProfileRevertsRole(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM chercheurs WHERE id = $1 RETURNING user_id")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(9))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET role = $1")).
		WithArgs("utilisateur", sqlmock.AnyArg(), 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteProfile(context.Background(), types.RoleChercheur, 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProfileMissingRollsBack(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM apporteurs")).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	err := repo.DeleteProfile(context.Background(), types.RoleApporteur, 4)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteUser(context.Background(), 5), ErrNotFound)
}

func TestListUsersPaginates(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(userColumnNames).
		AddRow(3, "awa", "", "", "", "", "", "apporteur", true, false, false, "h", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY u.id OFFSET $1 LIMIT $2")).
		WithArgs(10, 5).
		WillReturnRows(rows)

	users, err := repo.ListUsers(context.Background(), 10, 5)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, types.RoleApporteur, users[0].Role)
}
