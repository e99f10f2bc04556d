package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reseau-affaires/apiserver/types"
)

const userColumns = `u.id, u.username, u.email, u.first_name, u.last_name, u.adresse, u.telephone,
	u.role, u.is_active, u.is_staff, u.is_superuser, u.password_hash, u.date_joined, u.updated_at`

const expertColumns = `p.duree_experience, p.specialite, p.localisation, p.services_proposes`

// AccountRepository handles persistence for users and their role profiles.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func userFields(user *types.User) []any {
	return []any{
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Adresse,
		&user.Telephone,
		&user.Role,
		&user.IsActive,
		&user.IsStaff,
		&user.IsSuperuser,
		&user.PasswordHash,
		&user.DateJoined,
		&user.UpdatedAt,
	}
}

func profileTable(role types.Role) (string, error) {
	switch role {
	case types.RoleApporteur:
		return "apporteurs", nil
	case types.RoleChercheur:
		return "chercheurs", nil
	case types.RoleExpert:
		return "experts", nil
	case types.RoleAdministrateur:
		return "administrateurs", nil
	default:
		return "", fmt.Errorf("role %q has no profile table", role)
	}
}

func (r *AccountRepository) GetUser(ctx context.Context, id int) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	var user types.User
	if err := r.db.QueryRowContext(ctx, query, id).Scan(userFields(&user)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *AccountRepository) GetUserByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.username = $1`
	var user types.User
	if err := r.db.QueryRowContext(ctx, query, username).Scan(userFields(&user)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *AccountRepository) ListUsers(ctx context.Context, offset, limit int) ([]types.User, error) {
	query, args := pagination(`SELECT `+userColumns+` FROM users u ORDER BY u.id`, nil, offset, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(userFields(&user)...); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser inserts an account without profile.
func (r *AccountRepository) CreateUser(ctx context.Context, user types.User) (types.User, error) {
	user.Role = types.RoleUtilisateur
	return insertUser(ctx, r.db, user)
}

func insertUser(ctx context.Context, q querier, user types.User) (types.User, error) {
	now := time.Now()
	user.DateJoined = now
	user.UpdatedAt = now

	const query = `
		INSERT INTO users (username, email, first_name, last_name, adresse, telephone, role,
			is_active, is_staff, is_superuser, password_hash, date_joined, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`
	if err := q.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Adresse,
		user.Telephone,
		user.Role,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.PasswordHash,
		user.DateJoined,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, mapError(err)
	}
	return user, nil
}

// CreateAccount inserts the account of profile and the profile itself in a
// single transaction. Nothing is persisted when either insert fails.
func (r *AccountRepository) CreateAccount(ctx context.Context, profile types.Profile) (types.Profile, error) {
	user := profile.Account()
	user.Role = profile.Role()

	var created types.Profile
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		account, err := insertUser(ctx, tx, user)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		id, err := insertProfile(ctx, tx, account.ID, profile)
		if err != nil {
			return fmt.Errorf("insert %s profile: %w", profile.Role(), err)
		}
		created = bindProfile(profile, account, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func insertProfile(ctx context.Context, q querier, userID int, profile types.Profile) (int, error) {
	var id int
	if expert, ok := profile.(types.Expert); ok {
		const query = `
			INSERT INTO experts (user_id, duree_experience, specialite, localisation, services_proposes)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		err := q.QueryRowContext(
			ctx,
			query,
			userID,
			expert.DureeExperience,
			expert.Specialite,
			expert.Localisation,
			expert.ServicesProposes,
		).Scan(&id)
		return id, mapError(err)
	}

	table, err := profileTable(profile.Role())
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`INSERT INTO %s (user_id) VALUES ($1) RETURNING id`, table)
	err = q.QueryRowContext(ctx, query, userID).Scan(&id)
	return id, mapError(err)
}

// bindProfile returns profile with its ids and account set.
func bindProfile(profile types.Profile, user types.User, id int) types.Profile {
	switch p := profile.(type) {
	case types.ApporteurAffaires:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	case types.ChercheurAffaires:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	case types.Expert:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	case types.Administrateur:
		p.ID, p.UserID, p.User = id, user.ID, user
		return p
	}
	return profile
}

func profileSelect(role types.Role) (string, error) {
	table, err := profileTable(role)
	if err != nil {
		return "", err
	}
	columns := "p.id, " + userColumns
	if role == types.RoleExpert {
		columns += ", " + expertColumns
	}
	return fmt.Sprintf(`SELECT %s FROM %s p JOIN users u ON u.id = p.user_id`, columns, table), nil
}

func scanProfile(role types.Role, row rowScanner) (types.Profile, error) {
	var id int
	var user types.User
	var expert types.Expert
	dest := append([]any{&id}, userFields(&user)...)
	if role == types.RoleExpert {
		dest = append(dest, &expert.DureeExperience, &expert.Specialite, &expert.Localisation, &expert.ServicesProposes)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if role == types.RoleExpert {
		return bindProfile(expert, user, id), nil
	}
	profile, ok := types.NewProfile(role, user)
	if !ok {
		return nil, fmt.Errorf("role %q has no profile", role)
	}
	return bindProfile(profile, user, id), nil
}

func (r *AccountRepository) GetProfile(ctx context.Context, role types.Role, id int) (types.Profile, error) {
	base, err := profileSelect(role)
	if err != nil {
		return nil, err
	}
	profile, err := scanProfile(role, r.db.QueryRowContext(ctx, base+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (r *AccountRepository) ListProfiles(ctx context.Context, role types.Role, offset, limit int) ([]types.Profile, error) {
	base, err := profileSelect(role)
	if err != nil {
		return nil, err
	}
	query, args := pagination(base+` ORDER BY p.id`, nil, offset, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]types.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(role, rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// ProfileIDForUser returns the id of the role profile attached to userID.
func (r *AccountRepository) ProfileIDForUser(ctx context.Context, role types.Role, userID int) (int, error) {
	table, err := profileTable(role)
	if err != nil {
		return 0, err
	}
	var id int
	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1`, table)
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// UpdateUser writes every mutable account column. The role is only
// changed through profile creation and deletion.
func (r *AccountRepository) UpdateUser(ctx context.Context, user types.User) (types.User, error) {
	return updateUser(ctx, r.db, user)
}

// UpdateExpert writes the expert attributes and, when user is not nil,
// the account columns in the same transaction.
func (r *AccountRepository) UpdateExpert(ctx context.Context, expert types.Expert, user *types.User) (types.Expert, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if user != nil {
			updated, err := updateUser(ctx, tx, *user)
			if err != nil {
				return fmt.Errorf("update expert account: %w", err)
			}
			expert.User = updated
		}
		return updateExpert(ctx, tx, expert)
	})
	if err != nil {
		return types.Expert{}, err
	}
	return expert, nil
}

func updateUser(ctx context.Context, q querier, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET username = $1,
			email = $2,
			first_name = $3,
			last_name = $4,
			adresse = $5,
			telephone = $6,
			is_active = $7,
			is_staff = $8,
			is_superuser = $9,
			password_hash = $10,
			updated_at = $11
		WHERE id = $12`
	result, err := q.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Adresse,
		user.Telephone,
		user.IsActive,
		user.IsStaff,
		user.IsSuperuser,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func updateExpert(ctx context.Context, q querier, expert types.Expert) error {
	const query = `
		UPDATE experts
		SET duree_experience = $1,
			specialite = $2,
			localisation = $3,
			services_proposes = $4
		WHERE id = $5`
	result, err := q.ExecContext(
		ctx,
		query,
		expert.DureeExperience,
		expert.Specialite,
		expert.Localisation,
		expert.ServicesProposes,
		expert.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return checkAffected(result)
}

func (r *AccountRepository) SetActive(ctx context.Context, userID int, active bool) error {
	const query = `UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now(), userID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// DeleteUser removes the account. The profile and, for referrers, the
// listings they own go with it through ON DELETE CASCADE.
func (r *AccountRepository) DeleteUser(ctx context.Context, id int) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// DeleteProfile removes a role profile and reverts its account to
// RoleUtilisateur in one transaction.
func (r *AccountRepository) DeleteProfile(ctx context.Context, role types.Role, id int) error {
	table, err := profileTable(role)
	if err != nil {
		return err
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var userID int
		query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 RETURNING user_id`, table)
		if err := tx.QueryRowContext(ctx, query, id).Scan(&userID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		const revert = `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, revert, types.RoleUtilisateur, time.Now(), userID); err != nil {
			return fmt.Errorf("revert role: %w", err)
		}
		return nil
	})
}
