package types

import "time"

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// Email is the user's email address.
	Email string `json:"email" db:"email"`

	FirstName string `json:"first_name" db:"first_name"`
	LastName  string `json:"last_name" db:"last_name"`

	// Adresse is the postal address of the account holder.
	Adresse string `json:"adresse" db:"adresse"`

	// Telephone is a free-form phone number, at most 20 characters.
	Telephone string `json:"telephone" db:"telephone"`

	// Role is the single role profile attached to the account, or
	// RoleUtilisateur when none is attached.
	Role Role `json:"role" db:"role"`

	// IsActive is false for deactivated accounts and for experts
	// awaiting validation. Inactive accounts cannot authenticate.
	IsActive    bool `json:"is_active" db:"is_active"`
	IsStaff     bool `json:"is_staff" db:"is_staff"`
	IsSuperuser bool `json:"is_superuser" db:"is_superuser"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// DateJoined is the timestamp when the user account was created.
	DateJoined time.Time `json:"date_joined" db:"date_joined"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserPatch is a partial update of account fields. Nil fields are left untouched.
type UserPatch struct {
	Username  *string `json:"username" validate:"omitnil,min=1,max=150,username"`
	Email     *string `json:"email" validate:"omitnil,len=0|email,max=254"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Adresse   *string `json:"adresse"`
	Telephone *string `json:"telephone" validate:"omitempty,max=20"`
	IsActive  *bool   `json:"is_active"`
	IsStaff   *bool   `json:"is_staff"`

	// PasswordHash is set by the service layer, never decoded from a request.
	PasswordHash *string `json:"-"`
}

// Apply copies the non-nil fields of the patch onto user.
func (p UserPatch) Apply(user *User) {
	if p.Username != nil {
		user.Username = *p.Username
	}
	if p.Email != nil {
		user.Email = *p.Email
	}
	if p.FirstName != nil {
		user.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		user.LastName = *p.LastName
	}
	if p.Adresse != nil {
		user.Adresse = *p.Adresse
	}
	if p.Telephone != nil {
		user.Telephone = *p.Telephone
	}
	if p.IsActive != nil {
		user.IsActive = *p.IsActive
	}
	if p.IsStaff != nil {
		user.IsStaff = *p.IsStaff
	}
	if p.PasswordHash != nil {
		user.PasswordHash = *p.PasswordHash
	}
}
