package types

import "strings"

// Role is the closed set of account roles. A user carries exactly one of them.
type Role string

const (
	RoleApporteur      Role = "apporteur"
	RoleChercheur      Role = "chercheur"
	RoleExpert         Role = "expert"
	RoleAdministrateur Role = "administrateur"
	RoleUtilisateur    Role = "utilisateur"
)

// ProfileRoles lists the roles backed by a profile record.
var ProfileRoles = []Role{RoleApporteur, RoleChercheur, RoleExpert, RoleAdministrateur}

func (r Role) Valid() bool {
	return r == RoleUtilisateur || isChoice(r, ProfileRoles)
}

// HasProfile reports whether the role is backed by a profile record.
func (r Role) HasProfile() bool {
	return isChoice(r, ProfileRoles)
}

// Label is the display name of the role.
func (r Role) Label() string {
	switch r {
	case RoleApporteur:
		return "Apporteur"
	case RoleChercheur:
		return "Chercheur"
	case RoleExpert:
		return "Expert"
	case RoleAdministrateur:
		return "Administrateur"
	default:
		return "Utilisateur"
	}
}

// RoleFromSignupToken maps the role token accepted by the signup endpoint.
func RoleFromSignupToken(token string) (Role, bool) {
	switch strings.TrimSpace(token) {
	case "apporteur":
		return RoleApporteur, true
	case "chercheur":
		return RoleChercheur, true
	case "expert":
		return RoleExpert, true
	case "admin":
		return RoleAdministrateur, true
	default:
		return "", false
	}
}
