// Package authz holds the role/permission matrix. Every function here is
// pure: the caller resolves the actor and the target and passes them in.
package authz

import (
	"errors"
	"fmt"

	"github.com/reseau-affaires/apiserver/types"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	// ActionRegister signs the actor up as an event participant.
	ActionRegister Action = "register"
)

type Resource string

const (
	ResourceAnnonce        Resource = "annonce"
	ResourceEvenement      Resource = "evenement"
	ResourceDocumentation  Resource = "documentation"
	ResourceExpert         Resource = "expert"
	ResourceApporteur      Resource = "apporteur"
	ResourceChercheur      Resource = "chercheur"
	ResourceAdministrateur Resource = "administrateur"
	ResourceUser           Resource = "user"
)

var (
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
)

// Actor is the caller of an operation. The zero value is the anonymous actor.
type Actor struct {
	UserID int
	Role   types.Role
	// ProfileID is the id of the actor's role profile, 0 without profile.
	ProfileID int
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

func (a Actor) Authenticated() bool { return a.UserID > 0 }

func (a Actor) is(role types.Role) bool { return a.Authenticated() && a.Role == role }

func (a Actor) IsAdministrateur() bool { return a.is(types.RoleAdministrateur) }

// Target is the resource an action applies to. OwnerID is only meaningful
// for listings, where it holds the author's referrer profile id.
type Target struct {
	Resource Resource
	OwnerID  int
}

// On builds a target without owner.
func On(resource Resource) Target { return Target{Resource: resource} }

// AnnonceOf builds the target for an existing listing.
func AnnonceOf(a types.Annonce) Target {
	return Target{Resource: ResourceAnnonce, OwnerID: a.AuteurID}
}

// ProfileResource maps a profile role to its resource.
func ProfileResource(role types.Role) (Resource, bool) {
	switch role {
	case types.RoleApporteur:
		return ResourceApporteur, true
	case types.RoleChercheur:
		return ResourceChercheur, true
	case types.RoleExpert:
		return ResourceExpert, true
	case types.RoleAdministrateur:
		return ResourceAdministrateur, true
	default:
		return "", false
	}
}

// Allow reports whether actor may perform action on target.
func Allow(actor Actor, action Action, target Target) bool {
	switch target.Resource {
	case ResourceAnnonce:
		switch action {
		case ActionRead:
			return true
		case ActionCreate:
			return actor.is(types.RoleApporteur) && actor.ProfileID > 0
		case ActionUpdate, ActionDelete:
			if actor.IsAdministrateur() {
				return true
			}
			return actor.is(types.RoleApporteur) && actor.ProfileID > 0 && actor.ProfileID == target.OwnerID
		}
	case ResourceEvenement:
		switch action {
		case ActionRead:
			return true
		case ActionRegister:
			return actor.Authenticated()
		case ActionCreate, ActionUpdate, ActionDelete:
			return actor.IsAdministrateur()
		}
	case ResourceDocumentation:
		switch action {
		case ActionRead:
			return true
		case ActionCreate, ActionUpdate, ActionDelete:
			return actor.IsAdministrateur()
		}
	case ResourceExpert:
		switch action {
		case ActionRead:
			return actor.is(types.RoleExpert) || actor.IsAdministrateur()
		case ActionUpdate, ActionDelete:
			return actor.IsAdministrateur()
		}
	case ResourceApporteur, ResourceChercheur, ResourceAdministrateur, ResourceUser:
		switch action {
		case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
			return actor.IsAdministrateur()
		}
	}
	return false
}

// Denied is returned by Check when the matrix refuses an action.
type Denied struct {
	Action    Action
	Resource  Resource
	Anonymous bool
}

func (e *Denied) Error() string {
	return fmt.Sprintf("%s %s not allowed", e.Action, e.Resource)
}

func (e *Denied) Is(target error) bool {
	if target == ErrForbidden {
		return true
	}
	return e.Anonymous && target == ErrUnauthenticated
}

// Check is Allow returning a *Denied error on refusal.
func Check(actor Actor, action Action, target Target) error {
	if Allow(actor, action, target) {
		return nil
	}
	return &Denied{Action: action, Resource: target.Resource, Anonymous: !actor.Authenticated()}
}
