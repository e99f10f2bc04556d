package types

// Profile is the role-specific record attached one-to-one to a User.
// The set of implementations is closed: ApporteurAffaires, ChercheurAffaires,
// Expert and Administrateur.
type Profile interface {
	Role() Role
	ProfileID() int
	AccountID() int
	Account() User
	sealedProfile()
}

// ApporteurAffaires is a business referrer. It owns the listings it publishes.
type ApporteurAffaires struct {
	ID     int  `json:"id" db:"id"`
	UserID int  `json:"-" db:"user_id"`
	User   User `json:"user"`
}

func (p ApporteurAffaires) Role() Role     { return RoleApporteur }
func (p ApporteurAffaires) ProfileID() int { return p.ID }
func (p ApporteurAffaires) AccountID() int { return p.UserID }
func (p ApporteurAffaires) Account() User  { return p.User }
func (ApporteurAffaires) sealedProfile()   {}

// ChercheurAffaires is a business seeker with read and search access to listings.
type ChercheurAffaires struct {
	ID     int  `json:"id" db:"id"`
	UserID int  `json:"-" db:"user_id"`
	User   User `json:"user"`
}

func (p ChercheurAffaires) Role() Role     { return RoleChercheur }
func (p ChercheurAffaires) ProfileID() int { return p.ID }
func (p ChercheurAffaires) AccountID() int { return p.UserID }
func (p ChercheurAffaires) Account() User  { return p.User }
func (ChercheurAffaires) sealedProfile()   {}

// Expert is a domain expert offering advisory services. New expert accounts
// stay inactive until an administrator validates them.
type Expert struct {
	ID     int  `json:"id" db:"id"`
	UserID int  `json:"-" db:"user_id"`
	User   User `json:"user"`

	// DureeExperience is the number of years of experience.
	DureeExperience  int           `json:"duree_experience" db:"duree_experience"`
	Specialite       string        `json:"specialite" db:"specialite"`
	Localisation     string        `json:"localisation" db:"localisation"`
	ServicesProposes ServiceExpert `json:"services_proposes" db:"services_proposes"`
}

func (p Expert) Role() Role     { return RoleExpert }
func (p Expert) ProfileID() int { return p.ID }
func (p Expert) AccountID() int { return p.UserID }
func (p Expert) Account() User  { return p.User }
func (Expert) sealedProfile()   {}

// ExpertPatch is a partial update of expert attributes.
type ExpertPatch struct {
	DureeExperience  *int           `json:"duree_experience" validate:"omitempty,min=0"`
	Specialite       *string        `json:"specialite" validate:"omitempty,max=100"`
	Localisation     *string        `json:"localisation" validate:"omitempty,max=100"`
	ServicesProposes *ServiceExpert `json:"services_proposes" validate:"omitnil,choice"`
}

func (p ExpertPatch) Apply(expert *Expert) {
	if p.DureeExperience != nil {
		expert.DureeExperience = *p.DureeExperience
	}
	if p.Specialite != nil {
		expert.Specialite = *p.Specialite
	}
	if p.Localisation != nil {
		expert.Localisation = *p.Localisation
	}
	if p.ServicesProposes != nil {
		expert.ServicesProposes = *p.ServicesProposes
	}
}

// Administrateur has authority over every other entity.
type Administrateur struct {
	ID     int  `json:"id" db:"id"`
	UserID int  `json:"-" db:"user_id"`
	User   User `json:"user"`
}

func (p Administrateur) Role() Role     { return RoleAdministrateur }
func (p Administrateur) ProfileID() int { return p.ID }
func (p Administrateur) AccountID() int { return p.UserID }
func (p Administrateur) Account() User  { return p.User }
func (Administrateur) sealedProfile()   {}

// NewProfile builds the empty profile variant for role, bound to user.
// It returns false for roles without a profile.
func NewProfile(role Role, user User) (Profile, bool) {
	switch role {
	case RoleApporteur:
		return ApporteurAffaires{UserID: user.ID, User: user}, true
	case RoleChercheur:
		return ChercheurAffaires{UserID: user.ID, User: user}, true
	case RoleExpert:
		return Expert{UserID: user.ID, User: user, ServicesProposes: DefaultServiceExpert}, true
	case RoleAdministrateur:
		return Administrateur{UserID: user.ID, User: user}, true
	default:
		return nil, false
	}
}
