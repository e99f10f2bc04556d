package types

import (
	"time"
	"unicode/utf8"
)

// RecentWindowDays is how many whole days a listing counts as recent.
const RecentWindowDays = 7

// Annonce is a classified listing published by an ApporteurAffaires.
type Annonce struct {
	ID          int              `json:"id" db:"id"`
	Titre       string           `json:"titre" db:"titre"`
	Description string           `json:"description" db:"description"`
	Categorie   AnnonceCategorie `json:"categorie" db:"categorie"`

	// DatePublication is set once by the store on insert and never updated.
	DatePublication time.Time `json:"date_publication" db:"date_publication"`

	// AuteurID is the owning referrer profile. Listings are never re-parented.
	AuteurID int `json:"auteur_id" db:"auteur_id"`

	// AuteurUsername is the username behind AuteurID, loaded for display.
	AuteurUsername string `json:"-" db:"auteur_username"`

	// PiecesJointes is the object storage key of the optional attachment.
	PiecesJointes string `json:"-" db:"pieces_jointes"`

	Contact string `json:"contact" db:"contact"`
}

// EstRecente reports whether the listing was published at most
// RecentWindowDays whole days before now.
func (a Annonce) EstRecente(now time.Time) bool {
	days := int(now.Sub(a.DatePublication) / (24 * time.Hour))
	return days <= RecentWindowDays
}

// AuteurLabel is the display form of the owning referrer.
func (a Annonce) AuteurLabel() string {
	if a.AuteurUsername == "" {
		return ""
	}
	return "Apporteur: " + a.AuteurUsername
}

// AnnoncePatch is a partial update of a listing. The author and the
// publication date are not part of it.
type AnnoncePatch struct {
	Titre         *string           `json:"titre" validate:"omitnil,min=1,max=200"`
	Description   *string           `json:"description" validate:"omitnil,min=1"`
	Categorie     *AnnonceCategorie `json:"categorie" validate:"omitnil,choice"`
	Contact       *string           `json:"contact" validate:"omitnil,min=1,max=100"`
	PiecesJointes *string           `json:"-"`
}

func (p AnnoncePatch) Apply(a *Annonce) {
	if p.Titre != nil {
		a.Titre = *p.Titre
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Categorie != nil {
		a.Categorie = *p.Categorie
	}
	if p.Contact != nil {
		a.Contact = *p.Contact
	}
	if p.PiecesJointes != nil {
		a.PiecesJointes = *p.PiecesJointes
	}
}

// AnnonceFilter narrows a listing search. Zero fields do not filter.
type AnnonceFilter struct {
	// MotCle matches titles containing it, ignoring case.
	MotCle string
	// Categorie matches the category exactly, ignoring case.
	Categorie string
	AuteurID  int
	Offset    int
	// Limit of 0 returns every match.
	Limit int
}

// truncateRunes returns the first n runes of s and whether s was longer.
func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
