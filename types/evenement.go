package types

import "time"

// Evenement is an administrator-managed event.
type Evenement struct {
	ID          int                `json:"id" db:"id"`
	Titre       string             `json:"titre" db:"titre"`
	Description string             `json:"description" db:"description"`
	HeureDebut  TimeOfDay          `json:"heure_debut" db:"heure_debut"`
	HeureFin    TimeOfDay          `json:"heure_fin" db:"heure_fin"`
	Date        Date               `json:"date" db:"date"`
	Lieu        string             `json:"lieu" db:"lieu"`
	Categorie   EvenementCategorie `json:"categorie" db:"categorie"`
	Tags        EvenementTag       `json:"tags" db:"tags"`

	// Image is the object storage key of the optional picture.
	Image string `json:"-" db:"image"`

	// Participants is the number of registered users, loaded on read.
	Participants int `json:"nombre_participants" db:"nombre_participants"`
}

// EstEnCours reports whether now falls on the event date between its
// start and end times, both inclusive.
func (e Evenement) EstEnCours(now time.Time) bool {
	if NewDate(now) != e.Date {
		return false
	}
	clock := NewTimeOfDay(now)
	return !clock.Before(e.HeureDebut) && !clock.After(e.HeureFin)
}

type EvenementPatch struct {
	Titre       *string             `json:"titre" validate:"omitnil,min=1,max=200"`
	Description *string             `json:"description" validate:"omitnil,min=1"`
	HeureDebut  *TimeOfDay          `json:"heure_debut"`
	HeureFin    *TimeOfDay          `json:"heure_fin"`
	Date        *Date               `json:"date"`
	Lieu        *string             `json:"lieu" validate:"omitnil,min=1,max=255"`
	Categorie   *EvenementCategorie `json:"categorie" validate:"omitnil,choice"`
	Tags        *EvenementTag       `json:"tags" validate:"omitnil,choice"`
	Image       *string             `json:"-"`
}

func (p EvenementPatch) Apply(e *Evenement) {
	if p.Titre != nil {
		e.Titre = *p.Titre
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.HeureDebut != nil {
		e.HeureDebut = *p.HeureDebut
	}
	if p.HeureFin != nil {
		e.HeureFin = *p.HeureFin
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Lieu != nil {
		e.Lieu = *p.Lieu
	}
	if p.Categorie != nil {
		e.Categorie = *p.Categorie
	}
	if p.Tags != nil {
		e.Tags = *p.Tags
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
}
