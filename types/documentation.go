package types

import "time"

// ResumeLength is the number of characters kept in a documentation summary.
const ResumeLength = 150

// Documentation is an article managed by administrators and readable by anyone.
type Documentation struct {
	ID        int                    `json:"id" db:"id"`
	Titre     string                 `json:"titre" db:"titre"`
	Categorie DocumentationCategorie `json:"categorie" db:"categorie"`
	Contenu   string                 `json:"contenu" db:"contenu"`
	Lien      *string                `json:"lien" db:"lien"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" db:"updated_at"`
}

// Resume returns the first ResumeLength characters of the content
// followed by an ellipsis.
func (d Documentation) Resume() string {
	resume, _ := truncateRunes(d.Contenu, ResumeLength)
	return resume + "..."
}

type DocumentationPatch struct {
	Titre     *string                 `json:"titre" validate:"omitnil,min=1,max=255"`
	Categorie *DocumentationCategorie `json:"categorie" validate:"omitnil,choice"`
	Contenu   *string                 `json:"contenu" validate:"omitnil,min=1"`
	Lien      *string                 `json:"lien" validate:"omitnil,len=0|url"`
}

func (p DocumentationPatch) Apply(d *Documentation) {
	if p.Titre != nil {
		d.Titre = *p.Titre
	}
	if p.Categorie != nil {
		d.Categorie = *p.Categorie
	}
	if p.Contenu != nil {
		d.Contenu = *p.Contenu
	}
	if p.Lien != nil {
		if *p.Lien == "" {
			d.Lien = nil
		} else {
			lien := *p.Lien
			d.Lien = &lien
		}
	}
}
