package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reseau-affaires/apiserver/types"
)

const annonceSelect = `
	SELECT a.id, a.titre, a.description, a.categorie, a.date_publication, a.auteur_id,
		u.username, a.pieces_jointes, a.contact
	FROM annonces a
	JOIN apporteurs p ON p.id = a.auteur_id
	JOIN users u ON u.id = p.user_id`

// AnnonceRepository handles persistence for listings.
type AnnonceRepository struct {
	db *sql.DB
}

func NewAnnonceRepository(db *sql.DB) *AnnonceRepository {
	return &AnnonceRepository{db: db}
}

func annonceFields(a *types.Annonce) []any {
	return []any{
		&a.ID,
		&a.Titre,
		&a.Description,
		&a.Categorie,
		&a.DatePublication,
		&a.AuteurID,
		&a.AuteurUsername,
		&a.PiecesJointes,
		&a.Contact,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes the LIKE wildcards of s so it matches literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// List returns listings matching filter in insertion order.
func (r *AnnonceRepository) List(ctx context.Context, filter types.AnnonceFilter) ([]types.Annonce, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.MotCle != "" {
		args = append(args, escapeLike(filter.MotCle))
		conditions = append(conditions, fmt.Sprintf(`a.titre ILIKE '%%' || $%d || '%%'`, len(args)))
	}
	if filter.Categorie != "" {
		args = append(args, filter.Categorie)
		conditions = append(conditions, fmt.Sprintf(`lower(a.categorie) = lower($%d)`, len(args)))
	}
	if filter.AuteurID > 0 {
		args = append(args, filter.AuteurID)
		conditions = append(conditions, fmt.Sprintf(`a.auteur_id = $%d`, len(args)))
	}

	query := annonceSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query, args = pagination(query+" ORDER BY a.id", args, filter.Offset, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	annonces := make([]types.Annonce, 0)
	for rows.Next() {
		var annonce types.Annonce
		if err := rows.Scan(annonceFields(&annonce)...); err != nil {
			return nil, err
		}
		annonces = append(annonces, annonce)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return annonces, nil
}

func (r *AnnonceRepository) Get(ctx context.Context, id int) (types.Annonce, error) {
	var annonce types.Annonce
	err := r.db.QueryRowContext(ctx, annonceSelect+` WHERE a.id = $1`, id).Scan(annonceFields(&annonce)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Annonce{}, ErrNotFound
		}
		return types.Annonce{}, err
	}
	return annonce, nil
}

// Create inserts the listing and stamps its publication date.
func (r *AnnonceRepository) Create(ctx context.Context, annonce types.Annonce) (types.Annonce, error) {
	annonce.DatePublication = time.Now()

	const query = `
		INSERT INTO annonces (titre, description, categorie, date_publication, auteur_id, pieces_jointes, contact)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		annonce.Titre,
		annonce.Description,
		annonce.Categorie,
		annonce.DatePublication,
		annonce.AuteurID,
		annonce.PiecesJointes,
		annonce.Contact,
	).Scan(&annonce.ID); err != nil {
		return types.Annonce{}, mapError(err)
	}
	return annonce, nil
}

// Update writes the editable columns. The author and the publication
// date are never rewritten.
func (r *AnnonceRepository) Update(ctx context.Context, annonce types.Annonce) (types.Annonce, error) {
	const query = `
		UPDATE annonces
		SET titre = $1,
			description = $2,
			categorie = $3,
			pieces_jointes = $4,
			contact = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		annonce.Titre,
		annonce.Description,
		annonce.Categorie,
		annonce.PiecesJointes,
		annonce.Contact,
		annonce.ID,
	)
	if err != nil {
		return types.Annonce{}, mapError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.Annonce{}, err
	}
	return annonce, nil
}

func (r *AnnonceRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM annonces WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
