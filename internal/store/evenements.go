package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/reseau-affaires/apiserver/types"
)

const evenementSelect = `
	SELECT e.id, e.titre, e.description, e.heure_debut, e.heure_fin, e.date, e.lieu,
		e.categorie, e.tags, e.image,
		(SELECT COUNT(1) FROM evenement_participants ep WHERE ep.evenement_id = e.id)
	FROM evenements e`

// EvenementRepository handles persistence for events and their participants.
type EvenementRepository struct {
	db *sql.DB
}

func NewEvenementRepository(db *sql.DB) *EvenementRepository {
	return &EvenementRepository{db: db}
}

func evenementFields(e *types.Evenement) []any {
	return []any{
		&e.ID,
		&e.Titre,
		&e.Description,
		&e.HeureDebut,
		&e.HeureFin,
		&e.Date,
		&e.Lieu,
		&e.Categorie,
		&e.Tags,
		&e.Image,
		&e.Participants,
	}
}

func (r *EvenementRepository) List(ctx context.Context, offset, limit int) ([]types.Evenement, error) {
	query, args := pagination(evenementSelect+` ORDER BY e.date, e.heure_debut, e.id`, nil, offset, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evenements := make([]types.Evenement, 0)
	for rows.Next() {
		var evenement types.Evenement
		if err := rows.Scan(evenementFields(&evenement)...); err != nil {
			return nil, err
		}
		evenements = append(evenements, evenement)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return evenements, nil
}

func (r *EvenementRepository) Get(ctx context.Context, id int) (types.Evenement, error) {
	var evenement types.Evenement
	err := r.db.QueryRowContext(ctx, evenementSelect+` WHERE e.id = $1`, id).Scan(evenementFields(&evenement)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Evenement{}, ErrNotFound
		}
		return types.Evenement{}, err
	}
	return evenement, nil
}

func (r *EvenementRepository) Create(ctx context.Context, evenement types.Evenement) (types.Evenement, error) {
	const query = `
		INSERT INTO evenements (titre, description, heure_debut, heure_fin, date, lieu, categorie, tags, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		evenement.Titre,
		evenement.Description,
		evenement.HeureDebut,
		evenement.HeureFin,
		evenement.Date,
		evenement.Lieu,
		evenement.Categorie,
		evenement.Tags,
		evenement.Image,
	).Scan(&evenement.ID); err != nil {
		return types.Evenement{}, mapError(err)
	}
	evenement.Participants = 0
	return evenement, nil
}

func (r *EvenementRepository) Update(ctx context.Context, evenement types.Evenement) (types.Evenement, error) {
	const query = `
		UPDATE evenements
		SET titre = $1,
			description = $2,
			heure_debut = $3,
			heure_fin = $4,
			date = $5,
			lieu = $6,
			categorie = $7,
			tags = $8,
			image = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		evenement.Titre,
		evenement.Description,
		evenement.HeureDebut,
		evenement.HeureFin,
		evenement.Date,
		evenement.Lieu,
		evenement.Categorie,
		evenement.Tags,
		evenement.Image,
		evenement.ID,
	)
	if err != nil {
		return types.Evenement{}, mapError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.Evenement{}, err
	}
	return evenement, nil
}

func (r *EvenementRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM evenements WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// AddParticipant registers userID for the event. Registering twice is a no-op.
func (r *EvenementRepository) AddParticipant(ctx context.Context, evenementID, userID int) error {
	const query = `
		INSERT INTO evenement_participants (evenement_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (evenement_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, evenementID, userID); err != nil {
		if errors.Is(mapError(err), ErrConflict) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *EvenementRepository) ListParticipants(ctx context.Context, evenementID int) ([]types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM evenement_participants ep
		JOIN users u ON u.id = ep.user_id
		WHERE ep.evenement_id = $1
		ORDER BY ep.inscrit_le, u.id`
	rows, err := r.db.QueryContext(ctx, query, evenementID)
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
