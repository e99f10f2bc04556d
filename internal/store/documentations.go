package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/reseau-affaires/apiserver/types"
)

// DocumentationRepository handles persistence for documentation articles.
type DocumentationRepository struct {
	db *sql.DB
}

func NewDocumentationRepository(db *sql.DB) *DocumentationRepository {
	return &DocumentationRepository{db: db}
}

func documentationFields(d *types.Documentation) []any {
	return []any{&d.ID, &d.Titre, &d.Categorie, &d.Contenu, &d.Lien, &d.CreatedAt, &d.UpdatedAt}
}

func (r *DocumentationRepository) List(ctx context.Context, offset, limit int) ([]types.Documentation, error) {
	query, args := pagination(`
		SELECT id, titre, categorie, contenu, lien, created_at, updated_at
		FROM documentations
		ORDER BY id`, nil, offset, limit)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]types.Documentation, 0)
	for rows.Next() {
		var doc types.Documentation
		if err := rows.Scan(documentationFields(&doc)...); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *DocumentationRepository) Get(ctx context.Context, id int) (types.Documentation, error) {
	const query = `
		SELECT id, titre, categorie, contenu, lien, created_at, updated_at
		FROM documentations
		WHERE id = $1`
	var doc types.Documentation
	if err := r.db.QueryRowContext(ctx, query, id).Scan(documentationFields(&doc)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Documentation{}, ErrNotFound
		}
		return types.Documentation{}, err
	}
	return doc, nil
}

func (r *DocumentationRepository) Create(ctx context.Context, doc types.Documentation) (types.Documentation, error) {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	const query = `
		INSERT INTO documentations (titre, categorie, contenu, lien, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		doc.Titre,
		doc.Categorie,
		doc.Contenu,
		doc.Lien,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID); err != nil {
		return types.Documentation{}, mapError(err)
	}
	return doc, nil
}

func (r *DocumentationRepository) Update(ctx context.Context, doc types.Documentation) (types.Documentation, error) {
	doc.UpdatedAt = time.Now()

	const query = `
		UPDATE documentations
		SET titre = $1,
			categorie = $2,
			contenu = $3,
			lien = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		doc.Titre,
		doc.Categorie,
		doc.Contenu,
		doc.Lien,
		doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		return types.Documentation{}, mapError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.Documentation{}, err
	}
	return doc, nil
}

func (r *DocumentationRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM documentations WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
