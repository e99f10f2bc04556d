package services

import (
	"context"
	"strings"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/types"
)

// DocumentationRepository defines persistence operations for documentation articles.
type DocumentationRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Documentation, error)
	Get(ctx context.Context, id int) (types.Documentation, error)
	Create(ctx context.Context, doc types.Documentation) (types.Documentation, error)
	Update(ctx context.Context, doc types.Documentation) (types.Documentation, error)
	Delete(ctx context.Context, id int) error
}

type DocumentationInput struct {
	Titre     string                       `json:"titre" validate:"required,max=255"`
	Categorie types.DocumentationCategorie `json:"categorie" validate:"required,choice"`
	Contenu   string                       `json:"contenu" validate:"required"`
	Lien      string                       `json:"lien" validate:"omitempty,url"`
}

// DocumentationService encapsulates documentation use-cases.
type DocumentationService struct {
	repo DocumentationRepository
}

func NewDocumentationService(repo DocumentationRepository) *DocumentationService {
	return &DocumentationService{repo: repo}
}

func (s *DocumentationService) List(ctx context.Context, offset, limit int) ([]types.Documentation, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *DocumentationService) Get(ctx context.Context, id int) (types.Documentation, error) {
	return s.repo.Get(ctx, id)
}

func (s *DocumentationService) Create(ctx context.Context, actor authz.Actor, input DocumentationInput) (types.Documentation, error) {
	input.Titre = strings.TrimSpace(input.Titre)
	input.Lien = strings.TrimSpace(input.Lien)
	if err := validateStruct(input); err != nil {
		return types.Documentation{}, err
	}
	if err := authz.Check(actor, authz.ActionCreate, authz.On(authz.ResourceDocumentation)); err != nil {
		return types.Documentation{}, err
	}

	doc := types.Documentation{
		Titre:     input.Titre,
		Categorie: input.Categorie,
		Contenu:   input.Contenu,
	}
	if input.Lien != "" {
		doc.Lien = &input.Lien
	}
	return s.repo.Create(ctx, doc)
}

func (s *DocumentationService) Update(ctx context.Context, actor authz.Actor, id int, patch types.DocumentationPatch) (types.Documentation, error) {
	if err := validateStruct(patch); err != nil {
		return types.Documentation{}, err
	}
	if err := authz.Check(actor, authz.ActionUpdate, authz.On(authz.ResourceDocumentation)); err != nil {
		return types.Documentation{}, err
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Documentation{}, err
	}
	patch.Apply(&doc)
	return s.repo.Update(ctx, doc)
}

func (s *DocumentationService) Delete(ctx context.Context, actor authz.Actor, id int) error {
	if err := authz.Check(actor, authz.ActionDelete, authz.On(authz.ResourceDocumentation)); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
