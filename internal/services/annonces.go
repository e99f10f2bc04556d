package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/internal/storage"
	"github.com/reseau-affaires/apiserver/types"
)

const maxPageSize = 100

// AnnonceRepository defines persistence operations for listings.
type AnnonceRepository interface {
	List(ctx context.Context, filter types.AnnonceFilter) ([]types.Annonce, error)
	Get(ctx context.Context, id int) (types.Annonce, error)
	Create(ctx context.Context, annonce types.Annonce) (types.Annonce, error)
	Update(ctx context.Context, annonce types.Annonce) (types.Annonce, error)
	Delete(ctx context.Context, id int) error
}

// AnnonceInput is the payload of a new listing.
type AnnonceInput struct {
	Titre       string                 `json:"titre" validate:"required,max=200"`
	Description string                 `json:"description" validate:"required"`
	Categorie   types.AnnonceCategorie `json:"categorie" validate:"omitempty,choice"`
	Contact     string                 `json:"contact" validate:"required,max=100"`
}

// AnnonceService encapsulates listing use-cases.
type AnnonceService struct {
	repo    AnnonceRepository
	objects ObjectStore
	events  *Notifier
	logger  *slog.Logger
}

func NewAnnonceService(repo AnnonceRepository, objects ObjectStore, events *Notifier, logger *slog.Logger) *AnnonceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnnonceService{repo: repo, objects: objects, events: events, logger: logger}
}

func clampLimit(limit int) int {
	if limit > maxPageSize {
		return maxPageSize
	}
	if limit < 0 {
		return 0
	}
	return limit
}

// Search filters listings by title keyword and category, both ignoring
// case. Empty criteria match everything. Results keep insertion order.
func (s *AnnonceService) Search(ctx context.Context, filter types.AnnonceFilter) ([]types.Annonce, error) {
	filter.MotCle = strings.TrimSpace(filter.MotCle)
	filter.Categorie = strings.TrimSpace(filter.Categorie)
	filter.Limit = clampLimit(filter.Limit)
	return s.repo.List(ctx, filter)
}

// Mine lists the listings published by the calling referrer.
func (s *AnnonceService) Mine(ctx context.Context, actor authz.Actor, offset, limit int) ([]types.Annonce, error) {
	if actor.Role != types.RoleApporteur || actor.ProfileID == 0 {
		return nil, &authz.Denied{Action: authz.ActionRead, Resource: authz.ResourceAnnonce, Anonymous: !actor.Authenticated()}
	}
	return s.repo.List(ctx, types.AnnonceFilter{AuteurID: actor.ProfileID, Offset: offset, Limit: clampLimit(limit)})
}

func (s *AnnonceService) Get(ctx context.Context, id int) (types.Annonce, error) {
	return s.repo.Get(ctx, id)
}

// Create publishes a listing owned by the calling referrer.
func (s *AnnonceService) Create(ctx context.Context, actor authz.Actor, input AnnonceInput, attachment *Upload) (types.Annonce, error) {
	input.Titre = strings.TrimSpace(input.Titre)
	input.Contact = strings.TrimSpace(input.Contact)
	if err := validateStruct(input); err != nil {
		return types.Annonce{}, err
	}
	if err := authz.Check(actor, authz.ActionCreate, authz.On(authz.ResourceAnnonce)); err != nil {
		return types.Annonce{}, err
	}

	key, err := storeUpload(ctx, s.objects, storage.NamespaceAnnonces, attachment)
	if err != nil {
		return types.Annonce{}, err
	}

	categorie := input.Categorie
	if categorie == "" {
		categorie = types.AnnonceOpportunitesAffaires
	}
	created, err := s.repo.Create(ctx, types.Annonce{
		Titre:         input.Titre,
		Description:   input.Description,
		Categorie:     categorie,
		AuteurID:      actor.ProfileID,
		PiecesJointes: key,
		Contact:       input.Contact,
	})
	if err != nil {
		discardObject(ctx, s.objects, s.logger, key)
		return types.Annonce{}, err
	}

	s.events.AnnoncePubliee(ctx, created)
	return s.repo.Get(ctx, created.ID)
}

// Update edits a listing. Only its owner and administrators may do so;
// the author and the publication date never change.
func (s *AnnonceService) Update(ctx context.Context, actor authz.Actor, id int, patch types.AnnoncePatch, attachment *Upload) (types.Annonce, error) {
	if err := validateStruct(patch); err != nil {
		return types.Annonce{}, err
	}
	annonce, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Annonce{}, err
	}
	if err := authz.Check(actor, authz.ActionUpdate, authz.AnnonceOf(annonce)); err != nil {
		return types.Annonce{}, err
	}

	previous := annonce.PiecesJointes
	patch.PiecesJointes = nil
	if attachment != nil {
		key, err := storeUpload(ctx, s.objects, storage.NamespaceAnnonces, attachment)
		if err != nil {
			return types.Annonce{}, err
		}
		patch.PiecesJointes = &key
	}
	patch.Apply(&annonce)

	updated, err := s.repo.Update(ctx, annonce)
	if err != nil {
		if patch.PiecesJointes != nil {
			discardObject(ctx, s.objects, s.logger, *patch.PiecesJointes)
		}
		return types.Annonce{}, err
	}
	if patch.PiecesJointes != nil {
		discardObject(ctx, s.objects, s.logger, previous)
	}
	return updated, nil
}

func (s *AnnonceService) Delete(ctx context.Context, actor authz.Actor, id int) error {
	annonce, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.Check(actor, authz.ActionDelete, authz.AnnonceOf(annonce)); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	discardObject(ctx, s.objects, s.logger, annonce.PiecesJointes)
	return nil
}
