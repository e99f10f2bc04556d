package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/reseau-affaires/apiserver/internal/authz"
	"github.com/reseau-affaires/apiserver/internal/storage"
	"github.com/reseau-affaires/apiserver/types"
)

const msgHeureFin = "L'heure de fin doit être postérieure à l'heure de début."

// EvenementRepository defines persistence operations for events.
type EvenementRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Evenement, error)
	Get(ctx context.Context, id int) (types.Evenement, error)
	Create(ctx context.Context, evenement types.Evenement) (types.Evenement, error)
	Update(ctx context.Context, evenement types.Evenement) (types.Evenement, error)
	Delete(ctx context.Context, id int) error
	AddParticipant(ctx context.Context, evenementID, userID int) error
	ListParticipants(ctx context.Context, evenementID int) ([]types.User, error)
}

// EvenementInput is the payload of a new event. Tags has no default.
type EvenementInput struct {
	Titre       string                   `json:"titre" validate:"required,max=200"`
	Description string                   `json:"description" validate:"required"`
	HeureDebut  *types.TimeOfDay         `json:"heure_debut" validate:"required"`
	HeureFin    *types.TimeOfDay         `json:"heure_fin" validate:"required"`
	Date        *types.Date              `json:"date" validate:"required"`
	Lieu        string                   `json:"lieu" validate:"required,max=255"`
	Categorie   types.EvenementCategorie `json:"categorie" validate:"required,choice"`
	Tags        types.EvenementTag       `json:"tags" validate:"required,choice"`
}

// EvenementService encapsulates event use-cases.
type EvenementService struct {
	repo    EvenementRepository
	objects ObjectStore
	logger  *slog.Logger
}

func NewEvenementService(repo EvenementRepository, objects ObjectStore, logger *slog.Logger) *EvenementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvenementService{repo: repo, objects: objects, logger: logger}
}

func checkSchedule(e types.Evenement) error {
	if e.HeureFin.Before(e.HeureDebut) {
		return newValidationError("heure_fin", msgHeureFin)
	}
	return nil
}

func (s *EvenementService) List(ctx context.Context, offset, limit int) ([]types.Evenement, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *EvenementService) Get(ctx context.Context, id int) (types.Evenement, error) {
	return s.repo.Get(ctx, id)
}

func (s *EvenementService) Create(ctx context.Context, actor authz.Actor, input EvenementInput, image *Upload) (types.Evenement, error) {
	input.Titre = strings.TrimSpace(input.Titre)
	input.Lieu = strings.TrimSpace(input.Lieu)
	if err := validateStruct(input); err != nil {
		return types.Evenement{}, err
	}
	evenement := types.Evenement{
		Titre:       input.Titre,
		Description: input.Description,
		HeureDebut:  *input.HeureDebut,
		HeureFin:    *input.HeureFin,
		Date:        *input.Date,
		Lieu:        input.Lieu,
		Categorie:   input.Categorie,
		Tags:        input.Tags,
	}
	if err := checkSchedule(evenement); err != nil {
		return types.Evenement{}, err
	}
	if err := authz.Check(actor, authz.ActionCreate, authz.On(authz.ResourceEvenement)); err != nil {
		return types.Evenement{}, err
	}

	key, err := storeUpload(ctx, s.objects, storage.NamespaceEvenements, image)
	if err != nil {
		return types.Evenement{}, err
	}
	evenement.Image = key

	created, err := s.repo.Create(ctx, evenement)
	if err != nil {
		discardObject(ctx, s.objects, s.logger, key)
		return types.Evenement{}, err
	}
	return created, nil
}

func (s *EvenementService) Update(ctx context.Context, actor authz.Actor, id int, patch types.EvenementPatch, image *Upload) (types.Evenement, error) {
	if err := validateStruct(patch); err != nil {
		return types.Evenement{}, err
	}
	if err := authz.Check(actor, authz.ActionUpdate, authz.On(authz.ResourceEvenement)); err != nil {
		return types.Evenement{}, err
	}
	evenement, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Evenement{}, err
	}

	previous := evenement.Image
	patch.Image = nil
	patch.Apply(&evenement)
	if err := checkSchedule(evenement); err != nil {
		return types.Evenement{}, err
	}

	if image != nil {
		key, err := storeUpload(ctx, s.objects, storage.NamespaceEvenements, image)
		if err != nil {
			return types.Evenement{}, err
		}
		evenement.Image = key
	}

	updated, err := s.repo.Update(ctx, evenement)
	if err != nil {
		if image != nil {
			discardObject(ctx, s.objects, s.logger, evenement.Image)
		}
		return types.Evenement{}, err
	}
	if image != nil {
		discardObject(ctx, s.objects, s.logger, previous)
	}
	return updated, nil
}

func (s *EvenementService) Delete(ctx context.Context, actor authz.Actor, id int) error {
	if err := authz.Check(actor, authz.ActionDelete, authz.On(authz.ResourceEvenement)); err != nil {
		return err
	}
	evenement, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	discardObject(ctx, s.objects, s.logger, evenement.Image)
	return nil
}

// Register signs the caller up for the event and returns it with the
// refreshed participant count.
func (s *EvenementService) Register(ctx context.Context, actor authz.Actor, id int) (types.Evenement, error) {
	if err := authz.Check(actor, authz.ActionRegister, authz.On(authz.ResourceEvenement)); err != nil {
		return types.Evenement{}, err
	}
	if err := s.repo.AddParticipant(ctx, id, actor.UserID); err != nil {
		return types.Evenement{}, err
	}
	return s.repo.Get(ctx, id)
}

// Participants lists the users registered for the event.
func (s *EvenementService) Participants(ctx context.Context, actor authz.Actor, id int) ([]types.User, error) {
	if err := authz.Check(actor, authz.ActionRead, authz.On(authz.ResourceUser)); err != nil {
		return nil, err
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, id)
}
