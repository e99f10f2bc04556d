package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/reseau-affaires/apiserver/types"
)

// Channels of the domain events published after a successful commit.
const (
	ChannelExpertEnAttente = "comptes.expert_en_attente"
	ChannelAnnoncePubliee  = "annonces.publiee"
)

// ExpertEnAttenteEvent announces an expert account awaiting validation.
type ExpertEnAttenteEvent struct {
	ExpertID         int                 `json:"expert_id"`
	UserID           int                 `json:"user_id"`
	Username         string              `json:"username"`
	Specialite       string              `json:"specialite"`
	Localisation     string              `json:"localisation"`
	ServicesProposes types.ServiceExpert `json:"services_proposes"`
	DateJoined       time.Time           `json:"date_joined"`
}

// AnnoncePublieeEvent announces a new listing.
type AnnoncePublieeEvent struct {
	AnnonceID       int                    `json:"annonce_id"`
	Titre           string                 `json:"titre"`
	Categorie       types.AnnonceCategorie `json:"categorie"`
	AuteurID        int                    `json:"auteur_id"`
	DatePublication time.Time              `json:"date_publication"`
}

// Publisher is satisfied by *mq.MQ.
type Publisher interface {
	PublishJSON(ctx context.Context, channel string, v any) (string, error)
}

// Notifier publishes domain events. Publishing is best effort: the
// triggering write is already committed, so failures are only logged.
// A nil *Notifier drops every event.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewNotifier(publisher Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{publisher: publisher, logger: logger}
}

func (n *Notifier) ExpertEnAttente(ctx context.Context, expert types.Expert) {
	n.publish(ctx, ChannelExpertEnAttente, ExpertEnAttenteEvent{
		ExpertID:         expert.ID,
		UserID:           expert.UserID,
		Username:         expert.User.Username,
		Specialite:       expert.Specialite,
		Localisation:     expert.Localisation,
		ServicesProposes: expert.ServicesProposes,
		DateJoined:       expert.User.DateJoined,
	})
}

func (n *Notifier) AnnoncePubliee(ctx context.Context, annonce types.Annonce) {
	n.publish(ctx, ChannelAnnoncePubliee, AnnoncePublieeEvent{
		AnnonceID:       annonce.ID,
		Titre:           annonce.Titre,
		Categorie:       annonce.Categorie,
		AuteurID:        annonce.AuteurID,
		DatePublication: annonce.DatePublication,
	})
}

func (n *Notifier) publish(ctx context.Context, channel string, event any) {
	if n == nil || n.publisher == nil {
		return
	}
	if _, err := n.publisher.PublishJSON(ctx, channel, event); err != nil {
		n.logger.WarnContext(ctx, "publish event failed", slog.String("channel", channel), slog.Any("error", err))
	}
}
