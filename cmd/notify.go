/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/reseau-affaires/apiserver/config"
	"github.com/reseau-affaires/apiserver/internal/mq"
	"github.com/reseau-affaires/apiserver/internal/server"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// notifyCmd listens to the domain events and logs them for administrators.
var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Log pending expert accounts and new listings as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := server.NewLogger(cfg)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		defer broker.Close()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return broker.Subscribe(ctx, services.ChannelExpertEnAttente, func(ctx context.Context, msg mq.Message) error {
				var event services.ExpertEnAttenteEvent
				if err := msg.Decode(&event); err != nil {
					logger.Warn("drop malformed event", slog.String("channel", services.ChannelExpertEnAttente), slog.Any("error", err))
					return nil
				}
				logger.InfoContext(ctx, "expert awaiting validation",
					slog.String("message_id", msg.ID),
					slog.Int("expert_id", event.ExpertID),
					slog.String("username", event.Username),
					slog.String("specialite", event.Specialite),
					slog.String("services_proposes", string(event.ServicesProposes)),
				)
				return nil
			})
		})
		g.Go(func() error {
			return broker.Subscribe(ctx, services.ChannelAnnoncePubliee, func(ctx context.Context, msg mq.Message) error {
				var event services.AnnoncePublieeEvent
				if err := msg.Decode(&event); err != nil {
					logger.Warn("drop malformed event", slog.String("channel", services.ChannelAnnoncePubliee), slog.Any("error", err))
					return nil
				}
				logger.InfoContext(ctx, "listing published",
					slog.String("message_id", msg.ID),
					slog.Int("annonce_id", event.AnnonceID),
					slog.String("titre", event.Titre),
					slog.String("categorie", string(event.Categorie)),
					slog.Int("auteur_id", event.AuteurID),
				)
				return nil
			})
		})

		logger.Info("listening for events", slog.String("backend", cfg.MQ.Backend))
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
