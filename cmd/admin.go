/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/reseau-affaires/apiserver/config"
	"github.com/reseau-affaires/apiserver/internal/db"
	"github.com/reseau-affaires/apiserver/internal/services"
	"github.com/reseau-affaires/apiserver/internal/store"
	"github.com/reseau-affaires/apiserver/types"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrator account management",
}

var adminInput services.AccountInput

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an administrator account",
	Long: `Create an administrator account with its profile. The password is read
from --password or the ADMIN_PASSWORD environment variable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminInput.Password == "" {
			adminInput.Password = os.Getenv("ADMIN_PASSWORD")
		}
		if adminInput.Password == "" {
			return errors.New("password is required (--password or ADMIN_PASSWORD)")
		}

		cfg := config.LoadConfig()
		dbConn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		accounts := services.NewAccountService(store.NewAccountRepository(dbConn), nil)
		profile, err := accounts.CreateAccount(cmd.Context(), types.RoleAdministrateur, adminInput, services.ExpertInput{})
		if err != nil {
			var validationErr *services.ValidationError
			if errors.As(err, &validationErr) {
				return fmt.Errorf("invalid administrator: %w", validationErr)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "administrator %q created (user %d, profile %d)\n",
			profile.Account().Username, profile.AccountID(), profile.ProfileID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminCreateCmd)

	adminCreateCmd.Flags().StringVar(&adminInput.Username, "username", "", "login name")
	adminCreateCmd.Flags().StringVar(&adminInput.Email, "email", "", "email address")
	adminCreateCmd.Flags().StringVar(&adminInput.Password, "password", "", "password")
	adminCreateCmd.Flags().StringVar(&adminInput.FirstName, "first-name", "", "first name")
	adminCreateCmd.Flags().StringVar(&adminInput.LastName, "last-name", "", "last name")
	_ = adminCreateCmd.MarkFlagRequired("username")
}
