/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/farmtrack/apiserver/config"
	"github.com/farmtrack/apiserver/internal/db"
	"github.com/farmtrack/apiserver/internal/services"
	"github.com/farmtrack/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var (
	passwdEmail    string
	passwdPassword string
)

// passwdCmd resets an account password directly in the database.
var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Reset the password of an account",
	Long: `Reset the password of an account without knowing the old one. Usage:

	farmtrack passwd --email someone@example.com --password newpass
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := newLogger(cfg)

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		// Resetting never issues a session, so no token issuer is needed.
		authService := services.NewAuthService(store.NewUserRepository(dbConn), nil, "", logger)
		if err := authService.ResetPassword(cmd.Context(), passwdEmail, passwdPassword); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no account with email %q", passwdEmail)
			}
			return fmt.Errorf("reset password: %w", err)
		}

		logger.Info("password reset", "email", services.NormalizeEmail(passwdEmail))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(passwdCmd)
	passwdCmd.Flags().StringVar(&passwdEmail, "email", "", "account email")
	passwdCmd.Flags().StringVar(&passwdPassword, "password", "", "new password")
	_ = passwdCmd.MarkFlagRequired("email")
	_ = passwdCmd.MarkFlagRequired("password")
}
