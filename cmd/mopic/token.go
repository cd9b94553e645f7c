package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/9ooDa/mopic/internal/server"
)

func newTokenCommand() *cobra.Command {
	var userID int64
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return fmt.Errorf("invalid user ID %d", userID)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			auth, err := server.NewAuthenticator(cfg.Server.JWTSecret)
			if err != nil {
				return fmt.Errorf("server.NewAuthenticator() > %w", err)
			}
			token, err := auth.IssueToken(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user ID")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
