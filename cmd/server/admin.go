package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/iliyamo/contenthub/internal/database"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/service"
	"github.com/iliyamo/contenthub/internal/utils"
)

// NewCreateAdminCmd creates the create-admin subcommand.  It is the only
// way to obtain the first Admin account.
func NewCreateAdminCmd() *cobra.Command {
	var in service.RegisterInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a user with the Admin role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(db, cfg.DBDriver); err != nil {
				return err
			}

			tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
			auth := service.NewAuthService(repository.NewStore(db), tokens, cfg.BcryptCost, logger)
			u, err := auth.CreateAdmin(ctx, in)
			if err != nil {
				return err
			}
			cmd.Printf("admin %s created (id %s)\n", u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "admin username")
	cmd.Flags().StringVar(&in.Email, "email", "", "admin email")
	cmd.Flags().StringVar(&in.Password, "password", "", "admin password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
