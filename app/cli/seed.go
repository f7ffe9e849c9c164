package main

import (
	"fmt"

	"beverageHub/business/seed"
	psqlRepo "beverageHub/internal/repository/postgres"
	"beverageHub/pkg/database"

	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var forceReset bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the sample catalog and the demo user",
		Long: `Upsert the sample catalog by product name and the demo user by email.

Running it again updates existing rows instead of duplicating them. The demo
user's password is only rewritten with --force-reset (or FORCE_SEED=true).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := connect()
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := psqlRepo.Migrate(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			svc := seed.NewSeedService(psqlRepo.NewProductRepository(db), psqlRepo.NewUserRepository(db), cfg.Demo)

			result, err := svc.SeedProducts(cmd.Context())
			if err != nil {
				return fmt.Errorf("seed products: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Products: %d created, %d updated\n", result.Created, result.Updated)

			user, created, err := svc.SeedDemoUser(cmd.Context(), forceReset || cfg.Demo.ForceReset)
			if err != nil {
				return fmt.Errorf("seed demo user: %w", err)
			}
			action := "updated"
			if created {
				action = "created"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Demo user %s %s\n", user.Email, action)

			return nil
		},
	}

	cmd.Flags().BoolVar(&forceReset, "force-reset", false, "reset the demo user's password")

	return cmd
}
