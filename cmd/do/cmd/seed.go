package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/templui/habitflywheel/internal/config"
	"github.com/templui/habitflywheel/internal/repository"
	"github.com/templui/habitflywheel/internal/service"
)

func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed EMAIL",
		Short: "Fill an existing, empty account with demo habits and rewards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(cfg *config.Config, database *sqlx.DB) error {
				ctx := cmd.Context()

				user, err := repository.NewUserRepository(database).ByEmail(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to find user %q: %w", args[0], err)
				}

				seeder := service.NewSeeder(repository.NewHabitRepository(database), repository.NewRewardRepository(database))
				if err := seeder.SeedDemoData(ctx, user.ID); err != nil {
					return err
				}

				fmt.Println("Seeded demo data for", user.Email)
				return nil
			})
		},
	}
}
