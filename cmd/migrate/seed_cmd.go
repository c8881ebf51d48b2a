package main

import (
	"github.com/spf13/cobra"

	"shopmigrate/internal/legacy"
	"shopmigrate/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var (
		users         int
		products      int
		ordersPerUser int
		randomSeed    int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create and populate the legacy database with synthetic messy data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			reader, err := legacy.NewReader(ctx, cfg.Legacy.DSN(), cfg.PageSize)
			if err != nil {
				return err
			}
			defer reader.Close()

			p := seed.New(reader.Pool(), log, seed.Options{
				Users:         users,
				Products:      products,
				OrdersPerUser: ordersPerUser,
				Seed:          randomSeed,
			})
			return p.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&users, "users", 2000, "number of legacy users to generate")
	cmd.Flags().IntVar(&products, "products", 500, "number of legacy products to generate")
	cmd.Flags().IntVar(&ordersPerUser, "orders-per-user", 5, "average orders per user")
	cmd.Flags().Int64Var(&randomSeed, "seed", 0, "random seed (0 derives one from the clock)")
	return cmd
}
