package main

import (
	"github.com/foltz-ar/checkout-service/internal/order/infrastructure/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(opts)
			if err != nil {
				return err
			}
			pool, err := connectPostgres(cmd.Context(), cfg.PGURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			return postgres.Migrate(cmd.Context(), log, pool)
		},
	}
}
