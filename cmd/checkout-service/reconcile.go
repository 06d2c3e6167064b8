package main

import (
	"fmt"

	"github.com/foltz-ar/checkout-service/pkg/shutdown"
	"github.com/spf13/cobra"
)

func reconcileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over stale checkouts",
		Long: `Run one reconciliation pass.

Payments without an order are checked with dLocal: paid ones get their order
created and confirmed, old unpaid ones are abandoned. Orders left pending
are confirmed when their payment is PAID and abandoned when it was rejected,
cancelled or expired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := shutdown.WithSignals(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sum, err := a.reconciler.Pass(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d recovered=%d confirmed=%d abandoned=%d waiting=%d failed=%d\n",
				sum.Scanned, sum.Recovered, sum.Confirmed, sum.Abandoned, sum.Waiting, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d checkouts could not be reconciled", sum.Failed)
			}
			return nil
		},
	}
}
