package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/reconcile"
)

// addReconcileCommand adds the reconcile command.
func addReconcileCommand(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match open buy/sell executions into round trips",
		Long: `Match unmatched buy and sell executions into round-trip trades.

Executions are paired FIFO per symbol (earliest buy against earliest sell).
Each pairing produces one matched trade with realized P&L and, for partial
fills, remainder trades that stay open. Trades that already carry P&L are
never touched, so running reconcile again is a no-op.`,
		Example: `  journal reconcile
  journal reconcile --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return errStoreUnavailable
			}

			engine := reconcile.NewWithMaxPasses(app.Store, app.Logger, app.Config.Reconcile.MaxPasses)
			res, err := engine.Reconcile(ctx)
			if err != nil {
				output.Error("Reconciliation failed after %d matches: %v", res.Matched, err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"matched":       res.Matched,
					"limit_reached": res.LimitReached,
				})
			}

			if res.Matched == 0 {
				output.Info("No matching buy/sell pairs found.")
			} else {
				output.Success("✓ Matched %d round trip(s)", res.Matched)
			}
			if res.LimitReached {
				output.Warning("Stopped at the pass ceiling (%d); run reconcile again to continue.",
					app.Config.Reconcile.MaxPasses)
			}
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
}
