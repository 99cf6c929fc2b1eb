package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-journal/internal/metrics"
	"trade-journal/internal/store"
)

// addStatsCommands adds the stats and calendar commands.
func addStatsCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newStatsCmd(app))
	rootCmd.AddCommand(newCalendarCmd(app))
}

func newStatsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show performance statistics",
		Long: `Aggregate matched trades into performance statistics: win rate,
average win/loss, profit factor, extremes, and the top winners and losers.

Date bounds are inclusive by calendar day. Only trades with realized P&L
count; run 'journal reconcile' first to match open executions.`,
		Example: `  journal stats
  journal stats --from 2026-01-01 --to 2026-03-31
  journal stats --by-symbol
  journal stats --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return errStoreUnavailable
			}

			rng, err := parseDateRange(cmd)
			if err != nil {
				output.Error("%v", err)
				return err
			}

			m, err := metrics.ComputeMetrics(ctx, app.Store, rng)
			if err != nil {
				output.Error("Failed to compute metrics: %v", err)
				return err
			}

			bySymbol, _ := cmd.Flags().GetBool("by-symbol")
			var symbols []metrics.SymbolStats
			if bySymbol {
				symbols, err = metrics.ComputeSymbolBreakdown(ctx, app.Store, rng)
				if err != nil {
					output.Error("Failed to compute symbol breakdown: %v", err)
					return err
				}
			}

			if output.IsJSON() {
				if bySymbol {
					return output.JSON(map[string]interface{}{
						"metrics": m,
						"symbols": symbols,
					})
				}
				return output.JSON(m)
			}

			renderMetrics(output, m, rng)
			if bySymbol && len(symbols) > 0 {
				output.Println()
				renderSymbolBreakdown(output, symbols)
			}
			return nil
		},
	}

	cmd.Flags().String("from", "", "start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, inclusive)")
	cmd.Flags().Bool("by-symbol", false, "include a per-symbol breakdown")

	return cmd
}

func parseDateRange(cmd *cobra.Command) (store.DateRange, error) {
	var rng store.DateRange

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.Local)
		if err != nil {
			return rng, fmt.Errorf("invalid --from date %q: %w", from, err)
		}
		rng.Start = t
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.Local)
		if err != nil {
			return rng, fmt.Errorf("invalid --to date %q: %w", to, err)
		}
		rng.End = t
	}
	return rng, nil
}

func renderMetrics(output *Output, m *metrics.PerformanceMetrics, rng store.DateRange) {
	output.Bold("Performance Statistics")
	if !rng.Start.IsZero() || !rng.End.IsZero() {
		from := "beginning"
		if !rng.Start.IsZero() {
			from = FormatDate(rng.Start)
		}
		to := "today"
		if !rng.End.IsZero() {
			to = FormatDate(rng.End)
		}
		output.Dim("  %s to %s", from, to)
	}
	output.Println()

	if m.TotalTrades == 0 {
		output.Info("No matched trades in this period.")
		return
	}

	output.Bold("Summary")
	output.Printf("  Total Trades:     %d\n", m.TotalTrades)
	output.Printf("  Winning Trades:   %d\n", m.WinningTrades)
	output.Printf("  Losing Trades:    %d\n", m.LosingTrades)
	output.Printf("  Win Rate:         %s\n", FormatPercent(m.WinRate))
	output.Printf("  Total P&L:        %s\n", output.FormatPnL(m.TotalPnL))
	output.Println()

	output.Bold("Averages")
	output.Printf("  Avg Win:          %s\n", FormatCurrency(m.AverageWin))
	output.Printf("  Avg Loss:         %s\n", FormatCurrency(m.AverageLoss))
	output.Printf("  Profit Factor:    %.2f\n", m.ProfitFactor)
	output.Printf("  Largest Win:      %s\n", FormatCurrency(m.LargestWin))
	output.Printf("  Largest Loss:     %s\n", FormatCurrency(m.LargestLoss))
	output.Println()

	if len(m.TopWinners) > 0 {
		output.Bold("Top Winners")
		renderSummaryTable(output, m.TopWinners)
		output.Println()
	}
	if len(m.TopLosers) > 0 {
		output.Bold("Top Losers")
		renderSummaryTable(output, m.TopLosers)
	}
}

func renderSummaryTable(output *Output, trades []metrics.TradeSummary) {
	table := NewTable(output, "Symbol", "Qty", "Entry", "Exit", "P&L", "Entry Date", "Exit Date")
	for _, t := range trades {
		table.AddRow(
			t.Symbol,
			FormatQuantity(t.Quantity),
			FormatPrice(t.EntryPrice),
			FormatPrice(t.ExitPrice),
			output.FormatPnL(t.PnL),
			FormatDate(t.EntryDate),
			FormatDate(t.ExitDate),
		)
	}
	table.Render()
}

func renderSymbolBreakdown(output *Output, symbols []metrics.SymbolStats) {
	output.Bold("By Symbol")
	table := NewTable(output, "Symbol", "Trades", "Wins", "Win Rate", "P&L")
	for _, s := range symbols {
		table.AddRow(
			s.Symbol,
			fmt.Sprintf("%d", s.TradeCount),
			fmt.Sprintf("%d", s.Wins),
			FormatPercent(s.WinRate),
			output.FormatPnL(s.TotalPnL),
		)
	}
	table.Render()
}

func newCalendarCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a per-day P&L calendar for a month",
		Long: `Group a month's trades by local calendar day with per-day P&L,
trade count, and win rate. Open trades count toward the day's volume with
zero P&L.`,
		Example: `  journal calendar --month 3 --year 2026
  journal calendar`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return errStoreUnavailable
			}

			now := time.Now()
			month, _ := cmd.Flags().GetInt("month")
			year, _ := cmd.Flags().GetInt("year")
			if month == 0 {
				month = int(now.Month())
			}
			if year == 0 {
				year = now.Year()
			}
			if month < 1 || month > 12 {
				err := fmt.Errorf("invalid month %d (expected 1-12)", month)
				output.Error("%v", err)
				return err
			}

			days, err := metrics.ComputeCalendar(ctx, app.Store, time.Month(month), year)
			if err != nil {
				output.Error("Failed to compute calendar: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(days)
			}

			output.Bold("Calendar - %s %d", time.Month(month), year)
			output.Println()

			if len(days) == 0 {
				output.Info("No trades in this month.")
				return nil
			}

			var monthPnL float64
			table := NewTable(output, "Date", "Trades", "P&L", "Win Rate")
			for _, d := range days {
				monthPnL += d.PnL
				table.AddRow(
					FormatDate(d.Date),
					fmt.Sprintf("%d", d.TradeCount),
					output.FormatPnL(d.PnL),
					FormatPercent(d.WinRate),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  Month P&L: %s\n", output.FormatPnL(monthPnL))
			return nil
		},
	}

	cmd.Flags().Int("month", 0, "month 1-12 (default: current month)")
	cmd.Flags().Int("year", 0, "year (default: current year)")

	return cmd
}
