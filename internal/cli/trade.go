package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// addTradeCommands adds trade recording commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAddCmd(app))
	rootCmd.AddCommand(newListCmd(app))
	rootCmd.AddCommand(newDeleteCmd(app))
}

func newAddCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <symbol> <side> <quantity> <price>",
		Short: "Record an execution",
		Long: `Record a buy or sell execution in the journal.

The execution stays open until 'journal reconcile' matches it against an
opposite-side execution for the same symbol.`,
		Example: `  journal add AAPL buy 100 187.45
  journal add AAPL sell 100 192.10 --commission 1.00
  journal add BTC-USD buy 0.5 64000 --asset CRYPTO --strategy swing --tags momentum,breakout`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return errStoreUnavailable
			}

			symbol := strings.ToUpper(args[0])
			side := models.TradeSide(strings.ToUpper(args[1]))

			qty, err := strconv.ParseFloat(args[2], 64)
			if err != nil || qty <= 0 {
				output.Error("Invalid quantity: %s", args[2])
				return apperrors.NewValidationError("quantity", args[2], "must be a positive number")
			}
			price, err := strconv.ParseFloat(args[3], 64)
			if err != nil || price <= 0 {
				output.Error("Invalid price: %s", args[3])
				return apperrors.NewValidationError("price", args[3], "must be a positive number")
			}

			commission, _ := cmd.Flags().GetFloat64("commission")
			asset, _ := cmd.Flags().GetString("asset")
			strategy, _ := cmd.Flags().GetString("strategy")
			notes, _ := cmd.Flags().GetString("notes")
			tagsFlag, _ := cmd.Flags().GetString("tags")
			dateFlag, _ := cmd.Flags().GetString("date")

			entryDate := time.Now()
			if dateFlag != "" {
				entryDate, err = parseEntryDate(dateFlag)
				if err != nil {
					output.Error("Invalid date: %s", dateFlag)
					return err
				}
			}

			var tags []string
			if tagsFlag != "" {
				for _, tag := range strings.Split(tagsFlag, ",") {
					if tag = strings.TrimSpace(tag); tag != "" {
						tags = append(tags, tag)
					}
				}
			}

			trade := &models.Trade{
				Symbol:     symbol,
				AssetType:  models.AssetType(strings.ToUpper(asset)),
				Side:       side,
				Quantity:   qty,
				EntryPrice: price,
				EntryDate:  entryDate,
				Commission: commission,
				Strategy:   strategy,
				Notes:      notes,
				Tags:       tags,
			}
			if err := trade.Validate(); err != nil {
				output.Error("Invalid trade: %v", err)
				return apperrors.Wrap(apperrors.ErrInvalidTrade, err.Error())
			}

			id, err := app.Store.InsertTrade(ctx, trade)
			if err != nil {
				output.Error("Failed to record trade: %v", err)
				return err
			}

			logging.LogTrade(app.Logger, id, symbol, string(side), qty, price)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"id": id})
			}
			output.Success("✓ Recorded %s %s %s @ %s (trade #%d)",
				side, FormatQuantity(qty), symbol, FormatPrice(price), id)
			return nil
		},
	}

	cmd.Flags().Float64("commission", 0, "Commission charged for this execution")
	cmd.Flags().String("asset", "STOCK", "Asset type (STOCK, OPTION, CRYPTO, FOREX)")
	cmd.Flags().String("strategy", "", "Strategy label")
	cmd.Flags().String("notes", "", "Free-text notes")
	cmd.Flags().String("tags", "", "Comma-separated tags")
	cmd.Flags().String("date", "", "Execution time (YYYY-MM-DD or \"YYYY-MM-DD HH:MM:SS\", default: now)")

	return cmd
}

func parseEntryDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func newListCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded trades",
		Example: `  journal list
  journal list --symbol AAPL
  journal list --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return errStoreUnavailable
			}

			symbol, _ := cmd.Flags().GetString("symbol")
			openOnly, _ := cmd.Flags().GetBool("open")
			limit, _ := cmd.Flags().GetInt("limit")

			trades, err := app.Store.ListTrades(ctx, store.TradeFilter{
				Symbol:   strings.ToUpper(symbol),
				OpenOnly: openOnly,
				Limit:    limit,
			})
			if err != nil {
				output.Error("Failed to list trades: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}

			if len(trades) == 0 {
				output.Info("No trades found.")
				return nil
			}

			table := NewTable(output, "ID", "Date", "Symbol", "Side", "Qty", "Entry", "Exit", "P&L", "Strategy")
			for _, t := range trades {
				exit := "-"
				if t.ExitPrice != nil {
					exit = FormatPrice(*t.ExitPrice)
				}
				pnl := "open"
				if t.PnL != nil {
					pnl = output.FormatPnL(*t.PnL)
				}
				table.AddRow(
					fmt.Sprintf("%d", t.ID),
					FormatDate(t.EntryDate),
					t.Symbol,
					string(t.Side),
					FormatQuantity(t.Quantity),
					FormatPrice(t.EntryPrice),
					exit,
					pnl,
					TruncateString(t.Strategy, 15),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "Filter by symbol")
	cmd.Flags().Bool("open", false, "Show only unmatched trades")
	cmd.Flags().Int("limit", 0, "Maximum number of trades to show")

	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if app.Store == nil {
				output.Error("Store not initialized.")
				return errStoreUnavailable
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				output.Error("Invalid trade id: %s", args[0])
				return apperrors.NewValidationError("trade-id", args[0], "must be an integer")
			}

			deleted, err := app.Store.DeleteTrade(ctx, id)
			if err != nil {
				output.Error("Failed to delete trade: %v", err)
				return err
			}
			if !deleted {
				output.Warning("Trade #%d not found.", id)
				return apperrors.ErrTradeNotFound
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"deleted": id})
			}
			output.Success("✓ Deleted trade #%d", id)
			return nil
		},
	}
}
