// Package integration provides end-to-end tests for the trade journal:
// persistence, matching, and reporting exercised together against SQLite.
package integration

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
	"trade-journal/internal/reconcile"
	"trade-journal/internal/store"
)

func TestEndToEndJournalWorkflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	entry := func(day, hour int) time.Time {
		return time.Date(2026, time.March, day, hour, 0, 0, 0, time.Local)
	}

	// A month of activity: two full round trips, one partial fill, and one
	// position left open.
	executions := []models.Trade{
		{Symbol: "AAPL", AssetType: models.AssetStock, Side: models.SideBuy, Quantity: 100, EntryPrice: 150.00, EntryDate: entry(2, 9), Commission: 1.00},
		{Symbol: "AAPL", AssetType: models.AssetStock, Side: models.SideSell, Quantity: 100, EntryPrice: 152.00, EntryDate: entry(2, 15), Commission: 1.00},
		{Symbol: "MSFT", AssetType: models.AssetStock, Side: models.SideLong, Quantity: 50, EntryPrice: 400.00, EntryDate: entry(5, 10), Commission: 0.50},
		{Symbol: "MSFT", AssetType: models.AssetStock, Side: models.SideShort, Quantity: 50, EntryPrice: 396.00, EntryDate: entry(6, 10), Commission: 0.50},
		{Symbol: "TSLA", AssetType: models.AssetStock, Side: models.SideBuy, Quantity: 30, EntryPrice: 200.00, EntryDate: entry(10, 9), Commission: 0},
		{Symbol: "TSLA", AssetType: models.AssetStock, Side: models.SideSell, Quantity: 10, EntryPrice: 210.00, EntryDate: entry(11, 9), Commission: 0},
		{Symbol: "SPY", AssetType: models.AssetStock, Side: models.SideBuy, Quantity: 5, EntryPrice: 500.00, EntryDate: entry(20, 9), Commission: 0},
	}
	for i := range executions {
		if _, err := st.InsertTrade(ctx, &executions[i]); err != nil {
			t.Fatalf("Failed to insert trade: %v", err)
		}
	}

	// Match everything that pairs up.
	res, err := reconcile.New(st, zerolog.Nop()).Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if res.Matched != 3 {
		t.Errorf("matched %d round trips, want 3", res.Matched)
	}
	if res.LimitReached {
		t.Error("pass ceiling reached on a small data set")
	}

	// The TSLA remainder and the SPY position stay open.
	open, err := st.ListUnmatched(ctx)
	if err != nil {
		t.Fatalf("ListUnmatched failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open trades = %d, want 2", len(open))
	}
	var tslaRemainder *models.Trade
	for i := range open {
		if open[i].Symbol == "TSLA" {
			tslaRemainder = &open[i]
		}
	}
	if tslaRemainder == nil {
		t.Fatal("TSLA remainder missing")
	}
	if tslaRemainder.Quantity != 20 {
		t.Errorf("TSLA remainder quantity = %v, want 20", tslaRemainder.Quantity)
	}
	if tslaRemainder.Commission != 0 {
		t.Errorf("remainder commission = %v, want 0", tslaRemainder.Commission)
	}

	// Monthly performance over the matched history.
	m, err := metrics.ComputeMetrics(ctx, st, store.DateRange{
		Start: entry(1, 0),
		End:   entry(31, 0),
	})
	if err != nil {
		t.Fatalf("ComputeMetrics failed: %v", err)
	}
	if m.TotalTrades != 3 {
		t.Errorf("closed trades = %d, want 3", m.TotalTrades)
	}
	// AAPL: (152-150)*100 - 2 = 198. MSFT short: (396-400)*50 - 1 = -201.
	// TSLA partial: (210-200)*10 = 100.
	if !within(m.TotalPnL, 97.00) {
		t.Errorf("TotalPnL = %f, want 97.00", m.TotalPnL)
	}
	if m.WinningTrades != 2 || m.LosingTrades != 1 {
		t.Errorf("wins/losses = %d/%d, want 2/1", m.WinningTrades, m.LosingTrades)
	}
	if !within(m.LargestLoss, -201.00) {
		t.Errorf("LargestLoss = %f, want -201.00", m.LargestLoss)
	}

	// Calendar view counts the open SPY entry with zero P&L.
	days, err := metrics.ComputeCalendar(ctx, st, time.March, 2026)
	if err != nil {
		t.Fatalf("ComputeCalendar failed: %v", err)
	}
	byDay := make(map[int]metrics.CalendarDay)
	for _, d := range days {
		byDay[d.Date.Day()] = d
	}
	if d, ok := byDay[20]; !ok || d.TradeCount != 1 || d.PnL != 0 {
		t.Errorf("March 20 = %+v, want one open trade with zero pnl", d)
	}
	if d, ok := byDay[2]; !ok || !within(d.PnL, 198.00) {
		t.Errorf("March 2 = %+v, want 198.00 pnl", d)
	}

	// A second run is a no-op.
	res, err = reconcile.New(st, zerolog.Nop()).Reconcile(ctx)
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("second run matched %d, want 0", res.Matched)
	}
}

func within(got, want float64) bool {
	return math.Abs(got-want) < 1e-6
}
