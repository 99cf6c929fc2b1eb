package reconcile

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

func day(d int) time.Time {
	return time.Date(2026, time.January, d, 10, 0, 0, 0, time.Local)
}

func openTrade(symbol string, side models.TradeSide, qty, price float64, entry time.Time, commission float64) models.Trade {
	return models.Trade{
		Symbol:     symbol,
		AssetType:  models.AssetStock,
		Side:       side,
		Quantity:   qty,
		EntryPrice: price,
		EntryDate:  entry,
		Commission: commission,
	}
}

func seedStore(t *testing.T, trades ...models.Trade) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	for i := range trades {
		if _, err := st.InsertTrade(ctx, &trades[i]); err != nil {
			t.Fatalf("seeding trade: %v", err)
		}
	}
	return st
}

func closedTrades(t *testing.T, st *store.MemoryStore) []models.Trade {
	t.Helper()
	all, err := st.ListTrades(context.Background(), store.TradeFilter{})
	if err != nil {
		t.Fatalf("listing trades: %v", err)
	}
	var closed []models.Trade
	for _, tr := range all {
		if !tr.IsOpen() {
			closed = append(closed, tr)
		}
	}
	return closed
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReconcileExactPnL(t *testing.T) {
	st := seedStore(t,
		openTrade("AAPL", models.SideBuy, 100, 10.00, day(1), 1),
		openTrade("AAPL", models.SideSell, 100, 12.00, day(2), 1),
	)

	res, err := New(st, zerolog.Nop()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 1 {
		t.Fatalf("expected 1 match, got %d", res.Matched)
	}
	if res.LimitReached {
		t.Fatal("unexpected limit flag")
	}

	closed := closedTrades(t, st)
	if len(closed) != 1 {
		t.Fatalf("expected 1 matched trade, got %d", len(closed))
	}
	m := closed[0]
	if !almostEqual(*m.PnL, 198.00) {
		t.Errorf("pnl = %v, want 198.00", *m.PnL)
	}
	if m.Side != models.SideBuy {
		t.Errorf("side = %s, want BUY", m.Side)
	}
	if !almostEqual(m.Commission, 2.00) {
		t.Errorf("commission = %v, want 2.00", m.Commission)
	}
	if m.ExitPrice == nil || *m.ExitPrice != 12.00 {
		t.Errorf("exit price = %v, want 12.00", m.ExitPrice)
	}
	if m.ExitDate == nil || !m.ExitDate.Equal(day(2)) {
		t.Errorf("exit date = %v, want %v", m.ExitDate, day(2))
	}
	if st.Len() != 1 {
		t.Errorf("store holds %d trades, want 1 (originals deleted)", st.Len())
	}
}

func TestReconcileFIFOTieBreak(t *testing.T) {
	st := seedStore(t,
		openTrade("AAPL", models.SideBuy, 10, 20.00, day(3), 0),
		openTrade("AAPL", models.SideBuy, 10, 10.00, day(1), 0),
		openTrade("AAPL", models.SideSell, 10, 15.00, day(5), 0),
	)

	if _, err := New(st, zerolog.Nop()).Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	closed := closedTrades(t, st)
	if len(closed) != 1 {
		t.Fatalf("expected 1 matched trade, got %d", len(closed))
	}
	// The Jan 1 buy at 10.00 must be consumed first.
	if closed[0].EntryPrice != 10.00 {
		t.Errorf("matched entry price = %v, want 10.00 (earliest buy)", closed[0].EntryPrice)
	}
	if !almostEqual(*closed[0].PnL, 50.00) {
		t.Errorf("pnl = %v, want 50.00", *closed[0].PnL)
	}

	// The later buy stays open.
	open, err := st.ListUnmatched(context.Background())
	if err != nil {
		t.Fatalf("ListUnmatched: %v", err)
	}
	if len(open) != 1 || open[0].EntryPrice != 20.00 {
		t.Errorf("remaining open trades = %+v, want only the Jan 3 buy", open)
	}
}

func TestReconcilePartialFillRemainder(t *testing.T) {
	st := seedStore(t,
		openTrade("AAPL", models.SideBuy, 150, 10.00, day(1), 0),
		openTrade("AAPL", models.SideSell, 100, 12.00, day(2), 0),
	)

	res, err := New(st, zerolog.Nop()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 1 {
		t.Fatalf("expected 1 match, got %d", res.Matched)
	}

	closed := closedTrades(t, st)
	if len(closed) != 1 {
		t.Fatalf("expected 1 matched trade, got %d", len(closed))
	}
	if closed[0].Quantity != 100 {
		t.Errorf("matched quantity = %v, want 100", closed[0].Quantity)
	}
	if !almostEqual(*closed[0].PnL, 200.00) {
		t.Errorf("pnl = %v, want 200.00", *closed[0].PnL)
	}

	open, err := st.ListUnmatched(context.Background())
	if err != nil {
		t.Fatalf("ListUnmatched: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 remainder, got %d", len(open))
	}
	r := open[0]
	if r.Quantity != 50 {
		t.Errorf("remainder quantity = %v, want 50", r.Quantity)
	}
	if r.NormalizedSide() != models.SideBuy {
		t.Errorf("remainder side = %s, want BUY", r.Side)
	}
	if r.Commission != 0 {
		t.Errorf("remainder commission = %v, want 0", r.Commission)
	}
	if r.PnL != nil {
		t.Errorf("remainder pnl = %v, want unset", *r.PnL)
	}
	if !r.EntryDate.Equal(day(1)) || r.EntryPrice != 10.00 {
		t.Errorf("remainder keeps original price/date, got %v @ %v", r.EntryPrice, r.EntryDate)
	}
}

func TestReconcileBothSidesRemainder(t *testing.T) {
	// Both legs exceed the matched quantity only one at a time; chain the
	// matches: buy 300 against sell 100 then sell 250.
	st := seedStore(t,
		openTrade("AAPL", models.SideBuy, 300, 10.00, day(1), 0),
		openTrade("AAPL", models.SideSell, 100, 11.00, day(2), 0),
		openTrade("AAPL", models.SideSell, 250, 12.00, day(3), 0),
	)

	res, err := New(st, zerolog.Nop()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Matched)
	}

	open, err := st.ListUnmatched(context.Background())
	if err != nil {
		t.Fatalf("ListUnmatched: %v", err)
	}
	// 300 bought vs 350 sold leaves a 50-share sell remainder.
	if len(open) != 1 {
		t.Fatalf("expected 1 open remainder, got %d: %+v", len(open), open)
	}
	if open[0].NormalizedSide() != models.SideSell || open[0].Quantity != 50 {
		t.Errorf("remainder = %s %v, want SELL 50", open[0].Side, open[0].Quantity)
	}
}

func TestReconcileLongShortSynonyms(t *testing.T) {
	st := seedStore(t,
		openTrade("TSLA", models.SideLong, 10, 100.00, day(1), 0),
		openTrade("TSLA", models.SideShort, 10, 110.00, day(2), 0),
	)

	res, err := New(st, zerolog.Nop()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 1 {
		t.Fatalf("expected LONG/SHORT pair to match, got %d matches", res.Matched)
	}
	closed := closedTrades(t, st)
	if !almostEqual(*closed[0].PnL, 100.00) {
		t.Errorf("pnl = %v, want 100.00", *closed[0].PnL)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	st := seedStore(t,
		openTrade("AAPL", models.SideBuy, 100, 10.00, day(1), 0),
		openTrade("AAPL", models.SideSell, 100, 12.00, day(2), 0),
		openTrade("MSFT", models.SideBuy, 5, 400.00, day(3), 0),
	)

	engine := New(st, zerolog.Nop())
	ctx := context.Background()

	if _, err := engine.Reconcile(ctx); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	before := st.Len()

	res, err := engine.Reconcile(ctx)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("second run matched %d, want 0", res.Matched)
	}
	if st.Len() != before {
		t.Errorf("second run mutated the store: %d -> %d trades", before, st.Len())
	}
}

func TestReconcileLeavesClosedTradesAlone(t *testing.T) {
	closed := openTrade("AAPL", models.SideBuy, 100, 10.00, day(1), 2)
	closed.ExitPrice = models.Float64Ptr(12.00)
	closed.ExitDate = models.TimePtr(day(2))
	closed.PnL = models.Float64Ptr(198.00)

	st := seedStore(t,
		closed,
		openTrade("AAPL", models.SideSell, 100, 12.00, day(3), 0),
	)

	res, err := New(st, zerolog.Nop()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 0 {
		t.Errorf("matched %d, want 0 (closed trades are not eligible)", res.Matched)
	}
	if st.Len() != 2 {
		t.Errorf("store holds %d trades, want 2", st.Len())
	}
}

func TestReconcileSkipsMalformedTrades(t *testing.T) {
	bad := openTrade("AAPL", models.SideBuy, 0, 10.00, day(1), 0) // zero quantity
	st := seedStore(t,
		bad,
		openTrade("AAPL", models.SideBuy, 100, 10.00, day(2), 0),
		openTrade("AAPL", models.SideSell, 100, 12.00, day(3), 0),
	)

	res, err := New(st, zerolog.Nop()).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 1 {
		t.Fatalf("expected the valid pair to match, got %d", res.Matched)
	}

	// The malformed trade stays in place untouched.
	open, err := st.ListUnmatched(context.Background())
	if err != nil {
		t.Fatalf("ListUnmatched: %v", err)
	}
	if len(open) != 1 || open[0].Quantity != 0 {
		t.Errorf("open trades = %+v, want only the malformed one", open)
	}
}

func TestReconcilePassCeiling(t *testing.T) {
	var trades []models.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades,
			openTrade("AAPL", models.SideBuy, 10, 10.00, day(1+i), 0),
			openTrade("AAPL", models.SideSell, 10, 11.00, day(10+i), 0),
		)
	}
	st := seedStore(t, trades...)

	res, err := NewWithMaxPasses(st, zerolog.Nop(), 3).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !res.LimitReached {
		t.Error("expected LimitReached with pairs remaining")
	}
	if res.Matched != 3 {
		t.Errorf("matched %d, want 3 (one per pass)", res.Matched)
	}

	// A follow-up run finishes the job.
	res, err = NewWithMaxPasses(st, zerolog.Nop(), 10).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if res.Matched != 2 || res.LimitReached {
		t.Errorf("second run = %+v, want 2 matches without limit", res)
	}
}

func TestReconcileExactCeilingDrainsWithoutWarning(t *testing.T) {
	// Exactly as many pairs as passes: the pool drains, so the ceiling
	// flag must stay clear.
	var trades []models.Trade
	for i := 0; i < 3; i++ {
		trades = append(trades,
			openTrade("AAPL", models.SideBuy, 10, 10.00, day(1+i), 0),
			openTrade("AAPL", models.SideSell, 10, 11.00, day(10+i), 0),
		)
	}
	st := seedStore(t, trades...)

	res, err := NewWithMaxPasses(st, zerolog.Nop(), 3).Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if res.Matched != 3 {
		t.Errorf("matched %d, want 3", res.Matched)
	}
	if res.LimitReached {
		t.Error("LimitReached set although no pair remained")
	}

	open, err := st.ListUnmatched(context.Background())
	if err != nil {
		t.Fatalf("ListUnmatched: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("open trades = %d, want 0", len(open))
	}
}

func TestReconcileStoreFailureKeepsCommittedMatches(t *testing.T) {
	st := seedStore(t,
		openTrade("AAPL", models.SideBuy, 10, 10.00, day(1), 0),
		openTrade("AAPL", models.SideSell, 10, 12.00, day(2), 0),
		openTrade("MSFT", models.SideBuy, 10, 100.00, day(1), 0),
		openTrade("MSFT", models.SideSell, 10, 110.00, day(2), 0),
	)

	// AAPL sorts first and matches; the second apply (MSFT) fails.
	applyErr := errors.New("disk full")
	st.FailErr = applyErr
	st.FailAt = 2

	engine := New(st, zerolog.Nop())
	ctx := context.Background()

	res, err := engine.Reconcile(ctx)
	if err == nil {
		t.Fatal("expected the injected store failure to surface")
	}
	if !errors.Is(err, applyErr) {
		t.Errorf("error chain does not contain the store failure: %v", err)
	}
	var matchErr *apperrors.MatchError
	if !errors.As(err, &matchErr) {
		t.Errorf("error is not a MatchError: %v", err)
	} else if matchErr.Symbol != "MSFT" {
		t.Errorf("MatchError symbol = %q, want MSFT", matchErr.Symbol)
	}
	if res.Matched != 1 {
		t.Errorf("matched %d before failure, want 1", res.Matched)
	}

	// The AAPL match committed; the MSFT legs are untouched.
	trades, err := st.ListTrades(ctx, store.TradeFilter{Symbol: "MSFT"})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("MSFT trades = %d, want 2 untouched legs", len(trades))
	}
	for _, tr := range trades {
		if !tr.IsOpen() {
			t.Errorf("MSFT trade %d closed despite failed apply", tr.ID)
		}
	}

	// A retry without the fault finishes the job.
	st.FailErr = nil
	res, err = engine.Reconcile(ctx)
	if err != nil {
		t.Fatalf("retry Reconcile: %v", err)
	}
	if res.Matched != 1 {
		t.Errorf("retry matched %d, want 1", res.Matched)
	}
}
