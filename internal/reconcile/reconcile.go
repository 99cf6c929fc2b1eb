// Package reconcile implements FIFO matching of buy/sell executions into
// round-trip trades with realized P&L.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// DefaultMaxPasses bounds the reconciliation loop. Each pass applies at most
// one match, so the bound also caps the number of matches per run.
const DefaultMaxPasses = 50

// Result reports the outcome of a reconciliation run.
type Result struct {
	// Matched is the number of round trips materialized.
	Matched int
	// LimitReached is set when the pass ceiling tripped before the
	// unmatched pool was exhausted. It is a warning, not an error.
	LimitReached bool
}

// Engine matches unmatched buy/sell executions against a trade store.
type Engine struct {
	store     store.TradeStore
	logger    zerolog.Logger
	maxPasses int
}

// New creates a matching engine with the default pass ceiling.
func New(st store.TradeStore, logger zerolog.Logger) *Engine {
	return &Engine{store: st, logger: logger, maxPasses: DefaultMaxPasses}
}

// NewWithMaxPasses creates a matching engine with a custom pass ceiling.
func NewWithMaxPasses(st store.TradeStore, logger zerolog.Logger, maxPasses int) *Engine {
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	return &Engine{store: st, logger: logger, maxPasses: maxPasses}
}

// Reconcile repeatedly finds one FIFO buy/sell pair per pass and replaces it
// with a matched round trip plus any partial-fill remainders, until no pair
// remains or the pass ceiling trips. Trades with P&L already set are never
// touched. Matches applied before a failure stay committed.
func (e *Engine) Reconcile(ctx context.Context) (Result, error) {
	var res Result

	for pass := 0; ; pass++ {
		open, err := e.store.ListUnmatched(ctx)
		if err != nil {
			return res, apperrors.Wrap(err, "listing unmatched trades")
		}

		pair := findPair(e.logger, open)
		if pair == nil {
			return res, nil
		}

		// The ceiling trips only with an eligible pair in hand, so the
		// warning never fires on a pool that was fully drained.
		if pass >= e.maxPasses {
			res.LimitReached = true
			e.logger.Warn().
				Int("max_passes", e.maxPasses).
				Int("matched", res.Matched).
				Msg("Reconciliation stopped at pass ceiling with unmatched pairs remaining")
			return res, nil
		}

		match := buildMatch(pair.buy, pair.sell)
		if err := e.store.ApplyMatch(ctx, match.inserts, match.deleteIDs); err != nil {
			return res, apperrors.NewMatchError(pair.buy.Symbol, pair.buy.ID, pair.sell.ID, err)
		}

		logging.LogMatch(e.logger, pair.buy.Symbol, pair.buy.ID, pair.sell.ID, match.quantity, match.pnl)
		res.Matched++
	}
}

// pair holds the earliest eligible buy and sell for one symbol.
type pair struct {
	buy  models.Trade
	sell models.Trade
}

// findPair groups open trades by symbol into FIFO buy and sell queues and
// returns the earliest pair of the first symbol that has both sides, or nil.
// Symbols are visited in sorted order so a run is deterministic regardless of
// store iteration order. Malformed trades are skipped, not fatal.
func findPair(logger zerolog.Logger, open []models.Trade) *pair {
	buys := make(map[string][]models.Trade)
	sells := make(map[string][]models.Trade)

	for _, t := range open {
		if err := t.Validate(); err != nil {
			logging.LogSkippedTrade(logger, t.ID, err)
			continue
		}
		switch t.NormalizedSide() {
		case models.SideBuy:
			buys[t.Symbol] = append(buys[t.Symbol], t)
		case models.SideSell:
			sells[t.Symbol] = append(sells[t.Symbol], t)
		}
	}

	symbols := make([]string, 0, len(buys))
	for sym := range buys {
		if len(sells[sym]) > 0 {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) == 0 {
		return nil
	}
	sort.Strings(symbols)

	sym := symbols[0]
	sortFIFO(buys[sym])
	sortFIFO(sells[sym])
	return &pair{buy: buys[sym][0], sell: sells[sym][0]}
}

// sortFIFO orders trades by entry date ascending, ties broken by id so the
// earliest-inserted execution wins.
func sortFIFO(trades []models.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].EntryDate.Equal(trades[j].EntryDate) {
			return trades[i].EntryDate.Before(trades[j].EntryDate)
		}
		return trades[i].ID < trades[j].ID
	})
}

// matchSet is the atomic unit a single pairing produces: the matched round
// trip, zero to two remainders, and the two consumed originals.
type matchSet struct {
	inserts   []models.Trade
	deleteIDs []int64
	quantity  float64
	pnl       float64
}

// buildMatch computes the matched round trip for min(buy, sell) quantity.
// The P&L formula models a long round trip; for a short round trip the sign
// flips through the price direction, with no separate branch.
func buildMatch(buy, sell models.Trade) matchSet {
	q := buy.Quantity
	if sell.Quantity < q {
		q = sell.Quantity
	}

	pnl := (sell.EntryPrice-buy.EntryPrice)*q - buy.Commission - sell.Commission

	matched := buy
	matched.ID = 0
	matched.Side = models.SideBuy // directional label retained for display
	matched.Quantity = q
	matched.ExitPrice = models.Float64Ptr(sell.EntryPrice)
	matched.ExitDate = models.TimePtr(sell.EntryDate)
	matched.PnL = models.Float64Ptr(pnl)
	matched.Commission = buy.Commission + sell.Commission
	matched.Notes = annotate(buy.Notes, fmt.Sprintf("matched buy #%d with sell #%d", buy.ID, sell.ID))

	set := matchSet{
		inserts:   []models.Trade{matched},
		deleteIDs: []int64{buy.ID, sell.ID},
		quantity:  q,
		pnl:       pnl,
	}

	if buy.Quantity > q {
		set.inserts = append(set.inserts, remainder(buy, buy.Quantity-q))
	}
	if sell.Quantity > q {
		set.inserts = append(set.inserts, remainder(sell, sell.Quantity-q))
	}
	return set
}

// remainder clones the still-open portion of a partially matched leg. The
// commission stays on the matched trade; the remainder carries zero.
func remainder(leg models.Trade, qty float64) models.Trade {
	r := leg
	r.ID = 0
	r.Quantity = qty
	r.Commission = 0
	r.Notes = annotate(leg.Notes, "remainder after partial match")
	return r
}

func annotate(notes, annotation string) string {
	if notes == "" {
		return annotation
	}
	return notes + " | " + annotation
}
