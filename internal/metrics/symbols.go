package metrics

import (
	"context"
	"sort"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/store"
)

// SymbolStats aggregates the closed trades of one symbol.
type SymbolStats struct {
	Symbol     string  `json:"symbol"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	WinRate    float64 `json:"win_rate"`
	TotalPnL   float64 `json:"total_pnl"`
}

// ComputeSymbolBreakdown aggregates closed trades per symbol over the same
// day-granularity range as ComputeMetrics. Symbols are ordered by total P&L
// descending, ties broken alphabetically.
func ComputeSymbolBreakdown(ctx context.Context, st store.TradeStore, rng store.DateRange) ([]SymbolStats, error) {
	trades, err := st.ListTrades(ctx, store.TradeFilter{})
	if err != nil {
		return nil, apperrors.Wrap(err, "listing trades")
	}

	bySymbol := make(map[string]*SymbolStats)
	for _, t := range filterClosed(trades, rng) {
		s, ok := bySymbol[t.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: t.Symbol}
			bySymbol[t.Symbol] = s
		}
		s.TradeCount++
		s.TotalPnL += *t.PnL
		if *t.PnL > 0 {
			s.Wins++
		}
	}

	out := make([]SymbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		s.WinRate = float64(s.Wins) / float64(s.TradeCount)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPnL != out[j].TotalPnL {
			return out[i].TotalPnL > out[j].TotalPnL
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out, nil
}
