// Package metrics aggregates matched trades into performance statistics and
// calendar views. All computations are read-only; they reflect whatever the
// matching engine has already materialized.
package metrics

import (
	"context"
	"sort"
	"time"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/store"
)

// topN is the number of trades in the top winner and loser lists.
const topN = 10

// PerformanceMetrics summarizes closed trades within a date range.
type PerformanceMetrics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AverageWin    float64 `json:"average_win"`
	AverageLoss   float64 `json:"average_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`

	// Reserved; always 0 in this version.
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`

	TopWinners []TradeSummary `json:"top_winners"`
	TopLosers  []TradeSummary `json:"top_losers"`
}

// TradeSummary is the projection of a closed trade used in ranked lists.
type TradeSummary struct {
	Symbol     string    `json:"symbol"`
	Quantity   float64   `json:"quantity"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
}

// ComputeMetrics aggregates all trades with known P&L whose entry date falls
// within rng. Bounds are inclusive by calendar day in local time: both the
// bounds and the trade dates are truncated to day granularity before
// comparison. Zero bounds are unbounded.
func ComputeMetrics(ctx context.Context, st store.TradeStore, rng store.DateRange) (*PerformanceMetrics, error) {
	trades, err := st.ListTrades(ctx, store.TradeFilter{})
	if err != nil {
		return nil, apperrors.Wrap(err, "listing trades")
	}

	closed := filterClosed(trades, rng)

	m := &PerformanceMetrics{}
	var winSum, lossSum float64

	for i, t := range closed {
		pnl := *t.PnL
		m.TotalTrades++
		m.TotalPnL += pnl

		// Extremes range over every closed trade, not just the winners and
		// losers: an all-loss period has a (negative) largest win.
		if i == 0 || pnl > m.LargestWin {
			m.LargestWin = pnl
		}
		if i == 0 || pnl < m.LargestLoss {
			m.LargestLoss = pnl
		}

		switch {
		case pnl > 0:
			m.WinningTrades++
			winSum += pnl
		case pnl < 0:
			m.LosingTrades++
			lossSum += pnl
		}
		// pnl == 0 counts toward the total only.
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	}
	if m.WinningTrades > 0 {
		m.AverageWin = winSum / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = lossSum / float64(m.LosingTrades)
	}
	// Average-based profit factor, not the conventional gross ratio. Kept
	// for output compatibility.
	if m.AverageLoss < 0 {
		pf := m.AverageWin / m.AverageLoss
		if pf < 0 {
			pf = -pf
		}
		m.ProfitFactor = pf
	}

	m.TopWinners = topWinners(closed)
	m.TopLosers = topLosers(closed)

	return m, nil
}

// filterClosed keeps trades with P&L set whose entry date falls inside the
// range at day granularity.
func filterClosed(trades []models.Trade, rng store.DateRange) []models.Trade {
	var start, end time.Time
	if !rng.Start.IsZero() {
		start = truncateToDay(rng.Start)
	}
	if !rng.End.IsZero() {
		end = truncateToDay(rng.End)
	}

	var out []models.Trade
	for _, t := range trades {
		if t.PnL == nil {
			continue
		}
		day := truncateToDay(t.EntryDate)
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func topWinners(closed []models.Trade) []TradeSummary {
	ranked := append([]models.Trade(nil), closed...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].PnL > *ranked[j].PnL
	})
	return summarize(ranked)
}

func topLosers(closed []models.Trade) []TradeSummary {
	ranked := append([]models.Trade(nil), closed...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].PnL < *ranked[j].PnL
	})
	return summarize(ranked)
}

func summarize(ranked []models.Trade) []TradeSummary {
	n := len(ranked)
	if n > topN {
		n = topN
	}
	out := make([]TradeSummary, 0, n)
	for _, t := range ranked[:n] {
		s := TradeSummary{
			Symbol:     t.Symbol,
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			PnL:        *t.PnL,
			EntryDate:  t.EntryDate,
		}
		if t.ExitPrice != nil {
			s.ExitPrice = *t.ExitPrice
		}
		if t.ExitDate != nil {
			s.ExitDate = *t.ExitDate
		}
		out = append(out, s)
	}
	return out
}

// truncateToDay drops the time-of-day component in the local timezone.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
