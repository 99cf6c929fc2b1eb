package metrics

import (
	"context"
	"sort"
	"time"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/store"
)

// CalendarDay aggregates the trades entered on one local calendar day.
type CalendarDay struct {
	Date       time.Time `json:"date"`
	PnL        float64   `json:"pnl"`
	TradeCount int       `json:"trade_count"`
	WinRate    float64   `json:"win_rate"`
}

// ComputeCalendar groups the given month's trades by local calendar day.
// month is 1-indexed (time.Month). Open trades count toward the day's trade
// volume with their P&L treated as 0. Only days with at least one trade are
// returned, sorted ascending.
func ComputeCalendar(ctx context.Context, st store.TradeStore, month time.Month, year int) ([]CalendarDay, error) {
	trades, err := st.ListTrades(ctx, store.TradeFilter{})
	if err != nil {
		return nil, apperrors.Wrap(err, "listing trades")
	}

	days := make(map[time.Time]*CalendarDay)
	wins := make(map[time.Time]int)

	for _, t := range trades {
		if t.EntryDate.Month() != month || t.EntryDate.Year() != year {
			continue
		}
		day := truncateToDay(t.EntryDate)

		d, ok := days[day]
		if !ok {
			d = &CalendarDay{Date: day}
			days[day] = d
		}
		d.TradeCount++
		if t.PnL != nil {
			d.PnL += *t.PnL
			if *t.PnL > 0 {
				wins[day]++
			}
		}
	}

	out := make([]CalendarDay, 0, len(days))
	for day, d := range days {
		d.WinRate = float64(wins[day]) / float64(d.TradeCount)
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
