package models

import (
	"fmt"
	"time"
)

// Trade represents a single recorded execution, or a matched round trip once
// the closure fields are set. A trade with PnL unset is open and eligible for
// matching; a trade with PnL set is immutable round-trip history.
type Trade struct {
	ID int64

	// Instrument
	Symbol      string
	AssetType   AssetType
	OptionType  OptionType
	StrikePrice *float64
	Expiration  *time.Time

	// Execution
	Side       TradeSide
	Quantity   float64
	EntryPrice float64
	EntryDate  time.Time
	Commission float64

	// Closure (set only once matched into a round trip)
	ExitPrice *float64
	ExitDate  *time.Time
	PnL       *float64

	// Descriptive, preserved verbatim
	Strategy    string
	Notes       string
	Tags        []string
	Screenshots []string
}

// IsOpen reports whether the trade is still unmatched.
func (t *Trade) IsOpen() bool {
	return t.PnL == nil
}

// NormalizedSide maps LONG/SHORT synonyms onto BUY/SELL.
func (t *Trade) NormalizedSide() TradeSide {
	switch t.Side {
	case SideLong:
		return SideBuy
	case SideShort:
		return SideSell
	default:
		return t.Side
	}
}

// Validate checks the fields the matching engine depends on. Trades that fail
// validation are skipped during reconciliation rather than aborting it.
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trade %d: empty symbol", t.ID)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("trade %d: quantity must be positive, got %v", t.ID, t.Quantity)
	}
	side := t.NormalizedSide()
	if side != SideBuy && side != SideSell {
		return fmt.Errorf("trade %d: invalid side %q", t.ID, t.Side)
	}
	if t.Commission < 0 {
		return fmt.Errorf("trade %d: negative commission %v", t.ID, t.Commission)
	}
	if t.EntryDate.IsZero() {
		return fmt.Errorf("trade %d: missing entry date", t.ID)
	}
	return nil
}

// Float64Ptr returns a pointer to v. Convenience for the nullable closure fields.
func Float64Ptr(v float64) *float64 { return &v }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
