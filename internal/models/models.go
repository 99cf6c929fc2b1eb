// Package models provides domain models for the trade journal.
package models

// AssetType represents the instrument class of a trade.
type AssetType string

const (
	AssetStock  AssetType = "STOCK"
	AssetOption AssetType = "OPTION"
	AssetCrypto AssetType = "CRYPTO"
	AssetForex  AssetType = "FOREX"
)

// TradeSide represents the side of an execution.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"

	// Accepted as input synonyms; normalized to BUY/SELL before matching.
	SideLong  TradeSide = "LONG"
	SideShort TradeSide = "SHORT"
)

// OptionType represents the type of an option contract.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)
