// Package domain defines the shared market-data types used across the
// statarb pipeline.
package domain

import "time"

// Market identifies the asset universe a symbol belongs to.
type Market string

const (
	MarketCrypto Market = "crypto"
	MarketUS     Market = "us"
)

// Bar is a single OHLCV bar for one symbol and period.
type Bar struct {
	Symbol      string
	Timestamp   time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
	QuoteVolume float64
	TradeCount  int64
}

// Mode selects the direction a signal bets relative to the trailing trend.
type Mode string

const (
	// ModeMomentum goes long recent winners and short recent losers.
	ModeMomentum Mode = "momentum"
	// ModeReversal bets against the trailing trend.
	ModeReversal Mode = "reversal"
)

// ParseMode maps a config string to a Mode. Unrecognised values fall back
// to momentum.
func ParseMode(s string) Mode {
	if s == string(ModeReversal) {
		return ModeReversal
	}
	return ModeMomentum
}
