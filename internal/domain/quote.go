package domain

// MarketQuote is the resolved market state for one normalized identifier.
// Ephemeral: lives only in the market data cache, never persisted as-is.
type MarketQuote struct {
	Valuation float64 // fully diluted valuation
	Symbol    string  // upper-cased token symbol (may be empty)
	Volume24h float64 // trailing 24h volume
	Liquidity float64 // pool liquidity, used only for best-pair selection
}
