// Package market holds the shared data model consumed by the analysis
// layers: candles, option chains, portfolio state and calendar events.
// Everything here is externally supplied and treated as immutable input.
package market

import (
	"time"
)

// OptionType identifies the option leg (NSE convention).
type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// SignalType identifies the candidate trade direction. The engine only
// evaluates long-premium trades.
type SignalType string

const (
	SignalBuyCall SignalType = "BUY_CALL"
	SignalBuyPut  SignalType = "BUY_PUT"
)

// EventSeverity ranks calendar events.
type EventSeverity string

const (
	SeverityLow    EventSeverity = "LOW"
	SeverityMedium EventSeverity = "MEDIUM"
	SeverityHigh   EventSeverity = "HIGH"
)

// Candle is a single OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Body returns the absolute open-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-low distance.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// StrikeData holds per-strike open interest, volume and pricing for one
// expiry of the option chain.
type StrikeData struct {
	Strike       float64 `json:"strike"`
	CallOI       float64 `json:"call_oi"`
	PutOI        float64 `json:"put_oi"`
	CallOIChange float64 `json:"call_oi_change"`
	PutOIChange  float64 `json:"put_oi_change"`
	CallVolume   float64 `json:"call_volume"`
	PutVolume    float64 `json:"put_volume"`
	CallLTP      float64 `json:"call_ltp"`
	PutLTP       float64 `json:"put_ltp"`
	ImpliedVol   float64 `json:"implied_vol"`
}

// OptionChain is a snapshot of one expiry's option chain.
type OptionChain struct {
	Symbol       string       `json:"symbol"`
	Expiry       time.Time    `json:"expiry"`
	ATMStrike    float64      `json:"atm_strike"`
	TargetStrike float64      `json:"target_strike"`
	Strikes      []StrikeData `json:"strikes"`
}

// StrikeAt returns the chain row for the given strike, or nil when the
// chain does not quote it.
func (oc *OptionChain) StrikeAt(strike float64) *StrikeData {
	for i := range oc.Strikes {
		if oc.Strikes[i].Strike == strike {
			return &oc.Strikes[i]
		}
	}
	return nil
}

// ZoneKind classifies a price-action zone.
type ZoneKind string

const (
	ZoneDemand     ZoneKind = "DEMAND"
	ZoneSupply     ZoneKind = "SUPPLY"
	ZoneOrderBlock ZoneKind = "ORDER_BLOCK"
	ZoneFVG        ZoneKind = "FVG"
)

// ZoneSide is the direction a zone supports: bullish zones are expected to
// hold price up, bearish zones to cap it.
type ZoneSide string

const (
	ZoneBullish ZoneSide = "BULLISH"
	ZoneBearish ZoneSide = "BEARISH"
)

// Zone is a transient supply/demand area produced by price-action and
// timeframe analysis. Zones are never persisted.
type Zone struct {
	Kind        ZoneKind `json:"kind"`
	Side        ZoneSide `json:"side"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Strength    float64  `json:"strength"` // 0-100
	TimesTested int      `json:"times_tested"`
	Fresh       bool     `json:"fresh"`
}

// Contains reports whether price falls inside the zone widened by the
// relative tolerance (0.002 = 0.2%).
func (z Zone) Contains(price, tolerance float64) bool {
	return price >= z.Low*(1-tolerance) && price <= z.High*(1+tolerance)
}

// CalendarEvent is an upcoming scheduled event with market impact.
type CalendarEvent struct {
	Name     string        `json:"name"`
	Time     time.Time     `json:"time"`
	Severity EventSeverity `json:"severity"`
}

// MarketStatus carries the exchange-wide state the risk filter inspects.
type MarketStatus struct {
	CircuitBreakerActive bool    `json:"circuit_breaker_active"`
	CurrentVolume        float64 `json:"current_volume"`
	AverageVolume        float64 `json:"average_volume"`
}

// OpenPosition is one live position as reported by the external position
// store. Capital allocated is the premium committed to the position.
type OpenPosition struct {
	Symbol           string  `json:"symbol"`
	CapitalAllocated float64 `json:"capital_allocated"`
}

// TradeStats summarizes the account's historical performance.
type TradeStats struct {
	TotalTrades  int     `json:"total_trades"`
	WinRate      float64 `json:"win_rate"` // 0-1
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // positive magnitude
	ProfitFactor float64 `json:"profit_factor"`
}

// PortfolioState is the read-only snapshot of account capital and open
// exposure supplied by the external position-management subsystem.
type PortfolioState struct {
	TotalCapital     float64        `json:"total_capital"`
	AvailableCapital float64        `json:"available_capital"`
	OpenPositions    []OpenPosition `json:"open_positions"`
	History          TradeStats     `json:"history"`
}

// OpenExposure sums capital allocated across open positions.
func (p *PortfolioState) OpenExposure() float64 {
	total := 0.0
	for _, pos := range p.OpenPositions {
		total += pos.CapitalAllocated
	}
	return total
}
