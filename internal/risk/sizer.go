package risk

import (
	"fmt"
	"math"

	"neurallempire-signal-engine/internal/market"
)

const (
	// DefaultMaxOpenPositions caps concurrent positions.
	DefaultMaxOpenPositions = 5
	// DefaultMaxPortfolioRiskPct caps total portfolio risk, percent.
	DefaultMaxPortfolioRiskPct = 10.0

	// fallbackKelly is the sizing fraction used until the trade history is
	// deep enough to estimate edge (20 trades).
	fallbackKelly    = 0.02
	minHistoryTrades = 20

	// kellyCap bounds the raw Kelly fraction; a quarter of it is applied.
	kellyCap        = 0.25
	kellyDivisor    = 4.0
	minWinRate      = 0.40
	minProfitFactor = 1.2
)

// SizerResult is the layer-7 verdict: whether a position may be opened and
// at what size.
type SizerResult struct {
	KellyFraction   float64 `json:"kelly_fraction"`   // raw clamped Kelly (or the 2% fallback)
	AppliedFraction float64 `json:"applied_fraction"` // fraction of capital actually risked

	CurrentRiskPct   float64 `json:"current_risk_pct"`
	RiskPerTradePct  float64 `json:"risk_per_trade_pct"`
	ProjectedRiskPct float64 `json:"projected_risk_pct"`
	WithinRiskLimit  bool    `json:"within_risk_limit"`

	OpenPositions         int  `json:"open_positions"`
	MaxOpenPositions      int  `json:"max_open_positions"`
	WithinDiversification bool `json:"within_diversification"`

	PositionAllowed   bool    `json:"position_allowed"`
	Quantity          int     `json:"quantity"`
	CapitalToAllocate float64 `json:"capital_to_allocate"`
	RiskAmount        float64 `json:"risk_amount"`
	Score             float64 `json:"score"` // 0-100
	Reason            string  `json:"reason"`
}

// PortfolioSizer sizes positions with a quarter-Kelly fraction under
// portfolio-wide risk and diversification caps.
type PortfolioSizer struct {
	maxOpenPositions    int
	maxPortfolioRiskPct float64
}

func NewPortfolioSizer(maxOpenPositions int, maxPortfolioRiskPct float64) *PortfolioSizer {
	if maxOpenPositions <= 0 {
		maxOpenPositions = DefaultMaxOpenPositions
	}
	if maxPortfolioRiskPct <= 0 {
		maxPortfolioRiskPct = DefaultMaxPortfolioRiskPct
	}
	return &PortfolioSizer{
		maxOpenPositions:    maxOpenPositions,
		maxPortfolioRiskPct: maxPortfolioRiskPct,
	}
}

// Size evaluates the portfolio gates and computes the lot-rounded quantity
// for the given entry and stop. Quantity is zero whenever the position is
// not allowed.
func (p *PortfolioSizer) Size(portfolio *market.PortfolioState, entry, stop float64, lotSize int) SizerResult {
	result := SizerResult{MaxOpenPositions: p.maxOpenPositions}
	if portfolio == nil || portfolio.TotalCapital <= 0 {
		result.Reason = "no portfolio state"
		return result
	}
	if lotSize <= 0 {
		lotSize = 1
	}

	result.KellyFraction, result.AppliedFraction = kellyFraction(portfolio.History)

	result.CurrentRiskPct = portfolio.OpenExposure() / portfolio.TotalCapital * 100
	result.RiskPerTradePct = result.AppliedFraction * 100
	result.ProjectedRiskPct = result.CurrentRiskPct + result.RiskPerTradePct
	result.WithinRiskLimit = result.ProjectedRiskPct <= p.maxPortfolioRiskPct

	result.OpenPositions = len(portfolio.OpenPositions)
	result.WithinDiversification = result.OpenPositions < p.maxOpenPositions

	historyOK := portfolio.History.TotalTrades < minHistoryTrades ||
		(portfolio.History.WinRate >= minWinRate && portfolio.History.ProfitFactor >= minProfitFactor)

	result.PositionAllowed = result.WithinRiskLimit &&
		result.WithinDiversification &&
		result.AppliedFraction > 0 &&
		historyOK

	if !result.PositionAllowed {
		result.Reason = rejectionReason(result, historyOK)
		return result
	}

	result.Quantity = p.quantity(portfolio, entry, stop, lotSize, result.AppliedFraction)
	result.CapitalToAllocate = float64(result.Quantity) * entry
	if entry > stop {
		result.RiskAmount = float64(result.Quantity) * (entry - stop)
	}
	result.Score = p.score(result, portfolio)
	result.Reason = fmt.Sprintf("quarter-Kelly %.2f%%, projected risk %.1f%%, positions %d/%d",
		result.RiskPerTradePct, result.ProjectedRiskPct, result.OpenPositions, p.maxOpenPositions)
	return result
}

// kellyFraction returns the raw Kelly fraction and the quarter-Kelly applied
// fraction. Below 20 trades the edge estimate is unreliable and a flat 2%
// is used for both.
func kellyFraction(h market.TradeStats) (raw, applied float64) {
	if h.TotalTrades < minHistoryTrades {
		return fallbackKelly, fallbackKelly
	}

	r := 0.0
	if loss := math.Abs(h.AvgLoss); loss > 0 {
		r = h.AvgWin / loss
	}
	if r <= 0 {
		return 0, 0
	}

	w := h.WinRate
	kelly := (w*r - (1 - w)) / r
	if kelly < 0 {
		kelly = 0
	}
	if kelly > kellyCap {
		kelly = kellyCap
	}
	return kelly, kelly / kellyDivisor
}

// quantity is the most conservative of the risk-based, Kelly-based and
// capital-based sizes, floored to whole lots. The capital bound guarantees
// quantity*entry never exceeds available capital.
func (p *PortfolioSizer) quantity(portfolio *market.PortfolioState, entry, stop float64, lotSize int, fraction float64) int {
	if entry <= 0 {
		return 0
	}

	riskBudget := portfolio.TotalCapital * fraction

	qty := riskBudget / entry // Kelly-based
	if entry > stop {
		if riskQty := riskBudget / (entry - stop); riskQty < qty {
			qty = riskQty
		}
	}
	if capitalQty := portfolio.AvailableCapital / entry; capitalQty < qty {
		qty = capitalQty
	}
	if qty < 0 {
		qty = 0
	}

	lots := int(qty) / lotSize
	return lots * lotSize
}

func (p *PortfolioSizer) score(r SizerResult, portfolio *market.PortfolioState) float64 {
	score := 100.0

	switch {
	case r.ProjectedRiskPct >= 9:
		score -= 20
	case r.ProjectedRiskPct >= 7:
		score -= 10
	}

	divRatio := float64(r.OpenPositions) / float64(p.maxOpenPositions)
	switch {
	case divRatio >= 0.8:
		score -= 15
	case divRatio >= 0.6:
		score -= 5
	}

	if portfolio.AvailableCapital > 0 {
		allocRatio := r.CapitalToAllocate / portfolio.AvailableCapital
		switch {
		case allocRatio > 0.40:
			score -= 10
		case allocRatio > 0.25:
			score -= 5
		}
	}

	h := portfolio.History
	switch {
	case r.KellyFraction >= 0.15:
		score += 10
	case r.KellyFraction >= 0.10:
		score += 5
	case r.KellyFraction < 0.05 && h.TotalTrades >= minHistoryTrades:
		score -= 5
	}

	switch {
	case h.ProfitFactor >= 2.0:
		score += 10
	case h.ProfitFactor >= 1.5:
		score += 5
	case h.ProfitFactor < minProfitFactor && h.TotalTrades >= minHistoryTrades:
		score -= 10
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func rejectionReason(r SizerResult, historyOK bool) string {
	switch {
	case !r.WithinRiskLimit:
		return fmt.Sprintf("projected portfolio risk %.1f%% exceeds cap", r.ProjectedRiskPct)
	case !r.WithinDiversification:
		return fmt.Sprintf("max open positions reached (%d/%d)", r.OpenPositions, r.MaxOpenPositions)
	case !historyOK:
		return "trade history below win-rate or profit-factor floor"
	default:
		return "no positive Kelly edge"
	}
}
