package risk

import (
	"strings"
	"testing"

	"neurallempire-signal-engine/internal/market"
)

func seasonedPortfolio() *market.PortfolioState {
	return &market.PortfolioState{
		TotalCapital:     1_000_000,
		AvailableCapital: 800_000,
		History: market.TradeStats{
			TotalTrades:  50,
			WinRate:      0.55,
			AvgWin:       1500,
			AvgLoss:      1000,
			ProfitFactor: 1.8,
		},
	}
}

func freshPortfolio() *market.PortfolioState {
	return &market.PortfolioState{
		TotalCapital:     1_000_000,
		AvailableCapital: 800_000,
		History:          market.TradeStats{TotalTrades: 5, WinRate: 0.9, AvgWin: 5000, AvgLoss: 100},
	}
}

// TestQuarterKellySizing tests the full sizing path on a healthy account.
// WinRate 0.55 with a 1.5 payoff ratio gives raw Kelly 0.25 (capped), so a
// quarter of that, 6.25%, is risked: 62500 on 1M capital. At entry 150 that
// is 416 units, floored to 5 lots of 75.
func TestQuarterKellySizing(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	result := sizer.Size(seasonedPortfolio(), 150, 147, 75)

	if !result.PositionAllowed {
		t.Fatalf("position not allowed: %s", result.Reason)
	}
	if result.KellyFraction != 0.25 {
		t.Errorf("KellyFraction = %v, want 0.25", result.KellyFraction)
	}
	if result.AppliedFraction != 0.0625 {
		t.Errorf("AppliedFraction = %v, want 0.0625", result.AppliedFraction)
	}
	if result.Quantity != 375 {
		t.Errorf("Quantity = %d, want 375", result.Quantity)
	}
	if result.CapitalToAllocate != 56250 {
		t.Errorf("CapitalToAllocate = %v, want 56250", result.CapitalToAllocate)
	}
	if result.RiskAmount != 1125 {
		t.Errorf("RiskAmount = %v, want 1125", result.RiskAmount)
	}
	if result.Score != 100 {
		t.Errorf("Score = %v, want 100", result.Score)
	}
}

// TestKellyFallbackShortHistory tests that under 20 trades a flat 2% is
// used no matter how good the recorded wins look
func TestKellyFallbackShortHistory(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	result := sizer.Size(freshPortfolio(), 100, 98, 50)

	if result.KellyFraction != 0.02 {
		t.Errorf("KellyFraction = %v, want the 0.02 fallback", result.KellyFraction)
	}
	if result.AppliedFraction != 0.02 {
		t.Errorf("AppliedFraction = %v, want 0.02", result.AppliedFraction)
	}
	if !result.PositionAllowed {
		t.Errorf("position not allowed: %s", result.Reason)
	}
}

// TestProjectedRiskCap tests the portfolio-wide risk gate: 9% already
// deployed plus a 2% new trade breaches a 10% cap
func TestProjectedRiskCap(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	portfolio := freshPortfolio()
	portfolio.OpenPositions = []market.OpenPosition{
		{Symbol: "NIFTY25JUN24800CE", CapitalAllocated: 90_000},
	}

	result := sizer.Size(portfolio, 100, 98, 50)

	if result.CurrentRiskPct != 9 {
		t.Fatalf("CurrentRiskPct = %v, want 9", result.CurrentRiskPct)
	}
	if result.ProjectedRiskPct != 11 {
		t.Fatalf("ProjectedRiskPct = %v, want 11", result.ProjectedRiskPct)
	}
	if result.PositionAllowed {
		t.Fatal("position must not be allowed above the risk cap")
	}
	if result.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0", result.Quantity)
	}
	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
	if !strings.Contains(result.Reason, "exceeds cap") {
		t.Errorf("Reason = %q, want the risk-cap rejection", result.Reason)
	}
}

// TestDiversificationCap tests the open-position count gate
func TestDiversificationCap(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	portfolio := freshPortfolio()
	for i := 0; i < 5; i++ {
		portfolio.OpenPositions = append(portfolio.OpenPositions,
			market.OpenPosition{Symbol: "POS", CapitalAllocated: 1000})
	}

	result := sizer.Size(portfolio, 100, 98, 50)

	if result.PositionAllowed {
		t.Fatal("position must not be allowed at the position cap")
	}
	if !strings.Contains(result.Reason, "max open positions") {
		t.Errorf("Reason = %q, want the diversification rejection", result.Reason)
	}
}

// TestHistoryFloor tests that a seasoned account below the win-rate or
// profit-factor floor is rejected
func TestHistoryFloor(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	lowWinRate := seasonedPortfolio()
	lowWinRate.History.WinRate = 0.35
	result := sizer.Size(lowWinRate, 100, 98, 50)
	if result.PositionAllowed {
		t.Fatal("win rate 0.35 must be rejected")
	}

	lowPF := seasonedPortfolio()
	lowPF.History.ProfitFactor = 1.0
	result = sizer.Size(lowPF, 100, 98, 50)
	if result.PositionAllowed {
		t.Fatal("profit factor 1.0 must be rejected")
	}
	if !strings.Contains(result.Reason, "history") {
		t.Errorf("Reason = %q, want the history rejection", result.Reason)
	}
}

// TestNoEdgeRejected tests that a non-positive Kelly estimate blocks the
// trade even when the history floors pass
func TestNoEdgeRejected(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	portfolio := seasonedPortfolio()
	portfolio.History = market.TradeStats{
		TotalTrades:  30,
		WinRate:      0.45,
		AvgWin:       100,
		AvgLoss:      1000,
		ProfitFactor: 1.3,
	}

	result := sizer.Size(portfolio, 100, 98, 50)

	if result.PositionAllowed {
		t.Fatal("negative Kelly must be rejected")
	}
	if result.KellyFraction != 0 {
		t.Errorf("KellyFraction = %v, want 0", result.KellyFraction)
	}
	if !strings.Contains(result.Reason, "Kelly") {
		t.Errorf("Reason = %q, want the no-edge rejection", result.Reason)
	}
}

// TestLotRounding tests flooring to whole lots. A 20000 risk budget at
// entry 100 sizes 200 units: exactly 4 lots of 50, but only 2 lots of 75.
func TestLotRounding(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	result := sizer.Size(freshPortfolio(), 100, 98, 50)
	if result.Quantity != 200 {
		t.Errorf("lot 50: Quantity = %d, want 200", result.Quantity)
	}

	result = sizer.Size(freshPortfolio(), 100, 98, 75)
	if result.Quantity != 150 {
		t.Errorf("lot 75: Quantity = %d, want 150", result.Quantity)
	}
}

// TestCapitalBound tests that the allocation never exceeds available capital
func TestCapitalBound(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	portfolio := freshPortfolio()
	portfolio.AvailableCapital = 10_000

	result := sizer.Size(portfolio, 100, 98, 1)

	if result.Quantity != 100 {
		t.Errorf("Quantity = %d, want 100 capped by capital", result.Quantity)
	}
	if result.CapitalToAllocate > portfolio.AvailableCapital {
		t.Errorf("CapitalToAllocate = %v exceeds available %v",
			result.CapitalToAllocate, portfolio.AvailableCapital)
	}
}

// TestScorePenalties tests the quality deductions: near-cap projected risk,
// four of five slots used and a thin Kelly edge
func TestScorePenalties(t *testing.T) {
	sizer := NewPortfolioSizer(5, 10)

	portfolio := &market.PortfolioState{
		TotalCapital:     1_000_000,
		AvailableCapital: 200_000,
		OpenPositions: []market.OpenPosition{
			{Symbol: "A", CapitalAllocated: 17_000},
			{Symbol: "B", CapitalAllocated: 17_000},
			{Symbol: "C", CapitalAllocated: 17_000},
			{Symbol: "D", CapitalAllocated: 17_000},
		},
		History: market.TradeStats{
			TotalTrades:  50,
			WinRate:      0.5,
			AvgWin:       1050,
			AvgLoss:      1000,
			ProfitFactor: 1.25,
		},
	}

	result := sizer.Size(portfolio, 100, 98, 25)

	if !result.PositionAllowed {
		t.Fatalf("position not allowed: %s", result.Reason)
	}
	// 100 minus 10 (projected risk over 7%), 15 (4/5 slots), 5 (Kelly
	// under 5%) with no profit-factor adjustment at 1.25.
	if result.Score != 70 {
		t.Errorf("Score = %v, want 70", result.Score)
	}
}

// TestNilPortfolio tests the missing-state guard
func TestNilPortfolio(t *testing.T) {
	sizer := NewPortfolioSizer(0, 0)

	result := sizer.Size(nil, 100, 98, 50)

	if result.PositionAllowed {
		t.Fatal("nil portfolio must not size a position")
	}
	if result.Reason != "no portfolio state" {
		t.Errorf("Reason = %q", result.Reason)
	}
	if result.MaxOpenPositions != DefaultMaxOpenPositions {
		t.Errorf("MaxOpenPositions = %d, want the default %d", result.MaxOpenPositions, DefaultMaxOpenPositions)
	}
}
