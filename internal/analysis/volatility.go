package analysis

import (
	"fmt"

	"neurallempire-signal-engine/internal/indicators"
	"neurallempire-signal-engine/internal/market"
)

// VolRegime classifies implied against realized volatility.
type VolRegime string

const (
	VolCompressed VolRegime = "COMPRESSED" // IV/HV < 0.9
	VolNormal     VolRegime = "NORMAL"     // < 1.1
	VolElevated   VolRegime = "ELEVATED"   // < 1.3
	VolExtreme    VolRegime = "EXTREME"    // >= 1.3
)

// OptionPricing is the cheap/fair/expensive verdict on premium.
type OptionPricing string

const (
	PricingCheap     OptionPricing = "CHEAP"
	PricingFair      OptionPricing = "FAIR"
	PricingExpensive OptionPricing = "EXPENSIVE"
)

// VIXTrend is the short-term direction of the VIX series.
type VIXTrend string

const (
	VIXRising  VIXTrend = "RISING"
	VIXFalling VIXTrend = "FALLING"
	VIXStable  VIXTrend = "STABLE"
)

// PercentileLevel buckets the IV percentile.
type PercentileLevel string

const (
	PercentileLow    PercentileLevel = "LOW"    // < 30
	PercentileMedium PercentileLevel = "MEDIUM" // < 70
	PercentileHigh   PercentileLevel = "HIGH"   // >= 70
)

// VolatilityResult is the layer-4 assessment of option pricing conditions.
type VolatilityResult struct {
	HV               float64         `json:"hv"` // annualized, percent
	CurrentIV        float64         `json:"current_iv"`
	IVPercentile     float64         `json:"iv_percentile"` // 0-100 against VIX history
	PercentileLevel  PercentileLevel `json:"percentile_level"`
	IVHVRatio        float64         `json:"iv_hv_ratio"`
	Regime           VolRegime       `json:"regime"`
	Pricing          OptionPricing   `json:"pricing"`
	VIXTrend         VIXTrend        `json:"vix_trend"`
	StrikeSuggestion string          `json:"strike_suggestion"`
	Score            float64         `json:"score"` // 0-100
	Reason           string          `json:"reason"`
}

// hvLookback is the number of log returns feeding historical volatility.
const hvLookback = 20

// VolatilityAnalyzer judges whether options are cheaply or richly priced by
// comparing implied volatility against realized movement and its own history.
type VolatilityAnalyzer struct{}

func NewVolatilityAnalyzer() *VolatilityAnalyzer {
	return &VolatilityAnalyzer{}
}

// Analyze derives the volatility regime from candles, the VIX series and the
// option chain. A missing chain or thin history degrades to neutral values.
func (a *VolatilityAnalyzer) Analyze(candles []market.Candle, vix float64, vixHistory []float64, chain *market.OptionChain) VolatilityResult {
	result := VolatilityResult{
		HV:        indicators.HistoricalVolatility(candles, hvLookback),
		CurrentIV: currentIV(chain, vix),
	}

	result.IVPercentile = ivPercentile(result.CurrentIV, vixHistory)
	switch {
	case result.IVPercentile < 30:
		result.PercentileLevel = PercentileLow
	case result.IVPercentile < 70:
		result.PercentileLevel = PercentileMedium
	default:
		result.PercentileLevel = PercentileHigh
	}

	// Without a realized-vol base the ratio is treated as fairly priced.
	result.IVHVRatio = 1.0
	if result.HV > 0 {
		result.IVHVRatio = result.CurrentIV / result.HV
	}
	switch {
	case result.IVHVRatio < 0.9:
		result.Regime = VolCompressed
	case result.IVHVRatio < 1.1:
		result.Regime = VolNormal
	case result.IVHVRatio < 1.3:
		result.Regime = VolElevated
	default:
		result.Regime = VolExtreme
	}

	result.Pricing = classifyPricing(result.Regime, result.IVPercentile)
	result.VIXTrend = classifyVIXTrend(vixHistory)
	result.StrikeSuggestion = strikeSuggestion(result.Regime)
	result.Score = a.score(result, vix)
	result.Reason = fmt.Sprintf("%s vol regime (IV/HV %.2f), IV percentile %.0f, premium %s",
		result.Regime, result.IVHVRatio, result.IVPercentile, result.Pricing)
	return result
}

// currentIV prefers the ATM strike's implied vol and falls back to the VIX.
func currentIV(chain *market.OptionChain, vix float64) float64 {
	if chain != nil {
		if s := chain.StrikeAt(chain.ATMStrike); s != nil && s.ImpliedVol > 0 {
			return s.ImpliedVol
		}
	}
	return vix
}

// ivPercentile is the share of history strictly below the current value.
func ivPercentile(iv float64, history []float64) float64 {
	if len(history) == 0 {
		return 50
	}
	below := 0
	for _, v := range history {
		if v < iv {
			below++
		}
	}
	return float64(below) / float64(len(history)) * 100
}

func classifyPricing(regime VolRegime, percentile float64) OptionPricing {
	switch regime {
	case VolCompressed:
		return PricingCheap
	case VolExtreme:
		return PricingExpensive
	case VolElevated:
		if percentile >= 70 {
			return PricingExpensive
		}
		return PricingFair
	default: // NORMAL
		if percentile < 30 {
			return PricingCheap
		}
		if percentile >= 70 {
			return PricingExpensive
		}
		return PricingFair
	}
}

// classifyVIXTrend compares the last five readings against the prior five
// with a 5% band; fewer than ten readings report STABLE.
func classifyVIXTrend(history []float64) VIXTrend {
	if len(history) < 10 {
		return VIXStable
	}

	recent := history[len(history)-5:]
	prior := history[len(history)-10 : len(history)-5]

	recentAvg := 0.0
	for _, v := range recent {
		recentAvg += v
	}
	recentAvg /= 5

	priorAvg := 0.0
	for _, v := range prior {
		priorAvg += v
	}
	priorAvg /= 5

	if priorAvg <= 0 {
		return VIXStable
	}
	switch {
	case recentAvg < priorAvg*0.95:
		return VIXFalling
	case recentAvg > priorAvg*1.05:
		return VIXRising
	default:
		return VIXStable
	}
}

func strikeSuggestion(regime VolRegime) string {
	switch regime {
	case VolCompressed:
		return "ATM or 1-2 strikes OTM, premium is cheap relative to realized movement"
	case VolNormal:
		return "ATM to 2 strikes OTM"
	case VolElevated:
		return "2-3 strikes OTM to offset the elevated premium"
	default:
		return "3-5 strikes OTM or avoid, premium is rich"
	}
}

func (a *VolatilityAnalyzer) score(r VolatilityResult, vix float64) float64 {
	score := 0.0

	switch ClassifyVIX(vix) {
	case VIXLow:
		score += 30
	case VIXMedium:
		score += 25
	case VIXHigh:
		score += 15
	default:
		score += 5
	}

	switch r.VIXTrend {
	case VIXFalling:
		score += 15
	case VIXStable:
		score += 10
	default:
		score += 5
	}

	switch {
	case r.IVPercentile < 30:
		score += 25
	case r.IVPercentile < 50:
		score += 20
	case r.IVPercentile < 70:
		score += 10
	default:
		score += 5
	}

	switch r.Regime {
	case VolCompressed:
		score += 20
	case VolNormal:
		score += 15
	case VolElevated:
		score += 5
	}

	switch r.Pricing {
	case PricingCheap:
		score += 10
	case PricingFair:
		score += 5
	}

	return clampScore(score)
}
