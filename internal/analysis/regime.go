package analysis

import (
	"fmt"

	"neurallempire-signal-engine/internal/indicators"
	"neurallempire-signal-engine/internal/market"
)

// MarketRegime classifies the overall character of the market.
type MarketRegime string

const (
	RegimeTrendingBullish MarketRegime = "TRENDING_BULLISH"
	RegimeTrendingBearish MarketRegime = "TRENDING_BEARISH"
	RegimeRanging         MarketRegime = "RANGING"
	RegimeVolatile        MarketRegime = "VOLATILE"
	RegimeUncertain       MarketRegime = "UNCERTAIN"
)

// VIXLevel buckets the India VIX reading.
type VIXLevel string

const (
	VIXLow     VIXLevel = "LOW"     // < 15
	VIXMedium  VIXLevel = "MEDIUM"  // 15-20
	VIXHigh    VIXLevel = "HIGH"    // 20-30
	VIXExtreme VIXLevel = "EXTREME" // >= 30
)

// ClassifyVIX maps a VIX value onto its bucket.
func ClassifyVIX(vix float64) VIXLevel {
	switch {
	case vix < 15:
		return VIXLow
	case vix < 20:
		return VIXMedium
	case vix < 30:
		return VIXHigh
	default:
		return VIXExtreme
	}
}

// RegimeResult is the layer-1 assessment of market conditions.
type RegimeResult struct {
	Regime    MarketRegime              `json:"regime"`
	Direction indicators.TrendDirection `json:"direction"`
	Strength  float64                   `json:"strength"`  // 0-100
	Sentiment float64                   `json:"sentiment"` // -100..+100
	VIX       float64                   `json:"vix"`
	VIXLevel  VIXLevel                  `json:"vix_level"`
	Trend     indicators.TrendReading   `json:"trend"`
	EMA200    float64                   `json:"ema_200"`
	Score     float64                   `json:"score"` // 0-100
	Reason    string                    `json:"reason"`
}

// MarketRegimeAnalyzer classifies regime, direction and sentiment from the
// daily candle history plus the current VIX.
type MarketRegimeAnalyzer struct{}

func NewMarketRegimeAnalyzer() *MarketRegimeAnalyzer {
	return &MarketRegimeAnalyzer{}
}

// Analyze never errors: with fewer than 50 bars it reports an UNCERTAIN
// regime with zero strength so the pipeline can keep running.
func (a *MarketRegimeAnalyzer) Analyze(candles []market.Candle, spot, vix float64) RegimeResult {
	result := RegimeResult{
		VIX:      vix,
		VIXLevel: ClassifyVIX(vix),
	}

	if len(candles) < indicators.MinTrendBars {
		result.Trend = indicators.AssessTrend(candles, spot)
		result.Direction = indicators.TrendSideways
		result.Regime = RegimeUncertain
		result.Sentiment = a.sentiment(result)
		result.Score = clampScore(10 + vixScoreBonus(result.VIXLevel))
		result.Reason = fmt.Sprintf("insufficient history (%d bars)", len(candles))
		return result
	}

	result.Trend = indicators.AssessTrend(candles, spot)
	result.Direction = result.Trend.Direction
	result.Strength = result.Trend.Strength
	result.EMA200 = indicators.CalculateEMA(candles, 200)

	result.Regime = a.classifyRegime(result)
	result.Sentiment = a.sentiment(result)
	result.Score = a.score(result)
	result.Reason = fmt.Sprintf("%s regime, ADX %.1f, VIX %.1f (%s)",
		result.Regime, result.Trend.ADX, vix, result.VIXLevel)
	return result
}

func (a *MarketRegimeAnalyzer) classifyRegime(r RegimeResult) MarketRegime {
	switch {
	case r.VIXLevel == VIXExtreme || r.Trend.ADX < 20:
		return RegimeVolatile
	case r.Strength > 25 && r.Direction == indicators.TrendBullish:
		return RegimeTrendingBullish
	case r.Strength > 25 && r.Direction == indicators.TrendBearish:
		return RegimeTrendingBearish
	case r.Trend.ADX < 25:
		return RegimeRanging
	default:
		return RegimeUncertain
	}
}

// sentiment aggregates fixed contributions into a -100..+100 reading.
func (a *MarketRegimeAnalyzer) sentiment(r RegimeResult) float64 {
	s := 0.0

	switch r.Direction {
	case indicators.TrendBullish:
		s += 30
	case indicators.TrendBearish:
		s -= 30
	}

	if r.Trend.RSI > 60 {
		s += 15
	} else if r.Trend.RSI < 40 {
		s -= 15
	}

	if r.Trend.MACD.Histogram > 0 {
		s += 20
	} else if r.Trend.MACD.Histogram < 0 {
		s -= 20
	}

	switch r.VIXLevel {
	case VIXLow:
		s += 15
	case VIXMedium:
		s += 5
	case VIXHigh:
		s -= 10
	case VIXExtreme:
		s -= 25
	}

	// EMA stack order; EMA200 is ignored when the history cannot cover it.
	if r.Trend.EMA20 > 0 && r.Trend.EMA50 > 0 {
		if r.EMA200 > 0 {
			if r.Trend.EMA20 > r.Trend.EMA50 && r.Trend.EMA50 > r.EMA200 {
				s += 20
			} else if r.Trend.EMA20 < r.Trend.EMA50 && r.Trend.EMA50 < r.EMA200 {
				s -= 20
			}
		} else {
			if r.Trend.EMA20 > r.Trend.EMA50 {
				s += 20
			} else if r.Trend.EMA20 < r.Trend.EMA50 {
				s -= 20
			}
		}
	}

	return clampRange(s, -100, 100)
}

func (a *MarketRegimeAnalyzer) score(r RegimeResult) float64 {
	base := 10.0
	switch r.Regime {
	case RegimeTrendingBullish, RegimeTrendingBearish:
		base = 40
	case RegimeRanging:
		base = 25
	}

	score := base + r.Strength*0.3 + vixScoreBonus(r.VIXLevel)

	if r.Trend.ADX >= 40 {
		score += 10
	} else if r.Trend.ADX >= 25 {
		score += 5
	}

	return clampScore(score)
}

func vixScoreBonus(level VIXLevel) float64 {
	switch level {
	case VIXLow:
		return 20
	case VIXMedium:
		return 15
	case VIXHigh:
		return 5
	default:
		return 0
	}
}
