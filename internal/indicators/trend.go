package indicators

import "neurallempire-signal-engine/internal/market"

// TrendDirection classifies the prevailing direction of a candle series.
type TrendDirection string

const (
	TrendBullish  TrendDirection = "BULLISH"
	TrendBearish  TrendDirection = "BEARISH"
	TrendSideways TrendDirection = "SIDEWAYS"
)

// TrendReading is the shared trend assessment consumed by the regime and
// timeframe layers. Both layers must see the same numbers for the same
// candles, so the computation lives here rather than in either layer.
type TrendReading struct {
	Direction TrendDirection `json:"direction"`
	Strength  float64        `json:"strength"` // 0-100, derived from ADX
	EMA20     float64        `json:"ema_20"`
	EMA50     float64        `json:"ema_50"`
	RSI       float64        `json:"rsi"`
	MACD      MACDResult     `json:"macd"`
	ADX       float64        `json:"adx"`
	PlusDI    float64        `json:"plus_di"`
	MinusDI   float64        `json:"minus_di"`
}

// MinTrendBars is the minimum history for a trend assessment. Below this the
// reading is SIDEWAYS with zero strength.
const MinTrendBars = 50

// AssessTrend classifies direction from the spot price against the EMA20 and
// EMA50, and maps ADX onto a 0-100 strength scale.
func AssessTrend(candles []market.Candle, spot float64) TrendReading {
	if len(candles) < MinTrendBars {
		return TrendReading{Direction: TrendSideways, RSI: 50}
	}

	reading := TrendReading{
		EMA20: CalculateEMA(candles, 20),
		EMA50: CalculateEMA(candles, 50),
		RSI:   CalculateRSI(candles, 14),
		MACD:  CalculateMACD(candles, 12, 26, 9),
	}
	reading.ADX, reading.PlusDI, reading.MinusDI = CalculateADX(candles, 14)

	switch {
	case spot > reading.EMA20 && reading.EMA20 > reading.EMA50:
		reading.Direction = TrendBullish
	case spot < reading.EMA20 && reading.EMA20 < reading.EMA50:
		reading.Direction = TrendBearish
	default:
		reading.Direction = TrendSideways
	}

	reading.Strength = reading.ADX * 3.33
	if reading.Strength > 100 {
		reading.Strength = 100
	}
	return reading
}
