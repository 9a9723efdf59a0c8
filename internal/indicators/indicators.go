// Package indicators is the shared technical-indicator library used by all
// analysis layers. Every function is pure: it reads a candle slice and
// returns a value, degrading to a neutral result when the history is too
// short instead of erroring.
package indicators

import (
	"math"

	"neurallempire-signal-engine/internal/market"
)

// TradingDaysPerYear is the annualization base for historical volatility.
const TradingDaysPerYear = 252

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// CalculateSMA calculates the Simple Moving Average over the last period bars.
func CalculateSMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

// CalculateEMA calculates the Exponential Moving Average, seeded with the SMA
// of the first period bars.
func CalculateEMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	multiplier := 2.0 / float64(period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(period)

	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema
}

// EMASeries computes the EMA of a raw value series. The result is aligned so
// that out[i] corresponds to values[i+period-1]; nil when the series is too
// short. Used to build the MACD signal line without duplicating EMA math.
func EMASeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out = append(out, ema)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out = append(out, ema)
	}
	return out
}

// ============================================================================
// RSI
// ============================================================================

// CalculateRSI calculates the Relative Strength Index. Returns the neutral 50
// when there is not enough history.
func CalculateRSI(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50
	}

	gains := 0.0
	losses := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD
// ============================================================================

// MACDResult holds the MACD line, signal line and histogram.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// CalculateMACD computes MACD with a real signal line: the signal is the
// signalPeriod EMA of the MACD-line series, not an approximation.
func CalculateMACD(candles []market.Candle, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(candles) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	fast := EMASeries(closes, fastPeriod)
	slow := EMASeries(closes, slowPeriod)

	// Align the fast series to the slow one; slow starts later.
	offset := slowPeriod - fastPeriod
	macdLine := make([]float64, len(slow))
	for i := range slow {
		macdLine[i] = fast[i+offset] - slow[i]
	}

	signalSeries := EMASeries(macdLine, signalPeriod)
	if len(signalSeries) == 0 {
		return MACDResult{}
	}

	macd := macdLine[len(macdLine)-1]
	signal := signalSeries[len(signalSeries)-1]
	return MACDResult{
		MACD:      macd,
		Signal:    signal,
		Histogram: macd - signal,
	}
}

// ============================================================================
// ATR / ADX
// ============================================================================

// CalculateATR calculates the Average True Range over the last period bars.
func CalculateATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		trSum += trueRange(candles[i], candles[i-1])
	}
	return trSum / float64(period)
}

func trueRange(cur, prev market.Candle) float64 {
	tr := cur.High - cur.Low
	if d := math.Abs(cur.High - prev.Close); d > tr {
		tr = d
	}
	if d := math.Abs(cur.Low - prev.Close); d > tr {
		tr = d
	}
	return tr
}

// CalculateADX computes the Average Directional Index with Wilder smoothing,
// returning ADX along with +DI and -DI. Needs at least 2*period+1 bars;
// returns zeros below that.
func CalculateADX(candles []market.Candle, period int) (adx, plusDI, minusDI float64) {
	if period <= 0 || len(candles) < 2*period+1 {
		return 0, 0, 0
	}

	n := len(candles)
	trs := make([]float64, 0, n-1)
	plusDMs := make([]float64, 0, n-1)
	minusDMs := make([]float64, 0, n-1)

	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		plusDM := 0.0
		minusDM := 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		trs = append(trs, trueRange(candles[i], candles[i-1]))
		plusDMs = append(plusDMs, plusDM)
		minusDMs = append(minusDMs, minusDM)
	}

	// Seed the Wilder-smoothed sums with the first period values.
	var smTR, smPlus, smMinus float64
	for i := 0; i < period; i++ {
		smTR += trs[i]
		smPlus += plusDMs[i]
		smMinus += minusDMs[i]
	}

	dxs := make([]float64, 0, len(trs)-period+1)
	appendDX := func() {
		if smTR == 0 {
			dxs = append(dxs, 0)
			return
		}
		pdi := 100 * smPlus / smTR
		mdi := 100 * smMinus / smTR
		plusDI, minusDI = pdi, mdi
		if pdi+mdi == 0 {
			dxs = append(dxs, 0)
			return
		}
		dxs = append(dxs, 100*math.Abs(pdi-mdi)/(pdi+mdi))
	}
	appendDX()

	for i := period; i < len(trs); i++ {
		smTR = smTR - smTR/float64(period) + trs[i]
		smPlus = smPlus - smPlus/float64(period) + plusDMs[i]
		smMinus = smMinus - smMinus/float64(period) + minusDMs[i]
		appendDX()
	}

	if len(dxs) < period {
		return 0, plusDI, minusDI
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += dxs[i]
	}
	adx = sum / float64(period)
	for i := period; i < len(dxs); i++ {
		adx = (adx*float64(period-1) + dxs[i]) / float64(period)
	}
	return adx, plusDI, minusDI
}

// ============================================================================
// VOLATILITY
// ============================================================================

// HistoricalVolatility computes the annualized standard deviation of log
// returns over the last period returns, as a percentage. Returns 0 when there
// are fewer than period+1 bars or a non-positive close breaks the log return.
func HistoricalVolatility(candles []market.Candle, period int) float64 {
	if period <= 1 || len(candles) < period+1 {
		return 0
	}

	returns := make([]float64, 0, period)
	for i := len(candles) - period; i < len(candles); i++ {
		prev := candles[i-1].Close
		cur := candles[i].Close
		if prev <= 0 || cur <= 0 {
			return 0
		}
		returns = append(returns, math.Log(cur/prev))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear) * 100
}

// ============================================================================
// SWING POINTS
// ============================================================================

// SwingPoint is a confirmed local extreme.
type SwingPoint struct {
	Price float64
	Index int
}

// FindSwingHighs returns local highs using a symmetric lookback window.
func FindSwingHighs(candles []market.Candle, window int) []SwingPoint {
	var points []SwingPoint
	for i := window; i < len(candles)-window; i++ {
		isHigh := true
		for j := i - window; j <= i+window; j++ {
			if j != i && candles[j].High >= candles[i].High {
				isHigh = false
				break
			}
		}
		if isHigh {
			points = append(points, SwingPoint{Price: candles[i].High, Index: i})
		}
	}
	return points
}

// FindSwingLows returns local lows using a symmetric lookback window.
func FindSwingLows(candles []market.Candle, window int) []SwingPoint {
	var points []SwingPoint
	for i := window; i < len(candles)-window; i++ {
		isLow := true
		for j := i - window; j <= i+window; j++ {
			if j != i && candles[j].Low <= candles[i].Low {
				isLow = false
				break
			}
		}
		if isLow {
			points = append(points, SwingPoint{Price: candles[i].Low, Index: i})
		}
	}
	return points
}
