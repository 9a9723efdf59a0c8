package indicators

import (
	"math"
	"testing"
	"time"

	"neurallempire-signal-engine/internal/market"
)

// candlesFromCloses builds a flat-range series where only closes matter.
func candlesFromCloses(closes []float64) []market.Candle {
	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return candles
}

// trendingCandles builds a series that steps by delta per bar with a fixed
// 3-point bar range, which keeps directional movement one-sided.
func trendingCandles(n int, start, delta float64) []market.Candle {
	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	candles := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		mid := start + delta*float64(i)
		candles[i] = market.Candle{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      mid - 0.5,
			High:      mid + 1,
			Low:       mid - 2,
			Close:     mid,
			Volume:    1000,
		}
	}
	return candles
}

func TestCalculateSMA(t *testing.T) {
	candles := candlesFromCloses([]float64{1, 2, 3, 4, 5})

	if got := CalculateSMA(candles, 5); got != 3 {
		t.Errorf("SMA(5) = %v, want 3", got)
	}
	if got := CalculateSMA(candles, 3); got != 4 {
		t.Errorf("SMA(3) = %v, want 4", got)
	}
	if got := CalculateSMA(candles, 6); got != 0 {
		t.Errorf("SMA with short history = %v, want 0", got)
	}
}

func TestCalculateEMA(t *testing.T) {
	candles := candlesFromCloses([]float64{2, 4, 6})

	// With period == len the EMA is just the SMA seed.
	if got := CalculateEMA(candles, 3); got != 4 {
		t.Errorf("EMA seed = %v, want 4", got)
	}
	if got := CalculateEMA(candles, 5); got != 0 {
		t.Errorf("EMA with short history = %v, want 0", got)
	}

	// A longer series must pull the EMA toward recent closes.
	rising := candlesFromCloses([]float64{10, 10, 10, 10, 10, 20, 20, 20, 20, 20})
	ema := CalculateEMA(rising, 5)
	if ema <= 10 || ema >= 20 {
		t.Errorf("EMA = %v, want between 10 and 20", ema)
	}
	if ema < 15 {
		t.Errorf("EMA = %v, expected recent closes to dominate", ema)
	}
}

func TestCalculateRSI(t *testing.T) {
	// Changes over the window: +1, +1, -1, +2 -> avgGain 1, avgLoss 0.25.
	candles := candlesFromCloses([]float64{10, 11, 12, 11, 13})
	if got := CalculateRSI(candles, 4); math.Abs(got-80) > 1e-9 {
		t.Errorf("RSI = %v, want 80", got)
	}

	up := candlesFromCloses([]float64{1, 2, 3, 4, 5, 6})
	if got := CalculateRSI(up, 5); got != 100 {
		t.Errorf("RSI all gains = %v, want 100", got)
	}

	down := candlesFromCloses([]float64{6, 5, 4, 3, 2, 1})
	if got := CalculateRSI(down, 5); got != 0 {
		t.Errorf("RSI all losses = %v, want 0", got)
	}

	short := candlesFromCloses([]float64{1, 2})
	if got := CalculateRSI(short, 14); got != 50 {
		t.Errorf("RSI with short history = %v, want neutral 50", got)
	}
}

func TestEMASeries(t *testing.T) {
	out := EMASeries([]float64{2, 4, 6, 8, 10}, 3)
	if len(out) != 3 {
		t.Fatalf("series length = %d, want 3", len(out))
	}
	if out[0] != 4 {
		t.Errorf("series seed = %v, want SMA 4", out[0])
	}
	if EMASeries([]float64{1, 2}, 3) != nil {
		t.Error("expected nil series for short input")
	}
}

func TestCalculateMACD(t *testing.T) {
	short := candlesFromCloses(make([]float64, 30))
	if got := CalculateMACD(short, 12, 26, 9); got != (MACDResult{}) {
		t.Errorf("MACD with short history = %+v, want zero result", got)
	}

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	res := CalculateMACD(candlesFromCloses(closes), 12, 26, 9)

	if res.MACD <= 0 {
		t.Errorf("MACD on rising series = %v, want positive", res.MACD)
	}
	if res.Signal <= 0 {
		t.Errorf("signal on rising series = %v, want positive", res.Signal)
	}
	if math.Abs(res.Histogram-(res.MACD-res.Signal)) > 1e-9 {
		t.Errorf("histogram = %v, want MACD-signal = %v", res.Histogram, res.MACD-res.Signal)
	}
}

func TestCalculateATR(t *testing.T) {
	candles := trendingCandles(20, 100, 2)
	atr := CalculateATR(candles, 14)
	// Bar range is 3 points and each step gaps 2, so TR is max(3, |gap|).
	if atr < 3 || atr > 4 {
		t.Errorf("ATR = %v, want within [3, 4]", atr)
	}

	if got := CalculateATR(candles[:5], 14); got != 0 {
		t.Errorf("ATR with short history = %v, want 0", got)
	}
}

func TestCalculateADX(t *testing.T) {
	adx, plusDI, minusDI := CalculateADX(trendingCandles(10, 100, 2), 14)
	if adx != 0 || plusDI != 0 || minusDI != 0 {
		t.Errorf("ADX with short history = (%v, %v, %v), want zeros", adx, plusDI, minusDI)
	}

	adx, plusDI, minusDI = CalculateADX(trendingCandles(40, 100, 2), 14)
	if adx < 50 {
		t.Errorf("ADX on strong uptrend = %v, want >= 50", adx)
	}
	if plusDI <= minusDI {
		t.Errorf("+DI %v should exceed -DI %v in an uptrend", plusDI, minusDI)
	}

	adx, plusDI, minusDI = CalculateADX(trendingCandles(40, 200, -2), 14)
	if adx < 50 {
		t.Errorf("ADX on strong downtrend = %v, want >= 50", adx)
	}
	if minusDI <= plusDI {
		t.Errorf("-DI %v should exceed +DI %v in a downtrend", minusDI, plusDI)
	}
}

func TestHistoricalVolatility(t *testing.T) {
	flat := candlesFromCloses([]float64{100, 100, 100, 100, 100, 100})
	if got := HistoricalVolatility(flat, 5); got != 0 {
		t.Errorf("HV of flat series = %v, want 0", got)
	}

	choppy := candlesFromCloses([]float64{100, 102, 100, 102, 100, 102, 100, 102, 100, 102, 100})
	if got := HistoricalVolatility(choppy, 10); got <= 0 {
		t.Errorf("HV of choppy series = %v, want positive", got)
	}

	if got := HistoricalVolatility(choppy, 20); got != 0 {
		t.Errorf("HV with short history = %v, want 0", got)
	}
}

func TestFindSwingHighs(t *testing.T) {
	closes := []float64{10, 11, 15, 11, 10, 9, 8}
	candles := candlesFromCloses(closes)

	highs := FindSwingHighs(candles, 2)
	if len(highs) != 1 {
		t.Fatalf("swing highs = %d, want 1", len(highs))
	}
	if highs[0].Index != 2 || highs[0].Price != 16 {
		t.Errorf("swing high = %+v, want index 2 price 16", highs[0])
	}
}

func TestFindSwingLows(t *testing.T) {
	closes := []float64{15, 12, 8, 12, 15, 16, 17}
	candles := candlesFromCloses(closes)

	lows := FindSwingLows(candles, 2)
	if len(lows) != 1 {
		t.Fatalf("swing lows = %d, want 1", len(lows))
	}
	if lows[0].Index != 2 || lows[0].Price != 7 {
		t.Errorf("swing low = %+v, want index 2 price 7", lows[0])
	}
}

func TestAssessTrendShortHistory(t *testing.T) {
	reading := AssessTrend(trendingCandles(30, 100, 1), 130)
	if reading.Direction != TrendSideways {
		t.Errorf("direction = %s, want SIDEWAYS on short history", reading.Direction)
	}
	if reading.Strength != 0 {
		t.Errorf("strength = %v, want 0 on short history", reading.Strength)
	}
}

func TestAssessTrendDirections(t *testing.T) {
	up := trendingCandles(60, 100, 1)
	spot := up[len(up)-1].Close + 1
	reading := AssessTrend(up, spot)
	if reading.Direction != TrendBullish {
		t.Errorf("direction = %s, want BULLISH", reading.Direction)
	}
	if reading.Strength < 50 {
		t.Errorf("strength = %v, want >= 50 for a persistent trend", reading.Strength)
	}
	if reading.EMA20 <= reading.EMA50 {
		t.Errorf("EMA20 %v should exceed EMA50 %v in an uptrend", reading.EMA20, reading.EMA50)
	}

	down := trendingCandles(60, 300, -1)
	spot = down[len(down)-1].Close - 1
	reading = AssessTrend(down, spot)
	if reading.Direction != TrendBearish {
		t.Errorf("direction = %s, want BEARISH", reading.Direction)
	}

	flat := candlesFromCloses(make([]float64, 60))
	for i := range flat {
		flat[i].Close = 100
		flat[i].Open = 100
		flat[i].High = 101
		flat[i].Low = 99
	}
	reading = AssessTrend(flat, 100)
	if reading.Direction != TrendSideways {
		t.Errorf("direction = %s, want SIDEWAYS on flat series", reading.Direction)
	}
}
