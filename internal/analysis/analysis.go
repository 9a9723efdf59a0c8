// Package analysis holds the four market-analysis layers that score a
// candidate trade from candles alone: market regime, price action,
// multi-timeframe alignment and volatility. Each analyzer is pure and
// degrades to a neutral result on thin history instead of erroring.
package analysis

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
