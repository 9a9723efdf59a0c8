package analysis

import (
	"fmt"
	"sort"
	"sync"

	"neurallempire-signal-engine/internal/indicators"
	"neurallempire-signal-engine/internal/market"
)

// Timeframe labels a chart interval.
type Timeframe string

const (
	TF1h  Timeframe = "1h"
	TF15m Timeframe = "15m"
	TF5m  Timeframe = "5m"
)

// Alignment classifies how the three timeframe trends relate.
type Alignment string

const (
	AlignmentPerfect     Alignment = "PERFECT"
	AlignmentStrong      Alignment = "STRONG"
	AlignmentWeak        Alignment = "WEAK"
	AlignmentConflicting Alignment = "CONFLICTING"
)

// EntrySignal is the timing advice from the timeframe stack.
type EntrySignal string

const (
	EntryBuy  EntrySignal = "BUY"
	EntrySell EntrySignal = "SELL"
	EntryWait EntrySignal = "WAIT"
)

// TimeframeTrend is one timeframe's trend reading.
type TimeframeTrend struct {
	Timeframe Timeframe                 `json:"timeframe"`
	Direction indicators.TrendDirection `json:"direction"`
	Strength  float64                   `json:"strength"` // 0-100
	Bars      int                       `json:"bars"`
}

// ConfluenceZone is a price level where swing points from multiple
// timeframes cluster.
type ConfluenceZone struct {
	Price    float64 `json:"price"`
	Strength float64 `json:"strength"` // 0-100
	Matches  int     `json:"matches"`
}

// TimeframeResult is the layer-3 assessment of cross-timeframe agreement.
type TimeframeResult struct {
	Hourly     TimeframeTrend   `json:"hourly"`
	FifteenMin TimeframeTrend   `json:"fifteen_min"`
	FiveMin    TimeframeTrend   `json:"five_min"`
	Alignment  Alignment        `json:"alignment"`
	Confluence []ConfluenceZone `json:"confluence"`
	Entry      EntrySignal      `json:"entry"`
	Score      float64          `json:"score"` // 0-100
	Reason     string           `json:"reason"`
}

const (
	// confluenceTolerance merges swing points within 0.3% of the cluster mean.
	confluenceTolerance = 0.003
	swingWindow         = 2
	maxConfluenceZones  = 5
)

// MultiTimeframeAligner checks trend agreement across 1H/15M/5M candles.
type MultiTimeframeAligner struct{}

func NewMultiTimeframeAligner() *MultiTimeframeAligner {
	return &MultiTimeframeAligner{}
}

// Analyze computes the three trends in parallel, merges swing levels into
// confluence zones, and derives alignment, entry advice and the score.
func (m *MultiTimeframeAligner) Analyze(hourly, fifteenMin, fiveMin []market.Candle) TimeframeResult {
	result := TimeframeResult{}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		result.Hourly = trendFor(TF1h, hourly)
	}()
	go func() {
		defer wg.Done()
		result.FifteenMin = trendFor(TF15m, fifteenMin)
	}()
	go func() {
		defer wg.Done()
		result.FiveMin = trendFor(TF5m, fiveMin)
	}()
	wg.Wait()

	result.Alignment = classifyAlignment(result.Hourly.Direction, result.FifteenMin.Direction, result.FiveMin.Direction)
	result.Confluence = findConfluenceZones(hourly, fifteenMin, fiveMin)
	result.Entry = entrySignal(result)
	result.Score = alignmentScore(result)
	result.Reason = fmt.Sprintf("%s alignment (1h %s, 15m %s, 5m %s), %d confluence zones",
		result.Alignment, result.Hourly.Direction, result.FifteenMin.Direction,
		result.FiveMin.Direction, len(result.Confluence))
	return result
}

func trendFor(tf Timeframe, candles []market.Candle) TimeframeTrend {
	trend := TimeframeTrend{
		Timeframe: tf,
		Direction: indicators.TrendSideways,
		Bars:      len(candles),
	}
	if len(candles) == 0 {
		return trend
	}

	reading := indicators.AssessTrend(candles, candles[len(candles)-1].Close)
	trend.Direction = reading.Direction
	trend.Strength = reading.Strength
	return trend
}

func classifyAlignment(h, f15, f5 indicators.TrendDirection) Alignment {
	switch {
	case h == f15 && f15 == f5:
		return AlignmentPerfect
	case h == f15 && h != indicators.TrendSideways:
		return AlignmentStrong
	case h == f15 || h == f5 || f15 == f5:
		return AlignmentWeak
	default:
		return AlignmentConflicting
	}
}

// entrySignal advises BUY/SELL only when alignment is at least STRONG, the
// hourly trend is directional and the 5m chart confirms it.
func entrySignal(r TimeframeResult) EntrySignal {
	if r.Alignment != AlignmentPerfect && r.Alignment != AlignmentStrong {
		return EntryWait
	}
	if r.Hourly.Direction == indicators.TrendBullish && r.FiveMin.Direction == indicators.TrendBullish {
		return EntryBuy
	}
	if r.Hourly.Direction == indicators.TrendBearish && r.FiveMin.Direction == indicators.TrendBearish {
		return EntrySell
	}
	return EntryWait
}

func alignmentScore(r TimeframeResult) float64 {
	base := 0.0
	switch r.Alignment {
	case AlignmentPerfect:
		base = 50
	case AlignmentStrong:
		base = 35
	case AlignmentWeak:
		base = 15
	}

	avgStrength := (r.Hourly.Strength + r.FifteenMin.Strength + r.FiveMin.Strength) / 3
	zoneBonus := float64(len(r.Confluence)) * 5
	if zoneBonus > 20 {
		zoneBonus = 20
	}

	return clampScore(base + avgStrength*0.3 + zoneBonus)
}

// ============================================================================
// CONFLUENCE
// ============================================================================

// findConfluenceZones merges swing highs and lows from every timeframe and
// clusters them at a 0.3% relative tolerance. A level only counts when at
// least two swings land on it; the strongest five are kept.
func findConfluenceZones(timeframes ...[]market.Candle) []ConfluenceZone {
	var prices []float64
	for _, candles := range timeframes {
		for _, p := range indicators.FindSwingHighs(candles, swingWindow) {
			prices = append(prices, p.Price)
		}
		for _, p := range indicators.FindSwingLows(candles, swingWindow) {
			prices = append(prices, p.Price)
		}
	}
	if len(prices) == 0 {
		return nil
	}

	sort.Float64s(prices)

	var zones []ConfluenceZone
	clusterSum := prices[0]
	clusterCount := 1

	flush := func() {
		if clusterCount < 2 {
			return
		}
		strength := float64(clusterCount) * 33.33
		if strength > 100 {
			strength = 100
		}
		zones = append(zones, ConfluenceZone{
			Price:    clusterSum / float64(clusterCount),
			Strength: strength,
			Matches:  clusterCount,
		})
	}

	for _, p := range prices[1:] {
		mean := clusterSum / float64(clusterCount)
		if mean > 0 && (p-mean)/mean <= confluenceTolerance {
			clusterSum += p
			clusterCount++
			continue
		}
		flush()
		clusterSum = p
		clusterCount = 1
	}
	flush()

	sort.Slice(zones, func(i, j int) bool {
		if zones[i].Strength != zones[j].Strength {
			return zones[i].Strength > zones[j].Strength
		}
		return zones[i].Price < zones[j].Price
	})
	if len(zones) > maxConfluenceZones {
		zones = zones[:maxConfluenceZones]
	}
	return zones
}
