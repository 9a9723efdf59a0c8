package analysis

import (
	"fmt"
	"math"

	"neurallempire-signal-engine/internal/market"
)

// MarketStructure classifies the recent swing relationship.
type MarketStructure string

const (
	StructureHigherHighs MarketStructure = "HIGHER_HIGHS"
	StructureLowerLows   MarketStructure = "LOWER_LOWS"
	StructureRanging     MarketStructure = "RANGING"
)

// StructureBreak marks a close beyond the prior extreme.
type StructureBreak string

const (
	BreakBullish StructureBreak = "BULLISH"
	BreakBearish StructureBreak = "BEARISH"
	BreakNone    StructureBreak = "NONE"
)

// SweepKind marks a liquidity sweep: a wick through the prior extreme with
// the close back inside the range.
type SweepKind string

const (
	SweepHighs SweepKind = "SWEEP_OF_HIGHS"
	SweepLows  SweepKind = "SWEEP_OF_LOWS"
	SweepNone  SweepKind = "NONE"
)

// PriceLevel describes where spot sits relative to detected zones.
type PriceLevel string

const (
	LevelAtDemand PriceLevel = "AT_DEMAND"
	LevelAtSupply PriceLevel = "AT_SUPPLY"
	LevelInRange  PriceLevel = "IN_RANGE"
	LevelNoZone   PriceLevel = "NO_ZONE"
)

// Bias is the aggregate directional lean of the price action.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// PriceActionResult is the layer-2 assessment of zones and structure.
type PriceActionResult struct {
	Zones      []market.Zone   `json:"zones"`
	Structure  MarketStructure `json:"structure"`
	Break      StructureBreak  `json:"break"`
	Sweep      SweepKind       `json:"sweep"`
	PriceLevel PriceLevel      `json:"price_level"`
	ActiveZone *market.Zone    `json:"active_zone,omitempty"` // strongest zone containing spot, nil when none
	Bias       Bias            `json:"bias"`
	BiasValue  float64         `json:"bias_value"`
	Score      float64         `json:"score"` // 0-100
	Reason     string          `json:"reason"`
}

const (
	// zoneTolerance widens a zone when testing spot membership (0.2%).
	zoneTolerance = 0.002
	// zoneProximityPct bounds which zones feed the bias (2% from spot).
	zoneProximityPct = 2.0
	// engulfVolumeRatio is the minimum volume expansion for a valid zone.
	engulfVolumeRatio = 1.5
	// minStructureBars = 5 recent + 10 prior extremes.
	minStructureBars = 15
)

// PriceActionAnalyzer detects supply/demand zones, order blocks, fair value
// gaps and market structure on a single timeframe.
type PriceActionAnalyzer struct{}

func NewPriceActionAnalyzer() *PriceActionAnalyzer {
	return &PriceActionAnalyzer{}
}

// Analyze runs zone and structure detection against the candle history and
// scores the result for the requested side.
func (a *PriceActionAnalyzer) Analyze(candles []market.Candle, spot float64, side market.SignalType) PriceActionResult {
	result := PriceActionResult{
		Structure: StructureRanging,
		Break:     BreakNone,
		Sweep:     SweepNone,
	}

	result.Zones = append(result.Zones, a.detectSupplyDemand(candles)...)
	result.Zones = append(result.Zones, a.detectOrderBlocks(candles)...)
	result.Zones = append(result.Zones, a.detectFVGs(candles)...)

	if len(candles) >= minStructureBars {
		recent := candles[len(candles)-5:]
		prior := candles[len(candles)-15 : len(candles)-5]
		result.Structure = classifyStructure(recent, prior)

		priorHigh, priorLow := extremes(prior)
		last := candles[len(candles)-1]

		if last.Close > priorHigh {
			result.Break = BreakBullish
		} else if last.Close < priorLow {
			result.Break = BreakBearish
		}

		if last.High > priorHigh && last.Close < priorHigh {
			result.Sweep = SweepHighs
		} else if last.Low < priorLow && last.Close > priorLow {
			result.Sweep = SweepLows
		}
	}

	result.ActiveZone = strongestZoneAt(result.Zones, spot)
	switch {
	case result.ActiveZone != nil && result.ActiveZone.Side == market.ZoneBullish:
		result.PriceLevel = LevelAtDemand
	case result.ActiveZone != nil:
		result.PriceLevel = LevelAtSupply
	case len(result.Zones) > 0:
		result.PriceLevel = LevelInRange
	default:
		result.PriceLevel = LevelNoZone
	}

	result.BiasValue = a.bias(result, spot)
	switch {
	case result.BiasValue >= 20:
		result.Bias = BiasBullish
	case result.BiasValue <= -20:
		result.Bias = BiasBearish
	default:
		result.Bias = BiasNeutral
	}

	result.Score = a.score(result, side)
	result.Reason = fmt.Sprintf("%s structure, %d zones, price %s, bias %.0f",
		result.Structure, len(result.Zones), result.PriceLevel, result.BiasValue)
	return result
}

// ============================================================================
// ZONE DETECTION
// ============================================================================

// detectSupplyDemand finds engulfing candles on expanded volume. The zone is
// the prior bar's full range; strength grows with the volume expansion and
// the follow-through over the next three bars.
func (a *PriceActionAnalyzer) detectSupplyDemand(candles []market.Candle) []market.Zone {
	var zones []market.Zone

	for i := 1; i < len(candles)-1; i++ {
		prev := candles[i-1]
		cur := candles[i]
		if prev.Volume <= 0 {
			continue
		}
		volRatio := cur.Volume / prev.Volume
		if volRatio < engulfVolumeRatio {
			continue
		}

		if isBullishEngulfing(prev, cur) {
			zones = append(zones, a.buildZone(candles, i, market.ZoneDemand, market.ZoneBullish, volRatio))
		} else if isBearishEngulfing(prev, cur) {
			zones = append(zones, a.buildZone(candles, i, market.ZoneSupply, market.ZoneBearish, volRatio))
		}
	}
	return zones
}

func (a *PriceActionAnalyzer) buildZone(candles []market.Candle, i int, kind market.ZoneKind, side market.ZoneSide, volRatio float64) market.Zone {
	prev := candles[i-1]
	zone := market.Zone{
		Kind: kind,
		Side: side,
		High: prev.High,
		Low:  prev.Low,
	}

	// Follow-through: close-to-close move over the next three bars, signed
	// so that movement away from the zone is positive.
	end := i + 3
	if end > len(candles)-1 {
		end = len(candles) - 1
	}
	reactionPct := 0.0
	if candles[i].Close > 0 && end > i {
		reactionPct = (candles[end].Close - candles[i].Close) / candles[i].Close * 100
		if side == market.ZoneBearish {
			reactionPct = -reactionPct
		}
	}

	volBonus := math.Min(25, (volRatio-engulfVolumeRatio)*20)
	reactBonus := math.Min(25, reactionPct*10)
	zone.Strength = clampScore(50 + volBonus + reactBonus)

	zone.TimesTested = countTests(candles, i+1, zone)
	zone.Fresh = zone.TimesTested == 0
	return zone
}

// detectOrderBlocks finds small-bodied candles immediately followed by an
// opposite-colour candle at least twice their range.
func (a *PriceActionAnalyzer) detectOrderBlocks(candles []market.Candle) []market.Zone {
	var zones []market.Zone

	for i := 0; i < len(candles)-1; i++ {
		c := candles[i]
		next := candles[i+1]
		if c.Range() <= 0 || c.Body() > 0.5*c.Range() {
			continue
		}
		if next.Range() < 2*c.Range() {
			continue
		}

		var side market.ZoneSide
		switch {
		case c.IsBearish() && next.IsBullish():
			side = market.ZoneBullish
		case c.IsBullish() && next.IsBearish():
			side = market.ZoneBearish
		default:
			continue
		}

		zone := market.Zone{
			Kind:     market.ZoneOrderBlock,
			Side:     side,
			High:     c.High,
			Low:      c.Low,
			Strength: 80,
		}
		zone.TimesTested = countTests(candles, i+2, zone)
		zone.Fresh = zone.TimesTested == 0
		zones = append(zones, zone)
	}
	return zones
}

// detectFVGs finds three-bar gaps of at least 0.1%: bullish when the first
// bar's high never overlaps the third bar's low, bearish for the mirror.
func (a *PriceActionAnalyzer) detectFVGs(candles []market.Candle) []market.Zone {
	var zones []market.Zone

	for i := 0; i < len(candles)-2; i++ {
		first := candles[i]
		third := candles[i+2]

		if first.High < third.Low && first.High > 0 {
			gapPct := (third.Low - first.High) / first.High * 100
			if gapPct >= 0.1 {
				zone := market.Zone{
					Kind:     market.ZoneFVG,
					Side:     market.ZoneBullish,
					High:     third.Low,
					Low:      first.High,
					Strength: 70,
				}
				zone.TimesTested = countTests(candles, i+3, zone)
				zone.Fresh = zone.TimesTested == 0
				zones = append(zones, zone)
			}
		}

		if first.Low > third.High && third.High > 0 {
			gapPct := (first.Low - third.High) / third.High * 100
			if gapPct >= 0.1 {
				zone := market.Zone{
					Kind:     market.ZoneFVG,
					Side:     market.ZoneBearish,
					High:     first.Low,
					Low:      third.High,
					Strength: 70,
				}
				zone.TimesTested = countTests(candles, i+3, zone)
				zone.Fresh = zone.TimesTested == 0
				zones = append(zones, zone)
			}
		}
	}
	return zones
}

func isBullishEngulfing(prev, cur market.Candle) bool {
	if !prev.IsBearish() || !cur.IsBullish() {
		return false
	}
	return cur.Open <= prev.Close && cur.Close >= prev.Open
}

func isBearishEngulfing(prev, cur market.Candle) bool {
	if !prev.IsBullish() || !cur.IsBearish() {
		return false
	}
	return cur.Open >= prev.Close && cur.Close <= prev.Open
}

// countTests counts later bars whose range enters the zone.
func countTests(candles []market.Candle, from int, zone market.Zone) int {
	tests := 0
	for j := from; j < len(candles); j++ {
		if candles[j].Low <= zone.High && candles[j].High >= zone.Low {
			tests++
		}
	}
	return tests
}

// ============================================================================
// STRUCTURE
// ============================================================================

func extremes(candles []market.Candle) (high, low float64) {
	high = candles[0].High
	low = candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

func classifyStructure(recent, prior []market.Candle) MarketStructure {
	recentHigh, recentLow := extremes(recent)
	priorHigh, priorLow := extremes(prior)

	switch {
	case recentHigh > priorHigh && recentLow > priorLow:
		return StructureHigherHighs
	case recentHigh < priorHigh && recentLow < priorLow:
		return StructureLowerLows
	default:
		return StructureRanging
	}
}

// strongestZoneAt returns the strongest zone containing spot within the
// standard tolerance, preferring the earliest on ties.
func strongestZoneAt(zones []market.Zone, spot float64) *market.Zone {
	var best *market.Zone
	for i := range zones {
		if !zones[i].Contains(spot, zoneTolerance) {
			continue
		}
		if best == nil || zones[i].Strength > best.Strength {
			best = &zones[i]
		}
	}
	return best
}

func zoneDistancePct(z market.Zone, spot float64) float64 {
	if spot <= 0 {
		return math.MaxFloat64
	}
	if spot >= z.Low && spot <= z.High {
		return 0
	}
	d := math.Min(math.Abs(spot-z.High), math.Abs(spot-z.Low))
	return d / spot * 100
}

// ============================================================================
// BIAS AND SCORE
// ============================================================================

func (a *PriceActionAnalyzer) bias(r PriceActionResult, spot float64) float64 {
	bias := 0.0

	for _, z := range r.Zones {
		if zoneDistancePct(z, spot) > zoneProximityPct {
			continue
		}
		weight := z.Strength / 20
		if z.Fresh {
			weight = z.Strength / 10
		}
		if z.Side == market.ZoneBullish {
			bias += weight
		} else {
			bias -= weight
		}
	}

	switch r.Structure {
	case StructureHigherHighs:
		bias += 15
	case StructureLowerLows:
		bias -= 15
	}

	switch r.Break {
	case BreakBullish:
		bias += 10
	case BreakBearish:
		bias -= 10
	}

	switch r.Sweep {
	case SweepLows:
		bias += 10
	case SweepHighs:
		bias -= 10
	}

	return bias
}

func (a *PriceActionAnalyzer) score(r PriceActionResult, side market.SignalType) float64 {
	favorableSide := market.ZoneBullish
	if side == market.SignalBuyPut {
		favorableSide = market.ZoneBearish
	}

	score := 0.0
	if r.ActiveZone != nil && r.ActiveZone.Side == favorableSide {
		score += 40
		if r.ActiveZone.Fresh {
			score += 20
		}
	} else if len(r.Zones) > 0 {
		score += 10
	}

	structureAligned := (side == market.SignalBuyCall && r.Structure == StructureHigherHighs) ||
		(side == market.SignalBuyPut && r.Structure == StructureLowerLows)
	if structureAligned {
		score += 20
	} else {
		score += 5
	}

	if (side == market.SignalBuyCall && r.Break == BreakBullish) ||
		(side == market.SignalBuyPut && r.Break == BreakBearish) {
		score += 10
	}

	if (side == market.SignalBuyCall && r.Sweep == SweepLows) ||
		(side == market.SignalBuyPut && r.Sweep == SweepHighs) {
		score += 10
	}

	return clampScore(score)
}
