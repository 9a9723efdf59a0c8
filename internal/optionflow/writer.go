// Package optionflow reads institutional positioning out of an option chain:
// writer-ratio gating, put/call ratio and max pain. Everything here is a pure
// function of the chain snapshot.
package optionflow

import (
	"fmt"
	"sort"

	"neurallempire-signal-engine/internal/market"
)

// InstitutionalFlow is the direction option writers are leaning.
type InstitutionalFlow string

const (
	FlowBullish InstitutionalFlow = "BULLISH"
	FlowBearish InstitutionalFlow = "BEARISH"
	FlowNeutral InstitutionalFlow = "NEUTRAL"
)

const (
	// MinWriterRatio is the hard gate: below it the trade is vetoed.
	MinWriterRatio = 2.5
	// IdealWriterRatio marks conviction strong enough for the top score tier.
	IdealWriterRatio = 3.0

	// degenerateRatio stands in for division by a zero writer base.
	degenerateRatio = 999

	// flowThreshold: put/call writing beyond 1.5x (either way) is directional.
	flowThreshold = 1.5
)

// WriterResult is the layer-5 verdict. Passed=false is a mandatory veto that
// the orchestrator must honor regardless of every other layer.
type WriterResult struct {
	TotalCallOI       float64 `json:"total_call_oi"`
	TotalPutOI        float64 `json:"total_put_oi"`
	TotalCallOIChange float64 `json:"total_call_oi_change"`
	TotalPutOIChange  float64 `json:"total_put_oi_change"`

	CallWriterOI float64 `json:"call_writer_oi"` // fresh call writing at/above ATM
	PutWriterOI  float64 `json:"put_writer_oi"`  // fresh put writing at/below ATM

	WriterRatio float64           `json:"writer_ratio"`
	Passed      bool              `json:"passed"`
	Ideal       bool              `json:"ideal"`
	Flow        InstitutionalFlow `json:"flow"`
	Aligned     bool              `json:"aligned"`
	PCR         float64           `json:"pcr"`
	MaxPain     float64           `json:"max_pain"`
	Score       float64           `json:"score"` // 0-100
	Reason      string            `json:"reason"`
}

// WriterRatioGate estimates where option writers are committing fresh margin
// and vetoes trades that fight them.
type WriterRatioGate struct{}

func NewWriterRatioGate() *WriterRatioGate {
	return &WriterRatioGate{}
}

// Evaluate computes the writer ratio for the requested side. Writer OI is
// estimated from positive OI change, not absolute OI: calls at or above ATM
// and puts at or below ATM are where writers sell into the move.
func (g *WriterRatioGate) Evaluate(chain *market.OptionChain, side market.SignalType) WriterResult {
	result := WriterResult{Flow: FlowNeutral}
	if chain == nil || len(chain.Strikes) == 0 {
		result.Reason = "no option chain data"
		return result
	}

	for _, s := range chain.Strikes {
		result.TotalCallOI += s.CallOI
		result.TotalPutOI += s.PutOI
		result.TotalCallOIChange += s.CallOIChange
		result.TotalPutOIChange += s.PutOIChange

		if s.Strike >= chain.ATMStrike && s.CallOIChange > 0 {
			result.CallWriterOI += s.CallOIChange
		}
		if s.Strike <= chain.ATMStrike && s.PutOIChange > 0 {
			result.PutWriterOI += s.PutOIChange
		}
	}

	bullishRatio := safeRatio(result.PutWriterOI, result.CallWriterOI)
	if side == market.SignalBuyPut {
		result.WriterRatio = safeRatio(result.CallWriterOI, result.PutWriterOI)
	} else {
		result.WriterRatio = bullishRatio
	}

	result.Passed = result.WriterRatio >= MinWriterRatio
	result.Ideal = result.WriterRatio >= IdealWriterRatio

	switch {
	case bullishRatio >= flowThreshold:
		result.Flow = FlowBullish
	case bullishRatio <= 1/flowThreshold:
		result.Flow = FlowBearish
	}

	result.Aligned = result.Passed && flowMatches(result.Flow, side)
	result.PCR = safeRatio(result.TotalPutOI, result.TotalCallOI)
	result.MaxPain = MaxPain(chain)
	result.Score = g.score(result, side)

	if result.Passed {
		result.Reason = fmt.Sprintf("writer ratio %.2f (min %.1f), flow %s, PCR %.2f",
			result.WriterRatio, MinWriterRatio, result.Flow, result.PCR)
	} else {
		result.Reason = fmt.Sprintf("writer ratio %.2f below %.1f minimum (call writers %.0f, put writers %.0f)",
			result.WriterRatio, MinWriterRatio, result.CallWriterOI, result.PutWriterOI)
	}
	return result
}

func (g *WriterRatioGate) score(r WriterResult, side market.SignalType) float64 {
	if !r.Passed {
		score := r.WriterRatio * 16
		if score > 40 {
			score = 40
		}
		return clamp(score)
	}

	score := 40.0
	if r.WriterRatio >= IdealWriterRatio {
		score = 50
	}

	if r.Aligned {
		score += 30
	} else {
		score += 5
	}

	score += pcrBonus(r.PCR, side)
	return clamp(score)
}

func pcrBonus(pcr float64, side market.SignalType) float64 {
	if side == market.SignalBuyPut {
		switch {
		case pcr <= 0.8:
			return 20
		case pcr <= 1.0:
			return 10
		default:
			return 5
		}
	}
	switch {
	case pcr >= 1.2:
		return 20
	case pcr >= 1.0:
		return 10
	default:
		return 5
	}
}

func flowMatches(flow InstitutionalFlow, side market.SignalType) bool {
	return (side == market.SignalBuyCall && flow == FlowBullish) ||
		(side == market.SignalBuyPut && flow == FlowBearish)
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		if num > 0 {
			return degenerateRatio
		}
		return 0
	}
	return num / den
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// MaxPain scans every strike as a candidate expiry price and returns the one
// minimizing aggregate writer payout. Ties go to the lowest strike.
func MaxPain(chain *market.OptionChain) float64 {
	if chain == nil || len(chain.Strikes) == 0 {
		return 0
	}

	strikes := make([]market.StrikeData, len(chain.Strikes))
	copy(strikes, chain.Strikes)
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	bestStrike := strikes[0].Strike
	bestPain := painAt(strikes, bestStrike)
	for _, candidate := range strikes[1:] {
		if pain := painAt(strikes, candidate.Strike); pain < bestPain {
			bestPain = pain
			bestStrike = candidate.Strike
		}
	}
	return bestStrike
}

// painAt totals what writers pay out if the market settles at price k.
func painAt(strikes []market.StrikeData, k float64) float64 {
	pain := 0.0
	for _, s := range strikes {
		if k > s.Strike {
			pain += s.CallOI * (k - s.Strike)
		}
		if s.Strike > k {
			pain += s.PutOI * (s.Strike - k)
		}
	}
	return pain
}
