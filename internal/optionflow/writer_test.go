package optionflow

import (
	"math"
	"testing"

	"neurallempire-signal-engine/internal/market"
)

// TestGatePassesAtIdealRatio tests a 3.0 ratio with bullish flow and a
// supportive PCR scoring the full 100
func TestGatePassesAtIdealRatio(t *testing.T) {
	gate := NewWriterRatioGate()

	chain := &market.OptionChain{
		ATMStrike: 22500,
		Strikes: []market.StrikeData{
			{Strike: 22500, CallOI: 1000, PutOI: 1300, CallOIChange: 100, PutOIChange: 300},
		},
	}

	result := gate.Evaluate(chain, market.SignalBuyCall)

	if !result.Passed || !result.Ideal {
		t.Fatalf("passed=%v ideal=%v, want both true", result.Passed, result.Ideal)
	}
	if result.WriterRatio != 3.0 {
		t.Errorf("WriterRatio = %v, want 3.0", result.WriterRatio)
	}
	if result.Flow != FlowBullish {
		t.Errorf("Flow = %s, want BULLISH", result.Flow)
	}
	if !result.Aligned {
		t.Error("expected flow aligned with BUY_CALL")
	}
	// Ideal tier 50 + alignment 30 + PCR 1.3 bonus 20.
	if result.Score != 100 {
		t.Errorf("Score = %v, want 100", result.Score)
	}
}

// TestGateVetoesBelowMinimum tests the 2.4 ratio veto regardless of flow
func TestGateVetoesBelowMinimum(t *testing.T) {
	gate := NewWriterRatioGate()

	chain := &market.OptionChain{
		ATMStrike: 22500,
		Strikes: []market.StrikeData{
			{Strike: 22500, CallOI: 1000, PutOI: 1000, CallOIChange: 100, PutOIChange: 240},
		},
	}

	result := gate.Evaluate(chain, market.SignalBuyCall)

	if result.Passed {
		t.Fatal("ratio 2.4 must not pass the 2.5 gate")
	}
	if result.Aligned {
		t.Error("a failed gate can never be aligned")
	}
	// Failed scores scale as ratio*16 capped at 40.
	if math.Abs(result.Score-38.4) > 1e-9 {
		t.Errorf("Score = %v, want 38.4", result.Score)
	}
}

// TestWriterOIStrikeFilter tests that only at/above-ATM call writing and
// at/below-ATM put writing count, and negative changes are ignored
func TestWriterOIStrikeFilter(t *testing.T) {
	gate := NewWriterRatioGate()

	chain := &market.OptionChain{
		ATMStrike: 22500,
		Strikes: []market.StrikeData{
			// Below ATM: call change must not count, put change must.
			{Strike: 22400, CallOIChange: 500, PutOIChange: 200},
			// ATM: both count.
			{Strike: 22500, CallOIChange: 100, PutOIChange: 150},
			// Above ATM: call change counts, put change must not.
			{Strike: 22600, CallOIChange: 80, PutOIChange: 999},
			// Unwinding is not writing.
			{Strike: 22700, CallOIChange: -50},
		},
	}

	result := gate.Evaluate(chain, market.SignalBuyCall)

	if result.CallWriterOI != 180 {
		t.Errorf("CallWriterOI = %v, want 180", result.CallWriterOI)
	}
	if result.PutWriterOI != 350 {
		t.Errorf("PutWriterOI = %v, want 350", result.PutWriterOI)
	}
	if result.Passed {
		t.Errorf("ratio %v should fail the gate", result.WriterRatio)
	}
}

// TestDegenerateDenominators tests the 999/0 substitution rules
func TestDegenerateDenominators(t *testing.T) {
	gate := NewWriterRatioGate()

	// Put writing with zero call writing: infinite support for calls.
	chain := &market.OptionChain{
		ATMStrike: 22500,
		Strikes: []market.StrikeData{
			{Strike: 22500, PutOIChange: 300},
		},
	}
	result := gate.Evaluate(chain, market.SignalBuyCall)
	if result.WriterRatio != 999 {
		t.Errorf("WriterRatio = %v, want 999", result.WriterRatio)
	}
	if !result.Passed {
		t.Error("degenerate 999 ratio should pass the gate")
	}

	// No writing anywhere: ratio collapses to zero and fails.
	empty := &market.OptionChain{
		ATMStrike: 22500,
		Strikes:   []market.StrikeData{{Strike: 22500}},
	}
	result = gate.Evaluate(empty, market.SignalBuyCall)
	if result.WriterRatio != 0 {
		t.Errorf("WriterRatio = %v, want 0", result.WriterRatio)
	}
	if result.Passed {
		t.Error("zero ratio must fail")
	}
	if result.Score != 0 {
		t.Errorf("Score = %v, want 0", result.Score)
	}
}

// TestPutSideScoring tests the symmetric ratio and PCR bonus for BUY_PUT
func TestPutSideScoring(t *testing.T) {
	gate := NewWriterRatioGate()

	chain := &market.OptionChain{
		ATMStrike: 22500,
		Strikes: []market.StrikeData{
			{Strike: 22500, CallOI: 1000, PutOI: 700, CallOIChange: 250, PutOIChange: 100},
		},
	}

	result := gate.Evaluate(chain, market.SignalBuyPut)

	if result.WriterRatio != 2.5 {
		t.Errorf("WriterRatio = %v, want 2.5", result.WriterRatio)
	}
	if !result.Passed || result.Ideal {
		t.Fatalf("passed=%v ideal=%v, want passed only", result.Passed, result.Ideal)
	}
	if result.Flow != FlowBearish {
		t.Errorf("Flow = %s, want BEARISH", result.Flow)
	}
	// Pass tier 40 + alignment 30 + PCR 0.7 bonus 20.
	if result.Score != 90 {
		t.Errorf("Score = %v, want 90", result.Score)
	}
}

// TestScoreMonotonicInRatio tests that a stronger ratio never scores lower
func TestScoreMonotonicInRatio(t *testing.T) {
	gate := NewWriterRatioGate()

	prev := -1.0
	for _, putWriting := range []float64{50, 100, 200, 260, 300, 500} {
		chain := &market.OptionChain{
			ATMStrike: 22500,
			Strikes: []market.StrikeData{
				{Strike: 22500, CallOI: 1000, PutOI: 1200, CallOIChange: 100, PutOIChange: putWriting},
			},
		}
		result := gate.Evaluate(chain, market.SignalBuyCall)
		if result.Score < prev {
			t.Errorf("score dropped to %v at put writing %v (prev %v)", result.Score, putWriting, prev)
		}
		prev = result.Score
	}
}

// TestMaxPain tests the scan on a hand-checked chain
func TestMaxPain(t *testing.T) {
	chain := &market.OptionChain{
		ATMStrike: 110,
		Strikes: []market.StrikeData{
			{Strike: 100, CallOI: 10, PutOI: 30},
			{Strike: 110, CallOI: 20, PutOI: 20},
			{Strike: 120, CallOI: 30, PutOI: 10},
		},
	}

	// pain(100)=400, pain(110)=200, pain(120)=400.
	if got := MaxPain(chain); got != 110 {
		t.Errorf("MaxPain = %v, want 110", got)
	}
}

// TestMaxPainTieBreaksLow tests that equal pain resolves to the lower strike
func TestMaxPainTieBreaksLow(t *testing.T) {
	chain := &market.OptionChain{
		ATMStrike: 110,
		Strikes: []market.StrikeData{
			{Strike: 120, PutOI: 10},
			{Strike: 100, CallOI: 10},
		},
	}

	// Both strikes carry pain 200.
	if got := MaxPain(chain); got != 100 {
		t.Errorf("MaxPain = %v, want the lower strike 100", got)
	}
}

// TestNilChain tests the guard on missing data
func TestNilChain(t *testing.T) {
	gate := NewWriterRatioGate()

	result := gate.Evaluate(nil, market.SignalBuyCall)
	if result.Passed || result.Score != 0 {
		t.Errorf("nil chain: passed=%v score=%v, want veto with 0", result.Passed, result.Score)
	}
}
