package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurallempire-signal-engine/internal/market"
)

type fakeStore struct {
	inserted []*TradingSignal
	err      error
}

func (f *fakeStore) InsertSignal(ctx context.Context, signal *TradingSignal) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, signal)
	return nil
}

func newTestOrchestrator(store SignalStore) *Orchestrator {
	return NewOrchestrator(Config{}, store, nil, zerolog.Nop())
}

var testZone = time.FixedZone("IST", 5*3600+30*60)

// sessionClock returns a mid-week trading day at the given session time.
func sessionClock(hour, min int) time.Time {
	return time.Date(2025, 6, 10, hour, min, 0, 0, testZone)
}

func dailyHistory(n int) []market.Candle {
	candles := make([]market.Candle, n)
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		open := 24000.0 + float64(i)*20
		candles[i] = market.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      open,
			High:      open + 35,
			Low:       open - 15,
			Close:     open + 20,
			Volume:    100000 + float64(i%7)*5000,
		}
	}
	return candles
}

func intradayBars(n int, step time.Duration, base float64) []market.Candle {
	candles := make([]market.Candle, n)
	start := time.Date(2025, 6, 9, 9, 15, 0, 0, testZone)
	for i := range candles {
		open := base + float64(i)*5
		candles[i] = market.Candle{
			Timestamp: start.Add(time.Duration(i) * step),
			Open:      open,
			High:      open + 9,
			Low:       open - 4,
			Close:     open + 5,
			Volume:    40000,
		}
	}
	return candles
}

// chainFixture builds a seven-strike chain around the target. Put and call
// OI change control which side writers are committing to.
func chainFixture(target, callOIChange, putOIChange float64) *market.OptionChain {
	chain := &market.OptionChain{
		Symbol:       "NIFTY",
		Expiry:       time.Date(2025, 6, 26, 15, 30, 0, 0, testZone),
		ATMStrike:    25600,
		TargetStrike: target,
	}
	for strike := 25400.0; strike <= 26000; strike += 100 {
		row := market.StrikeData{
			Strike:       strike,
			CallOI:       60000,
			PutOI:        90000,
			CallOIChange: callOIChange,
			PutOIChange:  putOIChange,
			CallVolume:   25000,
			PutVolume:    30000,
			CallLTP:      150,
			PutLTP:       80,
			ImpliedVol:   14,
		}
		chain.Strikes = append(chain.Strikes, row)
	}
	return chain
}

func bullishChain(target float64) *market.OptionChain {
	return chainFixture(target, 8000, 60000) // put writers dominate, ratio 4.5
}

func bearishChain(target float64) *market.OptionChain {
	return chainFixture(target, 50000, 1000) // call writers dominate, ratio 0.012
}

func vixSeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = 10 + float64(i%10)
	}
	return series
}

func callRequest() *SignalRequest {
	history := dailyHistory(80)
	return &SignalRequest{
		Symbol:         "NIFTY",
		Spot:           25600,
		Strike:         25700,
		Expiry:         time.Date(2025, 6, 26, 15, 30, 0, 0, testZone),
		OptionType:     market.OptionCall,
		SignalType:     market.SignalBuyCall,
		VIX:            14,
		VIXHistory:     vixSeries(30),
		History:        history,
		HourlyBars:     intradayBars(60, time.Hour, 25300),
		FifteenMinBars: intradayBars(60, 15*time.Minute, 25500),
		FiveMinBars:    intradayBars(60, 5*time.Minute, 25560),
		Chain:          bullishChain(25700),
		Market:         market.MarketStatus{CurrentVolume: 100, AverageVolume: 100},
		Portfolio: &market.PortfolioState{
			TotalCapital:     1000000,
			AvailableCapital: 800000,
			History: market.TradeStats{
				TotalTrades:  50,
				WinRate:      0.55,
				AvgWin:       1500,
				AvgLoss:      1000,
				ProfitFactor: 1.8,
			},
		},
		AsOf:    sessionClock(10, 30),
		LotSize: 75,
	}
}

func TestEvaluateRecordsExactlyOneRow(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	resp, err := o.Evaluate(context.Background(), callRequest())
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, store.inserted, 1)

	row := store.inserted[0]
	assert.True(t, resp.Success)
	assert.Same(t, row, resp.Signal)
	assert.NotEmpty(t, row.ID)
	assert.True(t, row.CreatedAt.Equal(sessionClock(10, 30)))
	assert.True(t, row.WriterRatioPassed)
	assert.Equal(t, "NIFTY", row.Symbol)
	assert.Equal(t, 25700.0, row.Strike)

	switch resp.Recommendation {
	case DecisionExecute:
		assert.Equal(t, StatusApproved, row.Status)
		require.NotNil(t, resp.ExecutionDetails)
		assert.Equal(t, resp.Analysis.Sizing.Quantity, resp.ExecutionDetails.Quantity)
		assert.Equal(t, resp.Analysis.Sizing.CapitalToAllocate, resp.ExecutionDetails.CapitalToAllocate)
		assert.Empty(t, resp.RejectionReason)
	case DecisionWait:
		assert.Equal(t, StatusRejected, row.Status)
		assert.Nil(t, resp.ExecutionDetails)
		assert.Empty(t, resp.RejectionReason)
	case DecisionReject:
		assert.Equal(t, StatusRejected, row.Status)
		assert.Nil(t, resp.ExecutionDetails)
		assert.NotEmpty(t, resp.RejectionReason)
	default:
		t.Fatalf("unexpected recommendation %q", resp.Recommendation)
	}
}

func TestOverallScoreWeightsWriterGateTwice(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	resp, err := o.Evaluate(context.Background(), callRequest())
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)

	row := store.inserted[0]
	expected := (row.RegimeScore + row.PriceActionScore + row.TimeframeScore +
		row.VolatilityScore + 2*row.WriterScore + row.RiskScore + row.SizingScore) / 8
	assert.InDelta(t, expected, row.OverallScore, 1e-9)
	assert.InDelta(t, row.OverallScore, resp.OverallScore, 1e-9)
}

func TestWriterVetoShortCircuits(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	req := callRequest()
	req.Chain = bearishChain(25700)

	resp, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Len(t, store.inserted, 1)

	assert.True(t, resp.Success)
	assert.Equal(t, DecisionReject, resp.Recommendation)
	assert.True(t, strings.HasPrefix(resp.RejectionReason, "WRITER_RATIO_FAILED: "),
		"reason %q", resp.RejectionReason)
	assert.Nil(t, resp.ExecutionDetails)

	row := store.inserted[0]
	assert.Equal(t, StatusRejected, row.Status)
	assert.Equal(t, resp.RejectionReason, row.StatusReason)
	assert.False(t, row.WriterRatioPassed)

	// The risk filter and sizer never ran, so their scores stay zero in the
	// ledger and in the blended score.
	assert.Zero(t, row.RiskScore)
	assert.Zero(t, row.SizingScore)
	assert.Zero(t, resp.Analysis.RiskFilter.Score)
	assert.Zero(t, resp.Analysis.Sizing.Score)
}

func TestValidationErrorsPersistNothing(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignalRequest)
	}{
		{"missing symbol", func(r *SignalRequest) { r.Symbol = "" }},
		{"zero spot", func(r *SignalRequest) { r.Spot = 0 }},
		{"zero strike", func(r *SignalRequest) { r.Strike = 0 }},
		{"zero expiry", func(r *SignalRequest) { r.Expiry = time.Time{} }},
		{"unknown signal type", func(r *SignalRequest) { r.SignalType = "STRADDLE" }},
		{"call signal with put option", func(r *SignalRequest) { r.OptionType = market.OptionPut }},
		{"empty history", func(r *SignalRequest) { r.History = nil }},
		{"nil chain", func(r *SignalRequest) { r.Chain = nil }},
		{"nil portfolio", func(r *SignalRequest) { r.Portfolio = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			o := newTestOrchestrator(store)

			req := callRequest()
			tt.mutate(req)

			resp, err := o.Evaluate(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)
			assert.Nil(t, resp)
			assert.Empty(t, store.inserted)
		})
	}
}

func TestUnusableChainDataPersistsNothing(t *testing.T) {
	t.Run("strike not quoted", func(t *testing.T) {
		store := &fakeStore{}
		o := newTestOrchestrator(store)

		req := callRequest()
		req.Strike = 99999

		resp, err := o.Evaluate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUpstreamData), "got %v", err)
		assert.Nil(t, resp)
		assert.Empty(t, store.inserted)
	})

	t.Run("no traded premium", func(t *testing.T) {
		store := &fakeStore{}
		o := newTestOrchestrator(store)

		req := callRequest()
		for i := range req.Chain.Strikes {
			req.Chain.Strikes[i].CallLTP = 0
		}

		resp, err := o.Evaluate(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUpstreamData), "got %v", err)
		assert.Nil(t, resp)
		assert.Empty(t, store.inserted)
	})
}

func TestPersistenceFailureSurfacesError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	o := newTestOrchestrator(store)

	resp, err := o.Evaluate(context.Background(), callRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence), "got %v", err)

	// The verdict is still reported so the caller can see what was lost.
	require.NotNil(t, resp)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Signal)
	assert.NotEmpty(t, resp.Recommendation)
	assert.Empty(t, store.inserted)
}

func TestDecisionBoundaries(t *testing.T) {
	o := newTestOrchestrator(&fakeStore{})

	clear := &Analysis{}
	clear.RiskFilter.TradingAllowed = true
	clear.Sizing.PositionAllowed = true

	tests := []struct {
		name    string
		overall float64
		want    Decision
	}{
		{"at execute threshold", 70, DecisionExecute},
		{"just below execute", 69.99, DecisionWait},
		{"at wait threshold", 50, DecisionWait},
		{"just below wait", 49.99, DecisionReject},
		{"top score", 100, DecisionExecute},
		{"zero score", 0, DecisionReject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, reason := o.decide(clear, tt.overall)
			assert.Equal(t, tt.want, decision)
			assert.NotEmpty(t, reason)
		})
	}

	t.Run("risk filter block downgrades to WAIT", func(t *testing.T) {
		blocked := &Analysis{}
		blocked.RiskFilter.TradingAllowed = false
		blocked.RiskFilter.Reason = "lunch hour"
		blocked.Sizing.PositionAllowed = true

		decision, reason := o.decide(blocked, 95)
		assert.Equal(t, DecisionWait, decision)
		assert.True(t, strings.HasPrefix(reason, "WAIT: "), "reason %q", reason)
	})

	t.Run("sizing rejection is terminal", func(t *testing.T) {
		unsized := &Analysis{}
		unsized.RiskFilter.TradingAllowed = true
		unsized.Sizing.PositionAllowed = false
		unsized.Sizing.Reason = "no positive Kelly edge"

		decision, reason := o.decide(unsized, 95)
		assert.Equal(t, DecisionReject, decision)
		assert.True(t, strings.HasPrefix(reason, "POSITION_NOT_ALLOWED: "), "reason %q", reason)
	})
}

func TestLunchHourEvaluationWaits(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	req := callRequest()
	req.AsOf = sessionClock(12, 30)

	resp, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)

	assert.Equal(t, DecisionWait, resp.Recommendation)
	assert.False(t, resp.Analysis.RiskFilter.TradingAllowed)
	assert.Equal(t, StatusRejected, store.inserted[0].Status)
	assert.Nil(t, resp.ExecutionDetails)
}

func TestExitLevels(t *testing.T) {
	t.Run("defaults from entry premium", func(t *testing.T) {
		store := &fakeStore{}
		o := newTestOrchestrator(store)

		_, err := o.Evaluate(context.Background(), callRequest())
		require.NoError(t, err)
		require.Len(t, store.inserted, 1)

		row := store.inserted[0]
		assert.Equal(t, 150.0, row.EntryPrice) // chain CallLTP at target strike
		assert.InDelta(t, 147.0, row.StopLoss, 1e-9)
		assert.InDelta(t, 157.5, row.Target, 1e-9)
	})

	t.Run("request overrides", func(t *testing.T) {
		store := &fakeStore{}
		o := newTestOrchestrator(store)

		req := callRequest()
		req.StopLoss = 145
		req.Target = 162

		_, err := o.Evaluate(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, store.inserted, 1)

		row := store.inserted[0]
		assert.Equal(t, 145.0, row.StopLoss)
		assert.Equal(t, 162.0, row.Target)
	})
}

func TestZeroAsOfDefaultsToNow(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	req := callRequest()
	req.AsOf = time.Time{}

	resp, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)
	assert.WithinDuration(t, time.Now(), store.inserted[0].CreatedAt, 5*time.Second)
	assert.NotNil(t, resp.Signal)
}

func TestEvaluationIsDeterministic(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	first, err := o.Evaluate(context.Background(), callRequest())
	require.NoError(t, err)
	second, err := o.Evaluate(context.Background(), callRequest())
	require.NoError(t, err)
	require.Len(t, store.inserted, 2)

	assert.Equal(t, first.Recommendation, second.Recommendation)
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, first.Signal.RegimeScore, second.Signal.RegimeScore)
	assert.Equal(t, first.Signal.WriterScore, second.Signal.WriterScore)
	assert.Equal(t, first.Signal.SizingScore, second.Signal.SizingScore)
	assert.NotEqual(t, first.Signal.ID, second.Signal.ID)
}

func TestPutSignalAgainstCallWriters(t *testing.T) {
	store := &fakeStore{}
	o := newTestOrchestrator(store)

	// For a put buyer the gate inverts: call writers committing fresh margin
	// is the confirming side.
	req := callRequest()
	req.SignalType = market.SignalBuyPut
	req.OptionType = market.OptionPut
	req.Chain = bearishChain(25700)

	resp, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, store.inserted, 1)

	assert.True(t, resp.Analysis.WriterGate.Passed)
	assert.True(t, store.inserted[0].WriterRatioPassed)
	assert.Equal(t, 80.0, store.inserted[0].EntryPrice) // chain PutLTP at target strike
}
