package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"neurallempire-signal-engine/internal/analysis"
	"neurallempire-signal-engine/internal/events"
	"neurallempire-signal-engine/internal/optionflow"
	"neurallempire-signal-engine/internal/risk"
)

// Decision thresholds on the overall score.
const (
	ExecuteThreshold = 70.0
	WaitThreshold    = 50.0

	// DefaultStopLossPct and DefaultTargetPct back the exit levels when the
	// request does not override them.
	DefaultStopLossPct = 2.0
	DefaultTargetPct   = 5.0
)

// SignalStore is the append-only ledger the orchestrator writes one row to
// per evaluation.
type SignalStore interface {
	InsertSignal(ctx context.Context, signal *TradingSignal) error
}

// Config tunes the orchestrator. Zero values fall back to engine defaults.
type Config struct {
	MaxOpenPositions    int     `json:"max_open_positions"`
	MaxPortfolioRiskPct float64 `json:"max_portfolio_risk_pct"`
	StopLossPct         float64 `json:"stop_loss_pct"`
	TargetPct           float64 `json:"target_pct"`
}

// Orchestrator runs the seven-layer pipeline for one candidate option trade:
// regime, price action, timeframe alignment and volatility in parallel, then
// the writer-ratio gate, and only past that gate the risk filter and the
// position sizer. It records exactly one ledger row per evaluation that
// clears validation.
type Orchestrator struct {
	regime      *analysis.MarketRegimeAnalyzer
	priceAction *analysis.PriceActionAnalyzer
	timeframes  *analysis.MultiTimeframeAligner
	volatility  *analysis.VolatilityAnalyzer
	writerGate  *optionflow.WriterRatioGate
	riskFilter  *risk.RiskRegimeFilter
	sizer       *risk.PortfolioSizer

	store  SignalStore
	bus    *events.EventBus
	logger zerolog.Logger

	stopLossPct float64
	targetPct   float64
}

// NewOrchestrator wires the seven layers. The bus may be nil when no event
// consumers exist (offline evaluation).
func NewOrchestrator(cfg Config, store SignalStore, bus *events.EventBus, logger zerolog.Logger) *Orchestrator {
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = DefaultStopLossPct
	}
	if cfg.TargetPct <= 0 {
		cfg.TargetPct = DefaultTargetPct
	}
	return &Orchestrator{
		regime:      analysis.NewMarketRegimeAnalyzer(),
		priceAction: analysis.NewPriceActionAnalyzer(),
		timeframes:  analysis.NewMultiTimeframeAligner(),
		volatility:  analysis.NewVolatilityAnalyzer(),
		writerGate:  optionflow.NewWriterRatioGate(),
		riskFilter:  risk.NewRiskRegimeFilter(),
		sizer:       risk.NewPortfolioSizer(cfg.MaxOpenPositions, cfg.MaxPortfolioRiskPct),
		store:       store,
		bus:         bus,
		logger:      logger.With().Str("component", "Orchestrator").Logger(),
		stopLossPct: cfg.StopLossPct,
		targetPct:   cfg.TargetPct,
	}
}

// Evaluate runs the full pipeline and persists the verdict. Validation and
// data errors return before anything is written; past that point exactly one
// ledger row is recorded, and a failed write surfaces ErrPersistence with
// the computed (but unrecorded) response.
func (o *Orchestrator) Evaluate(ctx context.Context, req *SignalRequest) (*SignalResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	entry, err := targetPremium(req)
	if err != nil {
		return nil, err
	}

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	stop := entry * (1 - o.stopLossPct/100)
	if req.StopLoss > 0 {
		stop = req.StopLoss
	}
	target := entry * (1 + o.targetPct/100)
	if req.Target > 0 {
		target = req.Target
	}

	// Layers 1-4 are pure and independent; run them concurrently. Each
	// goroutine writes its own field of the report.
	report := Analysis{}
	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		report.Regime = o.regime.Analyze(req.History, req.Spot, req.VIX)
	}()
	go func() {
		defer wg.Done()
		report.PriceAction = o.priceAction.Analyze(req.History, req.Spot, req.SignalType)
	}()
	go func() {
		defer wg.Done()
		report.Timeframes = o.timeframes.Analyze(req.HourlyBars, req.FifteenMinBars, req.FiveMinBars)
	}()
	go func() {
		defer wg.Done()
		report.Volatility = o.volatility.Analyze(req.History, req.VIX, req.VIXHistory, req.Chain)
	}()
	wg.Wait()

	// Layer 5 is the mandatory gate: when writers are against the trade no
	// amount of technical alignment rescues it.
	report.WriterGate = o.writerGate.Evaluate(req.Chain, req.SignalType)
	if !report.WriterGate.Passed {
		reason := "WRITER_RATIO_FAILED: " + report.WriterGate.Reason
		signal := o.buildSignal(req, asOf, entry, stop, target, &report, StatusRejected, reason)

		o.logger.Warn().
			Str("symbol", req.Symbol).
			Float64("writer_ratio", report.WriterGate.WriterRatio).
			Msg("writer ratio veto")

		resp := &SignalResponse{
			Success:         true,
			Signal:          signal,
			Analysis:        report,
			OverallScore:    signal.OverallScore,
			Recommendation:  DecisionReject,
			RejectionReason: reason,
		}
		if err := o.persist(ctx, signal, resp); err != nil {
			return resp, err
		}
		o.publish(signal, DecisionReject)
		return resp, nil
	}

	report.RiskFilter = o.riskFilter.Evaluate(asOf, req.Expiry, req.VIX, req.Events, req.Market)
	report.Sizing = o.sizer.Size(req.Portfolio, entry, stop, req.LotSize)

	overall := overallScore(&report)
	decision, reason := o.decide(&report, overall)

	status := StatusRejected
	if decision == DecisionExecute {
		status = StatusApproved
	}
	signal := o.buildSignal(req, asOf, entry, stop, target, &report, status, reason)

	resp := &SignalResponse{
		Success:        true,
		Signal:         signal,
		Analysis:       report,
		OverallScore:   overall,
		Recommendation: decision,
	}
	if decision == DecisionReject {
		resp.RejectionReason = reason
	}
	if decision == DecisionExecute {
		resp.ExecutionDetails = &ExecutionDetails{
			EntryPrice:        entry,
			StopLoss:          stop,
			Target:            target,
			Quantity:          report.Sizing.Quantity,
			CapitalToAllocate: report.Sizing.CapitalToAllocate,
			RiskAmount:        report.Sizing.RiskAmount,
		}
	}

	if err := o.persist(ctx, signal, resp); err != nil {
		return resp, err
	}
	o.publish(signal, decision)

	o.logger.Info().
		Str("symbol", req.Symbol).
		Str("decision", string(decision)).
		Float64("overall_score", overall).
		Int("quantity", signal.Quantity).
		Msg("signal evaluated")

	return resp, nil
}

// decide maps the layer verdicts onto EXECUTE/WAIT/REJECT. The risk filter
// downgrades to WAIT (conditions may clear), a sizing rejection is terminal,
// and otherwise the overall score decides.
func (o *Orchestrator) decide(report *Analysis, overall float64) (Decision, string) {
	if !report.RiskFilter.TradingAllowed {
		return DecisionWait, fmt.Sprintf("WAIT: %s", report.RiskFilter.Reason)
	}
	if !report.Sizing.PositionAllowed {
		return DecisionReject, fmt.Sprintf("POSITION_NOT_ALLOWED: %s", report.Sizing.Reason)
	}
	switch {
	case overall >= ExecuteThreshold:
		return DecisionExecute, fmt.Sprintf("EXECUTE: overall score %.1f", overall)
	case overall >= WaitThreshold:
		return DecisionWait, fmt.Sprintf("WAIT: overall score %.1f below execution threshold", overall)
	default:
		return DecisionReject, fmt.Sprintf("REJECTED: overall score %.1f below minimum", overall)
	}
}

// overallScore weights the writer gate double: it is the only layer with
// veto power and its conviction counts twice in the blend.
func overallScore(report *Analysis) float64 {
	return (report.Regime.Score +
		report.PriceAction.Score +
		report.Timeframes.Score +
		report.Volatility.Score +
		2*report.WriterGate.Score +
		report.RiskFilter.Score +
		report.Sizing.Score) / 8
}

func (o *Orchestrator) buildSignal(req *SignalRequest, asOf time.Time, entry, stop, target float64,
	report *Analysis, status SignalStatus, reason string) *TradingSignal {
	return &TradingSignal{
		ID:         uuid.New().String(),
		Symbol:     req.Symbol,
		Strike:     req.Strike,
		Expiry:     req.Expiry,
		OptionType: req.OptionType,
		SignalType: req.SignalType,

		EntryPrice: entry,
		StopLoss:   stop,
		Target:     target,
		Quantity:   report.Sizing.Quantity,

		RegimeScore:      report.Regime.Score,
		PriceActionScore: report.PriceAction.Score,
		TimeframeScore:   report.Timeframes.Score,
		VolatilityScore:  report.Volatility.Score,
		WriterScore:      report.WriterGate.Score,
		RiskScore:        report.RiskFilter.Score,
		SizingScore:      report.Sizing.Score,

		WriterRatio:       report.WriterGate.WriterRatio,
		WriterRatioPassed: report.WriterGate.Passed,
		OverallScore:      overallScore(report),

		Status:       status,
		StatusReason: reason,
		CreatedAt:    asOf,
	}
}

func (o *Orchestrator) persist(ctx context.Context, signal *TradingSignal, resp *SignalResponse) error {
	if err := o.store.InsertSignal(ctx, signal); err != nil {
		o.logger.Error().Err(err).
			Str("signal_id", signal.ID).
			Str("symbol", signal.Symbol).
			Msg("signal ledger write failed")
		resp.Success = false
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (o *Orchestrator) publish(signal *TradingSignal, decision Decision) {
	if o.bus == nil {
		return
	}
	o.bus.PublishSignalGenerated(signal.ID, signal.Symbol, string(signal.SignalType),
		string(decision), signal.OverallScore)
	if signal.Status == StatusApproved {
		o.bus.PublishSignalApproved(signal.ID, signal.Symbol, signal.Quantity, signal.EntryPrice)
	} else {
		o.bus.PublishSignalRejected(signal.ID, signal.Symbol, signal.StatusReason)
	}
}
