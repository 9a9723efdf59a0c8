package engine

import (
	"time"

	"neurallempire-signal-engine/internal/analysis"
	"neurallempire-signal-engine/internal/market"
	"neurallempire-signal-engine/internal/optionflow"
	"neurallempire-signal-engine/internal/risk"
)

// Decision is the final verdict for one evaluation.
type Decision string

const (
	DecisionExecute Decision = "EXECUTE"
	DecisionWait    Decision = "WAIT"
	DecisionReject  Decision = "REJECT"
)

// SignalStatus is the status recorded on the signal ledger. The ledger knows
// only two states: a WAIT verdict is recorded as REJECTED with the WAIT
// context in the status reason.
type SignalStatus string

const (
	StatusApproved SignalStatus = "APPROVED"
	StatusRejected SignalStatus = "REJECTED"
)

// SignalRequest carries everything one evaluation needs. The engine never
// fetches data on its own; all market inputs arrive here.
type SignalRequest struct {
	Symbol     string            `json:"symbol"`
	Spot       float64           `json:"spot"`
	Strike     float64           `json:"strike"`
	Expiry     time.Time         `json:"expiry"`
	OptionType market.OptionType `json:"option_type"`
	SignalType market.SignalType `json:"signal_type"`

	VIX        float64   `json:"vix"`
	VIXHistory []float64 `json:"vix_history,omitempty"`

	// History is the daily series feeding regime, price action and
	// volatility. The intraday series feed timeframe alignment.
	History        []market.Candle `json:"history"`
	HourlyBars     []market.Candle `json:"hourly_bars,omitempty"`
	FifteenMinBars []market.Candle `json:"fifteen_min_bars,omitempty"`
	FiveMinBars    []market.Candle `json:"five_min_bars,omitempty"`

	Chain     *market.OptionChain    `json:"chain"`
	Events    []market.CalendarEvent `json:"events,omitempty"`
	Market    market.MarketStatus    `json:"market"`
	Portfolio *market.PortfolioState `json:"portfolio"`

	// AsOf pins the evaluation instant. Zero means now; the orchestrator
	// captures the clock once so every layer sees the same instant.
	AsOf    time.Time `json:"as_of,omitempty"`
	LotSize int       `json:"lot_size,omitempty"` // 0 = 1

	// StopLoss and Target override the engine's percentage defaults when
	// positive.
	StopLoss float64 `json:"stop_loss,omitempty"`
	Target   float64 `json:"target,omitempty"`
}

// Analysis bundles every layer's full result for the response payload.
type Analysis struct {
	Regime      analysis.RegimeResult      `json:"regime"`
	PriceAction analysis.PriceActionResult `json:"price_action"`
	Timeframes  analysis.TimeframeResult   `json:"timeframes"`
	Volatility  analysis.VolatilityResult  `json:"volatility"`
	WriterGate  optionflow.WriterResult    `json:"writer_gate"`
	RiskFilter  risk.FilterResult          `json:"risk_filter"`
	Sizing      risk.SizerResult           `json:"sizing"`
}

// ExecutionDetails carries the actionable numbers for an EXECUTE verdict.
type ExecutionDetails struct {
	EntryPrice        float64 `json:"entry_price"`
	StopLoss          float64 `json:"stop_loss"`
	Target            float64 `json:"target"`
	Quantity          int     `json:"quantity"`
	CapitalToAllocate float64 `json:"capital_to_allocate"`
	RiskAmount        float64 `json:"risk_amount"`
}

// SignalResponse is the full evaluation report returned to the caller.
type SignalResponse struct {
	Success          bool              `json:"success"`
	Signal           *TradingSignal    `json:"signal,omitempty"`
	Analysis         Analysis          `json:"analysis"`
	OverallScore     float64           `json:"overall_score"`
	Recommendation   Decision          `json:"recommendation"`
	RejectionReason  string            `json:"rejection_reason,omitempty"`
	ExecutionDetails *ExecutionDetails `json:"execution_details,omitempty"`
}

// TradingSignal is the append-only ledger row. Exactly one is written per
// evaluation that clears validation, and none is ever mutated.
type TradingSignal struct {
	ID         string            `json:"id"`
	Symbol     string            `json:"symbol"`
	Strike     float64           `json:"strike"`
	Expiry     time.Time         `json:"expiry"`
	OptionType market.OptionType `json:"option_type"`
	SignalType market.SignalType `json:"signal_type"`

	EntryPrice float64 `json:"entry_price"`
	StopLoss   float64 `json:"stop_loss"`
	Target     float64 `json:"target"`
	Quantity   int     `json:"quantity"`

	RegimeScore      float64 `json:"regime_score"`
	PriceActionScore float64 `json:"price_action_score"`
	TimeframeScore   float64 `json:"timeframe_score"`
	VolatilityScore  float64 `json:"volatility_score"`
	WriterScore      float64 `json:"writer_score"`
	RiskScore        float64 `json:"risk_score"`
	SizingScore      float64 `json:"sizing_score"`

	WriterRatio       float64 `json:"writer_ratio"`
	WriterRatioPassed bool    `json:"writer_ratio_passed"`
	OverallScore      float64 `json:"overall_score"`

	Status       SignalStatus `json:"status"`
	StatusReason string       `json:"status_reason"`
	CreatedAt    time.Time    `json:"created_at"`
}
