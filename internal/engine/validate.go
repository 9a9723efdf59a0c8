package engine

import (
	"fmt"

	"neurallempire-signal-engine/internal/market"
)

// validate rejects requests the pipeline cannot evaluate. Every failure wraps
// ErrInvalidRequest and nothing is persisted for it.
func validate(req *SignalRequest) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", ErrInvalidRequest)
	}
	if req.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	if req.Spot <= 0 {
		return fmt.Errorf("%w: spot must be positive, got %v", ErrInvalidRequest, req.Spot)
	}
	if req.Strike <= 0 {
		return fmt.Errorf("%w: strike must be positive, got %v", ErrInvalidRequest, req.Strike)
	}
	if req.Expiry.IsZero() {
		return fmt.Errorf("%w: expiry is required", ErrInvalidRequest)
	}

	switch req.SignalType {
	case market.SignalBuyCall:
		if req.OptionType != market.OptionCall {
			return fmt.Errorf("%w: %s requires option type %s, got %s",
				ErrInvalidRequest, market.SignalBuyCall, market.OptionCall, req.OptionType)
		}
	case market.SignalBuyPut:
		if req.OptionType != market.OptionPut {
			return fmt.Errorf("%w: %s requires option type %s, got %s",
				ErrInvalidRequest, market.SignalBuyPut, market.OptionPut, req.OptionType)
		}
	default:
		return fmt.Errorf("%w: unknown signal type %q", ErrInvalidRequest, req.SignalType)
	}

	if len(req.History) == 0 {
		return fmt.Errorf("%w: candle history is required", ErrInvalidRequest)
	}
	if req.Chain == nil || len(req.Chain.Strikes) == 0 {
		return fmt.Errorf("%w: option chain with at least one strike is required", ErrInvalidRequest)
	}
	if req.Portfolio == nil || req.Portfolio.TotalCapital <= 0 {
		return fmt.Errorf("%w: portfolio state with positive total capital is required", ErrInvalidRequest)
	}
	return nil
}

// targetPremium resolves the tradable premium for the requested strike. The
// chain must quote the target strike with a positive last price for the
// requested side.
func targetPremium(req *SignalRequest) (float64, error) {
	strike := req.Chain.StrikeAt(req.Strike)
	if strike == nil {
		return 0, fmt.Errorf("%w: chain does not quote strike %v", ErrUpstreamData, req.Strike)
	}

	premium := strike.CallLTP
	if req.OptionType == market.OptionPut {
		premium = strike.PutLTP
	}
	if premium <= 0 {
		return 0, fmt.Errorf("%w: no traded premium for %v %s", ErrUpstreamData, req.Strike, req.OptionType)
	}
	return premium, nil
}
