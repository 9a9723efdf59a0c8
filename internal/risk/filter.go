// Package risk holds the two capital-protection layers: the risk-regime
// filter deciding whether trading is allowed at all, and the portfolio sizer
// deciding how much capital a passing trade may commit.
package risk

import (
	"fmt"
	"time"

	"neurallempire-signal-engine/internal/market"
)

// Restriction names a reason trading is blocked, ordered by severity.
type Restriction string

const (
	RestrictionExpiryDay       Restriction = "EXPIRY_DAY"
	RestrictionCircuitBreaker  Restriction = "CIRCUIT_BREAKER"
	RestrictionHighVIX         Restriction = "HIGH_VIX"
	RestrictionLowVolume       Restriction = "LOW_VOLUME"
	RestrictionHighImpactEvent Restriction = "HIGH_IMPACT_EVENT"
	RestrictionOutsideHours    Restriction = "OUTSIDE_MARKET_HOURS"
	RestrictionOpeningWindow   Restriction = "OPENING_WINDOW"
	RestrictionClosingWindow   Restriction = "CLOSING_WINDOW"
	RestrictionLunchHour       Restriction = "LUNCH_HOUR"
	RestrictionNone            Restriction = "NONE"
)

// restrictionPriority orders restrictions for the operator-facing headline.
var restrictionPriority = []Restriction{
	RestrictionExpiryDay,
	RestrictionCircuitBreaker,
	RestrictionHighVIX,
	RestrictionLowVolume,
	RestrictionHighImpactEvent,
	RestrictionOutsideHours,
	RestrictionOpeningWindow,
	RestrictionClosingWindow,
	RestrictionLunchHour,
}

// RiskLevel is the tiered read of the accumulated risk points.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "VERY_LOW"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskVeryHigh RiskLevel = "VERY_HIGH"
	RiskExtreme  RiskLevel = "EXTREME"
)

// FilterResult is the layer-6 verdict on whether conditions permit a trade.
type FilterResult struct {
	TimeAllowed   bool `json:"time_allowed"`
	EventAllowed  bool `json:"event_allowed"`
	MarketAllowed bool `json:"market_allowed"`
	DayAllowed    bool `json:"day_allowed"`

	TradingAllowed     bool          `json:"trading_allowed"`
	ActiveRestrictions []Restriction `json:"active_restrictions"`
	OverallRestriction Restriction   `json:"overall_restriction"`

	IsExpiryDay      bool `json:"is_expiry_day"`
	IsMondayOrFriday bool `json:"is_monday_or_friday"`

	RiskPoints float64   `json:"risk_points"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Score      float64   `json:"score"` // 0-100
	Reason     string    `json:"reason"`
}

// istZone avoids a tzdata dependency; NSE time is a fixed +05:30 offset.
var istZone = time.FixedZone("IST", 5*3600+30*60)

// NSE session boundaries in minutes from midnight IST.
const (
	sessionOpenMin  = 9*60 + 15  // 09:15
	sessionCloseMin = 15*60 + 30 // 15:30
	openingEndMin   = 9*60 + 30  // 09:30
	closingStartMin = 15*60 + 15 // 15:15
	lunchStartMin   = 12 * 60    // 12:00
	lunchEndMin     = 13 * 60    // 13:00
)

// Event windows around the evaluation instant.
const (
	eventLookback  = 60 * time.Minute
	eventLookahead = 120 * time.Minute
)

// RiskRegimeFilter gates trading on session time, the event calendar, market
// stress and the trading day itself.
type RiskRegimeFilter struct{}

func NewRiskRegimeFilter() *RiskRegimeFilter {
	return &RiskRegimeFilter{}
}

// Evaluate runs the four independent checks at the given instant. The expiry
// comparison and session windows are taken in IST regardless of the zone the
// caller passed the timestamps in.
func (f *RiskRegimeFilter) Evaluate(asOf, expiry time.Time, vix float64, events []market.CalendarEvent, status market.MarketStatus) FilterResult {
	result := FilterResult{}
	ist := asOf.In(istZone)

	var restrictions []Restriction

	// Time check.
	result.TimeAllowed = true
	mins := ist.Hour()*60 + ist.Minute()
	switch {
	case mins < sessionOpenMin || mins >= sessionCloseMin:
		result.TimeAllowed = false
		restrictions = append(restrictions, RestrictionOutsideHours)
	case mins < openingEndMin:
		result.TimeAllowed = false
		restrictions = append(restrictions, RestrictionOpeningWindow)
	case mins >= closingStartMin:
		result.TimeAllowed = false
		restrictions = append(restrictions, RestrictionClosingWindow)
	case mins >= lunchStartMin && mins < lunchEndMin:
		result.TimeAllowed = false
		restrictions = append(restrictions, RestrictionLunchHour)
	}

	// Event check: HIGH severity blocks, MEDIUM only penalizes.
	result.EventAllowed = true
	highEvent := false
	mediumEvent := false
	for _, ev := range events {
		if !inEventWindow(asOf, ev.Time) {
			continue
		}
		switch ev.Severity {
		case market.SeverityHigh:
			highEvent = true
		case market.SeverityMedium:
			mediumEvent = true
		}
	}
	if highEvent {
		result.EventAllowed = false
		restrictions = append(restrictions, RestrictionHighImpactEvent)
	}

	// Market check.
	result.MarketAllowed = true
	if status.CircuitBreakerActive {
		result.MarketAllowed = false
		restrictions = append(restrictions, RestrictionCircuitBreaker)
	}
	if vix > 30 {
		result.MarketAllowed = false
		restrictions = append(restrictions, RestrictionHighVIX)
	}
	lowVolume := status.AverageVolume > 0 && status.CurrentVolume < 0.5*status.AverageVolume
	if lowVolume {
		result.MarketAllowed = false
		restrictions = append(restrictions, RestrictionLowVolume)
	}

	// Day check.
	result.DayAllowed = true
	result.IsExpiryDay = sameISTDate(asOf, expiry)
	if result.IsExpiryDay {
		result.DayAllowed = false
		restrictions = append(restrictions, RestrictionExpiryDay)
	}
	weekday := ist.Weekday()
	result.IsMondayOrFriday = weekday == time.Monday || weekday == time.Friday

	result.TradingAllowed = result.TimeAllowed && result.EventAllowed &&
		result.MarketAllowed && result.DayAllowed
	result.ActiveRestrictions = restrictions
	result.OverallRestriction = pickRestriction(restrictions)

	result.RiskPoints = riskPoints(result, highEvent, mediumEvent, vix)
	result.RiskLevel = classifyRisk(result.RiskPoints)
	result.Score = f.score(result, mediumEvent, vix, status)

	if result.TradingAllowed {
		result.Reason = fmt.Sprintf("trading allowed, risk %s", result.RiskLevel)
	} else {
		result.Reason = fmt.Sprintf("blocked: %s (risk %s)", result.OverallRestriction, result.RiskLevel)
	}
	return result
}

func inEventWindow(asOf, eventTime time.Time) bool {
	return !eventTime.Before(asOf.Add(-eventLookback)) && !eventTime.After(asOf.Add(eventLookahead))
}

func sameISTDate(a, b time.Time) bool {
	ai, bi := a.In(istZone), b.In(istZone)
	ay, am, ad := ai.Date()
	by, bm, bd := bi.Date()
	return ay == by && am == bm && ad == bd
}

func pickRestriction(active []Restriction) Restriction {
	for _, p := range restrictionPriority {
		for _, a := range active {
			if a == p {
				return p
			}
		}
	}
	return RestrictionNone
}

func riskPoints(r FilterResult, highEvent, mediumEvent bool, vix float64) float64 {
	points := 0.0
	if !r.TimeAllowed {
		points += 25
	}
	if highEvent {
		points += 25
	}
	if !r.MarketAllowed {
		points += 30
	}
	if r.IsExpiryDay {
		points += 40
	}
	if r.IsMondayOrFriday {
		points += 10
	}
	if vix > 20 && vix <= 30 {
		points += 10
	}
	if mediumEvent {
		points += 10
	}
	return points
}

func classifyRisk(points float64) RiskLevel {
	switch {
	case points < 10:
		return RiskVeryLow
	case points < 25:
		return RiskLow
	case points < 45:
		return RiskMedium
	case points < 65:
		return RiskHigh
	case points < 85:
		return RiskVeryHigh
	default:
		return RiskExtreme
	}
}

func (f *RiskRegimeFilter) score(r FilterResult, mediumEvent bool, vix float64, status market.MarketStatus) float64 {
	if !r.TradingAllowed {
		switch r.RiskLevel {
		case RiskExtreme:
			return 0
		case RiskVeryHigh:
			return 10
		case RiskHigh:
			return 20
		case RiskMedium:
			return 30
		default:
			return 35
		}
	}

	score := 100.0
	if r.IsMondayOrFriday {
		score -= 10
	}
	if mediumEvent {
		score -= 10
	}
	if vix > 20 && vix <= 30 {
		score -= 10
	}
	if status.AverageVolume > 0 && status.CurrentVolume < 0.75*status.AverageVolume {
		score -= 5
	}
	if score < 0 {
		score = 0
	}
	return score
}
