package finguard

import (
	"fmt"
	"math"
)

// Sentiment thresholds. Both comparisons are strict.
const (
	overhypeAbove     = 0.7
	manipulationBelow = -0.3
)

// RiskBands holds the volatility thresholds used for risk banding.
// Volatility below ModerateFrom is Low, up to and including HighAbove is
// Moderate, anything else is High.
type RiskBands struct {
	ModerateFrom float64
	HighAbove    float64
}

// DefaultRiskBands are the reference thresholds.
var DefaultRiskBands = RiskBands{ModerateFrom: 0.30, HighAbove: 0.60}

// Classify maps volatility to a risk level. CAGR is descriptive context only.
// NaN volatility falls through to High.
func (b RiskBands) Classify(cagr, volatility float64) RiskLevel {
	_ = cagr
	switch {
	case volatility < b.ModerateFrom:
		return RiskLow
	case volatility <= b.HighAbove:
		return RiskModerate
	default:
		return RiskHigh
	}
}

// ClassifyRisk classifies with DefaultRiskBands.
func ClassifyRisk(cagr, volatility float64) RiskLevel {
	return DefaultRiskBands.Classify(cagr, volatility)
}

// ClassifySentiment maps a score in [-1, 1] to a market sentiment.
// Callers reject out-of-range scores with ValidateSentimentScore first.
func ClassifySentiment(score float64) MarketSentiment {
	switch {
	case score > overhypeAbove:
		return SentimentOverhype
	case score < manipulationBelow:
		return SentimentManipulation
	default:
		return SentimentNormal
	}
}

// ValidateSentimentScore rejects NaN and values outside [-1, 1].
func ValidateSentimentScore(score float64) error {
	if math.IsNaN(score) || score < -1 || score > 1 {
		return fmt.Errorf("%v: %w", score, ErrScoreOutOfRange)
	}
	return nil
}
