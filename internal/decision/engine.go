// Package decision turns an indicator snapshot into a BUY/SELL/HOLD call
// via additive signed voting. Evaluate is a pure function of its inputs.
package decision

import (
	"fmt"
	"strings"

	"premarketdash/internal/indicator"
)

// Label is the trade call for a symbol.
type Label string

const (
	Buy  Label = "BUY"
	Sell Label = "SELL"
	Hold Label = "HOLD"
)

// Confidence grades how strongly the votes agree.
type Confidence string

const (
	Low    Confidence = "Low"
	Medium Confidence = "Medium"
	High   Confidence = "High"
)

// InsufficientData is the rationale when no indicator is usable.
const InsufficientData = "Insufficient data for analysis"

// NeutralRationale is the rationale when indicators are usable but none fired.
const NeutralRationale = "Neutral technical indicators"

// Voting thresholds.
const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	rsiNeutralLo  = 40.0
	rsiNeutralHi  = 60.0

	adxTrendFloor = 25.0

	bbLowerZone = 20.0
	bbUpperZone = 80.0

	rangeLowerQuartile = 25.0
	rangeUpperQuartile = 75.0

	confirmOversold   = 40.0
	confirmOverbought = 60.0
)

// Decision is the immutable outcome of one analysis pass.
type Decision struct {
	Label      Label      `json:"decision"`
	Confidence Confidence `json:"confidence"`
	Score      int        `json:"score"`
	Bullish    int        `json:"bullish_signals"`
	Bearish    int        `json:"bearish_signals"`
	Rationale  string     `json:"rationale"`
}

// Evaluate votes each usable indicator in the daily snapshot, optionally
// corroborated by a secondary-timeframe RSI, and maps the net score to a
// label. Unusable indicators are skipped, never counted as zero. A snapshot
// with nothing usable yields exactly HOLD/Low/0/InsufficientData.
func Evaluate(daily indicator.Snapshot, intradayRSI indicator.Value) Decision {
	if !daily.HasAny() {
		return Decision{Label: Hold, Confidence: Low, Rationale: InsufficientData}
	}

	var bullish, bearish int
	var reasons []string

	if daily.RSI.Valid {
		switch {
		case daily.RSI.V < rsiOversold:
			bullish += 2
			reasons = append(reasons, fmt.Sprintf("Daily RSI oversold (%.1f)", daily.RSI.V))
		case daily.RSI.V > rsiOverbought:
			bearish += 2
			reasons = append(reasons, fmt.Sprintf("Daily RSI overbought (%.1f)", daily.RSI.V))
		case daily.RSI.V >= rsiNeutralLo && daily.RSI.V <= rsiNeutralHi:
			bullish++
			reasons = append(reasons, fmt.Sprintf("Daily RSI neutral-bullish (%.1f)", daily.RSI.V))
		}
	}

	if daily.ADX.Valid {
		if daily.ADX.V > adxTrendFloor {
			reasons = append(reasons, fmt.Sprintf("Strong trend (ADX: %.1f)", daily.ADX.V))
			// Trend direction is taken from RSI; an unreadable RSI counts
			// as not-bullish here.
			if daily.RSI.Valid && daily.RSI.V > 50 {
				bullish++
			} else {
				bearish++
			}
		} else {
			reasons = append(reasons, fmt.Sprintf("Weak trend (ADX: %.1f)", daily.ADX.V))
		}
	}

	if daily.MACD.Valid {
		if daily.MACD.MACD > daily.MACD.Signal {
			bullish++
			reasons = append(reasons, "MACD bullish crossover")
		} else {
			bearish++
			reasons = append(reasons, "MACD bearish crossover")
		}
	}

	if daily.Bollinger.Valid {
		if daily.Bollinger.Position < bbLowerZone {
			bullish++
			reasons = append(reasons, fmt.Sprintf("Near lower Bollinger Band (%.1f%%)", daily.Bollinger.Position))
		} else if daily.Bollinger.Position > bbUpperZone {
			bearish++
			reasons = append(reasons, fmt.Sprintf("Near upper Bollinger Band (%.1f%%)", daily.Bollinger.Position))
		}
	}

	if daily.Levels.Valid && daily.Levels.Resistance > daily.Levels.Support {
		pricePos := (daily.Close - daily.Levels.Support) /
			(daily.Levels.Resistance - daily.Levels.Support) * 100
		if pricePos < rangeLowerQuartile {
			bullish++
			reasons = append(reasons, fmt.Sprintf("Near support level (₹%.2f)", daily.Levels.Support))
		} else if pricePos > rangeUpperQuartile {
			bearish++
			reasons = append(reasons, fmt.Sprintf("Near resistance level (₹%.2f)", daily.Levels.Resistance))
		}
	}

	if daily.RSI.Valid && intradayRSI.Valid {
		if daily.RSI.V < confirmOversold && intradayRSI.V < confirmOversold {
			bullish++
			reasons = append(reasons, "Multi-timeframe oversold confirmation")
		} else if daily.RSI.V > confirmOverbought && intradayRSI.V > confirmOverbought {
			bearish++
			reasons = append(reasons, "Multi-timeframe overbought confirmation")
		}
	}

	net := bullish - bearish
	total := bullish + bearish

	var label Label
	var conf Confidence
	switch {
	case net >= 2:
		label = Buy
		conf = Medium
		if net >= 3 {
			conf = High
		}
	case net <= -2:
		label = Sell
		conf = Medium
		if net <= -3 {
			conf = High
		}
	default:
		label = Hold
		conf = Low
		if total >= 3 {
			conf = Medium
		}
	}

	rationale := NeutralRationale
	if len(reasons) > 0 {
		rationale = strings.Join(reasons, "; ")
	}

	return Decision{
		Label:      label,
		Confidence: conf,
		Score:      net,
		Bullish:    bullish,
		Bearish:    bearish,
		Rationale:  rationale,
	}
}
