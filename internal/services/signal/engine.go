// Package signal turns indicator readings into a BUY/SELL call by majority vote.
package signal

import (
	"fmt"
	"strings"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/service"
	"MarketPulse/pkg/util"
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0

	minConfidence = 55.0
	maxConfidence = 95.0

	buyPremium  = 1.001
	sellPremium = 0.999

	// pricePrecision is the number of decimals entry points are rounded to.
	pricePrecision = 2
)

type vote int

const (
	abstain vote = iota
	bullish
	bearish
)

// Rule casts at most one vote from the evaluation context.
type Rule func(ctx Context) vote

// Context is what every rule may look at.
type Context struct {
	Close     float64
	PrevClose *float64
	Snapshot  models.IndicatorSnapshot
}

// Engine implements service.SignalEngine.
type Engine struct {
	rules []Rule
}

var _ service.SignalEngine = (*Engine)(nil)

// NewEngine returns an engine with the standard rule set: RSI, MACD, SMA20,
// EMA12 and momentum. Patterns always vote on top of these.
func NewEngine() *Engine {
	return &Engine{rules: []Rule{rsiRule, macdRule, smaRule, emaRule, momentumRule}}
}

// Evaluate computes the signal for bars (newest first). It needs at least one bar.
func (e *Engine) Evaluate(bars []models.Bar, snap models.IndicatorSnapshot, patterns []models.Pattern) (models.Signal, error) {
	if len(bars) == 0 {
		return models.Signal{}, fmt.Errorf("no bars: %w", models.ErrInsufficientHistory)
	}
	ctx := Context{Close: bars[0].Close, Snapshot: snap}
	if len(bars) >= 2 {
		prev := bars[1].Close
		ctx.PrevClose = &prev
	}

	var tally models.VoteTally
	count := func(v vote) {
		switch v {
		case bullish:
			tally.Bullish++
			tally.Total++
		case bearish:
			tally.Bearish++
			tally.Total++
		}
	}
	for _, rule := range e.rules {
		count(rule(ctx))
	}
	for _, p := range patterns {
		count(patternVote(p))
	}

	dir := models.DirectionBuy
	winning := tally.Bullish
	if tally.Bearish > tally.Bullish {
		dir = models.DirectionSell
		winning = tally.Bearish
	}

	confidence := minConfidence
	if tally.Total > 0 {
		confidence = util.Clamp(100*float64(winning)/float64(tally.Total), minConfidence, maxConfidence)
	}

	entry := ctx.Close * buyPremium
	if dir == models.DirectionSell {
		entry = ctx.Close * sellPremium
	}

	return models.Signal{
		Direction:  dir,
		Confidence: util.Round(confidence, 1),
		EntryPoint: util.Round(entry, pricePrecision),
		Votes:      tally,
	}, nil
}

// rsiRule abstains inside the 30..70 band.
func rsiRule(ctx Context) vote {
	rsi := models.ValueOr(ctx.Snapshot.RSI14, 50)
	switch {
	case rsi < rsiOversold:
		return bullish
	case rsi > rsiOverbought:
		return bearish
	}
	return abstain
}

func macdRule(ctx Context) vote {
	if models.ValueOr(ctx.Snapshot.MACD, 0) > 0 {
		return bullish
	}
	return bearish
}

// smaRule and emaRule fall back to the close itself, which votes bearish.
func smaRule(ctx Context) vote {
	if ctx.Close > models.ValueOr(ctx.Snapshot.SMA20, ctx.Close) {
		return bullish
	}
	return bearish
}

func emaRule(ctx Context) vote {
	if ctx.Close > models.ValueOr(ctx.Snapshot.EMA12, ctx.Close) {
		return bullish
	}
	return bearish
}

func momentumRule(ctx Context) vote {
	if ctx.PrevClose == nil {
		return abstain
	}
	if ctx.Close > *ctx.PrevClose {
		return bullish
	}
	return bearish
}

func patternVote(p models.Pattern) vote {
	name := string(p)
	switch {
	case strings.Contains(name, "Bullish") || strings.Contains(name, "Hammer"):
		return bullish
	case strings.Contains(name, "Bearish") || strings.Contains(name, "Shooting Star"):
		return bearish
	}
	return abstain
}
