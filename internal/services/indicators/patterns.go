package indicators

import "MarketPulse/internal/domain/models"

// minPatternBars is the current bar plus two prior bars.
const minPatternBars = 3

// DetectPatterns classifies the newest bar (bars[0]) and its predecessor.
// Fewer than three bars yields no patterns.
func DetectPatterns(bars []models.Bar) []models.Pattern {
	if len(bars) < minPatternBars {
		return nil
	}
	cur, prev := bars[0], bars[1]

	var out []models.Pattern
	if isHammer(cur) {
		out = append(out, models.PatternHammer)
	}
	if isShootingStar(cur) {
		out = append(out, models.PatternShootingStar)
	}
	if isBullishEngulfing(prev, cur) {
		out = append(out, models.PatternBullishEngulfing)
	}
	if isBearishEngulfing(prev, cur) {
		out = append(out, models.PatternBearishEngulfing)
	}
	return out
}

func isHammer(b models.Bar) bool {
	body := b.Body()
	return b.LowerShadow() > 2*body && b.UpperShadow() < body
}

func isShootingStar(b models.Bar) bool {
	body := b.Body()
	return b.UpperShadow() > 2*body && b.LowerShadow() < body
}

func isBullishEngulfing(prev, cur models.Bar) bool {
	return prev.Bearish() && cur.Bullish() &&
		cur.Open < prev.Close && cur.Close > prev.Open
}

func isBearishEngulfing(prev, cur models.Bar) bool {
	return prev.Bullish() && cur.Bearish() &&
		cur.Open > prev.Close && cur.Close < prev.Open
}
