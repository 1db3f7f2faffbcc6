package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound(t *testing.T) {
	assert.Equal(t, 124.12, Round(124.124, 2))
	assert.Equal(t, 1.01, Round(1.005, 2))
	assert.Equal(t, 66.7, Round(66.6666, 1))
	assert.Equal(t, -2.5, Round(-2.45, 1))
}

func TestRoundLeavesNonFiniteAlone(t *testing.T) {
	assert.True(t, math.IsNaN(Round(math.NaN(), 2)))
	assert.True(t, math.IsInf(Round(math.Inf(1), 2), 1))
	assert.True(t, math.IsInf(Round(math.Inf(-1), 2), -1))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 55.0, Clamp(40, 55, 95))
	assert.Equal(t, 95.0, Clamp(100, 55, 95))
	assert.Equal(t, 80.0, Clamp(80, 55, 95))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 8080, ParseIntDefault("", 8080))
	assert.Equal(t, 9000, ParseIntDefault(" 9000 ", 8080))
	assert.Equal(t, 8080, ParseIntDefault("abc", 8080))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitList(" a:9092, ,b:9092 "))
	assert.Empty(t, SplitList(""))
}
