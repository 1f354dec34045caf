package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantnest/tradeflow/types"
)

func candlesFromCloses(closes ...float64) []types.Candle {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	out := make([]types.Candle, len(closes))
	for i, c := range closes {
		start := base.Add(time.Duration(i) * time.Minute)
		out[i] = types.Candle{
			StartTime: start, EndTime: start.Add(time.Minute),
			Open: c, High: c, Low: c, Close: c,
		}
	}
	return out
}

// appendClose extends the series by one closed candle.
func appendClose(candles []types.Candle, c float64) []types.Candle {
	last := candles[len(candles)-1]
	return append(candles, types.Candle{
		StartTime: last.EndTime, EndTime: last.EndTime.Add(time.Minute),
		Open: c, High: c, Low: c, Close: c,
	})
}

func TestSMA(t *testing.T) {
	candles := candlesFromCloses(1, 2, 3, 4, 5)

	v, ok := sma(candles, 3)
	assert.True(t, ok)
	assert.Equal(t, 4.0, v)

	_, ok = sma(candles, 6)
	assert.False(t, ok)

	_, ok = sma(candles, 0)
	assert.False(t, ok)
}

func TestEMASeedsFromSMA(t *testing.T) {
	state := &emaState{}
	candles := candlesFromCloses(10, 20, 30)

	seed, ok := state.next(candles, 3)
	assert.True(t, ok)
	assert.Equal(t, 20.0, seed)

	// alpha = 2/(3+1) = 0.5; next close 40 => 20 + 0.5*(40-20) = 30
	candles = appendClose(candles, 40)
	v, ok := state.next(candles, 3)
	assert.True(t, ok)
	assert.Equal(t, 30.0, v)
}

func TestEMAFoldsEachCandleOnce(t *testing.T) {
	state := &emaState{}
	candles := candlesFromCloses(10, 20, 30)
	candles = appendClose(candles, 40)

	first, ok := state.next(candles, 3)
	assert.True(t, ok)

	// Evaluating again over the same closed candles must not drift.
	for i := 0; i < 5; i++ {
		v, ok := state.next(candles, 3)
		assert.True(t, ok)
		assert.Equal(t, first, v)
	}

	// A genuinely new candle still advances the average.
	candles = appendClose(candles, 50)
	v, ok := state.next(candles, 3)
	assert.True(t, ok)
	assert.NotEqual(t, first, v)
}

func TestRSIMonotonicRiseIsHundred(t *testing.T) {
	state := &rsiState{}
	candles := candlesFromCloses(1, 2, 3, 4, 5, 6)

	v, ok := state.next(candles, 5)
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSIBounded(t *testing.T) {
	state := &rsiState{}
	candles := candlesFromCloses(100, 98, 103, 97, 105, 95, 110, 92, 108, 99, 101, 96, 104, 100, 102)

	v, ok := state.next(candles, 14)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)

	// Smoothed update stays bounded as well.
	candles = appendClose(candles, 150)
	v, ok = state.next(candles, 14)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
	assert.LessOrEqual(t, v, 100.0)
}

func TestRSIFoldsEachCandleOnce(t *testing.T) {
	state := &rsiState{}
	candles := candlesFromCloses(100, 98, 103, 97, 105, 95, 110, 92, 108, 99, 101, 96, 104, 100, 102)

	first, ok := state.next(candles, 14)
	assert.True(t, ok)

	// Repeated reads over the same history return the same value; the
	// smoothed averages must not decay on a zero delta.
	for i := 0; i < 5; i++ {
		v, ok := state.next(candles, 14)
		assert.True(t, ok)
		assert.Equal(t, first, v)
	}
}

func TestRSINeedsMoreThanPeriodSamples(t *testing.T) {
	state := &rsiState{}
	_, ok := state.next(candlesFromCloses(1, 2, 3), 3)
	assert.False(t, ok)
}

func TestPctChange(t *testing.T) {
	v, ok := pctChange(candlesFromCloses(100, 110), 1)
	assert.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)

	_, ok = pctChange(candlesFromCloses(110), 1)
	assert.False(t, ok)

	_, ok = pctChange(candlesFromCloses(0, 110), 1)
	assert.False(t, ok)
}
