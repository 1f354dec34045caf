package indicator

import (
	"time"

	"github.com/quantnest/tradeflow/types"
)

/**
 * Pure computation helpers over closed-candle history. Stateful indicators
 * (EMA, RSI) carry their running values in small state structs owned by the
 * engine; the functions here never touch engine maps.
 */

// sma returns the arithmetic mean of the last period closes. ok is false
// when the history is shorter than period.
func sma(candles []types.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	var sum float64
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period), true
}

// emaState holds the previous EMA value so subsequent candles can be folded
// in incrementally. lastCandle pins each fold to one closed candle: asking
// again for the same candle returns the stored value unchanged.
type emaState struct {
	prev       float64
	lastCandle time.Time
	primed     bool
}

// next seeds from the SMA on the first call, then applies
// prev + alpha*(close - prev) with alpha = 2/(period+1) once per new candle.
func (s *emaState) next(candles []types.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) < period {
		return 0, false
	}
	latest := candles[len(candles)-1]
	if s.primed && !latest.EndTime.After(s.lastCandle) {
		return s.prev, true
	}
	if !s.primed {
		seed, ok := sma(candles, period)
		if !ok {
			return 0, false
		}
		s.prev = seed
		s.lastCandle = latest.EndTime
		s.primed = true
		return seed, true
	}
	alpha := 2.0 / float64(period+1)
	s.prev = s.prev + alpha*(latest.Close-s.prev)
	s.lastCandle = latest.EndTime
	return s.prev, true
}

// rsiState tracks Wilder's smoothed averages between candle closes. As with
// emaState, lastCandle keeps one closed candle from being folded twice.
type rsiState struct {
	avgGain    float64
	avgLoss    float64
	lastClose  float64
	lastCandle time.Time
	primed     bool
}

// next computes Wilder's RSI. The first computation needs period+1 closes to
// form period deltas and uses simple averages; each later candle smooths with
// avg' = (avg*(period-1) + delta)/period.
func (s *rsiState) next(candles []types.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) <= period {
		return 0, false
	}
	latest := candles[len(candles)-1]
	if s.primed && !latest.EndTime.After(s.lastCandle) {
		return s.value(), true
	}

	if !s.primed {
		var gains, losses float64
		start := len(candles) - period - 1
		for i := start + 1; i < len(candles); i++ {
			delta := candles[i].Close - candles[i-1].Close
			if delta > 0 {
				gains += delta
			} else {
				losses -= delta
			}
		}
		s.avgGain = gains / float64(period)
		s.avgLoss = losses / float64(period)
		s.primed = true
	} else {
		delta := latest.Close - s.lastClose
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		s.avgGain = (s.avgGain*float64(period-1) + gain) / float64(period)
		s.avgLoss = (s.avgLoss*float64(period-1) + loss) / float64(period)
	}
	s.lastClose = latest.Close
	s.lastCandle = latest.EndTime
	return s.value(), true
}

// value derives the clamped RSI from the current averages without touching
// them.
func (s *rsiState) value() float64 {
	if s.avgLoss == 0 {
		return 100
	}
	rsi := 100 - 100/(1+s.avgGain/s.avgLoss)
	if rsi < 0 {
		rsi = 0
	} else if rsi > 100 {
		rsi = 100
	}
	return rsi
}

// pctChange returns the percentage move of the latest close against the close
// period candles earlier. ok is false on insufficient history or a zero
// baseline.
func pctChange(candles []types.Candle, period int) (float64, bool) {
	if period <= 0 || len(candles) <= period {
		return 0, false
	}
	baseline := candles[len(candles)-1-period].Close
	if baseline == 0 {
		return 0, false
	}
	latest := candles[len(candles)-1].Close
	return (latest - baseline) / baseline * 100, true
}
