package indicator

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/market"
	"github.com/quantnest/tradeflow/types"
)

// DefaultPeriod is used when an indicator reference omits its period.
const DefaultPeriod = 14

type cacheEntry struct {
	Value       float64
	UpdatedAt   time.Time
	CandleClose time.Time
}

// series is the live aggregation state for one (market, symbol, timeframe).
type series struct {
	open    *types.Candle
	history []types.Candle
}

func seriesKey(m types.Market, symbol string, tf types.Timeframe) string {
	return fmt.Sprintf("%s:%s:%s", types.NormalizeMarket(string(m)), symbol, tf)
}

/**
 * Engine aggregates raw ticks into timeframe candles, keeps a bounded closed
 * candle history per series, and computes subscribed indicators on every
 * candle rollover. All state lives behind one mutex; callers interact only
 * through RegisterReferences / IngestTick / EvaluateExpression.
 */
type Engine struct {
	mu     sync.Mutex
	prices market.Service

	capacity int

	subs      map[string]types.IndicatorReference
	series    map[string]*series
	cache     map[string]cacheEntry
	emaStates map[string]*emaState
	rsiStates map[string]*rsiState
}

func NewEngine(prices market.Service, candleHistory int) *Engine {
	if candleHistory <= 0 {
		candleHistory = 1000
	}
	return &Engine{
		prices:    prices,
		capacity:  candleHistory,
		subs:      make(map[string]types.IndicatorReference),
		series:    make(map[string]*series),
		cache:     make(map[string]cacheEntry),
		emaStates: make(map[string]*emaState),
		rsiStates: make(map[string]*rsiState),
	}
}

// RegisterReferences adds references to the subscription set. Registering the
// same reference twice is a no-op; the composite key collapses duplicates.
func (e *Engine) RegisterReferences(refs ...types.IndicatorReference) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ref := range refs {
		e.subs[ref.Key()] = ref
	}
}

// RegisterExpression subscribes every indicator operand found in the tree.
func (e *Engine) RegisterExpression(expr *types.ConditionExpr) {
	e.RegisterReferences(expr.References()...)
}

// RefreshSubscriptions rebuilds the subscription set from the conditional
// nodes of the given workflows. Series history and indicator state survive
// the refresh so long-running averages are not reset by a workflow edit.
func (e *Engine) RefreshSubscriptions(workflows []*types.Workflow) {
	refs := make([]types.IndicatorReference, 0, 16)
	for _, w := range workflows {
		for i := range w.Nodes {
			n := &w.Nodes[i]
			if n.Kind != types.KindConditional && n.Type != types.TypeConditionalTrigger {
				continue
			}
			meta, err := types.DecodeConditionalMeta(n.Metadata)
			if err != nil {
				log.Warnf("skipping subscriptions for node %s: %v", n.ID, err)
				continue
			}
			refs = append(refs, meta.Expression.References()...)
		}
	}

	e.mu.Lock()
	e.subs = make(map[string]types.IndicatorReference, len(refs))
	e.mu.Unlock()
	e.RegisterReferences(refs...)
}

// PollQuotes fetches one spot price per subscribed (market, symbol) pair and
// ingests it as a tick. Series with no live stream keep moving between
// ticks this way; a symbol that fails to fetch is logged and skipped.
func (e *Engine) PollQuotes(ctx context.Context) {
	if e.prices == nil {
		return
	}

	type pair struct {
		symbol string
		market types.Market
	}
	e.mu.Lock()
	seen := make(map[pair]bool, len(e.subs))
	pairs := make([]pair, 0, len(e.subs))
	for _, ref := range e.subs {
		p := pair{ref.Symbol, types.NormalizeMarket(string(ref.Market))}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}
	e.mu.Unlock()

	for _, p := range pairs {
		price, err := e.prices.SpotPrice(ctx, p.symbol, p.market)
		if err != nil {
			log.Warnf("quote poll for %s/%s failed: %v", p.market, p.symbol, err)
			continue
		}
		e.IngestTick(p.symbol, p.market, price, 0, time.Now())
	}
}

// Subscriptions returns the distinct (market, symbol) pairs currently
// subscribed. The feed uses it to decide which streams to open.
func (e *Engine) Subscriptions() []types.IndicatorReference {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]types.IndicatorReference, 0, len(e.subs))
	for _, ref := range e.subs {
		out = append(out, ref)
	}
	return out
}

// IngestTick folds one tick into every subscribed timeframe for the symbol.
// Crossing a bucket boundary closes and archives the open candle, then
// recomputes every indicator subscribed on that series.
func (e *Engine) IngestTick(symbol string, m types.Market, price, volume float64, ts time.Time) {
	m = types.NormalizeMarket(string(m))

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, tf := range e.subscribedTimeframes(symbol, m) {
		e.ingestLocked(symbol, m, tf, price, volume, ts)
	}
}

func (e *Engine) subscribedTimeframes(symbol string, m types.Market) []types.Timeframe {
	seen := map[types.Timeframe]bool{}
	out := make([]types.Timeframe, 0, 2)
	for _, ref := range e.subs {
		if ref.Symbol != symbol || types.NormalizeMarket(string(ref.Market)) != m {
			continue
		}
		if !seen[ref.Timeframe] {
			seen[ref.Timeframe] = true
			out = append(out, ref.Timeframe)
		}
	}
	return out
}

func (e *Engine) ingestLocked(symbol string, m types.Market, tf types.Timeframe, price, volume float64, ts time.Time) {
	width := tf.Duration()
	if width <= 0 {
		return
	}
	bucket := ts.Truncate(width)

	key := seriesKey(m, symbol, tf)
	s := e.series[key]
	if s == nil {
		s = &series{}
		e.series[key] = s
	}

	if s.open != nil && s.open.StartTime.Equal(bucket) {
		if price > s.open.High {
			s.open.High = price
		}
		if price < s.open.Low {
			s.open.Low = price
		}
		s.open.Close = price
		s.open.Volume += volume
		e.refreshSpotLocked(symbol, m, tf, s.open)
		return
	}

	if s.open != nil {
		s.history = append(s.history, *s.open)
		if len(s.history) > e.capacity {
			s.history = s.history[len(s.history)-e.capacity:]
		}
		e.recomputeLocked(symbol, m, tf, s)
	}

	s.open = &types.Candle{
		StartTime: bucket,
		EndTime:   bucket.Add(width),
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
	}
	e.refreshSpotLocked(symbol, m, tf, s.open)
}

// refreshSpotLocked updates price and volume subscriptions from the open
// candle. Averaging indicators only advance on candle close, but a clause
// like price > X must follow the market between closes.
func (e *Engine) refreshSpotLocked(symbol string, m types.Market, tf types.Timeframe, open *types.Candle) {
	for key, ref := range e.subs {
		if ref.Symbol != symbol || ref.Timeframe != tf ||
			types.NormalizeMarket(string(ref.Market)) != m {
			continue
		}
		switch ref.Indicator {
		case types.IndicatorPrice:
			e.cache[key] = cacheEntry{Value: open.Close, UpdatedAt: time.Now(), CandleClose: open.EndTime}
		case types.IndicatorVolume:
			e.cache[key] = cacheEntry{Value: open.Volume, UpdatedAt: time.Now(), CandleClose: open.EndTime}
		}
	}
}

// recomputeLocked refreshes the cache entry of every subscription on the
// series that just closed a candle.
func (e *Engine) recomputeLocked(symbol string, m types.Market, tf types.Timeframe, s *series) {
	closeTime := s.history[len(s.history)-1].EndTime
	for key, ref := range e.subs {
		if ref.Symbol != symbol || ref.Timeframe != tf ||
			types.NormalizeMarket(string(ref.Market)) != m {
			continue
		}
		value, ok := e.computeLocked(ref, s.history)
		if !ok {
			continue
		}
		e.cache[key] = cacheEntry{Value: value, UpdatedAt: time.Now(), CandleClose: closeTime}
	}
}

// ComputeFromHistory computes the reference's value over the closed candles
// currently held for its series. ok is false when history is insufficient or
// the indicator kind is unknown.
func (e *Engine) ComputeFromHistory(ref types.IndicatorReference) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.series[seriesKey(ref.Market, ref.Symbol, ref.Timeframe)]
	if s == nil || len(s.history) == 0 {
		return 0, false
	}
	return e.computeLocked(ref, s.history)
}

func (e *Engine) computeLocked(ref types.IndicatorReference, history []types.Candle) (float64, bool) {
	period := ref.Period(DefaultPeriod)

	switch ref.Indicator {
	case types.IndicatorPrice:
		return history[len(history)-1].Close, true
	case types.IndicatorVolume:
		return history[len(history)-1].Volume, true
	case types.IndicatorSMA:
		return sma(history, period)
	case types.IndicatorEMA:
		state := e.emaStates[ref.Key()]
		if state == nil {
			state = &emaState{}
			e.emaStates[ref.Key()] = state
		}
		return state.next(history, period)
	case types.IndicatorRSI:
		state := e.rsiStates[ref.Key()]
		if state == nil {
			state = &rsiState{}
			e.rsiStates[ref.Key()] = state
		}
		return state.next(history, period)
	case types.IndicatorPctChange:
		return pctChange(history, period)
	}

	log.Warnf("unknown indicator kind %q in reference %s", ref.Indicator, ref.Key())
	return 0, false
}
