package indicator

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/types"
)

// EvaluateExpression resolves the boolean expression tree against current
// indicator values. Resolution failures never propagate as errors: an
// unresolvable operand makes its clause false and evaluation continues.
func (e *Engine) EvaluateExpression(ctx context.Context, expr *types.ConditionExpr) bool {
	if expr == nil {
		return false
	}
	if expr.IsGroup() {
		return e.evaluateGroup(ctx, expr)
	}
	return e.evaluateClause(ctx, expr)
}

// An empty AND group is vacuously true; an empty OR group is false.
func (e *Engine) evaluateGroup(ctx context.Context, group *types.ConditionExpr) bool {
	switch types.LogicOperator(group.Operator) {
	case types.OpAnd:
		for _, child := range group.Conditions {
			if !e.EvaluateExpression(ctx, child) {
				return false
			}
		}
		return true
	case types.OpOr:
		for _, child := range group.Conditions {
			if e.EvaluateExpression(ctx, child) {
				return true
			}
		}
		return false
	}
	log.Warnf("unknown logic operator %q, treating group as false", group.Operator)
	return false
}

func (e *Engine) evaluateClause(ctx context.Context, clause *types.ConditionExpr) bool {
	left, ok := e.resolveOperand(ctx, clause.Left)
	if !ok {
		return false
	}
	right, ok := e.resolveOperand(ctx, clause.Right)
	if !ok {
		return false
	}
	return types.Comparator(clause.Operator).Compare(left, right)
}

// resolveOperand resolves a literal directly; an indicator operand resolves
// cache-first, then from history, and on a cold series attempts one spot
// price fetch to bootstrap a candle before giving up.
func (e *Engine) resolveOperand(ctx context.Context, op *types.Operand) (float64, bool) {
	if op == nil {
		return 0, false
	}
	switch op.Type {
	case types.OperandValue:
		return op.Value, true
	case types.OperandIndicator:
		if op.Indicator == nil {
			return 0, false
		}
		return e.resolveIndicator(ctx, *op.Indicator)
	}
	return 0, false
}

func (e *Engine) resolveIndicator(ctx context.Context, ref types.IndicatorReference) (float64, bool) {
	ref.Market = types.NormalizeMarket(string(ref.Market))

	e.mu.Lock()
	if entry, hit := e.cache[ref.Key()]; hit {
		e.mu.Unlock()
		return entry.Value, true
	}
	s := e.series[seriesKey(ref.Market, ref.Symbol, ref.Timeframe)]
	hasHistory := s != nil && len(s.history) > 0
	e.mu.Unlock()

	if !hasHistory {
		if !e.fetchAndSeed(ctx, ref) {
			return 0, false
		}
	}
	return e.ComputeFromHistory(ref)
}

// fetchAndSeed pulls one spot price and runs it through ingestion so that a
// never-streamed series can still satisfy price clauses.
func (e *Engine) fetchAndSeed(ctx context.Context, ref types.IndicatorReference) bool {
	if e.prices == nil {
		return false
	}
	price, err := e.prices.SpotPrice(ctx, ref.Symbol, ref.Market)
	if err != nil {
		log.Warnf("on-demand price fetch for %s failed: %v", ref.Key(), err)
		return false
	}

	e.RegisterReferences(ref)

	// Two ingests one bucket apart force an immediate candle close so the
	// fetched price lands in history rather than the open candle.
	now := time.Now()
	e.IngestTick(ref.Symbol, ref.Market, price, 0, now.Add(-ref.Timeframe.Duration()))
	e.IngestTick(ref.Symbol, ref.Market, price, 0, now)
	return true
}
