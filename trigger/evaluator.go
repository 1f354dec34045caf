package trigger

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/indicator"
	"github.com/quantnest/tradeflow/market"
	"github.com/quantnest/tradeflow/types"
)

/**
 * Evaluator decides whether a workflow's root trigger is due, and doubles as
 * the generic condition primitive for conditional nodes mid-traversal. All
 * decisions are side-effect free: nothing here mutates workflow state.
 */
type Evaluator struct {
	Prices     market.Service
	Indicators *indicator.Engine
}

func NewEvaluator(prices market.Service, indicators *indicator.Engine) *Evaluator {
	return &Evaluator{Prices: prices, Indicators: indicators}
}

// Due reports whether the workflow's root trigger should fire now. A
// malformed trigger returns a ValidationError so the caller can record the
// failure; an unsupported asset merely never fires.
func (ev *Evaluator) Due(ctx context.Context, wf *types.Workflow, lastStart *time.Time, now time.Time) (bool, error) {
	node, ok := wf.Trigger()
	if !ok {
		return false, types.NewValidationErrorf("workflow %s has no trigger node", wf.ID)
	}

	switch node.Type {
	case types.TypeTimer:
		meta, err := types.DecodeTimerMeta(node.Metadata)
		if err != nil {
			return false, types.NewValidationError(err)
		}
		return timerDue(meta, lastStart, now), nil
	case types.TypePriceTrigger:
		meta, err := types.DecodePriceTriggerMeta(node.Metadata)
		if err != nil {
			return false, types.NewValidationError(err)
		}
		return ev.priceTriggerDue(ctx, wf, meta), nil
	case types.TypeConditionalTrigger:
		meta, err := types.DecodeConditionalMeta(node.Metadata)
		if err != nil {
			return false, types.NewValidationError(err)
		}
		return ev.EvaluateCondition(ctx, meta), nil
	}
	return false, types.NewValidationErrorf("trigger type %s not supported", node.Type)
}

// Boundary is strict: a workflow whose interval has elapsed exactly is not
// yet due.
func timerDue(meta types.TimerMeta, lastStart *time.Time, now time.Time) bool {
	if lastStart == nil {
		return true
	}
	interval := time.Duration(meta.IntervalSeconds) * time.Second
	return lastStart.Add(interval).Before(now)
}

// priceTriggerDue checks the threshold against every asset the workflow's
// actions reference, falling back to the trigger's own asset. Any one asset
// crossing the threshold fires the trigger.
func (ev *Evaluator) priceTriggerDue(ctx context.Context, wf *types.Workflow, meta types.PriceTriggerMeta) bool {
	symbols := wf.ActionSymbols()
	if len(symbols) == 0 && meta.Asset != "" {
		symbols = []string{meta.Asset}
	}

	for _, symbol := range symbols {
		if !types.IsSupportedAsset(symbol, meta.Market) {
			log.Warnf("price trigger for workflow %s skips unsupported asset %s (%s market)",
				wf.ID, symbol, types.NormalizeMarket(string(meta.Market)))
			continue
		}
		price, err := ev.Prices.SpotPrice(ctx, symbol, meta.Market)
		if err != nil {
			log.Warnf("price trigger for workflow %s: fetching %s: %v", wf.ID, symbol, err)
			continue
		}
		if thresholdCrossed(price, meta.TargetPrice, meta.Condition) {
			return true
		}
	}
	return false
}

func thresholdCrossed(price, target float64, cond types.PriceCondition) bool {
	switch cond {
	case types.Above:
		return price > target
	case types.Below:
		return price < target
	}
	return false
}

// EvaluateCondition resolves a conditional node's metadata to a boolean. An
// expression tree takes precedence; a legacy single price comparison is the
// fallback; anything else is false.
func (ev *Evaluator) EvaluateCondition(ctx context.Context, meta types.ConditionalMeta) bool {
	if meta.Expression != nil {
		return ev.Indicators.EvaluateExpression(ctx, meta.Expression)
	}
	if meta.HasLegacyCondition() {
		price, err := ev.Prices.SpotPrice(ctx, meta.Asset, meta.Market)
		if err != nil {
			log.Warnf("legacy condition: fetching %s: %v", meta.Asset, err)
			return false
		}
		return thresholdCrossed(price, meta.TargetPrice, meta.Condition)
	}
	return false
}
