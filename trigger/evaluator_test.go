package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantnest/tradeflow/indicator"
	"github.com/quantnest/tradeflow/types"
)

type stubPrices struct {
	prices map[string]float64
}

func (s *stubPrices) SpotPrice(ctx context.Context, symbol string, m types.Market) (float64, error) {
	return s.prices[symbol], nil
}

func timerWorkflow(intervalSeconds int64) *types.Workflow {
	meta := types.Data{}
	meta.Set("time", intervalSeconds)
	return &types.Workflow{
		ID: "wf-timer",
		Nodes: []types.Node{
			{ID: "t", Kind: types.KindTrigger, Type: types.TypeTimer, Metadata: meta},
		},
	}
}

func TestTimerDueWhenNeverRun(t *testing.T) {
	ev := NewEvaluator(&stubPrices{}, indicator.NewEngine(nil, 10))

	due, err := ev.Due(context.Background(), timerWorkflow(60), nil, time.Now())
	require.NoError(t, err)
	assert.True(t, due)
}

func TestTimerBoundaryIsStrict(t *testing.T) {
	ev := NewEvaluator(&stubPrices{}, indicator.NewEngine(nil, 10))
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	wf := timerWorkflow(60)

	exactlyOneInterval := now.Add(-60 * time.Second)
	due, err := ev.Due(context.Background(), wf, &exactlyOneInterval, now)
	require.NoError(t, err)
	assert.False(t, due, "exactly one interval elapsed is not due")

	justOver := now.Add(-61 * time.Second)
	due, err = ev.Due(context.Background(), wf, &justOver, now)
	require.NoError(t, err)
	assert.True(t, due)
}

func priceWorkflow(asset string, target float64, cond types.PriceCondition) *types.Workflow {
	meta := types.Data{}
	meta.Set("asset", asset)
	meta.Set("targetPrice", target)
	meta.Set("condition", string(cond))
	return &types.Workflow{
		ID: "wf-price",
		Nodes: []types.Node{
			{ID: "t", Kind: types.KindTrigger, Type: types.TypePriceTrigger, Metadata: meta},
		},
	}
}

func TestPriceTriggerAbove(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{"TCS": 101}}
	ev := NewEvaluator(prices, indicator.NewEngine(nil, 10))

	due, err := ev.Due(context.Background(), priceWorkflow("TCS", 100, types.Above), nil, time.Now())
	require.NoError(t, err)
	assert.True(t, due)

	prices.prices["TCS"] = 99
	due, err = ev.Due(context.Background(), priceWorkflow("TCS", 100, types.Above), nil, time.Now())
	require.NoError(t, err)
	assert.False(t, due)
}

func TestPriceTriggerUnsupportedAssetNeverFires(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{"UNLISTED": 9999}}
	ev := NewEvaluator(prices, indicator.NewEngine(nil, 10))

	due, err := ev.Due(context.Background(), priceWorkflow("UNLISTED", 100, types.Above), nil, time.Now())
	require.NoError(t, err)
	assert.False(t, due)
}

func TestPriceTriggerUsesActionSymbols(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{"INFY": 150}}
	ev := NewEvaluator(prices, indicator.NewEngine(nil, 10))

	wf := priceWorkflow("TCS", 100, types.Above)
	orderMeta := types.Data{}
	orderMeta.Set("symbol", "INFY")
	wf.Nodes = append(wf.Nodes, types.Node{
		ID: "a", Kind: types.KindAction, Type: types.TypeBrokerOrder, Metadata: orderMeta,
	})

	due, err := ev.Due(context.Background(), wf, nil, time.Now())
	require.NoError(t, err)
	assert.True(t, due, "fires on the action's symbol crossing the threshold")
}

func TestEvaluateConditionLegacy(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{"HDFC": 90}}
	ev := NewEvaluator(prices, indicator.NewEngine(nil, 10))

	meta := types.ConditionalMeta{Asset: "HDFC", TargetPrice: 100, Condition: types.Below}
	assert.True(t, ev.EvaluateCondition(context.Background(), meta))

	meta.Condition = types.Above
	assert.False(t, ev.EvaluateCondition(context.Background(), meta))
}

func TestEvaluateConditionEmptyMetadataIsFalse(t *testing.T) {
	ev := NewEvaluator(&stubPrices{}, indicator.NewEngine(nil, 10))
	assert.False(t, ev.EvaluateCondition(context.Background(), types.ConditionalMeta{}))
}

func TestMissingTriggerIsError(t *testing.T) {
	ev := NewEvaluator(&stubPrices{}, indicator.NewEngine(nil, 10))
	_, err := ev.Due(context.Background(), &types.Workflow{ID: "wf"}, nil, time.Now())
	assert.Error(t, err)
	assert.True(t, types.IsValidation(err), "missing trigger is a validation failure")
}

func TestMalformedTriggerIsValidationError(t *testing.T) {
	ev := NewEvaluator(&stubPrices{}, indicator.NewEngine(nil, 10))
	wf := &types.Workflow{
		ID: "wf",
		Nodes: []types.Node{
			{ID: "t", Kind: types.KindTrigger, Type: types.TypeTimer, Metadata: types.Data{}},
		},
	}

	_, err := ev.Due(context.Background(), wf, nil, time.Now())
	assert.Error(t, err)
	assert.True(t, types.IsValidation(err))
}
