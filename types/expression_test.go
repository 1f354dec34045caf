package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantnest/tradeflow/types"
	"github.com/quantnest/tradeflow/utils"
)

func TestComparator(t *testing.T) {
	assert.True(t, types.CmpGT.Compare(2, 1))
	assert.False(t, types.CmpGT.Compare(1, 1))
	assert.True(t, types.CmpGTE.Compare(1, 1))
	assert.True(t, types.CmpLT.Compare(1, 2))
	assert.True(t, types.CmpLTE.Compare(2, 2))
	assert.True(t, types.CmpEQ.Compare(3, 3))
	assert.True(t, types.CmpNEQ.Compare(3, 4))
	assert.False(t, types.Comparator("~").Compare(1, 2))
}

func TestReferencesWalksNestedGroups(t *testing.T) {
	rsi := types.IndicatorReference{
		Symbol: "BTC", Timeframe: types.Timeframe5m, Market: "web3",
		Indicator: types.IndicatorRSI, Params: types.IndicatorParams{Period: 14},
	}
	sma := types.IndicatorReference{
		Symbol: "TCS", Timeframe: types.Timeframe1m,
		Indicator: types.IndicatorSMA, Params: types.IndicatorParams{Period: 20},
	}

	expr := types.Group(types.OpAnd,
		types.Clause(
			types.Operand{Type: types.OperandIndicator, Indicator: &rsi},
			types.CmpLT,
			types.Operand{Type: types.OperandValue, Value: 30},
		),
		types.Group(types.OpOr,
			types.Clause(
				types.Operand{Type: types.OperandIndicator, Indicator: &sma},
				types.CmpGT,
				types.Operand{Type: types.OperandValue, Value: 100},
			),
		),
	)

	refs := expr.References()
	require.Len(t, refs, 2)
	assert.Equal(t, types.MarketCrypto, refs[0].Market, "market alias normalized")
	assert.Equal(t, types.MarketIndian, refs[1].Market)
}

func TestIndicatorReferenceKey(t *testing.T) {
	a := types.IndicatorReference{
		Symbol: "BTC", Timeframe: types.Timeframe1m, Market: "web3",
		Indicator: types.IndicatorRSI, Params: types.IndicatorParams{Period: 14},
	}
	b := a
	b.Market = "crypto"
	assert.Equal(t, a.Key(), b.Key(), "market aliases collapse to one key")

	assert.Equal(t, 14, a.Period(20))
	a.Params.Period = 0
	assert.Equal(t, 20, a.Period(20))
}

func TestConditionExprJSONRoundTrip(t *testing.T) {
	raw := []byte(`{
		"type": "group",
		"operator": "AND",
		"conditions": [
			{
				"type": "clause",
				"operator": ">=",
				"left": {"type": "indicator", "indicator": {"symbol": "ETH", "timeframe": "15m", "indicator": "ema", "params": {"period": 9}}},
				"right": {"type": "value", "value": 2000}
			}
		]
	}`)

	expr := &types.ConditionExpr{}
	require.NoError(t, utils.Unserialize(raw, expr))
	assert.True(t, expr.IsGroup())
	require.Len(t, expr.Conditions, 1)

	clause := expr.Conditions[0]
	assert.Equal(t, types.ExprClause, clause.Type)
	assert.Equal(t, ">=", clause.Operator)
	require.NotNil(t, clause.Left.Indicator)
	assert.Equal(t, 9, clause.Left.Indicator.Params.Period)
	assert.Equal(t, 2000.0, clause.Right.Value)
}

func TestNilExpressionHasNoReferences(t *testing.T) {
	var expr *types.ConditionExpr
	assert.Empty(t, expr.References())
	assert.False(t, expr.IsGroup())
}
