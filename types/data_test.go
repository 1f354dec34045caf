package types_test

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantnest/tradeflow/types"
)

type testStruct struct {
	Name   string
	Qty    int
	Active bool
}

func TestData(t *testing.T) {
	data := &types.Data{}

	data.Set("order1", testStruct{"TCS", 4, false})
	data.Set("order2", testStruct{"INFY", 5, true})

	first := &testStruct{}
	second := &testStruct{}
	assert.Nil(t, data.GetStruct("order1", first))
	assert.Nil(t, data.GetStruct("order2", second))

	assert.Equal(t, "TCS", first.Name)
	assert.Equal(t, 4, first.Qty)
	assert.Equal(t, false, first.Active)

	assert.Equal(t, "INFY", second.Name)
	assert.Equal(t, 5, second.Qty)
	assert.Equal(t, true, second.Active)

	data.Set("s1", 1)
	data.Set("s2", "2")
	data.Set("s3", math.Pi)
	data.Set("s4", true)

	_, exists := data.Get("s0")
	assert.False(t, exists)

	s, exists := data.GetString("s1")
	assert.True(t, exists)
	assert.Equal(t, "1", s)
	s, exists = data.GetString("s3")
	assert.True(t, exists)
	assert.Equal(t, strconv.FormatFloat(math.Pi, 'f', -1, 64), s)

	f, exists := data.GetFloat64("s3")
	assert.True(t, exists)
	assert.Equal(t, math.Pi, f)

	b, exists := data.GetBool("s4")
	assert.True(t, exists)
	assert.True(t, b)

	assert.NotNil(t, data.GetStruct("s0", &testStruct{}))
}

func TestDataGetStructDecodesJSONMaps(t *testing.T) {
	// Metadata arrives from storage as nested maps, not structs.
	data := &types.Data{}
	data.Set("expression", map[string]any{
		"type":     "clause",
		"operator": ">",
		"left":     map[string]any{"type": "value", "value": 5},
		"right":    map[string]any{"type": "value", "value": 3},
	})

	expr := &types.ConditionExpr{}
	assert.Nil(t, data.GetStruct("expression", expr))
	assert.Equal(t, types.ExprClause, expr.Type)
	assert.Equal(t, ">", expr.Operator)
	assert.Equal(t, 5.0, expr.Left.Value)
}
