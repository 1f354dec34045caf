package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantnest/tradeflow/insight"
	"github.com/quantnest/tradeflow/types"
)

func TestComposeBuy(t *testing.T) {
	c := Compose("Alice", types.EventBuy, types.EventDetails{
		Symbol:   "TCS",
		Quantity: 5,
		Exchange: "NSE",
	}, nil)

	assert.Equal(t, "Trade Executed: Buy Order Completed", c.Subject)
	assert.Contains(t, c.Message, "Dear Alice")
	assert.Contains(t, c.Message, "TCS")
	assert.Contains(t, c.Message, "5 units")
	assert.Contains(t, c.Message, "NSE")
}

func TestComposeDefaultsRecipientName(t *testing.T) {
	c := Compose("", types.EventSell, types.EventDetails{Symbol: "INFY"}, nil)
	assert.Contains(t, c.Message, "Dear User")
}

func TestComposeTradeFailed(t *testing.T) {
	c := Compose("Bob", types.EventTradeFailed, types.EventDetails{
		Symbol:        "HDFC",
		TradeType:     types.Buy,
		FailureReason: "insufficient funds",
	}, nil)

	assert.Equal(t, "Trade Failed: Action Required", c.Subject)
	assert.Contains(t, c.Message, "insufficient funds")
}

func TestComposeAppendsInsight(t *testing.T) {
	ai := &insight.Insight{
		Reasoning:       "momentum remains positive",
		RiskFactors:     "earnings next week",
		Confidence:      "High",
		ConfidenceScore: 8,
	}
	c := Compose("Alice", types.EventPriceTrigger, types.EventDetails{
		Symbol:      "CDSL",
		TargetPrice: 1500,
		Condition:   "above",
	}, ai)

	assert.Contains(t, c.Message, "AI Insight")
	assert.Contains(t, c.Message, "momentum remains positive")
	assert.Contains(t, c.Message, "earnings next week")
	assert.Contains(t, c.Message, "(8/10)")
}
