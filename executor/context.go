package executor

import (
	"github.com/quantnest/tradeflow/types"
)

/**
 * Context carries trigger and action facts forward through one traversal so
 * that notification and report nodes can describe the most recent event in
 * their lineage. Concurrent sibling actions write it without coordination,
 * so the last writer wins.
 */
type Context struct {
	Event     types.EventType
	Details   types.EventDetails
	Condition *bool
}

// seedContext builds the initial run context from the trigger's own
// metadata.
func seedContext(node *types.Node) *Context {
	c := &Context{Event: types.EventNotification}

	switch node.Type {
	case types.TypePriceTrigger:
		meta, err := types.DecodePriceTriggerMeta(node.Metadata)
		if err == nil {
			c.Event = types.EventPriceTrigger
			c.Details = types.EventDetails{
				Symbol:      meta.Asset,
				TargetPrice: meta.TargetPrice,
				Condition:   meta.Condition,
				Market:      meta.Market,
			}
		}
	case types.TypeConditionalTrigger:
		meta, err := types.DecodeConditionalMeta(node.Metadata)
		if err == nil && meta.HasLegacyCondition() {
			c.Details = types.EventDetails{
				Symbol:      meta.Asset,
				TargetPrice: meta.TargetPrice,
				Condition:   meta.Condition,
				Market:      meta.Market,
			}
		}
		// The trigger fired, so its condition evaluated true.
		fired := true
		c.Condition = &fired
	}
	return c
}

// recordTrade overwrites the context with the outcome of a broker action.
func (c *Context) recordTrade(meta types.OrderMeta, failureReason string) {
	details := types.EventDetails{
		Symbol:    meta.Symbol,
		Quantity:  meta.Qty,
		Exchange:  meta.Exchange,
		TradeType: meta.Side,
		Market:    meta.Market,
	}
	if failureReason != "" {
		details.FailureReason = failureReason
		c.Event = types.EventTradeFailed
	} else if meta.Side == types.Sell {
		c.Event = types.EventSell
	} else {
		c.Event = types.EventBuy
	}
	c.Details = details
}

func (c *Context) setCondition(value bool) {
	v := value
	c.Condition = &v
}
