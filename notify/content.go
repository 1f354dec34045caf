package notify

import (
	"fmt"
	"strings"

	"github.com/quantnest/tradeflow/insight"
	"github.com/quantnest/tradeflow/types"
)

const brandName = "QuantNest Trading"

// Content is a rendered notification ready to hand to a channel sender.
type Content struct {
	Subject string
	Message string
}

// Compose renders the subject and body for an event. The same content feeds
// every channel; the senders only differ in transport.
func Compose(recipientName string, eventType types.EventType, details types.EventDetails, ai *insight.Insight) Content {
	if recipientName == "" {
		recipientName = "User"
	}

	var c Content
	switch eventType {
	case types.EventBuy:
		c = Content{
			Subject: "Trade Executed: Buy Order Completed",
			Message: fmt.Sprintf("Dear %s,\n\nYour buy order has been successfully executed on %s.\n\nTrade Details:\n• Symbol: %s\n• Quantity: %.0f units\n• Exchange: %s",
				recipientName, brandName, details.Symbol, details.Quantity, details.Exchange),
		}
	case types.EventSell:
		c = Content{
			Subject: "Trade Executed: Sell Order Completed",
			Message: fmt.Sprintf("Dear %s,\n\nYour sell order has been successfully executed on %s.\n\nTrade Details:\n• Symbol: %s\n• Quantity: %.0f units\n• Exchange: %s",
				recipientName, brandName, details.Symbol, details.Quantity, details.Exchange),
		}
	case types.EventPriceTrigger:
		c = Content{
			Subject: "Price Alert: Target Price Reached",
			Message: fmt.Sprintf("Dear %s,\n\n%s has moved %s your target price of ₹%.2f.",
				recipientName, details.Symbol, details.Condition, details.TargetPrice),
		}
	case types.EventTradeFailed:
		c = Content{
			Subject: "Trade Failed: Action Required",
			Message: fmt.Sprintf("Dear %s,\n\nYour %s order for %s could not be executed.\n\nReason: %s\n\nPlease review your broker credentials and available funds, then try again.",
				recipientName, details.TradeType, details.Symbol, details.FailureReason),
		}
	default:
		c = Content{
			Subject: fmt.Sprintf("%s Notification", brandName),
			Message: fmt.Sprintf("Dear %s,\n\nYour workflow notification step has run.", recipientName),
		}
	}

	if ai != nil {
		c.Message = appendInsight(c.Message, ai)
	}
	return c
}

func appendInsight(message string, ai *insight.Insight) string {
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\nAI Insight:\n")
	b.WriteString(ai.Reasoning)
	if ai.RiskFactors != "" {
		b.WriteString("\n\nRisk Factors: ")
		b.WriteString(ai.RiskFactors)
	}
	b.WriteString(fmt.Sprintf("\nConfidence: %s (%d/10)", ai.Confidence, ai.ConfidenceScore))
	return b.String()
}
