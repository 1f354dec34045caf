package types

// EventDetails describes the action (or trigger) a notification is about.
// Concurrent action siblings may overwrite each other's details in the run
// context; last writer wins and downstream notifications describe the most
// recent action.
type EventDetails struct {
	Symbol        string         `json:"symbol,omitempty"`
	Quantity      float64        `json:"quantity,omitempty"`
	Exchange      string         `json:"exchange,omitempty"`
	TargetPrice   float64        `json:"targetPrice,omitempty"`
	Condition     PriceCondition `json:"condition,omitempty"`
	TradeType     OrderSide      `json:"tradeType,omitempty"`
	FailureReason string         `json:"failureReason,omitempty"`
	Market        Market         `json:"marketType,omitempty"`
}
