package types

type StatusType string

const (
	InProgress StatusType = "InProgress"
	Success    StatusType = "Success"
	Failed     StatusType = "Failed"
	// StepSkipped only ever appears on individual steps, never on a run.
	StepSkipped StatusType = "Skipped"
)

// RunState tracks one node inside a single traversal. It is never persisted
// across runs.
type RunState int32

const (
	Pending RunState = 0
	Running RunState = 1
	Done    RunState = 2
	Errored RunState = 3
	Skipped RunState = 4
)

type NodeKind string

const (
	KindTrigger     NodeKind = "trigger"
	KindConditional NodeKind = "conditional"
	KindAction      NodeKind = "action"
)

type NodeType string

const (
	TypeTimer              NodeType = "timer"
	TypePriceTrigger       NodeType = "price-trigger"
	TypeConditionalTrigger NodeType = "conditional-trigger"
	TypeBrokerOrder        NodeType = "broker-order"
	TypeNotifyEmail        NodeType = "notify-email"
	TypeNotifyDiscord      NodeType = "notify-discord"
	TypeNotifyWhatsapp     NodeType = "notify-whatsapp"
	TypeReport             NodeType = "report"
)

type Market string

const (
	MarketIndian Market = "Indian"
	MarketCrypto Market = "Crypto"
)

// NormalizeMarket maps authoring-surface aliases onto the two supported
// markets. Anything unrecognized is treated as Indian.
func NormalizeMarket(s string) Market {
	switch s {
	case string(MarketCrypto), "web3", "crypto":
		return MarketCrypto
	default:
		return MarketIndian
	}
}

type PriceCondition string

const (
	Above PriceCondition = "above"
	Below PriceCondition = "below"
)

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

type EventType string

const (
	EventBuy          EventType = "buy"
	EventSell         EventType = "sell"
	EventPriceTrigger EventType = "price_trigger"
	EventTradeFailed  EventType = "trade_failed"
	EventNotification EventType = "notification"
)
