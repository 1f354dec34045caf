package types

import (
	"github.com/juju/errors"
)

// Supported symbols per market. The price trigger refuses to fire for
// anything outside these lists.
var (
	SupportedIndianAssets = []string{"CDSL", "HDFC", "TCS", "INFY", "RELIANCE"}
	SupportedCryptoAssets = []string{"BTC", "ETH", "SOL"}
)

func IsSupportedAsset(symbol string, market Market) bool {
	list := SupportedIndianAssets
	if NormalizeMarket(string(market)) == MarketCrypto {
		list = SupportedCryptoAssets
	}
	for _, s := range list {
		if s == symbol {
			return true
		}
	}
	return false
}

// TimerMeta configures a timer trigger.
type TimerMeta struct {
	IntervalSeconds int64
}

// PriceTriggerMeta configures a price-threshold trigger.
type PriceTriggerMeta struct {
	Asset       string
	TargetPrice float64
	Condition   PriceCondition
	Market      Market
}

// ConditionalMeta configures a conditional trigger or conditional node.
// Expression takes precedence; the legacy single-condition fields are used
// when no expression is present.
type ConditionalMeta struct {
	Expression  *ConditionExpr
	Asset       string
	TargetPrice float64
	Condition   PriceCondition
	Market      Market
}

func (m *ConditionalMeta) HasLegacyCondition() bool {
	return m.Asset != "" && m.TargetPrice != 0 &&
		(m.Condition == Above || m.Condition == Below)
}

// OrderMeta configures a broker-order action node.
type OrderMeta struct {
	Symbol      string
	Qty         float64
	Side        OrderSide
	Exchange    string
	APIKey      string
	AccessToken string
	Market      Market
	// Condition, when present, gates the order on the propagated branch
	// result of a conditional ancestor.
	Condition *bool
}

// NotifyMeta configures email/discord/whatsapp action nodes. Recipient is
// the channel address: an email, a webhook URL, or a phone number.
type NotifyMeta struct {
	Recipient     string
	RecipientName string
	Condition     *bool
}

// ReportMeta configures a daily report action node.
type ReportMeta struct {
	APIKey       string
	ParentPageID string
}

func DecodeTimerMeta(d Data) (TimerMeta, error) {
	interval, ok := d.GetInt64("time")
	if !ok || interval <= 0 {
		return TimerMeta{}, errors.BadRequestf("timer metadata: missing or non-positive interval")
	}
	return TimerMeta{IntervalSeconds: interval}, nil
}

func DecodePriceTriggerMeta(d Data) (PriceTriggerMeta, error) {
	meta := PriceTriggerMeta{}
	meta.Asset, _ = d.GetString("asset")
	meta.TargetPrice, _ = d.GetFloat64("targetPrice")
	cond, _ := d.GetString("condition")
	meta.Condition = PriceCondition(cond)
	market, _ := d.GetString("marketType")
	meta.Market = NormalizeMarket(market)

	if meta.Condition != Above && meta.Condition != Below {
		return meta, errors.BadRequestf("price trigger metadata: condition must be above or below")
	}
	if meta.TargetPrice == 0 {
		return meta, errors.BadRequestf("price trigger metadata: missing target price")
	}
	return meta, nil
}

func DecodeConditionalMeta(d Data) (ConditionalMeta, error) {
	meta := ConditionalMeta{}
	if _, exists := d.Get("expression"); exists {
		expr := &ConditionExpr{}
		if err := d.GetStruct("expression", expr); err != nil {
			return meta, errors.Annotatef(err, "conditional metadata: malformed expression")
		}
		meta.Expression = expr
	}
	meta.Asset, _ = d.GetString("asset")
	meta.TargetPrice, _ = d.GetFloat64("targetPrice")
	cond, _ := d.GetString("condition")
	meta.Condition = PriceCondition(cond)
	market, _ := d.GetString("marketType")
	meta.Market = NormalizeMarket(market)
	return meta, nil
}

func DecodeOrderMeta(d Data) (OrderMeta, error) {
	meta := OrderMeta{}
	meta.Symbol, _ = d.GetString("symbol")
	meta.Qty, _ = d.GetFloat64("qty")
	side, _ := d.GetString("type")
	meta.Side = OrderSide(side)
	meta.Exchange, _ = d.GetString("exchange")
	if meta.Exchange == "" {
		meta.Exchange = "NSE"
	}
	meta.APIKey, _ = d.GetString("apiKey")
	meta.AccessToken, _ = d.GetString("accessToken")
	market, _ := d.GetString("marketType")
	meta.Market = NormalizeMarket(market)
	meta.Condition = decodeBranchCondition(d)

	if meta.Symbol == "" {
		return meta, errors.BadRequestf("order metadata: missing symbol")
	}
	if meta.Qty <= 0 {
		return meta, errors.BadRequestf("order metadata: qty must be positive")
	}
	if meta.Side != Buy && meta.Side != Sell {
		return meta, errors.BadRequestf("order metadata: type must be buy or sell")
	}
	return meta, nil
}

func DecodeNotifyMeta(d Data, nodeType NodeType) (NotifyMeta, error) {
	meta := NotifyMeta{}
	meta.RecipientName, _ = d.GetString("recipientName")
	if meta.RecipientName == "" {
		meta.RecipientName = "User"
	}
	meta.Condition = decodeBranchCondition(d)

	switch nodeType {
	case TypeNotifyEmail:
		meta.Recipient, _ = d.GetString("recipientEmail")
	case TypeNotifyDiscord:
		meta.Recipient, _ = d.GetString("webhookUrl")
	case TypeNotifyWhatsapp:
		meta.Recipient, _ = d.GetString("phoneNumber")
	default:
		return meta, errors.NotSupportedf("node type %s", nodeType)
	}
	if meta.Recipient == "" {
		return meta, errors.BadRequestf("%s metadata: missing recipient", nodeType)
	}
	return meta, nil
}

func DecodeReportMeta(d Data) (ReportMeta, error) {
	meta := ReportMeta{}
	meta.APIKey, _ = d.GetString("apiKey")
	meta.ParentPageID, _ = d.GetString("parentPageId")
	if meta.ParentPageID == "" {
		return meta, errors.BadRequestf("report metadata: missing parent page id")
	}
	return meta, nil
}

// BranchCondition only honors a real boolean; the authoring surface
// sometimes sends condition as the above/below string, which belongs to
// price metadata instead.
func BranchCondition(d Data) *bool {
	v, exists := d.Get("condition")
	if !exists {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func decodeBranchCondition(d Data) *bool {
	return BranchCondition(d)
}
