package broker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/types"
)

type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultFailure Result = "FAILURE"
)

// Order carries everything a broker needs for one market order. Credentials
// come from node metadata; the engine never stores them.
type Order struct {
	Symbol      string
	Qty         float64
	Side        types.OrderSide
	Exchange    string
	APIKey      string
	AccessToken string
}

// Gateway places broker orders. A FAILURE result and a returned error are
// both treated as a failed step by the executor; the distinction is only
// whether the broker answered at all.
type Gateway interface {
	PlaceOrder(ctx context.Context, order Order) (Result, error)
}

var _ Gateway = &KiteClient{}

// KiteClient places regular MIS market orders over the Kite Connect HTTP
// API.
type KiteClient struct {
	Client  *http.Client
	BaseURL string
}

func NewKiteClient() *KiteClient {
	return &KiteClient{
		Client:  &http.Client{Timeout: 30 * time.Second},
		BaseURL: "https://api.kite.trade",
	}
}

func (k *KiteClient) PlaceOrder(ctx context.Context, order Order) (Result, error) {
	if order.Exchange != "NSE" && order.Exchange != "BSE" {
		return ResultFailure, errors.BadRequestf("invalid exchange: %s", order.Exchange)
	}

	form := url.Values{}
	form.Set("exchange", order.Exchange)
	form.Set("tradingsymbol", order.Symbol)
	form.Set("transaction_type", strings.ToUpper(string(order.Side)))
	form.Set("quantity", fmt.Sprintf("%.0f", order.Qty))
	form.Set("order_type", "MARKET")
	form.Set("product", "MIS")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		k.BaseURL+"/orders/regular", strings.NewReader(form.Encode()))
	if err != nil {
		return ResultFailure, errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Kite-Version", "3")
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", order.APIKey, order.AccessToken))

	resp, err := k.Client.Do(req)
	if err != nil {
		return ResultFailure, types.NewProviderError("kite",
			errors.Annotatef(err, "order request for %s", order.Symbol))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Errorf("broker rejected %s %s: status %d %s", order.Side, order.Symbol, resp.StatusCode, string(body))
		return ResultFailure, nil
	}
	return ResultSuccess, nil
}
