package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cast"

	"github.com/quantnest/tradeflow/types"
	"github.com/quantnest/tradeflow/utils"
)

// Service is the spot-price lookup collaborator. Implementations return an
// error when no quote is available; callers decide whether that is fatal.
type Service interface {
	SpotPrice(ctx context.Context, symbol string, market types.Market) (float64, error)
}

var _ Service = &HTTPClient{}

// DefaultSymbolMap maps internal crypto symbols to exchange tickers.
var DefaultSymbolMap = map[string]string{
	"BTC": "BTCUSDT",
	"ETH": "ETHUSDT",
	"SOL": "SOLUSDT",
}

// HTTPClient fetches quotes from the NSE public quote API for Indian symbols
// and from the Binance ticker API for crypto symbols.
type HTTPClient struct {
	Client    *http.Client
	NSEBase   string
	CryptoURL string
	// SymbolMap maps internal symbols to exchange tickers.
	SymbolMap map[string]string
}

// NewHTTPClient creates a price client with optional proxy support.
func NewHTTPClient(proxyURL string) *HTTPClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &HTTPClient{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		NSEBase:   "https://www.nseindia.com/api/NextApi/apiClient/GetQuoteApi",
		CryptoURL: "https://api.binance.com/api/v3/ticker/price",
		SymbolMap: utils.CloneMap(DefaultSymbolMap),
	}
}

func (c *HTTPClient) mappedSymbol(symbol string) string {
	if mapped, ok := c.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (c *HTTPClient) SpotPrice(ctx context.Context, symbol string, market types.Market) (float64, error) {
	if types.NormalizeMarket(string(market)) == types.MarketCrypto {
		return c.cryptoPrice(ctx, symbol)
	}
	return c.nsePrice(ctx, symbol)
}

// nseQuote is the response structure from the NSE quote API.
type nseQuote struct {
	EquityResponse []struct {
		OrderBook struct {
			LastPrice any `json:"lastPrice"`
		} `json:"orderBook"`
	} `json:"equityResponse"`
}

func (c *HTTPClient) nsePrice(ctx context.Context, symbol string) (float64, error) {
	reqURL := fmt.Sprintf("%s?functionName=getSymbolData&marketType=N&series=EQ&symbol=%s",
		c.NSEBase, url.QueryEscape(c.mappedSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, errors.Trace(err)
	}
	req.Header.Set("accept", "*/*")
	req.Header.Set("accept-language", "en-GB,en;q=0.9")
	req.Header.Set("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36")

	body, err := c.do(req)
	if err != nil {
		return 0, errors.Annotatef(err, "failed to fetch price for %s", symbol)
	}

	quote := nseQuote{}
	if err := utils.Unserialize(body, &quote); err != nil {
		return 0, errors.Annotatef(err, "malformed NSE quote for %s", symbol)
	}
	if len(quote.EquityResponse) == 0 {
		return 0, errors.NotFoundf("NSE quote for %s", symbol)
	}
	price := cast.ToFloat64(quote.EquityResponse[0].OrderBook.LastPrice)
	if price <= 0 {
		return 0, errors.NotFoundf("usable last price for %s", symbol)
	}
	return price, nil
}

type binanceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *HTTPClient) cryptoPrice(ctx context.Context, symbol string) (float64, error) {
	reqURL := fmt.Sprintf("%s?symbol=%s", c.CryptoURL, url.QueryEscape(c.mappedSymbol(symbol)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, errors.Trace(err)
	}

	body, err := c.do(req)
	if err != nil {
		return 0, errors.Annotatef(err, "failed to fetch price for %s", symbol)
	}

	ticker := binanceTicker{}
	if err := utils.Unserialize(body, &ticker); err != nil {
		return 0, errors.Annotatef(err, "malformed ticker for %s", symbol)
	}
	price := cast.ToFloat64(ticker.Price)
	if price <= 0 {
		return 0, errors.NotFoundf("usable ticker price for %s", symbol)
	}
	return price, nil
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("quote API status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
