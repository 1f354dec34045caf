package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/quantnest/tradeflow/indicator"
	"github.com/quantnest/tradeflow/market"
	"github.com/quantnest/tradeflow/types"
)

const (
	binanceStreamURL = "wss://stream.binance.com:9443/stream"
	pingInterval     = 20 * time.Second
	reconnectDelay   = time.Second
)

/**
 * Feed streams live crypto trades into the indicator engine over one
 * combined websocket. Indian-market series have no public tick stream here;
 * they are serviced by the engine's on-demand spot fetches instead.
 */
type Feed struct {
	engine *indicator.Engine
	dialer *websocket.Dialer
	url    string
}

func New(engine *indicator.Engine) *Feed {
	return &Feed{
		engine: engine,
		dialer: websocket.DefaultDialer,
		url:    binanceStreamURL,
	}
}

// Run connects and pumps ticks until the context is cancelled, reconnecting
// on any read error. It blocks; run it on its own goroutine.
func (f *Feed) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		symbols := f.cryptoSymbols()
		if len(symbols) == 0 {
			// Nothing subscribed yet; poll until a workflow needs a stream.
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if err := f.stream(ctx, symbols); err != nil {
			log.Warnf("tick stream: %v, reconnecting", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// cryptoSymbols maps the engine's crypto subscriptions to exchange pairs.
func (f *Feed) cryptoSymbols() map[string]string {
	pairs := make(map[string]string)
	for _, ref := range f.engine.Subscriptions() {
		if types.NormalizeMarket(string(ref.Market)) != types.MarketCrypto {
			continue
		}
		pair, ok := market.DefaultSymbolMap[ref.Symbol]
		if !ok {
			pair = ref.Symbol + "USDT"
		}
		pairs[strings.ToLower(pair)] = ref.Symbol
	}
	return pairs
}

func (f *Feed) stream(ctx context.Context, pairs map[string]string) error {
	streams := make([]string, 0, len(pairs))
	for pair := range pairs {
		streams = append(streams, pair+"@trade")
	}
	url := fmt.Sprintf("%s?streams=%s", f.url, strings.Join(streams, "/"))

	conn, _, err := f.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("tick stream connected, %d symbols", len(pairs))

	// done releases both helper goroutines when the read loop returns, so a
	// reconnect does not leave them behind.
	done := make(chan struct{})
	defer close(done)

	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var frame struct {
			Stream string `json:"stream"`
			Data   struct {
				Symbol    string `json:"s"`
				Price     string `json:"p"`
				Quantity  string `json:"q"`
				TradeTime int64  `json:"T"`
			} `json:"data"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}

		pair := strings.TrimSuffix(frame.Stream, "@trade")
		symbol, ok := pairs[pair]
		if !ok {
			continue
		}

		price := cast.ToFloat64(frame.Data.Price)
		if price <= 0 {
			continue
		}
		f.engine.IngestTick(symbol, types.MarketCrypto,
			price, cast.ToFloat64(frame.Data.Quantity),
			time.UnixMilli(frame.Data.TradeTime))
	}
}
