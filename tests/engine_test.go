package tests

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantnest/tradeflow"
	"github.com/quantnest/tradeflow/broker"
	"github.com/quantnest/tradeflow/notify"
	"github.com/quantnest/tradeflow/types"
)

type stubPrices struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (s *stubPrices) SpotPrice(ctx context.Context, symbol string, m types.Market) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prices[symbol], nil
}

type stubBroker struct {
	mu     sync.Mutex
	result broker.Result
	orders []broker.Order
}

func (b *stubBroker) PlaceOrder(ctx context.Context, order broker.Order) (broker.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders = append(b.orders, order)
	return b.result, nil
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []types.EventType
}

func (n *stubNotifier) Send(ctx context.Context, channel notify.Channel, to notify.Recipient, eventType types.EventType, details types.EventDetails) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, eventType)
	return nil
}

type workflowPutter interface {
	Put(w types.Workflow)
}

func newEngine(t *testing.T, prices *stubPrices, b *stubBroker, n *stubNotifier) *tradeflow.Engine {
	t.Helper()
	engine, err := tradeflow.NewEngine(tradeflow.Collaborators{
		Prices:   prices,
		Broker:   b,
		Notifier: n,
	}, types.EnableMemStore(), types.SetMaxConcurrency(4))
	require.NoError(t, err)
	return engine
}

func data(pairs map[string]any) types.Data {
	d := types.Data{}
	for k, v := range pairs {
		d.Set(k, v)
	}
	return d
}

// The full path: a timer fires, a conditional selects the matching branch
// from an indicator expression, the order is placed and the notification
// describes it, and the persisted record carries every step.
func TestConditionalTradeEndToEnd(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{"BTC": 45000}}
	b := &stubBroker{result: broker.ResultSuccess}
	n := &stubNotifier{}
	engine := newEngine(t, prices, b, n)

	expr := map[string]any{
		"type":     "clause",
		"operator": ">",
		"left": map[string]any{
			"type": "indicator",
			"indicator": map[string]any{
				"symbol": "BTC", "timeframe": "1m", "marketType": "Crypto", "indicator": "price",
			},
		},
		"right": map[string]any{"type": "value", "value": 40000},
	}

	wf := types.Workflow{
		ID: "wf-e2e",
		Nodes: []types.Node{
			{ID: "t", Kind: types.KindTrigger, Type: types.TypeTimer,
				Metadata: data(map[string]any{"time": 60})},
			{ID: "c", Kind: types.KindConditional, Type: types.TypeConditionalTrigger,
				Metadata: data(map[string]any{"expression": expr})},
			{ID: "buy", Kind: types.KindAction, Type: types.TypeBrokerOrder,
				Metadata: data(map[string]any{"symbol": "BTC", "qty": 1, "type": "buy", "marketType": "Crypto"})},
			{ID: "sell", Kind: types.KindAction, Type: types.TypeBrokerOrder,
				Metadata: data(map[string]any{"symbol": "BTC", "qty": 1, "type": "sell", "marketType": "Crypto"})},
			{ID: "mail", Kind: types.KindAction, Type: types.TypeNotifyEmail,
				Metadata: data(map[string]any{"recipientEmail": "a@b.c"})},
		},
		Edges: []types.Edge{
			{ID: "e1", Source: "t", Target: "c"},
			{ID: "e2", Source: "c", Target: "buy", Branch: types.BranchTrue},
			{ID: "e3", Source: "c", Target: "sell", Branch: types.BranchFalse},
			{ID: "e4", Source: "buy", Target: "mail"},
		},
	}
	engine.Workflows.(workflowPutter).Put(wf)

	// The series has never streamed; the tick's quote poll seeds it before
	// the clause is evaluated.
	ctx := context.Background()
	engine.Scheduler.Tick(ctx)
	records, err := engine.Executions.ListSince(ctx, "wf-e2e", time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, types.Success, rec.Status)
	require.NotNil(t, rec.EndTime)

	// Trigger, conditional, buy, mail — and nothing from the false branch.
	require.Len(t, rec.Steps, 4)
	for _, s := range rec.Steps {
		assert.NotEqual(t, "sell", s.NodeID)
	}

	require.Len(t, b.orders, 1)
	assert.Equal(t, types.Buy, b.orders[0].Side)
	require.Len(t, n.sent, 1)
	assert.Equal(t, types.EventBuy, n.sent[0])
}

// A broker failure mid-run never hides downstream steps, and the record ends
// Failed.
func TestFailedTradeStillAudited(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{}}
	b := &stubBroker{result: broker.ResultFailure}
	n := &stubNotifier{}
	engine := newEngine(t, prices, b, n)

	wf := types.Workflow{
		ID: "wf-fail",
		Nodes: []types.Node{
			{ID: "t", Kind: types.KindTrigger, Type: types.TypeTimer,
				Metadata: data(map[string]any{"time": 60})},
			{ID: "o", Kind: types.KindAction, Type: types.TypeBrokerOrder,
				Metadata: data(map[string]any{"symbol": "SOL", "qty": 3, "type": "sell", "marketType": "Crypto"})},
			{ID: "mail", Kind: types.KindAction, Type: types.TypeNotifyEmail,
				Metadata: data(map[string]any{"recipientEmail": "a@b.c"})},
		},
		Edges: []types.Edge{
			{ID: "e1", Source: "t", Target: "o"},
			{ID: "e2", Source: "o", Target: "mail"},
		},
	}
	engine.Workflows.(workflowPutter).Put(wf)

	ctx := context.Background()
	engine.Scheduler.Tick(ctx)

	latest, err := engine.Executions.Latest(ctx, "wf-fail")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, types.Failed, latest.Status)
	require.Len(t, latest.Steps, 3)

	// The notification went out describing the failed trade.
	require.Len(t, n.sent, 1)
	assert.Equal(t, types.EventTradeFailed, n.sent[0])
}

// A second tick inside the timer interval creates no second record.
func TestTimerIntervalRespectedAcrossTicks(t *testing.T) {
	prices := &stubPrices{prices: map[string]float64{}}
	engine := newEngine(t, prices, &stubBroker{result: broker.ResultSuccess}, &stubNotifier{})

	wf := types.Workflow{
		ID: "wf-timer",
		Nodes: []types.Node{
			{ID: "t", Kind: types.KindTrigger, Type: types.TypeTimer,
				Metadata: data(map[string]any{"time": 3600})},
		},
	}
	engine.Workflows.(workflowPutter).Put(wf)

	ctx := context.Background()
	engine.Scheduler.Tick(ctx)
	engine.Scheduler.Tick(ctx)

	records, err := engine.Executions.ListSince(ctx, "wf-timer", time.Time{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
