package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantnest/tradeflow/types"
)

func metadata(pairs map[string]any) types.Data {
	d := types.Data{}
	for k, v := range pairs {
		d.Set(k, v)
	}
	return d
}

func TestDecodeTimerMeta(t *testing.T) {
	meta, err := types.DecodeTimerMeta(metadata(map[string]any{"time": 300}))
	require.NoError(t, err)
	assert.Equal(t, int64(300), meta.IntervalSeconds)

	_, err = types.DecodeTimerMeta(types.Data{})
	assert.Error(t, err)

	_, err = types.DecodeTimerMeta(metadata(map[string]any{"time": -1}))
	assert.Error(t, err)
}

func TestDecodePriceTriggerMeta(t *testing.T) {
	meta, err := types.DecodePriceTriggerMeta(metadata(map[string]any{
		"asset": "TCS", "targetPrice": 3500.5, "condition": "above",
	}))
	require.NoError(t, err)
	assert.Equal(t, "TCS", meta.Asset)
	assert.Equal(t, 3500.5, meta.TargetPrice)
	assert.Equal(t, types.Above, meta.Condition)
	assert.Equal(t, types.MarketIndian, meta.Market)

	_, err = types.DecodePriceTriggerMeta(metadata(map[string]any{
		"asset": "TCS", "targetPrice": 100, "condition": "sideways",
	}))
	assert.Error(t, err)
}

func TestDecodeOrderMeta(t *testing.T) {
	meta, err := types.DecodeOrderMeta(metadata(map[string]any{
		"symbol": "INFY", "qty": 10, "type": "sell",
	}))
	require.NoError(t, err)
	assert.Equal(t, types.Sell, meta.Side)
	assert.Equal(t, "NSE", meta.Exchange, "exchange defaults to NSE")
	assert.Nil(t, meta.Condition)

	_, err = types.DecodeOrderMeta(metadata(map[string]any{"symbol": "INFY", "qty": 0, "type": "buy"}))
	assert.Error(t, err)
	_, err = types.DecodeOrderMeta(metadata(map[string]any{"qty": 1, "type": "buy"}))
	assert.Error(t, err)
}

func TestBranchConditionOnlyHonorsRealBool(t *testing.T) {
	withBool := metadata(map[string]any{
		"symbol": "INFY", "qty": 1, "type": "buy", "condition": true,
	})
	meta, err := types.DecodeOrderMeta(withBool)
	require.NoError(t, err)
	require.NotNil(t, meta.Condition)
	assert.True(t, *meta.Condition)

	// The above/below string belongs to price metadata, not branch gating.
	withString := metadata(map[string]any{
		"symbol": "INFY", "qty": 1, "type": "buy", "condition": "above",
	})
	meta, err = types.DecodeOrderMeta(withString)
	require.NoError(t, err)
	assert.Nil(t, meta.Condition)
}

func TestDecodeNotifyMetaPerChannel(t *testing.T) {
	meta, err := types.DecodeNotifyMeta(metadata(map[string]any{
		"recipientEmail": "a@b.c",
	}), types.TypeNotifyEmail)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", meta.Recipient)
	assert.Equal(t, "User", meta.RecipientName)

	meta, err = types.DecodeNotifyMeta(metadata(map[string]any{
		"webhookUrl": "https://discord.test/hook", "recipientName": "Alice",
	}), types.TypeNotifyDiscord)
	require.NoError(t, err)
	assert.Equal(t, "https://discord.test/hook", meta.Recipient)
	assert.Equal(t, "Alice", meta.RecipientName)

	_, err = types.DecodeNotifyMeta(types.Data{}, types.TypeNotifyWhatsapp)
	assert.Error(t, err, "missing phone number")
}

func TestIsSupportedAsset(t *testing.T) {
	assert.True(t, types.IsSupportedAsset("TCS", types.MarketIndian))
	assert.False(t, types.IsSupportedAsset("BTC", types.MarketIndian))
	assert.True(t, types.IsSupportedAsset("BTC", "web3"))
	assert.False(t, types.IsSupportedAsset("DOGE", types.MarketCrypto))
}

func TestNormalizeMarket(t *testing.T) {
	assert.Equal(t, types.MarketCrypto, types.NormalizeMarket("web3"))
	assert.Equal(t, types.MarketCrypto, types.NormalizeMarket("crypto"))
	assert.Equal(t, types.MarketIndian, types.NormalizeMarket("Indian"))
	assert.Equal(t, types.MarketIndian, types.NormalizeMarket(""))
}
