package types

import (
	"fmt"
	"time"
)

type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
)

// Duration returns the bucket width, or 0 for an unknown timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe1m:
		return time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe1h:
		return time.Hour
	}
	return 0
}

type IndicatorKind string

const (
	IndicatorPrice     IndicatorKind = "price"
	IndicatorVolume    IndicatorKind = "volume"
	IndicatorSMA       IndicatorKind = "sma"
	IndicatorEMA       IndicatorKind = "ema"
	IndicatorRSI       IndicatorKind = "rsi"
	IndicatorPctChange IndicatorKind = "pct_change"
)

type IndicatorParams struct {
	Period int `json:"period,omitempty"`
}

// IndicatorReference is the stable composite key identifying one computed
// series value.
type IndicatorReference struct {
	Symbol    string          `json:"symbol"`
	Timeframe Timeframe       `json:"timeframe"`
	Market    Market          `json:"marketType,omitempty"`
	Indicator IndicatorKind   `json:"indicator"`
	Params    IndicatorParams `json:"params,omitempty"`
}

// Key normalizes the market before building the composite key so that
// authoring aliases of the same series collapse onto one subscription.
func (r IndicatorReference) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s:%d",
		NormalizeMarket(string(r.Market)), r.Symbol, r.Timeframe, r.Indicator, r.Params.Period)
}

// Period returns the configured period, or the fallback when unset or
// nonsensical.
func (r IndicatorReference) Period(fallback int) int {
	if r.Params.Period <= 0 {
		return fallback
	}
	return r.Params.Period
}

// Candle is the OHLCV summary of one symbol/timeframe bucket.
type Candle struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}
