package types

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"
)

func NewEngineOptions() *EngineOptions {
	opts := &EngineOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type EngineOptions struct {
	Ctx context.Context
	/**
	 * default: 10s
	 * the scheduler re-evaluates every workflow at this fixed interval.
	 * Ticks do not overlap for the scheduler itself.
	 */
	TickInterval time.Duration `default:"10s"`
	/**
	 * default: 16
	 * upper bound on workflows evaluated concurrently within one tick, and
	 * on action nodes executed concurrently within one traversal frontier.
	 */
	MaxConcurrency int `default:"16"`
	/**
	 * default: 1000
	 * closed candles kept per indicator series; oldest evicted first.
	 */
	CandleHistory int `default:"1000"`
	/**
	 * Report nodes run at most once per calendar day, after this cutoff
	 * (minutes since local midnight; default 15:30) in ReportTimezone.
	 */
	ReportCutoffMinutes int    `default:"930"`
	ReportTimezone      string `default:"Asia/Kolkata"`
	/**
	 * default: 48h
	 * how far back the report dedupe guard scans execution records.
	 */
	ReportLookback time.Duration `default:"48h"`
	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// If both MemStore and PostgresDSN are set, PostgresDSN takes precedence.
	PostgresDSN string
}

type EngineOption func(*EngineOptions)

func WithContext(ctx context.Context) EngineOption {
	return func(opts *EngineOptions) {
		opts.Ctx = ctx
	}
}

func WithTickInterval(d time.Duration) EngineOption {
	return func(opts *EngineOptions) {
		opts.TickInterval = d
	}
}

func SetMaxConcurrency(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.MaxConcurrency = n
	}
}

func WithCandleHistory(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.CandleHistory = n
	}
}

func WithReportCutoff(minutesSinceMidnight int, timezone string) EngineOption {
	return func(opts *EngineOptions) {
		opts.ReportCutoffMinutes = minutesSinceMidnight
		opts.ReportTimezone = timezone
	}
}

func WithReportLookback(d time.Duration) EngineOption {
	return func(opts *EngineOptions) {
		opts.ReportLookback = d
	}
}

func EnableMemStore() EngineOption {
	return func(opts *EngineOptions) {
		opts.MemStore = true
	}
}

func WithPostgresDSN(dsn string) EngineOption {
	return func(opts *EngineOptions) {
		opts.PostgresDSN = dsn
	}
}
