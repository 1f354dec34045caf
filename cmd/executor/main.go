package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow"
	"github.com/quantnest/tradeflow/config"
	"github.com/quantnest/tradeflow/insight"
	"github.com/quantnest/tradeflow/market"
	"github.com/quantnest/tradeflow/notify"
	"github.com/quantnest/tradeflow/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var insightSvc insight.Service = insight.Disabled{}
	if cfg.Insight.GeminiAPIKey != "" {
		insightSvc = insight.NewGeminiClient(cfg.Insight.GeminiAPIKey)
	}
	notifier := notify.NewDispatcher(insightSvc,
		notify.EmailConfig{APIKey: cfg.Notify.EmailAPIKey, From: cfg.Notify.EmailFrom},
		notify.WhatsappConfig{APIKey: cfg.Notify.WhatsappAPIKey, From: cfg.Notify.WhatsappFrom},
	)

	opts := []types.EngineOption{types.WithContext(ctx)}
	if cfg.Engine.TickInterval > 0 {
		opts = append(opts, types.WithTickInterval(cfg.Engine.TickInterval))
	}
	if cfg.Engine.Concurrency > 0 {
		opts = append(opts, types.SetMaxConcurrency(cfg.Engine.Concurrency))
	}
	if cfg.Engine.CandleHistory > 0 {
		opts = append(opts, types.WithCandleHistory(cfg.Engine.CandleHistory))
	}
	if cfg.Report.CutoffMinutes > 0 {
		opts = append(opts, types.WithReportCutoff(cfg.Report.CutoffMinutes, cfg.Report.Timezone))
	}
	if cfg.Report.Lookback > 0 {
		opts = append(opts, types.WithReportLookback(cfg.Report.Lookback))
	}
	if cfg.Database.PostgresDSN != "" {
		opts = append(opts, types.WithPostgresDSN(cfg.Database.PostgresDSN))
	} else if cfg.Database.MemStore {
		opts = append(opts, types.EnableMemStore())
	}

	engine, err := tradeflow.NewEngine(tradeflow.Collaborators{
		Prices:   market.NewHTTPClient(cfg.Proxy),
		Notifier: notifier,
		Insight:  insightSvc,
	}, opts...)
	if err != nil {
		log.Fatalf("wiring engine: %v", err)
	}

	go engine.Feed.Run(ctx)
	if err := engine.Scheduler.Start(); err != nil {
		log.Fatalf("starting scheduler: %v", err)
	}
	log.Info("tradeflow executor running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	cancel()
	engine.Scheduler.Stop()
}
