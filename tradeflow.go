package tradeflow

import (
	"github.com/juju/errors"

	"github.com/quantnest/tradeflow/broker"
	"github.com/quantnest/tradeflow/executor"
	"github.com/quantnest/tradeflow/feed"
	"github.com/quantnest/tradeflow/indicator"
	"github.com/quantnest/tradeflow/insight"
	"github.com/quantnest/tradeflow/market"
	"github.com/quantnest/tradeflow/notify"
	"github.com/quantnest/tradeflow/report"
	"github.com/quantnest/tradeflow/scheduler"
	"github.com/quantnest/tradeflow/store"
	"github.com/quantnest/tradeflow/store/mem"
	"github.com/quantnest/tradeflow/store/postgres"
	"github.com/quantnest/tradeflow/trigger"
	"github.com/quantnest/tradeflow/types"
)

// Engine bundles the wired components of one running workflow engine.
type Engine struct {
	Workflows  store.WorkflowStore
	Executions store.ExecutionStore
	Indicators *indicator.Engine
	Scheduler  *scheduler.Scheduler
	Feed       *feed.Feed
}

// Collaborators are the external services the engine calls out to. Zero
// values get production defaults; tests inject stubs.
type Collaborators struct {
	Prices   market.Service
	Broker   broker.Gateway
	Notifier notify.Gateway
	Reporter executor.Reporter
	Insight  insight.Service
}

// NewEngine wires stores, indicator engine, evaluator, executor, scheduler
// and feed from the given options.
func NewEngine(collab Collaborators, opts ...types.EngineOption) (*Engine, error) {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	var workflows store.WorkflowStore
	var executions store.ExecutionStore

	// PostgresDSN takes precedence over MemStore.
	if options.PostgresDSN != "" {
		cfg, err := postgres.ParseDSN(options.PostgresDSN)
		if err != nil {
			return nil, errors.Trace(err)
		}
		pg, err := postgres.NewStore(cfg)
		if err != nil {
			return nil, errors.Annotatef(err, "creating PostgreSQL store")
		}
		workflows, executions = pg, pg
	} else {
		workflows = mem.NewWorkflowStore()
		executions = mem.NewExecutionStore()
	}

	if collab.Prices == nil {
		collab.Prices = market.NewHTTPClient("")
	}
	if collab.Broker == nil {
		collab.Broker = broker.NewKiteClient()
	}
	if collab.Insight == nil {
		collab.Insight = insight.Disabled{}
	}
	if collab.Notifier == nil {
		collab.Notifier = notify.NewDispatcher(collab.Insight, notify.EmailConfig{}, notify.WhatsappConfig{})
	}
	if collab.Reporter == nil {
		collab.Reporter = report.NewNotionClient()
	}

	indicators := indicator.NewEngine(collab.Prices, options.CandleHistory)
	evaluator := trigger.NewEvaluator(collab.Prices, indicators)
	guard := scheduler.NewReportGuard(executions, options)
	exec := executor.New(evaluator, collab.Broker, collab.Notifier, collab.Reporter, guard, options.MaxConcurrency)
	sched := scheduler.New(workflows, executions, evaluator, exec, indicators, options)

	return &Engine{
		Workflows:  workflows,
		Executions: executions,
		Indicators: indicators,
		Scheduler:  sched,
		Feed:       feed.New(indicators),
	}, nil
}
