package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/executor"
	"github.com/quantnest/tradeflow/indicator"
	"github.com/quantnest/tradeflow/store"
	"github.com/quantnest/tradeflow/trigger"
	"github.com/quantnest/tradeflow/types"
)

/**
 * Scheduler re-evaluates every stored workflow at a fixed interval. Each
 * tick loads the workflow set, refreshes indicator subscriptions, and fans
 * the due-check plus execution out on a worker pool. One workflow blowing up
 * never touches its neighbours or the next tick.
 */
type Scheduler struct {
	workflows  store.WorkflowStore
	executions store.ExecutionStore
	evaluator  *trigger.Evaluator
	executor   *executor.Executor
	indicators *indicator.Engine

	opts *types.EngineOptions

	cron    *cron.Cron
	entryID cron.EntryID

	// tickMu keeps ticks from overlapping when one outlives the interval.
	tickMu sync.Mutex

	// now is swappable for report-guard tests.
	now func() time.Time
}

func New(workflows store.WorkflowStore, executions store.ExecutionStore,
	evaluator *trigger.Evaluator, exec *executor.Executor,
	indicators *indicator.Engine, opts *types.EngineOptions) *Scheduler {
	return &Scheduler{
		workflows:  workflows,
		executions: executions,
		evaluator:  evaluator,
		executor:   exec,
		indicators: indicators,
		opts:       opts,
		cron:       cron.New(),
		now:        time.Now,
	}
}

// Start registers the tick and begins firing. The cron runner starts every
// firing on its own goroutine; Tick itself drops a firing that would overlap
// a still-running one.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.opts.TickInterval)
	id, err := s.cron.AddFunc(spec, func() { s.Tick(s.opts.Ctx) })
	if err != nil {
		return errors.Annotatef(err, "registering tick %q", spec)
	}
	s.entryID = id
	s.cron.Start()
	log.Infof("scheduler started, tick interval %s", s.opts.TickInterval)
	return nil
}

// Stop halts ticking and waits for in-flight workflow runs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("scheduler stopped")
}

// Tick evaluates every workflow once. Exported so a caller can drive the
// loop manually instead of through cron. A tick arriving while the previous
// one is still running is dropped: two concurrent ticks would both pass the
// due-check before either records a run.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.tickMu.TryLock() {
		log.Warn("tick still running, skipping this firing")
		return
	}
	defer s.tickMu.Unlock()

	workflows, err := s.workflows.FindAll(ctx)
	if err != nil {
		log.Errorf("tick skipped: loading workflows: %v", err)
		return
	}

	refs := make([]*types.Workflow, len(workflows))
	for i := range workflows {
		refs[i] = &workflows[i]
	}
	s.indicators.RefreshSubscriptions(refs)
	s.indicators.PollQuotes(ctx)

	wp := workerpool.New(s.opts.MaxConcurrency)
	for _, wf := range refs {
		wf := wf
		wp.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("workflow %s: panic during tick: %v", wf.ID, r)
				}
			}()
			s.processWorkflow(ctx, wf)
		})
	}
	wp.StopWait()
}

func (s *Scheduler) processWorkflow(ctx context.Context, wf *types.Workflow) {
	now := s.now()

	var lastStart *time.Time
	latest, err := s.executions.Latest(ctx, wf.ID)
	if err != nil {
		log.Errorf("workflow %s: loading latest record: %v", wf.ID, err)
		return
	}
	if latest != nil {
		lastStart = &latest.StartTime
	}

	due, err := s.evaluator.Due(ctx, wf, lastStart, now)
	if err != nil {
		log.Warnf("workflow %s: trigger not evaluable: %v", wf.ID, err)
		if types.IsValidation(err) {
			s.recordTriggerFailure(ctx, wf, latest, now, err)
		}
		return
	}
	if !due {
		return
	}

	record, err := s.executions.Create(ctx, wf.ID, now)
	if err != nil {
		log.Errorf("workflow %s: creating record: %v", wf.ID, err)
		return
	}

	result := s.executor.Execute(ctx, wf)
	record.Steps = result.Steps

	if err := s.executions.Close(ctx, record, result.Status, s.now()); err != nil {
		log.Errorf("workflow %s: closing record %s: %v", wf.ID, record.ID, err)
		return
	}
	log.Infof("workflow %s: run %s finished %s with %d steps",
		wf.ID, record.ID, result.Status, len(result.Steps))
}

// recordTriggerFailure persists an unevaluable trigger as a single Failed
// step, so a broken workflow is visible in its run history instead of being
// silently skipped. The same failure is written once, not on every tick.
func (s *Scheduler) recordTriggerFailure(ctx context.Context, wf *types.Workflow, latest *types.ExecutionRecord, now time.Time, cause error) {
	message := fmt.Sprintf("trigger not evaluable: %v", cause)
	if latest != nil && latest.Status == types.Failed &&
		len(latest.Steps) == 1 && latest.Steps[0].Message == message {
		return
	}

	record, err := s.executions.Create(ctx, wf.ID, now)
	if err != nil {
		log.Errorf("workflow %s: recording trigger failure: %v", wf.ID, err)
		return
	}
	record.Steps = []types.ExecutionStep{{
		Step:     1,
		NodeID:   wf.ID,
		NodeKind: types.KindTrigger,
		Status:   types.Failed,
		Message:  message,
	}}
	if err := s.executions.Close(ctx, record, types.Failed, s.now()); err != nil {
		log.Errorf("workflow %s: closing failure record %s: %v", wf.ID, record.ID, err)
	}
}
