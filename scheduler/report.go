package scheduler

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/store"
	"github.com/quantnest/tradeflow/types"
)

/**
 * ReportGuard limits report nodes to one publish per calendar day: the
 * local-timezone cutoff must have passed, and no earlier run in the lookback
 * window may already carry a Success step for the same node today.
 */
type ReportGuard struct {
	Executions store.ExecutionStore
	Location   *time.Location

	// CutoffMinutes is minutes since local midnight; 930 is 15:30.
	CutoffMinutes int
	Lookback      time.Duration
}

func NewReportGuard(executions store.ExecutionStore, opts *types.EngineOptions) *ReportGuard {
	loc, err := time.LoadLocation(opts.ReportTimezone)
	if err != nil {
		log.Warnf("report timezone %q unavailable, using UTC: %v", opts.ReportTimezone, err)
		loc = time.UTC
	}
	return &ReportGuard{
		Executions:    executions,
		Location:      loc,
		CutoffMinutes: opts.ReportCutoffMinutes,
		Lookback:      opts.ReportLookback,
	}
}

func (g *ReportGuard) ShouldReport(ctx context.Context, workflowID, nodeID string, now time.Time) (bool, string) {
	local := now.In(g.Location)
	if local.Hour()*60+local.Minute() < g.CutoffMinutes {
		return false, "report window not open yet"
	}
	if g.reportedToday(ctx, workflowID, nodeID, local) {
		return false, "report already published today"
	}
	return true, ""
}

func (g *ReportGuard) reportedToday(ctx context.Context, workflowID, nodeID string, local time.Time) bool {
	records, err := g.Executions.ListSince(ctx, workflowID, local.Add(-g.Lookback))
	if err != nil {
		// Fail open: a duplicate report beats a missing one.
		log.Warnf("report guard: listing records for %s: %v", workflowID, err)
		return false
	}

	today := local.Format("2006-01-02")
	for _, rec := range records {
		if rec.StartTime.In(g.Location).Format("2006-01-02") != today {
			continue
		}
		for _, step := range rec.Steps {
			if step.NodeID == nodeID && step.Status == types.Success {
				return true
			}
		}
	}
	return false
}
