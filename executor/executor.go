package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/gammazero/workerpool"
	log "github.com/sirupsen/logrus"

	"github.com/quantnest/tradeflow/broker"
	"github.com/quantnest/tradeflow/market"
	"github.com/quantnest/tradeflow/notify"
	"github.com/quantnest/tradeflow/trigger"
	"github.com/quantnest/tradeflow/types"
)

// Reporter publishes a daily summary page. Failures surface as Failed steps
// but never abort a run.
type Reporter interface {
	Publish(ctx context.Context, meta types.ReportMeta, event types.EventType, details types.EventDetails) error
}

// ReportGuard decides whether a report node may publish on this run. The
// scheduler implements it using the run history; a nil guard always allows.
type ReportGuard interface {
	ShouldReport(ctx context.Context, workflowID, nodeID string, now time.Time) (bool, string)
}

/**
 * Executor walks the reachable subgraph from a fired trigger and produces
 * the ordered audit trail of the run. Traversal is breadth-first by
 * frontier: conditionals of a frontier are evaluated before its actions run,
 * actions of one frontier run concurrently, and every executed node appends
 * exactly one step. A Failed step never stops the traversal; it only forces
 * the final run status to Failed.
 */
type Executor struct {
	evaluator *trigger.Evaluator
	broker    broker.Gateway
	notifier  notify.Gateway
	reporter  Reporter
	guard     ReportGuard

	concurrency int

	marketStatus func(time.Time) market.Status
}

func New(evaluator *trigger.Evaluator, brokerGw broker.Gateway, notifier notify.Gateway, reporter Reporter, guard ReportGuard, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Executor{
		evaluator:    evaluator,
		broker:       brokerGw,
		notifier:     notifier,
		reporter:     reporter,
		guard:        guard,
		concurrency:  concurrency,
		marketStatus: market.IndianMarketStatus,
	}
}

// Execute runs one traversal. It never returns an error: every failure mode
// lands in the step list so the persisted record tells the whole story.
func (x *Executor) Execute(ctx context.Context, wf *types.Workflow) types.ExecutionResult {
	if err := validate(wf); err != nil {
		return types.ExecutionResult{
			Status: types.Failed,
			Steps: []types.ExecutionStep{{
				Step:     1,
				NodeID:   wf.ID,
				NodeKind: types.KindTrigger,
				Status:   types.Failed,
				Message:  fmt.Sprintf("workflow validation failed: %v", err),
			}},
		}
	}

	root, _ := wf.Trigger()
	run := &traversal{
		executor: x,
		workflow: wf,
		ectx:     seedContext(root),
		visited:  map[string]types.RunState{root.ID: types.Running},
	}

	run.appendStep(root, types.Success, fmt.Sprintf("trigger %s fired", root.Type))
	// The trigger's edges carry no branch labels; action nodes gate
	// themselves against the propagated condition instead.
	frontier := run.expand(root, nil)
	for len(frontier) > 0 {
		frontier = run.level(ctx, frontier)
	}

	status := types.Success
	for _, s := range run.steps {
		if s.Status == types.Failed {
			status = types.Failed
			break
		}
	}
	return types.ExecutionResult{Status: status, Steps: run.steps}
}

// validate rejects graphs the traversal cannot interpret: a missing trigger,
// an edge pointing at a node that does not exist, or a cycle in the edge set.
func validate(wf *types.Workflow) error {
	if _, ok := wf.Trigger(); !ok {
		return types.NewValidationErrorf("no trigger node")
	}
	adjacency := make(map[string][]string, len(wf.Nodes))
	for _, e := range wf.Edges {
		if _, ok := wf.NodeByID(e.Source); !ok {
			return types.NewValidationErrorf("edge %s: unknown source node %s", e.ID, e.Source)
		}
		if _, ok := wf.NodeByID(e.Target); !ok {
			return types.NewValidationErrorf("edge %s: unknown target node %s", e.ID, e.Target)
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
	}
	return detectCycle(wf, adjacency)
}

// detectCycle walks the edge set depth-first. Only a node still on the walk
// stack closes a cycle; reconverging on a finished node is a valid diamond.
func detectCycle(wf *types.Workflow, adjacency map[string][]string) error {
	const walking, finished = 1, 2
	state := make(map[string]int, len(wf.Nodes))

	var walk func(id string) error
	walk = func(id string) error {
		state[id] = walking
		for _, next := range adjacency[id] {
			switch state[next] {
			case walking:
				return types.NewValidationErrorf("cycle through node %s", next)
			case finished:
			default:
				if err := walk(next); err != nil {
					return err
				}
			}
		}
		state[id] = finished
		return nil
	}

	for i := range wf.Nodes {
		if state[wf.Nodes[i].ID] == 0 {
			if err := walk(wf.Nodes[i].ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// traversal is the per-run mutable state. It lives for one Execute call.
type traversal struct {
	executor *Executor
	workflow *types.Workflow
	ectx     *Context
	visited  map[string]types.RunState
	steps    []types.ExecutionStep
}

func (t *traversal) appendStep(node *types.Node, status types.StatusType, message string) {
	switch status {
	case types.Failed:
		t.visited[node.ID] = types.Errored
	case types.StepSkipped:
		t.visited[node.ID] = types.Skipped
	default:
		t.visited[node.ID] = types.Done
	}
	t.steps = append(t.steps, types.ExecutionStep{
		Step:     len(t.steps) + 1,
		NodeID:   node.ID,
		NodeKind: node.Kind,
		Status:   status,
		Message:  message,
	})
}

// level processes one frontier: conditionals first (they mutate the context
// their sibling actions read), then all actions concurrently. It returns the
// next frontier.
func (t *traversal) level(ctx context.Context, frontier []*types.Node) []*types.Node {
	var next []*types.Node
	var actions []*types.Node

	for _, node := range frontier {
		switch node.Kind {
		case types.KindConditional:
			next = append(next, t.runConditional(ctx, node)...)
		case types.KindAction:
			actions = append(actions, node)
		default:
			// A second trigger mid-graph has no defined semantics; record
			// it and do not descend.
			t.appendStep(node, types.Failed,
				fmt.Sprintf("unexpected %s node %s mid-graph", node.Kind, node.ID))
		}
	}

	if len(actions) > 0 {
		results := make([]struct {
			status  types.StatusType
			message string
		}, len(actions))

		wp := workerpool.New(t.executor.concurrency)
		for i, node := range actions {
			i, node := i, node
			wp.Submit(func() {
				defer func() {
					if r := recover(); r != nil {
						log.Errorf("action node %s panicked: %v", node.ID, r)
						results[i].status = types.Failed
						results[i].message = fmt.Sprintf("action panicked: %v", r)
					}
				}()
				results[i].status, results[i].message = t.executor.runAction(ctx, t.workflow, node, t.ectx)
			})
		}
		wp.StopWait()

		for i, node := range actions {
			t.appendStep(node, results[i].status, results[i].message)
			next = append(next, t.expand(node, nil)...)
		}
	}
	return next
}

func (t *traversal) runConditional(ctx context.Context, node *types.Node) []*types.Node {
	meta, err := types.DecodeConditionalMeta(node.Metadata)
	if err != nil {
		t.appendStep(node, types.Failed, fmt.Sprintf("conditional metadata: %v", err))
		return nil
	}

	c := t.executor.evaluator.EvaluateCondition(ctx, meta)
	t.ectx.setCondition(c)
	t.appendStep(node, types.Success, fmt.Sprintf("condition evaluated %t", c))
	return t.expand(node, &c)
}

/**
 * expand resolves the children of a just-executed node, honoring branch
 * selection when cond is set:
 *   1. edges labeled true/false are taken only when the label matches;
 *   2. if no outgoing edge carries a label, a target node's own boolean
 *      condition metadata is matched instead;
 *   3. edges and targets declaring neither pass through unconditionally.
 * A node reachable over several converging branches executes once; validate
 * has already rejected true cycles.
 */
func (t *traversal) expand(node *types.Node, cond *bool) []*types.Node {
	edges := wfEdgesForBranch(t.workflow, node, cond)

	var children []*types.Node
	for _, e := range edges {
		target, ok := t.workflow.NodeByID(e.Target)
		if !ok {
			continue
		}
		if t.visited[target.ID] != types.Pending {
			continue
		}
		t.visited[target.ID] = types.Running
		children = append(children, target)
	}
	return children
}

func wfEdgesForBranch(wf *types.Workflow, node *types.Node, cond *bool) []types.Edge {
	edges := wf.OutgoingEdges(node.ID)
	if cond == nil {
		return edges
	}

	want := types.BranchFalse
	if *cond {
		want = types.BranchTrue
	}

	anyLabeled := false
	for _, e := range edges {
		if e.Branch != types.BranchNone {
			anyLabeled = true
			break
		}
	}

	selected := make([]types.Edge, 0, len(edges))
	for _, e := range edges {
		switch {
		case e.Branch == want:
			selected = append(selected, e)
		case e.Branch != types.BranchNone:
			// The other branch.
		case anyLabeled:
			// Unlabeled edge among labeled siblings passes through.
			selected = append(selected, e)
		default:
			// No labels anywhere: fall back to the target's own declared
			// condition, pass-through when it declares none.
			target, ok := wf.NodeByID(e.Target)
			if !ok {
				selected = append(selected, e)
				continue
			}
			declared := types.BranchCondition(target.Metadata)
			if declared == nil || *declared == *cond {
				selected = append(selected, e)
			}
		}
	}
	return selected
}

// runAction executes one action node and reports its step outcome. It may
// mutate the run context so later nodes describe this action.
func (x *Executor) runAction(ctx context.Context, wf *types.Workflow, node *types.Node, ectx *Context) (types.StatusType, string) {
	switch node.Type {
	case types.TypeBrokerOrder:
		return x.runOrder(ctx, node, ectx)
	case types.TypeNotifyEmail, types.TypeNotifyDiscord, types.TypeNotifyWhatsapp:
		return x.runNotify(ctx, node, ectx)
	case types.TypeReport:
		return x.runReport(ctx, wf, node, ectx)
	}
	return types.Failed, fmt.Sprintf("unsupported action type %s", node.Type)
}

func (x *Executor) runOrder(ctx context.Context, node *types.Node, ectx *Context) (types.StatusType, string) {
	meta, err := types.DecodeOrderMeta(node.Metadata)
	if err != nil {
		return types.Failed, fmt.Sprintf("order metadata: %v", err)
	}

	if meta.Condition != nil && ectx.Condition != nil && *meta.Condition != *ectx.Condition {
		return types.StepSkipped,
			fmt.Sprintf("order skipped: node expects condition %t, branch evaluated %t",
				*meta.Condition, *ectx.Condition)
	}

	if meta.Market == types.MarketIndian {
		if status := x.marketStatus(time.Now()); !status.Open {
			msg := status.ClosedMessage()
			ectx.recordTrade(meta, msg)
			return types.Failed, msg
		}
	}

	result, err := x.broker.PlaceOrder(ctx, broker.Order{
		Symbol:      meta.Symbol,
		Qty:         meta.Qty,
		Side:        meta.Side,
		Exchange:    meta.Exchange,
		APIKey:      meta.APIKey,
		AccessToken: meta.AccessToken,
	})
	if err != nil {
		reason := fmt.Sprintf("broker rejected %s order for %s: %v", meta.Side, meta.Symbol, err)
		ectx.recordTrade(meta, reason)
		return types.Failed, reason
	}
	if result != broker.ResultSuccess {
		reason := fmt.Sprintf("%s order for %s failed at the broker", meta.Side, meta.Symbol)
		ectx.recordTrade(meta, reason)
		return types.Failed, reason
	}

	ectx.recordTrade(meta, "")
	return types.Success, fmt.Sprintf("%s order placed: %s x%.0f on %s",
		meta.Side, meta.Symbol, meta.Qty, meta.Exchange)
}

func (x *Executor) runNotify(ctx context.Context, node *types.Node, ectx *Context) (types.StatusType, string) {
	meta, err := types.DecodeNotifyMeta(node.Metadata, node.Type)
	if err != nil {
		return types.Failed, fmt.Sprintf("notification metadata: %v", err)
	}

	if meta.Condition != nil && ectx.Condition != nil && *meta.Condition != *ectx.Condition {
		return types.StepSkipped,
			fmt.Sprintf("notification skipped: node expects condition %t, branch evaluated %t",
				*meta.Condition, *ectx.Condition)
	}

	channel := channelFor(node.Type)
	err = x.notifier.Send(ctx, channel, notify.Recipient{
		Address: meta.Recipient,
		Name:    meta.RecipientName,
	}, ectx.Event, ectx.Details)
	if err != nil {
		return types.Failed, fmt.Sprintf("%s notification failed: %v", channel, err)
	}
	return types.Success, fmt.Sprintf("%s notification sent to %s", channel, meta.Recipient)
}

func channelFor(t types.NodeType) notify.Channel {
	switch t {
	case types.TypeNotifyDiscord:
		return notify.ChannelDiscord
	case types.TypeNotifyWhatsapp:
		return notify.ChannelWhatsapp
	}
	return notify.ChannelEmail
}

func (x *Executor) runReport(ctx context.Context, wf *types.Workflow, node *types.Node, ectx *Context) (types.StatusType, string) {
	meta, err := types.DecodeReportMeta(node.Metadata)
	if err != nil {
		return types.Failed, fmt.Sprintf("report metadata: %v", err)
	}

	if x.guard != nil {
		allowed, reason := x.guard.ShouldReport(ctx, wf.ID, node.ID, time.Now())
		if !allowed {
			return types.StepSkipped, reason
		}
	}

	if x.reporter == nil {
		return types.Failed, "no report publisher configured"
	}
	if err := x.reporter.Publish(ctx, meta, ectx.Event, ectx.Details); err != nil {
		return types.Failed, fmt.Sprintf("report publish failed: %v", err)
	}
	return types.Success, "daily report published"
}
