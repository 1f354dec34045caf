package mem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/quantnest/tradeflow/store"
	"github.com/quantnest/tradeflow/types"
)

var (
	_ store.WorkflowStore  = &memWorkflowStore{}
	_ store.ExecutionStore = &memExecutionStore{}
)

func NewWorkflowStore(workflows ...types.Workflow) *memWorkflowStore {
	s := &memWorkflowStore{}
	s.workflows = append(s.workflows, workflows...)
	return s
}

/**
 * memWorkflowStore aims to provide a method for debug & testing.
 * NEVER use it in the Production!
 */
type memWorkflowStore struct {
	mu        sync.Mutex
	workflows []types.Workflow
}

func (m *memWorkflowStore) FindAll(ctx context.Context) ([]types.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Workflow, len(m.workflows))
	copy(out, m.workflows)
	return out, nil
}

func (m *memWorkflowStore) Put(w types.Workflow) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.workflows {
		if m.workflows[i].ID == w.ID {
			m.workflows[i] = w
			return
		}
	}
	m.workflows = append(m.workflows, w)
}

func NewExecutionStore() *memExecutionStore {
	return &memExecutionStore{records: make(map[string]*types.ExecutionRecord)}
}

type memExecutionStore struct {
	mu      sync.Mutex
	records map[string]*types.ExecutionRecord
}

func (m *memExecutionStore) Create(ctx context.Context, workflowID string, startTime time.Time) (*types.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := &types.ExecutionRecord{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     types.InProgress,
		StartTime:  startTime,
	}
	m.records[record.ID] = record

	out := *record
	return &out, nil
}

func (m *memExecutionStore) Close(ctx context.Context, record *types.ExecutionRecord, status types.StatusType, endTime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.records[record.ID]
	if !exists {
		return errors.NotFoundf("execution record: %s", record.ID)
	}
	if stored.Status != types.InProgress {
		return errors.Forbiddenf("execution record %s already closed", record.ID)
	}

	stored.Steps = append([]types.ExecutionStep(nil), record.Steps...)
	stored.Status = status
	stored.EndTime = &endTime

	record.Status = status
	record.EndTime = &endTime
	return nil
}

func (m *memExecutionStore) Latest(ctx context.Context, workflowID string) (*types.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *types.ExecutionRecord
	for _, r := range m.records {
		if r.WorkflowID != workflowID {
			continue
		}
		if latest == nil || r.StartTime.After(latest.StartTime) {
			latest = r
		}
	}
	if latest == nil {
		return nil, nil
	}
	out := *latest
	out.Steps = append([]types.ExecutionStep(nil), latest.Steps...)
	return &out, nil
}

func (m *memExecutionStore) ListSince(ctx context.Context, workflowID string, since time.Time) ([]types.ExecutionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.ExecutionRecord, 0)
	for _, r := range m.records {
		if r.WorkflowID != workflowID || r.StartTime.Before(since) {
			continue
		}
		cp := *r
		cp.Steps = append([]types.ExecutionStep(nil), r.Steps...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}
