package types

import "time"

type ExecutionStep struct {
	Step     int        `json:"step"`
	NodeID   string     `json:"nodeId"`
	NodeKind NodeKind   `json:"nodeKind"`
	Status   StatusType `json:"status"`
	Message  string     `json:"message"`
}

// ExecutionRecord is the persisted audit trail of one run. It is created at
// trigger-fire time, mutated only by the executor that created it, and
// closed exactly once.
type ExecutionRecord struct {
	ID         string          `json:"id"`
	WorkflowID string          `json:"workflowId"`
	Status     StatusType      `json:"status"`
	StartTime  time.Time       `json:"startTime"`
	EndTime    *time.Time      `json:"endTime,omitempty"`
	Steps      []ExecutionStep `json:"steps"`
}

// ExecutionResult is what one traversal produces before it is folded into
// the record.
type ExecutionResult struct {
	Status StatusType      `json:"status"`
	Steps  []ExecutionStep `json:"steps"`
}
