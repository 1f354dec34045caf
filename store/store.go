package store

import (
	"context"
	"time"

	"github.com/quantnest/tradeflow/types"
)

// WorkflowStore lists the user-authored workflows. Workflows are created and
// edited by the authoring surface and are read-only to the engine.
type WorkflowStore interface {
	FindAll(ctx context.Context) ([]types.Workflow, error)
}

// ExecutionStore persists the audit trail. A record is created InProgress at
// trigger-fire time and closed exactly once.
type ExecutionStore interface {
	Create(ctx context.Context, workflowID string, startTime time.Time) (*types.ExecutionRecord, error)
	/**
	 * Close writes the record's steps, final status and end time. Closing a
	 * record twice is an error.
	 */
	Close(ctx context.Context, record *types.ExecutionRecord, status types.StatusType, endTime time.Time) error

	// Latest returns the most recently started record for the workflow, or
	// (nil, nil) when the workflow has never run.
	Latest(ctx context.Context, workflowID string) (*types.ExecutionRecord, error)

	// ListSince returns records started at or after since, newest first.
	ListSince(ctx context.Context, workflowID string, since time.Time) ([]types.ExecutionRecord, error)
}
