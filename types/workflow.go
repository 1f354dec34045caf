package types

import (
	"github.com/quantnest/tradeflow/utils"
)

// BranchLabel marks an edge leaving a conditional node. Empty means the edge
// is taken regardless of the evaluated condition.
type BranchLabel string

const (
	BranchNone  BranchLabel = ""
	BranchTrue  BranchLabel = "true"
	BranchFalse BranchLabel = "false"
)

type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"kind"`
	Type     NodeType `json:"type"`
	Metadata Data     `json:"metadata,omitempty"`
}

type Edge struct {
	ID     string      `json:"id"`
	Source string      `json:"source"`
	Target string      `json:"target"`
	Branch BranchLabel `json:"branchLabel,omitempty"`
}

// Workflow is authored elsewhere and read-only to the engine. At most one
// node has KindTrigger; that node is the traversal root.
type Workflow struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// Trigger returns the root trigger node, or false when the workflow has none.
func (w *Workflow) Trigger() (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].Kind == KindTrigger {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

func (w *Workflow) NodeByID(id string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

func (w *Workflow) OutgoingEdges(nodeID string) []Edge {
	out := make([]Edge, 0, 4)
	for _, e := range w.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// ActionSymbols collects the distinct broker symbols referenced by action
// nodes, in first-seen order. Price triggers watch these.
func (w *Workflow) ActionSymbols() []string {
	symbols := make([]string, 0, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.Kind != KindAction {
			continue
		}
		if sym, _ := n.Metadata.GetString("symbol"); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return utils.UniqueSlice(symbols)
}
