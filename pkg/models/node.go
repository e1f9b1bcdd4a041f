package models

// MaxDepth is the deepest level a node may sit at (task -> subtask -> sub-subtask).
const MaxDepth = 2

// Node is an editable, not-yet-persisted subtask.
// TempID is only meaningful for the editing session that minted it.
type Node struct {
	TempID                string     `json:"temp_id"`
	ParentTempID          string     `json:"parent_temp_id,omitempty"`
	Depth                 int        `json:"depth"`
	Title                 string     `json:"title"`
	Difficulty            Difficulty `json:"difficulty"`
	AISuggestedDifficulty Difficulty `json:"ai_suggested_difficulty"`
	EstimatedMinutes      int        `json:"estimated_minutes"`
	AISuggestedMinutes    int        `json:"ai_suggested_minutes"`
	SortOrder             int        `json:"sort_order"`
	IsDecomposing         bool       `json:"is_decomposing,omitempty"`
}

// ItemID implements the estimate tree item contract.
func (n Node) ItemID() string { return n.TempID }

// ParentItemID implements the estimate tree item contract.
func (n Node) ParentItemID() string { return n.ParentTempID }

// IsRoot returns true if the node has no parent.
func (n Node) IsRoot() bool { return n.ParentTempID == "" }

// CanDeepen returns true if children may be created under this node.
func (n Node) CanDeepen() bool { return n.Depth < MaxDepth }
