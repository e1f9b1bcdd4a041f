// Package tree holds the editable subtask tree for one task-creation session.
//
// Nodes live in a flat arena keyed by TempID; a child stores its parent's
// TempID rather than the parent holding children, so there are no pointer
// cycles and removal is a set operation.
package tree

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// Tree errors.
var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrMaxDepth           = errors.New("maximum depth reached")
	ErrAlreadyDecomposing = errors.New("node is already being decomposed")
)

// Tree is an arena of editable nodes. It is safe for concurrent use.
type Tree struct {
	mu    sync.RWMutex
	nodes map[string]*models.Node
	order []string
	newID func() string
}

// Option configures a Tree.
type Option func(*Tree)

// WithIDFunc overrides TempID generation.
func WithIDFunc(fn func() string) Option {
	return func(t *Tree) { t.newID = fn }
}

// New creates an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		nodes: make(map[string]*models.Node),
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// build turns suggestions into nodes under parentID at depth.
func (t *Tree) build(suggestions []models.Suggestion, parentID string, depth int) []*models.Node {
	out := make([]*models.Node, 0, len(suggestions))
	for i, s := range suggestions {
		out = append(out, &models.Node{
			TempID:                t.newID(),
			ParentTempID:          parentID,
			Depth:                 depth,
			Title:                 s.Title,
			Difficulty:            s.Difficulty,
			AISuggestedDifficulty: s.Difficulty,
			EstimatedMinutes:      s.EstimatedMinutes,
			AISuggestedMinutes:    s.EstimatedMinutes,
			SortOrder:             i,
		})
	}
	return out
}

// SeedRoots replaces the entire tree with one depth-0 node per suggestion.
func (t *Tree) SeedRoots(suggestions []models.Suggestion) []models.Node {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes = make(map[string]*models.Node, len(suggestions))
	t.order = t.order[:0]
	seeded := make([]models.Node, 0, len(suggestions))
	for _, n := range t.build(suggestions, "", 0) {
		t.nodes[n.TempID] = n
		t.order = append(t.order, n.TempID)
		seeded = append(seeded, *n)
	}
	return seeded
}

// ReplaceSubtree discards every descendant of parentID and inserts one child
// per suggestion beneath it. The parent's decomposing flag is cleared.
// It returns the TempIDs that were removed.
func (t *Tree) ReplaceSubtree(parentID string, suggestions []models.Suggestion) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, ok := t.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("replace subtree of %s: %w", parentID, ErrNodeNotFound)
	}
	newDepth := parent.Depth + 1
	if newDepth > models.MaxDepth {
		return nil, fmt.Errorf("replace subtree of %s at depth %d: %w", parentID, parent.Depth, ErrMaxDepth)
	}

	removed := t.descendantsLocked(parentID)
	if len(removed) > 0 {
		gone := make(map[string]struct{}, len(removed))
		for _, id := range removed {
			gone[id] = struct{}{}
			delete(t.nodes, id)
		}
		kept := t.order[:0]
		for _, id := range t.order {
			if _, drop := gone[id]; !drop {
				kept = append(kept, id)
			}
		}
		t.order = kept
	}

	for _, n := range t.build(suggestions, parentID, newDepth) {
		t.nodes[n.TempID] = n
		t.order = append(t.order, n.TempID)
	}
	parent.IsDecomposing = false

	return removed, nil
}

// descendantsLocked walks parent links breadth-first with an explicit queue.
// The visited set stops any accidental cross-link from looping.
func (t *Tree) descendantsLocked(rootID string) []string {
	var out []string
	visited := map[string]struct{}{rootID: {}}
	queue := []string{rootID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, id := range t.order {
			n := t.nodes[id]
			if n.ParentTempID != current {
				continue
			}
			if _, seen := visited[id]; seen {
				continue
			}
			visited[id] = struct{}{}
			out = append(out, id)
			queue = append(queue, id)
		}
	}
	return out
}

// Descendants returns every TempID below id, nearest first.
func (t *Tree) Descendants(id string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.descendantsLocked(id)
}

// Children returns the direct children of id ordered by SortOrder.
func (t *Tree) Children(id string) []models.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []models.Node
	for _, nid := range t.order {
		if n := t.nodes[nid]; n.ParentTempID == id {
			out = append(out, *n)
		}
	}
	sortBySortOrder(out)
	return out
}

// sortBySortOrder is an insertion sort; sibling groups are tiny.
func sortBySortOrder(nodes []models.Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j].SortOrder < nodes[j-1].SortOrder; j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

// Get returns a copy of the node with the given TempID.
func (t *Tree) Get(id string) (models.Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	if !ok {
		return models.Node{}, false
	}
	return *n, true
}

// SetDifficulty updates a node's difficulty. Unknown ids are a no-op.
func (t *Tree) SetDifficulty(id string, d models.Difficulty) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	n.Difficulty = d
	return true
}

// AdjustMinutes shifts a node's estimate by delta within the UI clamp.
// Unknown ids are a no-op.
func (t *Tree) AdjustMinutes(id string, delta int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	n.EstimatedMinutes = estimate.AdjustMinutes(n.EstimatedMinutes, delta)
	return true
}

// MarkDecomposing sets the transient in-flight flag. Unknown ids are a no-op.
func (t *Tree) MarkDecomposing(id string, flag bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[id]
	if !ok {
		return false
	}
	n.IsDecomposing = flag
	return true
}

// CanDecompose reports why a node may not be re-decomposed, or nil.
func (t *Tree) CanDecompose(id string) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	switch {
	case !ok:
		return ErrNodeNotFound
	case !n.CanDeepen():
		return ErrMaxDepth
	case n.IsDecomposing:
		return ErrAlreadyDecomposing
	}
	return nil
}

// TotalMinutes is the leaf-only sum of estimates.
func (t *Tree) TotalMinutes() int {
	return estimate.LeafTotal(t.Flatten(), estimate.EstimatedMinutes)
}

// Flatten returns copies of every node in insertion order. Parents are not
// guaranteed to precede children; ParentTempID is enough to rebuild the tree.
func (t *Tree) Flatten() []models.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Node, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.nodes[id])
	}
	return out
}

// Outline returns every node in display order: each root followed by its
// subtree, siblings ordered by SortOrder.
func (t *Tree) Outline() []models.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	children := make(map[string][]models.Node, len(t.order))
	for _, id := range t.order {
		n := t.nodes[id]
		children[n.ParentTempID] = append(children[n.ParentTempID], *n)
	}
	for _, group := range children {
		sortBySortOrder(group)
	}

	out := make([]models.Node, 0, len(t.order))
	visited := make(map[string]struct{}, len(t.order))
	var walk func(parentID string)
	walk = func(parentID string) {
		for _, n := range children[parentID] {
			if _, seen := visited[n.TempID]; seen {
				continue
			}
			visited[n.TempID] = struct{}{}
			out = append(out, n)
			walk(n.TempID)
		}
	}
	walk("")
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Reset empties the tree.
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nodes = make(map[string]*models.Node)
	t.order = nil
}
