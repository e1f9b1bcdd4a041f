// Package creator drives one task-creation session from a typed title to a
// saved task: input, analyzing, editing, saving.
package creator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/internal/tree"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// Phase is the session's position in the creation flow.
type Phase int

const (
	// PhaseInput collects a title and hints.
	PhaseInput Phase = iota
	// PhaseAnalyzing waits on the first AI decomposition.
	PhaseAnalyzing
	// PhaseEditing lets the user adjust and re-decompose the tree.
	PhaseEditing
	// PhaseSaving waits on persistence.
	PhaseSaving
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseEditing:
		return "editing"
	case PhaseSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// Session errors.
var (
	ErrInvalidPhase      = errors.New("operation not allowed in current phase")
	ErrDecomposeInFlight = errors.New("a decomposition is still in progress")
	ErrSessionReset      = errors.New("session was restarted")
)

// Requester proposes subtasks.
type Requester interface {
	Analyze(ctx context.Context, title string, profile *models.Profile, hints models.Hints) ([]models.Suggestion, error)
	Decompose(ctx context.Context, parentTitle, taskTitle string, profile *models.Profile) ([]models.Suggestion, error)
}

// Saver persists a finished draft atomically.
type Saver interface {
	CreateTask(ctx context.Context, userID string, draft models.TaskDraft) (string, error)
}

// TaskInput is what the user typed before analysis.
type TaskInput struct {
	Title string
	Hints models.Hints
}

// Creator is one user's task-creation session. It is safe for concurrent use;
// independent nodes may be decomposed at the same time.
type Creator struct {
	mu sync.Mutex

	phase Phase
	input TaskInput
	tree  *tree.Tree

	req     Requester
	saver   Saver
	userID  string
	profile *models.Profile
	logger  *slog.Logger

	// inflight holds one cancel func per node being decomposed.
	inflight map[string]context.CancelFunc
	// pending cancels the outstanding analyze or save call.
	pending context.CancelFunc
	// generation increments on every reset; late results from an older
	// generation are dropped.
	generation uint64
}

// Option configures a Creator.
type Option func(*Creator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Creator) { c.logger = l }
}

// WithProfile sets the profile used to personalize prompts.
func WithProfile(p *models.Profile) Option {
	return func(c *Creator) { c.profile = p }
}

// WithTree replaces the editing tree, mainly so tests can pin TempIDs.
func WithTree(t *tree.Tree) Option {
	return func(c *Creator) { c.tree = t }
}

// New creates a session in PhaseInput.
func New(req Requester, saver Saver, userID string, opts ...Option) *Creator {
	c := &Creator{
		phase:    PhaseInput,
		tree:     tree.New(),
		req:      req,
		saver:    saver,
		userID:   userID,
		logger:   slog.New(slog.DiscardHandler),
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze submits the title and hints for first-level decomposition.
// On success the session moves to editing with a freshly seeded tree; on
// failure it returns to input with the error.
func (c *Creator) Analyze(ctx context.Context, in TaskInput) error {
	in.Title = strings.TrimSpace(in.Title)

	c.mu.Lock()
	if c.phase != PhaseInput {
		c.mu.Unlock()
		return fmt.Errorf("analyze in %s: %w", c.phase, ErrInvalidPhase)
	}
	if in.Title == "" {
		c.mu.Unlock()
		return models.ErrEmptyTitle
	}
	if err := in.Hints.Validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.phase = PhaseAnalyzing
	c.input = in
	gen := c.generation
	ctx, cancel := context.WithCancel(ctx)
	c.pending = cancel
	profile := c.profile
	c.mu.Unlock()
	defer cancel()

	suggestions, err := c.req.Analyze(ctx, in.Title, profile, in.Hints)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return ErrSessionReset
	}
	c.pending = nil
	if err != nil {
		c.phase = PhaseInput
		c.logger.Warn("analyze failed", "title", in.Title, "error", err)
		return err
	}
	c.tree.SeedRoots(suggestions)
	c.phase = PhaseEditing
	c.logger.Info("analyze done", "title", in.Title, "subtasks", len(suggestions))
	return nil
}

// SetDifficulty changes one node's difficulty while editing.
func (c *Creator) SetDifficulty(id string, d models.Difficulty) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseEditing {
		return fmt.Errorf("set difficulty in %s: %w", c.phase, ErrInvalidPhase)
	}
	if !d.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidDifficulty, d)
	}
	if !c.tree.SetDifficulty(id, d) {
		return tree.ErrNodeNotFound
	}
	return nil
}

// AdjustMinutes shifts one node's estimate while editing. The delta must be
// a whole number of estimate.AdjustStep steps.
func (c *Creator) AdjustMinutes(id string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseEditing {
		return fmt.Errorf("adjust minutes in %s: %w", c.phase, ErrInvalidPhase)
	}
	if delta%estimate.AdjustStep != 0 {
		return fmt.Errorf("%w: delta %d is not a multiple of %d", models.ErrInvalidMinutes, delta, estimate.AdjustStep)
	}
	if !c.tree.AdjustMinutes(id, delta) {
		return tree.ErrNodeNotFound
	}
	return nil
}

// Decompose asks the AI to break one node down further and replaces its
// subtree with the answer. Only that node is marked busy; other nodes stay
// editable and may be decomposed concurrently.
func (c *Creator) Decompose(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.phase != PhaseEditing {
		c.mu.Unlock()
		return fmt.Errorf("decompose in %s: %w", c.phase, ErrInvalidPhase)
	}
	if err := c.tree.CanDecompose(id); err != nil {
		c.mu.Unlock()
		return err
	}
	node, _ := c.tree.Get(id)
	c.tree.MarkDecomposing(id, true)
	ctx, cancel := context.WithCancel(ctx)
	c.inflight[id] = cancel
	gen := c.generation
	taskTitle := c.input.Title
	profile := c.profile
	c.mu.Unlock()
	defer cancel()

	suggestions, err := c.req.Decompose(ctx, node.Title, taskTitle, profile)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return ErrSessionReset
	}
	delete(c.inflight, id)

	if _, ok := c.tree.Get(id); !ok {
		// An ancestor was re-decomposed meanwhile and took this node with it.
		c.logger.Debug("decompose result dropped", "node", id)
		return tree.ErrNodeNotFound
	}
	if err != nil {
		c.tree.MarkDecomposing(id, false)
		c.logger.Warn("decompose failed", "node", id, "title", node.Title, "error", err)
		return err
	}

	removed, err := c.tree.ReplaceSubtree(id, suggestions)
	if err != nil {
		c.tree.MarkDecomposing(id, false)
		return err
	}
	for _, rid := range removed {
		if stop, ok := c.inflight[rid]; ok {
			stop()
			delete(c.inflight, rid)
		}
	}
	c.logger.Info("decompose done", "node", id, "children", len(suggestions), "removed", len(removed))
	return nil
}

// DecomposeAll decomposes several nodes concurrently and returns the error
// for each node that failed. A nil map means every node succeeded.
func (c *Creator) DecomposeAll(ctx context.Context, ids []string) map[string]error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs map[string]error
	)
	for _, id := range ids {
		g.Go(func() error {
			if err := c.Decompose(ctx, id); err != nil {
				mu.Lock()
				if errs == nil {
					errs = make(map[string]error)
				}
				errs[id] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Save persists the current tree as one task. On success the session starts
// over in input and the new task id is returned; on failure the session goes
// back to editing with the tree intact.
func (c *Creator) Save(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.phase != PhaseEditing {
		c.mu.Unlock()
		return "", fmt.Errorf("save in %s: %w", c.phase, ErrInvalidPhase)
	}
	if len(c.inflight) > 0 {
		c.mu.Unlock()
		return "", ErrDecomposeInFlight
	}
	if c.tree.Len() == 0 {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: no subtasks to save", models.ErrValidation)
	}
	draft := models.TaskDraft{
		Title:                 c.input.Title,
		Hints:                 c.input.Hints,
		TotalEstimatedMinutes: c.tree.TotalMinutes(),
		Subtasks:              c.tree.Flatten(),
	}
	c.phase = PhaseSaving
	gen := c.generation
	ctx, cancel := context.WithCancel(ctx)
	c.pending = cancel
	c.mu.Unlock()
	defer cancel()

	id, err := c.saver.CreateTask(ctx, c.userID, draft)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		// id is set if the write committed before the restart landed.
		return id, ErrSessionReset
	}
	c.pending = nil
	if err != nil {
		c.phase = PhaseEditing
		c.logger.Warn("save failed", "title", draft.Title, "error", err)
		return "", err
	}
	c.logger.Info("task saved", "task", id, "subtasks", len(draft.Subtasks), "minutes", draft.TotalEstimatedMinutes)
	c.resetLocked()
	return id, nil
}

// Restart discards the session and returns to input. Outstanding AI and
// save calls are cancelled and their late results ignored.
func (c *Creator) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Creator) resetLocked() {
	c.generation++
	if c.pending != nil {
		c.pending()
		c.pending = nil
	}
	for id, stop := range c.inflight {
		stop()
		delete(c.inflight, id)
	}
	c.tree.Reset()
	c.input = TaskInput{}
	c.phase = PhaseInput
}

// Phase returns the current phase.
func (c *Creator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Input returns the title and hints of the current session.
func (c *Creator) Input() TaskInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// Nodes returns the editing tree in display order.
func (c *Creator) Nodes() []models.Node {
	return c.tree.Outline()
}

// TotalMinutes is the live leaf-only estimate.
func (c *Creator) TotalMinutes() int {
	return c.tree.TotalMinutes()
}

// InFlight returns the TempIDs currently being decomposed, sorted.
func (c *Creator) InFlight() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.inflight))
}
