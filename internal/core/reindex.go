// ABOUTME: Rebuilds the embedding index from the relational store and replays reconcile tasks
// ABOUTME: A full rebuild supersedes every pending reconcile task
package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/models"
)

// ItemLister reads the live item set
type ItemLister interface {
	ListItems(ctx context.Context) ([]models.ItemRow, error)
	GetItems(ctx context.Context, f models.ItemFilter) ([]models.ItemRow, error)
}

// RebuildableIndex is an index that can be wiped and refilled
type RebuildableIndex interface {
	Add(ctx context.Context, rows []models.ItemRow) error
	Remove(ctx context.Context, ids []int64) error
	IDs(ctx context.Context) ([]int64, error)
	Persist(ctx context.Context) error
	Reset(ctx context.Context) error
}

// TaskQueue is the pending side of the reconcile log
type TaskQueue interface {
	Pending(ctx context.Context) ([]models.ReconcileTask, error)
	Resolve(ctx context.Context, taskID string) error
	ResolveAll(ctx context.Context) (int64, error)
}

// Reindexer restores index consistency from the relational store
type Reindexer struct {
	store  ItemLister
	index  RebuildableIndex
	tasks  TaskQueue
	logger *zap.Logger
}

// NewReindexer creates a Reindexer. tasks may be nil.
func NewReindexer(store ItemLister, index RebuildableIndex, tasks TaskQueue, logger *zap.Logger) *Reindexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reindexer{store: store, index: index, tasks: tasks, logger: logger}
}

// Rebuild resets the index and re-embeds every live item. It returns the
// number of documents written.
func (r *Reindexer) Rebuild(ctx context.Context) (int, error) {
	rows, err := r.store.ListItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	if err := r.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}
	if err := r.index.Add(ctx, rows); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}
	if err := r.index.Persist(ctx); err != nil {
		return 0, fmt.Errorf("persist index: %w", err)
	}

	if r.tasks != nil {
		n, err := r.tasks.ResolveAll(ctx)
		if err != nil {
			return len(rows), fmt.Errorf("resolve reconcile tasks: %w", err)
		}
		if n > 0 {
			r.logger.Info("rebuild superseded reconcile tasks", zap.Int64("tasks", n))
		}
	}

	r.logger.Info("index rebuilt", zap.Int("documents", len(rows)))
	return len(rows), nil
}

// Reconcile replays pending reconcile tasks oldest first. Deletes remove
// the documents; creates and updates re-embed whatever rows are still live.
// It returns the number of tasks resolved.
func (r *Reindexer) Reconcile(ctx context.Context) (int, error) {
	if r.tasks == nil {
		return 0, nil
	}
	pending, err := r.tasks.Pending(ctx)
	if err != nil {
		return 0, fmt.Errorf("load reconcile tasks: %w", err)
	}

	var errs []error
	resolved := 0
	for _, task := range pending {
		logger := r.logger.With(zap.String("task_id", task.TaskID), zap.Int64s("item_ids", task.ItemIDs))
		if err := r.replay(ctx, task); err != nil {
			logger.Warn("reconcile task failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("task %s: %w", task.TaskID, err))
			continue
		}
		if err := r.tasks.Resolve(ctx, task.TaskID); err != nil && !errors.Is(err, models.ErrNotFound) {
			errs = append(errs, fmt.Errorf("resolve task %s: %w", task.TaskID, err))
			continue
		}
		logger.Info("reconcile task replayed")
		resolved++
	}

	if resolved > 0 {
		if err := r.index.Persist(ctx); err != nil {
			errs = append(errs, fmt.Errorf("persist index: %w", err))
		}
	}
	return resolved, errors.Join(errs...)
}

func (r *Reindexer) replay(ctx context.Context, task models.ReconcileTask) error {
	if err := r.index.Remove(ctx, task.ItemIDs); err != nil {
		return err
	}
	if task.Operation == models.OpDelete {
		return nil
	}
	rows, err := r.store.GetItems(ctx, models.ItemFilter{ItemIDs: task.ItemIDs})
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}
	return r.index.Add(ctx, rows)
}

// Drift compares the index id set with the live item id set
func (r *Reindexer) Drift(ctx context.Context) (missing, orphaned []int64, err error) {
	rows, err := r.store.ListItems(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list items: %w", err)
	}
	docIDs, err := r.index.IDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list documents: %w", err)
	}

	live := make(map[int64]bool, len(rows))
	for _, row := range rows {
		live[row.ItemID] = true
	}
	indexed := make(map[int64]bool, len(docIDs))
	for _, id := range docIDs {
		indexed[id] = true
		if !live[id] {
			orphaned = append(orphaned, id)
		}
	}
	for _, row := range rows {
		if !indexed[row.ItemID] {
			missing = append(missing, row.ItemID)
		}
	}
	return missing, orphaned, nil
}
