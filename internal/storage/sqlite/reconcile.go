// ABOUTME: Reconciliation log for index writes that failed after a committed store write
// ABOUTME: Tasks stay pending until a reconcile run replays them
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harper/agenda/internal/models"
)

// ReconcileStore records and resolves reconciliation tasks
type ReconcileStore struct {
	db *DB
}

// NewReconcileStore creates a new ReconcileStore
func NewReconcileStore(db *DB) *ReconcileStore {
	return &ReconcileStore{db: db}
}

// Record saves a pending task, assigning an id and timestamp when missing
func (s *ReconcileStore) Record(ctx context.Context, task *models.ReconcileTask) error {
	if task.TaskID == "" {
		task.TaskID = fmt.Sprintf("rec_%s", uuid.New().String())
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	ids, err := json.Marshal(task.ItemIDs)
	if err != nil {
		return fmt.Errorf("marshal item ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reconcile_tasks (id, operation, item_ids, error, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, task.TaskID, string(task.Operation), string(ids), nullString(task.Error), task.CreatedAt)
	if err != nil {
		return fmt.Errorf("record reconcile task: %w", err)
	}
	return nil
}

// Pending returns unresolved tasks oldest first
func (s *ReconcileStore) Pending(ctx context.Context) ([]models.ReconcileTask, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation, item_ids, error, created_at
		FROM reconcile_tasks
		WHERE resolved_at IS NULL
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []models.ReconcileTask
	for rows.Next() {
		var (
			task    models.ReconcileTask
			op      string
			ids     string
			errText sql.NullString
		)
		if err := rows.Scan(&task.TaskID, &op, &ids, &errText, &task.CreatedAt); err != nil {
			return nil, err
		}
		task.Operation = models.OperationType(op)
		task.Error = errText.String
		if err := json.Unmarshal([]byte(ids), &task.ItemIDs); err != nil {
			return nil, fmt.Errorf("decode item ids for %s: %w", task.TaskID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Resolve marks a task done
func (s *ReconcileStore) Resolve(ctx context.Context, taskID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reconcile_tasks SET resolved_at = ? WHERE id = ? AND resolved_at IS NULL",
		time.Now(), taskID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("reconcile task %s: %w", taskID, models.ErrNotFound)
	}
	return nil
}

// ResolveAll marks every pending task done, used after a full reindex
func (s *ReconcileStore) ResolveAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE reconcile_tasks SET resolved_at = ? WHERE resolved_at IS NULL", time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
