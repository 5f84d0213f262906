// ABOUTME: Tests for the reconciliation task log
// ABOUTME: Verifies record, pending listing and resolution
package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/harper/agenda/internal/models"
)

func TestReconcileStore(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer func() { _ = db.Close() }()
	s := NewReconcileStore(db)
	ctx := context.Background()

	task := &models.ReconcileTask{Operation: models.OpDelete, ItemIDs: []int64{4, 5}, Error: "index offline"}
	if err := s.Record(ctx, task); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if !strings.HasPrefix(task.TaskID, "rec_") {
		t.Errorf("TaskID = %q, want rec_ prefix", task.TaskID)
	}
	_ = s.Record(ctx, &models.ReconcileTask{Operation: models.OpCreate, ItemIDs: []int64{6}})

	pending, err := s.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(pending))
	}
	first := pending[0]
	if first.TaskID == task.TaskID {
		if first.Operation != models.OpDelete || len(first.ItemIDs) != 2 || first.Error != "index offline" {
			t.Errorf("pending[0] = %+v", first)
		}
	}

	if err := s.Resolve(ctx, task.TaskID); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := s.Resolve(ctx, task.TaskID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Resolve() err = %v, want ErrNotFound", err)
	}

	n, err := s.ResolveAll(ctx)
	if err != nil || n != 1 {
		t.Errorf("ResolveAll() = %d, %v; want 1, nil", n, err)
	}
	pending, _ = s.Pending(ctx)
	if len(pending) != 0 {
		t.Errorf("pending after ResolveAll = %d", len(pending))
	}
}
