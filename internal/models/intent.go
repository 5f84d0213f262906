// ABOUTME: Intent labels, pipeline states and the outcome record
// ABOUTME: The outcome is the only structure handed to reply generation
package models

import (
	"encoding/json"
	"time"
)

// TaskType is the task axis of classification
type TaskType string

const (
	TaskNote     TaskType = "note"
	TaskSchedule TaskType = "schedule"
)

// OperationType is the operation axis of classification
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
	OpSearch OperationType = "search"
)

// Intent is the classifier result; empty fields mean no decision
type Intent struct {
	Task      TaskType      `json:"task_type,omitempty"`
	Operation OperationType `json:"operation_type,omitempty"`
}

// Actionable reports whether both axes resolved
func (i Intent) Actionable() bool {
	return i.Task != "" && i.Operation != ""
}

// State is a step of the resolution pipeline
type State string

const (
	StateStart         State = "start"
	StateClassified    State = "classified"
	StateExtracted     State = "extracted"
	StateDisambiguated State = "disambiguated"
	StateDispatched    State = "dispatched"
	StateResponded     State = "responded"
)

// OutcomeStatus is ok or error
type OutcomeStatus string

const (
	OutcomeOK    OutcomeStatus = "ok"
	OutcomeError OutcomeStatus = "error"
)

// Outcome is the result of resolving one utterance
type Outcome struct {
	RunID         string        `json:"run_id"`
	TaskType      TaskType      `json:"task_type"`
	OperationType OperationType `json:"operation_type"`
	Status        OutcomeStatus `json:"status"`
	Message       string        `json:"message,omitempty"`
	Data          []ItemRow     `json:"data,omitempty"`
	Slots         *Slots        `json:"slots,omitempty"`
	Trace         []State       `json:"trace"`
	Reconcile     []string      `json:"reconcile_task_ids,omitempty"`
}

// MarshalJSON writes an unresolved axis as null rather than ""
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	return json.Marshal(struct {
		plain
		TaskType      *TaskType      `json:"task_type"`
		OperationType *OperationType `json:"operation_type"`
	}{plain(o), nullable(o.TaskType), nullable(o.OperationType)})
}

func nullable[T ~string](v T) *T {
	if v == "" {
		return nil
	}
	return &v
}

// IsChat reports whether the utterance fell through to plain chat
func (o Outcome) IsChat() bool {
	return o.TaskType == "" || o.OperationType == ""
}

// Message is one prior conversation turn passed as context
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Match is one semantic search hit
type Match struct {
	ItemID int64   `json:"item_id"`
	Score  float64 `json:"score"`
}

// Document is one embedding index entry keyed by item id
type Document struct {
	ID       int64             `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float64         `json:"vector"`
}

// ReconcileTask records an index write that failed after its relational write committed
type ReconcileTask struct {
	TaskID     string        `json:"task_id"`
	Operation  OperationType `json:"operation"`
	ItemIDs    []int64       `json:"item_ids"`
	Error      string        `json:"error,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}
