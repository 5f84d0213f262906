// ABOUTME: IntentClassifier resolving an utterance into task and operation labels
// ABOUTME: Each axis is decided by consensus voting; the task axis gates the operation axis
package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/models"
)

// Completer is the text completion function consumed by the core
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string, history []models.Message) (string, error)
}

// ClassifierConfig holds the label vocabularies and voting policy
type ClassifierConfig struct {
	TaskTypes      []string
	OperationTypes []string
	Policy         Policy
}

// Classifier decides which task and operation an utterance asks for
type Classifier struct {
	llm        Completer
	tasks      []string
	operations []string
	policy     Policy
	logger     *zap.Logger
}

// NewClassifier creates a Classifier. Empty vocabularies fall back to every known label.
func NewClassifier(llm Completer, cfg ClassifierConfig, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{
		llm:        llm,
		tasks:      lowerAll(cfg.TaskTypes),
		operations: lowerAll(cfg.OperationTypes),
		policy:     cfg.Policy.normalized(),
		logger:     logger,
	}
	if len(c.tasks) == 0 {
		c.tasks = []string{string(models.TaskNote), string(models.TaskSchedule)}
	}
	if len(c.operations) == 0 {
		c.operations = []string{
			string(models.OpCreate), string(models.OpUpdate),
			string(models.OpDelete), string(models.OpSearch),
		}
	}
	return c
}

// Classify returns the resolved intent. A missing task leaves both axes
// empty; a missing operation leaves only the operation empty. Neither is an error.
func (c *Classifier) Classify(ctx context.Context, utterance string) (models.Intent, error) {
	task, ok, err := c.resolve(ctx, "task", taskPrompt(c.tasks), utterance, c.tasks)
	if err != nil {
		return models.Intent{}, fmt.Errorf("classify task: %w", err)
	}
	if !ok {
		return models.Intent{}, nil
	}

	op, ok, err := c.resolve(ctx, "operation", operationPrompt(c.operations), utterance, c.operations)
	if err != nil {
		return models.Intent{}, fmt.Errorf("classify operation: %w", err)
	}
	intent := models.Intent{Task: models.TaskType(task)}
	if ok {
		intent.Operation = models.OperationType(op)
	}
	return intent, nil
}

func (c *Classifier) resolve(ctx context.Context, axis, prompt, utterance string, labels []string) (string, bool, error) {
	validate := SingleLabel(labels)
	sample := func(ctx context.Context, attempt int) (string, error) {
		raw, err := c.llm.Complete(ctx, prompt, utterance, nil)
		if err != nil {
			c.logger.Debug("classifier sample failed",
				zap.String("axis", axis), zap.Int("attempt", attempt), zap.Error(err))
			return "", err
		}
		label, valid := validate(raw)
		c.logger.Debug("classifier sample",
			zap.String("axis", axis),
			zap.Int("attempt", attempt),
			zap.String("label", label),
			zap.Bool("valid", valid))
		return raw, nil
	}

	label, ok, err := ResolveBySampling(ctx, c.policy, sample, validate)
	if err != nil {
		return "", false, err
	}
	if !ok {
		c.logger.Debug("classifier reached no decision", zap.String("axis", axis))
	}
	return label, ok, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func quoted(labels []string) string {
	q := make([]string, len(labels))
	for i, l := range labels {
		q[i] = fmt.Sprintf("%q", l)
	}
	return strings.Join(q, ", ")
}

func taskPrompt(tasks []string) string {
	return fmt.Sprintf(`### Examples:
Query: "Can you update the schedule for the project kickoff?"
Answer: schedule
Query: "Draft a memo to inform the team about the upcoming training."
Answer: note
Query: "How are you?"
Answer: None

### Instructions:
Decide whether the user query is about a note or a schedule.
- note: a memo, task or anything else worth writing down.
- schedule: an event with a specific date or time.
- None: small talk without information to store.
Reply with exactly one word from %s or "None", without explanations.`, quoted(tasks))
}

func operationPrompt(ops []string) string {
	return fmt.Sprintf(`### Examples:
Query: "Please delete my appointment with John."
Answer: delete
Query: "Move tomorrow's team meeting to 11 AM."
Answer: update
Query: "Create a note for my presentation next week."
Answer: create
Query: "Can you show my upcoming events?"
Answer: search

### Instructions:
Decide which operation the user query asks for.
Reply with exactly one word from %s or "None", without explanations.`, quoted(ops))
}
