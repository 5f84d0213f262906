// ABOUTME: SlotExtractor pulling content and temporal fields out of an utterance
// ABOUTME: One completion per utterance with lenient JSON recovery and a note fallback
package core

import (
	"context"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/models"
)

// Extractor fills the fixed slot set for a classified utterance
type Extractor struct {
	llm    Completer
	logger *zap.Logger
}

// NewExtractor creates an Extractor
func NewExtractor(llm Completer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{llm: llm, logger: logger}
}

// Extract returns the slots found in utterance. Extraction failures degrade
// instead of failing: a note keeps the raw utterance as its content and a
// schedule proceeds with every slot null. Only a finished ctx is an error.
func (e *Extractor) Extract(ctx context.Context, utterance string, task models.TaskType, history []models.Message) (models.Slots, error) {
	prompt := schedulePrompt
	if task == models.TaskNote {
		prompt = notePrompt
	}

	var slots models.Slots
	raw, err := e.llm.Complete(ctx, prompt, utterance, history)
	switch {
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Slots{}, ctxErr
		}
		e.logger.Warn("slot extraction failed", zap.String("task_type", string(task)), zap.Error(err))
	default:
		obj, err := RecoverObject(raw)
		if err != nil {
			e.logger.Warn("slot json unrecoverable",
				zap.String("task_type", string(task)),
				zap.String("raw", raw),
				zap.Error(err))
			break
		}
		slots = models.SlotsFromMap(obj)
	}

	if task == models.TaskNote && slots.Content == "" {
		slots = models.Slots{Content: utterance}
	}
	return slots, nil
}

const notePrompt = `### Examples:
Query: "Can you show me the groceries list?"
Answer: {"content": "groceries list"}
Query: "Please update the status for the group project of my NLP course to completed."
Answer: {"content": "status for the group project of my NLP course to completed"}

### Instructions:
Extract the description the user gave, keeping their wording.
Reply with only the JSON object, without explanations.`

const schedulePrompt = `### Examples:
Query: "Schedule a 2-hour meeting for tomorrow starting at 3 PM about next summer's product."
Answer: {"content": "2-hour meeting about next summer's product", "start_date": "tomorrow", "start_time": "3 PM", "end_date": "tomorrow", "end_time": "5 PM", "recurrence_pattern": null, "recurrence_rule": null, "search_time_frame": null}

Query: "Can you book a weekly team meeting every Tuesday from 9 AM to 10:30 AM?"
Answer: {"content": "weekly team meeting", "start_date": "every Tuesday", "start_time": "9 AM", "end_date": "every Tuesday", "end_time": "10:30 AM", "recurrence_pattern": "WEEKLY", "recurrence_rule": 2, "search_time_frame": null}

Query: "Set a daily reminder to take my medication at 9 AM."
Answer: {"content": "take my medication", "start_date": "today", "start_time": "9 AM", "end_date": "today", "end_time": null, "recurrence_pattern": "DAILY", "recurrence_rule": 1, "search_time_frame": null}

Query: "Schedule a lunch meeting every month on the 15th at noon for 1 hour."
Answer: {"content": "lunch meeting", "start_date": "15th of every month", "start_time": "12 PM", "end_date": "15th of every month", "end_time": "1 PM", "recurrence_pattern": "MONTHLY", "recurrence_rule": 15, "search_time_frame": null}

Query: "What meetings did I have last week?"
Answer: {"content": "meetings", "start_date": null, "start_time": null, "end_date": null, "end_time": null, "recurrence_pattern": null, "recurrence_rule": null, "search_time_frame": "last week"}

### Instructions:
Extract the event details from the user query:
- "content": the event description without the time details.
- "start_date": the event date, e.g. "tomorrow", "next Thursday", "January 1st".
- "start_time": the event time, e.g. "3 PM", "12:30".
- "end_date": the end date if given.
- "end_time": the end time if given.
- "recurrence_pattern": one of DAILY, WEEKLY, BIWEEKLY, MONTHLY.
- "recurrence_rule": the interval in days for DAILY, the weekday (Sunday=0) for WEEKLY and BIWEEKLY, the day of month for MONTHLY.
- "search_time_frame": the period to search in, e.g. "today", "this week", "next month".
Use null for anything not present.
Reply with only the JSON object, without explanations.`
