// ABOUTME: Reply generation from a pipeline outcome
// ABOUTME: Chooses a chat, success or failure prompt and asks the completion function
package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/harper/agenda/internal/models"
)

// Reply modes
const (
	ModeChat    = "chat"
	ModeSuccess = "success"
	ModeFail    = "fail"
)

// Responder turns an outcome into a conversational reply
type Responder struct {
	llm    Completer
	logger *zap.Logger
}

// NewResponder creates a Responder
func NewResponder(llm Completer, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{llm: llm, logger: logger}
}

// ReplyMode picks the prompt family for an outcome
func ReplyMode(out models.Outcome) string {
	switch {
	case out.IsChat():
		return ModeChat
	case out.Status == models.OutcomeOK:
		return ModeSuccess
	default:
		return ModeFail
	}
}

// Reply generates the user-facing answer for out
func (r *Responder) Reply(ctx context.Context, out models.Outcome, utterance string, history []models.Message) (string, error) {
	mode := ReplyMode(out)

	var system, user string
	switch mode {
	case ModeChat:
		system = "You are a friendly assistant chatting with the user about anything."
		user = utterance
	case ModeSuccess:
		system = fmt.Sprintf(`You are an assistant helping the user manage their notes and events.
The request was a %s task with a %s operation.
The store answered: %s
%s
Reply to the user briefly and in a friendly way.`, out.TaskType, out.OperationType, out.Message, FormatRows(out.Data))
		user = "User query: " + utterance
	default:
		system = fmt.Sprintf(`You are an assistant helping the user manage their notes and events.
The request was a %s task with a %s operation.
It failed with: %s
Ask the user, briefly and in a friendly way, to fix the request or give the missing information.`, out.TaskType, out.OperationType, out.Message)
		user = "User query: " + utterance
	}

	reply, err := r.llm.Complete(ctx, system, user, history)
	if err != nil {
		return "", fmt.Errorf("generate %s reply: %w", mode, err)
	}
	r.logger.Debug("reply generated", zap.String("run_id", out.RunID), zap.String("mode", mode))
	return strings.TrimSpace(reply), nil
}

// FormatRows renders rows one per line for prompts and terminal output
func FormatRows(rows []models.ItemRow) string {
	if len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	for _, row := range rows {
		fmt.Fprintf(&b, "#%d [%s/%s] %s", row.ItemID, row.ItemType, row.ItemStatus, row.DocumentText())
		if s := row.Schedule; s != nil {
			fmt.Fprintf(&b, " | %s", strings.TrimSpace(s.StartDate+" "+s.StartTime))
			if end := strings.TrimSpace(s.EndDate + " " + s.EndTime); end != "" {
				fmt.Fprintf(&b, " - %s", end)
			}
		}
		if rec := row.Recurrence; rec != nil {
			fmt.Fprintf(&b, " | %s(%d)", rec.Pattern, rec.Rule)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
