// ABOUTME: CLI command to run one request through the intent pipeline
// ABOUTME: Prints the generated reply or the raw outcome
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/agenda/internal/models"
)

var (
	askNoReply bool
)

// NewAskCmd creates ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <request>",
		Short: "Create, change or find notes and events",
		Long: `Resolve a plain-language request against your agenda.

The request is classified as a note or schedule task and as a create,
update, delete or search operation. Anything that is neither becomes
a chat reply.

Examples:
  agenda ask "remind me to take my medication every day at 9am"
  agenda ask "cancel the dentist appointment"
  agenda ask --format json "what did I plan last week"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askNoReply, "no-reply", false, "Skip the generated reply and print the outcome")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	utterance := strings.Join(args, " ")

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := a.Pipeline.Resolve(ctx, utterance, nil)

	if wantJSON() {
		return printJSON(cmd.OutOrStdout(), out)
	}

	if !askNoReply {
		reply, err := a.Responder.Reply(ctx, out, utterance, nil)
		if err == nil {
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		}
		cmdLogger().Warn("reply generation failed; showing outcome", zap.Error(err))
	}

	if out.Status == models.OutcomeError {
		return fmt.Errorf("%s", out.Message)
	}
	if out.Message != "" && !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), out.Message)
	}
	if len(out.Data) > 0 {
		return printRows(cmd.OutOrStdout(), out.Data)
	}
	return nil
}
