// messages.go implements "agentstate messages", listing an agent's persisted history.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type messagesOptions struct {
	sessionID string
	agentID   string
	raw       bool
	asJSON    bool
}

func newMessagesCmd(root *rootOptions) *cobra.Command {
	opts := &messagesOptions{}
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "List the persisted messages of an agent",
		Long: `List an agent's messages ordered by id. Redacted messages show
their redaction; pass --raw to print the original content instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMessages(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Session id")
	cmd.Flags().StringVar(&opts.agentID, "agent", defaultAgentID, "Agent id within the session")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Show original content of redacted messages")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the stored records as JSON")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func runMessages(cmd *cobra.Command, root *rootOptions, opts *messagesOptions) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, root)
	if err != nil {
		return err
	}
	defer rt.close() //nolint:errcheck

	if _, err := rt.requireAgent(ctx, opts.sessionID, opts.agentID); err != nil {
		return err
	}
	msgs, err := rt.repo.ListMessages(ctx, opts.sessionID, opts.agentID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(msgs)
	}

	if len(msgs) == 0 {
		fmt.Fprintln(out, "no messages")
		return nil
	}
	for _, m := range msgs {
		msg := m.ToMessage()
		if opts.raw {
			msg = m.Message
		}
		marker := ""
		if m.IsRedacted() {
			marker = " [redacted]"
		}
		fmt.Fprintf(out, "#%-3d %-9s%s %s\n", m.MessageID, msg.Role, marker, msg.Text())
	}
	return nil
}
