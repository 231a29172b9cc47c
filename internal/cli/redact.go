// redact.go implements "agentstate redact", replacing an agent's latest message.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstate/core"
)

type redactOptions struct {
	sessionID string
	agentID   string
	text      string
	role      string
}

// snapshotAgent is the restore target used by redact. It only holds what
// the session manager loads into it.
type snapshotAgent struct {
	id       string
	messages []core.Message
	state    map[string]any
}

func (a *snapshotAgent) AgentID() string { return a.id }
func (a *snapshotAgent) Messages() []core.Message { return a.messages }
func (a *snapshotAgent) SetMessages(msgs []core.Message) { a.messages = msgs }
func (a *snapshotAgent) State() map[string]any { return a.state }
func (a *snapshotAgent) SetState(state map[string]any) { a.state = state }

func newRedactCmd(root *rootOptions) *cobra.Command {
	opts := &redactOptions{}
	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Redact the latest message of an agent",
		Long: `Record a replacement for the agent's most recent message. The
original content stays stored; restored agents see the replacement.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedact(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Session id")
	cmd.Flags().StringVar(&opts.agentID, "agent", defaultAgentID, "Agent id within the session")
	cmd.Flags().StringVar(&opts.text, "text", "[REDACTED]", "Replacement text")
	cmd.Flags().StringVar(&opts.role, "role", "", "Role of the replacement (defaults to the original role)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func runRedact(cmd *cobra.Command, root *rootOptions, opts *redactOptions) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, root)
	if err != nil {
		return err
	}
	defer rt.close() //nolint:errcheck

	if _, err := rt.requireAgent(ctx, opts.sessionID, opts.agentID); err != nil {
		return err
	}
	sess, err := rt.openSession(ctx, opts.sessionID)
	if err != nil {
		return err
	}

	a := &snapshotAgent{id: opts.agentID}
	if err := sess.Register(ctx, a); err != nil {
		return err
	}
	latest, _ := sess.Manager().LatestMessage(opts.agentID)
	if latest == nil {
		return fmt.Errorf("agent %q has no messages to redact", opts.agentID)
	}

	role := opts.role
	if role == "" {
		role = latest.Message.Role
	}
	if err := sess.Manager().RedactLatestMessage(ctx, core.NewTextMessage(role, opts.text), a); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "redacted message #%d of %s\n", latest.MessageID, opts.agentID)
	return nil
}
