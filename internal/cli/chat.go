// chat.go implements "agentstate chat", one or more turns with a persisted agent.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstate/agent"
	"github.com/hupe1980/agentstate/config"
)

const defaultAgentID = "assistant"

type chatOptions struct {
	sessionID string
	agentID   string
}

func newChatCmd(root *rootOptions) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send messages to a persisted agent",
		Long: `Send a message to an agent and print its reply. Without a message
argument every non-empty line read from stdin is sent as its own turn.
Omitting --session starts a new session; its id is printed first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, root, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Session id to resume (generated when empty)")
	cmd.Flags().StringVar(&opts.agentID, "agent", defaultAgentID, "Agent id within the session")
	return cmd
}

func runChat(cmd *cobra.Command, root *rootOptions, opts *chatOptions, args []string) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, root)
	if err != nil {
		return err
	}
	defer rt.close() //nolint:errcheck

	llm, err := config.OpenModel(rt.cfg)
	if err != nil {
		return err
	}

	sess, err := rt.openSession(ctx, opts.sessionID)
	if err != nil {
		return err
	}

	a, err := agent.NewModelAgent(opts.agentID, llm, func(o *agent.ModelAgentOptions) {
		if rt.cfg.Agent.Instruction != "" {
			o.Instruction = agent.NewInstructionFromTemplate(rt.cfg.Agent.Instruction)
		}
		o.MaxHistoryMessages = rt.cfg.Agent.MaxHistoryMessages
		o.EnableStreaming = rt.cfg.Model.Stream
		o.Logger = rt.logger.WithSession(sess.SessionID()).WithAgent(opts.agentID)
	})
	if err != nil {
		return err
	}
	if err := sess.Register(ctx, a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session: %s\n", sess.SessionID())

	if len(args) == 1 {
		return chatTurn(cmd, a, out, args[0])
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := chatTurn(cmd, a, out, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func chatTurn(cmd *cobra.Command, a *agent.ModelAgent, out io.Writer, text string) error {
	reply, err := a.InvokeText(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("agent %s: %w", a.AgentID(), err)
	}
	fmt.Fprintf(out, "%s> %s\n", a.AgentID(), reply.Text())
	return nil
}
