// agent.go implements "agentstate agent", printing an agent snapshot.
package cli

import (
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type agentOptions struct {
	sessionID string
	agentID   string
}

// agentView is the YAML shape printed by the agent command.
type agentView struct {
	SessionID         string         `yaml:"session_id"`
	AgentID           string         `yaml:"agent_id"`
	Messages          int            `yaml:"messages"`
	State             map[string]any `yaml:"state"`
	ConversationState map[string]any `yaml:"conversation_state,omitempty"`
	CreatedAt         time.Time      `yaml:"created_at"`
	UpdatedAt         time.Time      `yaml:"updated_at"`
}

func newAgentCmd(root *rootOptions) *cobra.Command {
	opts := &agentOptions{}
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Show the persisted snapshot of an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, root, opts)
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "Session id")
	cmd.Flags().StringVar(&opts.agentID, "agent", defaultAgentID, "Agent id within the session")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func runAgent(cmd *cobra.Command, root *rootOptions, opts *agentOptions) error {
	ctx := cmd.Context()
	rt, err := openRuntime(ctx, root)
	if err != nil {
		return err
	}
	defer rt.close() //nolint:errcheck

	sa, err := rt.requireAgent(ctx, opts.sessionID, opts.agentID)
	if err != nil {
		return err
	}
	msgs, err := rt.repo.ListMessages(ctx, opts.sessionID, opts.agentID)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close() //nolint:errcheck
	return enc.Encode(agentView{
		SessionID:         opts.sessionID,
		AgentID:           sa.AgentID,
		Messages:          len(msgs),
		State:             sa.State,
		ConversationState: sa.ConversationManagerState,
		CreatedAt:         sa.CreatedAt,
		UpdatedAt:         sa.UpdatedAt,
	})
}
