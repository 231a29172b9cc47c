// Package cli defines the Cobra commands of the agentstate binary.
// This file contains the root command and the flags shared by subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentstate/config"
)

var version = "dev" // set via ldflags at build time

// rootOptions holds the persistent flags. Subcommands read them after
// Cobra has parsed the command line.
type rootOptions struct {
	configPath string
	envFile    string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "agentstate",
		Short: "Persist and inspect agent conversations",
		Long: `agentstate runs model backed agents whose messages and state are
written through to a session repository (file, sqlite, postgres or memory).
Re-running a command with the same --session restores where it left off.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultFile, "Path to the config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded before running (ignored if missing)")

	cmd.AddCommand(newChatCmd(opts))
	cmd.AddCommand(newMessagesCmd(opts))
	cmd.AddCommand(newAgentCmd(opts))
	cmd.AddCommand(newRedactCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
