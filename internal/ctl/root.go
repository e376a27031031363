// Package ctl implements the b64ctl operator commands.
package ctl

import (
	"github.com/spf13/cobra"
)

var version = "v0.1.0"

// NewRootCommand builds the b64ctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "b64ctl",
		Short: "Operator tools for the battle64 leaderboard",
		Long: `b64ctl ranks race-time files offline and load-tests a running
battle64 service.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newRankCommand())
	root.AddCommand(newLoadCommand())
	return root
}
