package main

import (
	"github.com/aretw0/inkwell/internal/cli"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <story.ink>",
	Short: "Print the story flow as a Mermaid diagram",
	Long:  `Prints a Mermaid flowchart of knots, stitches and diverts. With --session the visited locations are highlighted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		return cli.Graph(cmd.Context(), cfg, args[0], sessionID, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the progress of a stored session")
}
