package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/inkwell/internal/cli"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <story.ink>",
	Short: "Play a story in the terminal",
	Long: `Plays a story interactively. Answer a choice with its number or its text,
or type "exit" to leave. With --session the playthrough is saved and resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		knot, _ := cmd.Flags().GetString("knot")
		jsonMode, _ := cmd.Flags().GetBool("json")
		quiet, _ := cmd.Flags().GetBool("quiet")
		markdown, _ := cmd.Flags().GetBool("markdown")
		tags, _ := cmd.Flags().GetBool("tags")
		debug, _ := cmd.Flags().GetBool("debug")
		rawVars, _ := cmd.Flags().GetStringToString("var")

		vars, err := parseVars(rawVars)
		if err != nil {
			return err
		}

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.RunSession(ctx, cfg, cli.RunOptions{
			StoryPath: args[0],
			SessionID: sessionID,
			Knot:      knot,
			Variables: vars,
			JSON:      jsonMode,
			Quiet:     quiet,
			Markdown:  markdown,
			Tags:      tags,
			Debug:     debug,
		})
	},
}

// parseVars types command line values: booleans and numbers are recognised,
// anything else is a string.
func parseVars(raw map[string]string) (map[string]any, error) {
	vars := make(map[string]any, len(raw))
	for name, val := range raw {
		if name == "" {
			return nil, fmt.Errorf("invalid --var %q: empty name", "="+val)
		}
		switch {
		case val == "true" || val == "false":
			vars[name] = val == "true"
		default:
			if i, err := strconv.ParseInt(val, 10, 64); err == nil {
				vars[name] = i
			} else if f, err := strconv.ParseFloat(val, 64); err == nil && strings.ContainsAny(val, ".eE") {
				vars[name] = f
			} else {
				vars[name] = val
			}
		}
	}
	return vars, nil
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringP("session", "s", "", "Session ID for a resumable playthrough")
	playCmd.Flags().StringP("knot", "k", "", "Start at a knot or knot.stitch")
	playCmd.Flags().Bool("json", false, "Read answers and write steps as JSON lines")
	playCmd.Flags().BoolP("quiet", "q", false, "Hide the banner and session messages")
	playCmd.Flags().Bool("markdown", false, "Render lines as markdown")
	playCmd.Flags().Bool("tags", false, "Show line tags")
	playCmd.Flags().Bool("debug", false, "Log every story event to stderr")
	playCmd.Flags().StringToString("var", nil, "Override a declared variable (name=value), repeatable")
}
