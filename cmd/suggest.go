package cmd

import (
	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/suggest"
	"github.com/spf13/cobra"
)

var suggestCmd = &cobra.Command{
	Use:   "suggest [widget-id...]",
	Short: "List suggested questions for a set of widgets",
	Long: `List the questions the assistant suggests for the given widget IDs,
e.g. gold-price or daily-operations. Without IDs the general questions
are shown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := suggest.NewEngine(config.Get().Session.MaxSuggestions)

		questions := engine.General()
		if len(args) > 0 {
			questions = engine.Suggest(args)
		}
		printSuggestions(cmd.OutOrStdout(), questions)
		return nil
	},
}
