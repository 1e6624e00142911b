package cmd

import (
	"fmt"
	"os"

	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pawnassist",
	Short: "AI assistant for the pawn-shop dashboard",
	Long: `pawnassist chats with the dashboard's AI assistant from the terminal.

Attach widget snapshots (gold prices, transaction summaries, overdue
contracts) as context, get suggested questions for them and stream the
assistant's answers. Conversations are archived locally.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return logger.Init(cfg.Logging)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Close()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.pawnassist/settings.yaml)")

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(chatCmd, suggestCmd, historyCmd)
}
