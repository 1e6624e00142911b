package cmd

import (
	"errors"
	"fmt"

	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/spf13/cobra"
)

const historyDateLayout = "2006-01-02 15:04"

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Browse archived conversations",
	Long: `Without arguments, list archived conversations, newest first.
With a conversation ID, print that conversation's transcript and the
contexts that were attached during it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if !cfg.Store.Enabled {
			return errors.New("conversation archive is disabled (store.enabled: false)")
		}

		archive, err := openArchive(cfg.Store)
		if err != nil {
			return err
		}
		defer archive.Close()

		out := cmd.OutOrStdout()
		ctx := cmd.Context()

		if len(args) == 0 {
			conversations, err := archive.ListConversations(ctx)
			if err != nil {
				return err
			}
			if len(conversations) == 0 {
				fmt.Fprintln(out, noticeStyle.Render("ยังไม่มีประวัติการสนทนา"))
				return nil
			}
			for _, c := range conversations {
				fmt.Fprintf(out, "%s  %s  %3d  %s\n",
					idStyle.Render(c.ID),
					dateStyle.Render(c.UpdatedAt.Local().Format(historyDateLayout)),
					c.MessageCount,
					c.Title)
			}
			return nil
		}

		id := args[0]
		messages, err := archive.LoadTranscript(ctx, id)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return fmt.Errorf("conversation %s not found", id)
		}

		fmt.Fprintln(out, headerStyle.Render("การสนทนา "+id))
		for _, m := range messages {
			fmt.Fprintln(out, renderMessage(m))
		}

		contextEvents, err := archive.ContextEvents(ctx, id)
		if err != nil {
			return err
		}
		if len(contextEvents) > 0 {
			fmt.Fprintln(out)
			for _, e := range contextEvents {
				fmt.Fprintf(out, "%s  %-8s %s\n",
					dateStyle.Render(e.CreatedAt.Local().Format(historyDateLayout)),
					e.Action,
					e.Name)
			}
		}
		return nil
	},
}
