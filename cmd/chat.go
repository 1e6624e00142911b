package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/events"
	"github.com/killallgit/pawnassist/pkg/session"
	"github.com/spf13/cobra"
)

var (
	contextFiles []string
	promptText   string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	Long: `Start an interactive chat. Lines starting with / are commands:

  /attach <file>   attach a widget snapshot (YAML or JSON)
  /detach <id>     remove an attached widget
  /contexts        list attached widgets
  /suggest         show suggested questions
  /filter          signal that dashboard filters changed
  /reset           clear the conversation and contexts
  /quit            leave

With --prompt the question is answered once and the command exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(config.Get())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, path := range contextFiles {
			if err := attachFile(a.session, path); err != nil {
				return err
			}
		}

		if promptText != "" {
			return runOnce(cmd.Context(), a.session, promptText, cmd.OutOrStdout())
		}
		return runREPL(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringArrayVar(&contextFiles, "context", nil, "widget snapshot file to attach (repeatable)")
	chatCmd.Flags().StringVarP(&promptText, "prompt", "p", "", "answer one question and exit")
}

func attachFile(s *session.Session, path string) error {
	c, err := loadContextFile(path)
	if err != nil {
		return err
	}
	_, err = s.Attach(c)
	return err
}

// runOnce answers a single question without the interactive loop
func runOnce(ctx context.Context, s *session.Session, question string, out io.Writer) error {
	turn, err := s.Submit(ctx, question)
	if err != nil {
		return err
	}
	if err := turn.Wait(ctx); err != nil {
		return errors.New(session.FailureMessage(err))
	}
	fmt.Fprintln(out, turn.Content())
	return nil
}

// printer streams transcript changes to the terminal
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	replyID string
	printed int
}

func (p *printer) handle(e events.Event) {
	change, ok := e.Payload.(events.TranscriptChange)
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch change.Kind {
	case events.ChangeAppended:
		switch {
		case change.Role == chat.RoleSystem:
			fmt.Fprintln(p.out, renderMessage(chat.Message{Role: change.Role, Content: change.Content}))
		case change.Role == chat.RoleAssistant && !change.Pending:
			fmt.Fprintln(p.out, errorStyle.Render(change.Content))
		}
	case events.ChangeUpdated:
		if change.MessageID == p.replyID {
			p.writeDelta(change.Content)
		}
	}
}

func (p *printer) writeDelta(content string) {
	if len(content) <= p.printed {
		return
	}
	if p.printed == 0 {
		fmt.Fprint(p.out, assistantStyle.Render("ผู้ช่วย: "))
	}
	fmt.Fprint(p.out, content[p.printed:])
	p.printed = len(content)
}

func (p *printer) follow(replyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replyID = replyID
	p.printed = 0
}

// finish flushes any reply text the event stream has not shown yet
func (p *printer) finish(turn *session.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if turn.Err() == nil {
		p.writeDelta(turn.Content())
		if p.printed > 0 {
			fmt.Fprintln(p.out)
		}
	}
	p.replyID = ""
}

func runREPL(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	p := &printer{out: out}
	unsubscribe := a.bus.Subscribe(events.TopicTranscript, p.handle)
	defer unsubscribe()

	fmt.Fprintln(out, headerStyle.Render("ผู้ช่วย AI ร้านรับจำนำ · พิมพ์ /quit เพื่อออก"))
	printSuggestions(out, a.session.Suggestions())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(a, line, out)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		turn, err := a.session.Submit(ctx, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		p.follow(turn.ReplyID)
		if err := turn.Wait(ctx); err != nil && errors.Is(err, ctx.Err()) {
			return err
		}
		p.finish(turn)
	}
}

// runCommand executes a slash command and reports whether to quit
func runCommand(a *app, line string, out io.Writer) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil

	case "/attach":
		if arg == "" {
			return false, errors.New("usage: /attach <file>")
		}
		return false, attachFile(a.session, arg)

	case "/detach":
		if arg == "" {
			return false, errors.New("usage: /detach <id>")
		}
		if !a.session.Detach(arg) {
			fmt.Fprintln(out, noticeStyle.Render("ไม่พบ Context: "+arg))
		}
		return false, nil

	case "/contexts":
		contexts := a.session.Contexts()
		if len(contexts) == 0 {
			fmt.Fprintln(out, noticeStyle.Render("ยังไม่มี Context"))
		}
		for _, c := range contexts {
			fmt.Fprintf(out, "%s  %s\n", idStyle.Render(c.ID), c.DisplayName())
		}
		return false, nil

	case "/suggest":
		printSuggestions(out, a.session.Suggestions())
		return false, nil

	case "/filter":
		a.bus.Publish(events.TopicFilterChanged, events.FilterChange{}, "cli")
		return false, nil

	case "/reset":
		a.session.Reset()
		fmt.Fprintln(out, noticeStyle.Render("เริ่มการสนทนาใหม่"))
		return false, nil
	}

	return false, fmt.Errorf("unknown command %s", name)
}

func printSuggestions(out io.Writer, questions []string) {
	for i, q := range questions {
		fmt.Fprintln(out, suggestionStyle.Render(fmt.Sprintf("%2d. %s", i+1, q)))
	}
}
