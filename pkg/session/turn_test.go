package session_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/session"
	"github.com/killallgit/pawnassist/pkg/testutil"
	"github.com/killallgit/pawnassist/pkg/tokens"
	"github.com/killallgit/pawnassist/pkg/widget"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Turns", func() {
	var (
		ctx       context.Context
		transport *testutil.FakeTransport
		s         *session.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		transport = testutil.NewFakeTransport()
		s = session.New(transport, session.WithSettings(config.SessionConfig{
			SystemPrompt:      "plain instruction",
			ContextPrompt:     "context instruction",
			FilterSettleDelay: 20 * time.Millisecond,
		}))
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	Describe("gold price walkthrough", func() {
		It("should suggest, stream and settle the reply", func() {
			_, err := s.Attach(widget.Context{
				ID:   "gold-price",
				Name: "ราคาทองคำอ้างอิง",
				Data: map[string]any{"goldBarBuy": 51750},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(s.Suggestions()).To(ContainElement("ราคาทองแท่งกับทองรูปพรรณต่างกันเท่าไร?"))

			transport.Script("ราคา", "ทองคำ", "วันนี้คือ...")
			steps := transport.Step()

			turn, err := s.Submit(ctx, "ราคาทองวันนี้เท่าไร?")
			Expect(err).ToNot(HaveOccurred())
			Expect(s.Busy()).To(BeTrue())

			transcript := s.Transcript()
			Expect(roles(transcript)).To(Equal([]string{chat.RoleSystem, chat.RoleUser, chat.RoleAssistant}))
			Expect(transcript[1].Content).To(Equal("ราคาทองวันนี้เท่าไร?"))
			Expect(transcript[2].IsThinking()).To(BeTrue())

			// each prefix is visible in turn
			for _, want := range []string{"ราคา", "ราคาทองคำ", "ราคาทองคำวันนี้คือ..."} {
				steps <- struct{}{}
				Eventually(contentOf(s, turn.ReplyID)).Should(Equal(want))
			}

			Eventually(turn.Done()).Should(BeClosed())
			Expect(turn.Err()).ToNot(HaveOccurred())
			Expect(turn.Content()).To(Equal("ราคาทองคำวันนี้คือ..."))
			Expect(s.Busy()).To(BeFalse())

			for _, m := range s.Transcript() {
				Expect(m.IsThinking()).To(BeFalse())
			}
		})
	})

	It("should concatenate every chunk in order", func() {
		chunks := []string{"ก", "", "ข", " ", "ค", "1", "2", "\n", "ง"}
		transport.Script(chunks...)

		turn, err := s.Submit(ctx, "hello")
		Expect(err).ToNot(HaveOccurred())
		Expect(turn.Wait(ctx)).To(Succeed())

		Expect(contentOf(s, turn.ReplyID)()).To(Equal(strings.Join(chunks, "")))
	})

	It("should reject blank input without touching the transcript", func() {
		_, err := s.Submit(ctx, "   \n")
		Expect(err).To(MatchError(session.ErrEmptyInput))
		Expect(s.Transcript()).To(BeEmpty())
		Expect(transport.Calls()).To(Equal(0))
	})

	Describe("single in-flight turn", func() {
		It("should drop submissions while busy", func() {
			transport.Script("partial")
			release := transport.Hold()

			turn, err := s.Submit(ctx, "first")
			Expect(err).ToNot(HaveOccurred())

			_, err = s.Submit(ctx, "second")
			Expect(err).To(MatchError(session.ErrBusy))

			Expect(s.Transcript()).To(HaveLen(2))
			Expect(transport.Calls()).To(Equal(1))

			release()
			Expect(turn.Wait(ctx)).To(Succeed())
			Expect(s.Busy()).To(BeFalse())

			_, err = s.Submit(ctx, "third")
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("failures", func() {
		It("should replace the placeholder with one error message when the transport rejects", func() {
			transport.RejectWith(errors.New("connection refused"))

			turn, err := s.Submit(ctx, "ราคาทองวันนี้เท่าไร?")
			Expect(err).ToNot(HaveOccurred())
			Eventually(turn.Done()).Should(BeClosed())

			Expect(turn.Err()).To(MatchError("connection refused"))
			Expect(s.Busy()).To(BeFalse())
			Expect(contents(s.Transcript())).To(Equal([]string{
				"ราคาทองวันนี้เท่าไร?",
				session.FailurePrefix + ": connection refused",
			}))
			Expect(s.Transcript()[1].Role).To(Equal(chat.RoleAssistant))
		})

		It("should discard a partial reply when the stream breaks", func() {
			transport.Script("ราคา", "ทอง")
			transport.FailAfterChunks(errors.New("stream reset"))

			turn, err := s.Submit(ctx, "q")
			Expect(err).ToNot(HaveOccurred())
			Expect(turn.Wait(ctx)).To(MatchError("stream reset"))

			Expect(contents(s.Transcript())).To(Equal([]string{"q", session.FailurePrefix + ": stream reset"}))
		})

		It("should treat caller cancellation as a failure", func() {
			transport.Script("partial")
			release := transport.Hold()
			defer release()

			turnCtx, cancel := context.WithCancel(ctx)
			turn, err := s.Submit(turnCtx, "q")
			Expect(err).ToNot(HaveOccurred())
			Eventually(contentOf(s, turn.ReplyID)).Should(Equal("partial"))

			cancel()
			Eventually(turn.Done()).Should(BeClosed())
			Expect(turn.Err()).To(MatchError(context.Canceled))
			Expect(contents(s.Transcript())).To(Equal([]string{"q", session.FailurePrefix + ": context canceled"}))
			Expect(s.Busy()).To(BeFalse())
		})
	})

	It("should drop the placeholder when the stream ends without chunks", func() {
		turn, err := s.Submit(ctx, "anyone there?")
		Expect(err).ToNot(HaveOccurred())
		Expect(turn.Wait(ctx)).To(Succeed())

		Expect(contents(s.Transcript())).To(Equal([]string{"anyone there?"}))
		Expect(s.Busy()).To(BeFalse())
	})

	Describe("outbound requests", func() {
		It("should send history without the new message or notices", func() {
			transport.Script("สวัสดีครับ")
			first, err := s.Submit(ctx, "สวัสดี")
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Wait(ctx)).To(Succeed())

			_, err = s.Attach(widget.Context{ID: "daily-operations", Name: "ผลการดำเนินงานรายวัน", Data: []int{1}})
			Expect(err).ToNot(HaveOccurred())

			second, err := s.Submit(ctx, "วันนี้เป็นอย่างไร?")
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Wait(ctx)).To(Succeed())

			requests := transport.Requests()
			Expect(requests).To(HaveLen(2))

			Expect(requests[0].Message).To(Equal("สวัสดี"))
			Expect(requests[0].History).To(Equal([]chat.HistoryEntry{{Role: chat.RoleSystem, Content: "plain instruction"}}))

			history := requests[1].History
			Expect(history).To(HaveLen(3))
			Expect(history[0].Role).To(Equal(chat.RoleSystem))
			Expect(history[0].Content).To(HavePrefix("context instruction"))
			Expect(history[0].Content).To(ContainSubstring("ผลการดำเนินงานรายวัน"))
			Expect(history[1:]).To(Equal([]chat.HistoryEntry{
				{Role: chat.RoleUser, Content: "สวัสดี"},
				{Role: chat.RoleAssistant, Content: "สวัสดีครับ"},
			}))
			for _, entry := range history {
				Expect(entry.Content).ToNot(HavePrefix(session.NoticeAttached))
			}
		})

		It("should keep a reply that reads exactly like the placeholder", func() {
			transport.Script(chat.ThinkingContent)
			first, err := s.Submit(ctx, "ตอบคำเดียว")
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Wait(ctx)).To(Succeed())

			reply := s.Transcript()[1]
			Expect(reply.Content).To(Equal(chat.ThinkingContent))
			Expect(reply.IsThinking()).To(BeFalse())

			second, err := s.Submit(ctx, "อีกครั้ง")
			Expect(err).ToNot(HaveOccurred())
			Expect(second.Wait(ctx)).To(Succeed())

			Expect(transport.Requests()[1].History[1:]).To(Equal([]chat.HistoryEntry{
				{Role: chat.RoleUser, Content: "ตอบคำเดียว"},
				{Role: chat.RoleAssistant, Content: chat.ThinkingContent},
			}))
		})

		It("should reuse one conversation identifier", func() {
			for _, q := range []string{"one", "two"} {
				turn, err := s.Submit(ctx, q)
				Expect(err).ToNot(HaveOccurred())
				Expect(turn.Wait(ctx)).To(Succeed())
			}

			requests := transport.Requests()
			Expect(requests[0].ConversationID).ToNot(BeEmpty())
			Expect(requests[0].ConversationID).To(Equal(s.ConversationID()))
			Expect(requests[1].ConversationID).To(Equal(s.ConversationID()))
		})

		It("should report prompt size when a counter is configured", func() {
			counted := session.New(transport, session.WithTokenCounter(tokens.NewTokenCounter("gpt-4")))
			defer counted.Close()

			turn, err := counted.Submit(ctx, "How many contracts are overdue this week?")
			Expect(err).ToNot(HaveOccurred())
			Expect(turn.PromptTokens).To(BeNumerically(">", 0))
		})
	})

	Describe("teardown", func() {
		It("should ignore a stream that outlives Close", func() {
			transport.Script("partial")
			release := transport.Hold()
			defer release()

			turn, err := s.Submit(ctx, "q")
			Expect(err).ToNot(HaveOccurred())
			Eventually(contentOf(s, turn.ReplyID)).Should(Equal("partial"))

			Expect(s.Close()).To(Succeed())
			Expect(turn.Wait(ctx)).To(MatchError(session.ErrInterrupted))
			Expect(contents(s.Transcript())).To(Equal([]string{"q", "partial"}))
			Eventually(transport.Cancelled).Should(Equal(1))

			_, err = s.Submit(ctx, "again")
			Expect(err).To(MatchError(session.ErrClosed))
		})

		It("should start over on Reset", func() {
			_, err := s.Attach(widget.Context{ID: "gold-price"})
			Expect(err).ToNot(HaveOccurred())
			transport.Script("partial")
			release := transport.Hold()

			before := s.ConversationID()
			turn, err := s.Submit(ctx, "q")
			Expect(err).ToNot(HaveOccurred())

			s.Reset()
			release()

			Expect(turn.Wait(ctx)).To(MatchError(session.ErrInterrupted))
			Expect(s.Transcript()).To(BeEmpty())
			Expect(s.Contexts()).To(BeEmpty())
			Expect(s.Busy()).To(BeFalse())
			Expect(s.ConversationID()).ToNot(Equal(before))

			transport.Script("fresh")
			next, err := s.Submit(ctx, "again")
			Expect(err).ToNot(HaveOccurred())
			Expect(next.Wait(ctx)).To(Succeed())
			Expect(contents(s.Transcript())).To(Equal([]string{"again", "fresh"}))
		})
	})
})
