package session_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/pawnassist/pkg/chat"
	"github.com/killallgit/pawnassist/pkg/config"
	"github.com/killallgit/pawnassist/pkg/events"
	"github.com/killallgit/pawnassist/pkg/session"
	"github.com/killallgit/pawnassist/pkg/store"
	"github.com/killallgit/pawnassist/pkg/testutil"
	"github.com/killallgit/pawnassist/pkg/widget"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const settleDelay = 30 * time.Millisecond

func filterNotices(s *session.Session) []string {
	var out []string
	for _, m := range s.Transcript() {
		if strings.HasPrefix(m.Content, session.NoticeFilterRefreshed) {
			out = append(out, m.Content)
		}
	}
	return out
}

var _ = Describe("Contexts", func() {
	var (
		transport *testutil.FakeTransport
		recorder  *fakeRecorder
		s         *session.Session
	)

	BeforeEach(func() {
		transport = testutil.NewFakeTransport()
		recorder = &fakeRecorder{}
		policy := widget.NewPolicy([]config.WidgetConfig{
			{ID: "gold-price", Name: "ราคาทองคำอ้างอิง", Description: "ราคาจากสมาคมค้าทองคำ", AutoReplace: true},
			{ID: "daily-operations", Name: "ผลการดำเนินงานรายวัน"},
		})
		s = session.New(transport,
			session.WithSettings(config.SessionConfig{FilterSettleDelay: settleDelay}),
			session.WithPolicy(policy),
			session.WithRecorder(recorder),
		)
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	Describe("Attach", func() {
		It("should replace rather than duplicate and announce each case", func() {
			_, err := s.Attach(widget.Context{ID: "a", Name: "A", Data: 1})
			Expect(err).ToNot(HaveOccurred())
			list, err := s.Attach(widget.Context{ID: "a", Name: "A", Data: 2})
			Expect(err).ToNot(HaveOccurred())

			Expect(list).To(HaveLen(1))
			Expect(list[0].Data).To(Equal(2))
			Expect(contents(s.Transcript())).To(Equal([]string{
				session.NoticeAttached + "A",
				session.NoticeReplaced + "A",
			}))
			Expect(roles(s.Transcript())).To(HaveEach(chat.RoleSystem))
		})

		It("should fill names from the widget policy", func() {
			list, err := s.Attach(widget.Context{ID: "gold-price", Data: 51750})
			Expect(err).ToNot(HaveOccurred())

			Expect(list[0].Name).To(Equal("ราคาทองคำอ้างอิง"))
			Expect(list[0].Description).To(Equal("ราคาจากสมาคมค้าทองคำ"))
			Expect(s.Transcript()[0].Content).To(Equal(session.NoticeAttached + "ราคาทองคำอ้างอิง"))
		})

		It("should reject contexts without an identifier", func() {
			_, err := s.Attach(widget.Context{Name: "nameless"})
			Expect(err).To(MatchError(widget.ErrEmptyID))
			Expect(s.Transcript()).To(BeEmpty())
		})
	})

	Describe("Detach", func() {
		It("should announce only real removals", func() {
			_, err := s.Attach(widget.Context{ID: "daily-operations"})
			Expect(err).ToNot(HaveOccurred())

			Expect(s.Detach("unknown")).To(BeFalse())
			Expect(s.Detach("daily-operations")).To(BeTrue())
			Expect(s.Detach("daily-operations")).To(BeFalse())

			Expect(contents(s.Transcript())).To(Equal([]string{
				session.NoticeAttached + "ผลการดำเนินงานรายวัน",
				session.NoticeDetached + "ผลการดำเนินงานรายวัน",
			}))
			Expect(s.Contexts()).To(BeEmpty())
		})
	})

	Describe("Suggestions", func() {
		It("should fall back to general questions", func() {
			general := s.Suggestions()
			Expect(general).ToNot(BeEmpty())

			_, err := s.Attach(widget.Context{ID: "not-a-known-widget"})
			Expect(err).ToNot(HaveOccurred())
			Expect(s.Suggestions()).To(Equal(general))

			_, err = s.Attach(widget.Context{ID: "gold-price"})
			Expect(err).ToNot(HaveOccurred())
			Expect(s.Suggestions()).To(ContainElement("ราคาทองแท่งกับทองรูปพรรณต่างกันเท่าไร?"))
			Expect(len(s.Suggestions())).To(BeNumerically("<=", 10))
		})
	})

	Describe("widget updates", func() {
		BeforeEach(func() {
			_, err := s.Attach(widget.Context{ID: "gold-price", Data: 51750})
			Expect(err).ToNot(HaveOccurred())
			_, err = s.Attach(widget.Context{ID: "daily-operations", Data: "old"})
			Expect(err).ToNot(HaveOccurred())
		})

		It("should silently refresh auto-replace widgets", func() {
			before := len(s.Transcript())

			Expect(s.HandleWidgetUpdate(events.WidgetUpdate{WidgetID: "gold-price", Data: 51800})).To(BeTrue())

			Expect(s.Transcript()).To(HaveLen(before))
			contexts := s.Contexts()
			Expect(contexts[0].Data).To(Equal(51800))
			Expect(contexts[0].Name).To(Equal("ราคาทองคำอ้างอิง"))
		})

		It("should leave other widgets alone", func() {
			Expect(s.HandleWidgetUpdate(events.WidgetUpdate{WidgetID: "daily-operations", Data: "new"})).To(BeFalse())
			Expect(s.Contexts()[1].Data).To(Equal("old"))
		})

		It("should not attach widgets that are not active", func() {
			s.Detach("gold-price")
			Expect(s.HandleWidgetUpdate(events.WidgetUpdate{WidgetID: "gold-price", Data: 1})).To(BeFalse())
			Expect(s.Contexts()).To(HaveLen(1))
		})
	})

	Describe("filter changes", func() {
		It("should post one notice per burst naming every active context", func() {
			_, err := s.Attach(widget.Context{ID: "gold-price"})
			Expect(err).ToNot(HaveOccurred())
			_, err = s.Attach(widget.Context{ID: "daily-operations"})
			Expect(err).ToNot(HaveOccurred())

			for i := 0; i < 5; i++ {
				s.HandleFilterChanged()
			}

			Eventually(func() []string { return filterNotices(s) }).Should(Equal([]string{
				session.NoticeFilterRefreshed + "ราคาทองคำอ้างอิง, ผลการดำเนินงานรายวัน",
			}))
			Consistently(func() []string { return filterNotices(s) }, 3*settleDelay).Should(HaveLen(1))
		})

		It("should say nothing without active contexts", func() {
			s.HandleFilterChanged()
			Consistently(s.Transcript, 3*settleDelay).Should(BeEmpty())
		})

		It("should cancel the pending notice on Close", func() {
			_, err := s.Attach(widget.Context{ID: "gold-price"})
			Expect(err).ToNot(HaveOccurred())

			s.HandleFilterChanged()
			Expect(s.Close()).To(Succeed())

			Consistently(func() []string { return filterNotices(s) }, 3*settleDelay).Should(BeEmpty())
		})
	})

	Describe("archive", func() {
		It("should record notices, turns and context events", func() {
			_, err := s.Attach(widget.Context{ID: "gold-price"})
			Expect(err).ToNot(HaveOccurred())
			_, err = s.Attach(widget.Context{ID: "gold-price"})
			Expect(err).ToNot(HaveOccurred())
			s.HandleWidgetUpdate(events.WidgetUpdate{WidgetID: "gold-price", Data: 1})
			s.Detach("gold-price")

			transport.Script("ตอบ")
			turn, err := s.Submit(context.Background(), "ถาม")
			Expect(err).ToNot(HaveOccurred())
			Expect(turn.Wait(context.Background())).To(Succeed())

			Eventually(recorder.Contents).Should(Equal([]string{
				session.NoticeAttached + "ราคาทองคำอ้างอิง",
				session.NoticeReplaced + "ราคาทองคำอ้างอิง",
				session.NoticeDetached + "ราคาทองคำอ้างอิง",
				"ถาม",
				"ตอบ",
			}))
			Expect(recorder.Actions()).To(Equal([]string{
				store.ActionAttach, store.ActionReplace, store.ActionRefresh, store.ActionDetach,
			}))
			Expect(recorder.events[0].conversationID).To(Equal(s.ConversationID()))
		})

		It("should keep going when the archive fails", func() {
			recorder.fail = true
			transport.Script("ตอบ")

			turn, err := s.Submit(context.Background(), "ถาม")
			Expect(err).ToNot(HaveOccurred())
			Expect(turn.Wait(context.Background())).To(Succeed())
			Expect(contents(s.Transcript())).To(Equal([]string{"ถาม", "ตอบ"}))
		})

		It("should log archive failures safely while the session resets", func() {
			recorder.fail = true

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_, err := s.Attach(widget.Context{ID: "gold-price", Data: i})
					Expect(err).ToNot(HaveOccurred())
					s.Detach("gold-price")
				}
			}()
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					s.Reset()
				}
			}()
			wg.Wait()

			s.Reset()
			Expect(s.Transcript()).To(BeEmpty())
			Expect(s.Contexts()).To(BeEmpty())
		})
	})
})

var _ = Describe("Bind", func() {
	var (
		bus *events.Bus
		s   *session.Session
	)

	BeforeEach(func() {
		bus = events.NewBus()
		s = session.New(testutil.NewFakeTransport(),
			session.WithSettings(config.SessionConfig{FilterSettleDelay: settleDelay}),
			session.WithPolicy(widget.NewPolicy([]config.WidgetConfig{{ID: "gold-price", AutoReplace: true}})),
		)
		s.Bind(bus)
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
		bus.Close()
	})

	It("should react to widget and filter notifications", func() {
		_, err := s.Attach(widget.Context{ID: "gold-price", Name: "ราคาทอง", Data: 1})
		Expect(err).ToNot(HaveOccurred())

		bus.PublishSync(events.TopicWidgetUpdated, events.WidgetUpdate{WidgetID: "gold-price", Data: 2}, "dashboard")
		Expect(s.Contexts()[0].Data).To(Equal(2))

		bus.Publish(events.TopicWidgetUpdated, &events.WidgetUpdate{WidgetID: "gold-price", Data: 3}, "dashboard")
		Eventually(func() any { return s.Contexts()[0].Data }).Should(Equal(3))

		bus.Publish(events.TopicFilterChanged, events.FilterChange{}, "dashboard")
		Eventually(func() []string { return filterNotices(s) }).Should(HaveLen(1))
	})

	It("should publish transcript changes", func() {
		var (
			mu    sync.Mutex
			kinds []string
		)
		bus.Subscribe(events.TopicTranscript, func(e events.Event) {
			mu.Lock()
			defer mu.Unlock()
			kinds = append(kinds, e.Payload.(events.TranscriptChange).Kind)
		})

		_, err := s.Attach(widget.Context{ID: "gold-price"})
		Expect(err).ToNot(HaveOccurred())
		s.Reset()

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), kinds...)
		}).Should(Equal([]string{events.ChangeAppended, events.ChangeReset}))
	})

	It("should stop listening after Close", func() {
		_, err := s.Attach(widget.Context{ID: "gold-price", Data: 1})
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Close()).To(Succeed())

		bus.PublishSync(events.TopicWidgetUpdated, events.WidgetUpdate{WidgetID: "gold-price", Data: 2}, "dashboard")
		Expect(s.Contexts()[0].Data).To(Equal(1))
	})
})
