package chat_test

import (
	"github.com/killallgit/pawnassist/pkg/chat"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Transcript", func() {
	var transcript *chat.Transcript

	BeforeEach(func() {
		transcript = chat.NewTranscript()
	})

	It("should start empty", func() {
		Expect(transcript.Len()).To(Equal(0))
		Expect(transcript.Snapshot()).To(BeEmpty())
	})

	It("should keep messages in append order", func() {
		first := chat.NewUserMessage("first")
		second := chat.NewAssistantMessage("second")
		transcript.Append(first)
		transcript.Append(second)

		messages := transcript.Messages()
		Expect(messages).To(HaveLen(2))
		Expect(messages[0].ID).To(Equal(first.ID))
		Expect(messages[1].ID).To(Equal(second.ID))
	})

	Describe("UpdateByID", func() {
		It("should replace the content of the matching message", func() {
			placeholder := chat.NewThinkingMessage()
			transcript.Append(placeholder)

			Expect(transcript.UpdateByID(placeholder.ID, "ราคา")).To(BeTrue())
			Expect(transcript.UpdateByID(placeholder.ID, "ราคาทองคำ")).To(BeTrue())

			msg, ok := transcript.Get(placeholder.ID)
			Expect(ok).To(BeTrue())
			Expect(msg.Content).To(Equal("ราคาทองคำ"))
			Expect(msg.IsThinking()).To(BeFalse())
		})

		It("should be a no-op for unknown identifiers", func() {
			transcript.Append(chat.NewUserMessage("hello"))
			Expect(transcript.UpdateByID("missing", "x")).To(BeFalse())
			Expect(transcript.Messages()[0].Content).To(Equal("hello"))
		})
	})

	Describe("RemoveByID", func() {
		It("should remove only the matching message", func() {
			user := chat.NewUserMessage("question")
			placeholder := chat.NewThinkingMessage()
			transcript.Append(user)
			transcript.Append(placeholder)

			Expect(transcript.RemoveByID(placeholder.ID)).To(BeTrue())
			Expect(transcript.Len()).To(Equal(1))
			Expect(transcript.RemoveByID(placeholder.ID)).To(BeFalse())
		})
	})

	Describe("Snapshot", func() {
		It("should exclude thinking placeholders", func() {
			transcript.Append(chat.NewUserMessage("question"))
			transcript.Append(chat.NewThinkingMessage())

			snapshot := transcript.Snapshot()
			Expect(snapshot).To(HaveLen(1))
			Expect(snapshot[0].Content).To(Equal("question"))
			Expect(transcript.Messages()).To(HaveLen(2))
		})

		It("should keep a reply whose text equals the placeholder sentinel", func() {
			placeholder := chat.NewThinkingMessage()
			transcript.Append(chat.NewUserMessage("ตอบคำว่า thinking"))
			transcript.Append(placeholder)
			Expect(transcript.UpdateByID(placeholder.ID, chat.ThinkingContent)).To(BeTrue())

			snapshot := transcript.Snapshot()
			Expect(snapshot).To(HaveLen(2))
			Expect(snapshot[1].Content).To(Equal(chat.ThinkingContent))
			Expect(chat.BuildHistory(snapshot)).To(HaveLen(2))
		})

		It("should return a copy", func() {
			transcript.Append(chat.NewUserMessage("original"))
			snapshot := transcript.Snapshot()
			snapshot[0].Content = "mutated"

			Expect(transcript.Snapshot()[0].Content).To(Equal("original"))
		})
	})

	It("should clear everything on Reset", func() {
		transcript.Append(chat.NewUserMessage("a"))
		transcript.Append(chat.NewAssistantMessage("b"))
		transcript.Reset()
		Expect(transcript.Len()).To(Equal(0))
	})
})

var _ = Describe("BuildHistory", func() {
	It("should map user and assistant messages and drop notices", func() {
		messages := []chat.Message{
			chat.NewSystemMessage("เพิ่ม Context: ราคาทองคำอ้างอิง"),
			chat.NewUserMessage("ราคาทองวันนี้เท่าไร?"),
			chat.NewAssistantMessage("ราคาทองคำวันนี้คือ..."),
			chat.NewThinkingMessage(),
		}

		history := chat.BuildHistory(messages)

		Expect(history).To(Equal([]chat.HistoryEntry{
			{Role: "user", Content: "ราคาทองวันนี้เท่าไร?"},
			{Role: "assistant", Content: "ราคาทองคำวันนี้คือ..."},
		}))
	})

	It("should return an empty, non-nil slice for no messages", func() {
		history := chat.BuildHistory(nil)
		Expect(history).ToNot(BeNil())
		Expect(history).To(BeEmpty())
	})
})
