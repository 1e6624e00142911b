package cmd

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/killallgit/pawnassist/pkg/chat"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	suggestionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// renderMessage formats one archived or live message for the terminal
func renderMessage(m chat.Message) string {
	switch m.Role {
	case chat.RoleUser:
		return userStyle.Render("คุณ: ") + m.Content
	case chat.RoleSystem:
		return noticeStyle.Render("· " + m.Content)
	}
	if m.IsThinking() {
		return noticeStyle.Render("ผู้ช่วย: กำลังคิด...")
	}
	return assistantStyle.Render("ผู้ช่วย: ") + m.Content
}
